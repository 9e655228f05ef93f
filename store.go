package weathermart

import (
	"context"
	"strings"
	"time"

	"github.com/MeteoSwiss/weathermart/dataset"
)

// Key identifies one cache entry: a (source, calendar day, canonical
// kwarg-fragment) triple.
type Key struct {
	Source   string
	Date     time.Time
	Fragment string
}

// NewKey normalizes the date to a UTC calendar day.
func NewKey(source string, date time.Time, fragment string) Key {
	d := date.UTC()
	return Key{
		Source:   source,
		Date:     time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
		Fragment: fragment,
	}
}

// EntryName is the per-day directory name: YYYYMMDD followed directly by the
// kwarg fragment (empty for default requests).
func (k Key) EntryName() string {
	return k.Date.Format("20060102") + k.Fragment
}

// String renders the store-relative path: <lower(source)>/<entry>.
func (k Key) String() string {
	return strings.ToLower(k.Source) + "/" + k.EntryName()
}

// Store is the persistent cache consumed by the DataProvider. Entries
// accumulate variables across writes and are never deleted by this subsystem
// (eviction is an external concern).
//
// Concurrent writers to the same key must be serialized per key; store
// implementations serialize writers within one process, and multi-process
// deployments must hold an external single-writer-per-key lock (see the
// keylock package). Distinct keys need no coordination.
type Store interface {
	// Lookup opens the entry if present. With variable names given, only
	// those variables are loaded (missing ones are simply absent from the
	// result); with none, the whole entry is loaded. found=false means no
	// entry exists for the key, which is not an error.
	Lookup(ctx context.Context, key Key, vars ...string) (ds *dataset.Dataset, found bool, err error)

	// Write creates the entry or merges ds into it: variables not yet
	// present are appended, existing ones are left untouched. The incoming
	// dataset's time-like axis must be strictly increasing; violations fail
	// before any mutation, wrapping dataset.ErrNonMonotonic.
	Write(ctx context.Context, key Key, ds *dataset.Dataset) error

	// Close releases resources.
	Close(ctx context.Context) error
}
