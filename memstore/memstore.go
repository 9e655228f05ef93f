// Package memstore implements the cache store contract on bigcache, for
// deployments that want request coalescing without a persistent directory
// (tests, one-shot batch jobs, diskless workers). Entries hold the whole
// dataset encoded as one value and expire with bigcache's life window.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/MeteoSwiss/weathermart"
	"github.com/MeteoSwiss/weathermart/codec"
	"github.com/MeteoSwiss/weathermart/dataset"
	"github.com/MeteoSwiss/weathermart/keylock"
)

// Config tunes the in-memory store.
type Config struct {
	// LifeWindow is the entry lifetime; 0 defaults to 12h. Unlike the disk
	// store, expiry is inherent here: bigcache reclaims memory by age.
	LifeWindow time.Duration

	HardMaxCacheSizeMB int                           // 0 = unlimited
	Codec              codec.Codec[*dataset.Dataset] // nil => deterministic CBOR
	Locker             keylock.Locker                // nil => in-process per-key locks
}

// Store implements weathermart.Store in process memory.
type Store struct {
	c     *bc.BigCache
	codec codec.Codec[*dataset.Dataset]
	locks keylock.Locker
}

var _ weathermart.Store = (*Store)(nil)

func New(cfg Config) (*Store, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = 12 * time.Hour
	}
	conf := bc.DefaultConfig(life)
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, fmt.Errorf("memstore: %w", err)
	}
	s := &Store{c: c, codec: cfg.Codec, locks: cfg.Locker}
	if s.codec == nil {
		s.codec = codec.MustCBOR[*dataset.Dataset](true)
	}
	if s.locks == nil {
		s.locks = keylock.NewLocal()
	}
	return s, nil
}

func (s *Store) Lookup(ctx context.Context, key weathermart.Key, vars ...string) (*dataset.Dataset, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	b, err := s.c.Get(key.String())
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("memstore: %s: %w", key, err)
	}
	ds, err := s.codec.Decode(b)
	if err != nil {
		return nil, false, fmt.Errorf("memstore: %s: %w", key, err)
	}
	if len(vars) == 0 {
		return ds, true, nil
	}
	out := dataset.New()
	for name, c := range ds.Coords {
		out.SetCoord(name, c)
	}
	for k, v := range ds.Attrs {
		out.Attrs[k] = v
	}
	for _, name := range vars {
		if v, ok := ds.Vars[name]; ok {
			out.Vars[name] = v
		}
	}
	return out, true, nil
}

func (s *Store) Write(ctx context.Context, key weathermart.Key, ds *dataset.Dataset) error {
	if err := ds.CheckMonotonic(); err != nil {
		return fmt.Errorf("memstore: %s: %w", key, err)
	}

	release, err := s.locks.Acquire(ctx, key.String())
	if err != nil {
		return fmt.Errorf("memstore: %s: lock: %w", key, err)
	}
	defer release()

	merged := ds
	if b, err := s.c.Get(key.String()); err == nil {
		existing, err := s.codec.Decode(b)
		if err != nil {
			return fmt.Errorf("memstore: %s: %w", key, err)
		}
		if _, err := existing.Merge(ds); err != nil {
			return fmt.Errorf("memstore: %s: %w", key, err)
		}
		merged = existing
	} else if !errors.Is(err, bc.ErrEntryNotFound) {
		return fmt.Errorf("memstore: %s: %w", key, err)
	}

	b, err := s.codec.Encode(merged)
	if err != nil {
		return fmt.Errorf("memstore: %s: %w", key, err)
	}
	if err := s.c.Set(key.String(), b); err != nil {
		return fmt.Errorf("memstore: %s: %w", key, err)
	}
	return nil
}

func (s *Store) Close(context.Context) error {
	return s.c.Close()
}
