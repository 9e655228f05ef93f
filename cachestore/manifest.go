package cachestore

import (
	"strings"

	"github.com/MeteoSwiss/weathermart/dataset"
)

const manifestVersion = 1

// manifestFile is the per-entry index file name.
const manifestFile = "manifest.wm"

// varMeta describes one persisted variable and names its chunk file.
type varMeta struct {
	Dims  []string      `cbor:"1,keyasint"`
	Shape []int         `cbor:"2,keyasint"`
	Chunk string        `cbor:"3,keyasint"`
	Attrs dataset.Attrs `cbor:"4,keyasint,omitempty"`
}

// manifest indexes one cache entry: the shared coordinates, entry-level
// attributes and the variables with their chunk files. It is rewritten as a
// whole on every append; chunks of already-present variables are never
// touched.
type manifest struct {
	Version int                       `cbor:"1,keyasint"`
	Coords  map[string]*dataset.Coord `cbor:"2,keyasint"`
	Attrs   dataset.Attrs             `cbor:"3,keyasint,omitempty"`
	Vars    map[string]varMeta        `cbor:"4,keyasint"`
}

func newManifest() *manifest {
	return &manifest{
		Version: manifestVersion,
		Coords:  make(map[string]*dataset.Coord),
		Attrs:   make(dataset.Attrs),
		Vars:    make(map[string]varMeta),
	}
}

// chunkName maps a variable name to its chunk file. Variable names are
// conventionally [A-Z0-9_]; anything else is replaced so the name stays a
// plain file name on every platform.
func chunkName(variable string) string {
	var b strings.Builder
	b.Grow(len(variable) + len(".chunk"))
	for _, r := range variable {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	b.WriteString(".chunk")
	return b.String()
}
