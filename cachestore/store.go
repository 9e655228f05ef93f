// Package cachestore persists datasets on the local filesystem, one directory
// per (source, day, fragment) cache entry. Each entry holds a manifest file
// indexing the shared coordinates plus one framed chunk file per variable, so
// a lookup for a subset of variables reads only those chunks. Entries are
// append-only: a write adds the variables the entry does not have yet and
// never rewrites existing chunks.
//
// An optional ristretto hot layer caches raw file bytes in memory, sized by
// Config.HotBytes.
package cachestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	rc "github.com/dgraph-io/ristretto"

	"github.com/MeteoSwiss/weathermart"
	"github.com/MeteoSwiss/weathermart/codec"
	"github.com/MeteoSwiss/weathermart/dataset"
	"github.com/MeteoSwiss/weathermart/internal/wire"
	"github.com/MeteoSwiss/weathermart/keylock"
)

var (
	// ErrRootNotFound means the configured cache root does not exist. The
	// store never creates the root itself; a typo'd path silently filling a
	// fresh directory is worse than failing at construction.
	ErrRootNotFound = errors.New("cachestore: cache root does not exist")

	// ErrRootNotDir means the configured cache root is not a directory.
	ErrRootNotDir = errors.New("cachestore: cache root is not a directory")
)

// Config tunes the disk store. Only Root is required.
type Config struct {
	// Required. Must exist and be a directory; checked eagerly by New.
	Root string

	Chunks codec.Codec[*dataset.Variable] // nil => deterministic CBOR
	Logger weathermart.Logger             // nil => NopLogger
	Locker keylock.Locker                 // nil => in-process per-key locks
	// HotBytes > 0 enables an in-memory hot layer over raw file bytes.
	HotBytes int64
}

// Store implements weathermart.Store on a local directory tree.
type Store struct {
	root      string
	chunks    codec.Codec[*dataset.Variable]
	manifests codec.CBOR[*manifest]
	log       weathermart.Logger
	locks     keylock.Locker
	hot       *rc.Cache
}

var _ weathermart.Store = (*Store)(nil)

// New validates the root eagerly and builds the store.
func New(cfg Config) (*Store, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("cachestore: root is required")
	}
	fi, err := os.Stat(cfg.Root)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, cfg.Root)
	}
	if err != nil {
		return nil, fmt.Errorf("cachestore: stat root: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotDir, cfg.Root)
	}

	s := &Store{
		root:      cfg.Root,
		chunks:    cfg.Chunks,
		manifests: codec.MustCBOR[*manifest](true),
		log:       cfg.Logger,
		locks:     cfg.Locker,
	}
	if s.chunks == nil {
		s.chunks = codec.MustCBOR[*dataset.Variable](true)
	}
	if s.log == nil {
		s.log = weathermart.NopLogger{}
	}
	if s.locks == nil {
		s.locks = keylock.NewLocal()
	}
	if cfg.HotBytes > 0 {
		hot, err := rc.NewCache(&rc.Config{
			NumCounters: cfg.HotBytes / 100, // ~10x expected entries at ~1KB each
			MaxCost:     cfg.HotBytes,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("cachestore: hot layer: %w", err)
		}
		s.hot = hot
	}
	return s, nil
}

func (s *Store) entryDir(key weathermart.Key) string {
	return filepath.Join(s.root, strings.ToLower(key.Source), key.EntryName())
}

// Lookup opens the entry and loads the requested variables (all when none are
// named). Requested variables missing from the entry are simply absent from
// the result.
func (s *Store) Lookup(ctx context.Context, key weathermart.Key, vars ...string) (*dataset.Dataset, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	dir := s.entryDir(key)
	m, err := s.readManifest(dir, false)
	if err != nil {
		lookupsTotal.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("cachestore: %s: %w", key, err)
	}
	if m == nil {
		lookupsTotal.WithLabelValues("miss").Inc()
		return nil, false, nil
	}

	wanted := vars
	if len(wanted) == 0 {
		wanted = make([]string, 0, len(m.Vars))
		for name := range m.Vars {
			wanted = append(wanted, name)
		}
	}

	ds := dataset.New()
	for name, c := range m.Coords {
		ds.SetCoord(name, c)
	}
	for k, v := range m.Attrs {
		ds.Attrs[k] = v
	}
	for _, name := range wanted {
		meta, ok := m.Vars[name]
		if !ok {
			continue
		}
		v, err := s.readChunk(filepath.Join(dir, meta.Chunk))
		if err != nil {
			lookupsTotal.WithLabelValues("error").Inc()
			return nil, false, fmt.Errorf("cachestore: %s: variable %q: %w", key, name, err)
		}
		if err := ds.AddVariable(name, v); err != nil {
			lookupsTotal.WithLabelValues("error").Inc()
			return nil, false, fmt.Errorf("cachestore: %s: %w", key, err)
		}
	}

	lookupsTotal.WithLabelValues("hit").Inc()
	s.log.Debug("cache entry loaded", weathermart.Fields{
		"key": key.String(), "vars": len(ds.Vars),
	})
	return ds, true, nil
}

// Write appends the variables of ds that the entry does not have yet. The
// incoming time axis must be strictly increasing and shared coordinates must
// match the entry exactly; either violation fails before any file is touched.
func (s *Store) Write(ctx context.Context, key weathermart.Key, ds *dataset.Dataset) error {
	if err := ds.CheckMonotonic(); err != nil {
		writesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("cachestore: %s: %w", key, err)
	}

	release, err := s.locks.Acquire(ctx, key.String())
	if err != nil {
		return fmt.Errorf("cachestore: %s: lock: %w", key, err)
	}
	defer release()

	dir := s.entryDir(key)
	// Read the manifest from disk, never the hot layer: unlocked readers can
	// cache pre-write bytes, and merge decisions must see the real entry.
	m, err := s.readManifest(dir, true)
	if err != nil {
		writesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("cachestore: %s: %w", key, err)
	}
	if m == nil {
		m = newManifest()
	}

	for name, c := range ds.Coords {
		if mc, ok := m.Coords[name]; ok && !mc.Equal(c) {
			writesTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("cachestore: %s: coordinate %q differs from cached entry", key, name)
		}
	}

	var added []string
	for _, name := range ds.VarNames() {
		if _, ok := m.Vars[name]; !ok {
			added = append(added, name)
		}
	}
	if len(added) == 0 {
		// A racing reader may have cached pre-write manifest bytes after the
		// last invalidation; dropping the entry here lets the next lookup
		// re-read the complete manifest from disk.
		s.invalidate(filepath.Join(dir, manifestFile))
		writesTotal.WithLabelValues("noop").Inc()
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		writesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("cachestore: %s: %w", key, err)
	}

	for _, name := range added {
		v := ds.Vars[name]
		payload, err := s.chunks.Encode(v)
		if err != nil {
			writesTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("cachestore: %s: encode %q: %w", key, name, err)
		}
		framed := wire.Encode(wire.KindChunk, payload)
		file := chunkName(name)
		if err := writeFileAtomic(filepath.Join(dir, file), framed); err != nil {
			writesTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("cachestore: %s: write %q: %w", key, name, err)
		}
		chunkBytesWritten.Add(float64(len(framed)))
		m.Vars[name] = varMeta{
			Dims:  v.Dims,
			Shape: v.Shape,
			Chunk: file,
			Attrs: v.Attrs,
		}
		s.invalidate(filepath.Join(dir, file))
	}
	for name, c := range ds.Coords {
		if _, ok := m.Coords[name]; !ok {
			m.Coords[name] = c
		}
	}
	for k, v := range ds.Attrs {
		if _, ok := m.Attrs[k]; !ok {
			m.Attrs[k] = v
		}
	}

	payload, err := s.manifests.Encode(m)
	if err != nil {
		writesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("cachestore: %s: encode manifest: %w", key, err)
	}
	if err := writeFileAtomic(filepath.Join(dir, manifestFile), wire.Encode(wire.KindManifest, payload)); err != nil {
		writesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("cachestore: %s: write manifest: %w", key, err)
	}
	s.invalidate(filepath.Join(dir, manifestFile))

	writesTotal.WithLabelValues("ok").Inc()
	s.log.Info("cache entry written", weathermart.Fields{
		"key": key.String(), "added": added,
	})
	return nil
}

// Close releases the hot layer. On-disk state needs no shutdown.
func (s *Store) Close(context.Context) error {
	if s.hot != nil {
		s.hot.Wait()
		s.hot.Close()
	}
	return nil
}

// readManifest returns nil, nil when the entry does not exist. bypassHot
// forces a disk read for callers that must not trust the hot layer.
func (s *Store) readManifest(dir string, bypassHot bool) (*manifest, error) {
	b, ok, err := s.readFile(filepath.Join(dir, manifestFile), bypassHot)
	if err != nil || !ok {
		return nil, err
	}
	payload, err := wire.Decode(wire.KindManifest, b)
	if err != nil {
		return nil, err
	}
	return s.manifests.Decode(payload)
}

func (s *Store) readChunk(path string) (*dataset.Variable, error) {
	b, ok, err := s.readFile(path, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("chunk file missing: %s", filepath.Base(path))
	}
	payload, err := wire.Decode(wire.KindChunk, b)
	if err != nil {
		return nil, err
	}
	return s.chunks.Decode(payload)
}

// readFile reads through the hot layer. ok=false means the file is absent.
func (s *Store) readFile(path string, bypassHot bool) ([]byte, bool, error) {
	if s.hot != nil && !bypassHot {
		if v, ok := s.hot.Get(path); ok {
			if b, ok := v.([]byte); ok {
				hotLayerTotal.WithLabelValues("hit").Inc()
				return b, true, nil
			}
			s.hot.Del(path)
		}
		hotLayerTotal.WithLabelValues("miss").Inc()
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if s.hot != nil && !bypassHot {
		s.hot.Set(path, b, int64(len(b)))
	}
	return b, true, nil
}

func (s *Store) invalidate(path string) {
	if s.hot != nil {
		s.hot.Del(path)
	}
}

// writeFileAtomic writes to a temp file in the same directory and renames it
// into place, so readers never observe a partially written file.
func writeFileAtomic(path string, b []byte) error {
	dir, base := filepath.Split(path)
	f, err := os.CreateTemp(dir, base+".tmp*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
