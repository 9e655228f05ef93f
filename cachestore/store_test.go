package cachestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MeteoSwiss/weathermart"
	"github.com/MeteoSwiss/weathermart/dataset"
)

func day(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2023, 4, 12, 0, 0, 0, 0, time.UTC)
}

func testTimes(start time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return out
}

// sampleDataset builds a dataset with the given variables over a 3-point time
// axis and two stations. val seeds the values so variables are telling apart.
func sampleDataset(t *testing.T, start time.Time, val float64, names ...string) *dataset.Dataset {
	t.Helper()
	ds := dataset.New()
	ds.SetCoord(dataset.DimTime, &dataset.Coord{Times: testTimes(start, 3)})
	ds.SetCoord(dataset.DimStation, &dataset.Coord{Labels: []string{"ZRH", "GVA"}})
	for _, name := range names {
		v := &dataset.Variable{
			Dims:   []string{dataset.DimTime, dataset.DimStation},
			Shape:  []int{3, 2},
			Values: make([]float64, 6),
		}
		for i := range v.Values {
			v.Values[i] = val + float64(i)
		}
		if err := ds.AddVariable(name, v); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	return ds
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestRootChecks(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("want error for empty root")
	}

	_, err := New(Config{Root: filepath.Join(t.TempDir(), "nope")})
	if !errors.Is(err, ErrRootNotFound) {
		t.Fatalf("want ErrRootNotFound, got %v", err)
	}

	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = New(Config{Root: f})
	if !errors.Is(err, ErrRootNotDir) {
		t.Fatalf("want ErrRootNotDir, got %v", err)
	}
}

func TestLookupMissingEntry(t *testing.T) {
	s := newTestStore(t)
	key := weathermart.NewKey("FAKE", day(t), "")

	ds, found, err := s.Lookup(context.Background(), key)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found || ds != nil {
		t.Fatalf("want miss, got found=%v ds=%v", found, ds)
	}
}

func TestWriteLookupRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := weathermart.NewKey("FAKE", day(t), "")
	in := sampleDataset(t, day(t), 10, "TOT_PREC", "T_2M")

	if err := s.Write(ctx, key, in); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, found, err := s.Lookup(ctx, key)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !found {
		t.Fatal("want hit")
	}
	for _, name := range []string{"TOT_PREC", "T_2M"} {
		got, ok := out.Vars[name]
		if !ok {
			t.Fatalf("variable %s missing", name)
		}
		want := in.Vars[name]
		if len(got.Values) != len(want.Values) {
			t.Fatalf("%s: %d values, want %d", name, len(got.Values), len(want.Values))
		}
		for i := range want.Values {
			if got.Values[i] != want.Values[i] {
				t.Fatalf("%s values[%d] = %v, want %v", name, i, got.Values[i], want.Values[i])
			}
		}
	}
	tc, ok := out.Coords[dataset.DimTime]
	if !ok || tc.Len() != 3 {
		t.Fatalf("time coordinate not restored: %+v", tc)
	}
	if !tc.Times[0].Equal(day(t)) {
		t.Fatalf("time[0] = %s", tc.Times[0])
	}
}

func TestPartialLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := weathermart.NewKey("FAKE", day(t), "")
	if err := s.Write(ctx, key, sampleDataset(t, day(t), 1, "TOT_PREC", "T_2M")); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, found, err := s.Lookup(ctx, key, "T_2M", "GLOB")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !found {
		t.Fatal("want hit")
	}
	if !out.Has("T_2M") {
		t.Fatal("T_2M missing")
	}
	if out.Has("TOT_PREC") {
		t.Fatal("TOT_PREC loaded although not requested")
	}
	if out.Has("GLOB") {
		t.Fatal("GLOB should be absent, it was never cached")
	}
}

func TestAppendNeverOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := weathermart.NewKey("FAKE", day(t), "")

	if err := s.Write(ctx, key, sampleDataset(t, day(t), 10, "TOT_PREC")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	// Second write carries TOT_PREC with different values plus a new variable.
	second := sampleDataset(t, day(t), 99, "TOT_PREC", "T_2M")
	if err := s.Write(ctx, key, second); err != nil {
		t.Fatalf("second write: %v", err)
	}

	out, _, err := s.Lookup(ctx, key)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got := out.Vars["TOT_PREC"].Values[0]; got != 10 {
		t.Fatalf("TOT_PREC was overwritten: values[0] = %v, want 10", got)
	}
	if got := out.Vars["T_2M"].Values[0]; got != 99 {
		t.Fatalf("T_2M values[0] = %v, want 99", got)
	}
}

func TestMonotonicGuard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := weathermart.NewKey("FAKE", day(t), "")

	ds := sampleDataset(t, day(t), 1, "TOT_PREC")
	tc := ds.Coords[dataset.DimTime]
	tc.Times[0], tc.Times[2] = tc.Times[2], tc.Times[0]

	err := s.Write(ctx, key, ds)
	if !errors.Is(err, dataset.ErrNonMonotonic) {
		t.Fatalf("want ErrNonMonotonic, got %v", err)
	}

	if _, found, err := s.Lookup(ctx, key); err != nil || found {
		t.Fatalf("entry must not exist after rejected write (found=%v err=%v)", found, err)
	}
}

func TestCoordMismatchRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := weathermart.NewKey("FAKE", day(t), "")
	if err := s.Write(ctx, key, sampleDataset(t, day(t), 1, "TOT_PREC")); err != nil {
		t.Fatalf("write: %v", err)
	}

	other := sampleDataset(t, day(t), 1, "T_2M")
	other.Coords[dataset.DimStation] = &dataset.Coord{Labels: []string{"BAS", "BER"}}
	if err := s.Write(ctx, key, other); err == nil {
		t.Fatal("want error for mismatched station coordinate")
	}
}

func TestEntryLayout(t *testing.T) {
	root := t.TempDir()
	s, err := New(Config{Root: root})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close(context.Background())

	key := weathermart.NewKey("FAKE", day(t), "level500_step3")
	if err := s.Write(context.Background(), key, sampleDataset(t, day(t), 1, "TOT_PREC")); err != nil {
		t.Fatalf("write: %v", err)
	}

	dir := filepath.Join(root, "fake", "20230412level500_step3")
	if _, err := os.Stat(filepath.Join(dir, manifestFile)); err != nil {
		t.Fatalf("manifest not at expected path: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "TOT_PREC.chunk")); err != nil {
		t.Fatalf("chunk not at expected path: %v", err)
	}
}

func TestNoopWriteDropsStaleHotManifest(t *testing.T) {
	s, err := New(Config{Root: t.TempDir(), HotBytes: 1 << 20})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close(context.Background())

	ctx := context.Background()
	key := weathermart.NewKey("FAKE", day(t), "")
	if err := s.Write(ctx, key, sampleDataset(t, day(t), 1, "TOT_PREC")); err != nil {
		t.Fatalf("first write: %v", err)
	}

	manifestPath := filepath.Join(s.entryDir(key), manifestFile)
	stale, err := os.ReadFile(manifestPath) // manifest listing only TOT_PREC
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}

	second := sampleDataset(t, day(t), 2, "T_2M")
	if err := s.Write(ctx, key, second); err != nil {
		t.Fatalf("second write: %v", err)
	}
	// A reader that loaded the old manifest before the second write can cache
	// it after the write's invalidation.
	s.hot.Set(manifestPath, stale, int64(len(stale)))
	s.hot.Wait()

	// Re-writing the already-present variable is a no-op on disk but must
	// drop the hot manifest so lookups stop missing T_2M.
	if err := s.Write(ctx, key, second); err != nil {
		t.Fatalf("noop write: %v", err)
	}
	out, found, err := s.Lookup(ctx, key)
	if err != nil || !found {
		t.Fatalf("lookup: found=%v err=%v", found, err)
	}
	if !out.Has("T_2M") {
		t.Fatal("lookup served the stale manifest after a noop write")
	}
}

func TestHotLayer(t *testing.T) {
	s, err := New(Config{Root: t.TempDir(), HotBytes: 1 << 20})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close(context.Background())

	ctx := context.Background()
	key := weathermart.NewKey("FAKE", day(t), "")
	if err := s.Write(ctx, key, sampleDataset(t, day(t), 7, "TOT_PREC")); err != nil {
		t.Fatalf("write: %v", err)
	}
	for i := 0; i < 3; i++ {
		out, found, err := s.Lookup(ctx, key)
		if err != nil || !found {
			t.Fatalf("lookup %d: found=%v err=%v", i, found, err)
		}
		if out.Vars["TOT_PREC"].Values[0] != 7 {
			t.Fatalf("lookup %d returned wrong values", i)
		}
	}
}
