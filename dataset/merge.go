package dataset

import (
	"fmt"
)

// CheckMonotonic verifies the time-like coordinate is strictly increasing.
// Datasets without a time-like coordinate fail with ErrNoTimeDim; the cache
// layer refuses to persist either case.
func (d *Dataset) CheckMonotonic() error {
	_, c, ok := d.TimeDim()
	if !ok {
		return ErrNoTimeDim
	}
	for i := 1; i < len(c.Times); i++ {
		if !c.Times[i].After(c.Times[i-1]) {
			return fmt.Errorf("%w (index %d: %s !> %s)",
				ErrNonMonotonic, i, c.Times[i].UTC(), c.Times[i-1].UTC())
		}
	}
	return nil
}

// Merge copies variables from other that this dataset does not already have,
// together with any coordinates they need. Variables already present are left
// untouched, never overwritten. Coordinates present on both sides must agree.
// Returns the names of the variables that were added.
func (d *Dataset) Merge(other *Dataset) ([]string, error) {
	var added []string
	for _, name := range other.VarNames() {
		if d.Has(name) {
			continue
		}
		v := other.Vars[name]
		for _, dim := range v.Dims {
			oc, ok := other.Coords[dim]
			if !ok {
				continue
			}
			if dc, ok := d.Coords[dim]; ok {
				if !dc.Equal(oc) {
					return nil, fmt.Errorf("dataset: merge: coordinate %q differs between datasets", dim)
				}
				continue
			}
			d.Coords[dim] = oc.clone()
		}
		d.Vars[name] = v.clone()
		added = append(added, name)
	}
	for k, val := range other.Attrs {
		if _, ok := d.Attrs[k]; !ok {
			d.Attrs[k] = val
		}
	}
	return added, nil
}

// Select returns a new dataset holding exactly the named variables and the
// coordinates they reference. A missing variable is an error.
func (d *Dataset) Select(names ...string) (*Dataset, error) {
	out := New()
	for _, name := range names {
		v, ok := d.Vars[name]
		if !ok {
			return nil, fmt.Errorf("dataset: variable %q not present (have %v)", name, d.VarNames())
		}
		out.Vars[name] = v.clone()
		for _, dim := range v.Dims {
			if c, ok := d.Coords[dim]; ok {
				out.Coords[dim] = c.clone()
			}
		}
	}
	for k, val := range d.Attrs {
		out.Attrs[k] = val
	}
	return out, nil
}

// ConcatTime concatenates datasets along their shared time-like dimension.
// All parts must carry the same variables, the same non-time coordinates and
// the time-like dimension as leading dimension of every variable. Parts are
// expected in ascending time order; the result is monotonicity-checked.
func ConcatTime(parts ...*Dataset) (*Dataset, error) {
	if len(parts) == 0 {
		return New(), nil
	}
	out := parts[0].Clone()
	timeDim, _, ok := out.TimeDim()
	if !ok {
		return nil, ErrNoTimeDim
	}
	for _, part := range parts[1:] {
		dim, pc, ok := part.TimeDim()
		if !ok {
			return nil, ErrNoTimeDim
		}
		if dim != timeDim {
			return nil, fmt.Errorf("dataset: concat: mixed time dimensions %q and %q", timeDim, dim)
		}
		for _, name := range out.VarNames() {
			v := out.Vars[name]
			pv, ok := part.Vars[name]
			if !ok {
				return nil, fmt.Errorf("dataset: concat: variable %q missing from one part", name)
			}
			if len(v.Dims) == 0 || v.Dims[0] != timeDim {
				return nil, fmt.Errorf("dataset: concat: variable %q is not indexed by %q first", name, timeDim)
			}
			if err := sameTrailingShape(v, pv); err != nil {
				return nil, fmt.Errorf("dataset: concat: variable %q: %w", name, err)
			}
			v.Values = append(v.Values, pv.Values...)
			v.Shape[0] += pv.Shape[0]
		}
		for name, pc2 := range part.Coords {
			if name == timeDim {
				continue
			}
			if oc, ok := out.Coords[name]; ok && !oc.Equal(pc2) {
				return nil, fmt.Errorf("dataset: concat: coordinate %q differs between parts", name)
			}
		}
		tc := out.Coords[timeDim]
		tc.Times = append(tc.Times, pc.Times...)
	}
	if err := out.CheckMonotonic(); err != nil {
		return nil, err
	}
	return out, nil
}

func sameTrailingShape(a, b *Variable) error {
	if len(a.Shape) != len(b.Shape) {
		return fmt.Errorf("rank mismatch %d vs %d", len(a.Shape), len(b.Shape))
	}
	for i := 1; i < len(a.Shape); i++ {
		if a.Shape[i] != b.Shape[i] {
			return fmt.Errorf("shape mismatch on %q: %d vs %d", a.Dims[i], a.Shape[i], b.Shape[i])
		}
	}
	return nil
}
