// Package dataset implements the labeled multi-dimensional array collection
// exchanged between retrievers, the cache store and the data provider.
//
// A Dataset holds named variables over shared named dimensions. Every
// variable is indexed by a time-like dimension first ("time" for
// observations, "forecast_reference_time" for forecast ensembles) followed by
// spatial dimensions (1-D station/cell index or a flattened 2-D grid).
// Values are stored row-major, so concatenating along the leading time-like
// dimension is a plain append of the value blocks.
package dataset

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Time-like and common spatial dimension names.
const (
	DimTime                  = "time"
	DimForecastReferenceTime = "forecast_reference_time"
	DimLeadTime              = "lead_time"
	DimRealization           = "realization"
	DimStation               = "station"
)

// timeDims are the dimensions treated as the time axis, in lookup order.
var timeDims = []string{DimTime, DimForecastReferenceTime}

// ErrNonMonotonic is returned when a time-like coordinate is not strictly
// increasing. Callers wrap it with the offending cache key; it is never
// auto-corrected because a disordered time axis indicates an upstream bug.
var ErrNonMonotonic = errors.New("dataset: time axis is not strictly increasing")

// ErrNoTimeDim is returned when a dataset carries no time-like coordinate.
var ErrNoTimeDim = errors.New("dataset: no time-like coordinate")

// Attrs carries provenance metadata (units, source, decoding metadata).
type Attrs map[string]string

// Coord is one labeled axis. Exactly one of the value slices is set.
type Coord struct {
	Times  []time.Time `json:"times,omitempty" cbor:"1,keyasint,omitempty" msgpack:"t,omitempty"`
	Labels []string    `json:"labels,omitempty" cbor:"2,keyasint,omitempty" msgpack:"l,omitempty"`
	Values []float64   `json:"values,omitempty" cbor:"3,keyasint,omitempty" msgpack:"v,omitempty"`
}

// Len returns the number of points on the axis.
func (c *Coord) Len() int {
	switch {
	case len(c.Times) > 0:
		return len(c.Times)
	case len(c.Labels) > 0:
		return len(c.Labels)
	default:
		return len(c.Values)
	}
}

func (c *Coord) clone() *Coord {
	out := &Coord{}
	if c.Times != nil {
		out.Times = append([]time.Time(nil), c.Times...)
	}
	if c.Labels != nil {
		out.Labels = append([]string(nil), c.Labels...)
	}
	if c.Values != nil {
		out.Values = append([]float64(nil), c.Values...)
	}
	return out
}

// Equal reports whether two axes carry identical points of the same kind.
// A time axis never equals a label or numeric axis, regardless of length.
func (c *Coord) Equal(o *Coord) bool {
	if len(c.Times) != len(o.Times) || len(c.Labels) != len(o.Labels) || len(c.Values) != len(o.Values) {
		return false
	}
	for i := range c.Times {
		if !c.Times[i].Equal(o.Times[i]) {
			return false
		}
	}
	for i := range c.Labels {
		if c.Labels[i] != o.Labels[i] {
			return false
		}
	}
	for i := range c.Values {
		if c.Values[i] != o.Values[i] {
			return false
		}
	}
	return true
}

// Variable is one named array over the dataset's dimensions.
type Variable struct {
	Dims   []string  `json:"dims" cbor:"1,keyasint" msgpack:"d"`
	Shape  []int     `json:"shape" cbor:"2,keyasint" msgpack:"s"`
	Values []float64 `json:"values" cbor:"3,keyasint" msgpack:"v"`
	Attrs  Attrs     `json:"attrs,omitempty" cbor:"4,keyasint,omitempty" msgpack:"a,omitempty"`
}

// Size returns the expected number of values given Shape.
func (v *Variable) Size() int {
	if len(v.Shape) == 0 {
		return 0
	}
	n := 1
	for _, s := range v.Shape {
		n *= s
	}
	return n
}

func (v *Variable) clone() *Variable {
	out := &Variable{
		Dims:   append([]string(nil), v.Dims...),
		Shape:  append([]int(nil), v.Shape...),
		Values: append([]float64(nil), v.Values...),
	}
	if v.Attrs != nil {
		out.Attrs = make(Attrs, len(v.Attrs))
		for k, val := range v.Attrs {
			out.Attrs[k] = val
		}
	}
	return out
}

// Dataset is a collection of variables over shared coordinates.
type Dataset struct {
	Vars   map[string]*Variable `json:"vars" cbor:"1,keyasint" msgpack:"vars"`
	Coords map[string]*Coord    `json:"coords" cbor:"2,keyasint" msgpack:"coords"`
	Attrs  Attrs                `json:"attrs,omitempty" cbor:"3,keyasint,omitempty" msgpack:"attrs,omitempty"`
}

// New returns an empty dataset.
func New() *Dataset {
	return &Dataset{
		Vars:   make(map[string]*Variable),
		Coords: make(map[string]*Coord),
		Attrs:  make(Attrs),
	}
}

// SetCoord registers a coordinate axis.
func (d *Dataset) SetCoord(name string, c *Coord) { d.Coords[name] = c }

// AddVariable adds a named variable after consistency checks: the value count
// must match the shape, and every dimension with a registered coordinate must
// match that coordinate's length.
func (d *Dataset) AddVariable(name string, v *Variable) error {
	if len(v.Dims) != len(v.Shape) {
		return fmt.Errorf("dataset: variable %q: %d dims but %d shape entries", name, len(v.Dims), len(v.Shape))
	}
	if got, want := len(v.Values), v.Size(); got != want {
		return fmt.Errorf("dataset: variable %q: %d values, shape wants %d", name, got, want)
	}
	for i, dim := range v.Dims {
		if c, ok := d.Coords[dim]; ok && c.Len() != v.Shape[i] {
			return fmt.Errorf("dataset: variable %q: dim %q has length %d, coordinate has %d",
				name, dim, v.Shape[i], c.Len())
		}
	}
	d.Vars[name] = v
	return nil
}

// Has reports whether the dataset contains a variable by that name.
func (d *Dataset) Has(name string) bool {
	_, ok := d.Vars[name]
	return ok
}

// VarNames returns the variable names in sorted order.
func (d *Dataset) VarNames() []string {
	out := make([]string, 0, len(d.Vars))
	for name := range d.Vars {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Empty reports whether the dataset has no variables.
func (d *Dataset) Empty() bool { return len(d.Vars) == 0 }

// TimeDim returns the name and coordinate of the time-like dimension.
func (d *Dataset) TimeDim() (string, *Coord, bool) {
	for _, dim := range timeDims {
		if c, ok := d.Coords[dim]; ok {
			return dim, c, true
		}
	}
	return "", nil, false
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	out := New()
	for name, v := range d.Vars {
		out.Vars[name] = v.clone()
	}
	for name, c := range d.Coords {
		out.Coords[name] = c.clone()
	}
	for k, v := range d.Attrs {
		out.Attrs[k] = v
	}
	return out
}
