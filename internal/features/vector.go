package features

import (
	"fmt"
	"math"
)

// Vector is an ordered mapping from feature name to value
type Vector struct {
	Names  []string  `json:"names"`
	Values []float64 `json:"values"`
}

// NewVector pairs names with values; both slices must have the same length
func NewVector(names []string, values []float64) (Vector, error) {
	if len(names) != len(values) {
		return Vector{}, fmt.Errorf("feature vector has %d names but %d values", len(names), len(values))
	}

	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			return Vector{}, fmt.Errorf("duplicate feature name %q", n)
		}
		seen[n] = struct{}{}
	}

	return Vector{
		Names:  append([]string(nil), names...),
		Values: append([]float64(nil), values...),
	}, nil
}

// Len returns the number of features
func (v Vector) Len() int {
	return len(v.Names)
}

// Get returns the value stored under name
func (v Vector) Get(name string) (float64, bool) {
	for i, n := range v.Names {
		if n == name {
			return v.Values[i], true
		}
	}
	return 0, false
}

// Drop returns a copy of the vector without the named features
func (v Vector) Drop(names ...string) Vector {
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[n] = struct{}{}
	}

	out := Vector{
		Names:  make([]string, 0, len(v.Names)),
		Values: make([]float64, 0, len(v.Values)),
	}
	for i, n := range v.Names {
		if _, ok := skip[n]; ok {
			continue
		}
		out.Names = append(out.Names, n)
		out.Values = append(out.Values, v.Values[i])
	}
	return out
}

// Align lays the vector out in the given order. Names the vector does not carry
// are filled with 0 so that artifacts trained on a wider schema still line up.
func (v Vector) Align(names []string) Vector {
	index := make(map[string]int, len(v.Names))
	for i, n := range v.Names {
		index[n] = i
	}

	out := Vector{
		Names:  append([]string(nil), names...),
		Values: make([]float64, len(names)),
	}
	for i, n := range names {
		if j, ok := index[n]; ok {
			out.Values[i] = v.Values[j]
		}
	}
	return out
}

// Select lays the vector out in the given order and fails on any missing name
func (v Vector) Select(names []string) ([]float64, error) {
	index := make(map[string]int, len(v.Names))
	for i, n := range v.Names {
		index[n] = i
	}

	out := make([]float64, len(names))
	for i, n := range names {
		j, ok := index[n]
		if !ok {
			return nil, fmt.Errorf("feature %q missing from vector", n)
		}
		out[i] = v.Values[j]
	}
	return out, nil
}

// Map returns the vector as a name -> value map
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, len(v.Names))
	for i, n := range v.Names {
		m[n] = v.Values[i]
	}
	return m
}

// Validate checks that every feature is finite
func (v Vector) Validate() error {
	if len(v.Names) != len(v.Values) {
		return fmt.Errorf("feature vector has %d names but %d values", len(v.Names), len(v.Values))
	}
	for i, x := range v.Values {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("feature %q is not finite (%v)", v.Names[i], x)
		}
	}
	return nil
}
