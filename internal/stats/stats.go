// Package stats aggregates masked field statistics for the diagnostic
// output. Masks restrict the aggregation to the fluid region as decided by
// the immersed boundary engine.
package stats

import (
	"gonum.org/v1/gonum/floats"
)

// Mask selects the grid cells that take part in an aggregation. A true
// flag means the cell is included.
type Mask struct {
	Name  string
	Flags []bool
}

type Aggregate struct {
	Count int
	Mean  float64
	Min   float64
	Max   float64
}

// Masked reduces data over the cells selected by flags. A fully masked-out
// field yields a zero Aggregate.
func Masked(data []float64, flags []bool) Aggregate {
	sel := make([]float64, 0, len(data))
	for i, v := range data {
		if flags[i] {
			sel = append(sel, v)
		}
	}
	if len(sel) == 0 {
		return Aggregate{}
	}
	return Aggregate{
		Count: len(sel),
		Mean:  floats.Sum(sel) / float64(len(sel)),
		Min:   floats.Min(sel),
		Max:   floats.Max(sel),
	}
}

// Stats stores aggregates per mask and field name.
type Stats struct {
	results map[string]map[string]Aggregate
}

func New() *Stats {
	return &Stats{results: make(map[string]map[string]Aggregate)}
}

func (s *Stats) Record(mask, fieldName string, a Aggregate) {
	m, ok := s.results[mask]
	if !ok {
		m = make(map[string]Aggregate)
		s.results[mask] = m
	}
	m[fieldName] = a
}

func (s *Stats) Get(mask, fieldName string) (Aggregate, bool) {
	m, ok := s.results[mask]
	if !ok {
		return Aggregate{}, false
	}
	a, ok := m[fieldName]
	return a, ok
}
