// Package field is the prognostic-field container: per-field value and
// tendency arrays sized to the local grid, with a deterministic iteration
// order over the prognostic set.
package field

import (
	"fmt"

	"github.com/mbroek/ibflow/internal/grid"
)

type Field struct {
	Name string
	Data []float64 // field values
	Tend []float64 // accumulated tendencies
}

type Fields struct {
	grid  *grid.Grid
	order []string
	byNam map[string]*Field
}

// New allocates the standard prognostic set: the three velocity components
// and one scalar.
func New(g *grid.Grid) *Fields {
	f := &Fields{
		grid:  g,
		byNam: make(map[string]*Field),
	}
	for _, name := range []string{"u", "v", "w", "s"} {
		f.add(name)
	}
	return f
}

func (f *Fields) add(name string) {
	f.order = append(f.order, name)
	f.byNam[name] = &Field{
		Name: name,
		Data: make([]float64, f.grid.Ncells),
		Tend: make([]float64, f.grid.Ncells),
	}
}

// Get returns the named prognostic field.
func (f *Fields) Get(name string) (*Field, error) {
	fld, ok := f.byNam[name]
	if !ok {
		return nil, fmt.Errorf("field: no prognostic field %q", name)
	}
	return fld, nil
}

// Names returns the prognostic field names in their fixed iteration order.
func (f *Fields) Names() []string {
	return f.order
}

// Each calls fn for every prognostic field in the fixed order. Consumers
// rely on this order for reproducible integration and statistics.
func (f *Fields) Each(fn func(*Field)) {
	for _, name := range f.order {
		fn(f.byNam[name])
	}
}
