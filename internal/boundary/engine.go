package boundary

import (
	"errors"
	"fmt"

	"github.com/mbroek/ibflow/internal/config"
	"github.com/mbroek/ibflow/internal/field"
	"github.com/mbroek/ibflow/internal/grid"
	"github.com/mbroek/ibflow/internal/master"
	"github.com/mbroek/ibflow/internal/stats"
	"gonum.org/v1/gonum/mat"
)

var errNotBuilt = errors.New("boundary: engine used before Create")

// Engine orchestrates the immersed boundary: ghost cell location and
// stencil construction at Create, value and tendency forcing per substep.
type Engine struct {
	grid   *grid.Grid
	fields *field.Fields
	master master.Master
	cfg    config.BoundaryConfig

	shape Shape

	// Ghost cell collections keyed by prognostic field name.
	ghostCells map[string][]GhostCell
	built      bool
}

// NewEngine validates the boundary configuration and resolves the shape.
// Illegal shape/parameter combinations fail here, before any stepping.
func NewEngine(cfg config.BoundaryConfig, g *grid.Grid, f *field.Fields, m master.Master, user HeightFunc) (*Engine, error) {
	shape, err := NewShape(cfg, user)
	if err != nil {
		return nil, err
	}
	return &Engine{
		grid:       g,
		fields:     f,
		master:     m,
		cfg:        cfg,
		shape:      shape,
		ghostCells: make(map[string][]GhostCell),
	}, nil
}

// Shape exposes the resolved boundary shape for diagnostics.
func (e *Engine) Shape() Shape { return e.shape }

// Create runs the ghost cell locator and the stencil builder once per
// prognostic field. It is the expensive one-time step; any cell without a
// usable stencil aborts with a GeometryError.
func (e *Engine) Create() error {
	twoDim := e.cfg.XYDims == 2

	for _, name := range e.fields.Names() {
		st := StaggerFor(name)
		x, y, z := st.coords(e.grid)

		cells := findGhostCells(e.grid, e.shape, st)
		for n := range cells {
			gc := &cells[n]
			gc.XB, gc.YB, gc.ZB, _ = nearestWall(e.shape,
				x[gc.I], y[gc.J], z[gc.K], e.grid.DX, e.grid.DY, twoDim)

			if err := findInterpolationPoints(gc, e.grid, e.shape, st, e.cfg.Neighbours); err != nil {
				return fmt.Errorf("field %s: %w", name, err)
			}
			if err := defineDistanceMatrix(gc, e.grid, st, e.cfg.CondMax); err != nil {
				return fmt.Errorf("field %s: %w", name, err)
			}
		}
		e.ghostCells[name] = cells
		e.master.Log().Info("immersed boundary ghost cells located",
			"field", name, "count", len(cells))
	}

	e.built = true
	return nil
}

// bcValue is the Dirichlet value enforced at the boundary surface:
// no slip for the velocity components, the configured value for scalars.
func (e *Engine) bcValue(name string) float64 {
	switch name {
	case "u", "v", "w":
		return 0
	default:
		return e.cfg.ScalarBC
	}
}

// Exec reconstructs the boundary-consistent value at every ghost cell and
// overwrites the field array in place: the stencil coefficients are
// evaluated at the image point (the ghost mirrored through the boundary
// point) and reflected through the Dirichlet value.
func (e *Engine) Exec() error {
	if !e.built {
		return errNotBuilt
	}

	samples := mat.NewVecDense(e.cfg.Neighbours+1, nil)
	var coef mat.VecDense

	for _, name := range e.fields.Names() {
		fld, err := e.fields.Get(name)
		if err != nil {
			return err
		}
		st := StaggerFor(name)
		x, y, z := st.coords(e.grid)
		bc := e.bcValue(name)

		for n := range e.ghostCells[name] {
			gc := &e.ghostCells[name][n]

			samples.SetVec(0, bc)
			for m, nb := range gc.Neighbours {
				samples.SetVec(m+1, fld.Data[e.grid.IJK(nb.I, nb.J, nb.K)])
			}
			coef.MulVec(gc.B, samples)

			// Image point offset from the boundary point.
			dx := gc.XB - x[gc.I]
			dy := gc.YB - y[gc.J]
			dz := gc.ZB - z[gc.K]
			image := evalBasis(&coef, dx, dy, dz)

			fld.Data[e.grid.IJK(gc.I, gc.J, gc.K)] = 2*bc - image
		}
	}
	return nil
}

// ExecTend zeroes the tendencies at ghost cells so the integrator cannot
// advance solid-interior values away from the enforced state.
func (e *Engine) ExecTend() error {
	if !e.built {
		return errNotBuilt
	}

	for _, name := range e.fields.Names() {
		fld, err := e.fields.Get(name)
		if err != nil {
			return err
		}
		for _, gc := range e.ghostCells[name] {
			fld.Tend[e.grid.IJK(gc.I, gc.J, gc.K)] = 0
		}
	}
	return nil
}

// FluidMask returns the mask of interior fluid cells at scalar locations,
// for statistics restricted to the fluid region.
func (e *Engine) FluidMask(name string) *stats.Mask {
	g := e.grid
	mask := &stats.Mask{Name: name, Flags: make([]bool, g.Ncells)}

	for k := g.Kstart; k < g.Kend; k++ {
		for j := g.Jstart; j < g.Jend; j++ {
			for i := g.Istart; i < g.Iend; i++ {
				mask.Flags[g.IJK(i, j, k)] = !insideSolid(e.shape, g.X[i], g.Y[j], g.Z[k])
			}
		}
	}
	return mask
}

// ExecStats records masked aggregates of every prognostic field,
// delegating the reduction to the stats collaborator.
func (e *Engine) ExecStats(mask *stats.Mask, st *stats.Stats) error {
	if !e.built {
		return errNotBuilt
	}

	for _, name := range e.fields.Names() {
		fld, err := e.fields.Get(name)
		if err != nil {
			return err
		}
		st.Record(mask.Name, name, stats.Masked(fld.Data, mask.Flags))
	}
	return nil
}

// GhostCells exposes one field's collection, in locator scan order.
func (e *Engine) GhostCells(name string) []GhostCell {
	return e.ghostCells[name]
}
