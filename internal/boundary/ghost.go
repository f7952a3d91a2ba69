package boundary

import (
	"github.com/mbroek/ibflow/internal/grid"
	"gonum.org/v1/gonum/mat"
)

// Neighbour is one fluid-side sample point of an interpolation stencil.
type Neighbour struct {
	I, J, K  int
	Distance float64 // distance from the nearest boundary point
}

// GhostCell is a cell inside the solid with at least one fluid-side face
// neighbour. Its field value is reconstructed from the stencil instead of
// evolved by the discretization.
type GhostCell struct {
	I, J, K int

	// Nearest location on the boundary surface.
	XB, YB, ZB float64

	Neighbours []Neighbour
	B          *mat.Dense // inverted interpolation matrix, basis x samples
}

// Stagger selects the grid-point layout of one prognostic field.
type Stagger int

const (
	StaggerS Stagger = iota // cell centers
	StaggerU                // x faces
	StaggerV                // y faces
	StaggerW                // z faces
)

// StaggerFor maps a prognostic field name to its grid-point layout.
func StaggerFor(name string) Stagger {
	switch name {
	case "u":
		return StaggerU
	case "v":
		return StaggerV
	case "w":
		return StaggerW
	default:
		return StaggerS
	}
}

// coords returns the coordinate arrays of the stagger's grid points.
func (st Stagger) coords(g *grid.Grid) (x, y, z []float64) {
	switch st {
	case StaggerU:
		return g.Xh, g.Y, g.Z
	case StaggerV:
		return g.X, g.Yh, g.Z
	case StaggerW:
		return g.X, g.Y, g.Zh
	default:
		return g.X, g.Y, g.Z
	}
}

// insideSolid classifies a point against the boundary surface.
func insideSolid(shape Shape, x, y, z float64) bool {
	return z <= shape.Height(x, y)
}

// findGhostCells scans the interior index range of one stagger in
// lexicographic (k, j, i) order and returns, in that same order, every
// cell that lies inside the solid with at least one of its six
// face-neighbours inside the fluid.
func findGhostCells(g *grid.Grid, shape Shape, st Stagger) []GhostCell {
	x, y, z := st.coords(g)

	var cells []GhostCell
	for k := g.Kstart; k < g.Kend; k++ {
		for j := g.Jstart; j < g.Jend; j++ {
			for i := g.Istart; i < g.Iend; i++ {
				if !insideSolid(shape, x[i], y[j], z[k]) {
					continue
				}
				if !hasFluidNeighbour(shape, x, y, z, i, j, k) {
					continue
				}
				cells = append(cells, GhostCell{I: i, J: j, K: k})
			}
		}
	}
	return cells
}

func hasFluidNeighbour(shape Shape, x, y, z []float64, i, j, k int) bool {
	return !insideSolid(shape, x[i-1], y[j], z[k]) ||
		!insideSolid(shape, x[i+1], y[j], z[k]) ||
		!insideSolid(shape, x[i], y[j-1], z[k]) ||
		!insideSolid(shape, x[i], y[j+1], z[k]) ||
		!insideSolid(shape, x[i], y[j], z[k-1]) ||
		!insideSolid(shape, x[i], y[j], z[k+1])
}
