package boundary

import (
	"fmt"
	"math"
	"sort"

	"github.com/mbroek/ibflow/internal/grid"
	"gonum.org/v1/gonum/mat"
)

// GeometryError reports a ghost cell for which no well-conditioned
// interpolation stencil could be built. The run must not proceed with an
// unenforceable boundary condition, so these are fatal at Create time.
type GeometryError struct {
	I, J, K int
	Reason  string
}

func (e GeometryError) Error() string {
	return fmt.Sprintf("boundary: ghost cell (%d,%d,%d): %s", e.I, e.J, e.K, e.Reason)
}

// Polynomial basis of the stencil: 1, dx, dy, dz, dx^2, dy^2, dz^2.
const nPoly = 7

func basisRow(dx, dy, dz float64) []float64 {
	return []float64{1, dx, dy, dz, dx * dx, dy * dy, dz * dz}
}

func evalBasis(c *mat.VecDense, dx, dy, dz float64) float64 {
	row := basisRow(dx, dy, dz)
	v := 0.0
	for n := 0; n < nPoly; n++ {
		v += c.AtVec(n) * row[n]
	}
	return v
}

// searchSamples is the coarse sampling density of the nearest-wall search.
const searchSamples = 64

// nearestWall finds the point on the surface z = Height(x, y) closest to
// the given location. The search is bounded to a few grid spacings around
// the cell: a coarse scan brackets the minimum, ternary refinement sharpens
// it. Ties resolve to the minimum-distance candidate of the coarse scan.
func nearestWall(shape Shape, x, y, z, dx, dy float64, twoDim bool) (xb, yb, zb, dist float64) {
	spanX := 4 * dx
	spanY := 4 * dy

	dist2 := func(xs, ys float64) float64 {
		zs := shape.Height(xs, ys)
		return (xs-x)*(xs-x) + (ys-y)*(ys-y) + (zs-z)*(zs-z)
	}

	xb, yb = x, y
	best := dist2(xb, yb)

	ny := 1
	if twoDim {
		ny = searchSamples
	}
	for jj := 0; jj < ny; jj++ {
		ys := y
		if twoDim {
			ys = y - spanY + 2*spanY*float64(jj)/float64(searchSamples-1)
		}
		for ii := 0; ii < searchSamples; ii++ {
			xs := x - spanX + 2*spanX*float64(ii)/float64(searchSamples-1)
			if d := dist2(xs, ys); d < best {
				best, xb, yb = d, xs, ys
			}
		}
	}

	// Ternary refinement, one spacing wide around the coarse minimum,
	// alternating directions for the 2D case.
	for sweep := 0; sweep < 3; sweep++ {
		xb = refine(func(v float64) float64 { return dist2(v, yb) }, xb-dx, xb+dx)
		if twoDim {
			yb = refine(func(v float64) float64 { return dist2(xb, v) }, yb-dy, yb+dy)
		}
	}

	zb = shape.Height(xb, yb)
	dist = math.Sqrt(dist2(xb, yb))
	return xb, yb, zb, dist
}

// refine minimizes f over [lo, hi] by ternary search.
func refine(f func(float64) float64, lo, hi float64) float64 {
	for iter := 0; iter < 48; iter++ {
		m1 := lo + (hi-lo)/3
		m2 := hi - (hi-lo)/3
		if f(m1) < f(m2) {
			hi = m2
		} else {
			lo = m1
		}
	}
	return (lo + hi) / 2
}

// neighbourRadius bounds the index search box of the stencil support.
const neighbourRadius = 3

// findInterpolationPoints collects the fluid-side grid points closest to
// the ghost cell's boundary point, retaining the nearest max entries.
func findInterpolationPoints(gc *GhostCell, g *grid.Grid, shape Shape, st Stagger, max int) error {
	x, y, z := st.coords(g)

	var cand []Neighbour
	for dk := -neighbourRadius; dk <= neighbourRadius; dk++ {
		for dj := -neighbourRadius; dj <= neighbourRadius; dj++ {
			for di := -neighbourRadius; di <= neighbourRadius; di++ {
				i, j, k := gc.I+di, gc.J+dj, gc.K+dk
				if i < g.Istart || i >= g.Iend || j < g.Jstart || j >= g.Jend || k < g.Kstart || k >= g.Kend {
					continue
				}
				if insideSolid(shape, x[i], y[j], z[k]) {
					continue
				}
				d := math.Sqrt((x[i]-gc.XB)*(x[i]-gc.XB) +
					(y[j]-gc.YB)*(y[j]-gc.YB) +
					(z[k]-gc.ZB)*(z[k]-gc.ZB))
				cand = append(cand, Neighbour{I: i, J: j, K: k, Distance: d})
			}
		}
	}

	if len(cand) < max {
		return GeometryError{gc.I, gc.J, gc.K,
			fmt.Sprintf("only %d fluid neighbours within the search radius, %d required", len(cand), max)}
	}

	sort.SliceStable(cand, func(a, b int) bool { return cand[a].Distance < cand[b].Distance })
	gc.Neighbours = cand[:max]
	return nil
}

// defineDistanceMatrix assembles the design matrix of the stencil (first
// row: the boundary point itself, then one row per neighbour, each row the
// polynomial basis at the offset from the boundary point) and stores its
// pseudo-inverse B, so that basis coefficients = B * samples.
func defineDistanceMatrix(gc *GhostCell, g *grid.Grid, st Stagger, condMax float64) error {
	x, y, z := st.coords(g)

	rows := len(gc.Neighbours) + 1
	a := mat.NewDense(rows, nPoly, nil)
	a.SetRow(0, basisRow(0, 0, 0))
	for n, nb := range gc.Neighbours {
		a.SetRow(n+1, basisRow(x[nb.I]-gc.XB, y[nb.J]-gc.YB, z[nb.K]-gc.ZB))
	}

	if cond := mat.Cond(a, 2); cond > condMax {
		return GeometryError{gc.I, gc.J, gc.K,
			fmt.Sprintf("interpolation matrix is ill-conditioned (cond %.3e)", cond)}
	}

	var ata mat.Dense
	ata.Mul(a.T(), a)

	var inv mat.Dense
	if err := inv.Inverse(&ata); err != nil {
		return GeometryError{gc.I, gc.J, gc.K, "interpolation matrix is singular"}
	}

	var b mat.Dense
	b.Mul(&inv, a.T())
	gc.B = &b
	return nil
}
