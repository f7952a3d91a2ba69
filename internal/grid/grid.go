// Package grid holds the uniform Cartesian grid layout shared by the time
// integrator and the immersed boundary engine: cell counts, interior index
// ranges and the coordinate arrays for cell centers and cell faces.
package grid

import "github.com/mbroek/ibflow/internal/config"

type Grid struct {
	Itot, Jtot, Ktot int
	Gc               int // halo width on every side

	Istart, Iend int
	Jstart, Jend int
	Kstart, Kend int

	Icells, Jcells, Kcells int
	IJcells, Ncells        int

	XSize, YSize, ZSize float64
	DX, DY, DZ          float64

	// Cell-center and cell-face coordinates, indexed like the grid
	// including the halo.
	X, Y, Z    []float64
	Xh, Yh, Zh []float64
}

func New(cfg config.GridConfig) *Grid {
	g := &Grid{
		Itot:  cfg.Itot,
		Jtot:  cfg.Jtot,
		Ktot:  cfg.Ktot,
		Gc:    1,
		XSize: cfg.XSize,
		YSize: cfg.YSize,
		ZSize: cfg.ZSize,
	}

	g.Istart, g.Iend = g.Gc, g.Itot+g.Gc
	g.Jstart, g.Jend = g.Gc, g.Jtot+g.Gc
	g.Kstart, g.Kend = g.Gc, g.Ktot+g.Gc

	g.Icells = g.Itot + 2*g.Gc
	g.Jcells = g.Jtot + 2*g.Gc
	g.Kcells = g.Ktot + 2*g.Gc
	g.IJcells = g.Icells * g.Jcells
	g.Ncells = g.IJcells * g.Kcells

	g.DX = g.XSize / float64(g.Itot)
	g.DY = g.YSize / float64(g.Jtot)
	g.DZ = g.ZSize / float64(g.Ktot)

	g.X = make([]float64, g.Icells)
	g.Xh = make([]float64, g.Icells)
	for i := range g.X {
		g.X[i] = (float64(i-g.Istart) + 0.5) * g.DX
		g.Xh[i] = float64(i-g.Istart) * g.DX
	}

	g.Y = make([]float64, g.Jcells)
	g.Yh = make([]float64, g.Jcells)
	for j := range g.Y {
		g.Y[j] = (float64(j-g.Jstart) + 0.5) * g.DY
		g.Yh[j] = float64(j-g.Jstart) * g.DY
	}

	g.Z = make([]float64, g.Kcells)
	g.Zh = make([]float64, g.Kcells)
	for k := range g.Z {
		g.Z[k] = (float64(k-g.Kstart) + 0.5) * g.DZ
		g.Zh[k] = float64(k-g.Kstart) * g.DZ
	}

	return g
}

// IJK flattens a grid index triple into the field array offset.
func (g *Grid) IJK(i, j, k int) int {
	return i + j*g.Icells + k*g.IJcells
}
