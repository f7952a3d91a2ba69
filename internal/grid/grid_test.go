package grid

import (
	"math"
	"testing"

	"github.com/mbroek/ibflow/internal/config"
)

func TestNew(t *testing.T) {
	g := New(config.GridConfig{Itot: 8, Jtot: 4, Ktot: 2, XSize: 2, YSize: 1, ZSize: 0.5})

	if g.Icells != 10 || g.Jcells != 6 || g.Kcells != 4 {
		t.Errorf("cells = (%d,%d,%d), want (10,6,4)", g.Icells, g.Jcells, g.Kcells)
	}
	if g.Ncells != 10*6*4 {
		t.Errorf("Ncells = %d, want %d", g.Ncells, 10*6*4)
	}
	if g.DX != 0.25 || g.DY != 0.25 || g.DZ != 0.25 {
		t.Errorf("spacing = (%v,%v,%v), want 0.25 each", g.DX, g.DY, g.DZ)
	}

	// First interior center sits half a spacing in, the face on the edge.
	if math.Abs(g.X[g.Istart]-0.125) > 1e-12 {
		t.Errorf("X[istart] = %v, want 0.125", g.X[g.Istart])
	}
	if g.Xh[g.Istart] != 0 {
		t.Errorf("Xh[istart] = %v, want 0", g.Xh[g.Istart])
	}
	if math.Abs(g.X[g.Iend-1]-(2-0.125)) > 1e-12 {
		t.Errorf("X[iend-1] = %v, want %v", g.X[g.Iend-1], 2-0.125)
	}
}

func TestIJK(t *testing.T) {
	g := New(config.GridConfig{Itot: 4, Jtot: 4, Ktot: 4, XSize: 1, YSize: 1, ZSize: 1})

	if g.IJK(0, 0, 0) != 0 {
		t.Error("IJK(0,0,0) != 0")
	}
	if g.IJK(1, 0, 0) != 1 {
		t.Error("IJK is not contiguous in i")
	}
	if g.IJK(0, 1, 0) != g.Icells {
		t.Error("IJK j stride is not icells")
	}
	if g.IJK(0, 0, 1) != g.IJcells {
		t.Error("IJK k stride is not ijcells")
	}
	if g.IJK(g.Icells-1, g.Jcells-1, g.Kcells-1) != g.Ncells-1 {
		t.Error("IJK of the last cell is not ncells-1")
	}
}
