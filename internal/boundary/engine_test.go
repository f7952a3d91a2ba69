package boundary_test

import (
	"errors"
	"io"
	"log/slog"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mbroek/ibflow/internal/boundary"
	"github.com/mbroek/ibflow/internal/config"
	"github.com/mbroek/ibflow/internal/field"
	"github.com/mbroek/ibflow/internal/grid"
	"github.com/mbroek/ibflow/internal/master"
	"github.com/mbroek/ibflow/internal/stats"
)

func quietMaster() *master.Single {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return master.NewSingle(config.ModeRun, config.MasterConfig{}, logger)
}

// staggerCoords mirrors the per-field grid-point layout.
func staggerCoords(g *grid.Grid, name string) (x, y, z []float64) {
	switch name {
	case "u":
		return g.Xh, g.Y, g.Z
	case "v":
		return g.X, g.Yh, g.Z
	case "w":
		return g.X, g.Y, g.Zh
	default:
		return g.X, g.Y, g.Z
	}
}

var _ = Describe("Engine", func() {
	var (
		cfg config.BoundaryConfig
		g   *grid.Grid
		f   *field.Fields
		eng *boundary.Engine
	)

	BeforeEach(func() {
		cfg = config.BoundaryConfig{
			Type:       "gaussian",
			Amplitude:  0.3,
			ZOffset:    0.05,
			XYDims:     2,
			X0:         0.5,
			Y0:         0.5,
			SigmaX:     0.15,
			SigmaY:     0.15,
			ScalarBC:   2.0,
			Neighbours: 12,
			CondMax:    1e8,
		}
		g = grid.New(config.GridConfig{Itot: 16, Jtot: 16, Ktot: 16, XSize: 1, YSize: 1, ZSize: 1})
		f = field.New(g)

		var err error
		eng, err = boundary.NewEngine(cfg, g, f, quietMaster(), nil)
		Expect(err).NotTo(HaveOccurred())
	})

	It("refuses forcing before Create", func() {
		Expect(eng.Exec()).To(HaveOccurred())
		Expect(eng.ExecTend()).To(HaveOccurred())
	})

	Describe("after Create", func() {
		BeforeEach(func() {
			Expect(eng.Create()).To(Succeed())
		})

		It("locates ghost cells inside the solid with a fluid face-neighbour, for every stagger", func() {
			shape := eng.Shape()

			for _, name := range f.Names() {
				cells := eng.GhostCells(name)
				Expect(cells).NotTo(BeEmpty(), "field %s", name)

				x, y, z := staggerCoords(g, name)
				for _, gc := range cells {
					Expect(z[gc.K]).To(BeNumerically("<=", shape.Height(x[gc.I], y[gc.J])),
						"ghost cell of %s not inside the solid", name)

					fluid := z[gc.K] > shape.Height(x[gc.I-1], y[gc.J]) ||
						z[gc.K] > shape.Height(x[gc.I+1], y[gc.J]) ||
						z[gc.K] > shape.Height(x[gc.I], y[gc.J-1]) ||
						z[gc.K] > shape.Height(x[gc.I], y[gc.J+1]) ||
						z[gc.K-1] > shape.Height(x[gc.I], y[gc.J]) ||
						z[gc.K+1] > shape.Height(x[gc.I], y[gc.J])
					Expect(fluid).To(BeTrue(), "ghost cell of %s has no fluid face-neighbour", name)
				}
			}
		})

		It("emits ghost cells in lexicographic (k, j, i) scan order", func() {
			for _, name := range f.Names() {
				cells := eng.GhostCells(name)
				for n := 1; n < len(cells); n++ {
					prev, cur := cells[n-1], cells[n]
					prevKey := (prev.K*g.Jcells+prev.J)*g.Icells + prev.I
					curKey := (cur.K*g.Jcells+cur.J)*g.Icells + cur.I
					Expect(curKey).To(BeNumerically(">", prevKey), "field %s", name)
				}
			}
		})

		It("projects each ghost cell onto the boundary surface", func() {
			shape := eng.Shape()
			x, y, z := staggerCoords(g, "s")

			for _, gc := range eng.GhostCells("s") {
				Expect(gc.ZB).To(BeNumerically("~", shape.Height(gc.XB, gc.YB), 1e-9))

				dist := math.Sqrt((x[gc.I]-gc.XB)*(x[gc.I]-gc.XB) +
					(y[gc.J]-gc.YB)*(y[gc.J]-gc.YB) +
					(z[gc.K]-gc.ZB)*(z[gc.K]-gc.ZB))
				Expect(dist).To(BeNumerically("<", 4*g.DX),
					"boundary point unreasonably far from the ghost cell")
			}
		})

		It("builds stencils with enough fluid neighbours and an inverted matrix", func() {
			shape := eng.Shape()

			for _, name := range f.Names() {
				x, y, z := staggerCoords(g, name)
				for _, gc := range eng.GhostCells(name) {
					Expect(gc.Neighbours).To(HaveLen(cfg.Neighbours))
					Expect(gc.B).NotTo(BeNil())

					rows, cols := gc.B.Dims()
					Expect(rows).To(Equal(7))
					Expect(cols).To(Equal(cfg.Neighbours + 1))

					for n, nb := range gc.Neighbours {
						Expect(z[nb.K]).To(BeNumerically(">", shape.Height(x[nb.I], y[nb.J])),
							"stencil point of %s is not in the fluid", name)
						if n > 0 {
							Expect(nb.Distance).To(BeNumerically(">=", gc.Neighbours[n-1].Distance))
						}
					}
				}
			}
		})

		It("forces the Dirichlet value exactly for constant fields", func() {
			s, err := f.Get("s")
			Expect(err).NotTo(HaveOccurred())
			for i := range s.Data {
				s.Data[i] = cfg.ScalarBC
			}

			Expect(eng.Exec()).To(Succeed())

			for _, gc := range eng.GhostCells("s") {
				Expect(s.Data[g.IJK(gc.I, gc.J, gc.K)]).To(BeNumerically("~", cfg.ScalarBC, 1e-9))
			}

			// Velocities are all zero, the no-slip reconstruction keeps them so.
			u, _ := f.Get("u")
			for _, gc := range eng.GhostCells("u") {
				Expect(u.Data[g.IJK(gc.I, gc.J, gc.K)]).To(BeNumerically("~", 0, 1e-9))
			}
		})

		It("zeroes tendencies at ghost cells only", func() {
			s, _ := f.Get("s")
			for i := range s.Tend {
				s.Tend[i] = 1
			}

			Expect(eng.ExecTend()).To(Succeed())

			for _, gc := range eng.GhostCells("s") {
				Expect(s.Tend[g.IJK(gc.I, gc.J, gc.K)]).To(BeZero())
			}
			// A cell far above the hill is untouched.
			Expect(s.Tend[g.IJK(g.Istart, g.Jstart, g.Kend-1)]).To(Equal(1.0))
		})

		It("reports fluid-masked statistics", func() {
			s, _ := f.Get("s")
			for i := range s.Data {
				s.Data[i] = cfg.ScalarBC
			}

			mask := eng.FluidMask("fluid")
			st := stats.New()
			Expect(eng.ExecStats(mask, st)).To(Succeed())

			agg, ok := st.Get("fluid", "s")
			Expect(ok).To(BeTrue())
			Expect(agg.Count).To(BeNumerically(">", 0))
			Expect(agg.Count).To(BeNumerically("<", g.Itot*g.Jtot*g.Ktot),
				"the mask should exclude the solid region")
			Expect(agg.Mean).To(BeNumerically("~", cfg.ScalarBC, 1e-12))
		})
	})

	Describe("failure modes", func() {
		It("fails Create when the stencil support cannot be filled", func() {
			cfg.Neighbours = 400 // more than the bounded search box can hold
			bad, err := boundary.NewEngine(cfg, g, f, quietMaster(), nil)
			Expect(err).NotTo(HaveOccurred())

			err = bad.Create()
			Expect(err).To(HaveOccurred())

			var gerr boundary.GeometryError
			Expect(errors.As(err, &gerr)).To(BeTrue(), "expected a GeometryError, got %v", err)
		})
	})

	Describe("with a flat boundary", func() {
		It("still builds well-conditioned stencils", func() {
			flat := config.BoundaryConfig{
				Type:       "none",
				ZOffset:    0.1,
				XYDims:     1,
				Neighbours: 12,
				CondMax:    1e8,
			}
			eng, err := boundary.NewEngine(flat, g, f, quietMaster(), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(eng.Create()).To(Succeed())
			Expect(eng.GhostCells("s")).NotTo(BeEmpty())
		})
	})
})
