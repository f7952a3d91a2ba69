package timeloop

// Low-storage Runge-Kutta coefficient tables. cA blends the previous
// tendency into the next stage, cB weights the tendency contribution to the
// field update. cA[0] == 0 so stage 0 resets the tendencies instead of
// blending them.

// Third-order scheme of Williamson (1980).
var (
	rk3CA = [3]float64{0., -5. / 9., -153. / 128.}
	rk3CB = [3]float64{1. / 3., 15. / 16., 8. / 15.}
)

// Fourth-order, five-stage scheme of Carpenter and Kennedy (1994).
var (
	rk4CA = [5]float64{
		0.,
		-567301805773. / 1357537059087.,
		-2404267990393. / 2016746695238.,
		-3550918686646. / 2091501179385.,
		-1275806237668. / 842570457699.,
	}
	rk4CB = [5]float64{
		1432997174477. / 9575080441755.,
		5161836677717. / 13612068292357.,
		1720146321549. / 2090206949498.,
		3134564353537. / 4481467310338.,
		2277821191437. / 14882151754819.,
	}
)

// rk3 applies one stage of the three-stage scheme to a field: the update
// a += cB*dt*at over the interior, then the tendency rescale by cA of the
// next stage.
func (tl *Timeloop) rk3(a, at []float64, dt float64) {
	g := tl.grid
	jj := g.Icells
	kk := g.IJcells

	cb := rk3CB[tl.substep]
	for k := g.Kstart; k < g.Kend; k++ {
		for j := g.Jstart; j < g.Jend; j++ {
			for i := g.Istart; i < g.Iend; i++ {
				ijk := i + j*jj + k*kk
				a[ijk] += cb * dt * at[ijk]
			}
		}
	}

	ca := rk3CA[(tl.substep+1)%3]
	for k := g.Kstart; k < g.Kend; k++ {
		for j := g.Jstart; j < g.Jend; j++ {
			for i := g.Istart; i < g.Iend; i++ {
				ijk := i + j*jj + k*kk
				at[ijk] *= ca
			}
		}
	}
}

// rk4 applies one stage of the five-stage fourth-order scheme.
func (tl *Timeloop) rk4(a, at []float64, dt float64) {
	g := tl.grid
	jj := g.Icells
	kk := g.IJcells

	cb := rk4CB[tl.substep]
	for k := g.Kstart; k < g.Kend; k++ {
		for j := g.Jstart; j < g.Jend; j++ {
			for i := g.Istart; i < g.Iend; i++ {
				ijk := i + j*jj + k*kk
				a[ijk] += cb * dt * at[ijk]
			}
		}
	}

	ca := rk4CA[(tl.substep+1)%5]
	for k := g.Kstart; k < g.Kend; k++ {
		for j := g.Jstart; j < g.Jend; j++ {
			for i := g.Istart; i < g.Iend; i++ {
				ijk := i + j*jj + k*kk
				at[ijk] *= ca
			}
		}
	}
}
