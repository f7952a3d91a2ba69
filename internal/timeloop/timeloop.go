// Package timeloop owns the simulation time state and drives the explicit
// Runge-Kutta substeps. Time is kept twice: as floating seconds for physics
// and presentation, and as integer ticks (fixed point, scale IFactor) for
// every control-flow comparison, so save and stop decisions never suffer
// rounding drift.
package timeloop

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mbroek/ibflow/internal/config"
	"github.com/mbroek/ibflow/internal/field"
	"github.com/mbroek/ibflow/internal/grid"
	"github.com/mbroek/ibflow/internal/master"
)

// IFactor converts floating seconds to integer ticks.
const IFactor = 1e9

// ErrPrecision reports an adaptive time step that rounds to zero ticks.
// Continuing would silently stall simulated time, so it is fatal.
var ErrPrecision = errors.New("timeloop: required time step is below the tick resolution")

type Timeloop struct {
	master master.Master
	grid   *grid.Grid

	adaptive   bool
	rkOrder    int
	outputIter int

	time, dt     float64
	starttime    float64
	endtime      float64
	savetime     float64
	dtmax        float64
	postproctime float64

	itime, idt     uint64
	istarttime     uint64
	iendtime       uint64
	isavetime      uint64
	idtmax, idtlim uint64
	iiotimeprec    uint64
	ipostproctime  uint64
	iotime         int

	substep   int
	iteration int
	loop      bool

	lastCheck time.Time
}

// iround converts floating seconds to ticks, guarding against roundoff.
func iround(t float64) uint64 {
	return uint64(IFactor*t + 0.5)
}

func New(cfg *config.Config, g *grid.Grid, m master.Master) (*Timeloop, error) {
	tc := cfg.Time

	tl := &Timeloop{
		master:     m,
		grid:       g,
		adaptive:   *tc.AdaptiveStep,
		rkOrder:    tc.RKOrder,
		outputIter: tc.OutputIter,
		starttime:  *tc.StartTime,
		endtime:    *tc.EndTime,
		savetime:   *tc.SaveTime,
		dtmax:      *tc.DtMax,
		dt:         *tc.Dt,
		loop:       true,
		lastCheck:  time.Now(),
	}

	tl.istarttime = iround(tl.starttime)
	tl.itime = tl.istarttime
	tl.time = tl.starttime
	tl.iendtime = iround(tl.endtime)
	tl.isavetime = iround(tl.savetime)
	tl.idt = iround(tl.dt)
	tl.idtmax = iround(tl.dtmax)
	tl.idtlim = tl.idt

	if m.Mode() == config.ModePost {
		tl.postproctime = *tc.PostProcTime
		tl.ipostproctime = iround(tl.postproctime)
	}

	tl.iiotimeprec = iround(math.Pow(10, float64(tc.IOTimePrec)))
	if tl.iiotimeprec == 0 {
		return nil, config.Error{
			Param:  "time.iotimeprec",
			Reason: "output time precision is below the tick resolution",
		}
	}

	if tl.istarttime%tl.iiotimeprec != 0 || tl.isavetime%tl.iiotimeprec != 0 {
		return nil, config.Error{
			Param:  "time.iotimeprec",
			Reason: "starttime and savetime must be exact multiples of the output time precision",
		}
	}

	tl.iotime = int(tl.istarttime / tl.iiotimeprec)

	return tl, nil
}

// SetTimeStepLimit computes the admissible integer step for the coming full
// step: the configured maximum, clipped to land exactly on the next save
// point, and, once the wall-clock limit has fired, on the nearest output
// rounding boundary so the final save lands on a valid name.
func (tl *Timeloop) SetTimeStepLimit() {
	tl.idtlim = tl.idtmax

	if tl.master.AtWallClockLimit() {
		tl.idtlim = min(tl.idtlim, tl.iiotimeprec-tl.itime%tl.iiotimeprec)
	}

	tl.idtlim = min(tl.idtlim, tl.isavetime-tl.itime%tl.isavetime)
}

// LimitTimeStep lets collaborators (e.g. a CFL criterion) tighten the
// admissible step further.
func (tl *Timeloop) LimitTimeStep(idtlim uint64) {
	tl.idtlim = min(tl.idtlim, idtlim)
}

// SetTimeStep commits the computed limit as the actual step under adaptive
// stepping. A limit that underflows to zero ticks is fatal.
func (tl *Timeloop) SetTimeStep() error {
	if tl.InSubstep() {
		return nil
	}
	if tl.adaptive {
		if tl.idtlim == 0 {
			return fmt.Errorf("%w (tick = %e s)", ErrPrecision, 1.0/IFactor)
		}
		tl.idt = tl.idtlim
		tl.dt = float64(tl.idt) / IFactor
	}
	return nil
}

// StepTime advances the time state by one full step. Mid-substep it is a
// no-op; a full step only completes when the substep counter has wrapped.
func (tl *Timeloop) StepTime() {
	if tl.InSubstep() {
		return
	}

	tl.time += tl.dt
	tl.itime += tl.idt
	tl.iotime = int(tl.itime / tl.iiotimeprec)
	tl.iteration++

	if tl.itime >= tl.iendtime {
		tl.loop = false
	}
}

// StepPostProcTime advances to the next post-processing instant.
func (tl *Timeloop) StepPostProcTime() {
	tl.itime += tl.ipostproctime
	tl.time = float64(tl.itime) / IFactor
	tl.iotime = int(tl.itime / tl.iiotimeprec)

	if tl.itime > tl.iendtime {
		tl.loop = false
	}
}

// DoCheck reports whether diagnostics are due at the current iteration.
func (tl *Timeloop) DoCheck() bool {
	return tl.iteration%tl.outputIter == 0 && !tl.InSubstep()
}

// DoSave reports whether a checkpoint is due. When the wall-clock limit has
// fired at a valid output time, the save and the loop termination are
// coupled: one observation of the limit forces both, never one of the two.
func (tl *Timeloop) DoSave() bool {
	if tl.itime%tl.iiotimeprec == 0 && !tl.InSubstep() && tl.master.AtWallClockLimit() {
		tl.master.Log().Warn("wall clock limit reached, stopping after saving restart files")
		tl.loop = false
		return true
	}

	// Never save directly at the start of the run and never mid-substep.
	if tl.itime%tl.isavetime == 0 && tl.iteration != 0 && !tl.InSubstep() {
		return true
	}

	return false
}

func (tl *Timeloop) IsFinished() bool { return !tl.loop }

func (tl *Timeloop) InSubstep() bool { return tl.substep > 0 }

// IsStatsStep reports whether statistics may be computed: not mid-substep
// and not at the first iteration directly after a restart.
func (tl *Timeloop) IsStatsStep() bool {
	return !tl.InSubstep() && !(tl.iteration > 0 && tl.itime == tl.istarttime)
}

// Check returns the wall-clock seconds elapsed since the previous call,
// for per-interval performance reporting.
func (tl *Timeloop) Check() float64 {
	now := time.Now()
	elapsed := now.Sub(tl.lastCheck).Seconds()
	tl.lastCheck = now
	return elapsed
}

// InterpFactors brackets a query time inside a reference time sequence.
type InterpFactors struct {
	Index0, Index1 int
	Fac0, Fac1     float64
}

// InterpolationFactors returns the bracketing indices and linear blend
// weights of the current simulation time within times. Outside the sequence
// the factors saturate at the first or last entry instead of extrapolating.
func (tl *Timeloop) InterpolationFactors(times []float64) InterpFactors {
	index1 := 0
	for _, t := range times {
		if tl.time < t {
			break
		}
		index1++
	}

	switch {
	case index1 == 0:
		return InterpFactors{Index0: 0, Index1: 0, Fac0: 0, Fac1: 1}
	case index1 == len(times):
		return InterpFactors{Index0: index1 - 1, Index1: index1 - 1, Fac0: 1, Fac1: 0}
	default:
		index0 := index1 - 1
		span := times[index1] - times[index0]
		return InterpFactors{
			Index0: index0,
			Index1: index1,
			Fac0:   (times[index1] - tl.time) / span,
			Fac1:   (tl.time - times[index0]) / span,
		}
	}
}

// Exec runs one Runge-Kutta stage over every prognostic field and advances
// the substep counter.
func (tl *Timeloop) Exec(fields *field.Fields) {
	switch tl.rkOrder {
	case 3:
		fields.Each(func(f *field.Field) {
			tl.rk3(f.Data, f.Tend, tl.dt)
		})
		tl.substep = (tl.substep + 1) % 3
	case 4:
		fields.Each(func(f *field.Field) {
			tl.rk4(f.Data, f.Tend, tl.dt)
		})
		tl.substep = (tl.substep + 1) % 5
	}
}

// SubTimeStep returns the physical duration of the current stage.
func (tl *Timeloop) SubTimeStep() float64 {
	switch tl.rkOrder {
	case 3:
		return rk3CB[tl.substep] * tl.dt
	case 4:
		return rk4CB[tl.substep] * tl.dt
	}
	return 0
}

// Accessors for the driver and the live monitor.
func (tl *Timeloop) Time() float64  { return tl.time }
func (tl *Timeloop) Dt() float64    { return tl.dt }
func (tl *Timeloop) ITime() uint64  { return tl.itime }
func (tl *Timeloop) IDt() uint64    { return tl.idt }
func (tl *Timeloop) IOTime() int    { return tl.iotime }
func (tl *Timeloop) Iteration() int { return tl.iteration }
func (tl *Timeloop) Substep() int   { return tl.substep }
func (tl *Timeloop) RKOrder() int   { return tl.rkOrder }
