package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/mbroek/ibflow/internal/boundary"
	"github.com/mbroek/ibflow/internal/config"
	"github.com/mbroek/ibflow/internal/field"
	"github.com/mbroek/ibflow/internal/grid"
	"github.com/mbroek/ibflow/internal/master"
	"github.com/mbroek/ibflow/internal/stats"
	"github.com/mbroek/ibflow/internal/timeloop"
	"github.com/mbroek/ibflow/internal/tui"
	"github.com/spf13/cobra"
)

var (
	configFile string
	live       bool
	logLevel   string
)

var titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ibflow",
		Short: "finite-difference flow solver core with immersed boundaries",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "ibflow.yaml", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "validate the setup and write the initial checkpoint",
		RunE:  runInit,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "advance the simulation from the last checkpoint",
		RunE:  runSimulation,
	}
	runCmd.Flags().BoolVar(&live, "live", false, "show a live monitor while running")

	postCmd := &cobra.Command{
		Use:   "post",
		Short: "step through saved output times",
		RunE:  runPost,
	}

	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "plot the boundary surface profile",
		RunE:  runProfile,
	}

	rootCmd.AddCommand(initCmd, runCmd, postCmd, profileCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// model bundles the collaborating components of one run.
type model struct {
	cfg    *config.Config
	master *master.Single
	grid   *grid.Grid
	fields *field.Fields
	tloop  *timeloop.Timeloop
	ib     *boundary.Engine
}

func setup(mode string) (*model, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(logLevel),
	}))
	m := master.NewSingle(mode, cfg.Master, logger)

	g := grid.New(cfg.Grid)
	f := field.New(g)

	tl, err := timeloop.New(cfg, g, m)
	if err != nil {
		return nil, err
	}

	ib, err := boundary.NewEngine(cfg.Boundary, g, f, m, nil)
	if err != nil {
		return nil, err
	}

	return &model{cfg: cfg, master: m, grid: g, fields: f, tloop: tl, ib: ib}, nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	m, err := setup(config.ModeInit)
	if err != nil {
		return err
	}

	// Build the stencils once so geometry errors surface before the first
	// run, then persist the starting time state.
	if err := m.ib.Create(); err != nil {
		return err
	}
	if err := m.tloop.Save(m.tloop.IOTime()); err != nil {
		return err
	}

	m.master.Log().Info("initialization complete", "checkpoint", timeloop.CheckpointName(m.tloop.IOTime()))
	return nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	m, err := setup(config.ModeRun)
	if err != nil {
		return err
	}

	if err := m.ib.Create(); err != nil {
		return err
	}
	if err := m.tloop.Load(m.tloop.IOTime()); err != nil {
		return err
	}

	if live {
		snaps := make(chan tui.Snapshot, 1)
		counts := make(map[string]int)
		for _, name := range m.fields.Names() {
			counts[name] = len(m.ib.GhostCells(name))
		}

		// done unblocks pending snapshot sends once the monitor quits,
		// early or not; the run itself continues to completion.
		done := make(chan struct{})
		errc := make(chan error, 1)
		go func() {
			defer close(snaps)
			errc <- mainLoop(m, snaps, done)
		}()

		uiErr := tui.Run(snaps, counts)
		close(done)
		if err := <-errc; err != nil {
			return err
		}
		return uiErr
	}

	return mainLoop(m, nil, nil)
}

// mainLoop advances full steps until the end time or the wall-clock limit.
// The per-stage order is fixed: tendency forcing, integration, value
// forcing; ghost-cell state must reflect the stage's tendency
// contributions.
func mainLoop(m *model, snaps chan<- tui.Snapshot, done <-chan struct{}) error {
	tl, ib := m.tloop, m.ib
	st := stats.New()
	mask := ib.FluidMask("fluid")

	m.master.Log().Info("starting time loop",
		"rkorder", tl.RKOrder(), "time", tl.Time(), "dt", tl.Dt())

	for !tl.IsFinished() {
		tl.SetTimeStepLimit()
		if err := tl.SetTimeStep(); err != nil {
			return err
		}

		for next := true; next; next = tl.InSubstep() {
			if err := ib.ExecTend(); err != nil {
				return err
			}
			tl.Exec(m.fields)
			if err := ib.Exec(); err != nil {
				return err
			}
		}

		tl.StepTime()

		if tl.DoCheck() {
			elapsed := tl.Check()
			if tl.IsStatsStep() {
				if err := ib.ExecStats(mask, st); err != nil {
					return err
				}
			}
			mean, _ := st.Get(mask.Name, "s")
			m.master.Log().Info("step",
				"iteration", tl.Iteration(),
				"time", tl.Time(),
				"dt", tl.Dt(),
				"elapsed", elapsed,
				"s_mean", mean.Mean)

			if snaps != nil {
				select {
				case snaps <- tui.Snapshot{
					Time:       tl.Time(),
					Dt:         tl.Dt(),
					Iteration:  tl.Iteration(),
					Substep:    tl.Substep(),
					ScalarMean: mean.Mean,
				}:
				case <-done:
					snaps = nil
				}
			}
		}

		if tl.DoSave() {
			if err := tl.Save(tl.IOTime()); err != nil {
				return err
			}
		}
	}

	m.master.Log().Info("run finished", "time", tl.Time(), "iteration", tl.Iteration())
	return nil
}

func runPost(cmd *cobra.Command, args []string) error {
	m, err := setup(config.ModePost)
	if err != nil {
		return err
	}

	if err := m.ib.Create(); err != nil {
		return err
	}
	if err := m.tloop.Load(m.tloop.IOTime()); err != nil {
		return err
	}

	st := stats.New()
	mask := m.ib.FluidMask("fluid")

	for !m.tloop.IsFinished() {
		if err := m.ib.ExecStats(mask, st); err != nil {
			return err
		}
		mean, _ := st.Get(mask.Name, "s")
		m.master.Log().Info("post-processing",
			"time", m.tloop.Time(),
			"iotime", m.tloop.IOTime(),
			"s_mean", mean.Mean)

		m.tloop.StepPostProcTime()
	}
	return nil
}

func runProfile(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(config.ModeRun); err != nil {
		return err
	}

	shape, err := boundary.NewShape(cfg.Boundary, nil)
	if err != nil {
		return err
	}

	const samples = 96
	heights := make([]float64, samples)
	y := cfg.Grid.YSize / 2
	for i := range heights {
		x := cfg.Grid.XSize * float64(i) / float64(samples-1)
		heights[i] = shape.Height(x, y)
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("boundary profile (%s) at y = %.3f", cfg.Boundary.Type, y)))
	fmt.Println(asciigraph.Plot(heights, asciigraph.Height(12), asciigraph.Width(72)))
	return nil
}
