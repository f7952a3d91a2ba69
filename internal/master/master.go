// Package master provides process coordination: run mode, rank-0-only I/O
// gating, scalar broadcast and the wall-clock budget. The numerical core
// only depends on the Master interface; Single is the in-process
// implementation used when no process group is configured.
package master

import (
	"log/slog"
	"time"

	"github.com/mbroek/ibflow/internal/config"
)

// Master is the collective-communication contract the core needs. After a
// checkpoint save or load the coordinator must broadcast the authoritative
// time state before any control-flow decision is taken on it.
type Master interface {
	Mode() string
	Coordinator() bool

	// AtWallClockLimit reports whether the elapsed real-time budget has
	// been spent. The result is assumed to be reconciled across the
	// process group before it is allowed to change global control flow.
	AtWallClockLimit() bool

	// Broadcast* distribute a scalar from the coordinator to all
	// processes. An error is fatal for the whole run.
	BroadcastUint64(*uint64) error
	BroadcastInt32(*int32) error
	BroadcastInt(*int) error

	Log() *slog.Logger
}

// Single is the single-process Master: broadcasts are no-ops and the
// process is always the coordinator.
type Single struct {
	RunMode string
	Start   time.Time
	Limit   time.Duration // 0 = unlimited
	Clock   func() time.Time

	logger *slog.Logger
}

func NewSingle(mode string, cfg config.MasterConfig, logger *slog.Logger) *Single {
	if logger == nil {
		logger = slog.Default()
	}
	return &Single{
		RunMode: mode,
		Start:   time.Now(),
		Limit:   time.Duration(cfg.WallClockLimit * float64(time.Hour)),
		Clock:   time.Now,
		logger:  logger.With("mode", mode),
	}
}

func (m *Single) Mode() string      { return m.RunMode }
func (m *Single) Coordinator() bool { return true }

func (m *Single) AtWallClockLimit() bool {
	if m.Limit <= 0 {
		return false
	}
	return m.Clock().Sub(m.Start) >= m.Limit
}

func (m *Single) BroadcastUint64(*uint64) error { return nil }
func (m *Single) BroadcastInt32(*int32) error   { return nil }
func (m *Single) BroadcastInt(*int) error       { return nil }

func (m *Single) Log() *slog.Logger { return m.logger }
