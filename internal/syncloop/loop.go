// Package syncloop keeps the client unit and mission stores in step with the
// server using two independent polling cycles.
//
// The fast "update" cycle requests unit deltas every 250ms while connected and
// every second otherwise. The slow "refresh" cycle requests a full unit snapshot
// and the airbase and bullseye lists every five seconds. Both cycles report the
// session hash of their unit responses to the session monitor.
//
// Every unit request draws a generation number when it is sent. A response is
// applied only if no response with a later generation has been applied yet, so
// a full refresh that was overtaken by a newer delta is dropped rather than
// overwriting fresher state.
package syncloop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/M-Chimiste/DCSOlympus/internal/clock"
	"github.com/M-Chimiste/DCSOlympus/internal/scheduler"
	"github.com/M-Chimiste/DCSOlympus/internal/session"
	"github.com/M-Chimiste/DCSOlympus/pkg/core"
)

// Cycle names, used for task names, log fields and metric attributes.
const (
	CycleSeed    = "seed"
	CycleUpdate  = "update"
	CycleRefresh = "refresh"
)

// Ingest is the server-facing collaborator.
type Ingest interface {
	FetchUnits(ctx context.Context, fullRefresh bool) (*core.UnitsData, error)
	FetchAirbases(ctx context.Context) (*core.AirbasesData, error)
	FetchBullseyes(ctx context.Context) (*core.BullseyesData, error)
	Connected() bool
}

// UnitStore receives unit snapshots and deltas.
type UnitStore interface {
	Update(data *core.UnitsData)
}

// MissionStore receives airbase and bullseye snapshots.
type MissionStore interface {
	UpdateAirbases(data *core.AirbasesData)
	UpdateBullseyes(data *core.BullseyesData)
}

// SessionChecker validates the session hash of each applied unit response.
type SessionChecker interface {
	Check(candidate core.SessionHash) session.Outcome
}

// StatusIndicator shows the connected/disconnected state.
type StatusIndicator interface {
	Update(connected bool)
}

// PerfRecorder is an optional sink for per-cycle timings.
type PerfRecorder interface {
	RecordCycle(cycle string, duration time.Duration, applied bool)
}

// Config holds the cycle cadences.
type Config struct {
	UpdateInterval       time.Duration
	DisconnectedInterval time.Duration
	RefreshInterval      time.Duration
}

// DefaultConfig returns the standard 250ms / 1s / 5s cadences.
func DefaultConfig() Config {
	return Config{
		UpdateInterval:       250 * time.Millisecond,
		DisconnectedInterval: time.Second,
		RefreshInterval:      5 * time.Second,
	}
}

// Dependencies holds all collaborators of the loop. Perf, Status, Clock and
// Logger are optional.
type Dependencies struct {
	Ingest  Ingest
	Units   UnitStore
	Mission MissionStore
	Session SessionChecker
	Status  StatusIndicator
	Perf    PerfRecorder
	Clock   clock.Clock
	Logger  *slog.Logger
}

// Stats is a snapshot of loop counters.
type Stats struct {
	Applied  uint64 `json:"applied"`
	Stale    uint64 `json:"stale"`
	Failures uint64 `json:"failures"`
}

// ErrStopped is returned by Start after Stop.
var ErrStopped = errors.New("sync loop stopped")

// Loop runs the update and refresh cycles.
type Loop struct {
	deps      Dependencies
	cfg       Config
	scheduler *scheduler.Scheduler
	metrics   *metrics

	generation atomic.Uint64

	mu      sync.Mutex
	applied uint64
	started bool
	stopped bool

	appliedCount atomic.Uint64
	staleCount   atomic.Uint64
	failureCount atomic.Uint64
}

// New creates a Loop. Zero intervals in cfg take their default values.
func New(deps Dependencies, cfg Config) (*Loop, error) {
	def := DefaultConfig()
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = def.UpdateInterval
	}
	if cfg.DisconnectedInterval <= 0 {
		cfg.DisconnectedInterval = def.DisconnectedInterval
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = def.RefreshInterval
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Ingest == nil || deps.Units == nil || deps.Mission == nil || deps.Session == nil {
		return nil, errors.New("sync loop requires ingest, unit store, mission store and session checker")
	}

	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	return &Loop{
		deps:      deps,
		cfg:       cfg,
		scheduler: scheduler.New(deps.Clock, deps.Logger),
		metrics:   m,
	}, nil
}

// Start seeds the stores with one full fetch and then starts both cycles.
// Seed failures are logged; the cycles start regardless.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrStopped
	}
	if l.started {
		l.mu.Unlock()
		return nil
	}
	l.started = true
	l.mu.Unlock()

	if err := l.Seed(ctx); err != nil {
		l.deps.Logger.Warn("Initial fetch incomplete", "error", err)
	}

	l.scheduler.Schedule(ctx, CycleUpdate, l.updateInterval, l.Update)
	l.scheduler.Schedule(ctx, CycleRefresh, scheduler.Every(l.cfg.RefreshInterval), l.Refresh)
	l.deps.Logger.Info("Sync loop started",
		"update", l.cfg.UpdateInterval,
		"disconnected", l.cfg.DisconnectedInterval,
		"refresh", l.cfg.RefreshInterval)
	return nil
}

// Stop cancels both cycles and waits for in-flight ticks. Responses that arrive
// afterwards are discarded.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	l.mu.Unlock()

	l.scheduler.Stop()
	l.deps.Logger.Info("Sync loop stopped")
}

// Stopped reports whether Stop has been called.
func (l *Loop) Stopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

// Stats returns the loop counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Applied:  l.appliedCount.Load(),
		Stale:    l.staleCount.Load(),
		Failures: l.failureCount.Load(),
	}
}

// Seed fetches airbases, bullseyes and a full unit snapshot once.
func (l *Loop) Seed(ctx context.Context) error {
	var errs []error

	if err := l.fetchMission(ctx, CycleSeed); err != nil {
		errs = append(errs, err)
	}

	gen := l.generation.Add(1)
	data, err := l.deps.Ingest.FetchUnits(ctx, true)
	if err != nil {
		l.fail(ctx, CycleSeed, err)
		errs = append(errs, err)
	} else if l.applyUnits(ctx, CycleSeed, gen, data) {
		l.checkSession(ctx, data.SessionHash)
	}

	return errors.Join(errs...)
}

// Update is one tick of the fast cycle.
func (l *Loop) Update(ctx context.Context) {
	start := l.deps.Clock.Now()

	gen := l.generation.Add(1)
	data, err := l.deps.Ingest.FetchUnits(ctx, false)
	applied := false
	if err != nil {
		l.fail(ctx, CycleUpdate, err)
	} else if applied = l.applyUnits(ctx, CycleUpdate, gen, data); applied {
		l.checkSession(ctx, data.SessionHash)
	}

	if l.deps.Status != nil && !l.Stopped() {
		l.deps.Status.Update(l.deps.Ingest.Connected())
	}
	l.recordPerf(CycleUpdate, start, applied)
}

// Refresh is one tick of the slow cycle.
func (l *Loop) Refresh(ctx context.Context) {
	start := l.deps.Clock.Now()

	gen := l.generation.Add(1)
	data, err := l.deps.Ingest.FetchUnits(ctx, true)
	if err != nil {
		l.fail(ctx, CycleRefresh, err)
		l.recordPerf(CycleRefresh, start, false)
		return
	}

	applied := l.applyUnits(ctx, CycleRefresh, gen, data)
	if err := l.fetchMission(ctx, CycleRefresh); err != nil {
		l.deps.Logger.Debug("Mission refresh incomplete", "error", err)
	}
	if applied {
		l.checkSession(ctx, data.SessionHash)
	}
	l.recordPerf(CycleRefresh, start, applied)
}

func (l *Loop) updateInterval() time.Duration {
	if l.deps.Ingest.Connected() {
		return l.cfg.UpdateInterval
	}
	return l.cfg.DisconnectedInterval
}

// applyUnits hands data to the unit store unless the loop is stopped or a
// newer response has already been applied.
func (l *Loop) applyUnits(ctx context.Context, cycle string, gen uint64, data *core.UnitsData) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	if gen <= l.applied {
		latest := l.applied
		l.mu.Unlock()

		l.staleCount.Add(1)
		l.metrics.stale(ctx, cycle)
		l.deps.Logger.Debug("Dropped stale units response",
			"cycle", cycle, "generation", gen, "applied", latest)
		return false
	}
	l.applied = gen
	l.deps.Units.Update(data)
	l.mu.Unlock()

	l.appliedCount.Add(1)
	l.metrics.applied(ctx, cycle)
	return true
}

// checkSession reports hash to the session monitor unless the loop was
// stopped or its context cancelled while the tick was in flight.
func (l *Loop) checkSession(ctx context.Context, hash core.SessionHash) {
	if ctx.Err() != nil || l.Stopped() {
		return
	}
	l.deps.Session.Check(hash)
}

func (l *Loop) fetchMission(ctx context.Context, cycle string) error {
	var errs []error

	airbases, err := l.deps.Ingest.FetchAirbases(ctx)
	if err != nil {
		l.fail(ctx, cycle, err)
		errs = append(errs, err)
	} else if !l.Stopped() {
		l.deps.Mission.UpdateAirbases(airbases)
	}

	bullseyes, err := l.deps.Ingest.FetchBullseyes(ctx)
	if err != nil {
		l.fail(ctx, cycle, err)
		errs = append(errs, err)
	} else if !l.Stopped() {
		l.deps.Mission.UpdateBullseyes(bullseyes)
	}

	return errors.Join(errs...)
}

func (l *Loop) fail(ctx context.Context, cycle string, err error) {
	if ctx.Err() != nil {
		return
	}
	l.failureCount.Add(1)
	l.metrics.failed(ctx, cycle)
	l.deps.Logger.Debug("Sync request failed", "cycle", cycle, "error", err)
}

func (l *Loop) recordPerf(cycle string, start time.Time, applied bool) {
	if l.deps.Perf == nil {
		return
	}
	l.deps.Perf.RecordCycle(cycle, l.deps.Clock.Now().Sub(start), applied)
}
