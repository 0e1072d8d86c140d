package syncloop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/M-Chimiste/DCSOlympus/internal/cache"
	"github.com/M-Chimiste/DCSOlympus/internal/clock"
	"github.com/M-Chimiste/DCSOlympus/internal/mission"
	"github.com/M-Chimiste/DCSOlympus/internal/session"
	"github.com/M-Chimiste/DCSOlympus/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeIngest serves canned payloads and counts requests.
type fakeIngest struct {
	mu          sync.Mutex
	hash        core.SessionHash
	unitsErr    error
	fullCalls   int
	deltaCalls  int
	airbaseHits int
	connected   atomic.Bool
}

func (f *fakeIngest) FetchUnits(ctx context.Context, fullRefresh bool) (*core.UnitsData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fullRefresh {
		f.fullCalls++
	} else {
		f.deltaCalls++
	}
	if f.unitsErr != nil {
		return nil, f.unitsErr
	}
	return &core.UnitsData{
		Units:       map[string]core.Unit{"1": {ID: 1, Name: "SA-10"}},
		SessionHash: f.hash,
		FullRefresh: fullRefresh,
	}, nil
}

func (f *fakeIngest) FetchAirbases(ctx context.Context) (*core.AirbasesData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.airbaseHits++
	return &core.AirbasesData{
		Airbases:    map[string]core.Airbase{"0": {Callsign: "Batumi"}},
		SessionHash: f.hash,
	}, nil
}

func (f *fakeIngest) FetchBullseyes(ctx context.Context) (*core.BullseyesData, error) {
	return &core.BullseyesData{
		Bullseyes:   map[string]core.Bullseye{"2": {Coalition: core.CoalitionBlue}},
		SessionHash: f.hash,
	}, nil
}

func (f *fakeIngest) Connected() bool { return f.connected.Load() }

func (f *fakeIngest) setHash(h core.SessionHash) {
	f.mu.Lock()
	f.hash = h
	f.mu.Unlock()
}

func (f *fakeIngest) counts() (full, delta, airbases int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fullCalls, f.deltaCalls, f.airbaseHits
}

type statusRecorder struct {
	mu     sync.Mutex
	values []bool
}

func (s *statusRecorder) Update(connected bool) {
	s.mu.Lock()
	s.values = append(s.values, connected)
	s.mu.Unlock()
}

func (s *statusRecorder) last() (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return false, 0
	}
	return s.values[len(s.values)-1], len(s.values)
}

type reloadCounter struct {
	n atomic.Int32
}

func (r *reloadCounter) Reload(string) { r.n.Add(1) }

type fixture struct {
	loop    *Loop
	ingest  *fakeIngest
	units   *cache.UnitCache
	mission *mission.Context
	monitor *session.Monitor
	reloads *reloadCounter
	status  *statusRecorder
	clock   *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ingest:  &fakeIngest{hash: "session-a"},
		units:   cache.NewUnitCache(),
		mission: mission.NewContext(),
		reloads: &reloadCounter{},
		status:  &statusRecorder{},
		clock:   clock.NewFake(epoch),
	}
	f.ingest.connected.Store(true)
	f.monitor = session.NewMonitor(f.reloads, nil, nil)

	loop, err := New(Dependencies{
		Ingest:  f.ingest,
		Units:   f.units,
		Mission: f.mission,
		Session: f.monitor,
		Status:  f.status,
		Clock:   f.clock,
	}, DefaultConfig())
	require.NoError(t, err)
	f.loop = loop
	t.Cleanup(loop.Stop)
	return f
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Dependencies{}, Config{})
	assert.Error(t, err)
}

func TestSeed_PopulatesStoresAndBaseline(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.loop.Seed(context.Background()))

	assert.Equal(t, 1, f.units.Len())
	assert.Len(t, f.mission.Airbases(), 1)
	assert.Len(t, f.mission.Bullseyes(), 1)
	assert.Equal(t, core.SessionHash("session-a"), f.monitor.Baseline())

	full, delta, _ := f.ingest.counts()
	assert.Equal(t, 1, full)
	assert.Equal(t, 0, delta)
}

func TestStart_RunsBothCyclesOnTheirCadence(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.loop.Start(context.Background()))

	// Seed plus the immediate first run of each cycle.
	f.clock.WaitForTimers(2)
	full, delta, airbases := f.ingest.counts()
	assert.Equal(t, 2, full)
	assert.Equal(t, 1, delta)
	assert.Equal(t, 2, airbases)

	// Nineteen connected update ticks before the refresh is due again.
	for i := 0; i < 19; i++ {
		f.clock.Advance(250 * time.Millisecond)
		f.clock.WaitForTimers(2)
	}
	full, delta, _ = f.ingest.counts()
	assert.Equal(t, 2, full)
	assert.Equal(t, 20, delta)

	f.clock.Advance(250 * time.Millisecond)
	f.clock.WaitForTimers(2)
	full, delta, airbases = f.ingest.counts()
	assert.Equal(t, 3, full)
	assert.Equal(t, 21, delta)
	assert.Equal(t, 3, airbases)

	connected, n := f.status.last()
	assert.True(t, connected)
	assert.Equal(t, 21, n)
	assert.Zero(t, f.reloads.n.Load())
}

func TestStart_DisconnectedSlowsUpdates(t *testing.T) {
	f := newFixture(t)
	f.ingest.connected.Store(false)

	require.NoError(t, f.loop.Start(context.Background()))
	f.clock.WaitForTimers(2)

	f.clock.Advance(250 * time.Millisecond)
	_, delta, _ := f.ingest.counts()
	assert.Equal(t, 1, delta)

	f.clock.Advance(750 * time.Millisecond)
	f.clock.WaitForTimers(2)
	_, delta, _ = f.ingest.counts()
	assert.Equal(t, 2, delta)

	connected, _ := f.status.last()
	assert.False(t, connected)
}

func TestStart_AfterStop(t *testing.T) {
	f := newFixture(t)
	f.loop.Stop()

	assert.ErrorIs(t, f.loop.Start(context.Background()), ErrStopped)
}

func TestUpdate_SessionChangeTriggersReload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.loop.Update(ctx)
	f.loop.Update(ctx)
	assert.Zero(t, f.reloads.n.Load())

	f.ingest.setHash("session-b")
	f.loop.Update(ctx)
	assert.Equal(t, int32(1), f.reloads.n.Load())

	f.loop.Refresh(ctx)
	assert.Equal(t, int32(2), f.reloads.n.Load())
}

func TestApplyUnits_DropsStaleResponses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	older := f.loop.generation.Add(1) // a full refresh sent first
	newer := f.loop.generation.Add(1) // a delta sent afterwards

	delta := &core.UnitsData{Units: map[string]core.Unit{"1": {ID: 1, Alive: false}}, Time: 2000}
	full := &core.UnitsData{Units: map[string]core.Unit{"1": {ID: 1, Alive: true}}, Time: 1000, FullRefresh: true}

	// The delta arrives first, then the slower full refresh.
	assert.True(t, f.loop.applyUnits(ctx, CycleUpdate, newer, delta))
	assert.False(t, f.loop.applyUnits(ctx, CycleRefresh, older, full))

	u, ok := f.units.GetUnit(1)
	require.True(t, ok)
	assert.False(t, u.Alive, "stale full refresh must not overwrite the newer delta")
	assert.Equal(t, int64(2000), f.units.ServerTime(), "delta cursor follows the applied payload")
	assert.Equal(t, Stats{Applied: 1, Stale: 1}, f.loop.Stats())
}

func TestRefresh_StaleResponseSkipsSessionCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.monitor.Check("session-a")

	// Pretend a later request was already applied.
	f.loop.mu.Lock()
	f.loop.applied = 100
	f.loop.mu.Unlock()

	f.ingest.setHash("session-b")
	f.loop.Refresh(ctx)

	assert.Zero(t, f.reloads.n.Load())
	assert.Equal(t, uint64(1), f.loop.Stats().Stale)
	_, _, airbases := f.ingest.counts()
	assert.Equal(t, 1, airbases, "mission data is still refreshed")
}

func TestApplyUnits_NoopAfterStop(t *testing.T) {
	f := newFixture(t)
	f.loop.Stop()

	gen := f.loop.generation.Add(1)
	assert.False(t, f.loop.applyUnits(context.Background(), CycleUpdate, gen, &core.UnitsData{
		Units: map[string]core.Unit{"1": {ID: 1}},
	}))
	assert.Equal(t, 0, f.units.Len())

	f.loop.Refresh(context.Background())
	assert.Empty(t, f.mission.Airbases())
}

// gatedIngest parks FetchAirbases until release is closed or ctx is done.
type gatedIngest struct {
	*fakeIngest
	entered chan struct{}
	release chan struct{}
}

func (g *gatedIngest) FetchAirbases(ctx context.Context) (*core.AirbasesData, error) {
	close(g.entered)
	select {
	case <-g.release:
		return g.fakeIngest.FetchAirbases(ctx)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestRefresh_TornDownMidTickSkipsSessionCheck(t *testing.T) {
	ingest := &gatedIngest{
		fakeIngest: &fakeIngest{hash: "session-b"},
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	reloads := &reloadCounter{}
	monitor := session.NewMonitor(reloads, nil, nil)
	monitor.Check("session-a")

	loop, err := New(Dependencies{
		Ingest:  ingest,
		Units:   cache.NewUnitCache(),
		Mission: mission.NewContext(),
		Session: monitor,
		Clock:   clock.NewFake(epoch),
	}, Config{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Refresh(ctx)
		close(done)
	}()

	<-ingest.entered
	loop.Stop()
	cancel()
	<-done

	assert.True(t, loop.Stopped())
	assert.Zero(t, reloads.n.Load())
	assert.Equal(t, uint64(1), loop.Stats().Applied, "units were applied before teardown")
}

func TestUpdate_CancelledContextSkipsSessionCheck(t *testing.T) {
	f := newFixture(t)
	f.monitor.Check("session-a")
	f.ingest.setHash("session-b")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.loop.Update(ctx)

	assert.Zero(t, f.reloads.n.Load())
}

func TestUpdate_FetchFailureIsCountedAndSkipped(t *testing.T) {
	f := newFixture(t)
	f.ingest.unitsErr = errors.New("connection refused")

	f.loop.Update(context.Background())
	f.loop.Refresh(context.Background())

	assert.Equal(t, Stats{Failures: 2}, f.loop.Stats())
	assert.Equal(t, 0, f.units.Len())
	assert.Equal(t, core.SessionHash(""), f.monitor.Baseline())
}

type perfRecorder struct {
	mu     sync.Mutex
	cycles []string
}

func (p *perfRecorder) RecordCycle(cycle string, d time.Duration, applied bool) {
	p.mu.Lock()
	p.cycles = append(p.cycles, cycle)
	p.mu.Unlock()
}

func TestPerfRecorder(t *testing.T) {
	ingest := &fakeIngest{hash: "h"}
	perf := &perfRecorder{}
	loop, err := New(Dependencies{
		Ingest:  ingest,
		Units:   cache.NewUnitCache(),
		Mission: mission.NewContext(),
		Session: session.NewMonitor(&reloadCounter{}, nil, nil),
		Perf:    perf,
		Clock:   clock.NewFake(epoch),
	}, Config{})
	require.NoError(t, err)

	loop.Update(context.Background())
	loop.Refresh(context.Background())

	assert.Equal(t, []string{CycleUpdate, CycleRefresh}, perf.cycles)
}
