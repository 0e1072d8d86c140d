package contextmenu

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/M-Chimiste/DCSOlympus/internal/area"
	"github.com/M-Chimiste/DCSOlympus/internal/dispatcher"
	"github.com/M-Chimiste/DCSOlympus/internal/groundunits"
	"github.com/M-Chimiste/DCSOlympus/pkg/core"
)

type iadsCall struct {
	area                  *area.CoalitionArea
	types, eras, ranges   map[string]bool
	density, distribution int
}

type mockUnits struct {
	mode  core.CommandMode
	mu    sync.Mutex
	calls []iadsCall
	err   error
}

func (m *mockUnits) CommandMode() core.CommandMode { return m.mode }

func (m *mockUnits) CreateIADS(_ context.Context, a *area.CoalitionArea, types, eras, ranges map[string]bool, density, distribution int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, iadsCall{a, types, eras, ranges, density, distribution})
	return m.err
}

func (m *mockUnits) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

var triangle = []core.LatLng{
	{Lat: 42.0, Lng: 41.0},
	{Lat: 42.5, Lng: 41.5},
	{Lat: 42.0, Lng: 42.0},
}

func newTestMenu(t *testing.T, mode core.CommandMode) (*Menu, *mockUnits, *area.Layer) {
	t.Helper()
	units := &mockUnits{mode: mode}
	layer := area.NewLayer(nil)
	m, err := New(Dependencies{
		Units:        units,
		Layer:        layer,
		Capabilities: groundunits.Default(),
	})
	require.NoError(t, err)
	return m, units, layer
}

func addArea(t *testing.T, layer *area.Layer, c core.Coalition) *area.CoalitionArea {
	t.Helper()
	a, err := layer.Add(triangle, c)
	require.NoError(t, err)
	return a
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Dependencies{})
	assert.Error(t, err)
}

func TestNew_OptionsDefaultChecked(t *testing.T) {
	m, _, _ := newTestMenu(t, core.GameMaster)

	cfg := m.Configuration()
	assert.Len(t, cfg.Types, len(core.IADSTypes))
	for _, label := range core.IADSTypes {
		assert.True(t, cfg.Types[label], label)
	}

	db := groundunits.Default()
	assert.Len(t, cfg.Eras, len(db.Eras()))
	for _, era := range db.Eras() {
		assert.True(t, cfg.Eras[era], era)
	}
	assert.Len(t, cfg.Ranges, len(db.Ranges()))
	for _, r := range db.Ranges() {
		assert.True(t, cfg.Ranges[r], r)
	}

	assert.Equal(t, 50, cfg.Density)
	assert.Equal(t, 50, cfg.Distribution)
	assert.False(t, m.IsOpen())
}

func TestShow_HidesSwitchOutsideGameMaster(t *testing.T) {
	m, _, _ := newTestMenu(t, core.BlueCommander)

	assert.Equal(t, Applied, m.Show(10, 20, core.LatLng{Lat: 1, Lng: 2}))
	assert.True(t, m.IsOpen())
	assert.True(t, m.CoalitionSwitch().Hidden())

	x, y, ll := m.Position()
	assert.Equal(t, 10, x)
	assert.Equal(t, 20, y)
	assert.Equal(t, core.LatLng{Lat: 1, Lng: 2}, ll)
}

func TestShow_GameMasterSeesSwitch(t *testing.T) {
	m, _, _ := newTestMenu(t, core.GameMaster)

	m.Show(0, 0, core.LatLng{})
	assert.False(t, m.CoalitionSwitch().Hidden())
}

func TestSetCoalitionArea_SyncsTagsAndSwitch(t *testing.T) {
	m, _, layer := newTestMenu(t, core.GameMaster)
	red := addArea(t, layer, core.CoalitionRed)

	assert.Equal(t, Applied, m.SetCoalitionArea(red))
	assert.Same(t, red, m.CoalitionArea())
	assert.True(t, m.CoalitionSwitch().Value())
	for el, c := range m.TaggedCoalitions() {
		assert.Equal(t, core.CoalitionRed, c, el)
	}

	blue := addArea(t, layer, core.CoalitionBlue)
	m.SetCoalitionArea(blue)
	assert.False(t, m.CoalitionSwitch().Value())
	assert.Equal(t, core.CoalitionBlue, m.ElementCoalition("iads-menu"))

	assert.Equal(t, NoArea, m.SetCoalitionArea(nil))
	assert.Nil(t, m.CoalitionArea())
}

func TestToggleSubmenu(t *testing.T) {
	m, _, _ := newTestMenu(t, core.GameMaster)

	assert.Equal(t, Closed, m.ToggleSubmenu(SubmenuIADS))
	assert.Equal(t, "", m.VisibleSubmenu())

	m.Show(0, 0, core.LatLng{})

	m.ToggleSubmenu(SubmenuIADS)
	assert.True(t, m.SubmenuVisible(SubmenuIADS))

	m.ToggleSubmenu(SubmenuIADS)
	assert.Equal(t, "", m.VisibleSubmenu())

	m.ToggleSubmenu(SubmenuIADS)
	m.ToggleSubmenu("labels")
	assert.True(t, m.SubmenuVisible("labels"))
	assert.False(t, m.SubmenuVisible(SubmenuIADS))

	m.Hide()
	assert.Equal(t, "", m.VisibleSubmenu())
}

func TestSetCoalitionSwitch_ExampleScenario(t *testing.T) {
	m, units, layer := newTestMenu(t, core.GameMaster)
	a := addArea(t, layer, core.CoalitionBlue)

	m.Show(0, 0, core.LatLng{})
	m.SetCoalitionArea(a)

	assert.Equal(t, Applied, m.ToggleCoalitionSwitch())
	assert.Equal(t, core.CoalitionRed, a.Coalition())
	for el, c := range m.TaggedCoalitions() {
		assert.Equal(t, core.CoalitionRed, c, el)
	}

	res, err := m.CreateIADS(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Applied, res)

	require.Len(t, units.calls, 1)
	call := units.calls[0]
	assert.Same(t, a, call.area)
	assert.Equal(t, map[string]bool{"AAA": true, "MANPADS": true, "SAM Site": true, "Radar": true}, call.types)
	assert.Len(t, call.eras, 5)
	assert.Len(t, call.ranges, 3)
	assert.Equal(t, 50, call.density)
	assert.Equal(t, 50, call.distribution)
}

func TestSetCoalitionSwitch_NotPrivileged(t *testing.T) {
	m, _, layer := newTestMenu(t, core.RedCommander)
	a := addArea(t, layer, core.CoalitionBlue)

	m.Show(0, 0, core.LatLng{})
	m.SetCoalitionArea(a)

	assert.Equal(t, NotPrivileged, m.ToggleCoalitionSwitch())
	assert.Equal(t, NotPrivileged, m.SetCoalitionSwitch(true))
	assert.Equal(t, NotPrivileged, m.SetCoalitionSwitch(false))
	assert.Equal(t, core.CoalitionBlue, a.Coalition())
	assert.Equal(t, core.CoalitionBlue, m.ElementCoalition("coalition-area-switch"))
}

func TestSetCoalitionSwitch_NoArea(t *testing.T) {
	m, _, _ := newTestMenu(t, core.GameMaster)

	assert.Equal(t, NoArea, m.SetCoalitionSwitch(true))
}

func TestCreateIADS_NoAreaSendsNothing(t *testing.T) {
	m, units, _ := newTestMenu(t, core.GameMaster)

	m.Show(0, 0, core.LatLng{})
	res, err := m.CreateIADS(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, NoArea, res)
	assert.Empty(t, units.calls)
}

func TestCreateIADS_ReadsControls(t *testing.T) {
	m, units, layer := newTestMenu(t, core.BlueCommander)
	a := addArea(t, layer, core.CoalitionBlue)
	m.SetCoalitionArea(a)

	require.NoError(t, m.Types().SetChecked("AAA", false))
	require.NoError(t, m.Eras().SetChecked("WW2", false))
	m.Density().SetValue(73)
	m.Distribution().SetValue(2)

	_, err := m.CreateIADS(context.Background())
	require.NoError(t, err)

	call := units.calls[0]
	assert.False(t, call.types["AAA"])
	assert.True(t, call.types["Radar"])
	assert.False(t, call.eras["WW2"])
	assert.Equal(t, 75, call.density)
	assert.Equal(t, 5, call.distribution)
}

func TestCreateIADS_PropagatesUnitError(t *testing.T) {
	m, units, layer := newTestMenu(t, core.GameMaster)
	units.err = errors.New("send failed")
	m.SetCoalitionArea(addArea(t, layer, core.CoalitionRed))

	res, err := m.CreateIADS(context.Background())
	assert.Equal(t, Applied, res)
	assert.EqualError(t, err, "send failed")
}

func TestBringToBackAndDelete(t *testing.T) {
	m, _, layer := newTestMenu(t, core.GameMaster)
	a1 := addArea(t, layer, core.CoalitionBlue)
	a2 := addArea(t, layer, core.CoalitionRed)

	m.Show(0, 0, core.LatLng{})
	m.SetCoalitionArea(a2)
	assert.Equal(t, Applied, m.BringToBack())
	assert.False(t, m.IsOpen())
	assert.Equal(t, []*area.CoalitionArea{a2, a1}, layer.Areas())

	m.Show(0, 0, core.LatLng{})
	m.SetCoalitionArea(a1)
	assert.Equal(t, Applied, m.Delete())
	assert.False(t, m.IsOpen())
	assert.Equal(t, []*area.CoalitionArea{a2}, layer.Areas())

	m.Show(0, 0, core.LatLng{})
	assert.Equal(t, NoArea, m.Delete())
	assert.False(t, m.IsOpen())
	assert.Equal(t, 1, layer.Len())
}

func TestRegister_RoutesCommands(t *testing.T) {
	m, units, layer := newTestMenu(t, core.GameMaster)
	d, err := dispatcher.New(nopLogger{})
	require.NoError(t, err)
	defer d.Close()

	m.Register(context.Background(), d)

	m.Show(0, 0, core.LatLng{})
	m.SetCoalitionArea(addArea(t, layer, core.CoalitionBlue))

	cmd, err := dispatcher.FromClick("coalitionAreaContextMenuShow", `{"type":"iads"}`)
	require.NoError(t, err)
	results, err := d.Dispatch(cmd)
	require.NoError(t, err)
	assert.Equal(t, []any{Applied}, results)
	assert.True(t, m.SubmenuVisible(SubmenuIADS))

	results, err = d.Dispatch(dispatcher.CreateAreaEffect{})
	require.NoError(t, err)
	assert.Equal(t, []any{"queued"}, results)
	require.Eventually(t, func() bool { return units.callCount() == 1 }, time.Second, 5*time.Millisecond)

	results, err = d.Dispatch(dispatcher.DeleteArea{})
	require.NoError(t, err)
	assert.Equal(t, []any{Applied}, results)
	assert.Equal(t, 0, layer.Len())

	results, err = d.Dispatch(dispatcher.BringAreaToBack{})
	require.NoError(t, err)
	assert.Equal(t, []any{NoArea}, results)
}

func TestToggleSubmenu_ConcurrentTogglesAlternate(t *testing.T) {
	m, _, _ := newTestMenu(t, core.GameMaster)
	m.Show(0, 0, core.LatLng{})

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			m.ToggleSubmenu(SubmenuIADS)
		}()
	}
	wg.Wait()

	// An even number of toggles always ends hidden.
	assert.False(t, m.SubmenuVisible(SubmenuIADS))
	assert.Equal(t, Applied, m.ToggleSubmenu(SubmenuIADS))
	assert.True(t, m.SubmenuVisible(SubmenuIADS))
}

func TestRegister_CreateQueueFullIsReported(t *testing.T) {
	units := &blockingUnits{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	layer := area.NewLayer(nil)
	m, err := New(Dependencies{Units: units, Layer: layer, Capabilities: groundunits.Default()})
	require.NoError(t, err)
	d, err := dispatcher.New(nopLogger{})
	require.NoError(t, err)
	defer d.Close()
	defer close(units.release)
	m.Register(context.Background(), d)

	m.Show(0, 0, core.LatLng{})
	m.SetCoalitionArea(addArea(t, layer, core.CoalitionRed))

	_, err = d.Dispatch(dispatcher.CreateAreaEffect{})
	require.NoError(t, err)
	<-units.entered

	for i := 0; i < createQueueSize; i++ {
		_, err := d.Dispatch(dispatcher.CreateAreaEffect{})
		require.NoError(t, err)
	}
	_, err = d.Dispatch(dispatcher.CreateAreaEffect{})
	assert.ErrorIs(t, err, dispatcher.ErrQueueFull)
}

// blockingUnits holds the first CreateIADS until release is closed.
type blockingUnits struct {
	release chan struct{}
	entered chan struct{}
}

func (b *blockingUnits) CommandMode() core.CommandMode { return core.GameMaster }

func (b *blockingUnits) CreateIADS(context.Context, *area.CoalitionArea, map[string]bool, map[string]bool, map[string]bool, int, int) error {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return nil
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "applied", Applied.String())
	assert.Equal(t, "no-area", NoArea.String())
	assert.Equal(t, "not-privileged", NotPrivileged.String())
	assert.Equal(t, "closed", Closed.String())
}
