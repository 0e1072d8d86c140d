// Package contextmenu implements the coalition area context menu: submenu
// state, coalition reassignment and IADS command composition.
package contextmenu

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/M-Chimiste/DCSOlympus/internal/area"
	"github.com/M-Chimiste/DCSOlympus/internal/dispatcher"
	"github.com/M-Chimiste/DCSOlympus/internal/widgets"
	"github.com/M-Chimiste/DCSOlympus/pkg/core"
)

// SubmenuIADS is the IADS composition submenu.
const SubmenuIADS = "iads"

// Default slider position for density and distribution.
const defaultPercentage = 50

// Elements whose coalition attribute mirrors the bound area.
var TaggedElements = []string{
	"coalition-area-contextmenu",
	"coalition-area-switch",
	"iads-button",
	"iads-menu",
	"iads-create-button",
}

// Result reports what an operation did. Operations never fail for missing
// context; they report it.
type Result int

const (
	// Applied means the operation took effect.
	Applied Result = iota
	// NoArea means no coalition area was bound.
	NoArea
	// NotPrivileged means the command mode does not allow the operation.
	NotPrivileged
	// Closed means the menu was not open.
	Closed
)

func (r Result) String() string {
	switch r {
	case Applied:
		return "applied"
	case NoArea:
		return "no-area"
	case NotPrivileged:
		return "not-privileged"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// UnitManager executes composed commands and knows the operator's command mode.
type UnitManager interface {
	CommandMode() core.CommandMode
	CreateIADS(ctx context.Context, a *area.CoalitionArea, types, eras, ranges map[string]bool, density, distribution int) error
}

// AreaLayer is the map component owning the areas.
type AreaLayer interface {
	BringToBack(a *area.CoalitionArea) bool
	Delete(a *area.CoalitionArea) bool
}

// Capabilities supplies the era and range option lists.
type Capabilities interface {
	Eras() []string
	Ranges() []string
}

// Dependencies holds the menu's collaborators. Logger is optional.
type Dependencies struct {
	Units        UnitManager
	Layer        AreaLayer
	Capabilities Capabilities
	Logger       *slog.Logger
}

// Menu is the coalition area context menu.
type Menu struct {
	mu      sync.Mutex
	open    bool
	x, y    int
	latlng  core.LatLng
	submenu string
	area    *area.CoalitionArea
	tagged  map[string]core.Coalition

	coalitionSwitch *widgets.Switch
	density         *widgets.Slider
	distribution    *widgets.Slider
	types           *widgets.Dropdown
	eras            *widgets.Dropdown
	ranges          *widgets.Dropdown

	deps Dependencies
}

// New builds a closed menu. Checkbox options are populated once here from the
// IADS type taxonomy and the capability lists, all checked.
func New(deps Dependencies) (*Menu, error) {
	if deps.Units == nil || deps.Layer == nil || deps.Capabilities == nil {
		return nil, fmt.Errorf("context menu requires units, layer and capabilities")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	density, err := widgets.NewSlider(core.MinPercentage, core.MaxPercentage, core.PercentageStep, defaultPercentage)
	if err != nil {
		return nil, err
	}
	distribution, err := widgets.NewSlider(core.MinPercentage, core.MaxPercentage, core.PercentageStep, defaultPercentage)
	if err != nil {
		return nil, err
	}

	m := &Menu{
		tagged:          make(map[string]core.Coalition, len(TaggedElements)),
		coalitionSwitch: widgets.NewSwitch(nil),
		density:         density,
		distribution:    distribution,
		types:           widgets.NewCheckboxDropdown(core.IADSTypes),
		eras:            widgets.NewCheckboxDropdown(deps.Capabilities.Eras()),
		ranges:          widgets.NewCheckboxDropdown(deps.Capabilities.Ranges()),
		deps:            deps,
	}
	for _, el := range TaggedElements {
		m.tagged[el] = ""
	}
	return m, nil
}

// Show opens the menu at a screen position for a map location. Outside game
// master mode the coalition switch is hidden.
func (m *Menu) Show(x, y int, latlng core.LatLng) Result {
	m.mu.Lock()
	m.open = true
	m.x, m.y = x, y
	m.latlng = latlng
	m.mu.Unlock()

	if m.deps.Units.CommandMode().Privileged() {
		m.coalitionSwitch.Show()
	} else {
		m.coalitionSwitch.Hide()
	}
	return Applied
}

// Hide closes the menu, hides any submenu and releases the bound area.
func (m *Menu) Hide() Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	m.submenu = ""
	m.area = nil
	return Applied
}

// IsOpen reports whether the menu is open.
func (m *Menu) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Position returns the screen and map position the menu was opened at.
func (m *Menu) Position() (x, y int, latlng core.LatLng) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.x, m.y, m.latlng
}

// SetCoalitionArea binds the menu to an area and syncs every tagged element
// and the coalition switch to its coalition. A nil area unbinds.
func (m *Menu) SetCoalitionArea(a *area.CoalitionArea) Result {
	m.mu.Lock()
	m.area = a
	if a == nil {
		m.mu.Unlock()
		return NoArea
	}
	coalition := a.Coalition()
	m.syncTagsLocked(coalition)
	m.mu.Unlock()

	m.coalitionSwitch.SetValue(coalition == core.CoalitionRed)
	return Applied
}

// CoalitionArea returns the bound area, or nil.
func (m *Menu) CoalitionArea() *area.CoalitionArea {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.area
}

// ToggleSubmenu hides the submenu if it is already visible, otherwise shows
// exactly that submenu.
func (m *Menu) ToggleSubmenu(submenu string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submenu == submenu {
		m.submenu = ""
		return Applied
	}
	return m.showSubmenuLocked(submenu)
}

// ShowSubmenu makes submenu the only visible one.
func (m *Menu) ShowSubmenu(submenu string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.showSubmenuLocked(submenu)
}

func (m *Menu) showSubmenuLocked(submenu string) Result {
	if !m.open {
		return Closed
	}
	m.submenu = submenu
	return Applied
}

// HideSubmenus hides every submenu.
func (m *Menu) HideSubmenus() Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submenu = ""
	return Applied
}

// VisibleSubmenu returns the visible submenu, or "" when none is.
func (m *Menu) VisibleSubmenu() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submenu
}

// SubmenuVisible reports whether the named submenu is visible.
func (m *Menu) SubmenuVisible(submenu string) bool {
	return m.VisibleSubmenu() == submenu
}

// SetCoalitionSwitch is the coalition switch handler: true means red, false
// blue. It reassigns the bound area only in game master mode.
func (m *Menu) SetCoalitionSwitch(red bool) Result {
	if !m.deps.Units.CommandMode().Privileged() {
		return NotPrivileged
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.area == nil {
		return NoArea
	}

	coalition := core.CoalitionBlue
	if red {
		coalition = core.CoalitionRed
	}
	if err := m.area.SetCoalition(coalition); err != nil {
		m.deps.Logger.Error("Failed to reassign coalition area", "area", m.area.ID(), "error", err)
		return NoArea
	}
	m.coalitionSwitch.SetValue(red)
	m.syncTagsLocked(coalition)
	m.deps.Logger.Debug("Coalition area reassigned", "area", m.area.ID(), "coalition", coalition)
	return Applied
}

// ToggleCoalitionSwitch flips the coalition switch as the operator would.
// A hidden switch cannot be flipped.
func (m *Menu) ToggleCoalitionSwitch() Result {
	if m.coalitionSwitch.Hidden() {
		return NotPrivileged
	}
	return m.SetCoalitionSwitch(!m.coalitionSwitch.Value())
}

// ElementCoalition returns the coalition attribute of a tagged element.
func (m *Menu) ElementCoalition(element string) core.Coalition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tagged[element]
}

// TaggedCoalitions returns a copy of every tagged element's coalition attribute.
func (m *Menu) TaggedCoalitions() map[string]core.Coalition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]core.Coalition, len(m.tagged))
	for k, v := range m.tagged {
		out[k] = v
	}
	return out
}

// BringToBack sends the bound area to the back of the map, then closes the menu.
func (m *Menu) BringToBack() Result {
	a := m.CoalitionArea()
	if a != nil {
		m.deps.Layer.BringToBack(a)
	}
	m.Hide()
	if a == nil {
		return NoArea
	}
	return Applied
}

// Delete removes the bound area from the map, then closes the menu.
func (m *Menu) Delete() Result {
	a := m.CoalitionArea()
	if a != nil {
		m.deps.Layer.Delete(a)
	}
	m.Hide()
	if a == nil {
		return NoArea
	}
	return Applied
}

// CreateIADS composes the IADS configuration from the menu controls and
// forwards it with the bound area to the unit manager. The error is the unit
// manager's; missing context is reported through the Result only.
func (m *Menu) CreateIADS(ctx context.Context) (Result, error) {
	a := m.CoalitionArea()
	if a == nil {
		return NoArea, nil
	}

	cfg := m.Configuration()
	err := m.deps.Units.CreateIADS(ctx, a, cfg.Types, cfg.Eras, cfg.Ranges, cfg.Density, cfg.Distribution)
	return Applied, err
}

// Configuration reads the current control state.
func (m *Menu) Configuration() core.IADSConfiguration {
	return core.IADSConfiguration{
		Types:        m.types.Values(),
		Eras:         m.eras.Values(),
		Ranges:       m.ranges.Values(),
		Density:      m.density.Value(),
		Distribution: m.distribution.Value(),
	}
}

// Types returns the unit type dropdown.
func (m *Menu) Types() *widgets.Dropdown { return m.types }

// Eras returns the era dropdown.
func (m *Menu) Eras() *widgets.Dropdown { return m.eras }

// Ranges returns the range dropdown.
func (m *Menu) Ranges() *widgets.Dropdown { return m.ranges }

// Density returns the density slider.
func (m *Menu) Density() *widgets.Slider { return m.density }

// Distribution returns the distribution slider.
func (m *Menu) Distribution() *widgets.Slider { return m.distribution }

// CoalitionSwitch returns the coalition switch.
func (m *Menu) CoalitionSwitch() *widgets.Switch { return m.coalitionSwitch }

func (m *Menu) syncTagsLocked(c core.Coalition) {
	for el := range m.tagged {
		m.tagged[el] = c
	}
}

// createQueueSize bounds IADS requests waiting for the command sender.
const createQueueSize = 8

// Register subscribes the menu to its commands on d. ctx bounds commands sent
// on behalf of the menu. CreateAreaEffect is served from a queue so a slow
// sender does not hold up the bus; its dispatch result is "queued".
func (m *Menu) Register(ctx context.Context, d *dispatcher.Dispatcher) {
	dispatcher.On(d, func(c dispatcher.ShowSubmenu) (any, error) {
		return m.ToggleSubmenu(c.Type), nil
	}, dispatcher.Logged())
	dispatcher.On(d, func(dispatcher.BringAreaToBack) (any, error) {
		return m.BringToBack(), nil
	}, dispatcher.Logged())
	dispatcher.On(d, func(dispatcher.DeleteArea) (any, error) {
		return m.Delete(), nil
	}, dispatcher.Logged())
	dispatcher.On(d, func(dispatcher.CreateAreaEffect) (any, error) {
		res, err := m.CreateIADS(ctx)
		if res != Applied {
			m.deps.Logger.Info("IADS request skipped", "result", res.String())
		}
		return res, err
	}, dispatcher.Buffered(createQueueSize), dispatcher.Logged())
}
