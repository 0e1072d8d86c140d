package console

import (
	"fmt"

	"github.com/M-Chimiste/DCSOlympus/internal/area"
	"github.com/M-Chimiste/DCSOlympus/internal/cache"
	"github.com/M-Chimiste/DCSOlympus/internal/contextmenu"
	"github.com/M-Chimiste/DCSOlympus/internal/dispatcher"
	"github.com/M-Chimiste/DCSOlympus/internal/display"
	"github.com/M-Chimiste/DCSOlympus/internal/features"
	"github.com/M-Chimiste/DCSOlympus/internal/journal"
	"github.com/M-Chimiste/DCSOlympus/internal/mission"
	"github.com/M-Chimiste/DCSOlympus/internal/monitor"
	"github.com/M-Chimiste/DCSOlympus/internal/session"
	"github.com/M-Chimiste/DCSOlympus/internal/syncloop"
	"github.com/M-Chimiste/DCSOlympus/internal/units"
	"github.com/M-Chimiste/DCSOlympus/pkg/core"
)

// sessionObserver keeps the hash shown in log records and forwards session
// events to the journal when there is one.
type sessionObserver struct {
	app     *App
	journal *journal.Journal
}

func (o *sessionObserver) BaselineCaptured(hash core.SessionHash) {
	o.app.sessionHash.Store(string(hash))
	if o.journal != nil {
		o.journal.BaselineCaptured(hash)
	}
}

func (o *sessionObserver) SessionChanged(baseline, candidate core.SessionHash) {
	if o.journal != nil {
		o.journal.SessionChanged(baseline, candidate)
	}
}

// HandleClick decodes a declarative on-click pair and dispatches it.
func (a *App) HandleClick(eventName, params string) ([]any, error) {
	c, err := a.current()
	if err != nil {
		return nil, err
	}
	cmd, err := dispatcher.FromClick(eventName, params)
	if err != nil {
		return nil, err
	}
	return c.dispatcher.Dispatch(cmd)
}

// HandleKey dispatches the command bound to a key code. Unbound keys report false.
func (a *App) HandleKey(code string) (bool, error) {
	c, err := a.current()
	if err != nil {
		return false, err
	}
	cmd, ok := dispatcher.FromKey(code)
	if !ok {
		return false, nil
	}
	_, err = c.dispatcher.Dispatch(cmd)
	return true, err
}

// AddArea draws a coalition area on the layer.
func (a *App) AddArea(vertices []core.LatLng, coalition core.Coalition) (*area.CoalitionArea, error) {
	c, err := a.current()
	if err != nil {
		return nil, err
	}
	return c.layer.Add(vertices, coalition)
}

// OpenAreaMenu opens the context menu at a screen position and binds it to the
// area with the given id.
func (a *App) OpenAreaMenu(id uint64, x, y int, latlng core.LatLng) (contextmenu.Result, error) {
	c, err := a.current()
	if err != nil {
		return contextmenu.Closed, err
	}
	ar, ok := c.layer.Get(id)
	if !ok {
		return contextmenu.NoArea, fmt.Errorf("no coalition area %d", id)
	}
	c.menu.Show(x, y, latlng)
	return c.menu.SetCoalitionArea(ar), nil
}

// SetCommandMode changes the operator privilege level for the running console.
func (a *App) SetCommandMode(mode core.CommandMode) error {
	c, err := a.current()
	if err != nil {
		return err
	}
	c.units.SetCommandMode(mode)
	a.Logger.Info("Command mode changed", "mode", mode)
	return nil
}

// The accessors below return nil when the console is not initialized.

func (a *App) Menu() *contextmenu.Menu {
	if c, err := a.current(); err == nil {
		return c.menu
	}
	return nil
}

func (a *App) Dispatcher() *dispatcher.Dispatcher {
	if c, err := a.current(); err == nil {
		return c.dispatcher
	}
	return nil
}

func (a *App) Layer() *area.Layer {
	if c, err := a.current(); err == nil {
		return c.layer
	}
	return nil
}

func (a *App) UnitCache() *cache.UnitCache {
	if c, err := a.current(); err == nil {
		return c.unitCache
	}
	return nil
}

func (a *App) Mission() *mission.Context {
	if c, err := a.current(); err == nil {
		return c.mission
	}
	return nil
}

func (a *App) Monitor() *session.Monitor {
	if c, err := a.current(); err == nil {
		return c.monitor
	}
	return nil
}

func (a *App) Display() *display.Attributes {
	if c, err := a.current(); err == nil {
		return c.display
	}
	return nil
}

func (a *App) Features() *features.Registry {
	if c, err := a.current(); err == nil {
		return c.features
	}
	return nil
}

func (a *App) Units() *units.Manager {
	if c, err := a.current(); err == nil {
		return c.units
	}
	return nil
}

func (a *App) Loop() *syncloop.Loop {
	if c, err := a.current(); err == nil {
		return c.loop
	}
	return nil
}

func (a *App) StatusMonitor() *monitor.Service {
	if c, err := a.current(); err == nil {
		return c.status
	}
	return nil
}

func (a *App) Journal() *journal.Journal {
	if c, err := a.current(); err == nil {
		return c.journal
	}
	return nil
}
