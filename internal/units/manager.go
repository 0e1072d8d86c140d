// Package units issues unit-management commands (IADS creation) on behalf of
// the operator.
package units

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/M-Chimiste/DCSOlympus/internal/area"
	"github.com/M-Chimiste/DCSOlympus/internal/groundunits"
	"github.com/M-Chimiste/DCSOlympus/internal/journal"
	"github.com/M-Chimiste/DCSOlympus/pkg/core"
	"github.com/M-Chimiste/DCSOlympus/pkg/streaming"
)

// Sender delivers a command envelope to the server.
type Sender interface {
	Send(ctx context.Context, env streaming.Envelope) error
}

// Recorder keeps a record of issued commands.
type Recorder interface {
	RecordCommand(ctx context.Context, cmd journal.Command) error
}

// Dependencies holds the collaborators of a Manager. Recorder, GroundUnits and
// Logger are optional.
type Dependencies struct {
	Sender      Sender
	Recorder    Recorder
	GroundUnits *groundunits.Database
	Logger      *slog.Logger
}

// Manager composes and sends unit commands.
type Manager struct {
	mu   sync.RWMutex
	mode core.CommandMode

	deps Dependencies
}

// NewManager creates a manager operating in the given command mode.
func NewManager(deps Dependencies, mode core.CommandMode) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.GroundUnits == nil {
		deps.GroundUnits = groundunits.Default()
	}
	return &Manager{mode: mode, deps: deps}
}

// CommandMode returns the operator's current privilege level.
func (m *Manager) CommandMode() core.CommandMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

// SetCommandMode changes the operator's privilege level.
func (m *Manager) SetCommandMode(mode core.CommandMode) {
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
}

// CreateIADS asks the server to generate an air-defense network over the area.
// The filter maps are sent as given, one entry per option.
func (m *Manager) CreateIADS(ctx context.Context, a *area.CoalitionArea, types, eras, ranges map[string]bool, density, distribution int) error {
	if a == nil {
		return fmt.Errorf("create IADS: no area")
	}

	cfg := core.IADSConfiguration{
		Types:        types,
		Eras:         eras,
		Ranges:       ranges,
		Density:      density,
		Distribution: distribution,
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("create IADS: %w", err)
	}

	candidates := m.deps.GroundUnits.Select(types, eras, ranges)
	if len(candidates) == 0 {
		m.deps.Logger.Warn("IADS filters match no ground units", "area", a.ID())
	}

	payload := streaming.CreateIADSPayload{
		Area: streaming.AreaPayload{
			ID:        a.ID(),
			Coalition: a.Coalition(),
			Vertices:  a.Vertices(),
			WKT:       a.WKT(),
			Centroid:  a.Centroid(),
			AreaSqM:   a.AreaSqM(),
		},
		Config: cfg,
	}

	env, err := streaming.NewEnvelope(streaming.TypeCreateIADS, payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", streaming.TypeCreateIADS, err)
	}

	sendErr := m.deps.Sender.Send(ctx, env)
	if sendErr != nil {
		m.deps.Logger.Error("IADS command failed", "area", a.ID(), "error", sendErr)
	} else {
		m.deps.Logger.Info("IADS command sent",
			"area", a.ID(),
			"coalition", payload.Area.Coalition,
			"density", density,
			"distribution", distribution,
			"candidates", len(candidates))
	}

	if m.deps.Recorder != nil {
		rec := journal.Command{
			Type:        streaming.TypeCreateIADS,
			AreaID:      a.ID(),
			Coalition:   payload.Area.Coalition,
			CommandMode: m.CommandMode(),
			Payload:     payload,
			Err:         sendErr,
		}
		if err := m.deps.Recorder.RecordCommand(ctx, rec); err != nil {
			m.deps.Logger.Warn("Failed to journal command", "type", rec.Type, "error", err)
		}
	}

	if sendErr != nil {
		return fmt.Errorf("create IADS: %w", sendErr)
	}
	return nil
}
