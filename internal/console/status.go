package console

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// StatusPanel tracks the connection indicator and logs every transition.
type StatusPanel struct {
	mu          sync.Mutex
	known       bool
	transitions int

	connected atomic.Bool
	logger    *slog.Logger
}

// NewStatusPanel creates a panel in the unknown state.
func NewStatusPanel(logger *slog.Logger) *StatusPanel {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusPanel{logger: logger}
}

// Update sets the indicator. It is called on every update tick, so only changes are logged.
func (p *StatusPanel) Update(connected bool) {
	p.mu.Lock()
	changed := !p.known || p.connected.Load() != connected
	p.known = true
	p.connected.Store(connected)
	if changed {
		p.transitions++
	}
	p.mu.Unlock()

	if !changed {
		return
	}
	if connected {
		p.logger.Info("Connected to server")
	} else {
		p.logger.Warn("Disconnected from server")
	}
}

// Connected returns the last reported state.
func (p *StatusPanel) Connected() bool {
	return p.connected.Load()
}

// Transitions returns how many state changes have been shown.
func (p *StatusPanel) Transitions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transitions
}

// Reset returns the panel to the unknown state, as after a reload.
func (p *StatusPanel) Reset() {
	p.mu.Lock()
	p.known = false
	p.connected.Store(false)
	p.mu.Unlock()
}
