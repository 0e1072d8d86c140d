// Package monitor periodically writes a snapshot of the console's state to a
// status file.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/M-Chimiste/DCSOlympus/internal/clock"
	"github.com/M-Chimiste/DCSOlympus/internal/syncloop"
)

// Counter reports the number of items in a store.
type Counter interface {
	Len() int
}

// Dependencies holds all dependencies for the monitor service. Clock and
// Logger are optional.
type Dependencies struct {
	Loop        interface{ Stats() syncloop.Stats }
	Units       Counter
	Areas       Counter
	Connected   func() bool
	SessionHash func() string
	StatusFile  string
	Interval    time.Duration
	Clock       clock.Clock
	Logger      *slog.Logger
}

// Status is one snapshot of the console.
type Status struct {
	Time        time.Time      `json:"time"`
	SessionHash string         `json:"sessionHash"`
	Connected   bool           `json:"connected"`
	Units       int            `json:"units"`
	Areas       int            `json:"areas"`
	Sync        syncloop.Stats `json:"sync"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
	writes    int
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = 5 * time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Writes returns how many snapshots have been written.
func (s *Service) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// GetStatus collects the current snapshot.
func (s *Service) GetStatus() Status {
	st := Status{Time: s.deps.Clock.Now().UTC()}
	if s.deps.SessionHash != nil {
		st.SessionHash = s.deps.SessionHash()
	}
	if s.deps.Connected != nil {
		st.Connected = s.deps.Connected()
	}
	if s.deps.Units != nil {
		st.Units = s.deps.Units.Len()
	}
	if s.deps.Areas != nil {
		st.Areas = s.deps.Areas.Len()
	}
	if s.deps.Loop != nil {
		st.Sync = s.deps.Loop.Stats()
	}
	return st
}

// WriteStatus replaces the status file content with the current snapshot.
func (s *Service) WriteStatus() error {
	data, err := json.MarshalIndent(s.GetStatus(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	if err := os.WriteFile(s.deps.StatusFile, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	if s.deps.StatusFile == "" {
		return fmt.Errorf("status monitor requires a status file path")
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.deps.Logger.Debug("Starting status monitor", "file", s.deps.StatusFile, "interval", s.deps.Interval)
		for {
			select {
			case <-stop:
				return
			case <-s.deps.Clock.After(s.deps.Interval):
				if err := s.WriteStatus(); err != nil {
					s.deps.Logger.Error("Error writing status file", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
