// Package session detects server-side session changes from the hash carried on
// every ingest response.
package session

import (
	"log/slog"
	"sync"

	"github.com/M-Chimiste/DCSOlympus/pkg/core"
)

// Outcome is the result of a single hash check.
type Outcome int

const (
	// OutcomeIgnored means the candidate was empty and nothing changed.
	OutcomeIgnored Outcome = iota
	// OutcomeBaseline means the candidate became the cached baseline.
	OutcomeBaseline
	// OutcomeMatch means the candidate equals the baseline.
	OutcomeMatch
	// OutcomeReload means the candidate differs and a reload was requested.
	OutcomeReload
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeBaseline:
		return "baseline"
	case OutcomeMatch:
		return "match"
	case OutcomeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Reloader discards all client state and starts the client again from scratch.
type Reloader interface {
	Reload(reason string)
}

// ReloaderFunc adapts a function to Reloader.
type ReloaderFunc func(reason string)

// Reload calls f.
func (f ReloaderFunc) Reload(reason string) { f(reason) }

// Observer is notified of baseline captures and detected changes.
type Observer interface {
	BaselineCaptured(hash core.SessionHash)
	SessionChanged(baseline, candidate core.SessionHash)
}

// Monitor compares observed session hashes against the first one seen.
type Monitor struct {
	mu       sync.Mutex
	baseline core.SessionHash

	reloader Reloader
	observer Observer
	logger   *slog.Logger
}

// NewMonitor creates a Monitor with no baseline. observer may be nil.
func NewMonitor(reloader Reloader, observer Observer, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		reloader: reloader,
		observer: observer,
		logger:   logger,
	}
}

// Baseline returns the cached hash, empty until the first non-empty check.
func (m *Monitor) Baseline() core.SessionHash {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseline
}

// Check compares candidate with the baseline. Every mismatch triggers exactly one
// reload; the baseline itself is never updated after capture.
func (m *Monitor) Check(candidate core.SessionHash) Outcome {
	if candidate == "" {
		return OutcomeIgnored
	}

	m.mu.Lock()
	if m.baseline == "" {
		m.baseline = candidate
		m.mu.Unlock()

		m.logger.Info("Session baseline captured", "sessionHash", candidate)
		if m.observer != nil {
			m.observer.BaselineCaptured(candidate)
		}
		return OutcomeBaseline
	}
	baseline := m.baseline
	m.mu.Unlock()

	if candidate == baseline {
		return OutcomeMatch
	}

	m.logger.Warn("Server session changed, reloading client",
		"baseline", baseline, "sessionHash", candidate)
	if m.observer != nil {
		m.observer.SessionChanged(baseline, candidate)
	}
	m.reloader.Reload("session hash changed")
	return OutcomeReload
}
