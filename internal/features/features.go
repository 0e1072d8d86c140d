// Package features holds the named on/off switches read once at startup.
package features

import "sort"

// Known switch names.
const (
	AIC         = "aic"
	ATC         = "atc"
	Journal     = "journal"
	Performance = "performance"
)

// Switch is a single named toggle.
type Switch struct {
	name    string
	enabled bool
}

// Name returns the switch name.
func (s *Switch) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// IsEnabled reports whether the switch is on. A nil switch is off.
func (s *Switch) IsEnabled() bool {
	return s != nil && s.enabled
}

// Registry is an immutable set of switches.
type Registry struct {
	switches map[string]*Switch
}

// NewRegistry builds a registry from a name -> enabled table.
func NewRegistry(table map[string]bool) *Registry {
	r := &Registry{switches: make(map[string]*Switch, len(table))}
	for name, enabled := range table {
		r.switches[name] = &Switch{name: name, enabled: enabled}
	}
	return r
}

// Get returns the named switch or nil when it is not configured.
func (r *Registry) Get(name string) *Switch {
	if r == nil {
		return nil
	}
	return r.switches[name]
}

// Enabled returns the names of all switches that are on, sorted.
func (r *Registry) Enabled() []string {
	if r == nil {
		return nil
	}
	var out []string
	for name, s := range r.switches {
		if s.enabled {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
