// Package display tracks the body-level visibility attributes toggled from the
// toolbar and keyboard.
package display

import (
	"sort"
	"strings"
	"sync"

	"github.com/M-Chimiste/DCSOlympus/internal/dispatcher"
)

// Attribute names.
const (
	HideLabels = "hide-labels"
	hidePrefix = "hide-"
)

// Attributes is a toggled set of body attributes.
type Attributes struct {
	mu  sync.RWMutex
	set map[string]bool
}

// New returns an empty attribute set.
func New() *Attributes {
	return &Attributes{set: make(map[string]bool)}
}

// Toggle flips an attribute and returns whether it is now present.
func (a *Attributes) Toggle(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.set[name] {
		delete(a.set, name)
		return false
	}
	a.set[name] = true
	return true
}

// Has reports whether the attribute is present.
func (a *Attributes) Has(name string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.set[name]
}

// List returns the present attributes sorted by name.
func (a *Attributes) List() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.set))
	for name := range a.set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// String renders the attributes the way they would appear on the body element.
func (a *Attributes) String() string {
	return strings.Join(a.List(), " ")
}

// Hidden reports whether things tagged with the given name (coalition or unit
// type) are hidden.
func (a *Attributes) Hidden(name string) bool {
	return a.Has(hidePrefix + name)
}

// Register subscribes the attribute set to the visibility commands.
func (a *Attributes) Register(d *dispatcher.Dispatcher) {
	dispatcher.On(d, func(dispatcher.ToggleLabels) (any, error) {
		return a.Toggle(HideLabels), nil
	}, dispatcher.Logged())
	dispatcher.On(d, func(c dispatcher.ToggleCoalitionVisibility) (any, error) {
		return a.Toggle(hidePrefix + c.Coalition), nil
	}, dispatcher.Logged())
	dispatcher.On(d, func(c dispatcher.ToggleUnitVisibility) (any, error) {
		return a.Toggle(hidePrefix + c.UnitType), nil
	}, dispatcher.Logged())
}
