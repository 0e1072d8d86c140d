// Package widgets models the stateful controls used by context menus.
package widgets

import (
	"fmt"
	"math"
	"sync"
)

// Switch is a two-state control that can be hidden from the operator.
type Switch struct {
	mu       sync.Mutex
	value    bool
	hidden   bool
	onChange func(bool)
}

// NewSwitch creates a visible switch. onChange runs on operator toggles only.
func NewSwitch(onChange func(bool)) *Switch {
	return &Switch{onChange: onChange}
}

// Value returns the current state.
func (s *Switch) Value() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// SetValue changes the state without notifying.
func (s *Switch) SetValue(v bool) {
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
}

// Toggle flips the switch as an operator would. A hidden switch cannot be
// toggled; the return value reports whether it changed.
func (s *Switch) Toggle() bool {
	s.mu.Lock()
	if s.hidden {
		s.mu.Unlock()
		return false
	}
	s.value = !s.value
	v, fn := s.value, s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(v)
	}
	return true
}

// Hide removes the switch from the operator's view.
func (s *Switch) Hide() {
	s.mu.Lock()
	s.hidden = true
	s.mu.Unlock()
}

// Show makes the switch visible again.
func (s *Switch) Show() {
	s.mu.Lock()
	s.hidden = false
	s.mu.Unlock()
}

// Hidden reports whether the switch is hidden.
func (s *Switch) Hidden() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hidden
}

// Slider is an integer range control with a fixed increment.
// Its value is always min + k*step and within [min, max].
type Slider struct {
	mu    sync.Mutex
	min   int
	max   int
	step  int
	value int
}

// NewSlider creates a slider. The initial value is snapped onto the grid.
func NewSlider(min, max, step, initial int) (*Slider, error) {
	if step <= 0 || max < min || (max-min)%step != 0 {
		return nil, fmt.Errorf("invalid slider range %d..%d step %d", min, max, step)
	}
	s := &Slider{min: min, max: max, step: step}
	s.value = s.snap(initial)
	return s, nil
}

// Value returns the current value.
func (s *Slider) Value() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// SetValue snaps v to the nearest increment, clamps it, and returns the stored value.
func (s *Slider) SetValue(v int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = s.snap(v)
	return s.value
}

func (s *Slider) snap(v int) int {
	if v <= s.min {
		return s.min
	}
	if v >= s.max {
		return s.max
	}
	k := math.Round(float64(v-s.min) / float64(s.step))
	return s.min + int(k)*s.step
}

// Dropdown is a list of labelled checkbox options. Labels are unique and keep
// their insertion order.
type Dropdown struct {
	mu      sync.Mutex
	labels  []string
	checked map[string]bool
}

// NewCheckboxDropdown builds a dropdown with one option per distinct label,
// every option checked.
func NewCheckboxDropdown(labels []string) *Dropdown {
	d := &Dropdown{checked: make(map[string]bool, len(labels))}
	for _, l := range labels {
		if _, dup := d.checked[l]; dup {
			continue
		}
		d.labels = append(d.labels, l)
		d.checked[l] = true
	}
	return d
}

// Labels returns the option labels in display order.
func (d *Dropdown) Labels() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.labels...)
}

// SetChecked sets one option's state.
func (d *Dropdown) SetChecked(label string, checked bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.checked[label]; !ok {
		return fmt.Errorf("unknown option %q", label)
	}
	d.checked[label] = checked
	return nil
}

// Checked reports one option's state.
func (d *Dropdown) Checked(label string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.checked[label]
}

// Values returns a label -> checked map with exactly one entry per option.
func (d *Dropdown) Values() map[string]bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]bool, len(d.checked))
	for k, v := range d.checked {
		out[k] = v
	}
	return out
}
