package dispatcher

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind names a command variant. The set is closed: only the constants below exist.
type Kind string

const (
	KindShowSubmenu               Kind = "showSubmenu"
	KindBringAreaToBack           Kind = "bringAreaToBack"
	KindDeleteArea                Kind = "deleteArea"
	KindCreateAreaEffect          Kind = "createAreaEffect"
	KindToggleCoalitionVisibility Kind = "toggleCoalitionVisibility"
	KindToggleUnitVisibility      Kind = "toggleUnitVisibility"
	KindToggleLabels              Kind = "toggleLabels"
)

// Command is a UI-originated intent. Implementations live in this package only.
type Command interface {
	Kind() Kind
	sealed()
}

// ShowSubmenu toggles a context-menu submenu.
type ShowSubmenu struct {
	Type string `json:"type"`
}

// BringAreaToBack sends the targeted coalition area to the bottom of the z-order.
type BringAreaToBack struct{}

// DeleteArea removes the targeted coalition area.
type DeleteArea struct{}

// CreateAreaEffect composes and emits an area effect from the menu state.
type CreateAreaEffect struct{}

// ToggleCoalitionVisibility hides or shows everything of one coalition.
type ToggleCoalitionVisibility struct {
	Coalition string `json:"coalition"`
}

// ToggleUnitVisibility hides or shows one unit type.
type ToggleUnitVisibility struct {
	UnitType string `json:"unitType"`
}

// ToggleLabels hides or shows unit labels.
type ToggleLabels struct{}

func (ShowSubmenu) Kind() Kind               { return KindShowSubmenu }
func (BringAreaToBack) Kind() Kind           { return KindBringAreaToBack }
func (DeleteArea) Kind() Kind                { return KindDeleteArea }
func (CreateAreaEffect) Kind() Kind          { return KindCreateAreaEffect }
func (ToggleCoalitionVisibility) Kind() Kind { return KindToggleCoalitionVisibility }
func (ToggleUnitVisibility) Kind() Kind      { return KindToggleUnitVisibility }
func (ToggleLabels) Kind() Kind              { return KindToggleLabels }

func (ShowSubmenu) sealed()               {}
func (BringAreaToBack) sealed()           {}
func (DeleteArea) sealed()                {}
func (CreateAreaEffect) sealed()          {}
func (ToggleCoalitionVisibility) sealed() {}
func (ToggleUnitVisibility) sealed()      {}
func (ToggleLabels) sealed()              {}

// ErrInvalidParams is returned when click parameters do not fit the command.
var ErrInvalidParams = errors.New("invalid command parameters")

func (c ShowSubmenu) validate() error {
	if c.Type == "" {
		return fmt.Errorf("%w: showSubmenu needs a type", ErrInvalidParams)
	}
	return nil
}

func (c ToggleCoalitionVisibility) validate() error {
	if c.Coalition == "" {
		return fmt.Errorf("%w: toggleCoalitionVisibility needs a coalition", ErrInvalidParams)
	}
	return nil
}

func (c ToggleUnitVisibility) validate() error {
	if c.UnitType == "" {
		return fmt.Errorf("%w: toggleUnitVisibility needs a unitType", ErrInvalidParams)
	}
	return nil
}

type validator interface {
	validate() error
}

func decode[C Command](params []byte) (Command, error) {
	var c C
	if len(params) > 0 {
		if err := json.Unmarshal(params, &c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
	}
	if v, ok := any(c).(validator); ok {
		if err := v.validate(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

var decoders = map[Kind]func([]byte) (Command, error){
	KindShowSubmenu:               decode[ShowSubmenu],
	KindBringAreaToBack:           decode[BringAreaToBack],
	KindDeleteArea:                decode[DeleteArea],
	KindCreateAreaEffect:          decode[CreateAreaEffect],
	KindToggleCoalitionVisibility: decode[ToggleCoalitionVisibility],
	KindToggleUnitVisibility:      decode[ToggleUnitVisibility],
	KindToggleLabels:              decode[ToggleLabels],
}

// Event names used by older page templates.
var aliases = map[string]Kind{
	"coalitionAreaContextMenuShow": KindShowSubmenu,
	"coalitionAreaBringToBack":     KindBringAreaToBack,
	"coalitionAreaDelete":          KindDeleteArea,
	"contextMenuCreateIads":        KindCreateAreaEffect,
}

// FromClick turns a declarative on-click pair (event name + JSON params) into a
// typed command. An empty params string is treated as "{}".
func FromClick(eventName, params string) (Command, error) {
	kind := Kind(eventName)
	if alias, ok := aliases[eventName]; ok {
		kind = alias
	}
	dec, ok := decoders[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, eventName)
	}
	return dec([]byte(params))
}

// FromKey maps a keyboard code to its command.
func FromKey(code string) (Command, bool) {
	switch code {
	case "KeyL":
		return ToggleLabels{}, true
	}
	return nil, false
}
