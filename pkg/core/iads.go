// pkg/core/iads.go
package core

import (
	"errors"
	"fmt"
)

// IADSTypes is the fixed unit-type taxonomy offered when composing an IADS.
var IADSTypes = []string{"AAA", "MANPADS", "SAM Site", "Radar"}

// Percentage bounds shared by the density and distribution controls.
const (
	MinPercentage  = 5
	MaxPercentage  = 100
	PercentageStep = 5
)

// ErrInvalidPercentage is returned for density or distribution values outside {5,10,...,100}.
var ErrInvalidPercentage = errors.New("percentage must be a multiple of 5 in [5,100]")

// ValidPercentage reports whether v is one of 5, 10, ..., 100.
func ValidPercentage(v int) bool {
	return v >= MinPercentage && v <= MaxPercentage && v%PercentageStep == 0
}

// IADSConfiguration is the composed "create IADS" command value.
type IADSConfiguration struct {
	Types        map[string]bool `json:"types"`
	Eras         map[string]bool `json:"eras"`
	Ranges       map[string]bool `json:"ranges"`
	Density      int             `json:"density"`
	Distribution int             `json:"distribution"`
}

// Validate checks the percentage invariants.
func (c IADSConfiguration) Validate() error {
	if !ValidPercentage(c.Density) {
		return fmt.Errorf("density %d: %w", c.Density, ErrInvalidPercentage)
	}
	if !ValidPercentage(c.Distribution) {
		return fmt.Errorf("distribution %d: %w", c.Distribution, ErrInvalidPercentage)
	}
	return nil
}
