// pkg/core/mission.go
package core

// Airbase is an airfield or carrier known to the mission.
type Airbase struct {
	Callsign  string    `json:"callsign"`
	Coalition Coalition `json:"coalition"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

// Bullseye is a coalition reference point.
type Bullseye struct {
	Coalition Coalition `json:"coalition"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

// AirbasesData is a full airbase snapshot.
type AirbasesData struct {
	Airbases    map[string]Airbase `json:"airbases"`
	SessionHash SessionHash        `json:"sessionHash"`
}

// BullseyesData is a full bullseye snapshot.
type BullseyesData struct {
	Bullseyes   map[string]Bullseye `json:"bullseyes"`
	SessionHash SessionHash         `json:"sessionHash"`
}
