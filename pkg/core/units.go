// pkg/core/units.go
package core

// LatLng is a WGS84 position in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Unit is a single simulation entity as reported by the server.
type Unit struct {
	ID        uint32    `json:"id"`
	Name      string    `json:"name"`
	UnitName  string    `json:"unitName"`
	GroupName string    `json:"groupName"`
	Category  string    `json:"category"`
	Coalition Coalition `json:"coalition"`
	Alive     bool      `json:"alive"`
	Human     bool      `json:"human"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  float64   `json:"altitude"`
	Heading   float64   `json:"heading"`
	Speed     float64   `json:"speed"`
}

// Position returns the unit location as a LatLng.
func (u Unit) Position() LatLng {
	return LatLng{Lat: u.Latitude, Lng: u.Longitude}
}

// UnitsData is a snapshot (full refresh) or delta of units keyed by ID.
// Time is the server clock in milliseconds, used as the cursor for the next delta.
type UnitsData struct {
	Units       map[string]Unit `json:"units"`
	Time        int64           `json:"time"`
	SessionHash SessionHash     `json:"sessionHash"`

	// FullRefresh is set by the client, not the server.
	FullRefresh bool `json:"-"`
}
