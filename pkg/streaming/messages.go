package streaming

import (
	"encoding/json"

	"github.com/M-Chimiste/DCSOlympus/pkg/core"
)

// Message type constants for the command stream.
const (
	TypeHello      = "hello"
	TypeCreateIADS = "create_iads"
	TypeAck        = "ack"
)

// Envelope wraps every command sent to the server.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type  string `json:"type"` // always "ack"
	For   string `json:"for"`  // the message type being acknowledged
	Error string `json:"error,omitempty"`
}

// AreaPayload describes a coalition area on the wire.
type AreaPayload struct {
	ID        uint64         `json:"id"`
	Coalition core.Coalition `json:"coalition"`
	Vertices  []core.LatLng  `json:"vertices"`
	WKT       string         `json:"wkt,omitempty"`
	Centroid  core.LatLng    `json:"centroid"`
	AreaSqM   float64        `json:"areaSqM"`
}

// CreateIADSPayload carries the area and the composed configuration.
type CreateIADSPayload struct {
	Area   AreaPayload            `json:"area"`
	Config core.IADSConfiguration `json:"config"`
}

// NewEnvelope marshals payload into an Envelope of the given type.
func NewEnvelope(msgType string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: msgType, Payload: raw}, nil
}
