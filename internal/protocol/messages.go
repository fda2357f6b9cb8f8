// ABOUTME: Cuecast protocol message type definitions
// ABOUTME: Defines structs for all message types exchanged with the hub
package protocol

import "encoding/json"

// ProtocolVersion is the wire protocol version spoken by this build.
const ProtocolVersion = 1

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ClientHello is sent by participants to initiate the handshake
type ClientHello struct {
	ParticipantID string         `json:"participant_id"`
	Name          string         `json:"name"`
	Version       int            `json:"version"`
	Role          string         `json:"role"` // "operator" or "player"
	Persona       string         `json:"persona,omitempty"`
	Ownership     map[string]int `json:"ownership,omitempty"` // entity -> ownership level
}

// ServerHello is the hub's response to client/hello
type ServerHello struct {
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// Participant describes one connected session in a roster update
type Participant struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Role      string         `json:"role"`
	Persona   string         `json:"persona,omitempty"`
	Ownership map[string]int `json:"ownership,omitempty"`
}

// RosterUpdate carries the full set of connected participants in join order
type RosterUpdate struct {
	Participants []Participant `json:"participants"`
}

// Broadcast is a named-channel payload relayed by the hub to every
// connected participant, the origin included
type Broadcast struct {
	Channel string          `json:"channel"`
	Origin  string          `json:"origin"` // participant ID of the sender
	Payload json.RawMessage `json:"payload"`
}

// Dispatch command actions
const (
	ActionPlay = "play"
	ActionStop = "stop"
)

// DispatchCommand is the addressed play/stop message carried over the
// broadcast channel. Every participant receives it; only the one whose
// identity matches TargetParticipantID acts on it.
type DispatchCommand struct {
	Action              string  `json:"action"`
	TargetParticipantID string  `json:"target_participant_id"`
	AssetID             string  `json:"asset_id,omitempty"`
	AssetName           string  `json:"asset_name,omitempty"`
	AssetLocation       string  `json:"asset_location,omitempty"`
	EntityLabel         string  `json:"entity_label,omitempty"`
	Volume              float64 `json:"volume,omitempty"`
}

// AttrGet requests an entity attribute from the hub's store
type AttrGet struct {
	RequestID string `json:"request_id"`
	Entity    string `json:"entity"`
	Key       string `json:"key"`
}

// AttrSet writes an entity attribute, guarded by the version token
// returned by the matching get (0 for a previously absent attribute)
type AttrSet struct {
	RequestID string          `json:"request_id"`
	Entity    string          `json:"entity"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Version   int64           `json:"version"`
}

// AttrResult answers an attr/get or attr/set
type AttrResult struct {
	RequestID string          `json:"request_id"`
	Value     json.RawMessage `json:"value,omitempty"`
	Version   int64           `json:"version"`
	Found     bool            `json:"found"`
	Error     string          `json:"error,omitempty"`
}

// ServerError reports a hub-side protocol failure
type ServerError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
