package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType represents the type of message
type MessageType string

const (
	// Client to Server
	MsgTypeToggle MessageType = "toggle"

	// Server to Client
	MsgTypeAck        MessageType = "ack"
	MsgTypeSnapshot   MessageType = "snapshot"
	MsgTypeLayers     MessageType = "layers"
	MsgTypeIndicators MessageType = "indicators"
	MsgTypeVisibility MessageType = "visibility"
)

// BaseMessage is the common structure for all messages
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// ToggleMessage is sent by a client to show or hide a dataset. Toggles are
// the only way visibility state changes; the engine never flips a dataset
// on its own.
type ToggleMessage struct {
	Type    MessageType `json:"type"`
	Dataset string      `json:"dataset"`
	Visible bool        `json:"visible"`
}

// SeriesUpdate carries one chart series' value, display text and visibility.
type SeriesUpdate struct {
	Series  string   `json:"series"`
	Value   *float64 `json:"value"`
	Text    string   `json:"text"`
	Visible bool     `json:"visible"`
}

// SnapshotMessage is the chart update pushed after every recomputation.
type SnapshotMessage struct {
	Type       MessageType    `json:"type"`
	SnapshotID string         `json:"snapshot_id"`
	ComputedAt time.Time      `json:"computed_at"`
	Series     []SeriesUpdate `json:"series"`
}

// Layer actions for LayersMessage
const (
	LayerActionAdd    = "add"
	LayerActionRemove = "remove"
)

// LayersMessage tells the map collaborator to add or remove one dataset's
// layer group. Layer is nil for removals.
type LayersMessage struct {
	Type    MessageType `json:"type"`
	Dataset string      `json:"dataset"`
	Action  string      `json:"action"`
	Layer   *LayerGroup `json:"layer,omitempty"`
}

// Indicator is one dataset's entry in the indicator panel.
type Indicator struct {
	Dataset string  `json:"dataset"`
	Count   int     `json:"count"`
	Visible bool    `json:"visible"`
	Opacity float64 `json:"opacity"`
}

// IndicatorsMessage refreshes the indicator panel.
type IndicatorsMessage struct {
	Type       MessageType `json:"type"`
	Indicators []Indicator `json:"indicators"`
}

// VisibilityMessage echoes the full visibility state after a transition.
type VisibilityMessage struct {
	Type   MessageType     `json:"type"`
	States map[string]bool `json:"states"`
}

// AckMessage is sent by the server in response to client messages
type AckMessage struct {
	Type   MessageType `json:"type"`
	Status string      `json:"status"`
}

// AckStatus constants
const (
	AckStatusToggled = "toggled"
	AckStatusError   = "error"
)

// ParseMessage parses a JSON payload into the appropriate inbound message type
func ParseMessage(data []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	switch base.Type {
	case MsgTypeToggle:
		var msg ToggleMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid toggle message: %w", err)
		}
		if err := validateToggle(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("unknown message type: %s", base.Type)
	}
}

// validateToggle validates a toggle message
func validateToggle(msg *ToggleMessage) error {
	if msg.Dataset == "" {
		return fmt.Errorf("dataset is required")
	}
	return nil
}

// EncodeMessage encodes a message to JSON
func EncodeMessage(msg interface{}) ([]byte, error) {
	return json.Marshal(msg)
}

// NewAckMessage creates a new acknowledgment message
func NewAckMessage(status string) *AckMessage {
	return &AckMessage{
		Type:   MsgTypeAck,
		Status: status,
	}
}
