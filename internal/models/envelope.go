package models

import (
	"encoding/json"
	"fmt"
)

// EnvelopeType tags a relay wire frame.
type EnvelopeType string

const (
	EnvelopeInit      EnvelopeType = "init"
	EnvelopePing      EnvelopeType = "ping"
	EnvelopePong      EnvelopeType = "pong"
	EnvelopeMessage   EnvelopeType = "message"
	EnvelopeBroadcast EnvelopeType = "broadcast"
	EnvelopeCommand   EnvelopeType = "command"
)

// Envelope is the common header of every relay frame.
type Envelope struct {
	Bot      string       `json:"bot"`
	Platform string       `json:"platform"`
	Type     EnvelopeType `json:"type"`
}

// InitEnvelope announces the relay identity after a connection opens.
type InitEnvelope struct {
	Envelope
	User   User            `json:"user"`
	Config json.RawMessage `json:"config"`
}

// PingEnvelope is the periodic heartbeat. No payload beyond the header.
type PingEnvelope struct {
	Envelope
}

// MessageEnvelope carries one canonical message either direction.
type MessageEnvelope struct {
	Envelope
	Message *Message `json:"message"`
}

// BroadcastEnvelope fans a message out to downstream recipients.
type BroadcastEnvelope struct {
	Envelope
	Target  Target   `json:"target"`
	Message *Message `json:"message"`
}

// Target names broadcast recipients: a single identifier or a set of them.
// Marshals as a bare string when it holds exactly one entry.
type Target []string

func (t Target) MarshalJSON() ([]byte, error) {
	if len(t) == 1 {
		return json.Marshal(t[0])
	}
	return json.Marshal([]string(t))
}

func (t *Target) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = Target{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("target must be a string or string array: %w", err)
	}
	*t = Target(many)
	return nil
}

// Frame is the decoded form of an inbound relay frame. Only the fields
// matching the frame's type are populated; the rest stay zero.
type Frame struct {
	Bot      string          `json:"bot"`
	Platform string          `json:"platform"`
	Type     EnvelopeType    `json:"type"`
	User     *User           `json:"user,omitempty"`
	Config   json.RawMessage `json:"config,omitempty"`
	Message  *Message        `json:"message,omitempty"`
	Target   Target          `json:"target,omitempty"`

	// Raw is the undecoded frame, kept so command frames reach their
	// handler without loss.
	Raw json.RawMessage `json:"-"`
}

// DecodeFrame parses one wire frame. A frame that is not valid JSON or has
// no type tag is rejected; the caller logs and keeps the connection alive.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("malformed frame: %w", err)
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("frame missing type tag")
	}
	f.Raw = append(json.RawMessage(nil), data...)
	return f, nil
}
