package groupkex

import "encoding/json"

// ParticipantID is an opaque, unique, ordered identifier for a session
// participant. The participant with the smallest id in the local roster is
// the elected initiator.
type ParticipantID int

// CycleHeader identifies a cycle and declares its membership. It is
// authoritative: any message carrying a header for a newer counter than
// what is locally held supersedes the local record for that initiator, and
// the header's Members list fixes the cycle's array sizes for its
// lifetime.
type CycleHeader struct {
	ID      ParticipantID   `json:"id"`
	Counter uint64          `json:"counter"`
	Members []ParticipantID `json:"members"`
}

// OutboundMessage is the shape the engine hands to the injected [Sink].
// Exactly one of Z or X is non-nil.
type OutboundMessage struct {
	Initiator CycleHeader `json:"initiator"`
	Z         []byte      `json:"z,omitempty"`
	X         []byte      `json:"x,omitempty"`
}

// InboundMessage is the shape the transport hands to [Engine.Deliver].
// SenderID is supplied by the transport, not by the envelope, since
// spec.md's Non-goals exclude authenticating it.
type InboundMessage struct {
	Initiator CycleHeader `json:"initiator"`
	SenderID  ParticipantID
	Z         []byte `json:"z,omitempty"`
	X         []byte `json:"x,omitempty"`
}

// Kind reports whether the message carries a Z or an X payload.
func (m *InboundMessage) Kind() string {
	if m.X != nil {
		return "x"
	}
	return "z"
}

// Encode renders the message as JSON, the default wire codec. Wire framing
// is an external collaborator's concern per spec.md §6; this is provided
// as a convenience for callers (e.g. cmd/simulate) that don't have one of
// their own, in the same spirit as the teacher's SetupMessage/UpdateMessage
// Save helpers.
func (m *OutboundMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses the default JSON wire codec into an InboundMessage. The
// SenderID field is left at its zero value; callers must fill it in from
// the transport.
func Decode(data []byte) (*InboundMessage, error) {
	var m InboundMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
