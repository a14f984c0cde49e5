package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out. Client addresses are
// stored anonymised.
type Event struct {
	Timestamp      time.Time `json:"timestamp"`
	Action         string    `json:"action"`
	UserID         string    `json:"user_id,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	ClientIPPrefix string    `json:"client_ip_prefix,omitempty"`
	Device         string    `json:"device,omitempty"`
	RequestID      string    `json:"request_id,omitempty"`
}
