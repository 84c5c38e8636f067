package live

import "encoding/json"

// Client-to-server frame types.
const (
	FrameSubscribe = "subscribe"
	FrameHeartbeat = "heartbeat"
)

// Server-to-client frame types.
const (
	FrameDelta    = "delta"
	FrameSnapshot = "snapshot"
	FrameError    = "error"
)

// Error codes carried on error frames.
const (
	CodeBadFrame       = "bad_frame"
	CodeUnknownTopic   = "unknown_topic"
	CodeSlowConsumer   = "slow_consumer"
	CodeSnapshotFailed = "snapshot_failed"
)

// ClientFrame is what a client may send: subscribe{topic, last_seq} or
// heartbeat.
type ClientFrame struct {
	Type    string `json:"type"`
	Topic   string `json:"topic,omitempty"`
	LastSeq uint64 `json:"last_seq,omitempty"`
}

// ServerFrame is the single envelope for delta, snapshot and error
// frames. Deltas carry the event type and a monotonically increasing
// per-topic sequence number; snapshots embed the sequence the full state
// corresponds to.
type ServerFrame struct {
	Type    string          `json:"type"`
	Topic   string          `json:"topic,omitempty"`
	Seq     uint64          `json:"seq,omitempty"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Code    string          `json:"code,omitempty"`
	Reason  string          `json:"reason,omitempty"`
}
