package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// ViewerRole decides how much detail a connection receives. Spectators
// get the redacted variant of every delta unless the tournament's policy
// allows raw per-judge scores.
type ViewerRole string

const (
	RoleJudge     ViewerRole = "judge"
	RoleAdmin     ViewerRole = "admin"
	RoleSpectator ViewerRole = "spectator"
)

// Event is one versioned delta on a topic, kept in the retention ring in
// both full and redacted form.
type Event struct {
	Seq      uint64
	Type     string
	Full     json.RawMessage
	Redacted json.RawMessage
}

// SnapshotFunc builds the full current state of a topic for clients
// whose last-seen sequence fell out of the retention window.
type SnapshotFunc func(ctx context.Context, topic string, redacted bool) (json.RawMessage, error)

type topicState struct {
	seq         uint64
	ring        []Event // at most retention entries, oldest first
	subscribers map[*Client]bool
}

// Hub tracks connections per session/tournament topic and fans out
// deltas. A subscriber whose send buffer fills up is dropped and must
// resync via snapshot on reconnect.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	mu        sync.RWMutex
	topics    map[string]*topicState
	retention int
	snapshot  SnapshotFunc
	logger    *slog.Logger
}

func NewHub(retention int, snapshot SnapshotFunc, logger *slog.Logger) *Hub {
	if retention <= 0 {
		retention = 256
	}
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		topics:     make(map[string]*topicState),
		retention:  retention,
		snapshot:   snapshot,
		logger:     logger,
	}
}

// Run owns registration. Fan-out itself happens in Publish so a single
// slow registration cannot stall deltas.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.Register:
			h.attach(client)
		case client := <-h.Unregister:
			h.detach(client)
		}
	}
}

func (h *Hub) attach(client *Client) {
	h.mu.Lock()
	st, ok := h.topics[client.Topic]
	if !ok {
		st = &topicState{subscribers: make(map[*Client]bool)}
		h.topics[client.Topic] = st
	}
	st.subscribers[client] = true
	count := len(st.subscribers)
	h.mu.Unlock()

	h.logger.Info("client subscribed",
		slog.String("topic", client.Topic),
		slog.String("role", string(client.Role)),
		slog.Int("subscribers", count))

	h.resync(client)
}

func (h *Hub) detach(client *Client) {
	h.mu.Lock()
	st, ok := h.topics[client.Topic]
	if ok {
		if _, subscribed := st.subscribers[client]; subscribed {
			delete(st.subscribers, client)
			client.closeSend()
			if len(st.subscribers) == 0 && len(st.ring) == 0 {
				delete(h.topics, client.Topic)
			}
		}
	}
	h.mu.Unlock()
}

// resync replays deltas newer than the client's last-acknowledged
// sequence when they are still retained, otherwise sends a full snapshot
// whose embedded sequence is the topic head.
func (h *Hub) resync(client *Client) {
	// A subscribe frame can arrive before Run has attached the client;
	// an unknown topic is simply empty.
	h.mu.RLock()
	var head uint64
	var replay []Event
	if st := h.topics[client.Topic]; st != nil {
		head = st.seq
		if client.LastSeq < head {
			missed := head - client.LastSeq
			if missed <= uint64(len(st.ring)) {
				start := len(st.ring) - int(missed)
				replay = append(replay, st.ring[start:]...)
			}
		}
	}
	h.mu.RUnlock()

	if client.LastSeq >= head {
		return
	}
	if replay != nil {
		for _, ev := range replay {
			if !client.enqueue(h.frame(client, ev)) {
				h.drop(client)
				return
			}
		}
		return
	}

	payload, err := h.snapshot(context.Background(), client.Topic, client.Redact)
	if err != nil {
		h.logger.Error("snapshot build failed",
			slog.String("topic", client.Topic), slog.Any("error", err))
		client.enqueue(errorFrame(CodeSnapshotFailed, "could not build snapshot"))
		return
	}
	client.enqueue(mustMarshal(ServerFrame{
		Type:    FrameSnapshot,
		Topic:   client.Topic,
		Seq:     head,
		Payload: payload,
	}))
}

// Publish appends a delta to the topic and fans it out. The full and
// redacted payloads are marshalled once; each subscriber gets the
// variant its role allows.
func (h *Hub) Publish(topicName, eventType string, full, redacted any) error {
	fullRaw, err := json.Marshal(full)
	if err != nil {
		return fmt.Errorf("marshal delta payload: %w", err)
	}
	redactedRaw := fullRaw
	if redacted != nil {
		if redactedRaw, err = json.Marshal(redacted); err != nil {
			return fmt.Errorf("marshal redacted payload: %w", err)
		}
	}

	h.mu.Lock()
	st, ok := h.topics[topicName]
	if !ok {
		st = &topicState{subscribers: make(map[*Client]bool)}
		h.topics[topicName] = st
	}
	st.seq++
	ev := Event{Seq: st.seq, Type: eventType, Full: fullRaw, Redacted: redactedRaw}
	st.ring = append(st.ring, ev)
	if len(st.ring) > h.retention {
		st.ring = st.ring[len(st.ring)-h.retention:]
	}
	targets := make([]*Client, 0, len(st.subscribers))
	for c := range st.subscribers {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, client := range targets {
		if !client.enqueue(h.frame(client, ev)) {
			h.logger.Warn("dropping slow subscriber",
				slog.String("topic", topicName), slog.String("role", string(client.Role)))
			h.drop(client)
		}
	}
	return nil
}

// Seq returns the current head sequence of a topic.
func (h *Hub) Seq(topicName string) uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if st, ok := h.topics[topicName]; ok {
		return st.seq
	}
	return 0
}

// Subscribers returns the live connection count for a topic.
func (h *Hub) Subscribers(topicName string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if st, ok := h.topics[topicName]; ok {
		return len(st.subscribers)
	}
	return 0
}

func (h *Hub) drop(client *Client) {
	h.detach(client)
	client.close()
}

func (h *Hub) frame(client *Client, ev Event) []byte {
	payload := ev.Full
	if client.Redact {
		payload = ev.Redacted
	}
	return mustMarshal(ServerFrame{
		Type:    FrameDelta,
		Topic:   client.Topic,
		Seq:     ev.Seq,
		Event:   ev.Type,
		Payload: payload,
	})
}

func errorFrame(code, reason string) []byte {
	return mustMarshal(ServerFrame{Type: FrameError, Code: code, Reason: reason})
}

func mustMarshal(frame ServerFrame) []byte {
	out, err := json.Marshal(frame)
	if err != nil {
		// Frames are built from raw messages and plain strings; this
		// cannot fail with well-formed payloads.
		panic(err)
	}
	return out
}

// SessionTopic and TournamentTopic name the two topic scopes.
func SessionTopic(sessionID int) string {
	return fmt.Sprintf("session:%d", sessionID)
}

func TournamentTopic(tournamentID int) string {
	return fmt.Sprintf("tournament:%d", tournamentID)
}
