package live

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func staticSnapshot(payload string) SnapshotFunc {
	return func(ctx context.Context, topic string, redacted bool) (json.RawMessage, error) {
		return json.RawMessage(payload), nil
	}
}

// serverConn upgrades one websocket connection through a test server so
// hub internals have a real connection to close.
func serverConn(t *testing.T) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	t.Cleanup(srv.Close)

	dialURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientSide, _, err := websocket.DefaultDialer.Dial(dialURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientSide.Close() })

	select {
	case conn := <-conns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(time.Second):
		t.Fatal("no server connection within deadline")
		return nil
	}
}

func nextFrame(t *testing.T, c *Client) ServerFrame {
	t.Helper()
	select {
	case raw := <-c.send:
		var frame ServerFrame
		require.NoError(t, json.Unmarshal(raw, &frame))
		return frame
	case <-time.After(time.Second):
		t.Fatal("no frame within deadline")
		return ServerFrame{}
	}
}

func requireNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("unexpected frame: %s", raw)
	default:
	}
}

func TestPublishSequencesPerTopic(t *testing.T) {
	h := NewHub(8, staticSnapshot(`{}`), discardLogger())

	for i := 0; i < 3; i++ {
		require.NoError(t, h.Publish(SessionTopic(1), "score_accepted", map[string]int{"n": i}, nil))
	}
	require.NoError(t, h.Publish(TournamentTopic(1), "standings_updated", map[string]int{"n": 0}, nil))

	require.Equal(t, uint64(3), h.Seq(SessionTopic(1)))
	require.Equal(t, uint64(1), h.Seq(TournamentTopic(1)))
	require.Equal(t, uint64(0), h.Seq(SessionTopic(2)))
}

func TestAttachReplaysRetainedDeltas(t *testing.T) {
	h := NewHub(8, staticSnapshot(`{}`), discardLogger())
	topic := SessionTopic(1)
	for i := 1; i <= 3; i++ {
		require.NoError(t, h.Publish(topic, "score_accepted", map[string]int{"n": i}, nil))
	}

	// Reconnect that already saw seq 1: only 2 and 3 are replayed.
	c := NewClient(h, serverConn(t), topic, RoleJudge, false, 1)
	h.attach(c)
	require.Equal(t, 1, h.Subscribers(topic))

	for want := uint64(2); want <= 3; want++ {
		frame := nextFrame(t, c)
		require.Equal(t, FrameDelta, frame.Type)
		require.Equal(t, want, frame.Seq)
		require.Equal(t, "score_accepted", frame.Event)
	}
	requireNoFrame(t, c)
}

func TestAttachUpToDateClientGetsNothing(t *testing.T) {
	h := NewHub(8, staticSnapshot(`{}`), discardLogger())
	topic := SessionTopic(1)
	require.NoError(t, h.Publish(topic, "score_accepted", map[string]int{}, nil))

	c := NewClient(h, serverConn(t), topic, RoleJudge, false, 1)
	h.attach(c)
	requireNoFrame(t, c)
}

func TestResyncBeforeTopicExists(t *testing.T) {
	h := NewHub(8, staticSnapshot(`{}`), discardLogger())

	// A subscribe frame can outrun registration: the read pump calls
	// resync before Run has attached the client and created the topic.
	c := NewClient(h, serverConn(t), SessionTopic(9), RoleJudge, false, 0)
	h.resync(c)
	requireNoFrame(t, c)

	behind := NewClient(h, serverConn(t), SessionTopic(9), RoleJudge, false, 5)
	h.resync(behind)
	requireNoFrame(t, behind)
}

func TestAttachSnapshotsWhenBehindRetention(t *testing.T) {
	h := NewHub(2, staticSnapshot(`{"state":"full"}`), discardLogger())
	topic := SessionTopic(1)
	for i := 1; i <= 5; i++ {
		require.NoError(t, h.Publish(topic, "score_accepted", map[string]int{"n": i}, nil))
	}

	// Missed 5 deltas, only 2 retained: a full snapshot carries the head
	// sequence so the next resync starts from there.
	c := NewClient(h, serverConn(t), topic, RoleSpectator, false, 0)
	h.attach(c)

	frame := nextFrame(t, c)
	require.Equal(t, FrameSnapshot, frame.Type)
	require.Equal(t, uint64(5), frame.Seq)
	require.JSONEq(t, `{"state":"full"}`, string(frame.Payload))
	requireNoFrame(t, c)
}

func TestPublishFansOutByRole(t *testing.T) {
	h := NewHub(8, staticSnapshot(`{}`), discardLogger())
	topic := SessionTopic(1)

	judge := NewClient(h, serverConn(t), topic, RoleJudge, false, 0)
	spectator := NewClient(h, serverConn(t), topic, RoleSpectator, true, 0)
	h.attach(judge)
	h.attach(spectator)
	require.Equal(t, 2, h.Subscribers(topic))

	full := map[string]any{"total": 9.5, "raw_scores": []int{9, 10}}
	redacted := map[string]any{"total": 9.5}
	require.NoError(t, h.Publish(topic, "aggregate_recomputed", full, redacted))

	judgeFrame := nextFrame(t, judge)
	require.Contains(t, string(judgeFrame.Payload), "raw_scores")

	spectatorFrame := nextFrame(t, spectator)
	require.Equal(t, judgeFrame.Seq, spectatorFrame.Seq)
	require.NotContains(t, string(spectatorFrame.Payload), "raw_scores")
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	h := NewHub(8, staticSnapshot(`{}`), discardLogger())
	topic := SessionTopic(1)

	c := NewClient(h, serverConn(t), topic, RoleSpectator, false, 0)
	h.attach(c)

	// Nothing drains the send channel; once the backlog overflows the
	// hub drops the connection rather than stall the publisher.
	for i := 0; i <= sendBuffer; i++ {
		require.NoError(t, h.Publish(topic, "score_accepted", map[string]int{"n": i}, nil))
	}
	require.Equal(t, 0, h.Subscribers(topic))

	// Publishing afterwards still advances the topic.
	require.NoError(t, h.Publish(topic, "score_accepted", map[string]int{}, nil))
	require.Equal(t, uint64(sendBuffer+2), h.Seq(topic))
}

func TestDetachClosesSend(t *testing.T) {
	h := NewHub(8, staticSnapshot(`{}`), discardLogger())
	topic := TournamentTopic(1)

	c := NewClient(h, serverConn(t), topic, RoleAdmin, false, 0)
	h.attach(c)
	h.detach(c)
	require.Equal(t, 0, h.Subscribers(topic))

	_, open := <-c.send
	require.False(t, open)

	// Enqueue after close is refused instead of panicking.
	require.False(t, c.enqueue([]byte(`{}`)))
}

func TestRunRegistersAndUnregisters(t *testing.T) {
	h := NewHub(8, staticSnapshot(`{}`), discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	topic := SessionTopic(3)
	c := NewClient(h, serverConn(t), topic, RoleJudge, false, 0)
	h.Register <- c
	require.Eventually(t, func() bool { return h.Subscribers(topic) == 1 }, time.Second, 10*time.Millisecond)

	h.Unregister <- c
	require.Eventually(t, func() bool { return h.Subscribers(topic) == 0 }, time.Second, 10*time.Millisecond)
}
