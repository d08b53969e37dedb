package notify

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/joseph-ayodele/intake-tracker/internal/queue"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHub_ForwardsQueueEvents(t *testing.T) {
	h := NewHub(nil, zaptest.NewLogger(t))
	srv := httptest.NewServer(h)
	defer srv.Close()

	qh := queue.NewHub(8)
	sub := qh.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = h.Run(ctx, sub) }()

	a := dial(t, srv)
	b := dial(t, srv)
	require.Eventually(t, func() bool { return h.Len() == 2 }, 2*time.Second, 5*time.Millisecond)

	qh.Publish(queue.Event{Type: queue.EventRecordRemoved, Data: map[string]any{"record_id": "r1"}})

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		var ev queue.Event
		require.NoError(t, json.Unmarshal(msg, &ev))
		assert.Equal(t, queue.EventRecordRemoved, ev.Type)
		assert.Equal(t, "r1", ev.Data["record_id"])
	}
}

func TestHub_DisconnectedListenerIsDropped(t *testing.T) {
	h := NewHub([]string{"http://localhost:3000"}, zaptest.NewLogger(t))
	srv := httptest.NewServer(h)
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	require.Eventually(t, func() bool { return h.Len() == 2 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, a.Close())
	require.Eventually(t, func() bool { return h.Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, h.Broadcast(queue.Event{Type: queue.EventRecordAdded, Data: map[string]any{}}))
	require.NoError(t, b.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := b.ReadMessage()
	require.NoError(t, err)
}

func TestHub_RejectsUnknownOrigin(t *testing.T) {
	h := NewHub([]string{"http://localhost:3000"}, zaptest.NewLogger(t))
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := map[string][]string{"Origin": {"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
}
