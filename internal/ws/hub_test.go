package ws

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chatty-server/internal/models"
)

func newTestHub() *Hub {
	h := NewHub([]string{"http://allowed.example"}, zap.NewNop())
	h.Start()
	return h
}

// registerFake registers a client without a real connection, using a
// buffered send channel to observe fan-out.
func registerFake(h *Hub, buffer int) *Client {
	c := &Client{id: uuid.New(), send: make(chan []byte, buffer)}
	h.register <- c
	return c
}

func TestBroadcastNewMessageReachesAllClients(t *testing.T) {
	h := newTestHub()
	c1 := registerFake(h, 4)
	c2 := registerFake(h, 4)

	msg := &models.Message{ID: uuid.New(), Content: "hello", Priority: models.PriorityLow}
	h.BroadcastNewMessage(msg)

	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.send:
			var ev struct {
				Type    string          `json:"type"`
				Payload *models.Message `json:"payload"`
			}
			require.NoError(t, json.Unmarshal(data, &ev))
			assert.Equal(t, "message:new", ev.Type)
			assert.Equal(t, msg.ID, ev.Payload.ID)
			assert.Equal(t, "hello", ev.Payload.Content)
		case <-time.After(time.Second):
			t.Fatal("client did not receive the broadcast")
		}
	}
}

// newDialedConn returns a live client-side connection the hub can close.
func newDialedConn(t *testing.T) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	done := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		<-done
		_ = conn.Close()
	}))
	t.Cleanup(func() {
		close(done)
		server.Close()
	})

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestSlowClientIsDropped(t *testing.T) {
	h := newTestHub()

	fast := registerFake(h, 4)
	// Zero-capacity queue: the first broadcast already overflows it.
	slow := registerFake(h, 0)
	slow.conn = newDialedConn(t)

	h.BroadcastNewMessage(&models.Message{ID: uuid.New(), Content: "one"})

	// The fast client still gets the event; the slow one is closed
	// instead of stalling fan-out.
	select {
	case <-fast.send:
	case <-time.After(time.Second):
		t.Fatal("fast client did not receive the broadcast")
	}

	// The hub closes the slow client's connection; the read fails with a
	// close error rather than timing out.
	_ = slow.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := slow.conn.ReadMessage()
	require.Error(t, err)
	var netErr net.Error
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout())
	}
}

func TestClientCount(t *testing.T) {
	h := newTestHub()
	assert.Equal(t, 0, h.ClientCount())

	c := registerFake(h, 1)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	h.unregister <- c
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestOriginChecker(t *testing.T) {
	check := makeOriginChecker([]string{"http://allowed.example"}, zap.NewNop())

	newReq := func(origin, host string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.Host = host
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	// Non-browser clients send no Origin header.
	assert.True(t, check(newReq("", "chat.example")))
	// Same host is always fine.
	assert.True(t, check(newReq("http://chat.example", "chat.example")))
	// Explicitly allowed origin.
	assert.True(t, check(newReq("http://allowed.example", "chat.example")))
	// Everything else is rejected.
	assert.False(t, check(newReq("http://evil.example", "chat.example")))
	assert.False(t, check(newReq("://bad origin", "chat.example")))
}
