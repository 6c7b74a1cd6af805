package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
	Ts      time.Time       `json:"ts"`
	Seq     int64           `json:"seq"`
}

func dialTestHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(h.HandleWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

func TestBroadcastReachesConnectedClient(t *testing.T) {
	h := NewHub()
	conn := dialTestHub(t, h)

	waitForClients(t, h, 1)
	h.Broadcast("cumulative", []byte(`{"totalPnl":4300}`))

	env := readEnvelope(t, conn)
	assert.Equal(t, "cumulative", env.Channel)
	assert.JSONEq(t, `{"totalPnl":4300}`, string(env.Data))
	assert.Equal(t, int64(1), env.Seq)
	assert.False(t, env.Ts.IsZero())
}

func TestLateClientReceivesLatestEnvelope(t *testing.T) {
	h := NewHub()
	h.Broadcast("cumulative", []byte(`{"totalPnl":1}`))
	h.Broadcast("cumulative", []byte(`{"totalPnl":2}`))

	conn := dialTestHub(t, h)
	env := readEnvelope(t, conn)
	assert.JSONEq(t, `{"totalPnl":2}`, string(env.Data))
	assert.Equal(t, int64(2), env.Seq)
}

func TestSequenceIncrements(t *testing.T) {
	h := NewHub()
	conn := dialTestHub(t, h)
	waitForClients(t, h, 1)

	h.Broadcast("cumulative", []byte(`1`))
	h.Broadcast("cumulative", []byte(`2`))

	assert.Equal(t, int64(1), readEnvelope(t, conn).Seq)
	assert.Equal(t, int64(2), readEnvelope(t, conn).Seq)
}

func TestClientCountTracksDisconnects(t *testing.T) {
	h := NewHub()

	var mu sync.Mutex
	var counts []int
	h.OnClientCountChange = func(n int) {
		mu.Lock()
		counts = append(counts, n)
		mu.Unlock()
	}

	conn := dialTestHub(t, h)
	waitForClients(t, h, 1)

	conn.Close()
	waitForClients(t, h, 0)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, counts, 1)
	assert.Contains(t, counts, 0)
}

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.ClientCount() == want }, 2*time.Second, 5*time.Millisecond)
}
