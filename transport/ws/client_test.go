package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// websocketClient is a thin test peer around a gorilla client connection.
type websocketClient struct {
	conn *websocket.Conn
}

func defaultDialer() *websocket.Dialer {
	return &websocket.Dialer{HandshakeTimeout: 2 * time.Second}
}

func dialURL(t *testing.T, url string) *websocketClient {
	t.Helper()
	conn, _, err := defaultDialer().Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &websocketClient{conn: conn}
}

type receivedFrame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func (c *websocketClient) read(t *testing.T) receivedFrame {
	t.Helper()
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var f receivedFrame
	require.NoError(t, c.conn.ReadJSON(&f))
	return f
}

func (c *websocketClient) expect(t *testing.T, event string) {
	t.Helper()
	f := c.read(t)
	require.Equal(t, event, f.Event)
}

// expectSilence fails if any frame arrives within a short grace period.
func (c *websocketClient) expectSilence(t *testing.T) {
	t.Helper()
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))

	var f receivedFrame
	err := c.conn.ReadJSON(&f)
	require.Error(t, err, "expected no frame, got %q", f.Event)
}

func (c *websocketClient) write(t *testing.T, event string, payload any) {
	t.Helper()
	require.NoError(t, c.conn.WriteJSON(map[string]any{
		"event":   event,
		"payload": payload,
	}))
}
