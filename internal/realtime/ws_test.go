package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"officine/internal/authz"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, h *Hub, who Identity) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Serve(ws, who)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	_ = c.SetReadDeadline(time.Now().Add(5 * time.Second))
	return c
}

func TestServe_JoinThenReceive(t *testing.T) {
	h := NewHub()
	c := dialHub(t, h, Identity{UserID: "u-1", Role: authz.RoleClient})

	require.NoError(t, c.WriteJSON(JoinRequest{UserID: "u-1", Role: "client"}))
	var ack Frame
	require.NoError(t, c.ReadJSON(&ack))
	assert.Equal(t, "join", ack.Event)
	assert.JSONEq(t, `{"joined":true}`, string(ack.Data))

	h.Publish(EventPrescriptionPrepared, map[string]string{"status": "prepared"}, UserRoom("u-1"))
	var f Frame
	require.NoError(t, c.ReadJSON(&f))
	assert.Equal(t, EventPrescriptionPrepared, f.Event)
}

func TestServe_RejectsForeignIdentity(t *testing.T) {
	h := NewHub()
	c := dialHub(t, h, Identity{UserID: "u-1", Role: authz.RoleClient})

	require.NoError(t, c.WriteJSON(JoinRequest{UserID: "u-1", Role: "admin"}))
	var ack Frame
	require.NoError(t, c.ReadJSON(&ack))
	assert.JSONEq(t, `{"joined":false,"reason":"identity mismatch"}`, string(ack.Data))
	assert.Equal(t, 0, h.Count())
}
