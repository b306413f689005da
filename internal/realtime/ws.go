package realtime

import (
	"encoding/json"
	"time"

	"officine/internal/authz"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Identity is who the connection authenticated as.
type Identity struct {
	UserID string
	Role   authz.Role
}

// JoinRequest is the single client to server message.
type JoinRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type joinAck struct {
	Joined bool   `json:"joined"`
	Reason string `json:"reason,omitempty"`
}

// Serve runs one WebSocket session until the peer goes away. A join is only
// accepted when its userId and role match the authenticated identity.
func (h *Hub) Serve(ws *websocket.Conn, who Identity) {
	m := NewMember(defaultBuffer)
	done := make(chan struct{})
	go writePump(ws, m, done)

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			break
		}
		var req JoinRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			m.offer(ackFrame(false, "malformed join"))
			continue
		}
		if req.UserID != who.UserID || req.Role != string(who.Role) {
			m.offer(ackFrame(false, "identity mismatch"))
			continue
		}
		h.Join(m, who.Role, who.UserID)
		m.offer(ackFrame(true, ""))
	}

	if !h.Disconnect(m.ID()) {
		close(m.send)
	}
	<-done
	_ = ws.Close()
}

func ackFrame(ok bool, reason string) []byte {
	data, _ := json.Marshal(joinAck{Joined: ok, Reason: reason})
	frame, _ := json.Marshal(Frame{Event: "join", Data: data})
	return frame
}

func writePump(ws *websocket.Conn, m *Member, done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	for {
		select {
		case frame, ok := <-m.Frames():
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				// Unblock the reader; it disconnects the member.
				_ = ws.Close()
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = ws.Close()
				return
			}
		}
	}
}
