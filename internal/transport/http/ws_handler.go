package http

import (
	"encoding/json"
	"log"
	"net/http"

	"aic-scoring-service/internal/app"
	"aic-scoring-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler streams leaderboard snapshots to dashboards over a websocket.
// Clients are read-only: the socket carries no submission traffic.
type WSHandler struct {
	engine   *app.Engine
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *app.Engine) *WSHandler {
	return &WSHandler{
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServeWS upgrades the request and pushes leaderboard updates until the
// client disconnects. An optional questionId query filters the stream.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("questionId")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.engine.Subscribe()
	defer cancel()

	// Initial snapshot, if the question already has a session.
	if filter != "" {
		if lb, err := h.engine.Leaderboard(filter); err == nil {
			if !writeLeaderboard(conn, lb) {
				return
			}
		}
	}

	send := make(chan domain.Leaderboard, 16)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for lb := range send {
			if !writeLeaderboard(conn, lb) {
				return
			}
		}
	}()

	// Reader goroutine exists only to observe the close from the peer.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case lb, ok := <-updates:
			if !ok {
				close(send)
				<-done
				return
			}
			if filter != "" && lb.QuestionID != filter {
				continue
			}
			select {
			case send <- lb:
			case <-done:
				return
			}
		case <-closed:
			close(send)
			<-done
			return
		case <-done:
			return
		}
	}
}

func writeLeaderboard(conn *websocket.Conn, lb domain.Leaderboard) bool {
	for i := range lb.Rows {
		lb.Rows[i].Score = round2(lb.Rows[i].Score)
		lb.Rows[i].Elapsed = round2(lb.Rows[i].Elapsed)
	}
	payload, err := json.Marshal(lb)
	if err != nil {
		return false
	}
	if err := conn.WriteJSON(outboundMessage{Type: "leaderboard", Payload: payload}); err != nil {
		log.Printf("ws write error: %v", err)
		return false
	}
	return true
}
