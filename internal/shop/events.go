package shop

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"PokeStore/internal/store"
)

const (
	eventBuffer  = 32
	writeWait    = 5 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// events streams every store change to the client as a JSON Event. A client
// that cannot keep up loses events; writers are never held up by it.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	// Subscribed before the handshake completes, so the client sees every
	// change made after its dial returns.
	ch := make(chan store.Event, eventBuffer)
	cancel := s.Store.Subscribe(func(ev store.Event) {
		select {
		case ch <- ev:
		default:
			s.Log.Debug("event dropped for slow client", zap.String("kind", string(ev.Kind)))
		}
	})
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// The client never sends anything; reading only notices the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case ev := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
