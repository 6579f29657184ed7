package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/paperdrum/internal/log"
	"github.com/ayusman/paperdrum/internal/render"
)

const (
	// OverlayBuffer is how many scenes a slow client may lag before
	// scenes are dropped for it.
	OverlayBuffer = 4
	writeWait     = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// OverlayHandler pushes each published overlay scene to WebSocket clients
// as JSON.
type OverlayHandler struct {
	hub *render.Hub
}

// NewOverlayHandler creates a new OverlayHandler reading from hub.
func NewOverlayHandler(hub *render.Hub) *OverlayHandler {
	return &OverlayHandler{hub: hub}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *OverlayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	scenes, unsubscribe := h.hub.Subscribe(OverlayBuffer)
	defer unsubscribe()

	// Clients never send anything meaningful; reading detects the close.
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
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case scene, ok := <-scenes:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(scene); err != nil {
				log.Debug("overlay client gone", "error", err)
				return
			}
		}
	}
}
