package notify

import (
	"net/http"

	"cropcart/middleware"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins; lock down in production
		return true
	},
}

// HandleWS subscribes the authenticated caller to their order events. The
// token rides in the query string because browsers cannot set headers on
// WebSocket upgrades.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	token := r.URL.Query().Get("token")
	claims, err := middleware.ValidateJWT("Bearer " + token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "WebSocket upgrade failed", http.StatusBadRequest)
		return
	}

	client := &Client{UserID: claims.UserID, Send: make(chan []byte, 16)}
	h.Register(client)

	go func() {
		for msg := range client.Send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
		conn.Close()
	}()

	// Keep the connection alive until the client disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.Unregister(client)
	conn.Close()
}
