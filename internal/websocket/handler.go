package websocket

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"ecodrop-backend/internal/middleware"
	"ecodrop-backend/internal/tracker"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades HTTP connection to WebSocket. The token may come
// from the query string since browsers can't set headers on the upgrade.
func HandleWebSocket(hub *Hub, auth *middleware.Authenticator, bins BinLookup, cfg tracker.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var userClaims middleware.UserClaims

		if tokenString := r.URL.Query().Get("token"); tokenString != "" {
			claims, err := auth.ParseToken(tokenString)
			if err != nil {
				log.Printf("❌ Invalid token in query parameter: %v", err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			userClaims = claims
		} else {
			claims, ok := auth.Identify(r)
			if !ok {
				log.Println("❌ No user for WebSocket connection")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			userClaims = claims
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("❌ WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(userClaims.UserID, userClaims.Role, conn, hub)
		// tied to the connection, not the request
		ctx, cancel := context.WithCancel(context.Background())
		client.session = NewTrackingSession(ctx, userClaims.UserID, bins, cfg, client.Enqueue)

		hub.Register(client)

		go client.WritePump()
		go client.ReadPump(cancel)

		log.Printf("✅ WebSocket connection established for user: %s (%s)", userClaims.Email, userClaims.UserID)
	}
}
