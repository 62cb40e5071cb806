package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"roomrelay/internal/app/chat"
	"roomrelay/internal/pkg/limiter"
	"roomrelay/internal/pkg/logx"
)

// HandleWebSocket upgrades the request and serves the connection until it closes.
// Rate limiting is applied by the router before this handler runs.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Warn("Failed to upgrade connection to WebSocket", "ip", ip, "error", err.Error())
			return
		}

		client := chat.NewClient(deps.Hub, conn, deps.Config.SendQueueSize)

		if err := client.Start(r.Context()); err != nil {
			logx.Error(err, "WebSocket client could not be registered", "ip", ip)
			return
		}

		logx.Debug("WebSocket connection finished", "conn_id", client.ID(), "ip", ip)
	}
}
