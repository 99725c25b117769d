package handler

import (
	"net/http"

	"aerialdetect/internal/logger"
	"aerialdetect/internal/middleware"
	"aerialdetect/internal/service"
	wshub "aerialdetect/internal/service/websocket"

	"github.com/gorilla/websocket"
)

// Upgrader upgrades HTTP connections to WebSocket. The default origin check
// applies: the session rides on a cookie, so only same-origin pages may connect.
var Upgrader = websocket.Upgrader{}

// ViewWebsocketHandler registers a browser tab with its session's room so it
// receives every view change, starting with the current one.
func ViewWebsocketHandler(hub *wshub.HubService, ctrl *service.Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionID(r)

		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		hub.Register(sessionID, connection)
		defer hub.Unregister(sessionID, connection)

		ctrl.Publish(sessionID)

		for {
			_, _, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Viewer of session %s disconnected normally", sessionID)
				} else {
					logger.Warning("Viewer of session %s disconnected with error: %v", sessionID, err)
				}
				break
			}
		}
	}
}
