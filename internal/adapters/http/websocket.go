package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

// wsMessage is sent from client to subscribe/unsubscribe to exports.
type wsMessage struct {
	Action   string `json:"action"`    // "subscribe" | "unsubscribe"
	ExportID string `json:"export_id"` // required
}

// WebSocketHandler returns a handler that relays the user's export status
// events. Clients start out watching all of their exports; subscribing to
// specific export ids narrows the stream to those.
// Clients send JSON: {"action":"subscribe","export_id":"..."}
func WebSocketHandler(hub *Hub) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		userID, _ := c.Locals("user_id").(string)
		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr, "user_id", userID)

		cl := hub.register(userID)

		var mu sync.Mutex
		// Helper: thread-safe write
		write := func(mt int, data []byte) error {
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(mt, data)
		}
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			return write(websocket.TextMessage, data)
		}

		// Relay events and keep-alive pings
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case data, ok := <-cl.send:
					if !ok {
						return
					}
					if err := write(websocket.TextMessage, data); err != nil {
						return
					}
				case <-ticker.C:
					if err := write(websocket.PingMessage, nil); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		// Read client messages for subscribe/unsubscribe
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}
			if m.ExportID == "" {
				_ = writeJSON(map[string]string{"error": "export_id is required"})
				continue
			}

			switch m.Action {
			case "subscribe":
				cl.subscribe(m.ExportID)
				_ = writeJSON(map[string]string{"status": "subscribed", "export_id": m.ExportID})
			case "unsubscribe":
				if cl.unsubscribe(m.ExportID) {
					_ = writeJSON(map[string]string{"status": "unsubscribed", "export_id": m.ExportID})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + m.ExportID})
				}
			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		// Cleanup
		close(done)
		hub.unregister(cl)
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
