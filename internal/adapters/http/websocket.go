package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/groupride/internal/adapters/nats"
	"github.com/samirrijal/groupride/internal/pkg/metrics"
)

const wsPingInterval = 30 * time.Second

// WebSocketHandler returns a handler that relays the lifecycle events of one
// ride (/ws/rides/:id) to the connected client. Participants use it to learn
// when routes are ready without polling.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		rideID := c.Params("id")
		remoteAddr := c.RemoteAddr().String()
		logger := slog.With("ride_id", rideID, "remote", remoteAddr)

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()
		logger.Debug("ws client connected")

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		subject := natsadapter.RideWildcard(rideID)
		sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
			_ = writeJSON(json.RawMessage(msg.Data))
		})
		if err != nil {
			logger.Warn("ws subscribe failed", "subject", subject, "error", err)
			_ = writeJSON(map[string]string{"error": "subscribe failed"})
			return
		}
		defer func() { _ = sub.Unsubscribe() }()
		_ = writeJSON(map[string]string{"status": "subscribed", "ride_id": rideID})

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		// The client sends nothing meaningful; reading detects the close.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		logger.Debug("ws client disconnected")
	}
}
