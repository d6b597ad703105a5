package notify

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// MonitorHub fans notification deliveries out to connected WebSocket
// clients, mirroring protocol-level notification traffic to any
// observer that connects to it.
type MonitorHub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]bool
	upgrader websocket.Upgrader
}

// NewMonitorHub creates a hub that accepts connections from the given
// allowed origins (empty means allow any — origin checking disabled).
func NewMonitorHub(allowedOrigins []string) *MonitorHub {
	h := &MonitorHub{clients: make(map[*websocket.Conn]bool)}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	return h
}

// ServeHTTP upgrades the request to a WebSocket and streams deliveries
// from reg until the client disconnects.
func (h *MonitorHub) ServeHTTP(reg *Registry, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Notify] websocket upgrade failed: %v", err)
		return
	}
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	sub := reg.Subscribe()
	for delivery := range sub {
		if err := conn.WriteJSON(delivery); err != nil {
			return
		}
	}
}
