package telemetry

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Monitor serves the live stats feed over websocket. Every window stats
// record pushed through Broadcast goes to all connected clients as one
// JSON message. A nil monitor discards everything.
type Monitor struct {
	addr     string
	listener net.Listener
	server   *http.Server

	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex
}

// NewMonitor creates a monitor that will listen on addr. Returns nil if
// addr is empty (monitoring disabled).
func NewMonitor(addr string) *Monitor {
	if addr == "" {
		return nil
	}
	return &Monitor{
		addr:    addr,
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Start binds the listen address and begins serving. The actual bound
// address is available from Addr afterwards.
func (m *Monitor) Start() error {
	if m == nil {
		return nil
	}

	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return fmt.Errorf("monitor listen on %s: %w", m.addr, err)
	}
	m.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", m.handleWebSocket)
	m.server = &http.Server{Handler: mux}

	go func() {
		if err := m.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("monitor server stopped", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (m *Monitor) Addr() string {
	if m == nil || m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

func (m *Monitor) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("monitor upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	connMu := &sync.Mutex{}
	m.mu.Lock()
	m.clients[conn] = connMu
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.clients, conn)
		m.mu.Unlock()
	}()

	// Clients only listen. The read pump exists to notice disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends a stats record to every connected client. Clients
// whose writes fail are dropped.
func (m *Monitor) Broadcast(stats WindowStats) {
	if m == nil {
		return
	}

	m.mu.RLock()
	var dead []*websocket.Conn
	for conn, connMu := range m.clients {
		connMu.Lock()
		err := conn.WriteJSON(stats)
		connMu.Unlock()
		if err != nil {
			conn.Close()
			dead = append(dead, conn)
		}
	}
	m.mu.RUnlock()

	if len(dead) > 0 {
		m.mu.Lock()
		for _, conn := range dead {
			delete(m.clients, conn)
		}
		m.mu.Unlock()
	}
}

// ClientCount reports the number of connected clients.
func (m *Monitor) ClientCount() int {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Close shuts the server down and disconnects all clients.
func (m *Monitor) Close() error {
	if m == nil || m.server == nil {
		return nil
	}
	return m.server.Close()
}
