package telemetry

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestMonitorDisabled(t *testing.T) {
	m := NewMonitor("")
	if m != nil {
		t.Fatal("expected nil monitor for empty address")
	}

	// Nil monitor must be safe to use
	if err := m.Start(); err != nil {
		t.Errorf("nil monitor Start returned error: %v", err)
	}
	m.Broadcast(WindowStats{})
	if m.ClientCount() != 0 {
		t.Error("nil monitor should report zero clients")
	}
	if err := m.Close(); err != nil {
		t.Errorf("nil monitor Close returned error: %v", err)
	}
}

func TestMonitorBroadcast(t *testing.T) {
	m := NewMonitor("127.0.0.1:0")
	if err := m.Start(); err != nil {
		t.Fatalf("starting monitor: %v", err)
	}
	defer m.Close()

	url := "ws://" + m.Addr() + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", url, err)
	}
	defer conn.Close()

	// Wait for the server side to register the client
	deadline := time.Now().Add(2 * time.Second)
	for m.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}

	sent := WindowStats{
		WindowEndFrame: 240,
		SimTimeSec:     4.0,
		MeanEnergy:     0.25,
		GridSize:       64,
		Backend:        "cpu",
	}
	m.Broadcast(sent)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got WindowStats
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("reading broadcast: %v", err)
	}

	if got.WindowEndFrame != sent.WindowEndFrame {
		t.Errorf("window end = %d, want %d", got.WindowEndFrame, sent.WindowEndFrame)
	}
	if got.MeanEnergy != sent.MeanEnergy {
		t.Errorf("mean energy = %v, want %v", got.MeanEnergy, sent.MeanEnergy)
	}
	if got.Backend != sent.Backend {
		t.Errorf("backend = %q, want %q", got.Backend, sent.Backend)
	}
}

func TestMonitorDropsDeadClients(t *testing.T) {
	m := NewMonitor("127.0.0.1:0")
	if err := m.Start(); err != nil {
		t.Fatalf("starting monitor: %v", err)
	}
	defer m.Close()

	url := "ws://" + m.Addr() + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", url, err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for m.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}

	conn.Close()

	// The read pump notices the close and unregisters; broadcasting to
	// a closed connection drops it as well. Either path empties the map.
	deadline = time.Now().Add(2 * time.Second)
	for m.ClientCount() > 0 {
		m.Broadcast(WindowStats{})
		if time.Now().After(deadline) {
			t.Fatal("dead client never dropped")
		}
		time.Sleep(time.Millisecond)
	}
}
