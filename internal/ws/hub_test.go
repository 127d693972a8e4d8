package ws

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/edgy2009/adboard/internal/observability"
)

// startHub runs a hub for the duration of the test.
func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zap.NewNop(), observability.NewNoOpRegistry())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// stubClient builds a client without a live connection. The pumps are
// never started, so the hub only sees its send channel.
func stubClient(hub *Hub, buffer int) *Client {
	return &Client{
		id:     clientIDCounter.Add(1),
		hub:    hub,
		send:   make(chan Message, buffer),
		logger: zap.NewNop(),
	}
}

func waitForClientCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	for i := 0; i < 50; i++ {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", hub.ClientCount(), want)
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := startHub(t)
	client := stubClient(hub, 256)

	hub.Register <- client
	waitForClientCount(t, hub, 1)

	hub.Unregister <- client
	waitForClientCount(t, hub, 0)

	select {
	case _, ok := <-client.send:
		if ok {
			t.Fatal("expected send channel to be closed after unregister")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}
}

func TestHub_UnregisterUnknownClient(t *testing.T) {
	hub := startHub(t)

	hub.Unregister <- stubClient(hub, 256)
	time.Sleep(20 * time.Millisecond)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("ClientCount() = %d, want 0", got)
	}
}

func TestBroadcastDisplay_ReachesAllClients(t *testing.T) {
	hub := startHub(t)

	clients := make([]*Client, 3)
	for i := range clients {
		clients[i] = stubClient(hub, 256)
		hub.Register <- clients[i]
	}
	waitForClientCount(t, hub, 3)

	hub.BroadcastDisplay(map[string]string{"ad_id": "zara"})

	for i, client := range clients {
		select {
		case msg := <-client.send:
			if msg.Type != MessageTypeDisplay {
				t.Errorf("client %d: message type = %q, want %q", i, msg.Type, MessageTypeDisplay)
			}
			data, ok := msg.Data.(map[string]string)
			if !ok || data["ad_id"] != "zara" {
				t.Errorf("client %d: unexpected payload %#v", i, msg.Data)
			}
		case <-time.After(time.Second):
			t.Fatalf("client %d never received the broadcast", i)
		}
	}
}

func TestBroadcastCatalogUpdate(t *testing.T) {
	hub := startHub(t)
	client := stubClient(hub, 256)
	hub.Register <- client
	waitForClientCount(t, hub, 1)

	hub.BroadcastCatalogUpdate(8)

	select {
	case msg := <-client.send:
		if msg.Type != MessageTypeCatalog {
			t.Fatalf("message type = %q, want %q", msg.Type, MessageTypeCatalog)
		}
		data, ok := msg.Data.(CatalogUpdateData)
		if !ok {
			t.Fatalf("payload type = %T, want CatalogUpdateData", msg.Data)
		}
		if data.AdCount != 8 || data.Timestamp == "" {
			t.Fatalf("unexpected payload %+v", data)
		}
	case <-time.After(time.Second):
		t.Fatal("never received the catalog update")
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := startHub(t)

	client := stubClient(hub, 1)
	hub.Register <- client
	waitForClientCount(t, hub, 1)

	// Fill the buffer so the next broadcast cannot be delivered.
	client.send <- Message{Type: MessageTypeDisplay}
	hub.BroadcastDisplay(map[string]string{"ad_id": "bmw"})

	waitForClientCount(t, hub, 0)
}

func TestHub_FullBroadcastChannelDoesNotBlock(t *testing.T) {
	// No Run loop, so the broadcast channel fills up.
	hub := NewHub(zap.NewNop(), observability.NewNoOpRegistry())

	for i := 0; i < 300; i++ {
		hub.BroadcastDisplay(map[string]int{"cycle": i})
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub(zap.NewNop(), observability.NewNoOpRegistry())
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- hub.Run(ctx)
	}()

	client := stubClient(hub, 256)
	hub.Register <- client
	waitForClientCount(t, hub, 1)

	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("ClientCount() after shutdown = %d, want 0", got)
	}
}

// clientGauge records the most recent connected-client gauge value.
type clientGauge struct {
	observability.MetricsRegistry
	mu   sync.Mutex
	last int
}

func (g *clientGauge) SetWSClients(count int) {
	g.mu.Lock()
	g.last = count
	g.mu.Unlock()
}

func (g *clientGauge) value() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

func TestHub_TracksClientGauge(t *testing.T) {
	gauge := &clientGauge{MetricsRegistry: observability.NewNoOpRegistry()}
	hub := NewHub(zap.NewNop(), gauge)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	client := stubClient(hub, 256)
	hub.Register <- client
	waitForClientCount(t, hub, 1)
	if got := gauge.value(); got != 1 {
		t.Fatalf("gauge after register = %d, want 1", got)
	}

	hub.Unregister <- client
	waitForClientCount(t, hub, 0)
	if got := gauge.value(); got != 0 {
		t.Fatalf("gauge after unregister = %d, want 0", got)
	}
}

func TestMarshalMessage(t *testing.T) {
	raw, err := MarshalMessage(Message{Type: MessageTypeDisplay, Data: map[string]string{"ad_id": "umbrella"}})
	if err != nil {
		t.Fatalf("MarshalMessage() error = %v", err)
	}
	want := `{"type":"display","data":{"ad_id":"umbrella"}}`
	if string(raw) != want {
		t.Fatalf("MarshalMessage() = %s, want %s", raw, want)
	}
}
