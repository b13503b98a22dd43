package livefeed

import (
	"testing"
	"time"
)

func recv(t *testing.T, ch chan []byte) []byte {
	t.Helper()
	select {
	case data := <-ch:
		return data
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
		return nil
	}
}

func TestBroadcastFanOut(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	a := &Client{Send: make(chan []byte, 1)}
	b := &Client{Send: make(chan []byte, 1)}
	h.register <- a
	h.register <- b

	h.Broadcast([]byte(`{"type":"order_created"}`))

	if got := string(recv(t, a.Send)); got != `{"type":"order_created"}` {
		t.Fatalf("client a got %q", got)
	}
	if got := string(recv(t, b.Send)); got != `{"type":"order_created"}` {
		t.Fatalf("client b got %q", got)
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	c := &Client{Send: make(chan []byte, 1)}
	h.register <- c
	h.unregister <- c

	// channel closed on unregister
	select {
	case _, ok := <-c.Send:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}

func TestSlowClientDropped(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	// zero-capacity channel with no reader: first broadcast drops the client
	c := &Client{Send: make(chan []byte)}
	h.register <- c
	h.Broadcast([]byte("one"))

	// give the hub a moment to process the broadcast with no reader attached
	time.Sleep(50 * time.Millisecond)

	select {
	case _, ok := <-c.Send:
		if ok {
			t.Fatal("expected closed channel after drop")
		}
	case <-time.After(time.Second):
		t.Fatal("slow client not dropped")
	}
}
