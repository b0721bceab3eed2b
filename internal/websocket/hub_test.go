package websocket

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBroadcastToDeliversToUserClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	alice := NewClient(hub, nil, "alice")
	bob := NewClient(hub, nil, "bob")
	hub.Register <- alice
	hub.Register <- bob

	hub.BroadcastTo("alice", []byte("ping"))

	select {
	case msg := <-alice.Send:
		require.Equal(t, []byte("ping"), msg)
	case <-time.After(time.Second):
		t.Fatal("alice never received the message")
	}

	select {
	case <-bob.Send:
		t.Fatal("bob received a message addressed to alice")
	case <-time.After(50 * time.Millisecond):
	}
}

// Exercises BroadcastTo from a foreign goroutine while the run loop keeps
// mutating its client maps. Fails under the race detector if delivery ever
// touches those maps directly.
func TestBroadcastToIsSafeDuringConnectionChurn(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			client := NewClient(hub, nil, "alice")
			hub.Register <- client
			go func() {
				for range client.Send {
				}
			}()
			hub.Unregister <- client
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			hub.BroadcastTo("alice", []byte("tick"))
		}
	}()

	wg.Wait()
}
