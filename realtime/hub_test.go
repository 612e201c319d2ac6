package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/readnest/readnest-server/models"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func recvMessage(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("broadcast not delivered")
		return Message{}
	}
}

func TestHubFanOut(t *testing.T) {
	hub := startHub(t)

	c1 := &Client{hub: hub, send: make(chan Message, 4)}
	c2 := &Client{hub: hub, send: make(chan Message, 4)}
	hub.register <- c1
	hub.register <- c2

	book := &models.BookWithOwner{Book: models.Book{ID: primitive.NewObjectID(), Title: "Dune"}}
	hub.BookRated(book)

	for _, c := range []*Client{c1, c2} {
		msg := recvMessage(t, c)
		assert.Equal(t, EventRatingUpdated, msg.Event)
		assert.Same(t, book, msg.Data)
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := startHub(t)

	fast := &Client{hub: hub, send: make(chan Message, 4)}
	slow := &Client{hub: hub, send: make(chan Message)} // nobody reading
	hub.register <- fast
	hub.register <- slow
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.ReadersCountChanged(&models.BookWithOwner{})

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, EventReadersUpdated, recvMessage(t, fast).Event)

	_, open := <-slow.send
	assert.False(t, open)
}

func TestHubUnregister(t *testing.T) {
	hub := startHub(t)

	c := &Client{hub: hub, send: make(chan Message, 4)}
	hub.register <- c
	hub.unregister <- c

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
	_, open := <-c.send
	assert.False(t, open)
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	c := &Client{hub: hub, send: make(chan Message, 4)}
	hub.register <- c
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	cancel()

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
	_, open := <-c.send
	assert.False(t, open)
}
