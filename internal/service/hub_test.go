package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/lazarohernan/abogados/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	client := NewChannelClient(nil, "user-1")
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.OnlineCount() == 1 }, time.Second, time.Millisecond)

	hub.Unregister(client)
	require.Eventually(t, func() bool { return hub.OnlineCount() == 0 }, time.Second, time.Millisecond)

	// Outbox is closed once unregistered.
	select {
	case _, ok := <-client.Outbox():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("outbox not closed after unregister")
	}

	// Late emits are dropped, not panics.
	client.Emit(model.NewEvent(model.EventTypingStarted, nil))
}

func TestHubBroadcastReachesAllChannels(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	a := NewChannelClient(nil, "user-a")
	b := NewChannelClient(nil, "user-b")
	hub.Register(a)
	hub.Register(b)
	require.Eventually(t, func() bool { return hub.OnlineCount() == 2 }, time.Second, time.Millisecond)

	hub.Broadcast(model.NewEvent(model.EventNotice, model.Notice{Message: "mantenimiento a las 22:00"}))

	for _, client := range []*ChannelClient{a, b} {
		select {
		case data := <-client.Outbox():
			assert.Contains(t, string(data), "mantenimiento")
		case <-time.After(time.Second):
			t.Fatal("broadcast did not reach client")
		}
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := NewChannelClient(nil, "user-1")
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.OnlineCount() == 1 }, time.Second, time.Millisecond)

	hub.Shutdown()

	select {
	case _, ok := <-client.Outbox():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("outbox not closed after shutdown")
	}
}

func TestChannelClientEmitPreservesOrder(t *testing.T) {
	client := NewChannelClient(nil, "user-1")

	client.Emit(model.NewEvent(model.EventTypingStarted, nil))
	client.Emit(model.NewEvent(model.EventStreamChunk, model.StreamChunk{Content: "hola"}))
	client.Emit(model.NewEvent(model.EventTypingStopped, nil))

	var types []string
	for i := 0; i < 3; i++ {
		data := <-client.Outbox()
		var ev model.WSEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{model.EventTypingStarted, model.EventStreamChunk, model.EventTypingStopped}, types)
}
