package sse

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inbox-pilot/internal/model"
	"inbox-pilot/internal/repository/memory"
)

func TestPublishReachesAllUserClients(t *testing.T) {
	m := NewManager(zerolog.Nop())
	defer m.Close()

	ch1 := m.Subscribe("user-1")
	ch2 := m.Subscribe("user-1")
	other := m.Subscribe("user-2")

	event := model.NewActivityEvent("user-1", model.EventSent, "m1", "full-auto")
	m.Publish("user-1", event)

	for _, ch := range []chan []byte{ch1, ch2} {
		payload := <-ch
		var got model.ActivityEvent
		require.NoError(t, json.Unmarshal(payload, &got))
		assert.Equal(t, model.EventSent, got.Type)
		assert.Equal(t, "m1", got.GmailID)
	}

	select {
	case <-other:
		t.Fatal("event leaked to another user's client")
	default:
	}
}

func TestPublishWithoutClientsIsNoOp(t *testing.T) {
	m := NewManager(zerolog.Nop())
	defer m.Close()

	m.Publish("user-1", model.NewActivityEvent("user-1", model.EventQueued, "m1", ""))
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	m := NewManager(zerolog.Nop())
	defer m.Close()

	ch := m.Subscribe("user-1")
	m.Unsubscribe("user-1", ch)

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, m.ConnectionCount("user-1"))

	// Double unsubscribe is safe.
	m.Unsubscribe("user-1", ch)
}

func TestSlowClientDropsEventInsteadOfBlocking(t *testing.T) {
	m := NewManager(zerolog.Nop())
	defer m.Close()

	ch := m.Subscribe("user-1")
	event := model.NewActivityEvent("user-1", model.EventQueued, "m1", "")
	for i := 0; i < clientBuffer+5; i++ {
		m.Publish("user-1", event)
	}

	assert.Len(t, ch, clientBuffer)
}

func TestCloseEndsExistingAndFutureSubscriptions(t *testing.T) {
	m := NewManager(zerolog.Nop())

	ch := m.Subscribe("user-1")
	m.Close()

	_, open := <-ch
	assert.False(t, open)

	late := m.Subscribe("user-1")
	_, open = <-late
	assert.False(t, open)
}

func TestBroadcastingRepositoryAppendsAndPublishes(t *testing.T) {
	m := NewManager(zerolog.Nop())
	defer m.Close()

	inner := memory.NewInMemoryActivityRepository()
	repo := NewBroadcastingActivityRepository(inner, m)

	ch := m.Subscribe("user-1")
	event := model.NewActivityEvent("user-1", model.EventDrafted, "m1", "")
	require.NoError(t, repo.Append(context.Background(), event))

	stored, err := inner.Recent(context.Background(), "user-1", 10)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	payload := <-ch
	var got model.ActivityEvent
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, model.EventDrafted, got.Type)
}
