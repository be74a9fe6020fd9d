package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan struct{}) bool {
	t.Helper()
	select {
	case _, ok := <-ch:
		return ok
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected a signal")
		return false
	}
}

func TestBus_PublishReachesEverySubscriber(t *testing.T) {
	bus := NewBus()
	unsubA, a := bus.Subscribe(Logout)
	defer unsubA()
	unsubB, b := bus.Subscribe(Logout)
	defer unsubB()

	assert.Equal(t, 2, bus.Publish(Logout))
	assert.True(t, receive(t, a))
	assert.True(t, receive(t, b))
}

func TestBus_PublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewBus()
	assert.Equal(t, 0, bus.Publish(Logout))

	var zero Bus
	assert.Equal(t, 0, zero.Publish(Logout))
}

func TestBus_SignalsCoalesce(t *testing.T) {
	bus := NewBus()
	unsub, ch := bus.Subscribe(Logout)
	defer unsub()

	bus.Publish(Logout)
	bus.Publish(Logout)
	bus.Publish(Logout)

	require.True(t, receive(t, ch))
	select {
	case <-ch:
		t.Fatal("pending signals should coalesce into one")
	default:
	}
}

func TestBus_NamesAreIsolated(t *testing.T) {
	bus := NewBus()
	unsub, ch := bus.Subscribe(Logout)
	defer unsub()

	assert.Equal(t, 0, bus.Publish(Name("refresh")))
	select {
	case <-ch:
		t.Fatal("unexpected signal for a different name")
	default:
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	unsub, ch := bus.Subscribe(Logout)
	bus.Publish(Logout)

	unsub()
	assert.False(t, receive(t, ch), "channel should be closed after unsubscribe")
	assert.Equal(t, 0, bus.Subscribers(Logout))

	// Repeat unsubscribe is safe.
	unsub()
}

func TestBus_StopAllClosesChannels(t *testing.T) {
	bus := NewBus()
	unsubA, a := bus.Subscribe(Logout)
	unsubB, b := bus.Subscribe(Name("other"))

	bus.StopAll()

	for _, ch := range []<-chan struct{}{a, b} {
		assert.False(t, receive(t, ch), "channels should be closed after StopAll")
	}

	// Unsubscribes should remain safe post-stop.
	unsubA()
	unsubB()
}
