package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type ping struct{ n int }
type pong struct{ n int }

func useBus(t *testing.T) *Bus {
	t.Helper()
	b := New()
	Use(b)
	t.Cleanup(func() { Use(nil) })
	return b
}

func TestPublishByType(t *testing.T) {
	useBus(t)

	var pings, pongs []int
	Subscribe(func(_ context.Context, e ping) { pings = append(pings, e.n) })
	Subscribe(func(_ context.Context, e pong) { pongs = append(pongs, e.n) })

	Publish(context.Background(), ping{1})
	Publish(context.Background(), pong{2})
	Publish(context.Background(), ping{3})

	require.Equal(t, []int{1, 3}, pings)
	require.Equal(t, []int{2}, pongs)
}

func TestUnsubscribe(t *testing.T) {
	useBus(t)

	var got []string
	// identical closures must still be removed independently
	handler := func(tag string) Handler[ping] {
		return func(context.Context, ping) { got = append(got, tag) }
	}
	unsubA := Subscribe(handler("a"))
	unsubB := Subscribe(handler("b"))

	Publish(context.Background(), ping{})
	require.Equal(t, []string{"a", "b"}, got)

	got = nil
	unsubA()
	unsubA()
	Publish(context.Background(), ping{})
	require.Equal(t, []string{"b"}, got)

	got = nil
	unsubB()
	Publish(context.Background(), ping{})
	require.Empty(t, got)
}

func TestNoBus(t *testing.T) {
	Use(nil)
	called := false
	unsub := Subscribe(func(context.Context, ping) { called = true })
	Publish(context.Background(), ping{})
	unsub()
	require.False(t, called)
}

func TestSubscribeTo(t *testing.T) {
	b := New()
	var got int
	unsub := SubscribeTo(b, func(_ context.Context, e ping) { got += e.n })
	b.emit(context.Background(), ping{5})
	unsub()
	b.emit(context.Background(), ping{5})
	require.Equal(t, 5, got)
}
