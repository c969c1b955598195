package events

import (
	"testing"

	"github.com/stretchr/testify/require"

	"treasurehunt/core/types"
)

type bareEvent struct{}

func (bareEvent) EventType() string { return "bare" }

func TestBufferKeepsOrderAndCopies(t *testing.T) {
	var buf Buffer
	first := &types.Event{Type: "a", Attributes: map[string]string{"k": "1"}}
	buf.Emit(Wrap(first))
	buf.Emit(bareEvent{})
	buf.Emit(Wrap(&types.Event{Type: "b"}))

	first.Attributes["k"] = "mutated"

	got := buf.Events()
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].Type)
	require.Equal(t, "1", got[0].Attributes["k"])
	require.Equal(t, "b", got[1].Type)
}

func TestBusPublishAndCancel(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)

	bus.Publish(&types.Event{Type: "one"})
	bus.Publish(&types.Event{Type: "dropped"})

	evt := <-ch
	require.Equal(t, "one", evt.Type)

	cancel()
	cancel()
	_, open := <-ch
	require.False(t, open)

	bus.Publish(&types.Event{Type: "after-cancel"})
}
