package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []Event
	err    error
}

func (r *recorder) Publish(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return r.err
}

func TestMulti_DeliversToAllAndJoinsErrors(t *testing.T) {
	ok := &recorder{}
	broken := &recorder{err: errors.New("broker down")}
	after := &recorder{}

	err := Multi{ok, broken, nil, after}.Publish(context.Background(), Event{Type: TypeOrderPaid, OrderID: "o1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Len(t, ok.events, 1)
	assert.Len(t, after.events, 1)
}

func TestEmit_StampsTimeAndSwallowsErrors(t *testing.T) {
	r := &recorder{err: errors.New("nope")}

	Emit(context.Background(), r, Event{Type: TypeOrderCreated, OrderID: "o1"})
	Emit(context.Background(), nil, Event{Type: TypeOrderCreated})

	require.Len(t, r.events, 1)
	assert.False(t, r.events[0].OccurredAt.IsZero())
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Publish(context.Background(), Event{}))
}
