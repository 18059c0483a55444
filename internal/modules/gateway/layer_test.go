package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLayerDelivery(t *testing.T) {
	l := NewLocalLayer()
	ch := make(chan Envelope, 4)
	l.GroupAdd("g", ch)

	require.NoError(t, l.GroupSend(context.Background(), "g", Envelope{ID: "n1"}))

	select {
	case env := <-ch:
		assert.Equal(t, "n1", env.ID)
	default:
		t.Fatal("expected an envelope in the member buffer")
	}
}

func TestLocalLayerNoDeliveryAfterLeave(t *testing.T) {
	l := NewLocalLayer()
	ch := make(chan Envelope, 4)
	l.GroupAdd("g", ch)
	l.GroupDiscard("g", ch)

	require.NoError(t, l.GroupSend(context.Background(), "g", Envelope{ID: "n1"}))
	assert.Empty(t, ch)
}

func TestLocalLayerLateJoinerMissesEarlierSends(t *testing.T) {
	l := NewLocalLayer()
	require.NoError(t, l.GroupSend(context.Background(), "g", Envelope{ID: "before"}))

	ch := make(chan Envelope, 4)
	l.GroupAdd("g", ch)
	assert.Empty(t, ch, "a member joined after the send must receive nothing")

	require.NoError(t, l.GroupSend(context.Background(), "g", Envelope{ID: "after"}))
	assert.Len(t, ch, 1)
}

func TestLocalLayerDiscardIsIdempotent(t *testing.T) {
	l := NewLocalLayer()
	ch := make(chan Envelope, 1)
	l.GroupAdd("g", ch)

	l.GroupDiscard("g", ch)
	l.GroupDiscard("g", ch)
	l.GroupDiscard("never-existed", ch)

	assert.Zero(t, l.MemberCount("g"))
}

func TestLocalLayerEmptyGroupIsDropped(t *testing.T) {
	l := NewLocalLayer()
	a := make(chan Envelope, 1)
	b := make(chan Envelope, 1)
	l.GroupAdd("g", a)
	l.GroupAdd("g", b)
	assert.Equal(t, 2, l.MemberCount("g"))

	l.GroupDiscard("g", a)
	assert.Equal(t, 1, l.MemberCount("g"))
	l.GroupDiscard("g", b)
	assert.Zero(t, l.MemberCount("g"))
}

func TestLocalLayerSkipsSlowConsumers(t *testing.T) {
	l := NewLocalLayer()
	full := make(chan Envelope, 1)
	full <- Envelope{ID: "stuck"}
	healthy := make(chan Envelope, 1)
	l.GroupAdd("g", full)
	l.GroupAdd("g", healthy)

	// Must not block even though one member's buffer is full.
	require.NoError(t, l.GroupSend(context.Background(), "g", Envelope{ID: "n1"}))

	assert.Len(t, healthy, 1)
	assert.Equal(t, "stuck", (<-full).ID, "the full buffer keeps its old content")
}
