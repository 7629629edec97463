package simulation

import (
	"testing"

	"github.com/opd-ai/wifip2p/config"
	"github.com/opd-ai/wifip2p/event"
	"github.com/opd-ai/wifip2p/interfaces"
	"github.com/opd-ai/wifip2p/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHooks struct {
	sent, delivered, dropped int
	latencies                []int64
}

func (h *countingHooks) EventSent(event.Kind, interfaces.ChannelID) { h.sent++ }

func (h *countingHooks) EventDelivered(_ event.Kind, _ interfaces.ChannelID, latency int64) {
	h.delivered++
	h.latencies = append(h.latencies, latency)
}

func (h *countingHooks) EventDropped(event.Kind, interfaces.ChannelID) { h.dropped++ }

func endpoint(node peer.NodeID, role event.Role) event.Endpoint {
	return event.Endpoint{Node: node, Role: role}
}

func TestTransportDelay(t *testing.T) {
	hooks := &countingHooks{}
	tr, err := NewTransport([]config.Channel{{ID: 1, MinDelay: 2, MaxDelay: 2}}, 1, hooks)
	require.NoError(t, err)

	var got []event.Event
	tr.Register(endpoint(2, 1), func(ev event.Event) { got = append(got, ev) })

	tr.Send(event.New(event.KindPeersChanged, endpoint(1, 0), endpoint(2, 1), nil, 5), 1)

	assert.Equal(t, 0, tr.Deliver(5))
	assert.Equal(t, 0, tr.Deliver(6))
	assert.Equal(t, 1, tr.Deliver(7))
	require.Len(t, got, 1)
	assert.Equal(t, event.KindPeersChanged, got[0].Kind)

	assert.Equal(t, 1, hooks.sent)
	assert.Equal(t, 1, hooks.delivered)
	assert.Equal(t, []int64{2}, hooks.latencies)

	log := tr.GetDeliveryLog()
	require.Len(t, log, 1)
	assert.Equal(t, int64(7), log[0].Delivered)
}

func TestTransportZeroDelayPreservesOrder(t *testing.T) {
	tr, err := NewTransport([]config.Channel{{ID: 0}}, 1, nil)
	require.NoError(t, err)

	var order []int
	tr.Register(endpoint(2, 2), func(ev event.Event) { order = append(order, ev.Payload.(int)) })
	for i := 0; i < 5; i++ {
		tr.Send(event.New(event.KindCancelConnectionRequest, endpoint(1, 0), endpoint(2, 2), i, 3), 0)
	}

	assert.Equal(t, 5, tr.Deliver(3))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	assert.Equal(t, 0, tr.Deliver(3))
}

func TestTransportDropAll(t *testing.T) {
	hooks := &countingHooks{}
	tr, err := NewTransport([]config.Channel{{ID: 2, DropRate: 1}}, 1, hooks)
	require.NoError(t, err)
	tr.Register(endpoint(2, 1), func(event.Event) { t.Fatal("dropped event delivered") })

	for i := 0; i < 10; i++ {
		tr.Send(event.New(event.KindServiceAvailable, endpoint(1, 0), endpoint(2, 1), nil, 0), 2)
	}
	assert.Equal(t, 0, tr.Deliver(100))

	stats := tr.Stats()
	assert.Equal(t, 10, stats.Sent)
	assert.Equal(t, 10, stats.Dropped)
	assert.Equal(t, 0, stats.Delivered)
	assert.Equal(t, 10, stats.ByKind[event.KindServiceAvailable])
	assert.Equal(t, 10, hooks.dropped)
}

func TestTransportUndeliverable(t *testing.T) {
	tr, err := NewTransport([]config.Channel{{ID: 1}}, 1, nil)
	require.NoError(t, err)

	tr.Send(event.New(event.KindPeersChanged, endpoint(1, 0), endpoint(9, 1), nil, 0), 1)
	assert.Equal(t, 0, tr.Deliver(0))

	stats := tr.Stats()
	assert.Equal(t, 1, stats.Undeliverable)
	assert.Equal(t, 0, stats.Pending)
}

func TestTransportPending(t *testing.T) {
	tr, err := NewTransport([]config.Channel{{ID: 1, MinDelay: 1, MaxDelay: 4}}, 1, nil)
	require.NoError(t, err)
	tr.Register(endpoint(2, 1), func(event.Event) {})

	for i := 0; i < 20; i++ {
		tr.Send(event.New(event.KindPeersChanged, endpoint(1, 0), endpoint(2, 1), nil, 0), 1)
	}
	assert.Equal(t, 0, tr.Deliver(0))
	assert.Equal(t, 20, tr.Stats().Pending)

	total := 0
	for now := int64(1); now <= 4; now++ {
		total += tr.Deliver(now)
	}
	assert.Equal(t, 20, total)
	assert.Equal(t, 0, tr.Stats().Pending)
}

func TestNewTransportRejectsDuplicateChannel(t *testing.T) {
	_, err := NewTransport([]config.Channel{{ID: 1}, {ID: 1}}, 1, nil)
	assert.Error(t, err)

	_, err = NewTransport([]config.Channel{{ID: 1, MinDelay: 3, MaxDelay: 1}}, 1, nil)
	assert.Error(t, err)
}
