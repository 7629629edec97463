package event

import (
	"testing"

	"github.com/google/uuid"
	"github.com/opd-ai/wifip2p/peer"
	"github.com/stretchr/testify/assert"
)

func TestNewAssignsUniqueIDs(t *testing.T) {
	src := Endpoint{Node: 1, Role: 0}
	dst := Endpoint{Node: 2, Role: 1}

	a := New(KindPeersChanged, src, dst, nil, 3)
	b := New(KindPeersChanged, src, dst, nil, 3)

	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, int64(3), a.Cycle)
	assert.Equal(t, src, a.Src)
	assert.Equal(t, dst, a.Dst)
}

func TestServicePayload(t *testing.T) {
	svc := peer.Service{InstanceName: "chat"}
	ev := New(KindServiceAvailable, Endpoint{Node: 1}, Endpoint{Node: 2}, svc, 1)

	got, ok := ev.Service()
	assert.True(t, ok)
	assert.Equal(t, svc, got)

	_, ok = New(KindPeersChanged, Endpoint{}, Endpoint{}, nil, 0).Service()
	assert.False(t, ok)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "peers_changed", KindPeersChanged.String())
	assert.Equal(t, "service_available", KindServiceAvailable.String())
	assert.Equal(t, "cancel_connection_request", KindCancelConnectionRequest.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
