package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opd-ai/wifip2p/event"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventCounters(t *testing.T) {
	r := NewRecorder()

	r.EventSent(event.KindServiceAvailable, 2)
	r.EventSent(event.KindServiceAvailable, 2)
	r.EventSent(event.KindPeersChanged, 1)
	r.EventDelivered(event.KindServiceAvailable, 2, 3)
	r.EventDropped(event.KindServiceAvailable, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.eventsSent.WithLabelValues("service_available", "2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.eventsSent.WithLabelValues("peers_changed", "1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.eventsDelivered.WithLabelValues("service_available", "2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.eventsDropped.WithLabelValues("service_available", "2")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.deliveryLatency))
}

func TestObserverCounters(t *testing.T) {
	r := NewRecorder()

	r.InvitationTimedOut(4)
	r.MemberEvicted(1, 2, true)
	r.MemberEvicted(1, 3, false)
	r.MemberEvicted(1, 5, false)
	r.PeersChangedHandled()

	assert.Equal(t, 1.0, testutil.ToFloat64(r.invitationTimeouts))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.evictions.WithLabelValues("true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.evictions.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.peersChanged))
}

func TestCycleGauges(t *testing.T) {
	r := NewRecorder()
	r.SetNodes(25)
	r.CycleCompleted(7, 3, 2*time.Millisecond)

	assert.Equal(t, 25.0, testutil.ToFloat64(r.nodes))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.cycle))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.groups))
}

func TestRecordersAreIndependent(t *testing.T) {
	a := NewRecorder()
	b := NewRecorder()
	a.InvitationTimedOut(1)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.invitationTimeouts))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.invitationTimeouts))
}

func TestHandler(t *testing.T) {
	r := NewRecorder()
	r.EventSent(event.KindCancelConnectionRequest, 0)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `wifip2p_events_sent_total{channel="0",kind="cancel_connection_request"} 1`))
	assert.Contains(t, body, "wifip2p_uptime_seconds")
}
