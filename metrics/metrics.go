package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/opd-ai/wifip2p/event"
	"github.com/opd-ai/wifip2p/interfaces"
	"github.com/opd-ai/wifip2p/peer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wifip2p"

// Recorder collects simulation metrics in its own registry. It implements
// interfaces.Observer so it can be handed to trackers directly.
type Recorder struct {
	registry *prometheus.Registry

	eventsSent      *prometheus.CounterVec
	eventsDelivered *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec
	deliveryLatency *prometheus.HistogramVec

	peersChanged       prometheus.Counter
	invitationTimeouts prometheus.Counter
	evictions          *prometheus.CounterVec

	cycle     prometheus.Gauge
	nodes     prometheus.Gauge
	groups    prometheus.Gauge
	cycleTime prometheus.Histogram
	startTime time.Time
	uptime    prometheus.GaugeFunc
}

var _ interfaces.Observer = (*Recorder)(nil)

// NewRecorder creates a Recorder with every collector registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}

	r.eventsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_sent_total",
			Help:      "Events handed to the transport.",
		},
		[]string{"kind", "channel"},
	)
	r.eventsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_delivered_total",
			Help:      "Events delivered to a handler.",
		},
		[]string{"kind", "channel"},
	)
	r.eventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events lost by the transport or addressed to an unknown handler.",
		},
		[]string{"kind", "channel"},
	)
	r.deliveryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_latency_cycles",
			Help:      "Cycles between send and delivery.",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		},
		[]string{"channel"},
	)
	r.peersChanged = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "peers_changed_handled_total",
		Help:      "Peers-changed notifications processed by listeners.",
	})
	r.invitationTimeouts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invitation_timeouts_total",
		Help:      "Invitations that expired before being answered.",
	})
	r.evictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "group_evictions_total",
			Help:      "Group members removed for leaving radio range.",
		},
		[]string{"cancel_sent"},
	)
	r.cycle = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cycle",
		Help:      "Last completed simulation cycle.",
	})
	r.nodes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "nodes",
		Help:      "Number of simulated nodes.",
	})
	r.groups = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "groups",
		Help:      "Number of group owners at the end of the last cycle.",
	})
	r.cycleTime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Wall time spent executing one cycle.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
	})
	r.uptime = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Recorder uptime in seconds.",
		},
		func() float64 { return time.Since(r.startTime).Seconds() },
	)

	r.registry.MustRegister(
		r.eventsSent, r.eventsDelivered, r.eventsDropped, r.deliveryLatency,
		r.peersChanged, r.invitationTimeouts, r.evictions,
		r.cycle, r.nodes, r.groups, r.cycleTime, r.uptime,
	)
	return r
}

// Registry returns the registry backing r.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler exposes the registry. Mount it with mux.Handle("/metrics", r.Handler()).
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func channelLabel(channel interfaces.ChannelID) string {
	return strconv.Itoa(int(channel))
}

// EventSent counts an event accepted by the transport.
func (r *Recorder) EventSent(kind event.Kind, channel interfaces.ChannelID) {
	r.eventsSent.WithLabelValues(kind.String(), channelLabel(channel)).Inc()
}

// EventDelivered counts a delivered event and observes its latency.
func (r *Recorder) EventDelivered(kind event.Kind, channel interfaces.ChannelID, latencyCycles int64) {
	label := channelLabel(channel)
	r.eventsDelivered.WithLabelValues(kind.String(), label).Inc()
	r.deliveryLatency.WithLabelValues(label).Observe(float64(latencyCycles))
}

// EventDropped counts an event that never reached a handler.
func (r *Recorder) EventDropped(kind event.Kind, channel interfaces.ChannelID) {
	r.eventsDropped.WithLabelValues(kind.String(), channelLabel(channel)).Inc()
}

// PeersChangedHandled counts a peers-changed notification processed by a listener.
func (r *Recorder) PeersChangedHandled() {
	r.peersChanged.Inc()
}

// InvitationTimedOut implements interfaces.Observer.InvitationTimedOut
func (r *Recorder) InvitationTimedOut(peer.NodeID) {
	r.invitationTimeouts.Inc()
}

// MemberEvicted implements interfaces.Observer.MemberEvicted
func (r *Recorder) MemberEvicted(_, _ peer.NodeID, cancelSent bool) {
	r.evictions.WithLabelValues(strconv.FormatBool(cancelSent)).Inc()
}

// CycleCompleted records the end of a cycle.
func (r *Recorder) CycleCompleted(cycle int64, groups int, elapsed time.Duration) {
	r.cycle.Set(float64(cycle))
	r.groups.Set(float64(groups))
	r.cycleTime.Observe(elapsed.Seconds())
}

// SetNodes records the simulation size.
func (r *Recorder) SetNodes(n int) {
	r.nodes.Set(float64(n))
}
