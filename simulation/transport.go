package simulation

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/opd-ai/wifip2p/config"
	"github.com/opd-ai/wifip2p/event"
	"github.com/opd-ai/wifip2p/interfaces"
	"github.com/sirupsen/logrus"
)

// maxDeliveryLog bounds how many recent deliveries the transport remembers.
const maxDeliveryLog = 4096

// Handler consumes an event delivered to one endpoint.
type Handler func(ev event.Event)

// TransportHooks receives transport accounting. metrics.Recorder implements it.
type TransportHooks interface {
	EventSent(kind event.Kind, channel interfaces.ChannelID)
	EventDelivered(kind event.Kind, channel interfaces.ChannelID, latencyCycles int64)
	EventDropped(kind event.Kind, channel interfaces.ChannelID)
}

// DeliveryRecord describes one delivered event.
type DeliveryRecord struct {
	Event     event.Event
	Channel   interfaces.ChannelID
	Delivered int64
}

// TransportStats summarises transport activity.
type TransportStats struct {
	Sent          int
	Delivered     int
	Dropped       int
	Undeliverable int
	Pending       int
	ByKind        map[event.Kind]int
}

type pending struct {
	ev      event.Event
	channel interfaces.ChannelID
	due     int64
	seq     uint64
}

// Transport implements interfaces.ChannelSender with per-channel delay and
// loss. Events are queued by Send and handed to the handler registered for
// their destination endpoint by Deliver once they are due.
type Transport struct {
	channels map[interfaces.ChannelID]config.Channel
	handlers map[event.Endpoint]Handler
	queue    []pending
	seq      uint64
	log      []DeliveryRecord
	stats    TransportStats
	hooks    TransportHooks
	rng      *rand.Rand
	mu       sync.Mutex
}

// NewTransport creates a transport for the given channels. hooks may be nil.
func NewTransport(channels []config.Channel, seed int64, hooks TransportHooks) (*Transport, error) {
	t := &Transport{
		channels: make(map[interfaces.ChannelID]config.Channel, len(channels)),
		handlers: make(map[event.Endpoint]Handler),
		stats:    TransportStats{ByKind: make(map[event.Kind]int)},
		hooks:    hooks,
		rng:      rand.New(rand.NewSource(seed)),
	}
	for _, ch := range channels {
		if err := ch.Validate(); err != nil {
			return nil, err
		}
		id := interfaces.ChannelID(ch.ID)
		if _, dup := t.channels[id]; dup {
			return nil, fmt.Errorf("%w: channel id %d used twice", config.ErrInvalidConfig, ch.ID)
		}
		t.channels[id] = ch
	}
	return t, nil
}

// Register installs the handler for endpoint, replacing any previous one.
func (t *Transport) Register(endpoint event.Endpoint, h Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[endpoint] = h
}

// Send implements interfaces.ChannelSender.Send. Events on unknown channels
// are delivered without delay or loss.
func (t *Transport) Send(ev event.Event, channel interfaces.ChannelID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.Sent++
	t.stats.ByKind[ev.Kind]++
	if t.hooks != nil {
		t.hooks.EventSent(ev.Kind, channel)
	}

	ch := t.channels[channel]
	if ch.DropRate > 0 && t.rng.Float64() < ch.DropRate {
		t.stats.Dropped++
		if t.hooks != nil {
			t.hooks.EventDropped(ev.Kind, channel)
		}
		logrus.WithFields(logrus.Fields{
			"function": "Transport.Send",
			"event_id": ev.ID,
			"kind":     ev.Kind,
			"channel":  channel,
		}).Debug("Event lost in transit")
		return
	}

	delay := ch.MinDelay
	if spread := ch.MaxDelay - ch.MinDelay; spread > 0 {
		delay += t.rng.Int63n(spread + 1)
	}
	t.seq++
	t.queue = append(t.queue, pending{ev: ev, channel: channel, due: ev.Cycle + delay, seq: t.seq})
}

// Deliver hands every event due at or before now to its handler and returns
// how many were handled. Events are delivered in due order, ties broken by
// send order. Handlers run without the transport lock held.
func (t *Transport) Deliver(now int64) int {
	t.mu.Lock()
	var due, later []pending
	for _, p := range t.queue {
		if p.due <= now {
			due = append(due, p)
		} else {
			later = append(later, p)
		}
	}
	t.queue = later
	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].seq < due[j].seq
	})

	type call struct {
		h  Handler
		ev event.Event
	}
	calls := make([]call, 0, len(due))
	for _, p := range due {
		h, ok := t.handlers[p.ev.Dst]
		if !ok {
			t.stats.Undeliverable++
			if t.hooks != nil {
				t.hooks.EventDropped(p.ev.Kind, p.channel)
			}
			logrus.WithFields(logrus.Fields{
				"function": "Transport.Deliver",
				"event_id": p.ev.ID,
				"dst_node": p.ev.Dst.Node,
				"dst_role": p.ev.Dst.Role,
			}).Warn("No handler registered for destination")
			continue
		}
		t.stats.Delivered++
		if t.hooks != nil {
			t.hooks.EventDelivered(p.ev.Kind, p.channel, now-p.ev.Cycle)
		}
		t.log = append(t.log, DeliveryRecord{Event: p.ev, Channel: p.channel, Delivered: now})
		calls = append(calls, call{h: h, ev: p.ev})
	}
	if extra := len(t.log) - maxDeliveryLog; extra > 0 {
		t.log = append([]DeliveryRecord(nil), t.log[extra:]...)
	}
	t.mu.Unlock()

	for _, c := range calls {
		c.h(c.ev)
	}
	return len(calls)
}

// GetDeliveryLog returns a copy of the most recent deliveries.
func (t *Transport) GetDeliveryLog() []DeliveryRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]DeliveryRecord, len(t.log))
	copy(out, t.log)
	return out
}

// Stats returns a snapshot of the transport counters.
func (t *Transport) Stats() TransportStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.stats
	s.Pending = len(t.queue)
	s.ByKind = make(map[event.Kind]int, len(t.stats.ByKind))
	for k, v := range t.stats.ByKind {
		s.ByKind[k] = v
	}
	return s
}
