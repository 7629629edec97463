package testing

import (
	"sync"

	"github.com/opd-ai/wifip2p/event"
	"github.com/opd-ai/wifip2p/interfaces"
	"github.com/sirupsen/logrus"
)

// SimulatedChannel implements interfaces.ChannelSender by recording every
// event instead of delivering it.
type SimulatedChannel struct {
	deliveryLog []DeliveryRecord
	mu          sync.RWMutex
}

// DeliveryRecord represents a sent event for test verification
type DeliveryRecord struct {
	Event   event.Event
	Channel interfaces.ChannelID
}

// ChannelStats summarises the recorded events.
type ChannelStats struct {
	TotalEvents int
	ByKind      map[event.Kind]int
	ByChannel   map[interfaces.ChannelID]int
}

// NewSimulatedChannel creates an empty recording channel
func NewSimulatedChannel() *SimulatedChannel {
	return &SimulatedChannel{
		deliveryLog: make([]DeliveryRecord, 0),
	}
}

// Send implements interfaces.ChannelSender.Send
func (s *SimulatedChannel) Send(ev event.Event, channel interfaces.ChannelID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deliveryLog = append(s.deliveryLog, DeliveryRecord{Event: ev, Channel: channel})

	logrus.WithFields(logrus.Fields{
		"function":     "SimulatedChannel.Send",
		"kind":         ev.Kind,
		"src":          ev.Src.Node,
		"dst":          ev.Dst.Node,
		"channel":      channel,
		"total_events": len(s.deliveryLog),
	}).Debug("Event recorded")
}

// GetDeliveryLog returns the complete delivery log for test verification
func (s *SimulatedChannel) GetDeliveryLog() []DeliveryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Return a copy to prevent external modifications
	log := make([]DeliveryRecord, len(s.deliveryLog))
	copy(log, s.deliveryLog)
	return log
}

// EventsOfKind returns the recorded events of one kind in send order.
func (s *SimulatedChannel) EventsOfKind(kind event.Kind) []DeliveryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []DeliveryRecord
	for _, record := range s.deliveryLog {
		if record.Event.Kind == kind {
			out = append(out, record)
		}
	}
	return out
}

// ClearDeliveryLog clears the delivery log for test cleanup
func (s *SimulatedChannel) ClearDeliveryLog() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deliveryLog = make([]DeliveryRecord, 0)
}

// GetTypedStats returns statistics about the recorded events
func (s *SimulatedChannel) GetTypedStats() ChannelStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := ChannelStats{
		TotalEvents: len(s.deliveryLog),
		ByKind:      make(map[event.Kind]int),
		ByChannel:   make(map[interfaces.ChannelID]int),
	}
	for _, record := range s.deliveryLog {
		stats.ByKind[record.Event.Kind]++
		stats.ByChannel[record.Channel]++
	}
	return stats
}
