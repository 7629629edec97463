package peer

import (
	"strconv"
)

// NodeID identifies a simulated node.
type NodeID uint64

// String returns the decimal form of the identifier.
func (id NodeID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Status represents a node's relationship to a group.
type Status uint8

const (
	StatusConnected Status = iota
	StatusInvited
	StatusFailed
	StatusAvailable
	StatusUnavailable
)

// String returns a string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "CONNECTED"
	case StatusInvited:
		return "INVITED"
	case StatusFailed:
		return "FAILED"
	case StatusAvailable:
		return "AVAILABLE"
	case StatusUnavailable:
		return "UNAVAILABLE"
	default:
		return "UNKNOWN"
	}
}

// Service is a Bonjour service a node advertises to peers.
type Service struct {
	InstanceName     string
	RegistrationType string
	TXTRecord        map[string]string
}

// Clone returns a deep copy of the service.
func (s Service) Clone() Service {
	out := Service{
		InstanceName:     s.InstanceName,
		RegistrationType: s.RegistrationType,
	}
	if s.TXTRecord != nil {
		out.TXTRecord = make(map[string]string, len(s.TXTRecord))
		for k, v := range s.TXTRecord {
			out.TXTRecord[k] = v
		}
	}
	return out
}
