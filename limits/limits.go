// Package limits provides centralized bounds for Wi-Fi Direct node state.
// This ensures consistent validation across peer state, configuration and the simulator.
package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxServiceInstanceName is the longest Bonjour instance name accepted (one DNS label).
	MaxServiceInstanceName = 63

	// MaxServiceRecord is the maximum encoded size of a single TXT key=value entry.
	MaxServiceRecord = 255

	// MaxServicesPerNode bounds the number of local services a node may advertise.
	MaxServicesPerNode = 16

	// MaxGroupClients bounds the number of clients a group owner accepts.
	MaxGroupClients = 8

	// DefaultInvitationTimeout is the invitation bound in cycles (15 simulated seconds at 10 cycles/s).
	DefaultInvitationTimeout = 150

	// MinInvitationTimeout is the smallest accepted invitation bound in cycles.
	MinInvitationTimeout = 1

	// MaxInvitationTimeout is the largest accepted invitation bound in cycles (one simulated hour).
	MaxInvitationTimeout = 36000
)

var (
	// ErrServiceNameEmpty indicates a service without an instance name
	ErrServiceNameEmpty = errors.New("empty service instance name")

	// ErrServiceNameTooLong indicates an instance name longer than MaxServiceInstanceName
	ErrServiceNameTooLong = errors.New("service instance name too long")

	// ErrServiceRecordTooLarge indicates a TXT entry larger than MaxServiceRecord
	ErrServiceRecordTooLarge = errors.New("service record entry too large")

	// ErrTooManyServices indicates the per-node service limit was reached
	ErrTooManyServices = errors.New("too many services")

	// ErrGroupFull indicates the group owner cannot accept another client
	ErrGroupFull = errors.New("group is full")

	// ErrInvitationTimeoutOutOfRange indicates a timeout outside [MinInvitationTimeout, MaxInvitationTimeout]
	ErrInvitationTimeoutOutOfRange = errors.New("invitation timeout out of range")
)

// ValidateServiceName validates a Bonjour instance name.
func ValidateServiceName(name string) error {
	if len(name) == 0 {
		return ErrServiceNameEmpty
	}
	if len(name) > MaxServiceInstanceName {
		return fmt.Errorf("%w: length %d exceeds limit %d", ErrServiceNameTooLong, len(name), MaxServiceInstanceName)
	}
	return nil
}

// ValidateServiceRecord validates the TXT entries of a service. Each entry is
// encoded as key=value and must fit in MaxServiceRecord bytes.
func ValidateServiceRecord(record map[string]string) error {
	for key, value := range record {
		size := len(key) + 1 + len(value)
		if size > MaxServiceRecord {
			return fmt.Errorf("%w: entry %q is %d bytes, limit %d", ErrServiceRecordTooLarge, key, size, MaxServiceRecord)
		}
	}
	return nil
}

// ValidateServiceCount validates that one more service can be added to a node
// already advertising current services.
func ValidateServiceCount(current int) error {
	if current >= MaxServicesPerNode {
		return fmt.Errorf("%w: node already advertises %d services, limit %d", ErrTooManyServices, current, MaxServicesPerNode)
	}
	return nil
}

// ValidateGroupSize validates that a group currently holding members clients can accept another.
func ValidateGroupSize(members int) error {
	if members >= MaxGroupClients {
		return fmt.Errorf("%w: %d clients, limit %d", ErrGroupFull, members, MaxGroupClients)
	}
	return nil
}

// ValidateInvitationTimeout validates an invitation bound expressed in cycles.
func ValidateInvitationTimeout(cycles int64) error {
	if cycles < MinInvitationTimeout || cycles > MaxInvitationTimeout {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvitationTimeoutOutOfRange, cycles, MinInvitationTimeout, MaxInvitationTimeout)
	}
	return nil
}
