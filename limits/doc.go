// Package limits provides centralized bounds and validation functions for the
// Wi-Fi Direct node model. Every component that accepts services, group clients
// or invitation bounds validates them here so the rules live in one place.
//
// # Services
//
// Local services are advertised as Bonjour (DNS-SD) records:
//
//   - MaxServiceInstanceName (63 bytes): one DNS label.
//   - MaxServiceRecord (255 bytes): one TXT key=value entry.
//   - MaxServicesPerNode (16): local services a node may register.
//
// # Groups
//
// A group owner serves at most MaxGroupClients clients. The model assumes a
// single flat group per owner.
//
// # Invitation Bound
//
// Invitations expire after a number of simulation cycles. The default,
// DefaultInvitationTimeout (150), corresponds to 15 simulated seconds at ten
// cycles per second. Configured values must lie in
// [MinInvitationTimeout, MaxInvitationTimeout].
//
// # Error Types
//
//	err := limits.ValidateServiceName(name)
//	if errors.Is(err, limits.ErrServiceNameTooLong) {
//	    // reject the registration
//	}
package limits
