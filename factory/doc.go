// Package factory builds proximity trackers from a shared configuration.
//
// Each simulated node owns one tracker. The factory hands out a fresh instance
// per node, with an empty neighbor snapshot and a zero cycle counter, so no
// state ever leaks from one node's tracker to another's.
//
// # Configuration
//
// The factory supports configuration via environment variables:
//   - WIFIP2P_INVITATION_TIMEOUT: invitation bound in cycles
//   - WIFIP2P_PRIMARY_CHANNEL: channel for peers-changed notifications
//   - WIFIP2P_SERVICE_CHANNEL: channel for service advertisements
//   - WIFIP2P_MANAGEMENT_CHANNEL: channel for cancel-connection requests
//
// Invalid or out-of-range values are logged and ignored.
//
// # Usage
//
//	factory := factory.NewTrackerFactory()
//	tracker, err := factory.NewTracker(proximity.Collaborators{
//	    Neighbors: topology,
//	    Sender:    transport,
//	    States:    directory,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Testing Support
//
// CreateTrackerForTesting ignores the environment and uses a short 10-cycle
// invitation bound unless overridden:
//
//	tracker, _ := factory.CreateTrackerForTesting(c, factory.WithInvitationTimeout(3))
package factory
