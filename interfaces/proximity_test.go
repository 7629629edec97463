package interfaces

import (
	"errors"
	"testing"

	"github.com/opd-ai/wifip2p/limits"
	"github.com/opd-ai/wifip2p/peer"
)

// TestTrackerConfigValidate tests the Validate method of TrackerConfig.
func TestTrackerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *TrackerConfig)
		wantErr error
	}{
		{
			name:    "default config",
			mutate:  func(c *TrackerConfig) {},
			wantErr: nil,
		},
		{
			name:    "minimum timeout",
			mutate:  func(c *TrackerConfig) { c.InvitationTimeout = limits.MinInvitationTimeout },
			wantErr: nil,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *TrackerConfig) { c.InvitationTimeout = 0 },
			wantErr: ErrInvalidInvitationTimeout,
		},
		{
			name:    "timeout above maximum",
			mutate:  func(c *TrackerConfig) { c.InvitationTimeout = limits.MaxInvitationTimeout + 1 },
			wantErr: ErrInvalidInvitationTimeout,
		},
		{
			name:    "listener shares tracker role",
			mutate:  func(c *TrackerConfig) { c.ListenerRole = c.TrackerRole },
			wantErr: ErrRoleConflict,
		},
		{
			name:    "manager shares listener role",
			mutate:  func(c *TrackerConfig) { c.ManagerRole = c.ListenerRole },
			wantErr: ErrRoleConflict,
		},
		{
			name: "all channels identical",
			mutate: func(c *TrackerConfig) {
				c.PrimaryChannel, c.ServiceChannel, c.ManagementChannel = 3, 3, 3
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultTrackerConfig()
			tt.mutate(&config)
			err := config.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultTrackerConfig(t *testing.T) {
	config := DefaultTrackerConfig()
	if config.InvitationTimeout != 150 {
		t.Errorf("expected default invitation timeout 150, got %d", config.InvitationTimeout)
	}
}

func TestStateDirectoryFunc(t *testing.T) {
	known := peer.NewInfo(4)
	dir := StateDirectoryFunc(func(id peer.NodeID) (NodeState, bool) {
		if id == known.ID() {
			return known, true
		}
		return nil, false
	})

	state, ok := dir.State(4)
	if !ok || state == nil {
		t.Fatal("expected node 4 to resolve")
	}
	if state.Status() != peer.StatusAvailable {
		t.Errorf("expected AVAILABLE, got %v", state.Status())
	}
	if _, ok := dir.State(5); ok {
		t.Error("expected node 5 to be missing")
	}
}

// Compile-time check that the node state record satisfies NodeState.
var _ NodeState = (*peer.Info)(nil)
