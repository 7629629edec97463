package peer

import (
	"errors"
	"sync"
	"testing"

	"github.com/opd-ai/wifip2p/limits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInfo(t *testing.T) {
	info := NewInfo(42)

	assert.Equal(t, NodeID(42), info.ID())
	assert.Equal(t, StatusAvailable, info.Status())
	assert.False(t, info.IsWifiP2pEnabled())
	assert.False(t, info.IsPeerDiscoveryStarted())
	assert.Empty(t, info.Services())
	assert.False(t, info.IsGroupOwner())
	assert.Nil(t, info.CurrentGroup())

	_, hasOwner := info.GroupOwner()
	assert.False(t, hasOwner)
	_, invited := info.InvitedBy()
	assert.False(t, invited)
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusConnected, "CONNECTED"},
		{StatusInvited, "INVITED"},
		{StatusFailed, "FAILED"},
		{StatusAvailable, "AVAILABLE"},
		{StatusUnavailable, "UNAVAILABLE"},
		{Status(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}

// TestSetStatusResetsInvitationClock verifies the clock is cleared on entry to and exit from StatusInvited.
func TestSetStatusResetsInvitationClock(t *testing.T) {
	tests := []struct {
		name      string
		from      Status
		to        Status
		clock     int64
		wantClock int64
	}{
		{"enter invited", StatusAvailable, StatusInvited, 12, 0},
		{"leave invited", StatusInvited, StatusAvailable, 40, 0},
		{"invited to connected", StatusInvited, StatusConnected, 9, 0},
		{"stay invited", StatusInvited, StatusInvited, 7, 7},
		{"unrelated transition", StatusAvailable, StatusFailed, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := NewInfo(1)
			info.SetStatus(tt.from)
			info.SetInvitationTime(tt.clock)

			info.SetStatus(tt.to)

			assert.Equal(t, tt.to, info.Status())
			assert.Equal(t, tt.wantClock, info.InvitationTime())
		})
	}
}

func TestAddService(t *testing.T) {
	info := NewInfo(1)

	require.NoError(t, info.AddService(Service{InstanceName: "chat", RegistrationType: "_presence._tcp"}))
	assert.Len(t, info.Services(), 1)

	err := info.AddService(Service{InstanceName: "chat"})
	assert.True(t, errors.Is(err, ErrDuplicateService))

	err = info.AddService(Service{InstanceName: ""})
	assert.True(t, errors.Is(err, limits.ErrServiceNameEmpty))

	assert.True(t, info.RemoveService("chat"))
	assert.False(t, info.RemoveService("chat"))
	assert.Empty(t, info.Services())
}

func TestAddServiceLimit(t *testing.T) {
	info := NewInfo(1)
	for i := 0; i < limits.MaxServicesPerNode; i++ {
		require.NoError(t, info.AddService(Service{InstanceName: string(rune('a' + i))}))
	}

	err := info.AddService(Service{InstanceName: "overflow"})
	assert.True(t, errors.Is(err, limits.ErrTooManyServices))
}

func TestServicesReturnsCopy(t *testing.T) {
	info := NewInfo(1)
	require.NoError(t, info.AddService(Service{
		InstanceName: "files",
		TXTRecord:    map[string]string{"port": "4545"},
	}))

	services := info.Services()
	services[0].TXTRecord["port"] = "1"
	services[0].InstanceName = "changed"

	again := info.Services()
	assert.Equal(t, "files", again[0].InstanceName)
	assert.Equal(t, "4545", again[0].TXTRecord["port"])
}

func TestCreateAndRemoveGroup(t *testing.T) {
	info := NewInfo(3)
	info.SetStatus(StatusInvited)
	info.SetInvitationTime(20)

	group, err := info.CreateGroup()
	require.NoError(t, err)
	require.NotNil(t, group)

	assert.True(t, info.IsGroupOwner())
	assert.Same(t, group, info.CurrentGroup())
	assert.Equal(t, StatusConnected, info.Status())
	assert.Equal(t, int64(0), info.InvitationTime())
	owner, ok := info.GroupOwner()
	assert.True(t, ok)
	assert.Equal(t, NodeID(3), owner)

	_, err = info.CreateGroup()
	assert.True(t, errors.Is(err, ErrAlreadyGroupOwner))

	require.NoError(t, info.RemoveGroup())
	assert.False(t, info.IsGroupOwner())
	assert.Nil(t, info.CurrentGroup())
	assert.Equal(t, StatusAvailable, info.Status())

	assert.True(t, errors.Is(info.RemoveGroup(), ErrNotGroupOwner))
}

func TestDiscoveredServices(t *testing.T) {
	info := NewInfo(1)
	info.AddDiscoveredService(2, Service{InstanceName: "chat", RegistrationType: "_presence._tcp"})
	info.AddDiscoveredService(2, Service{InstanceName: "chat", RegistrationType: "_chat._udp"})
	info.AddDiscoveredService(3, Service{InstanceName: "files"})

	found := info.DiscoveredServices()
	require.Len(t, found[2], 1)
	assert.Equal(t, "_chat._udp", found[2][0].RegistrationType)
	assert.Len(t, found[3], 1)
}

func TestDiscoveredPeersSorted(t *testing.T) {
	info := NewInfo(1)
	info.SetDiscoveredPeers([]NodeID{9, 2, 5})
	assert.Equal(t, []NodeID{2, 5, 9}, info.DiscoveredPeers())
}

func TestInfoConcurrentAccess(t *testing.T) {
	info := NewInfo(1)
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			info.SetStatus(StatusInvited)
			info.SetInvitationTime(info.InvitationTime() + 1)
		}()
		go func() {
			defer wg.Done()
			_ = info.Status()
			_, _ = info.GroupOwner()
		}()
	}
	wg.Wait()
}
