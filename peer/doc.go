// Package peer implements the per-node Wi-Fi Direct state used by the
// proximity tracker and the simulator.
//
// # Overview
//
//   - Info: one node's capability flags, advertised services, group status,
//     group owner, pending invitation and invitation clock
//   - Group: the flat client set of a group owner
//   - Registry: lookup of every node's Info by NodeID
//
// # Status
//
// A node is in exactly one Status at a time: StatusConnected, StatusInvited,
// StatusFailed, StatusAvailable or StatusUnavailable. The invitation clock
// only carries meaning while the node is StatusInvited, and SetStatus resets
// it to zero on every transition into or out of that status.
//
//	info := peer.NewInfo(7)
//	info.SetStatus(peer.StatusInvited)
//	info.SetInvitationTime(info.InvitationTime() + 1)
//	info.SetStatus(peer.StatusAvailable) // clock back to 0
//
// # Groups
//
//	group, err := owner.CreateGroup()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := group.Add(client.ID()); err != nil {
//	    log.Fatal(err) // limits.ErrGroupFull
//	}
//	client.SetStatus(peer.StatusConnected)
//	client.SetGroupOwner(owner.ID())
//
// # Thread Safety
//
// Info, Group and Registry are safe for concurrent use. The owning node is
// the only writer of its Info; remote nodes read Status and GroupOwner.
package peer
