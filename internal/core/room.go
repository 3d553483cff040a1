package core

import "github.com/peercall/peercall/internal/domain"

// roomRecord is one conference namespace. Membership handles and peer
// profiles are kept in separate maps keyed by peer id; lock state
// lives in meta, never alongside member entries.
type roomRecord struct {
	members  map[domain.PeerID]SignalConnection
	profiles map[domain.PeerID]*domain.PeerProfile
	meta     domain.RoomMetadata

	// everLocked stays true after the first lock so the empty-room
	// deletion rule can tell "never locked" apart from "unlocked".
	everLocked bool
}

func newRoomRecord() *roomRecord {
	return &roomRecord{
		members:  make(map[domain.PeerID]SignalConnection),
		profiles: make(map[domain.PeerID]*domain.PeerProfile),
	}
}

// snapshotProfiles copies the profile map for handing to callers.
func (r *roomRecord) snapshotProfiles() map[domain.PeerID]domain.PeerProfile {
	out := make(map[domain.PeerID]domain.PeerProfile, len(r.profiles))
	for id, p := range r.profiles {
		out[id] = *p
	}
	return out
}

// Member pairs a peer id with its transport handle for fan-out.
type Member struct {
	ID   domain.PeerID
	Conn SignalConnection
}
