package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/peercall/peercall/internal/domain"
)

// JoinOutcome reports the result of a join attempt. Rejections are
// expected protocol conditions, never errors.
type JoinOutcome int

const (
	JoinAccepted JoinOutcome = iota
	JoinAlreadyMember
	JoinRoomLocked
)

// LeaveOutcome reports the result of removing a peer from a room.
type LeaveOutcome int

const (
	LeaveRemoved LeaveOutcome = iota
	LeaveNotMember
)

// RoomDirectory owns every room record: membership, profiles and lock
// state. It is instantiated once per process and shared by reference.
type RoomDirectory struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomRecord
}

func NewRoomDirectory() *RoomDirectory {
	return &RoomDirectory{rooms: make(map[domain.RoomID]*roomRecord)}
}

// ensure returns the record for id, creating an empty one lazily.
// Callers must hold d.mu.
func (d *RoomDirectory) ensure(id domain.RoomID) *roomRecord {
	r, ok := d.rooms[id]
	if !ok {
		r = newRoomRecord()
		d.rooms[id] = r
		log.Info().Str("module", "core.directory").Str("room", string(id)).Msg("room created")
	}
	return r
}

// Join adds peer to room unless the room is locked with a different
// password. On acceptance it returns the full profile snapshot
// (new member included) so the caller can announce occupancy both ways.
// A repeated join of the same (room, peer) pair mutates nothing.
func (d *RoomDirectory) Join(
	room domain.RoomID,
	peer domain.PeerID,
	conn SignalConnection,
	profile domain.PeerProfile,
	password string,
) (JoinOutcome, map[domain.PeerID]domain.PeerProfile) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r := d.ensure(room)
	if r.meta.Locked && r.meta.Password != password {
		log.Info().Str("module", "core.directory").Str("room", string(room)).Str("peer", string(peer)).Msg("join rejected, room locked")
		return JoinRoomLocked, nil
	}
	if _, ok := r.members[peer]; ok {
		log.Info().Str("module", "core.directory").Str("room", string(room)).Str("peer", string(peer)).Msg("join ignored, already a member")
		return JoinAlreadyMember, nil
	}

	r.members[peer] = conn
	p := profile
	r.profiles[peer] = &p
	log.Info().Str("module", "core.directory").Str("room", string(room)).Str("peer", string(peer)).Str("name", p.Name).Int("members", len(r.members)).Msg("member joined")
	return JoinAccepted, r.snapshotProfiles()
}

// Leave removes peer from room and applies the empty-room deletion
// rule. The deleted return reports whether the room record went away.
//
// An empty room is deleted when it was never locked, or when it is
// currently locked with a non-empty password. An empty room that was
// locked and later unlocked is retained: long-standing behavior that
// clients may rely on, so the asymmetry is kept as-is.
func (d *RoomDirectory) Leave(room domain.RoomID, peer domain.PeerID) (outcome LeaveOutcome, deleted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[room]
	if !ok {
		return LeaveNotMember, false
	}
	if _, ok := r.members[peer]; !ok {
		log.Debug().Str("module", "core.directory").Str("room", string(room)).Str("peer", string(peer)).Msg("leave ignored, not a member")
		return LeaveNotMember, false
	}

	delete(r.members, peer)
	delete(r.profiles, peer)
	log.Info().Str("module", "core.directory").Str("room", string(room)).Str("peer", string(peer)).Int("members", len(r.members)).Msg("member left")

	if len(r.members) == 0 {
		if !r.everLocked || (r.meta.Locked && r.meta.Password != "") {
			delete(d.rooms, room)
			log.Info().Str("module", "core.directory").Str("room", string(room)).Msg("room deleted")
			return LeaveRemoved, true
		}
		log.Debug().Str("module", "core.directory").Str("room", string(room)).Msg("empty room retained")
	}
	return LeaveRemoved, false
}

// MembersExcept lists every member of room whose id differs from
// except. Iteration order is unspecified; callers must not rely on it.
func (d *RoomDirectory) MembersExcept(room domain.RoomID, except domain.PeerID) []Member {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.rooms[room]
	if !ok {
		return nil
	}
	out := make([]Member, 0, len(r.members))
	for id, conn := range r.members {
		if id == except {
			continue
		}
		out = append(out, Member{ID: id, Conn: conn})
	}
	return out
}

func (d *RoomDirectory) MemberCount(room domain.RoomID) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if r, ok := d.rooms[room]; ok {
		return len(r.members)
	}
	return 0
}

// RoomsOf scans for every room peer is currently a member of.
// Normally zero or one, but nothing in the protocol prevents more.
func (d *RoomDirectory) RoomsOf(peer domain.PeerID) []domain.RoomID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []domain.RoomID
	for id, r := range d.rooms {
		if _, ok := r.members[peer]; ok {
			out = append(out, id)
		}
	}
	return out
}

func (d *RoomDirectory) Exists(room domain.RoomID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.rooms[room]
	return ok
}

// SetStatus flips one status flag on the peer's profile and returns
// the peer name for the change broadcast.
func (d *RoomDirectory) SetStatus(
	room domain.RoomID,
	peer domain.PeerID,
	element domain.StatusElement,
	status bool,
) (name string, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, found := d.rooms[room]
	if !found {
		return "", false
	}
	p, found := r.profiles[peer]
	if !found {
		return "", false
	}
	switch element {
	case domain.ElementVideo:
		p.VideoStatus = status
	case domain.ElementAudio:
		p.AudioStatus = status
	case domain.ElementHand:
		p.HandStatus = status
	case domain.ElementRec:
		p.RecStatus = status
	}
	log.Debug().Str("module", "core.directory").Str("room", string(room)).Str("peer", string(peer)).Str("element", element.String()).Bool("status", status).Msg("peer status updated")
	return p.Name, true
}

// RenameByName updates the first profile whose current name equals
// oldName. Matching by name instead of peer id can hit the wrong
// entry while two peers briefly share a name; callers accept that.
func (d *RoomDirectory) RenameByName(room domain.RoomID, oldName, newName string) (domain.PeerID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[room]
	if !ok {
		return "", false
	}
	for id, p := range r.profiles {
		if p.Name != oldName {
			continue
		}
		if err := p.SetName(newName); err != nil {
			log.Warn().Err(err).Str("module", "core.directory").Str("room", string(room)).Str("peer", string(id)).Msg("rename rejected")
			return "", false
		}
		log.Info().Str("module", "core.directory").Str("room", string(room)).Str("peer", string(id)).Str("name", newName).Msg("peer renamed")
		return id, true
	}
	return "", false
}

// Lock stores the password and marks the room locked. Locking an
// already locked room overwrites the password, last writer wins.
func (d *RoomDirectory) Lock(room domain.RoomID, password string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.ensure(room)
	r.meta.Locked = true
	r.meta.Password = password
	r.everLocked = true
	log.Info().Str("module", "core.directory").Str("room", string(room)).Msg("room locked")
}

func (d *RoomDirectory) Unlock(room domain.RoomID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[room]
	if !ok {
		return
	}
	r.meta.Locked = false
	r.meta.Password = ""
	log.Info().Str("module", "core.directory").Str("room", string(room)).Msg("room unlocked")
}

// CheckPassword reports whether candidate matches the stored password.
// It never mutates lock state.
func (d *RoomDirectory) CheckPassword(room domain.RoomID, candidate string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.rooms[room]
	if !ok {
		return false
	}
	return r.meta.Password == candidate
}
