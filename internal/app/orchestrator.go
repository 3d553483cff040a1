package app

import (
	"encoding/json"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/peercall/peercall/internal/core"
	"github.com/peercall/peercall/internal/domain"
)

// Orchestrator owns the signaling control flow: it mutates the room
// directory and connection registry and re-emits events to the peers
// the directory points at.
//
// One mutex serializes every handler. Each incoming event runs to
// completion before the next mutates shared state; the join protocol's
// offerer asymmetry relies on that. Sends inside a handler are
// non-blocking, so a slow consumer never stalls the pipeline.
type Orchestrator struct {
	mu sync.Mutex

	Registry   *core.Registry
	Rooms      *core.RoomDirectory
	ICEServers []webrtc.ICEServer
}

func NewOrchestrator(reg *core.Registry, rooms *core.RoomDirectory, ice []webrtc.ICEServer) *Orchestrator {
	return &Orchestrator{Registry: reg, Rooms: rooms, ICEServers: ice}
}

// JoinRequest carries the join fields after transport decoding.
type JoinRequest struct {
	Room     domain.RoomID
	Password string
	Profile  domain.PeerProfile
}

// Connect registers a freshly upgraded transport connection.
func (o *Orchestrator) Connect(peer domain.PeerID, conn core.SignalConnection) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Registry.Register(peer, conn)
}

// Join runs the peer-connection establishment protocol. On acceptance
// into a room with N existing members, each existing member is told to
// answer toward the joiner and the joiner is told to offer toward each
// of them. The joiner is always the offerer, so every unordered pair
// ends up with exactly one offerer without any tie-breaking.
func (o *Orchestrator) Join(peer domain.PeerID, conn core.SignalConnection, req JoinRequest) {
	o.mu.Lock()
	defer o.mu.Unlock()

	outcome, peers := o.Rooms.Join(req.Room, peer, conn, req.Profile, req.Password)
	switch outcome {
	case core.JoinRoomLocked:
		o.send(conn, peer, roomIsLockedEvent{Type: "roomIsLocked"})
		return
	case core.JoinAlreadyMember:
		// Repeating the addPeer sequence would storm the room.
		return
	}

	for _, m := range o.Rooms.MembersExcept(req.Room, peer) {
		o.send(m.Conn, m.ID, addPeerEvent{
			Type:              "addPeer",
			PeerID:            peer,
			Peers:             peers,
			ShouldCreateOffer: false,
			ICEServers:        o.ICEServers,
		})
		o.send(conn, peer, addPeerEvent{
			Type:              "addPeer",
			PeerID:            m.ID,
			Peers:             peers,
			ShouldCreateOffer: true,
			ICEServers:        o.ICEServers,
		})
	}

	o.send(conn, peer, serverInfoEvent{Type: "serverInfo", PeersCount: len(peers)})
}

// RelaySDP forwards an opaque session description to one peer.
// The payload is never parsed, only routed.
func (o *Orchestrator) RelaySDP(from, target domain.PeerID, sdp json.RawMessage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sendToPeer(target, sessionDescriptionEvent{
		Type:               "sessionDescription",
		PeerID:             from,
		SessionDescription: sdp,
	})
}

// RelayICE forwards an opaque ICE candidate to one peer.
func (o *Orchestrator) RelayICE(from, target domain.PeerID, candidate json.RawMessage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sendToPeer(target, iceCandidateEvent{
		Type:         "iceCandidate",
		PeerID:       from,
		ICECandidate: candidate,
	})
}

// RoomAction applies a lock-state transition. Lock and unlock are
// announced to the rest of the room; checkPassword replies only to
// the requester with OK/KO.
func (o *Orchestrator) RoomAction(
	from domain.PeerID,
	conn core.SignalConnection,
	room domain.RoomID,
	peerName string,
	action domain.RoomAction,
	password string,
) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch action {
	case domain.RoomLock:
		o.Rooms.Lock(room, password)
		o.broadcastExcept(room, from, roomActionEvent{Type: "roomAction", PeerName: peerName, Action: action.String()})
	case domain.RoomUnlock:
		o.Rooms.Unlock(room)
		o.broadcastExcept(room, from, roomActionEvent{Type: "roomAction", PeerName: peerName, Action: action.String()})
	case domain.RoomCheckPassword:
		result := "KO"
		if o.Rooms.CheckPassword(room, password) {
			result = "OK"
		}
		o.send(conn, from, roomActionEvent{
			Type:     "roomAction",
			PeerName: peerName,
			Action:   action.String(),
			Password: result,
		})
	}
}

// PeerName renames a profile matched by its old name and announces
// the new name to the rest of the room.
func (o *Orchestrator) PeerName(from domain.PeerID, room domain.RoomID, oldName, newName string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id, ok := o.Rooms.RenameByName(room, oldName, newName)
	if !ok {
		log.Debug().Str("module", "app.orchestrator").Str("room", string(room)).Str("name", oldName).Msg("rename target not found")
		return
	}
	o.broadcastExcept(room, from, peerNameEvent{Type: "peerName", PeerID: id, PeerName: newName})
}

// PeerStatus flips one status flag on the sender's profile and
// announces the change to the rest of the room.
func (o *Orchestrator) PeerStatus(from domain.PeerID, room domain.RoomID, element domain.StatusElement, status bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	name, ok := o.Rooms.SetStatus(room, from, element, status)
	if !ok {
		log.Debug().Str("module", "app.orchestrator").Str("room", string(room)).Str("peer", string(from)).Msg("status update for unknown member")
		return
	}
	o.broadcastExcept(room, from, peerStatusEvent{
		Type:     "peerStatus",
		PeerID:   from,
		PeerName: name,
		Element:  element.String(),
		Status:   status,
	})
}

// PeerAction relays an opaque peer action frame, to the whole room or
// to a single target.
func (o *Orchestrator) PeerAction(from domain.PeerID, room domain.RoomID, target domain.PeerID, toAll bool, frame core.Frame) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if toAll {
		o.broadcastFrameExcept(room, from, frame)
		return
	}
	o.sendFrameToPeer(target, frame)
}

// KickOut tells one peer to leave on behalf of the sender.
func (o *Orchestrator) KickOut(from domain.PeerID, target domain.PeerID, peerName string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sendToPeer(target, kickOutEvent{Type: "kickOut", PeerID: from, PeerName: peerName})
}

// RelayRoom forwards an opaque room-scoped frame unchanged, either to
// every other member or to one target peer.
func (o *Orchestrator) RelayRoom(from domain.PeerID, room domain.RoomID, broadcast bool, target domain.PeerID, frame core.Frame) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if broadcast {
		o.broadcastFrameExcept(room, from, frame)
		return
	}
	o.sendFrameToPeer(target, frame)
}

// Disconnect tears down everything the connection touched: for every
// room it was a member of, run the leave transition and tell the
// remaining members. The loop is total; a failure for one room never
// stops cleanup of the rest. Safe to call more than once.
func (o *Orchestrator) Disconnect(peer domain.PeerID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, room := range o.Rooms.RoomsOf(peer) {
		outcome, _ := o.Rooms.Leave(room, peer)
		if outcome != core.LeaveRemoved {
			continue
		}
		o.broadcastExcept(room, peer, removePeerEvent{Type: "removePeer", PeerID: peer})
		// Symmetric notice to the departing side; its queue may
		// already be closed, which the send helpers tolerate.
		if conn, ok := o.Registry.Resolve(peer); ok {
			o.send(conn, peer, removePeerEvent{Type: "removePeer", PeerID: peer})
		}
	}
	o.Registry.Unregister(peer)
}
