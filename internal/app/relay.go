package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/peercall/peercall/internal/core"
	"github.com/peercall/peercall/internal/domain"
)

// Relay helpers. All sends are fire-and-forget: a full queue or dead
// connection is logged per recipient and never aborts the caller.

func (o *Orchestrator) send(conn core.SignalConnection, to domain.PeerID, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("marshal outbound event")
		return
	}
	o.sendFrame(conn, to, b)
}

func (o *Orchestrator) sendFrame(conn core.SignalConnection, to domain.PeerID, f core.Frame) {
	if err := conn.TrySend(f); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("peer", string(to)).Msg("dropped outbound frame")
	}
}

// sendToPeer resolves target via the registry; an unknown target is a
// silent no-op, the peer may have disconnected mid-relay.
func (o *Orchestrator) sendToPeer(target domain.PeerID, v any) {
	conn, ok := o.Registry.Resolve(target)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("peer", string(target)).Msg("relay target gone")
		return
	}
	o.send(conn, target, v)
}

func (o *Orchestrator) sendFrameToPeer(target domain.PeerID, f core.Frame) {
	conn, ok := o.Registry.Resolve(target)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("peer", string(target)).Msg("relay target gone")
		return
	}
	o.sendFrame(conn, target, f)
}

// broadcastExcept delivers v to every member of room except sender.
// Delivery order across members is unspecified.
func (o *Orchestrator) broadcastExcept(room domain.RoomID, sender domain.PeerID, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("marshal broadcast event")
		return
	}
	o.broadcastFrameExcept(room, sender, b)
}

func (o *Orchestrator) broadcastFrameExcept(room domain.RoomID, sender domain.PeerID, f core.Frame) {
	for _, m := range o.Rooms.MembersExcept(room, sender) {
		o.sendFrame(m.Conn, m.ID, f)
	}
}
