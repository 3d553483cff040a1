package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/peercall/peercall/internal/domain"
)

func (ctl *SignalWSController) handlePing(
	conn *WsSignalConn,
) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(conn, resp)
}

// handleRoomRelay forwards room-scoped opaque frames (file transfer
// metadata, shared video player, whiteboard) unchanged. Routing only:
// a set peer_id without broadcast targets one member, everything else
// fans out to the room minus the sender.
func (ctl *SignalWSController) handleRoomRelay(
	sid domain.PeerID,
	conn *WsSignalConn,
	data []byte,
) {
	type relayPayload struct {
		Type      string `json:"type"`
		RoomID    string `json:"room_id"`
		PeerID    string `json:"peer_id"`
		Broadcast bool   `json:"broadcast"`
	}
	var p relayPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad relay payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	toAll := p.Broadcast || p.PeerID == ""
	log.Debug().Str("module", "signal").Str("type", p.Type).Str("from", string(sid)).Str("room", p.RoomID).Bool("broadcast", toAll).Msg("room relay")
	ctl.Orch.RelayRoom(sid, domain.RoomID(p.RoomID), toAll, domain.PeerID(p.PeerID), data)
}
