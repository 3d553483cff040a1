package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/peercall/peercall/internal/domain"
)

// SDP and ICE payloads stay opaque end to end: the server routes the
// raw JSON to the target peer and never inspects it.

func (ctl *SignalWSController) handleRelaySDP(
	sid domain.PeerID,
	conn *WsSignalConn,
	data []byte,
) {
	type relaySDPPayload struct {
		Type               string          `json:"type"`
		PeerID             string          `json:"peer_id"`
		SessionDescription json.RawMessage `json:"session_description"`
	}
	var p relaySDPPayload
	if err := json.Unmarshal(data, &p); err != nil || p.PeerID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad relaySDP payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	log.Debug().Str("module", "signal").Str("from", string(sid)).Str("to", p.PeerID).Msg("relay SDP")
	ctl.Orch.RelaySDP(sid, domain.PeerID(p.PeerID), p.SessionDescription)
}

func (ctl *SignalWSController) handleRelayICE(
	sid domain.PeerID,
	conn *WsSignalConn,
	data []byte,
) {
	type relayICEPayload struct {
		Type         string          `json:"type"`
		PeerID       string          `json:"peer_id"`
		ICECandidate json.RawMessage `json:"ice_candidate"`
	}
	var p relayICEPayload
	if err := json.Unmarshal(data, &p); err != nil || p.PeerID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad relayICE payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	log.Debug().Str("module", "signal").Str("from", string(sid)).Str("to", p.PeerID).Msg("relay ICE")
	ctl.Orch.RelayICE(sid, domain.PeerID(p.PeerID), p.ICECandidate)
}

func (ctl *SignalWSController) handlePeerAction(
	sid domain.PeerID,
	conn *WsSignalConn,
	data []byte,
) {
	type peerActionPayload struct {
		Type      string `json:"type"`
		RoomID    string `json:"room_id"`
		PeerID    string `json:"peer_id"`
		SendToAll bool   `json:"send_to_all"`
	}
	var p peerActionPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad peerAction payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	ctl.Orch.PeerAction(sid, domain.RoomID(p.RoomID), domain.PeerID(p.PeerID), p.SendToAll, data)
}

func (ctl *SignalWSController) handleKickOut(
	sid domain.PeerID,
	conn *WsSignalConn,
	data []byte,
) {
	type kickOutPayload struct {
		Type     string `json:"type"`
		RoomID   string `json:"room_id"`
		PeerID   string `json:"peer_id"`
		PeerName string `json:"peer_name"`
	}
	var p kickOutPayload
	if err := json.Unmarshal(data, &p); err != nil || p.PeerID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad kickOut payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	log.Info().Str("module", "signal").Str("from", string(sid)).Str("target", p.PeerID).Str("room", p.RoomID).Msg("kick out")
	ctl.Orch.KickOut(sid, domain.PeerID(p.PeerID), p.PeerName)
}
