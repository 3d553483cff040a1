package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/peercall/peercall/internal/app"
	"github.com/peercall/peercall/internal/domain"
)

func (ctl *SignalWSController) handleJoin(
	sid domain.PeerID,
	conn *WsSignalConn,
	data []byte,
) {
	type joinPayload struct {
		Type            string `json:"type"`
		Channel         string `json:"channel"`
		ChannelPassword string `json:"channel_password"`
		PeerName        string `json:"peer_name"`
		PeerVideo       bool   `json:"peer_video"`
		PeerAudio       bool   `json:"peer_audio"`
		PeerVideoStatus bool   `json:"peer_video_status"`
		PeerAudioStatus bool   `json:"peer_audio_status"`
		PeerHandStatus  bool   `json:"peer_hand_status"`
		PeerRecStatus   bool   `json:"peer_rec_status"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Channel == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	if !ctl.joins.Allow(sid) {
		log.Warn().Str("module", "signal").Str("peer", string(sid)).Msg("join rate limited")
		ctl.sendError(conn, "too_many_attempts")
		return
	}

	profile := domain.PeerProfile{
		Video:       p.PeerVideo,
		Audio:       p.PeerAudio,
		VideoStatus: p.PeerVideoStatus,
		AudioStatus: p.PeerAudioStatus,
		HandStatus:  p.PeerHandStatus,
		RecStatus:   p.PeerRecStatus,
	}
	if err := profile.SetName(p.PeerName); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("peer", string(sid)).Msg("bad peer name")
		ctl.sendError(conn, "invalid_name")
		return
	}

	log.Info().Str("module", "signal").Str("peer", string(sid)).Str("room", p.Channel).Str("name", profile.Name).Msg("join")
	ctl.Orch.Join(sid, conn, app.JoinRequest{
		Room:     domain.RoomID(p.Channel),
		Password: p.ChannelPassword,
		Profile:  profile,
	})
}

func (ctl *SignalWSController) handleRoomAction(
	sid domain.PeerID,
	conn *WsSignalConn,
	data []byte,
) {
	type roomActionPayload struct {
		Type     string `json:"type"`
		RoomID   string `json:"room_id"`
		PeerName string `json:"peer_name"`
		Password string `json:"password"`
		Action   string `json:"action"`
	}
	var p roomActionPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad roomAction payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	action, err := domain.ParseRoomAction(p.Action)
	if err != nil {
		log.Warn().Str("module", "signal").Str("action", p.Action).Msg("unknown room action")
		ctl.sendError(conn, "bad_action")
		return
	}

	// Password probing on locked rooms goes through the same limiter
	// as join attempts.
	if action == domain.RoomCheckPassword && !ctl.joins.Allow(sid) {
		log.Warn().Str("module", "signal").Str("peer", string(sid)).Msg("checkPassword rate limited")
		ctl.sendError(conn, "too_many_attempts")
		return
	}

	log.Info().Str("module", "signal").Str("peer", string(sid)).Str("room", p.RoomID).Str("action", p.Action).Msg("room action")
	ctl.Orch.RoomAction(sid, conn, domain.RoomID(p.RoomID), p.PeerName, action, p.Password)
}

func (ctl *SignalWSController) handlePeerName(
	sid domain.PeerID,
	conn *WsSignalConn,
	data []byte,
) {
	type peerNamePayload struct {
		Type        string `json:"type"`
		RoomID      string `json:"room_id"`
		PeerNameOld string `json:"peer_name_old"`
		PeerNameNew string `json:"peer_name_new"`
	}
	var p peerNamePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad peerName payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	log.Info().Str("module", "signal").Str("peer", string(sid)).Str("room", p.RoomID).Str("from", p.PeerNameOld).Str("to", p.PeerNameNew).Msg("rename")
	ctl.Orch.PeerName(sid, domain.RoomID(p.RoomID), p.PeerNameOld, p.PeerNameNew)
}

func (ctl *SignalWSController) handlePeerStatus(
	sid domain.PeerID,
	conn *WsSignalConn,
	data []byte,
) {
	type peerStatusPayload struct {
		Type     string `json:"type"`
		RoomID   string `json:"room_id"`
		PeerName string `json:"peer_name"`
		Element  string `json:"element"`
		Status   bool   `json:"status"`
	}
	var p peerStatusPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad peerStatus payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	element, err := domain.ParseStatusElement(p.Element)
	if err != nil {
		log.Warn().Str("module", "signal").Str("element", p.Element).Msg("unknown status element")
		ctl.sendError(conn, "bad_element")
		return
	}

	ctl.Orch.PeerStatus(sid, domain.RoomID(p.RoomID), element, p.Status)
}
