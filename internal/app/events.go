package app

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"

	"github.com/peercall/peercall/internal/domain"
)

// Outbound event payloads. Every frame carries a "type" discriminator;
// field names match what the browser client consumes.

type serverInfoEvent struct {
	Type       string `json:"type"`
	PeersCount int    `json:"peers_count"`
}

type addPeerEvent struct {
	Type              string                               `json:"type"`
	PeerID            domain.PeerID                        `json:"peer_id"`
	Peers             map[domain.PeerID]domain.PeerProfile `json:"peers"`
	ShouldCreateOffer bool                                 `json:"should_create_offer"`
	ICEServers        []webrtc.ICEServer                   `json:"iceServers"`
}

type removePeerEvent struct {
	Type   string        `json:"type"`
	PeerID domain.PeerID `json:"peer_id"`
}

type roomIsLockedEvent struct {
	Type string `json:"type"`
}

type sessionDescriptionEvent struct {
	Type               string          `json:"type"`
	PeerID             domain.PeerID   `json:"peer_id"`
	SessionDescription json.RawMessage `json:"session_description"`
}

type iceCandidateEvent struct {
	Type         string          `json:"type"`
	PeerID       domain.PeerID   `json:"peer_id"`
	ICECandidate json.RawMessage `json:"ice_candidate"`
}

type peerNameEvent struct {
	Type     string        `json:"type"`
	PeerID   domain.PeerID `json:"peer_id"`
	PeerName string        `json:"peer_name"`
}

type peerStatusEvent struct {
	Type     string        `json:"type"`
	PeerID   domain.PeerID `json:"peer_id"`
	PeerName string        `json:"peer_name"`
	Element  string        `json:"element"`
	Status   bool          `json:"status"`
}

type roomActionEvent struct {
	Type     string `json:"type"`
	PeerName string `json:"peer_name"`
	Action   string `json:"action"`
	Password string `json:"password,omitempty"`
}

type kickOutEvent struct {
	Type     string        `json:"type"`
	PeerID   domain.PeerID `json:"peer_id"`
	PeerName string        `json:"peer_name"`
}
