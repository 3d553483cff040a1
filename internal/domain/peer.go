// Package domain contains entity without logic, just meta-data.
package domain

import "errors"

const MaxPeerNameLen = 36

var (
	ErrPeerNameEmpty   = errors.New("peer name empty")
	ErrPeerNameTooLong = errors.New("peer name too long")
)

type (
	// PeerID identifies one live transport session.
	PeerID string
	// RoomID is an opaque, client-supplied room key.
	RoomID string
)

// PeerProfile is the per-room metadata other members see for a peer.
// JSON tags mirror the wire fields carried by join/addPeer.
type PeerProfile struct {
	Name        string `json:"peer_name"`
	Video       bool   `json:"peer_video"`
	Audio       bool   `json:"peer_audio"`
	VideoStatus bool   `json:"peer_video_status"`
	AudioStatus bool   `json:"peer_audio_status"`
	HandStatus  bool   `json:"peer_hand_status"`
	RecStatus   bool   `json:"peer_rec_status"`
}

func (p *PeerProfile) SetName(name string) error {
	if len(name) == 0 {
		return ErrPeerNameEmpty
	}
	if len(name) > MaxPeerNameLen {
		return ErrPeerNameTooLong
	}
	p.Name = name
	return nil
}
