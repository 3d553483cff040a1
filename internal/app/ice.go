package app

import (
	"github.com/pion/webrtc/v4"

	"github.com/peercall/peercall/internal/config"
)

const defaultStunURL = "stun:stun.l.google.com:19302"

// Public fallback TURN used when no TURN is configured. A deployment
// default only; operators should run their own relay.
const (
	fallbackTurnURL        = "turn:openrelay.metered.ca:443"
	fallbackTurnUsername   = "openrelayproject"
	fallbackTurnCredential = "openrelayproject"
)

// ICEFromConfig builds the server list advertised to every peer on
// join. STUN is always present; TURN comes from config when set,
// otherwise the public fallback is substituted.
func ICEFromConfig(cfg *config.Config) []webrtc.ICEServer {
	stun := cfg.StunURL
	if stun == "" {
		stun = defaultStunURL
	}
	servers := []webrtc.ICEServer{{URLs: []string{stun}}}

	turn := webrtc.ICEServer{
		URLs:       []string{fallbackTurnURL},
		Username:   fallbackTurnUsername,
		Credential: fallbackTurnCredential,
	}
	if cfg.TurnURL != "" {
		turn = webrtc.ICEServer{
			URLs:       []string{cfg.TurnURL},
			Username:   cfg.TurnUsername,
			Credential: cfg.TurnCredential,
		}
	}
	return append(servers, turn)
}
