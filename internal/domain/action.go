package domain

import "errors"

var (
	ErrUnknownRoomAction    = errors.New("unknown room action")
	ErrUnknownStatusElement = errors.New("unknown status element")
)

// RoomAction is a lock-state transition requested on a room.
type RoomAction int

const (
	RoomLock RoomAction = iota
	RoomUnlock
	RoomCheckPassword
)

func ParseRoomAction(s string) (RoomAction, error) {
	switch s {
	case "lock":
		return RoomLock, nil
	case "unlock":
		return RoomUnlock, nil
	case "checkPassword":
		return RoomCheckPassword, nil
	default:
		return 0, ErrUnknownRoomAction
	}
}

func (a RoomAction) String() string {
	switch a {
	case RoomLock:
		return "lock"
	case RoomUnlock:
		return "unlock"
	case RoomCheckPassword:
		return "checkPassword"
	default:
		return "unknown"
	}
}

// StatusElement names one toggleable peer status flag.
type StatusElement int

const (
	ElementVideo StatusElement = iota
	ElementAudio
	ElementHand
	ElementRec
)

func ParseStatusElement(s string) (StatusElement, error) {
	switch s {
	case "video":
		return ElementVideo, nil
	case "audio":
		return ElementAudio, nil
	case "hand":
		return ElementHand, nil
	case "rec":
		return ElementRec, nil
	default:
		return 0, ErrUnknownStatusElement
	}
}

func (e StatusElement) String() string {
	switch e {
	case ElementVideo:
		return "video"
	case ElementAudio:
		return "audio"
	case ElementHand:
		return "hand"
	case ElementRec:
		return "rec"
	default:
		return "unknown"
	}
}
