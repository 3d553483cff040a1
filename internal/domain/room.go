package domain

// RoomMetadata is room-level state, kept apart from the peer profiles
// so lock/password never share a namespace with member entries.
type RoomMetadata struct {
	Locked   bool
	Password string
}
