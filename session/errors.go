package session

import "errors"

var (
	errPacketIDExhausted = errors.New("session: no free packet identifier")
	// ErrNotFound is returned by a PersistentStore when no session is
	// stored for a client-id.
	ErrNotFound = errors.New("session: not found in persistent store")
)
