package domain

import "errors"

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrTransportNotFound    = errors.New("transport not found")
	ErrProducerNotFound     = errors.New("producer not found")
	ErrDataProducerNotFound = errors.New("data producer not found")
	ErrNotInSession         = errors.New("peer is not in a session")
	ErrConsumeRejected      = errors.New("cannot consume producer")
	ErrShareInUse           = errors.New("screen share already in use")
	ErrShareNotOwner        = errors.New("screen share owned by another peer")
	ErrUnauthorized         = errors.New("unauthorized")
)
