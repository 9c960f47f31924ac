package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrRateLimited       = errors.New("rate limited")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNoDataCenter      = errors.New("world has no data center")
	ErrInvalidFilter     = errors.New("invalid filter")
	ErrWorldStatsMissing = errors.New("competing world stats missing")
	ErrFeedDisconnect    = errors.New("market feed disconnected")
	ErrLockHeld          = errors.New("lock already held")
)
