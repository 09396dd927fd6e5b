package domain

import "errors"

var (
	ErrMissingColumn          = errors.New("missing required column")
	ErrMalformedRecord        = errors.New("malformed activity record")
	ErrNoReport               = errors.New("no analysis report found")
	ErrTemporarilyUnavailable = errors.New("temporarily unavailable")
	ErrRatelimitExceeded      = errors.New("ratelimit exceeded")
)
