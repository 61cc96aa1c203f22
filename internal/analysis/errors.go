package analysis

import "errors"

var (
	ErrInvalidPosition   = errors.New("invalid position")
	ErrEngineUnavailable = errors.New("engine unavailable")
	ErrNoLines           = errors.New("no analysis lines produced")
)
