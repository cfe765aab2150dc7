package domain

import "errors"

var (
	ErrRelayNotConnected    = errors.New("relay client not connected")
	ErrRelayNotInitialized  = errors.New("relay client not initialized")
	ErrUnknownRelayType     = errors.New("unknown relay client type")
	ErrFormatterNotFound    = errors.New("formatter not found")
	ErrRelayCircuitOpen     = errors.New("relay client circuit open")
	ErrDuplicateRelayClient = errors.New("duplicate relay client name")
	ErrNoRelayAvailable     = errors.New("no relay client available")
)
