package svc

import "errors"

var (
	ErrNoVenuesEnabled = errors.New("no venue gateways enabled")
	ErrTooFewVenues    = errors.New("need at least 2 venues for cross-venue comparison")
	ErrUnknownVenue    = errors.New("unknown venue")
	ErrStorageInit     = errors.New("storage initialization failed")
)
