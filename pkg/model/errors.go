package model

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrConfiguration is returned when the service cannot start with the given settings
	ErrConfiguration = goerr.New("configuration error")

	// ErrInvalidArgument is returned when a caller supplied value cannot be used
	ErrInvalidArgument = goerr.New("invalid argument")

	// ErrNotFound is returned by gateways when a record does not exist
	ErrNotFound = goerr.New("not found")
)
