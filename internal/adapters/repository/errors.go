package repository

import "errors"

// Sentinel kinds for cache errors.
var (
	ErrNotFound      = errors.New("no cached weather")
	ErrInvalidRecord = errors.New("invalid weather record")
	ErrDriver        = errors.New("unsupported store driver")
)
