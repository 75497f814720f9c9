package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNoCheckpoint     = errors.New("no checkpoint")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrMissingCreds     = errors.New("missing reddit credentials")
	ErrEmptyCorpus      = errors.New("empty corpus")
)
