package model

import "errors"

var (
	ErrEmptyContent    = errors.New("memory content must not be empty")
	ErrContentTooLong  = errors.New("memory content exceeds 2000 characters")
	ErrImportanceRange = errors.New("importance must be between 1 and 10")
	ErrUnknownKind     = errors.New("unknown memory kind")
	ErrInvalidProfile  = errors.New("invalid agent profile")
	ErrUnknownAgent    = errors.New("unknown agent")
)
