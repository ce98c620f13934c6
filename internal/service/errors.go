package service

import "errors"

var (
	// account errors
	ErrAlreadyExists         = errors.New("username already exists")
	ErrInvalidCredentials    = errors.New("invalid username or password")
	ErrNotFound              = errors.New("user not found")
	ErrInvalidRecoveryPhrase = errors.New("invalid recovery phrase")

	// holding errors
	ErrHoldingNotFound = errors.New("holding not found")
	ErrInvalidHolding  = errors.New("quantity and average price must not be negative")
)
