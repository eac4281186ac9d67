package model

import "errors"

// Common errors used across the application
var (
	// Account errors
	ErrValidation      = errors.New("identity claim failed validation")
	ErrAccountExists   = errors.New("account already exists")
	ErrAccountNotFound = errors.New("account not found")

	// Registry errors (programmer error, fatal at startup)
	ErrDuplicateType = errors.New("room type already registered")
	ErrUnknownType   = errors.New("room type not registered")

	// Room errors (expected runtime conditions, retryable by the client)
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrRoomClosed    = errors.New("room is closed")
	ErrAlreadyInRoom = errors.New("identity is already in a room")
	ErrNotInRoom     = errors.New("identity is not in this room")

	// Admission errors
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrUnauthorized = errors.New("operator credential rejected")

	// Transition errors
	ErrMatchAborted = errors.New("match aborted")
)
