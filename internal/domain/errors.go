package domain

import "errors"

var (
	ErrInvalidID           = errors.New("invalid id")
	ErrInvalidName         = errors.New("invalid name")
	ErrInvalidRoleID       = errors.New("invalid role id")
	ErrInvalidProcessState = errors.New("invalid process state")
	ErrUnknownAction       = errors.New("unknown action")
	ErrActionNotAllowed    = errors.New("action not allowed")
)
