package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound     = errors.New("not found")
	ErrCommitFailed = errors.New("commit failed")
	ErrInvalidZone  = errors.New("invalid zone")
	ErrSessionStale = errors.New("session stale")
	ErrNoSession    = errors.New("no active session")
	ErrCommitBusy   = errors.New("commit already in flight")
	ErrConflict     = errors.New("applicant changed concurrently")
)
