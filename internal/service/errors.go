package service

import "errors"

var (
	ErrEventNotFound  = errors.New("event not found")
	ErrNotTerminal    = errors.New("event is not in a terminal status")
	ErrTenantNotFound = errors.New("no active tenant for repository")
	ErrInvalidPayload = errors.New("invalid payload")
)
