package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrQueueUnavailable indicates the durable log cannot currently accept
	// or deliver messages.
	ErrQueueUnavailable = errors.New("message queue unavailable")
)
