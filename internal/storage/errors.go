package storage

import "errors"

var (
	// ErrUserNotFound indicates that no user exists with the given username.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken indicates that the username is already registered.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrPersistence indicates the backing storage was unavailable or
	// returned corrupt data. Requests fail, the store is never retried.
	ErrPersistence = errors.New("persistence unavailable")
)
