package storage

import (
	"errors"
)

var (
	// ErrNotFound is returned when a resource is not found in the
	// store. Note: the badger API returns badger.ErrKeyNotFound;
	// modules in storage/badger and storage/badger/operation convert
	// it to ErrNotFound at the boundary.
	ErrNotFound = errors.New("key not found")

	ErrAlreadyExists = errors.New("key already exists")
)
