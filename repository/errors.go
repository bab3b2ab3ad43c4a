package repository

import "errors"

// Storage-level sentinels. Services translate these into their own typed
// errors; repositories never import the service package.
var (
	// ErrNotFound means the row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrStateChanged means a conditional write matched the id but not the
	// expected state: somebody else transitioned the entity first.
	ErrStateChanged = errors.New("state changed since read")
)
