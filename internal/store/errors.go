package store

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
// Callers that treat "no state yet" as a valid starting point check for it
// with errors.Is and build fresh state instead of failing.
var ErrNotFound = errors.New("entity not found")
