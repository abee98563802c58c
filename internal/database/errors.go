package database

import "errors"

// ErrNotFound is returned by repository Get/Load methods when no row
// matches the requested id.
var ErrNotFound = errors.New("database: record not found")
