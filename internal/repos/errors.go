package repos

import "errors"

// ErrNotFound is returned when a record lookup matches nothing.
var ErrNotFound = errors.New("record not found")
