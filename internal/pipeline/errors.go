package pipeline

import "errors"

// ErrNoVerses indicates that not a single verse of the range could be fetched.
var ErrNoVerses = errors.New("no verses available")
