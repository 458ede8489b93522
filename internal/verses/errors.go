package verses

import "errors"

// ErrMissingText indicates an ayah absent from the configured text lookup.
var ErrMissingText = errors.New("verse text not found")
