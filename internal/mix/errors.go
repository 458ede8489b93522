package mix

import "errors"

// ErrInvalidProcessingParameters indicates a trimmer configured with values
// that cannot produce a sensible cut.
var ErrInvalidProcessingParameters = errors.New("invalid processing parameters")

// ErrUnknownPreset indicates a trimmer preset name that does not exist.
var ErrUnknownPreset = errors.New("unknown trim preset")

// ErrEmptyInput indicates a merge with no clips.
var ErrEmptyInput = errors.New("no clips to merge")

// ErrInvalidInput indicates a malformed merge input, such as an empty path.
var ErrInvalidInput = errors.New("invalid merge input")
