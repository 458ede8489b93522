package audio

import "errors"

// ErrUnreadableAudio indicates no reader could decode or measure a file.
var ErrUnreadableAudio = errors.New("unreadable audio")

// ErrFileNotFound indicates the specified input file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrSilentAudio indicates a clip contains no signal above the noise floor.
var ErrSilentAudio = errors.New("audio is silent")

// ErrFormatMismatch indicates two segments with different sample rates or
// channel counts were combined.
var ErrFormatMismatch = errors.New("audio format mismatch")

// ErrCrossfadeTooLong indicates a crossfade exceeds one of the clips it joins.
var ErrCrossfadeTooLong = errors.New("crossfade longer than clip")

// ErrEncodeFailed indicates FFmpeg could not write the requested output.
var ErrEncodeFailed = errors.New("audio encoding failed")

// ErrUnsupportedOutput indicates an output extension other than .wav or .mp3.
var ErrUnsupportedOutput = errors.New("unsupported output format")
