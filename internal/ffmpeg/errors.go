package ffmpeg

import "errors"

// ErrNotFound indicates no usable FFmpeg binary could be located.
var ErrNotFound = errors.New("ffmpeg not found")

// ErrTimeout is returned when FFmpeg does not exit within the graceful shutdown timeout.
var ErrTimeout = errors.New("ffmpeg did not exit within timeout")
