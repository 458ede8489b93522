package audio

// Export internal functions for testing.

var ParseDurationFromFFmpegOutput = parseDurationFromFFmpegOutput
