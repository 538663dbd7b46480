package audio

import (
	"errors"
	"fmt"
)

// ErrHostSuspended is returned when the backend cannot start voices yet.
var ErrHostSuspended = errors.New("audio: host suspended")

// ClipDecodeError reports a clip whose bytes could not be decoded.
type ClipDecodeError struct {
	Clip string
	Err  error
}

func (e *ClipDecodeError) Error() string {
	return fmt.Sprintf("audio: decode %s: %v", e.Clip, e.Err)
}

func (e *ClipDecodeError) Unwrap() error { return e.Err }

// PlaybackStartError reports a decoded clip the host refused to start.
type PlaybackStartError struct {
	Clip string
	Err  error
}

func (e *PlaybackStartError) Error() string {
	return fmt.Sprintf("audio: start %s: %v", e.Clip, e.Err)
}

func (e *PlaybackStartError) Unwrap() error { return e.Err }
