package playback

import (
	"errors"
	"fmt"
	"strings"
)

// Common playback errors. A *PlaybackError matches the sentinel for its code
// under errors.Is.
var (
	// ErrArtifactMissing indicates the recorded reply file does not exist
	ErrArtifactMissing = errors.New("reply artifact missing")

	// ErrDecoderFailed indicates the decoding stage exited abnormally
	ErrDecoderFailed = errors.New("decoder failed")

	// ErrPlayerFailed indicates the playing stage exited abnormally
	ErrPlayerFailed = errors.New("player failed")

	// ErrAudioDevice indicates the audio device cannot be opened
	ErrAudioDevice = errors.New("audio device unavailable")

	// ErrAudioFormat indicates audio the device cannot play as is
	ErrAudioFormat = errors.New("unsupported audio format")

	// ErrCanceled indicates playback was canceled or timed out
	ErrCanceled = errors.New("playback canceled")
)

// ErrorCode identifies what went wrong during playback.
type ErrorCode string

const (
	CodeArtifactMissing ErrorCode = "ARTIFACT_MISSING"
	CodeDecoderFailed   ErrorCode = "DECODER_FAILED"
	CodePlayerFailed    ErrorCode = "PLAYER_FAILED"
	CodeAudioDevice     ErrorCode = "AUDIO_DEVICE"
	CodeAudioFormat     ErrorCode = "AUDIO_FORMAT"
	CodeCanceled        ErrorCode = "CANCELED"
)

var sentinels = map[ErrorCode]error{
	CodeArtifactMissing: ErrArtifactMissing,
	CodeDecoderFailed:   ErrDecoderFailed,
	CodePlayerFailed:    ErrPlayerFailed,
	CodeAudioDevice:     ErrAudioDevice,
	CodeAudioFormat:     ErrAudioFormat,
	CodeCanceled:        ErrCanceled,
}

// Stages of the exec pipeline.
const (
	StageDecoder = "decoder"
	StagePlayer  = "player"
)

// PlaybackError describes a failed attempt to play one reply.
type PlaybackError struct {
	Code ErrorCode

	// Stage is the pipeline stage that failed, empty when not applicable
	Stage string

	// Path of the reply artifact
	Path string

	// Stderr captured from the failing stage, trimmed
	Stderr string

	Cause error
}

// NewPlaybackError creates a playback error for path.
func NewPlaybackError(code ErrorCode, path string, cause error) *PlaybackError {
	return &PlaybackError{
		Code:  code,
		Path:  path,
		Cause: cause,
	}
}

// WithStage records the failing stage and its stderr.
func (e *PlaybackError) WithStage(stage, stderr string) *PlaybackError {
	e.Stage = stage
	e.Stderr = strings.TrimSpace(stderr)
	return e
}

// Error implements the error interface
func (e *PlaybackError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Stage != "" {
		fmt.Fprintf(&b, ": %s", e.Stage)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, ": %s", e.Path)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, "\nstderr: %s", e.Stderr)
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *PlaybackError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel error for e's code.
func (e *PlaybackError) Is(target error) bool {
	s, ok := sentinels[e.Code]
	return ok && s == target
}

// IsFatal reports whether later replies are bound to fail the same way.
func (e *PlaybackError) IsFatal() bool {
	switch e.Code {
	case CodeAudioDevice:
		return true
	default:
		return false
	}
}
