//go:build nocgo
// +build nocgo

package playback

import (
	"context"
	"errors"
	"time"

	"github.com/durgesh-ai/durgesh/internal/cache"
)

// NativeOptions configures a NativePlayer.
type NativeOptions struct {
	CacheBytes int64
	Timeout    time.Duration
}

// NativePlayer is unavailable in nocgo builds.
type NativePlayer struct{}

// NewNativePlayer always fails in nocgo builds; use the exec backend.
func NewNativePlayer(opts NativeOptions) (*NativePlayer, error) {
	return nil, NewPlaybackError(CodeAudioDevice, "", errors.New("audio not available in nocgo build"))
}

func (p *NativePlayer) Play(ctx context.Context, path string) error {
	return NewPlaybackError(CodeAudioDevice, path, errors.New("audio not available in nocgo build"))
}

func (p *NativePlayer) CacheStats() cache.Stats {
	return cache.Stats{}
}

func (p *NativePlayer) Close() error {
	return nil
}
