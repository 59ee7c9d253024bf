// Package playback plays recorded replies, either through an external
// decoder/player pipeline or in-process.
package playback

import (
	"context"
	"fmt"

	"github.com/durgesh-ai/durgesh/internal/config"
	"github.com/durgesh-ai/durgesh/internal/resolver"
)

// Player plays one reply artifact at a time.
type Player interface {
	// Play blocks until the file at path has been played.
	Play(ctx context.Context, path string) error

	// Close releases the player's resources.
	Close() error
}

// New creates the player selected by cfg.Backend.
func New(cfg config.PlaybackConfig) (Player, error) {
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, fmt.Errorf("invalid playback timeout: %w", err)
	}

	switch cfg.Backend {
	case config.BackendExec, "":
		p, err := NewPipeline(cfg.Decoder, cfg.Player, timeout)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.BackendNative:
		p, err := NewNativePlayer(NativeOptions{
			CacheBytes: cfg.CacheBytes(),
			Timeout:    timeout,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown playback backend %q", cfg.Backend)
	}
}

// Dispatch plays the recorded reply for resp under root.
func Dispatch(ctx context.Context, p Player, root string, resp resolver.Response) error {
	return p.Play(ctx, resp.Path(root))
}
