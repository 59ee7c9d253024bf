//go:build !nocgo
// +build !nocgo

package playback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/ebitengine/oto/v3"

	"github.com/durgesh-ai/durgesh/internal/cache"
)

// oto allows a single context per process, fixed at its first sample rate.
var (
	audioOnce sync.Once
	audioCtx  *oto.Context
	audioRate int
	audioErr  error
)

const (
	readyTimeout = 5 * time.Second
	pollInterval = 10 * time.Millisecond
)

// NativeOptions configures a NativePlayer.
type NativeOptions struct {
	// Decoded audio kept in memory; zero disables the cache
	CacheBytes int64

	// Upper bound for one reply; zero means no limit
	Timeout time.Duration
}

// NativePlayer decodes MP3 replies in-process and plays them on the default
// audio device.
type NativePlayer struct {
	mu      sync.Mutex
	cache   *cache.LRU
	timeout time.Duration
}

// NewNativePlayer creates a native player. The audio device is opened on the
// first Play.
func NewNativePlayer(opts NativeOptions) (*NativePlayer, error) {
	return &NativePlayer{
		cache:   cache.NewLRU(opts.CacheBytes),
		timeout: opts.Timeout,
	}, nil
}

func audioContext(sampleRate int) (*oto.Context, int, error) {
	audioOnce.Do(func() {
		options := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channelCount,
			Format:       oto.FormatSignedInt16LE,
		}
		switch runtime.GOOS {
		case "darwin":
			options.BufferSize = 100 * time.Millisecond
		case "windows":
			options.BufferSize = 80 * time.Millisecond
		default:
			options.BufferSize = 50 * time.Millisecond
		}

		log.Debug("Initializing audio context", "sample_rate", sampleRate, "buffer_size", options.BufferSize)

		ctx, ready, err := oto.NewContext(options)
		if err != nil {
			audioErr = fmt.Errorf("failed to create audio context: %w", err)
			return
		}
		select {
		case <-ready:
			audioCtx = ctx
			audioRate = sampleRate
		case <-time.After(readyTimeout):
			audioErr = fmt.Errorf("audio context initialization timeout after %v", readyTimeout)
		}
	})
	return audioCtx, audioRate, audioErr
}

// Play decodes the file at path, or takes it from the cache, and plays it.
func (p *NativePlayer) Play(ctx context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := checkArtifact(path); err != nil {
		return err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	data, ok := p.cache.Get(path)
	if !ok {
		decoded, err := decodeFile(path)
		if err != nil {
			return err
		}

		_, rate, err := audioContext(decoded.sampleRate)
		if err != nil {
			return NewPlaybackError(CodeAudioDevice, path, err)
		}
		if rate != decoded.sampleRate {
			return NewPlaybackError(CodeAudioFormat, path,
				fmt.Errorf("sample rate %d Hz, device opened at %d Hz", decoded.sampleRate, rate))
		}

		data = decoded.data
		if err := p.cache.Put(path, data); err != nil && !errors.Is(err, cache.ErrItemTooLarge) {
			log.Warn("Failed to cache decoded reply", "path", path, "error", err)
		}
		log.Debug("Decoded reply", "path", path,
			"size", humanize.Bytes(uint64(len(data))), "duration", decoded.duration())
	}

	// Entries are only cached after their rate matched the context.
	octx, _, err := audioContext(0)
	if err != nil {
		return NewPlaybackError(CodeAudioDevice, path, err)
	}

	player := octx.NewPlayer(bytes.NewReader(data))
	defer player.Close()
	player.Play()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return NewPlaybackError(CodeCanceled, path, ctx.Err())
		case <-ticker.C:
		}
	}

	if err := player.Err(); err != nil {
		return NewPlaybackError(CodePlayerFailed, path, err).WithStage(StagePlayer, "")
	}
	return nil
}

// CacheStats reports the decoded audio cache counters.
func (p *NativePlayer) CacheStats() cache.Stats {
	return p.cache.Stats()
}

// Close drops the decoded audio cache. The audio device stays open for the
// life of the process.
func (p *NativePlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := p.cache.Stats()
	log.Debug("Closing native player",
		"cached", humanize.Bytes(uint64(stats.Size)),
		"hit_rate", fmt.Sprintf("%.0f%%", stats.HitRate*100))
	p.cache.Clear()
	return nil
}
