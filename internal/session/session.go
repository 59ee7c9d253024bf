// Package session runs conversation turns: resolve an utterance, then play
// the recorded reply.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/durgesh-ai/durgesh/internal/playback"
	"github.com/durgesh-ai/durgesh/internal/resolver"
)

// Turn is the outcome of one utterance.
type Turn struct {
	Input string

	// Reply text; empty when the utterance has no reply
	Reply string

	// Path of the recorded reply
	Path string

	// Known reports whether the utterance's digest is in the rule table
	Known bool

	// Played reports whether the reply was handed to the player and
	// finished without error
	Played bool

	Err     error
	Elapsed time.Duration
}

// Answered reports whether the turn produced a reply.
func (t Turn) Answered() bool {
	return t.Reply != "" || t.Path != ""
}

// Stats counts turns by outcome.
type Stats struct {
	Turns    int
	Answered int
	Unknown  int
	Failed   int
}

// Session resolves and plays replies for a sequence of utterances.
type Session struct {
	res      atomic.Pointer[resolver.Resolver]
	player   playback.Player
	audioDir string
	dryRun   bool

	mu    sync.Mutex
	stats Stats
}

// Option configures a Session.
type Option func(*Session)

// WithDryRun resolves replies without playing them.
func WithDryRun(dryRun bool) Option {
	return func(s *Session) {
		s.dryRun = dryRun
	}
}

// New creates a session. A nil player behaves like WithDryRun(true).
func New(res *resolver.Resolver, player playback.Player, audioDir string, opts ...Option) *Session {
	s := &Session{
		player:   player,
		audioDir: audioDir,
	}
	s.res.Store(res)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolver returns the resolver currently in use.
func (s *Session) Resolver() *resolver.Resolver {
	return s.res.Load()
}

// Swap replaces the resolver, e.g. after the rule table changed on disk.
// Turns in progress finish with the old one.
func (s *Session) Swap(res *resolver.Resolver) {
	s.res.Store(res)
}

// AudioDir returns the root of the recorded replies.
func (s *Session) AudioDir() string {
	return s.audioDir
}

// Respond runs one turn. Errors are logged and reported in the Turn; the
// session stays usable.
func (s *Session) Respond(ctx context.Context, input string) Turn {
	start := time.Now()
	t := s.respond(ctx, input)
	t.Elapsed = time.Since(start)

	s.mu.Lock()
	s.stats.Turns++
	switch {
	case t.Err != nil:
		s.stats.Failed++
	case t.Answered():
		s.stats.Answered++
	default:
		s.stats.Unknown++
	}
	s.mu.Unlock()

	return t
}

func (s *Session) respond(ctx context.Context, input string) Turn {
	t := Turn{Input: input}

	resp, ok, err := s.Resolver().Resolve(input)
	if err != nil {
		t.Known = errors.Is(err, resolver.ErrNoMatch)
		t.Err = err
		log.Warn("Unable to resolve reply", "input", input, "error", err)
		return t
	}
	if !ok {
		return t
	}

	t.Known = true
	t.Reply = resp.Reply
	t.Path = resp.Path(s.audioDir)

	if s.dryRun || s.player == nil {
		log.Debug("Skipping playback", "path", t.Path)
		return t
	}

	if err := playback.Dispatch(ctx, s.player, s.audioDir, resp); err != nil {
		t.Err = err
		log.Error("Unable to play reply", "path", t.Path, "error", err)
		return t
	}
	t.Played = true
	return t
}

// Stats returns the turn counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stats
}

// Close closes the player.
func (s *Session) Close() error {
	if s.player == nil {
		return nil
	}
	return s.player.Close()
}
