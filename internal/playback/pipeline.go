package playback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/durgesh-ai/durgesh/internal/config"
)

// PathPlaceholder in a decoder argument is replaced with the artifact path.
const PathPlaceholder = config.PathPlaceholder

// ErrNoPathPlaceholder is returned for a decoder that would never see the
// artifact.
var ErrNoPathPlaceholder = errors.New("decoder command has no " + PathPlaceholder + " argument")

// waitDelay bounds how long Wait blocks on a killed stage's output pipes.
const waitDelay = 2 * time.Second

// Pipeline plays a reply by piping a decoder process into a player process,
// e.g. "lame --decode {path} -" into "play -".
type Pipeline struct {
	mu sync.Mutex

	decoder []string
	player  []string
	timeout time.Duration
}

// NewPipeline creates a pipeline from two argv lists. The decoder must take
// the artifact through PathPlaceholder, and both binaries must be found in
// PATH. A timeout of zero means no limit.
func NewPipeline(decoder, player []string, timeout time.Duration) (*Pipeline, error) {
	if len(decoder) == 0 || decoder[0] == "" {
		return nil, errors.New("decoder command is empty")
	}
	if len(player) == 0 || player[0] == "" {
		return nil, errors.New("player command is empty")
	}
	if !config.HasPathPlaceholder(decoder) {
		return nil, fmt.Errorf("%w: %s", ErrNoPathPlaceholder, strings.Join(decoder, " "))
	}
	if err := CheckBinary(decoder[0]); err != nil {
		return nil, err
	}
	if err := CheckBinary(player[0]); err != nil {
		return nil, err
	}

	return &Pipeline{
		decoder: append([]string(nil), decoder...),
		player:  append([]string(nil), player...),
		timeout: timeout,
	}, nil
}

// CheckBinary checks if a binary exists in PATH.
func CheckBinary(name string) error {
	_, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("binary '%s' not found in PATH: %w", name, err)
	}
	return nil
}

// Play decodes and plays the file at path, blocking until both stages exit.
func (p *Pipeline) Play(ctx context.Context, path string) error {
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

	dec := command(ctx, p.decoder, path)
	ply := command(ctx, p.player, path)

	r, w, err := os.Pipe()
	if err != nil {
		return NewPlaybackError(CodeDecoderFailed, path, fmt.Errorf("failed to create pipe: %w", err))
	}

	var decStderr, plyStderr bytes.Buffer
	dec.Stdout = w
	dec.Stderr = &decStderr
	ply.Stdin = r
	ply.Stderr = &plyStderr

	log.Debug("Starting playback", "decoder", dec.Args, "player", ply.Args)

	if err := dec.Start(); err != nil {
		r.Close()
		w.Close()
		return NewPlaybackError(CodeDecoderFailed, path, fmt.Errorf("failed to start process: %w", err)).
			WithStage(StageDecoder, "")
	}
	if err := ply.Start(); err != nil {
		r.Close()
		w.Close()
		_ = dec.Process.Kill()
		_ = dec.Wait()
		return NewPlaybackError(CodePlayerFailed, path, fmt.Errorf("failed to start process: %w", err)).
			WithStage(StagePlayer, "")
	}

	// The children hold their own ends; the player only sees EOF once
	// every write end is closed.
	w.Close()
	r.Close()

	decErr := dec.Wait()
	plyErr := ply.Wait()

	if ctx.Err() != nil {
		return NewPlaybackError(CodeCanceled, path, ctx.Err())
	}

	switch {
	case decErr != nil && (plyErr == nil || !killedBySignal(decErr)):
		return NewPlaybackError(CodeDecoderFailed, path, decErr).
			WithStage(StageDecoder, decStderr.String())
	case plyErr != nil:
		return NewPlaybackError(CodePlayerFailed, path, plyErr).
			WithStage(StagePlayer, plyStderr.String())
	}

	log.Debug("Playback finished", "path", path)
	return nil
}

// Close is a no-op; every Play waits for its processes.
func (p *Pipeline) Close() error {
	return nil
}

// String renders the pipeline as a shell-like command line.
func (p *Pipeline) String() string {
	return strings.Join(p.decoder, " ") + " | " + strings.Join(p.player, " ")
}

func command(ctx context.Context, argv []string, path string) *exec.Cmd {
	args := make([]string, len(argv)-1)
	for i, a := range argv[1:] {
		args[i] = strings.ReplaceAll(a, PathPlaceholder, path)
	}
	cmd := exec.CommandContext(ctx, argv[0], args...)
	cmd.WaitDelay = waitDelay
	return cmd
}

func checkArtifact(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewPlaybackError(CodeArtifactMissing, path, nil)
		}
		return NewPlaybackError(CodeArtifactMissing, path, err)
	}
	if info.IsDir() {
		return NewPlaybackError(CodeArtifactMissing, path, errors.New("is a directory"))
	}
	return nil
}

// killedBySignal reports whether err is a process that died from a signal,
// typically SIGPIPE after the player quit early.
func killedBySignal(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == -1
}
