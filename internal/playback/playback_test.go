package playback

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/durgesh-ai/durgesh/internal/config"
	"github.com/durgesh-ai/durgesh/internal/resolver"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("pipeline tests need a POSIX shell")
	}
	for _, bin := range []string{"sh", "cat", "true", "sleep"} {
		if err := CheckBinary(bin); err != nil {
			t.Skip(err)
		}
	}
}

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reply.mp3")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPipelinePlays(t *testing.T) {
	skipWithoutShell(t)

	src := writeArtifact(t, "pretend audio")
	out := filepath.Join(t.TempDir(), "played")

	p, err := NewPipeline(
		[]string{"cat", PathPlaceholder},
		[]string{"sh", "-c", `cat > "$0"`, out},
		0,
	)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	defer p.Close()

	if err := p.Play(context.Background(), src); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "pretend audio" {
		t.Errorf("player received %q", got)
	}
}

func TestPipelineStageFailures(t *testing.T) {
	skipWithoutShell(t)

	src := writeArtifact(t, "x")

	tests := []struct {
		name      string
		decoder   []string
		player    []string
		wantCode  ErrorCode
		wantStage string
		wantErr   error
		stderr    string
	}{
		{
			name:      "decoder exits non-zero",
			decoder:   []string{"sh", "-c", "echo bad frame >&2; exit 3", PathPlaceholder},
			player:    []string{"cat"},
			wantCode:  CodeDecoderFailed,
			wantStage: StageDecoder,
			wantErr:   ErrDecoderFailed,
			stderr:    "bad frame",
		},
		{
			name:      "player exits non-zero",
			decoder:   []string{"true", PathPlaceholder},
			player:    []string{"sh", "-c", "echo no device >&2; exit 4"},
			wantCode:  CodePlayerFailed,
			wantStage: StagePlayer,
			wantErr:   ErrPlayerFailed,
			stderr:    "no device",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPipeline(tt.decoder, tt.player, 5*time.Second)
			if err != nil {
				t.Fatalf("NewPipeline failed: %v", err)
			}

			err = p.Play(context.Background(), src)
			var pe *PlaybackError
			if !errors.As(err, &pe) {
				t.Fatalf("Play error = %v, want *PlaybackError", err)
			}
			if pe.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", pe.Code, tt.wantCode)
			}
			if pe.Stage != tt.wantStage {
				t.Errorf("Stage = %q, want %q", pe.Stage, tt.wantStage)
			}
			if pe.Path != src {
				t.Errorf("Path = %q, want %q", pe.Path, src)
			}
			if pe.Stderr != tt.stderr {
				t.Errorf("Stderr = %q, want %q", pe.Stderr, tt.stderr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("errors.Is(err, %v) = false", tt.wantErr)
			}
		})
	}
}

func TestPipelineMissingArtifact(t *testing.T) {
	skipWithoutShell(t)

	p, err := NewPipeline([]string{"cat", PathPlaceholder}, []string{"cat"}, 0)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	missing := filepath.Join(t.TempDir(), "q", "a.mp3")
	err = p.Play(context.Background(), missing)
	if !errors.Is(err, ErrArtifactMissing) {
		t.Fatalf("Play error = %v, want ErrArtifactMissing", err)
	}
	if !strings.Contains(err.Error(), missing) {
		t.Errorf("error %q should name the path", err)
	}

	if err := p.Play(context.Background(), t.TempDir()); !errors.Is(err, ErrArtifactMissing) {
		t.Errorf("Play(dir) error = %v, want ErrArtifactMissing", err)
	}
}

func TestPipelineTimeout(t *testing.T) {
	skipWithoutShell(t)

	src := writeArtifact(t, "x")
	p, err := NewPipeline([]string{"cat", PathPlaceholder}, []string{"sleep", "5"}, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	start := time.Now()
	err = p.Play(context.Background(), src)
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("Play error = %v, want ErrCanceled", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error should wrap context.DeadlineExceeded: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Errorf("Play took %v, player was not killed", elapsed)
	}
}

func TestPipelineCanceled(t *testing.T) {
	skipWithoutShell(t)

	src := writeArtifact(t, "x")
	p, err := NewPipeline([]string{"cat", PathPlaceholder}, []string{"sleep", "5"}, 0)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	if err := p.Play(ctx, src); !errors.Is(err, ErrCanceled) {
		t.Errorf("Play error = %v, want ErrCanceled", err)
	}
}

func TestNewPipelineChecksBinaries(t *testing.T) {
	tests := []struct {
		name    string
		decoder []string
		player  []string
	}{
		{"empty decoder", nil, []string{"cat"}},
		{"empty player", []string{"cat", PathPlaceholder}, []string{""}},
		{"unknown decoder", []string{"durgesh-no-such-decoder", PathPlaceholder}, []string{"cat"}},
		{"unknown player", []string{"cat", PathPlaceholder}, []string{"durgesh-no-such-player"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPipeline(tt.decoder, tt.player, 0); err == nil {
				t.Error("NewPipeline should fail")
			}
		})
	}
}

func TestNewPipelineNeedsPathPlaceholder(t *testing.T) {
	skipWithoutShell(t)

	tests := []struct {
		name    string
		decoder []string
		wantErr bool
	}{
		{"missing", []string{"cat", "-"}, true},
		{"program name only", []string{"{path}"}, true},
		{"own argument", []string{"cat", PathPlaceholder}, false},
		{"inside an argument", []string{"sh", "-c", "cat \"$0\"", "--in=" + PathPlaceholder}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPipeline(tt.decoder, []string{"cat"}, 0)
			if tt.wantErr {
				if !errors.Is(err, ErrNoPathPlaceholder) {
					t.Errorf("NewPipeline error = %v, want %v", err, ErrNoPathPlaceholder)
				}
				return
			}
			if err != nil {
				t.Errorf("NewPipeline failed: %v", err)
			}
		})
	}
}

func TestPipelineString(t *testing.T) {
	skipWithoutShell(t)

	p, err := NewPipeline([]string{"cat", PathPlaceholder}, []string{"cat", "-"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := p.String(); got != "cat {path} | cat -" {
		t.Errorf("String() = %q", got)
	}
}

func TestNewFromConfig(t *testing.T) {
	skipWithoutShell(t)

	cfg := config.Default().Playback
	cfg.Decoder = []string{"cat", PathPlaceholder}
	cfg.Player = []string{"cat"}

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := p.(*Pipeline); !ok {
		t.Errorf("New returned %T, want *Pipeline", p)
	}

	cfg.Backend = "alsa"
	if _, err := New(cfg); err == nil {
		t.Error("New should reject an unknown backend")
	}
}

type recordingPlayer struct {
	paths []string
	err   error
}

func (r *recordingPlayer) Play(ctx context.Context, path string) error {
	r.paths = append(r.paths, path)
	return r.err
}

func (r *recordingPlayer) Close() error { return nil }

func TestDispatch(t *testing.T) {
	rec := &recordingPlayer{}
	resp := resolver.Response{
		QueryDigest:  "78272825118631e7984130fda9b8868fc8192beb",
		AnswerDigest: "51aa05f7ceabc62f46e77ff1eb0969f1ce8f7a9b",
		Reply:        "Yes I am!",
	}

	if err := Dispatch(context.Background(), rec, "audio", resp); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	want := filepath.Join("audio",
		"78272825118631e7984130fda9b8868fc8192beb",
		"51aa05f7ceabc62f46e77ff1eb0969f1ce8f7a9b.mp3")
	if len(rec.paths) != 1 || rec.paths[0] != want {
		t.Errorf("played %v, want [%s]", rec.paths, want)
	}

	rec.err = NewPlaybackError(CodePlayerFailed, want, nil)
	if err := Dispatch(context.Background(), rec, "audio", resp); !errors.Is(err, ErrPlayerFailed) {
		t.Errorf("Dispatch error = %v, want ErrPlayerFailed", err)
	}
}

func TestPlaybackError(t *testing.T) {
	cause := errors.New("exit status 3")
	err := NewPlaybackError(CodeDecoderFailed, "audio/q/a.mp3", cause).WithStage(StageDecoder, "  boom\n")

	if got := err.Error(); got != "DECODER_FAILED: decoder: audio/q/a.mp3: exit status 3\nstderr: boom" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}
	if !errors.Is(err, ErrDecoderFailed) {
		t.Error("errors.Is should match the code's sentinel")
	}
	if errors.Is(err, ErrPlayerFailed) {
		t.Error("errors.Is should not match another code's sentinel")
	}
	if err.IsFatal() {
		t.Error("decoder failure should not be fatal")
	}
	if !NewPlaybackError(CodeAudioDevice, "", nil).IsFatal() {
		t.Error("audio device failure should be fatal")
	}
}

func TestDecodeRejectsNonMP3(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", []byte("ab")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeMP3(bytes.NewReader(tt.data))
			if !errors.Is(err, ErrAudioFormat) {
				t.Errorf("decodeMP3 error = %v, want ErrAudioFormat", err)
			}
		})
	}
}

func TestDecodeFileSetsPath(t *testing.T) {
	path := writeArtifact(t, "")

	_, err := decodeFile(path)
	var pe *PlaybackError
	if !errors.As(err, &pe) {
		t.Fatalf("decodeFile error = %v, want *PlaybackError", err)
	}
	if pe.Path != path {
		t.Errorf("Path = %q, want %q", pe.Path, path)
	}
}

func TestPCMDuration(t *testing.T) {
	p := pcm{data: make([]byte, 44100*channelCount*bytesPerSample), sampleRate: 44100}
	if d := p.duration(); d != time.Second {
		t.Errorf("duration = %v, want 1s", d)
	}
}
