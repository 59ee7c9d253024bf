package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/cryptix/wav"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/durgesh-ai/durgesh/internal/engine"
	"github.com/durgesh-ai/durgesh/ui"
)

// chunkSize is the amount of audio fed to the recognizer at once.
const chunkSize = 4000

// errWAVFormat is returned for WAV files the recognizer cannot take as is.
var errWAVFormat = errors.New("unsupported wav format")

var (
	realtime bool

	listenCmd = &cobra.Command{
		Use:   "listen FILE",
		Short: "Answer a recording",
		Long: paragraph(fmt.Sprintf("\nTranscribe FILE with the %s and answer every utterance. FILE is a 16-bit mono WAV file at the engine's sample rate, \"-\" reads raw 16-bit PCM from stdin.",
			keyword("native recognizer"))),
		Example: paragraph("durgesh listen question.wav\narecord -t raw -f S16_LE -r 16000 -c 1 | durgesh listen --realtime -"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			var in io.Reader = os.Stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("unable to open file: %w", err)
				}
				defer f.Close() //nolint:errcheck

				in, err = openWAV(f, cfg.Engine.SampleRate)
				if err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}
			}

			t, err := engine.Open(cfg.Engine)
			if err != nil {
				return err //nolint:wrapcheck
			}
			defer t.Close() //nolint:errcheck

			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close() //nolint:errcheck

			var limiter *rate.Limiter
			if realtime {
				limiter = pcmLimiter(cfg.Engine.SampleRate)
			}
			return listenLoop(ctx, t, in, s, limiter, cmd.OutOrStdout())
		},
	}
)

func init() {
	listenCmd.Flags().BoolVar(&realtime, "realtime", false, "feed audio no faster than it plays")
}

// pcmLimiter paces 16-bit mono audio at sampleRate.
func pcmLimiter(sampleRate float64) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(sampleRate*2), chunkSize)
}

// listenLoop feeds r to t and answers each utterance through res. A nil
// limiter feeds audio as fast as t accepts it.
func listenLoop(ctx context.Context, t engine.Transcriber, r io.Reader, res ui.Responder, limiter *rate.Limiter, w io.Writer) error {
	br := bufio.NewReaderSize(r, chunkSize)

	answer := func(raw string) error {
		result, err := engine.ParseResult(raw)
		if err != nil {
			return err //nolint:wrapcheck
		}
		text := result.Utterance()
		if text == "" {
			return nil
		}
		log.Debug("Heard utterance", "text", text)

		turn := res.Respond(ctx, text)
		line := fmt.Sprintf("%s %s", faint(text+":"), turn.Reply)
		if !turn.Answered() {
			line = faint(text + ": (no reply)")
		}
		if turn.Err != nil {
			line += " " + warning(turn.Err.Error())
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("unable to write to writer: %w", err)
		}
		return nil
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := io.ReadFull(br, buf)
		if n > 0 {
			if limiter != nil {
				if werr := limiter.WaitN(ctx, n); werr != nil {
					return nil //nolint:nilerr
				}
			}
			done, aerr := t.AcceptWaveform(buf[:n])
			if aerr != nil {
				return aerr //nolint:wrapcheck
			}
			if done {
				if err := answer(t.Result()); err != nil {
					return err
				}
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("unable to read audio: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	return answer(t.FinalResult())
}

// openWAV checks that f holds 16-bit mono audio at sampleRate and returns
// its samples as little-endian PCM.
func openWAV(f *os.File, sampleRate float64) (io.Reader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("unable to stat file: %w", err)
	}

	r, err := wav.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("unable to read wav header: %w", err)
	}

	hdr := r.GetFile()
	if hdr.Channels != 1 || hdr.SignificantBits != 16 {
		return nil, fmt.Errorf("%w: %d channels of %d bits, want mono 16-bit", errWAVFormat, hdr.Channels, hdr.SignificantBits)
	}
	if float64(hdr.SampleRate) != sampleRate {
		return nil, fmt.Errorf("%w: sample rate %d, engine expects %g", errWAVFormat, hdr.SampleRate, sampleRate)
	}
	log.Debug("Reading wav file", "path", f.Name(), "rate", hdr.SampleRate)

	return &sampleReader{r: r}, nil
}

// sampleReader serves the samples of a WAV file as 16-bit little-endian PCM.
type sampleReader struct {
	r *wav.Reader
}

func (s *sampleReader) Read(p []byte) (int, error) {
	n := 0
	for n+2 <= len(p) {
		sample, err := s.r.ReadSample()
		if err != nil {
			if n > 0 && errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, err //nolint:wrapcheck
		}
		binary.LittleEndian.PutUint16(p[n:], uint16(int16(sample))) //nolint:gosec
		n += 2
	}
	return n, nil
}
