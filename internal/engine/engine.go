// Package engine binds the durgesh_ai speech recognizer.
//
// The binding is compiled only with the durgesh_ai build tag and cgo enabled,
// and links against libdurgesh_ai. Other builds get a stub whose constructors
// return ErrUnavailable, so the rest of durgesh stays pure Go.
//
// Every handle must be released with Close. Close is idempotent, and methods
// called after it return ErrClosed or an empty result.
package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/durgesh-ai/durgesh/internal/config"
)

var (
	// ErrUnavailable indicates durgesh was built without the native engine
	ErrUnavailable = errors.New("native engine not available in this build (rebuild with -tags durgesh_ai)")

	// ErrModelLoad indicates a model directory could not be loaded
	ErrModelLoad = errors.New("failed to load model")

	// ErrRecognizerCreate indicates the engine refused to create a recognizer
	ErrRecognizerCreate = errors.New("failed to create recognizer")

	// ErrClosed indicates use of a released handle
	ErrClosed = errors.New("handle is closed")

	// ErrWaveform indicates the engine failed to process audio
	ErrWaveform = errors.New("failed to process waveform")
)

// Word is one recognized word with its timing in seconds.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Conf  float64 `json:"conf"`
}

// Result is a decoded recognizer result. Final results carry Text, partial
// results carry Partial.
type Result struct {
	Text      string    `json:"text"`
	Partial   string    `json:"partial"`
	Words     []Word    `json:"result"`
	Spk       []float64 `json:"spk"`
	SpkFrames int       `json:"spk_frames"`
}

// Utterance returns the recognized text, final or partial.
func (r Result) Utterance() string {
	if r.Text != "" {
		return strings.TrimSpace(r.Text)
	}
	return strings.TrimSpace(r.Partial)
}

// ParseResult decodes the JSON returned by the recognizer's result methods.
func ParseResult(raw string) (Result, error) {
	var r Result
	if strings.TrimSpace(raw) == "" {
		return r, nil
	}
	if err := sonic.UnmarshalString(raw, &r); err != nil {
		return r, fmt.Errorf("unable to decode recognizer result: %w", err)
	}
	return r, nil
}

// Transcriber turns a stream of 16-bit mono PCM into utterances.
type Transcriber interface {
	// AcceptWaveform feeds audio and reports whether an utterance ended.
	AcceptWaveform(pcm []byte) (bool, error)

	// Result returns the JSON result of the utterance that just ended.
	Result() string

	// FinalResult flushes pending audio and returns its JSON result.
	FinalResult() string

	Close() error
}

// Session is a Transcriber over a model and a recognizer it owns.
type Session struct {
	model   *Model
	speaker *SpeakerModel
	rec     *Recognizer
	kws     bool
}

// Open loads the models named by cfg and creates the matching recognizer.
func Open(cfg config.EngineConfig) (*Session, error) {
	SetLogLevel(cfg.LogLevel)

	model, err := NewModel(cfg.ModelPath, cfg.KWS)
	if err != nil {
		return nil, err
	}
	s := &Session{model: model, kws: cfg.KWS}

	if cfg.SpeakerModelPath != "" {
		s.speaker, err = NewSpeakerModel(cfg.SpeakerModelPath)
		if err != nil {
			s.Close()
			return nil, err
		}
	}

	switch {
	case cfg.Wake:
		s.rec, err = NewWakeRecognizer(model, cfg.SampleRate, cfg.Grammar)
	case s.speaker != nil && cfg.Grammar != "":
		s.rec, err = NewSpeakerGrammarRecognizer(model, s.speaker, cfg.SampleRate, cfg.Grammar)
	case s.speaker != nil:
		s.rec, err = NewSpeakerRecognizer(model, s.speaker, cfg.SampleRate)
	case cfg.Grammar != "":
		s.rec, err = NewGrammarRecognizer(model, cfg.SampleRate, cfg.Grammar)
	default:
		s.rec, err = NewRecognizer(model, cfg.SampleRate)
	}
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// AcceptWaveform implements Transcriber.
func (s *Session) AcceptWaveform(pcm []byte) (bool, error) {
	return s.rec.AcceptWaveform(pcm, s.kws)
}

// Result implements Transcriber.
func (s *Session) Result() string {
	if s.kws {
		return s.rec.KWSResult()
	}
	return s.rec.Result()
}

// FinalResult implements Transcriber.
func (s *Session) FinalResult() string {
	return s.rec.FinalResult()
}

// Recognizer exposes the underlying recognizer.
func (s *Session) Recognizer() *Recognizer {
	return s.rec
}

// Close releases the recognizer before the models it was built from.
func (s *Session) Close() error {
	var errs []error
	if s.rec != nil {
		errs = append(errs, s.rec.Close())
	}
	if s.speaker != nil {
		errs = append(errs, s.speaker.Close())
	}
	if s.model != nil {
		errs = append(errs, s.model.Close())
	}
	return errors.Join(errs...)
}
