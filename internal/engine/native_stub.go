//go:build !durgesh_ai || !cgo

package engine

// Available reports whether the native engine is compiled in.
const Available = false

func SetLogLevel(level int) {}
func GPUInit()              {}
func GPUThreadInit()        {}

// Model is unavailable in this build.
type Model struct{}

func NewModel(path string, kws bool) (*Model, error) { return nil, ErrUnavailable }
func (m *Model) FindWord(word string) int            { return -1 }
func (m *Model) KWSLoaded() bool                     { return false }
func (m *Model) ASRLoaded() bool                     { return false }
func (m *Model) Close() error                        { return nil }

// SpeakerModel is unavailable in this build.
type SpeakerModel struct{}

func NewSpeakerModel(path string) (*SpeakerModel, error) { return nil, ErrUnavailable }
func (s *SpeakerModel) Close() error                     { return nil }

// Recognizer is unavailable in this build.
type Recognizer struct{}

func NewRecognizer(m *Model, sampleRate float64) (*Recognizer, error) {
	return nil, ErrUnavailable
}

func NewSpeakerRecognizer(m *Model, spk *SpeakerModel, sampleRate float64) (*Recognizer, error) {
	return nil, ErrUnavailable
}

func NewGrammarRecognizer(m *Model, sampleRate float64, grammar string) (*Recognizer, error) {
	return nil, ErrUnavailable
}

func NewWakeRecognizer(m *Model, sampleRate float64, grammar string) (*Recognizer, error) {
	return nil, ErrUnavailable
}

func NewSpeakerGrammarRecognizer(m *Model, spk *SpeakerModel, sampleRate float64, grammar string) (*Recognizer, error) {
	return nil, ErrUnavailable
}

func (r *Recognizer) AcceptWaveform(pcm []byte, kws bool) (bool, error) {
	return false, ErrUnavailable
}

func (r *Recognizer) AcceptWaveformInt16(samples []int16, kws bool) (bool, error) {
	return false, ErrUnavailable
}

func (r *Recognizer) AcceptWaveformFloat32(samples []float32, kws bool) (bool, error) {
	return false, ErrUnavailable
}

func (r *Recognizer) Result() string                 { return "" }
func (r *Recognizer) PartialResult() string          { return "" }
func (r *Recognizer) FinalResult() string            { return "" }
func (r *Recognizer) KWSResult() string              { return "" }
func (r *Recognizer) CheckWakeWord(word string) bool { return false }
func (r *Recognizer) Close() error                   { return nil }
