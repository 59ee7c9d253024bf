//go:build durgesh_ai && cgo

package engine

/*
#cgo LDFLAGS: -ldurgesh_ai
#include <stdbool.h>
#include <stdlib.h>
#include <durgesh_ai.h>
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"
)

// Available reports whether the native engine is compiled in.
const Available = true

// SetLogLevel sets the engine's log verbosity: negative is quiet, 0 the
// default, positive more verbose.
func SetLogLevel(level int) {
	C.durgesh_ai_set_log_level(C.int(level))
}

// GPUInit selects a GPU for the process. Call it once, before loading models.
func GPUInit() {
	C.durgesh_ai_gpu_init()
}

// GPUThreadInit prepares the calling thread for GPU decoding.
func GPUThreadInit() {
	C.durgesh_ai_gpu_thread_init()
}

// Model is a loaded acoustic and language model. It can be shared by any
// number of recognizers.
type Model struct {
	mu     sync.Mutex
	handle *C.Durgesh_aiModel
}

// NewModel loads the model directory at path. kws also loads the keyword
// spotting model.
func NewModel(path string, kws bool) (*Model, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	h := C.durgesh_ai_model_new(cpath, C.bool(kws))
	if h == nil {
		return nil, fmt.Errorf("%w: %s", ErrModelLoad, path)
	}
	return &Model{handle: h}, nil
}

// FindWord returns the symbol of word in the model's vocabulary, or -1.
func (m *Model) FindWord(word string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle == nil {
		return -1
	}
	cword := C.CString(word)
	defer C.free(unsafe.Pointer(cword))
	return int(C.durgesh_ai_model_find_word(m.handle, cword))
}

// KWSLoaded reports whether the keyword spotting model loaded.
func (m *Model) KWSLoaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.handle != nil && bool(C.durgesh_ai_model_check_kws_load_status(m.handle))
}

// ASRLoaded reports whether the speech recognition model loaded.
func (m *Model) ASRLoaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.handle != nil && bool(C.durgesh_ai_model_check_asr_load_status(m.handle))
}

func (m *Model) ptr() (*C.Durgesh_aiModel, error) {
	if m == nil {
		return nil, ErrClosed
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle == nil {
		return nil, ErrClosed
	}
	return m.handle, nil
}

// Close releases the model.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle != nil {
		C.durgesh_ai_model_free(m.handle)
		m.handle = nil
	}
	return nil
}

// SpeakerModel identifies speakers by voice.
type SpeakerModel struct {
	mu     sync.Mutex
	handle *C.Durgesh_aiSpkModel
}

// NewSpeakerModel loads the speaker model directory at path.
func NewSpeakerModel(path string) (*SpeakerModel, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	h := C.durgesh_ai_spk_model_new(cpath)
	if h == nil {
		return nil, fmt.Errorf("%w: speaker model %s", ErrModelLoad, path)
	}
	return &SpeakerModel{handle: h}, nil
}

func (s *SpeakerModel) ptr() (*C.Durgesh_aiSpkModel, error) {
	if s == nil {
		return nil, ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil {
		return nil, ErrClosed
	}
	return s.handle, nil
}

// Close releases the speaker model.
func (s *SpeakerModel) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		C.durgesh_ai_spk_model_free(s.handle)
		s.handle = nil
	}
	return nil
}

// Recognizer decodes one audio stream. It is safe for concurrent use but
// decodes serially.
type Recognizer struct {
	mu     sync.Mutex
	handle *C.Durgesh_aiRecognizer
}

func newRecognizer(h *C.Durgesh_aiRecognizer, kind string) (*Recognizer, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecognizerCreate, kind)
	}
	return &Recognizer{handle: h}, nil
}

// NewRecognizer creates a free-form recognizer.
func NewRecognizer(m *Model, sampleRate float64) (*Recognizer, error) {
	mh, err := m.ptr()
	if err != nil {
		return nil, err
	}
	return newRecognizer(C.durgesh_ai_recognizer_new(mh, C.float(sampleRate)), "plain")
}

// NewSpeakerRecognizer creates a recognizer that also reports speaker
// vectors.
func NewSpeakerRecognizer(m *Model, spk *SpeakerModel, sampleRate float64) (*Recognizer, error) {
	mh, err := m.ptr()
	if err != nil {
		return nil, err
	}
	sh, err := spk.ptr()
	if err != nil {
		return nil, err
	}
	return newRecognizer(C.durgesh_ai_recognizer_new_spk(mh, sh, C.float(sampleRate)), "speaker")
}

// NewGrammarRecognizer creates a recognizer limited to grammar, a JSON array
// of phrases.
func NewGrammarRecognizer(m *Model, sampleRate float64, grammar string) (*Recognizer, error) {
	mh, err := m.ptr()
	if err != nil {
		return nil, err
	}
	cgrammar := C.CString(grammar)
	defer C.free(unsafe.Pointer(cgrammar))
	return newRecognizer(C.durgesh_ai_recognizer_new_gram(mh, C.float(sampleRate), cgrammar, C.bool(false)), "grammar")
}

// NewWakeRecognizer creates a recognizer listening for the wake words in
// grammar.
func NewWakeRecognizer(m *Model, sampleRate float64, grammar string) (*Recognizer, error) {
	mh, err := m.ptr()
	if err != nil {
		return nil, err
	}
	cgrammar := C.CString(grammar)
	defer C.free(unsafe.Pointer(cgrammar))
	return newRecognizer(C.durgesh_ai_recognizer_new_wake(mh, C.float(sampleRate), cgrammar), "wake")
}

// NewSpeakerGrammarRecognizer combines NewSpeakerRecognizer and
// NewGrammarRecognizer.
func NewSpeakerGrammarRecognizer(m *Model, spk *SpeakerModel, sampleRate float64, grammar string) (*Recognizer, error) {
	mh, err := m.ptr()
	if err != nil {
		return nil, err
	}
	sh, err := spk.ptr()
	if err != nil {
		return nil, err
	}
	cgrammar := C.CString(grammar)
	defer C.free(unsafe.Pointer(cgrammar))
	return newRecognizer(C.durgesh_ai_recognizer_new_grm_spk(mh, sh, C.float(sampleRate), cgrammar), "speaker grammar")
}

func acceptResult(ret C.int) (bool, error) {
	if ret < 0 {
		return false, ErrWaveform
	}
	return ret > 0, nil
}

// AcceptWaveform feeds 16-bit little endian mono PCM and reports whether an
// utterance ended. kws routes the audio through keyword spotting.
func (r *Recognizer) AcceptWaveform(pcm []byte, kws bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle == nil {
		return false, ErrClosed
	}
	if len(pcm) == 0 {
		return false, nil
	}
	ret := C.durgesh_ai_recognizer_accept_waveform(r.handle,
		(*C.char)(unsafe.Pointer(&pcm[0])), C.int(len(pcm)), C.bool(kws))
	return acceptResult(ret)
}

// AcceptWaveformInt16 is AcceptWaveform for samples already split out.
func (r *Recognizer) AcceptWaveformInt16(samples []int16, kws bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle == nil {
		return false, ErrClosed
	}
	if len(samples) == 0 {
		return false, nil
	}
	ret := C.durgesh_ai_recognizer_accept_waveform_s(r.handle,
		(*C.short)(unsafe.Pointer(&samples[0])), C.int(len(samples)), C.bool(kws))
	return acceptResult(ret)
}

// AcceptWaveformFloat32 is AcceptWaveform for float samples in the 16-bit
// range.
func (r *Recognizer) AcceptWaveformFloat32(samples []float32, kws bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle == nil {
		return false, ErrClosed
	}
	if len(samples) == 0 {
		return false, nil
	}
	ret := C.durgesh_ai_recognizer_accept_waveform_f(r.handle,
		(*C.float)(unsafe.Pointer(&samples[0])), C.int(len(samples)), C.bool(kws))
	return acceptResult(ret)
}

func (r *Recognizer) result(fn func(*C.Durgesh_aiRecognizer) *C.char) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle == nil {
		return ""
	}
	return C.GoString(fn(r.handle))
}

// Result returns the JSON result of the utterance that just ended.
func (r *Recognizer) Result() string {
	return r.result(func(h *C.Durgesh_aiRecognizer) *C.char {
		return C.durgesh_ai_recognizer_result(h)
	})
}

// PartialResult returns the JSON hypothesis for the utterance in progress.
func (r *Recognizer) PartialResult() string {
	return r.result(func(h *C.Durgesh_aiRecognizer) *C.char {
		return C.durgesh_ai_recognizer_partial_result(h)
	})
}

// FinalResult flushes pending audio and returns its JSON result.
func (r *Recognizer) FinalResult() string {
	return r.result(func(h *C.Durgesh_aiRecognizer) *C.char {
		return C.durgesh_ai_recognizer_final_result(h)
	})
}

// KWSResult returns the keyword spotting result.
func (r *Recognizer) KWSResult() string {
	return r.result(func(h *C.Durgesh_aiRecognizer) *C.char {
		return C.durgesh_ai_recognizer_kws_result(h)
	})
}

// CheckWakeWord reports whether word can serve as a wake word.
func (r *Recognizer) CheckWakeWord(word string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle == nil {
		return false
	}
	cword := C.CString(word)
	defer C.free(unsafe.Pointer(cword))
	return bool(C.durgesh_ai_recognizer_check_wakeword_status(r.handle, cword))
}

// Close releases the recognizer.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle != nil {
		C.durgesh_ai_recognizer_free(r.handle)
		r.handle = nil
	}
	return nil
}
