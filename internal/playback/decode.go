package playback

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// Decoded MP3 audio is always 16-bit little endian stereo.
const (
	channelCount   = 2
	bytesPerSample = 2
)

// pcm is a decoded reply.
type pcm struct {
	data       []byte
	sampleRate int
}

func (p pcm) duration() time.Duration {
	frames := len(p.data) / (channelCount * bytesPerSample)
	return time.Duration(frames) * time.Second / time.Duration(p.sampleRate)
}

// decodeFile decodes the MP3 file at path.
func decodeFile(path string) (pcm, error) {
	f, err := os.Open(path)
	if err != nil {
		return pcm{}, NewPlaybackError(CodeArtifactMissing, path, err)
	}
	defer f.Close()

	out, err := decodeMP3(f)
	if err != nil {
		if pe, ok := err.(*PlaybackError); ok {
			pe.Path = path
			return pcm{}, pe
		}
		return pcm{}, err
	}
	return out, nil
}

func decodeMP3(r io.Reader) (pcm, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return pcm{}, NewPlaybackError(CodeAudioFormat, "", fmt.Errorf("not an MP3 stream: %w", err))
	}

	var data []byte
	if n := dec.Length(); n > 0 {
		data = make([]byte, 0, n)
	}
	buf := make([]byte, 32*1024)
	for {
		n, err := dec.Read(buf)
		data = append(data, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return pcm{}, NewPlaybackError(CodeDecoderFailed, "", err).WithStage(StageDecoder, "")
		}
	}

	return pcm{data: data, sampleRate: dec.SampleRate()}, nil
}
