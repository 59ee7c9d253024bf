package engine

import (
	"testing"
)

func TestParseResult(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		want      string
		wantWords int
		wantErr   bool
	}{
		{
			name: "final result",
			raw: `{
  "result" : [{
      "conf" : 1.000000,
      "end" : 0.630000,
      "start" : 0.270000,
      "word" : "are"
    }, {
      "conf" : 0.982315,
      "end" : 0.900000,
      "start" : 0.630000,
      "word" : "you"
    }, {
      "conf" : 1.000000,
      "end" : 1.380000,
      "start" : 0.900000,
      "word" : "happy"
    }],
  "text" : "are you happy"
}`,
			want:      "are you happy",
			wantWords: 3,
		},
		{
			name: "partial result",
			raw:  `{"partial" : "are you"}`,
			want: "are you",
		},
		{
			name: "empty text",
			raw:  `{"text" : ""}`,
			want: "",
		},
		{
			name: "blank input",
			raw:  "",
			want: "",
		},
		{
			name:    "malformed",
			raw:     `{"text": `,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseResult(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseResult() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := r.Utterance(); got != tt.want {
				t.Errorf("Utterance() = %q, want %q", got, tt.want)
			}
			if len(r.Words) != tt.wantWords {
				t.Errorf("len(Words) = %d, want %d", len(r.Words), tt.wantWords)
			}
		})
	}
}

func TestParseResultWordsAndSpeaker(t *testing.T) {
	r, err := ParseResult(`{"result":[{"conf":0.5,"end":1.5,"start":1.0,"word":"hello"}],"text":"hello","spk":[0.1,-0.2,0.3],"spk_frames":42}`)
	if err != nil {
		t.Fatalf("ParseResult failed: %v", err)
	}

	w := r.Words[0]
	if w.Word != "hello" || w.Start != 1.0 || w.End != 1.5 || w.Conf != 0.5 {
		t.Errorf("Words[0] = %+v", w)
	}
	if len(r.Spk) != 3 || r.Spk[1] != -0.2 {
		t.Errorf("Spk = %v", r.Spk)
	}
	if r.SpkFrames != 42 {
		t.Errorf("SpkFrames = %d, want 42", r.SpkFrames)
	}
}

func TestUtterancePrefersText(t *testing.T) {
	r := Result{Text: " yes ", Partial: "ye"}
	if got := r.Utterance(); got != "yes" {
		t.Errorf("Utterance() = %q, want yes", got)
	}
}
