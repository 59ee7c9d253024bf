package rules

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
)

const happyKey = "78272825118631e7984130fda9b8868fc8192beb" // sha1("are you happy")

func TestDigest(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "da39a3ee5e6b4b0d3255bfef95601890afd80709"},
		{"are you happy", happyKey},
		{"Yes I am!", "51aa05f7ceabc62f46e77ff1eb0969f1ce8f7a9b"},
		{"namasté", "fc01bfbbdd9e2f9b472169656284050acf37df7b"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Digest(tt.in)
			if got != tt.want {
				t.Errorf("Digest(%q) = %s, want %s", tt.in, got, tt.want)
			}
			if !IsDigest(got) {
				t.Errorf("IsDigest(%s) = false", got)
			}
		})
	}
}

func TestIsDigest(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{happyKey, true},
		{strings.ToUpper(happyKey), false},
		{happyKey[:39], false},
		{happyKey + "0", false},
		{strings.Repeat("g", DigestLen), false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsDigest(tt.in); got != tt.want {
			t.Errorf("IsDigest(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	input := strings.Join([]string{
		"# comment",
		"",
		happyKey + "\tare you happy\tYes I am!",
		"  " + Digest("hi") + "\thi|hello\tHello\tHi there  ",
		Digest("bye") + "\tbye",
	}, "\n")

	table, err := Parse(strings.NewReader(input), DefaultOptions())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if table.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", table.Len())
	}

	r, ok := table.Lookup(happyKey)
	if !ok {
		t.Fatal("Lookup(happyKey) missed")
	}
	if r.Pattern != "are you happy" || len(r.Substitutions) != 1 || r.Substitutions[0] != "Yes I am!" {
		t.Errorf("unexpected rule: %+v", r)
	}
	if r.Line != 3 {
		t.Errorf("Line = %d, want 3", r.Line)
	}

	hi := table.Rule(1)
	if got := strings.Join(hi.Substitutions, "|"); got != "Hello|Hi there" {
		t.Errorf("substitutions = %q, want trailing whitespace trimmed", got)
	}

	bye := table.Rule(2)
	if len(bye.Substitutions) != 0 {
		t.Errorf("expected no substitutions, got %v", bye.Substitutions)
	}

	if table.Contains(Digest("random unseen text")) {
		t.Error("unseen digest reported as member")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		opts    Options
		wantErr error
		line    int
	}{
		{
			name:    "single field",
			input:   happyKey + "\tok\tfine\n" + happyKey,
			opts:    DefaultOptions(),
			wantErr: ErrTooFewFields,
			line:    2,
		},
		{
			name:    "bad key in strict mode",
			input:   "not-a-digest\tpattern\treply",
			opts:    DefaultOptions(),
			wantErr: ErrInvalidKey,
			line:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input), tt.opts)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not a *ParseError", err)
			}
			if pe.Line != tt.line {
				t.Errorf("Line = %d, want %d", pe.Line, tt.line)
			}
		})
	}

	if _, err := Parse(strings.NewReader("not-a-digest\tpattern"), Options{Strict: false}); err != nil {
		t.Errorf("lenient parse failed: %v", err)
	}
}

func TestDuplicateKeysFirstWins(t *testing.T) {
	input := happyKey + "\tare you happy\tFirst\n" +
		happyKey + "\tare you\tSecond\n"

	table, err := Parse(strings.NewReader(input), DefaultOptions())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	r, _ := table.Lookup(happyKey)
	if r.Substitutions[0] != "First" {
		t.Errorf("Lookup returned %q, want the first rule", r.Substitutions[0])
	}
	if got := table.Keys(); len(got) != 1 {
		t.Errorf("Keys() = %v, want one key", got)
	}
	dups := table.Duplicates()
	if len(dups) != 1 || dups[0].Line != 2 {
		t.Errorf("Duplicates() = %+v, want the line 2 rule", dups)
	}
	if table.Len() != 2 {
		t.Errorf("duplicates must stay in the ordered list, Len() = %d", table.Len())
	}
}

func TestLoadIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.tsv")
	data := happyKey + "\tare you happy\tYes I am!\n" + Digest("hello") + "\thello\tHi\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	a, err := Load(path, DefaultOptions())
	if err != nil {
		t.Fatalf("first Load failed: %v", err)
	}
	b, err := Load(path, DefaultOptions())
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}

	ka, kb := a.Keys(), b.Keys()
	if strings.Join(ka, ",") != strings.Join(kb, ",") {
		t.Errorf("key sets differ: %v vs %v", ka, kb)
	}
}

func TestLoadCompressed(t *testing.T) {
	data := []byte(happyKey + "\tare you happy\tYes I am!\n")

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	compressed := enc.EncodeAll(data, nil)
	_ = enc.Close()

	path := filepath.Join(t.TempDir(), "rules.tsv.zst")
	if err := os.WriteFile(path, compressed, 0o600); err != nil {
		t.Fatal(err)
	}

	table, err := Load(path, DefaultOptions())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !table.Contains(happyKey) {
		t.Error("compressed table lost its key")
	}
}

func TestLoadReportsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.tsv")
	if err := os.WriteFile(path, []byte("only-one-field\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path, DefaultOptions())
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if pe.Path != path {
		t.Errorf("Path = %q, want %q", pe.Path, path)
	}
	if !strings.HasPrefix(err.Error(), path+":1:") {
		t.Errorf("Error() = %q, want path:line prefix", err.Error())
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.tsv"), DefaultOptions())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want os.ErrNotExist", err)
	}
}
