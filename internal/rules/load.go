package rules

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// maxLineSize bounds a single record; patterns with many alternatives get long.
const maxLineSize = 1 << 20

var (
	// ErrTooFewFields is returned for a record without a key and a pattern.
	ErrTooFewFields = errors.New("record needs at least a key and a pattern")

	// ErrInvalidKey is returned in strict mode for a key that is not a digest.
	ErrInvalidKey = errors.New("key is not a lower-case hex SHA-1 digest")
)

// ParseError reports a malformed record.
type ParseError struct {
	Path string
	Line int
	Err  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Options controls how a table is parsed.
type Options struct {
	// Strict rejects keys that are not 40 lower-case hex characters.
	Strict bool
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{Strict: true}
}

// Load reads a rule table from path. Files ending in .zst are decompressed
// on the fly.
func Load(path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open rule table: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var r io.Reader = f
	if filepath.Ext(path) == ".zst" {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("unable to read compressed rule table: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	t, err := Parse(r, opts)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
			return nil, pe
		}
		return nil, fmt.Errorf("unable to read rule table %s: %w", path, err)
	}
	return t, nil
}

// Parse reads tab separated records from r:
//
//	digest<TAB>pattern<TAB>reply<TAB>reply...
//
// Surrounding whitespace is trimmed from every line. Blank lines and lines
// starting with '#' are skipped.
func Parse(r io.Reader, opts Options) (*Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var rules []KeyedRule
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Split(text, "\t")
		if len(fields) < 2 {
			return nil, &ParseError{Line: line, Err: ErrTooFewFields}
		}
		if opts.Strict && !IsDigest(fields[0]) {
			return nil, &ParseError{Line: line, Err: fmt.Errorf("%w: %q", ErrInvalidKey, fields[0])}
		}

		rules = append(rules, KeyedRule{
			Key:           fields[0],
			Pattern:       fields[1],
			Substitutions: fields[2:],
			Line:          line,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return NewTable(rules), nil
}
