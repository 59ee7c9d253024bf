// Package chat implements the rule-driven reply engine: an ordered list of
// case-insensitive patterns, each with a list of candidate replies.
package chat

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dlclark/regexp2"

	"github.com/durgesh-ai/durgesh/internal/rules"
)

// Chooser picks one reply from a matched rule's candidates. It must be
// deterministic in its arguments.
type Chooser func(input string, candidates []string) string

// First always picks the first candidate.
func First(_ string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	return candidates[0]
}

// Hashed spreads inputs over the candidates by an FNV hash of the input.
func Hashed(input string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(input))
	return candidates[int(h.Sum32()%uint32(len(candidates)))] //nolint:gosec
}

// ChooserByName maps a configuration value to a Chooser.
func ChooserByName(name string) (Chooser, error) {
	switch name {
	case "", "first":
		return First, nil
	case "hashed":
		return Hashed, nil
	default:
		return nil, fmt.Errorf("unknown reply chooser %q (want first or hashed)", name)
	}
}

var wildcard = regexp2.MustCompile(`%[0-9]`, regexp2.None)

type pair struct {
	re         *regexp2.Regexp
	candidates []string
	rule       int
}

// Engine matches input against compiled rules. It is immutable and safe for
// concurrent use.
type Engine struct {
	pairs       []pair
	reflections Reflections
	reflector   *Reflector
	choose      Chooser
}

// Option configures an Engine.
type Option func(*Engine)

// WithChooser sets the reply chooser. The default is First.
func WithChooser(c Chooser) Option {
	return func(e *Engine) {
		if c != nil {
			e.choose = c
		}
	}
}

// WithReflections replaces the reflection table.
func WithReflections(r Reflections) Option {
	return func(e *Engine) {
		e.reflections = r
	}
}

// New compiles every rule of table in order. A pattern matches when it
// matches a prefix of the input, ignoring case. Patterns use the
// backtracking syntax of the rule files, lookarounds and backreferences
// included.
func New(table *rules.Table, opts ...Option) (*Engine, error) {
	e := &Engine{
		pairs:       make([]pair, 0, table.Len()),
		reflections: DefaultReflections,
		choose:      First,
	}
	for _, opt := range opts {
		opt(e)
	}

	rf, err := e.reflections.Compile()
	if err != nil {
		return nil, err
	}
	e.reflector = rf

	for i, r := range table.Rules() {
		re, err := regexp2.Compile(`\A(?:`+r.Pattern+`)`, regexp2.IgnoreCase)
		if err != nil {
			return nil, fmt.Errorf("rule on line %d: invalid pattern %q: %w", r.Line, r.Pattern, err)
		}
		e.pairs = append(e.pairs, pair{re: re, candidates: r.Substitutions, rule: i})
	}
	return e, nil
}

// Match is the outcome of a successful Respond.
type Match struct {
	Rule  int    // index of the matching rule in the table
	Reply string // reply with placeholders filled in
}

// Respond returns the reply of the first rule whose pattern matches input.
func (e *Engine) Respond(input string) (Match, bool) {
	for _, p := range e.pairs {
		m, err := p.re.FindStringMatch(input)
		if err != nil {
			log.Warn("Pattern failed", "rule", p.rule, "error", err)
			continue
		}
		if m == nil {
			continue
		}

		reply := e.fill(e.choose(input, p.candidates), m)
		return Match{Rule: p.rule, Reply: Tidy(reply)}, true
	}
	return Match{}, false
}

// Tidy collapses a trailing "?." to "." and "??" to "?", which substituted
// questions tend to produce.
func Tidy(reply string) string {
	switch {
	case strings.HasSuffix(reply, "?."):
		return reply[:len(reply)-2] + "."
	case strings.HasSuffix(reply, "??"):
		return reply[:len(reply)-2] + "?"
	}
	return reply
}

// IsStatic reports whether reply has no %N placeholders, so that the
// text Respond returns for it does not depend on the input.
func IsStatic(reply string) bool {
	ok, err := wildcard.MatchString(reply)
	return err == nil && !ok
}

// fill replaces %N with the reflected text of capture group N. Groups that
// do not exist or did not participate expand to nothing.
func (e *Engine) fill(reply string, m *regexp2.Match) string {
	out, err := wildcard.ReplaceFunc(reply, func(w regexp2.Match) string {
		g := m.GroupByNumber(int(w.String()[1] - '0'))
		if g == nil || len(g.Captures) == 0 {
			return ""
		}
		return e.reflector.Reflect(g.String())
	}, -1, -1)
	if err != nil {
		return reply
	}
	return out
}
