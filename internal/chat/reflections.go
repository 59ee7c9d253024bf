package chat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Reflections swaps first and second person so a captured fragment can be
// echoed back ("my dog" becomes "your dog").
type Reflections map[string]string

// DefaultReflections is the table the recorded replies were generated with.
var DefaultReflections = Reflections{
	"i am":     "you are",
	"i was":    "you were",
	"i":        "you",
	"i'm":      "you are",
	"i'd":      "you would",
	"i've":     "you have",
	"i'll":     "you will",
	"my":       "your",
	"you are":  "I am",
	"you were": "I was",
	"you've":   "I have",
	"you'll":   "I will",
	"your":     "my",
	"yours":    "mine",
	"you":      "me",
	"me":       "you",
}

// Reflector applies a compiled reflection table.
type Reflector struct {
	table Reflections
	re    *regexp2.Regexp
}

// Compile builds a single whole-word alternation of the table's keys,
// longest first, so "i am" wins over "i".
func (r Reflections) Compile() (*Reflector, error) {
	rf := &Reflector{table: r}
	if len(r) == 0 {
		return rf, nil
	}

	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	alts := make([]string, len(keys))
	for i, k := range keys {
		alts[i] = regexp2.Escape(k)
	}

	re, err := regexp2.Compile(`\b(`+strings.Join(alts, "|")+`)\b`, regexp2.IgnoreCase)
	if err != nil {
		return nil, fmt.Errorf("invalid reflection table: %w", err)
	}
	rf.re = re
	return rf, nil
}

// Reflect lower-cases s and replaces every key of the table found as a
// whole word in one left-to-right pass. Whitespace is left as is, and
// replaced text is not reflected again.
func (r *Reflector) Reflect(s string) string {
	s = cases.Lower(language.Und).String(s)
	if r.re == nil {
		return s
	}

	out, err := r.re.ReplaceFunc(s, func(m regexp2.Match) string {
		if sub, ok := r.table[m.String()]; ok {
			return sub
		}
		return m.String()
	}, -1, -1)
	if err != nil {
		return s
	}
	return out
}
