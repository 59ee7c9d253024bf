package rules

// KeyedRule is a single record of the rule table.
type KeyedRule struct {
	Key           string   // Digest of the utterance this rule answers
	Pattern       string   // Response pattern, matched case-insensitively
	Substitutions []string // Candidate replies, may contain %N placeholders
	Line          int      // 1-based line in the source file
}

// Table is an ordered, read-only set of rules with O(1) key membership.
type Table struct {
	rules []KeyedRule
	keys  map[string]int // key -> index of the first rule carrying it
	dups  []int
}

// NewTable builds a table from rules in precedence order. The first rule
// carrying a key owns it; later rules with the same key are kept for pattern
// matching and reported by Duplicates.
func NewTable(rules []KeyedRule) *Table {
	t := &Table{
		rules: make([]KeyedRule, len(rules)),
		keys:  make(map[string]int, len(rules)),
	}
	for i, r := range rules {
		r.Substitutions = append([]string(nil), r.Substitutions...)
		t.rules[i] = r
		if _, ok := t.keys[r.Key]; ok {
			t.dups = append(t.dups, i)
			continue
		}
		t.keys[r.Key] = i
	}
	return t
}

// Contains reports whether key is a known digest.
func (t *Table) Contains(key string) bool {
	_, ok := t.keys[key]
	return ok
}

// Lookup returns the rule that owns key.
func (t *Table) Lookup(key string) (KeyedRule, bool) {
	i, ok := t.keys[key]
	if !ok {
		return KeyedRule{}, false
	}
	return t.rules[i], true
}

// Rules returns the rules in precedence order. The slice is a copy.
func (t *Table) Rules() []KeyedRule {
	out := make([]KeyedRule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Rule returns the i-th rule in precedence order.
func (t *Table) Rule(i int) KeyedRule {
	return t.rules[i]
}

// Len returns the number of rules, duplicates included.
func (t *Table) Len() int {
	return len(t.rules)
}

// Keys returns the valid keys in first-seen order.
func (t *Table) Keys() []string {
	out := make([]string, 0, len(t.keys))
	for i, r := range t.rules {
		if t.keys[r.Key] == i {
			out = append(out, r.Key)
		}
	}
	return out
}

// Duplicates returns the rules whose key was already owned by an earlier rule.
func (t *Table) Duplicates() []KeyedRule {
	out := make([]KeyedRule, 0, len(t.dups))
	for _, i := range t.dups {
		out = append(out, t.rules[i])
	}
	return out
}
