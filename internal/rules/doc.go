// Package rules loads the keyed reply table: one record per line, a SHA-1
// digest of the utterance, a response pattern, and the replies the pattern
// may produce. Tables are immutable once loaded.
package rules
