package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/durgesh-ai/durgesh/internal/chat"
	"github.com/durgesh-ai/durgesh/internal/resolver"
	"github.com/durgesh-ai/durgesh/internal/rules"
	"github.com/durgesh-ai/durgesh/internal/session"
)

const patternColumn = 40

var (
	explainText string
	checkAudio  bool

	rulesCmd = &cobra.Command{
		Use:   "rules [FILTER]",
		Short: "Inspect the rule table",
		Long: paragraph(fmt.Sprintf("\nList the rules, optionally %s by pattern. With --explain, show how an utterance resolves. With --check, look for missing recorded replies.",
			keyword("fuzzy filtered"))),
		Example: paragraph("durgesh rules\ndurgesh rules happy\ndurgesh rules --explain 'are you happy'\ndurgesh rules --check"),
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := session.LoadResolver(cfg)
			if err != nil {
				return err //nolint:wrapcheck
			}
			w := cmd.OutOrStdout()

			switch {
			case cmd.Flags().Changed("explain"):
				return printTrace(w, res.Explain(explainText))
			case checkAudio:
				rep, err := checkArtifacts(res.Table(), cfg.Playback.AudioDir)
				if err != nil {
					return err
				}
				if err := printReport(w, rep); err != nil {
					return err
				}
				if !rep.OK() {
					return errors.New("recorded replies are incomplete")
				}
				return nil
			}

			var filter string
			if len(args) > 0 {
				filter = args[0]
			}
			return printRules(w, filterRules(res.Table(), filter))
		},
	}
)

func init() {
	rulesCmd.Flags().StringVarP(&explainText, "explain", "e", "", "show how an utterance resolves")
	rulesCmd.Flags().BoolVarP(&checkAudio, "check", "c", false, "check the recorded replies against the rule table")
}

// filterRules returns the rules whose pattern fuzzy matches filter, best
// match first. An empty filter returns every rule in table order.
func filterRules(t *rules.Table, filter string) []rules.KeyedRule {
	all := t.Rules()
	if filter == "" {
		return all
	}

	patterns := make([]string, len(all))
	for i, r := range all {
		patterns[i] = r.Pattern
	}

	matches := fuzzy.Find(filter, patterns)
	out := make([]rules.KeyedRule, 0, len(matches))
	for _, m := range matches {
		out = append(out, all[m.Index])
	}
	return out
}

func printRules(w io.Writer, rs []rules.KeyedRule) error {
	for _, r := range rs {
		pattern := runewidth.FillRight(runewidth.Truncate(r.Pattern, patternColumn, "…"), patternColumn)
		line := fmt.Sprintf("%s  %s  %s", faint(r.Key[:min(len(r.Key), 8)]), keyword(pattern), strings.Join(r.Substitutions, faint(" | ")))
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("unable to write to writer: %w", err)
		}
	}
	return nil
}

func printTrace(w io.Writer, tr resolver.Trace) error {
	var b strings.Builder
	fmt.Fprintf(&b, "input   %q\n", tr.Input)
	fmt.Fprintf(&b, "query   %s\n", tr.Query)
	switch {
	case !tr.Known:
		fmt.Fprintln(&b, warning("unknown utterance"))
	case !tr.Matched:
		fmt.Fprintln(&b, warning("known utterance, but no pattern matches"))
	default:
		fmt.Fprintf(&b, "rule    line %d: %s\n", tr.Rule.Line, keyword(tr.Rule.Pattern))
		fmt.Fprintf(&b, "reply   %s\n", tr.Response.Reply)
		fmt.Fprintf(&b, "answer  %s\n", tr.Response.AnswerDigest)
		fmt.Fprintf(&b, "path    %s\n", tr.Response.Path(cfg.Playback.AudioDir))
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("unable to write to writer: %w", err)
	}
	return nil
}

// Report is the outcome of checkArtifacts.
type Report struct {
	Queries int
	Replies int
	Size    int64

	// Query digests without a directory
	MissingDirs []string

	// Static replies without a recording
	MissingReplies []string

	// Directories no rule refers to
	Orphans []string
}

// OK reports whether every rule has its recordings.
func (r Report) OK() bool {
	return len(r.MissingDirs) == 0 && len(r.MissingReplies) == 0
}

// checkArtifacts compares the recorded replies under root with table. Only
// replies without placeholders can be checked, since the others depend on
// the utterance.
func checkArtifacts(t *rules.Table, root string) (Report, error) {
	var rep Report

	info, err := os.Stat(root)
	if err != nil {
		return rep, fmt.Errorf("unable to read audio directory: %w", err)
	}
	if !info.IsDir() {
		return rep, fmt.Errorf("%s is not a directory", root)
	}

	keys := t.Keys()
	known := make(map[string]bool, len(keys))
	for _, k := range keys {
		known[k] = true
		rep.Queries++
		if _, err := os.Stat(filepath.Join(root, k)); errors.Is(err, fs.ErrNotExist) {
			rep.MissingDirs = append(rep.MissingDirs, k)
		}
	}

	seen := make(map[string]bool)
	for _, r := range t.Rules() {
		for _, sub := range r.Substitutions {
			if !chat.IsStatic(sub) {
				continue
			}
			p := resolver.Response{QueryDigest: r.Key, AnswerDigest: rules.Digest(chat.Tidy(sub))}.Path(root)
			if seen[p] {
				continue
			}
			seen[p] = true
			rep.Replies++
			if _, err := os.Stat(p); err != nil {
				rep.MissingReplies = append(rep.MissingReplies, p)
			}
		}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return rep, fmt.Errorf("unable to read audio directory: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if !known[e.Name()] {
			rep.Orphans = append(rep.Orphans, e.Name())
		}
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".mp3" {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err //nolint:wrapcheck
		}
		rep.Size += fi.Size()
		return nil
	})
	if err != nil {
		return rep, fmt.Errorf("unable to walk audio directory: %w", err)
	}

	sort.Strings(rep.MissingReplies)
	return rep, nil
}

func printReport(w io.Writer, rep Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%d queries, %d static replies, %s of audio\n", rep.Queries, rep.Replies, humanize.Bytes(uint64(rep.Size))) //nolint:gosec
	for _, k := range rep.MissingDirs {
		fmt.Fprintf(&b, "%s %s\n", warning("missing directory"), k)
	}
	for _, p := range rep.MissingReplies {
		fmt.Fprintf(&b, "%s %s\n", warning("missing reply"), p)
	}
	for _, k := range rep.Orphans {
		fmt.Fprintf(&b, "%s %s\n", faint("orphan"), k)
	}
	if rep.OK() {
		fmt.Fprintln(&b, keyword("all recorded replies present"))
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("unable to write to writer: %w", err)
	}
	return nil
}
