// Package resolver maps an utterance to the pre-recorded reply that answers
// it. Resolution is pure: it reads the rule table and nothing else.
package resolver

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/durgesh-ai/durgesh/internal/chat"
	"github.com/durgesh-ai/durgesh/internal/rules"
)

// DefaultAudioDir is the conventional root of the recorded replies.
const DefaultAudioDir = "audio"

// ErrNoMatch is returned when an utterance has a known digest but no rule
// pattern matches it.
var ErrNoMatch = errors.New("no rule pattern matches input")

// Response identifies a recorded reply.
type Response struct {
	QueryDigest  string
	AnswerDigest string
	Reply        string
}

// Path returns the location of the recorded reply under root:
// root/<query digest>/<answer digest>.mp3.
func (r Response) Path(root string) string {
	return filepath.Join(root, r.QueryDigest, r.AnswerDigest+".mp3")
}

// Resolver resolves utterances against a rule table.
type Resolver struct {
	table  *rules.Table
	engine *chat.Engine
}

// New returns a resolver gating on table and replying through engine. The
// engine is expected to be built from the same table.
func New(table *rules.Table, engine *chat.Engine) *Resolver {
	return &Resolver{table: table, engine: engine}
}

// FromTable compiles table and returns a resolver over it.
func FromTable(table *rules.Table, opts ...chat.Option) (*Resolver, error) {
	engine, err := chat.New(table, opts...)
	if err != nil {
		return nil, err
	}
	return New(table, engine), nil
}

// Resolve looks input up. An unknown digest yields ok == false and a nil
// error: the utterance simply has no reply. A known digest whose text
// matches no pattern yields ErrNoMatch.
func (r *Resolver) Resolve(input string) (Response, bool, error) {
	query := rules.Digest(input)
	if !r.table.Contains(query) {
		log.Debug("Unknown utterance", "query", query)
		return Response{}, false, nil
	}

	m, ok := r.engine.Respond(input)
	if !ok {
		return Response{QueryDigest: query}, false, fmt.Errorf("%w (query %s)", ErrNoMatch, query)
	}

	resp := Response{
		QueryDigest:  query,
		AnswerDigest: rules.Digest(m.Reply),
		Reply:        m.Reply,
	}
	log.Debug("Resolved utterance", "query", resp.QueryDigest, "answer", resp.AnswerDigest, "rule", m.Rule)
	return resp, true, nil
}

// Trace describes how an utterance was resolved.
type Trace struct {
	Input    string
	Query    string
	Known    bool
	Matched  bool
	Rule     rules.KeyedRule
	Response Response
}

// Explain resolves input and reports each step.
func (r *Resolver) Explain(input string) Trace {
	tr := Trace{Input: input, Query: rules.Digest(input)}
	tr.Known = r.table.Contains(tr.Query)
	if !tr.Known {
		return tr
	}

	m, ok := r.engine.Respond(input)
	if !ok {
		return tr
	}
	tr.Matched = true
	tr.Rule = r.table.Rule(m.Rule)
	tr.Response = Response{
		QueryDigest:  tr.Query,
		AnswerDigest: rules.Digest(m.Reply),
		Reply:        m.Reply,
	}
	return tr
}

// Table returns the rule table the resolver gates on.
func (r *Resolver) Table() *rules.Table {
	return r.table
}
