package resolver

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/durgesh-ai/durgesh/internal/chat"
	"github.com/durgesh-ai/durgesh/internal/rules"
)

const (
	happyQuery  = "78272825118631e7984130fda9b8868fc8192beb" // sha1("are you happy")
	happyAnswer = "51aa05f7ceabc62f46e77ff1eb0969f1ce8f7a9b" // sha1("Yes I am!")
)

func newResolver(t *testing.T, records ...string) *Resolver {
	t.Helper()
	tbl, err := rules.Parse(strings.NewReader(strings.Join(records, "\n")), rules.DefaultOptions())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	r, err := FromTable(tbl)
	if err != nil {
		t.Fatalf("FromTable failed: %v", err)
	}
	return r
}

func happyResolver(t *testing.T) *Resolver {
	return newResolver(t,
		happyQuery+"\tare you happy\tYes I am!",
		rules.Digest("my name is Ada")+"\tmy name is (.*)\tHello %1",
	)
}

func TestResolveScenario(t *testing.T) {
	r := happyResolver(t)

	resp, ok, err := r.Resolve("are you happy")
	if err != nil || !ok {
		t.Fatalf("Resolve = %v, %v; want a response", ok, err)
	}
	if resp.QueryDigest != happyQuery {
		t.Errorf("QueryDigest = %s, want %s", resp.QueryDigest, happyQuery)
	}
	if resp.AnswerDigest != happyAnswer {
		t.Errorf("AnswerDigest = %s, want %s", resp.AnswerDigest, happyAnswer)
	}

	want := filepath.FromSlash("audio/" + happyQuery + "/" + happyAnswer + ".mp3")
	if got := resp.Path(DefaultAudioDir); got != want {
		t.Errorf("Path = %s, want %s", got, want)
	}
}

func TestResolveMisses(t *testing.T) {
	r := happyResolver(t)

	for _, in := range []string{"random unseen text", "", "namasté", "Are you happy", "are you happy "} {
		t.Run(in, func(t *testing.T) {
			resp, ok, err := r.Resolve(in)
			if err != nil {
				t.Fatalf("lookup miss must not be an error, got %v", err)
			}
			if ok {
				t.Errorf("Resolve(%q) = %+v, want no response", in, resp)
			}
		})
	}
}

func TestResolveDeterministic(t *testing.T) {
	r := happyResolver(t)

	for _, in := range []string{"are you happy", "my name is Ada", "nothing"} {
		a, okA, errA := r.Resolve(in)
		b, okB, errB := r.Resolve(in)
		if a != b || okA != okB || (errA == nil) != (errB == nil) {
			t.Errorf("Resolve(%q) not deterministic: %+v/%v vs %+v/%v", in, a, okA, b, okB)
		}
	}
}

func TestResolveRoundTrip(t *testing.T) {
	r := happyResolver(t)

	resp, ok, err := r.Resolve("my name is Ada")
	if err != nil || !ok {
		t.Fatalf("Resolve = %v, %v", ok, err)
	}
	if resp.Reply != "Hello ada" {
		t.Errorf("Reply = %q, want %q", resp.Reply, "Hello ada")
	}
	if resp.AnswerDigest != rules.Digest(resp.Reply) {
		t.Errorf("AnswerDigest = %s, want digest of reply", resp.AnswerDigest)
	}
}

func TestResolveReflectedAnswerDigest(t *testing.T) {
	r := newResolver(t,
		rules.Digest("my name is Bob")+"\tmy name is (.*)\tHello %1.",
		rules.Digest("i feel I am sad")+"\ti feel (.*)\tWhy do you think %1?",
	)

	tests := []struct {
		input string
		reply string
	}{
		{"my name is Bob", "Hello bob."},
		{"i feel I am sad", "Why do you think you are sad?"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			resp, ok, err := r.Resolve(tt.input)
			if err != nil || !ok {
				t.Fatalf("Resolve = %v, %v", ok, err)
			}
			if resp.Reply != tt.reply {
				t.Errorf("Reply = %q, want %q", resp.Reply, tt.reply)
			}
			if want := rules.Digest(tt.reply); resp.AnswerDigest != want {
				t.Errorf("AnswerDigest = %s, want %s", resp.AnswerDigest, want)
			}
		})
	}
}

func TestResolveNoMatch(t *testing.T) {
	// The key is known but the pattern does not cover the utterance.
	r := newResolver(t, rules.Digest("good morning")+"\tgood evening\tEvening!")

	resp, ok, err := r.Resolve("good morning")
	if ok {
		t.Fatal("expected no response")
	}
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("error = %v, want ErrNoMatch", err)
	}
	if resp.QueryDigest != rules.Digest("good morning") {
		t.Errorf("QueryDigest = %q, want the query digest", resp.QueryDigest)
	}
}

func TestResolveDuplicateKey(t *testing.T) {
	// Both rules share a key; pattern order decides the reply.
	r := newResolver(t,
		happyQuery+"\tare you happy\tFirst",
		happyQuery+"\tare you happy\tSecond",
	)

	resp, ok, err := r.Resolve("are you happy")
	if err != nil || !ok {
		t.Fatalf("Resolve = %v, %v", ok, err)
	}
	if resp.Reply != "First" {
		t.Errorf("Reply = %q, want First", resp.Reply)
	}
}

func TestResolveAcrossLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.tsv")
	data := happyQuery + "\tare you happy\tYes I am!\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	var got []Response
	for i := 0; i < 2; i++ {
		tbl, err := rules.Load(path, rules.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		r, err := FromTable(tbl, chat.WithChooser(chat.First))
		if err != nil {
			t.Fatal(err)
		}
		resp, _, _ := r.Resolve("are you happy")
		got = append(got, resp)
	}
	if got[0] != got[1] {
		t.Errorf("two loads resolved differently: %+v vs %+v", got[0], got[1])
	}
}

func TestExplain(t *testing.T) {
	r := happyResolver(t)

	tr := r.Explain("are you happy")
	if !tr.Known || !tr.Matched {
		t.Fatalf("Explain = %+v, want known and matched", tr)
	}
	if tr.Rule.Pattern != "are you happy" {
		t.Errorf("Rule.Pattern = %q", tr.Rule.Pattern)
	}
	if tr.Response.AnswerDigest != happyAnswer {
		t.Errorf("AnswerDigest = %s, want %s", tr.Response.AnswerDigest, happyAnswer)
	}

	tr = r.Explain("unknown")
	if tr.Known || tr.Matched {
		t.Errorf("Explain(unknown) = %+v", tr)
	}
	if tr.Query != rules.Digest("unknown") {
		t.Errorf("Query = %s", tr.Query)
	}
}
