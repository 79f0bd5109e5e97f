package server

import (
	"bytes"
	"testing"

	"github.com/bastiangx/wikibot/pkg/config"
	"github.com/bastiangx/wikibot/pkg/jobs"
	"github.com/bastiangx/wikibot/pkg/site"
	"github.com/bastiangx/wikibot/pkg/title"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

// reply decodes both Response and ErrorResponse messages.
type reply struct {
	Response `msgpack:",inline"`
	Error    string `msgpack:"e"`
}

func newTestParser(t *testing.T) *title.Parser {
	t.Helper()
	def := site.DefaultDefinition("Test Wiki")
	def.Interwiki = []site.InterwikiEntry{
		{Prefix: "en", LocalWiki: true},
		{Prefix: "wikipedia", URL: "https://en.wikipedia.org/wiki/$1"},
	}
	s, err := site.New(def)
	require.NoError(t, err)
	p, err := title.NewParser(s, 16)
	require.NoError(t, err)
	return p
}

// exchange feeds requests to a fresh server and returns every reply after
// the ready message.
func exchange(t *testing.T, cfg *config.Config, requests ...any) []reply {
	t.Helper()
	var in, out bytes.Buffer
	enc := msgpack.NewEncoder(&in)
	for _, r := range requests {
		require.NoError(t, enc.Encode(r))
	}

	srv := NewServerWithIO(newTestParser(t), jobs.Builtin(), cfg, &in, &out)
	require.NoError(t, srv.Start())

	dec := msgpack.NewDecoder(&out)
	var ready StatusResponse
	require.NoError(t, dec.Decode(&ready))
	require.Equal(t, "ready", ready.Status)

	var replies []reply
	for out.Len() > 0 {
		var r reply
		require.NoError(t, dec.Decode(&r))
		replies = append(replies, r)
	}
	return replies
}

func TestParseAction(t *testing.T) {
	replies := exchange(t, nil, Request{
		ID:        "p1",
		Action:    "parse",
		Titles:    []string{"foo", ":Main Page#Top", "en:Talk:bar", "Foo\xffBar"},
		Namespace: site.NamespaceTemplate,
	})
	require.Len(t, replies, 1)
	r := replies[0]
	require.Empty(t, r.Error)
	assert.Equal(t, "p1", r.ID)
	assert.Equal(t, "ok", r.Status)
	require.Len(t, r.Titles, 4)

	assert.Equal(t, ParsedTitle{Text: "Template:Foo", Namespace: site.NamespaceTemplate, PageName: "Foo", Coerced: true}, r.Titles[0])
	assert.Equal(t, "Main Page", r.Titles[1].PageName)
	assert.Equal(t, "Top", r.Titles[1].Fragment)
	assert.True(t, r.Titles[1].ForcedNamespace)
	assert.False(t, r.Titles[1].Coerced)
	assert.Equal(t, "en", r.Titles[2].Interwiki)
	assert.Equal(t, site.NamespaceTalk, r.Titles[2].Namespace)
	assert.Equal(t, "Bar", r.Titles[2].PageName)
	assert.NotEmpty(t, r.Titles[3].Error, "undecodable input is reported per title")
	assert.Nil(t, r.Titles[0].Valid, "parse does not validate")
}

func TestValidateAction(t *testing.T) {
	replies := exchange(t, nil, Request{
		ID:     "v1",
		Action: "validate",
		Titles: []string{"Foo", "Foo|Bar", "../x", "../x"},
	}, Request{
		ID:            "v2",
		Action:        "validate",
		Titles:        []string{"#Top"},
		AllowRelative: true,
	})
	require.Len(t, replies, 2)

	r := replies[0]
	require.Len(t, r.Titles, 4)
	require.NotNil(t, r.Titles[0].Valid)
	assert.True(t, *r.Titles[0].Valid)
	assert.False(t, *r.Titles[1].Valid)
	assert.Equal(t, title.ProblemIllegalCharacter.String(), r.Titles[1].Problem)
	assert.Equal(t, title.ProblemRelativePath.String(), r.Titles[2].Problem)
	assert.Equal(t, 3, r.Count, "count is the number of invalid titles")

	require.NotNil(t, replies[1].Titles[0].Valid)
	assert.True(t, *replies[1].Titles[0].Valid, "a bare section link is allowed when relative links are")
	assert.Equal(t, 0, replies[1].Count)
}

func TestSortAction(t *testing.T) {
	replies := exchange(t, nil,
		Request{ID: "s1", Action: "sort", Titles: []string{"Page 10", "Talk:A", "page 2", "Page 2"}, Natural: true},
		Request{ID: "s2", Action: "sort", Titles: []string{"Page 10", "Page 2"}},
		Request{ID: "s3", Action: "sort", Titles: []string{"A", "B", "C"}, Reverse: true},
	)
	require.Len(t, replies, 3)

	texts := func(r reply) []string {
		var out []string
		for _, pt := range r.Titles {
			out = append(out, pt.Text)
		}
		return out
	}
	assert.Equal(t, []string{"Page 2", "Page 10", "Talk:A"}, texts(replies[0]))
	assert.Equal(t, 3, replies[0].Count)
	assert.Equal(t, []string{"Page 10", "Page 2"}, texts(replies[1]))
	assert.Equal(t, []string{"C", "B", "A"}, texts(replies[2]))
}

func TestRunAction(t *testing.T) {
	replies := exchange(t, nil,
		Request{ID: "r1", Action: "run", Job: "talk-pages", Titles: []string{"Foo", "Special:Random", "User:X"}},
		Request{ID: "r2", Action: "run", Job: "nope", Titles: []string{"Foo"}},
		Request{ID: "r3", Action: "run", Job: "sort", Titles: []string{"Foo"}, Params: map[string]string{"order": "sideways"}},
		Request{ID: "r4", Action: "run", Titles: []string{"Foo"}},
	)
	require.Len(t, replies, 4)

	r := replies[0]
	require.Empty(t, r.Error)
	assert.NotEmpty(t, r.RunID)
	require.Len(t, r.Titles, 2)
	assert.Equal(t, "Talk:Foo", r.Titles[0].Text)
	assert.Equal(t, "User talk:X", r.Titles[1].Text)
	assert.Equal(t, []string{"skipped 1 titles without a talk namespace"}, r.Messages)

	assert.Equal(t, "Unknown job: nope", replies[1].Error)
	assert.Equal(t, 404, replies[1].Count)
	assert.Contains(t, replies[2].Error, "order")
	assert.Equal(t, 400, replies[2].Count)
	assert.Equal(t, 400, replies[3].Count)
}

func TestForeignTitlesStayOutOfCollections(t *testing.T) {
	replies := exchange(t, nil,
		Request{ID: "f1", Action: "run", Job: "talk-pages", Titles: []string{"wikipedia:Foo", "Bar"}},
		Request{ID: "f2", Action: "sort", Titles: []string{"Foo", "wikipedia:foo"}},
	)
	require.Len(t, replies, 2)

	run := replies[0]
	require.Empty(t, run.Error)
	require.Len(t, run.Titles, 2)
	assert.Equal(t, "Talk:Bar", run.Titles[0].Text)
	assert.Equal(t, 1, run.Count)
	assert.Equal(t, "wikipedia", run.Titles[1].Interwiki)
	assert.Equal(t, "Foo", run.Titles[1].PageName)
	assert.Equal(t, "wikipedia:Foo is on another wiki", run.Titles[1].Error)

	sorted := replies[1]
	require.Len(t, sorted.Titles, 2)
	assert.Equal(t, 1, sorted.Count)
	assert.Equal(t, "Foo", sorted.Titles[0].Text)
	assert.Empty(t, sorted.Titles[0].Interwiki)
	assert.Equal(t, "wikipedia:foo", sorted.Titles[1].Text)
	assert.NotEmpty(t, sorted.Titles[1].Error)
}

func TestRequestErrors(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.MaxBatch = 2
	replies := exchange(t, cfg,
		Request{ID: "e1", Action: "parse"},
		Request{ID: "e2", Action: "parse", Titles: []string{"a", "b", "c"}},
		Request{ID: "e3", Action: "parse", Titles: []string{"a"}, Namespace: 42},
		Request{ID: "e4", Action: "dance"},
		"not a request",
	)
	require.Len(t, replies, 5)

	assert.Equal(t, "Missing 'titles' parameter", replies[0].Error)
	assert.Equal(t, 413, replies[1].Count)
	assert.Equal(t, "Unknown namespace: 42", replies[2].Error)
	assert.Equal(t, "Unknown action: dance", replies[3].Error)
	assert.Equal(t, "e4", replies[3].ID)
	assert.Equal(t, "Invalid msgpack request", replies[4].Error)
}

func TestCompleteAndHealth(t *testing.T) {
	replies := exchange(t, nil,
		Request{ID: "c1", Action: "complete", Prefix: "us"},
		Request{ID: "c2", Action: "complete", Prefix: "w"},
		Request{ID: "h1", Action: "parse", Titles: []string{"A", "A"}},
		Request{ID: "h2", Action: "health"},
	)
	require.Len(t, replies, 4)

	assert.Equal(t, []string{"user", "user talk"}, replies[0].Names)
	assert.Equal(t, []string{"wikipedia"}, replies[1].Names)

	health := replies[3]
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 4, health.Count)
	assert.Equal(t, 1, health.Stats["cacheHits"])
	assert.Equal(t, 1, health.Stats["cacheEntries"])
}

func TestMalformedStream(t *testing.T) {
	var out bytes.Buffer
	srv := NewServerWithIO(newTestParser(t), jobs.Builtin(), nil, bytes.NewReader([]byte{0xc1}), &out)
	require.Error(t, srv.Start())

	dec := msgpack.NewDecoder(&out)
	var ready StatusResponse
	require.NoError(t, dec.Decode(&ready))
	var r reply
	require.NoError(t, dec.Decode(&r))
	assert.Equal(t, "Malformed msgpack stream", r.Error)
}
