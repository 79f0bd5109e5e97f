package title

import (
	"errors"
	"testing"

	"github.com/bastiangx/wikibot/pkg/site"
)

func newTestSite(t testing.TB, version string) *site.Site {
	t.Helper()
	def := site.DefaultDefinition("Test Wiki")
	def.Version = version
	def.Namespaces = append(def.Namespaces,
		site.Namespace{ID: 100, CanonicalName: "Lore", Name: "Lore", CaseSensitive: true, AllowsSubpages: true},
		site.Namespace{ID: 101, CanonicalName: "Lore talk", Name: "Lore talk", CaseSensitive: true, AllowsSubpages: true},
	)
	def.Interwiki = []site.InterwikiEntry{
		{Prefix: "en", LocalWiki: true},
		{Prefix: "fr", LocalWiki: true},
		{Prefix: "wikipedia", URL: "https://en.wikipedia.org/wiki/$1"},
	}
	s, err := site.New(def)
	if err != nil {
		t.Fatalf("site.New: %v", err)
	}
	return s
}

func TestParse(t *testing.T) {
	s := newTestSite(t, "1.39.4")

	testCases := []struct {
		input     string
		defaultNS int
		ns        int
		page      string
		interwiki string
		fragment  string
		hasFrag   bool
		coerced   bool
		forcedNS  bool
		forcedIW  bool
	}{
		{input: "talk:Foo/Bar", ns: site.NamespaceTalk, page: "Foo/Bar"},
		{input: ":Category:Foo", ns: site.NamespaceCategory, page: "Foo", forcedNS: true},
		{input: "en:Main Page", ns: site.NamespaceMain, page: "Main Page", interwiki: "en"},
		{input: "fr:", ns: site.NamespaceMain, page: "Main Page", interwiki: "fr"},
		{input: "User:Foo#Section 1", ns: site.NamespaceUser, page: "Foo", fragment: "Section 1", hasFrag: true},
		{input: "foo", defaultNS: site.NamespaceTemplate, ns: site.NamespaceTemplate, page: "Foo", coerced: true},
		{input: ":foo", defaultNS: site.NamespaceTemplate, ns: site.NamespaceMain, page: "Foo", forcedNS: true},
		{input: "Help:foo", defaultNS: site.NamespaceTemplate, ns: site.NamespaceHelp, page: "Foo"},
		{input: "wikipedia:talk:foo", ns: site.NamespaceMain, page: "talk:foo", interwiki: "wikipedia"},
		{input: "wikipedia:foo", defaultNS: site.NamespaceTemplate, ns: site.NamespaceMain, page: "foo", interwiki: "wikipedia"},
		{input: ":wikipedia:Foo", ns: site.NamespaceMain, page: "Foo", interwiki: "wikipedia", forcedNS: true, forcedIW: true},
		{input: "en:Talk:foo", ns: site.NamespaceTalk, page: "Foo", interwiki: "en"},
		{input: "en::Talk:Foo", ns: site.NamespaceMain, page: "Talk:Foo", interwiki: "en", forcedNS: true},
		{input: "en:foo", defaultNS: site.NamespaceTemplate, ns: site.NamespaceTemplate, page: "Foo", interwiki: "en", coerced: true},
		{input: "Foo#Bar:Baz", ns: site.NamespaceMain, page: "Foo", fragment: "Bar:Baz", hasFrag: true},
		{input: "  user_talk : some__page  ", ns: site.NamespaceUserTalk, page: "Some page"},
		{input: "Image:Foo.png", ns: site.NamespaceFile, page: "Foo.png"},
		{input: "Lore:foo", ns: 100, page: "foo"},
		{input: "Nonexistent:foo", ns: site.NamespaceMain, page: "Nonexistent:foo"},
		{input: "#Section", ns: site.NamespaceMain, page: "", fragment: "Section", hasFrag: true},
		{input: "Foo#", ns: site.NamespaceMain, page: "Foo", hasFrag: true},
		{input: "Foo#a_b", ns: site.NamespaceMain, page: "Foo", fragment: "a b", hasFrag: true},
		{input: "Foo\u200eBar", ns: site.NamespaceMain, page: "FooBar"},
		{input: "foo\tbar baz", ns: site.NamespaceMain, page: "Foo bar baz"},
		{input: "", ns: site.NamespaceMain, page: ""},
	}

	for _, tc := range testCases {
		lt, err := Parse(s, tc.defaultNS, tc.input)
		if err != nil {
			t.Errorf("Parse(%q): %v", tc.input, err)
			continue
		}
		if lt.Namespace().ID != tc.ns {
			t.Errorf("Parse(%q) namespace = %d, want %d", tc.input, lt.Namespace().ID, tc.ns)
		}
		if lt.PageName() != tc.page {
			t.Errorf("Parse(%q) page name = %q, want %q", tc.input, lt.PageName(), tc.page)
		}
		var iw string
		if lt.Interwiki() != nil {
			iw = lt.Interwiki().Prefix
		}
		if iw != tc.interwiki {
			t.Errorf("Parse(%q) interwiki = %q, want %q", tc.input, iw, tc.interwiki)
		}
		if lt.Fragment() != tc.fragment || lt.HasFragment() != tc.hasFrag {
			t.Errorf("Parse(%q) fragment = %q (%v), want %q (%v)", tc.input, lt.Fragment(), lt.HasFragment(), tc.fragment, tc.hasFrag)
		}
		if lt.Coerced != tc.coerced {
			t.Errorf("Parse(%q) coerced = %v, want %v", tc.input, lt.Coerced, tc.coerced)
		}
		if lt.ForcedNamespaceLink != tc.forcedNS {
			t.Errorf("Parse(%q) forced namespace link = %v, want %v", tc.input, lt.ForcedNamespaceLink, tc.forcedNS)
		}
		if lt.ForcedInterwikiLink != tc.forcedIW {
			t.Errorf("Parse(%q) forced interwiki link = %v, want %v", tc.input, lt.ForcedInterwikiLink, tc.forcedIW)
		}
	}
}

func TestParseErrors(t *testing.T) {
	s := newTestSite(t, "1.39.4")

	if _, err := Parse(nil, 0, "Foo"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil site: got %v, want ErrInvalidInput", err)
	}
	if _, err := Parse(s, 99, "Foo"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown default namespace: got %v, want ErrInvalidInput", err)
	}
	if _, err := Parse(s, 0, "Foo\xffBar"); !errors.Is(err, ErrUndecodable) {
		t.Errorf("invalid UTF-8: got %v, want ErrUndecodable", err)
	}
}

func TestParseRoundTrip(t *testing.T) {
	s := newTestSite(t, "1.39.4")
	names := []string{"Foo", "Foo bar/Baz", "Ünïcode page", "x"}

	for _, ns := range s.Namespaces.All() {
		for _, name := range names {
			want := New(ns, name)
			lt, err := Parse(s, site.NamespaceMain, want.String())
			if err != nil {
				t.Fatalf("Parse(%q): %v", want.String(), err)
			}
			if !Equal[SimpleTitle](lt, want) {
				t.Errorf("round trip of %q gave %q in namespace %d", want.String(), lt.String(), lt.Namespace().ID)
			}
			if lt.String() != want.String() {
				t.Errorf("canonical text %q came back as %q", want.String(), lt.String())
			}

			own, err := Parse(s, ns.ID, want.FullPageName())
			if err != nil {
				t.Fatalf("Parse(%q): %v", want.FullPageName(), err)
			}
			if own.Coerced {
				t.Errorf("%q parsed in its own namespace reported coercion", want.FullPageName())
			}
		}
	}
}

func TestLinkTitleText(t *testing.T) {
	s := newTestSite(t, "1.39.4")

	testCases := []struct {
		input    string
		original string
		link     string
	}{
		{"user_talk:foo", "user talk:foo", "User talk:Foo"},
		{":Category:Foo", ":Category:Foo", ":Category:Foo"},
		{":en::talk:foo#x_y", ":en::talk:foo#x y", ":en:Talk:foo#x y"},
		{"EN:image:bar.png", "EN:image:bar.png", "en:File:Bar.png"},
		{"Foo#", "Foo#", "Foo#"},
	}
	for _, tc := range testCases {
		lt := MustParse(s, site.NamespaceMain, tc.input)
		if got := lt.OriginalText(); got != tc.original {
			t.Errorf("OriginalText(%q) = %q, want %q", tc.input, got, tc.original)
		}
		if got := lt.LinkText(); got != tc.link {
			t.Errorf("LinkText(%q) = %q, want %q", tc.input, got, tc.link)
		}
	}
}

func TestMainPageResolution(t *testing.T) {
	def := site.DefaultDefinition("No Main")
	def.MainPage = ""
	def.Interwiki = []site.InterwikiEntry{{Prefix: "self", LocalWiki: true}}
	s, err := site.New(def)
	if err != nil {
		t.Fatalf("site.New: %v", err)
	}
	lt := MustParse(s, site.NamespaceMain, "self:")
	if lt.PageName() != "" || lt.Namespace().ID != site.NamespaceMain {
		t.Errorf("site without a main page resolved to %q", lt.String())
	}

	// A main page written as a bare local prefix must not recurse.
	s.MainPageName = "self:"
	lt = MustParse(s, site.NamespaceMain, "self:")
	if lt.Interwiki() == nil || lt.Interwiki().Prefix != "self" {
		t.Errorf("interwiki lost: %v", lt.Interwiki())
	}

	s.MainPageName = "Help:Start#Top"
	lt = MustParse(s, site.NamespaceMain, "self:")
	if lt.Namespace().ID != site.NamespaceHelp || lt.PageName() != "Start" || lt.Fragment() != "Top" {
		t.Errorf("main page resolved to %q", lt.String())
	}
}

func TestTitleRelatives(t *testing.T) {
	s := newTestSite(t, "1.39.4")

	user := MustParse(s, site.NamespaceMain, "User:A/B/C").Title
	if got := user.RootPageName(); got != "A" {
		t.Errorf("RootPageName = %q", got)
	}
	if got := user.BasePageName(); got != "A/B" {
		t.Errorf("BasePageName = %q", got)
	}
	if got := user.SubpageName(); got != "C" {
		t.Errorf("SubpageName = %q", got)
	}

	article := MustParse(s, site.NamespaceMain, "AC/DC").Title
	if article.RootPageName() != "AC/DC" || article.SubpageName() != "AC/DC" {
		t.Errorf("Main space has no subpages, got root %q", article.RootPageName())
	}

	talk, ok := article.TalkPage()
	if !ok || talk.String() != "Talk:AC/DC" {
		t.Errorf("TalkPage = %q, %v", talk.String(), ok)
	}
	if got := talk.SubjectPage(); got != article {
		t.Errorf("SubjectPage = %q", got.String())
	}
	if _, ok := MustParse(s, site.NamespaceMain, "Special:Random").TalkPage(); ok {
		t.Error("Special pages have no talk page")
	}

	if got := MustParse(s, site.NamespaceMain, "Category:Foo").LinkName(); got != ":Category:Foo" {
		t.Errorf("LinkName = %q", got)
	}
}

func TestParserCache(t *testing.T) {
	s := newTestSite(t, "1.39.4")

	p, err := NewParser(s, 2)
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	first, err := p.Parse(site.NamespaceMain, "talk:foo")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	second, _ := p.Parse(site.NamespaceMain, "talk:foo")
	if !EqualFull[FullLink](first, second) {
		t.Errorf("cached result %q differs from %q", second.String(), first.String())
	}
	if first == second {
		t.Error("callers must not share one cached value")
	}

	stats := p.Stats()
	if stats["cacheHits"] != 1 || stats["cacheMisses"] != 1 {
		t.Errorf("stats = %v", stats)
	}

	if _, err := p.Parse(site.NamespaceMain, "\xff"); !errors.Is(err, ErrUndecodable) {
		t.Errorf("got %v, want ErrUndecodable", err)
	}
	if _, err := NewParser(nil, 1); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("got %v, want ErrInvalidInput", err)
	}

	uncached, _ := NewParser(s, 0)
	if uncached.Stats() != nil {
		t.Error("parser without cache reported stats")
	}
}

func TestFromFullName(t *testing.T) {
	s := newTestSite(t, "1.39.4")

	testCases := []struct {
		input string
		ns    int
		name  string
	}{
		{"Talk:foo", site.NamespaceTalk, "Foo"},
		{"Foo bar#Section", site.NamespaceMain, "Foo bar"},
		{"en:User:X", site.NamespaceUser, "X"},
		{"Lore:lower", 100, "lower"},
	}
	for _, tc := range testCases {
		got, err := FromFullName(s, tc.input)
		if err != nil {
			t.Fatalf("FromFullName(%q): %v", tc.input, err)
		}
		if got.Namespace().ID != tc.ns || got.PageName() != tc.name {
			t.Errorf("FromFullName(%q) = %d %q, want %d %q", tc.input, got.Namespace().ID, got.PageName(), tc.ns, tc.name)
		}
	}

	if _, err := FromFullName(s, "Foo\xff"); !errors.Is(err, ErrUndecodable) {
		t.Errorf("got %v, want ErrUndecodable", err)
	}
}

func TestParserResizeCache(t *testing.T) {
	s := newTestSite(t, "1.39.4")
	p, err := NewParser(s, 4)
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	for _, text := range []string{"A", "B", "C", "D"} {
		if _, err := p.Parse(site.NamespaceMain, text); err != nil {
			t.Fatalf("Parse(%q): %v", text, err)
		}
	}

	if err := p.ResizeCache(2); err != nil {
		t.Fatalf("ResizeCache: %v", err)
	}
	if stats := p.Stats(); stats["cacheEntries"] != 2 || stats["cacheCapacity"] != 2 {
		t.Errorf("stats after shrink = %v", stats)
	}
	p.Parse(site.NamespaceMain, "D")
	if hits := p.Stats()["cacheHits"]; hits != 1 {
		t.Errorf("newest result should survive the shrink, hits = %d", hits)
	}

	if err := p.ResizeCache(0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ResizeCache(0) = %v", err)
	}
	uncached, _ := NewParser(s, 0)
	if err := uncached.ResizeCache(8); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ResizeCache without cache = %v", err)
	}
}

func TestBareInterwiki(t *testing.T) {
	s := newTestSite(t, "1.39.4")

	testCases := []struct {
		input string
		bare  bool
	}{
		{"wikipedia:", true},
		{":wikipedia:#Top", true},
		{"wikipedia:Foo", false},
		{"en:", false},
		{"Foo", false},
	}
	for _, tc := range testCases {
		lt := MustParse(s, site.NamespaceMain, tc.input)
		if lt.IsBareInterwiki() != tc.bare {
			t.Errorf("%q: IsBareInterwiki = %v, want %v", tc.input, lt.IsBareInterwiki(), tc.bare)
		}
		if tc.bare && Validate(lt, ValidityOptions{}) != ProblemNone {
			t.Errorf("%q: a bare interwiki link should be valid", tc.input)
		}
	}
}
