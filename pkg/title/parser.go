package title

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/bastiangx/wikibot/pkg/cache"
	"github.com/bastiangx/wikibot/pkg/site"
	"github.com/charmbracelet/log"
)

// Parse splits link text into its parts. defaultNS is the namespace ID used
// when the text names none, e.g. NamespaceTemplate for transclusions.
//
// Parse only fails for a nil site, an unknown default namespace, or text
// that is not UTF-8. Everything else yields a best-effort result.
func Parse(s *site.Site, defaultNS int, text string) (*LinkTitle, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil site", ErrInvalidInput)
	}
	def := s.Namespace(defaultNS)
	if def == nil {
		return nil, fmt.Errorf("%w: site %q has no namespace %d", ErrInvalidInput, s.Name, defaultNS)
	}
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: %q", ErrUndecodable, text)
	}
	lt := parse(s, def, text, true)
	return &lt, nil
}

// MustParse is Parse for trusted input such as constants and tests.
func MustParse(s *site.Site, defaultNS int, text string) *LinkTitle {
	lt, err := Parse(s, defaultNS, text)
	if err != nil {
		panic(err)
	}
	return lt
}

// FromFullName parses a full page name like "Talk:Foo" in Main space and
// returns just its Title.
func FromFullName(s *site.Site, fullName string) (Title, error) {
	lt, err := Parse(s, site.NamespaceMain, fullName)
	if err != nil {
		return Title{}, err
	}
	return lt.Title, nil
}

// MainPage resolves the site's main page. Sites without one get an empty
// Main-space title.
func MainPage(s *site.Site) FullTitle {
	if s.MainPageName == "" {
		return FullTitle{Title: Title{ns: s.Namespaces.Main()}}
	}
	return parse(s, s.Namespaces.Main(), s.MainPageName, false).FullTitle
}

// splitPrefix splits text on its first colon, unless a '#' comes first.
func splitPrefix(text string) (prefix, rest string, ok bool) {
	colon := strings.IndexByte(text, ':')
	if colon < 0 {
		return "", "", false
	}
	if hash := strings.IndexByte(text, '#'); hash >= 0 && hash < colon {
		return "", "", false
	}
	return strings.TrimSpace(text[:colon]), strings.TrimSpace(text[colon+1:]), true
}

// parse does the work for Parse. resolveMainPage is false while resolving
// the main page itself so a main page written as "en:" cannot recurse.
func parse(s *site.Site, def *site.Namespace, raw string, resolveMainPage bool) LinkTitle {
	lt := LinkTitle{Original: Original{Raw: raw}}
	text := cleanup(raw)

	if strings.HasPrefix(text, ":") {
		lt.leadingColon = true
		lt.ForcedNamespaceLink = true
		text = strings.TrimSpace(text[1:])
	}

	var ns *site.Namespace
	explicit := false
	if prefix, rest, ok := splitPrefix(text); ok {
		if found, ok := s.Namespaces.Lookup(prefix); ok {
			ns, explicit = found, true
			lt.Original.Namespace = prefix
			text = rest
		} else if iw, ok := s.Interwiki.Lookup(prefix); ok {
			lt.interwiki = iw
			lt.Original.Interwiki = prefix
			lt.ForcedInterwikiLink = lt.leadingColon
			text = rest

			switch {
			case !iw.LocalWiki:
				ns = s.Namespaces.Main()
			case text == "" && resolveMainPage:
				main := MainPage(s)
				lt.Title = main.Title
				lt.fragment = main.fragment
				lt.hasFragment = main.hasFragment
				return lt
			case strings.HasPrefix(text, ":"):
				lt.innerColon = true
				lt.ForcedNamespaceLink = true
				ns, explicit = s.Namespaces.Main(), true
				text = strings.TrimSpace(text[1:])
			default:
				if prefix, rest, ok := splitPrefix(text); ok {
					if found, ok := s.Namespaces.Lookup(prefix); ok {
						ns, explicit = found, true
						lt.Original.Namespace = prefix
						text = rest
					}
				}
			}
		}
	}

	page, fragment, hasFragment := strings.Cut(text, "#")
	page = strings.TrimSpace(page)
	lt.Original.PageName = page
	if hasFragment {
		lt.Original.Fragment = fragment
		lt.Original.HasFragment = true
		lt.fragment = cleanFragment(fragment)
		lt.hasFragment = true
	}

	if ns == nil {
		if lt.leadingColon {
			ns = s.Namespaces.Main()
		} else {
			ns = def
			lt.Coerced = lt.IsLocal() && def.ID != site.NamespaceMain && !explicit
		}
	}

	if lt.IsLocal() {
		page = ns.CapitalizePageName(page)
	}
	lt.Title = Title{ns: ns, pageName: page}
	return lt
}

type parseKey struct {
	ns   int
	text string
}

// Parser parses titles for one site and remembers recent results. A Parser
// is safe for concurrent use.
type Parser struct {
	site  *site.Site
	mu    sync.Mutex
	cache *cache.FIFO[parseKey, LinkTitle]
}

// NewParser creates a parser for s. cacheSize bounds the number of
// remembered results; zero disables the cache.
func NewParser(s *site.Site, cacheSize int) (*Parser, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil site", ErrInvalidInput)
	}
	if cacheSize < 0 {
		return nil, fmt.Errorf("%w: negative cache size %d", ErrInvalidInput, cacheSize)
	}
	p := &Parser{site: s}
	if cacheSize > 0 {
		p.cache = cache.NewFIFO[parseKey, LinkTitle](cacheSize)
	}
	log.Debugf("Title parser for %q ready (cache size %d)", s.Name, cacheSize)
	return p, nil
}

// Site returns the parser's site.
func (p *Parser) Site() *site.Site {
	return p.site
}

// Parse is the cached form of the package-level Parse.
func (p *Parser) Parse(defaultNS int, text string) (*LinkTitle, error) {
	if p.cache == nil {
		return Parse(p.site, defaultNS, text)
	}

	key := parseKey{ns: defaultNS, text: text}
	p.mu.Lock()
	cached, ok := p.cache.Get(key)
	p.mu.Unlock()
	if ok {
		return &cached, nil
	}

	lt, err := Parse(p.site, defaultNS, text)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.cache.Add(key, *lt)
	p.mu.Unlock()
	return lt, nil
}

// Stats reports the cache counters, or nil without a cache.
func (p *Parser) Stats() map[string]int {
	if p.cache == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache.Stats()
}

// ResizeCache changes the cache capacity, keeping the newest results.
func (p *Parser) ResizeCache(size int) error {
	if p.cache == nil {
		return fmt.Errorf("%w: parser has no cache", ErrInvalidInput)
	}
	if size < 1 {
		return fmt.Errorf("%w: cache size %d", ErrInvalidInput, size)
	}
	p.mu.Lock()
	p.cache.Resize(size)
	p.mu.Unlock()
	log.Debugf("Title parser cache resized to %d", size)
	return nil
}
