package site

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Built-in MediaWiki namespace IDs.
const (
	NamespaceMedia         = -2
	NamespaceSpecial       = -1
	NamespaceMain          = 0
	NamespaceTalk          = 1
	NamespaceUser          = 2
	NamespaceUserTalk      = 3
	NamespaceProject       = 4
	NamespaceProjectTalk   = 5
	NamespaceFile          = 6
	NamespaceFileTalk      = 7
	NamespaceMediaWiki     = 8
	NamespaceMediaWikiTalk = 9
	NamespaceTemplate      = 10
	NamespaceTemplateTalk  = 11
	NamespaceHelp          = 12
	NamespaceHelpTalk      = 13
	NamespaceCategory      = 14
	NamespaceCategoryTalk  = 15
)

// Namespace describes one namespace of a site. Values are owned by the
// site's NamespaceCollection and compared by pointer: two titles share a
// namespace only if they point at the same *Namespace.
type Namespace struct {
	ID             int      `toml:"id"`
	CanonicalName  string   `toml:"canonical"`
	Name           string   `toml:"name"`
	Aliases        []string `toml:"aliases,omitempty"`
	CaseSensitive  bool     `toml:"case_sensitive"`
	AllowsSubpages bool     `toml:"subpages"`
	ContentSpace   bool     `toml:"content"`

	site *Site
}

// Site returns the site the namespace belongs to.
func (ns *Namespace) Site() *Site {
	return ns.site
}

// IsTalkSpace reports whether the namespace is a talk namespace.
func (ns *Namespace) IsTalkSpace() bool {
	return ns.ID >= 0 && ns.ID%2 == 1
}

// IsSubjectSpace reports whether the namespace is a subject namespace.
// Exactly one of IsTalkSpace and IsSubjectSpace holds.
func (ns *Namespace) IsSubjectSpace() bool {
	return !ns.IsTalkSpace()
}

// TalkSpace returns the talk namespace paired with ns, ns itself if it is
// already a talk space, or nil for the virtual namespaces.
func (ns *Namespace) TalkSpace() *Namespace {
	if ns.ID < 0 {
		return nil
	}
	if ns.IsTalkSpace() {
		return ns
	}
	if ns.site == nil {
		return nil
	}
	return ns.site.Namespaces.ByID(ns.ID + 1)
}

// SubjectSpace returns the subject namespace paired with ns.
func (ns *Namespace) SubjectSpace() *Namespace {
	if ns.IsSubjectSpace() {
		return ns
	}
	if ns.site == nil {
		return nil
	}
	return ns.site.Namespaces.ByID(ns.ID - 1)
}

// DecoratedName is the namespace prefix as it appears in a full page name,
// colon included. Main space has no prefix.
func (ns *Namespace) DecoratedName() string {
	if ns.ID == NamespaceMain {
		return ""
	}
	return ns.Name + ":"
}

// IsForcedLinkSpace reports whether a plain link to a page in this namespace
// needs a leading colon to be rendered as a link (File and Category).
func (ns *Namespace) IsForcedLinkSpace() bool {
	return ns.ID == NamespaceFile || ns.ID == NamespaceCategory
}

// AllNames returns the localized name, canonical name and aliases, without
// duplicates.
func (ns *Namespace) AllNames() []string {
	names := make([]string, 0, 2+len(ns.Aliases))
	seen := make(map[string]bool, cap(names))
	for _, name := range append([]string{ns.Name, ns.CanonicalName}, ns.Aliases...) {
		key := NormalizeName(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, name)
	}
	return names
}

// CapitalizePageName applies the namespace's first-letter rule.
func (ns *Namespace) CapitalizePageName(pageName string) string {
	if ns.CaseSensitive || pageName == "" {
		return pageName
	}
	r, size := utf8.DecodeRuneInString(pageName)
	upper := unicode.ToUpper(r)
	if upper == r {
		return pageName
	}
	return string(upper) + pageName[size:]
}

// PageNameEquals compares two page names under the namespace's case rule.
func (ns *Namespace) PageNameEquals(a, b string) bool {
	return ns.CapitalizePageName(a) == ns.CapitalizePageName(b)
}

func (ns *Namespace) String() string {
	return ns.Name
}

// NormalizeName folds a namespace name or interwiki prefix into its lookup
// form: lower case, underscores as spaces, single inner spaces, trimmed.
func NormalizeName(name string) string {
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
