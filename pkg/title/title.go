/*
Package title parses and compares MediaWiki page titles.

A link target such as ":en:Talk:Foo#History" carries up to five parts: a
forcing colon, an interwiki prefix, a namespace, a page name and a fragment.
Parse splits raw text into those parts following the wiki engine's own rules
and never fails on odd input; use IsValid or Validate to decide whether the
result could name a real page.

Three value types build on each other:

	Title      namespace + page name, the identity of a page
	FullTitle  Title + interwiki prefix + fragment, a complete link target
	LinkTitle  FullTitle + what the parser saw (forced links, coercion, raw parts)

APIs that only need "something with a page name" take SimpleTitle or
FullLink, which all three types implement.
*/
package title

import (
	"errors"
	"strings"

	"github.com/bastiangx/wikibot/pkg/site"
)

var (
	// ErrInvalidInput reports a broken call contract: nil site, unknown
	// namespace ID, a title from another site.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUndecodable reports text that is not valid UTF-8.
	ErrUndecodable = errors.New("undecodable title text")
)

// SimpleTitle is anything with a namespace and a page name.
type SimpleTitle interface {
	Namespace() *site.Namespace
	PageName() string
}

// FullLink is a SimpleTitle that may also point at another wiki or a
// section of the page.
type FullLink interface {
	SimpleTitle
	Interwiki() *site.InterwikiEntry
	Fragment() string
}

// Title is an immutable namespace and page name pair.
type Title struct {
	ns       *site.Namespace
	pageName string
}

// New creates a Title, applying the namespace's capitalization rule.
func New(ns *site.Namespace, pageName string) Title {
	if ns == nil {
		panic(errors.Join(ErrInvalidInput, errors.New("title.New: nil namespace")))
	}
	return Title{ns: ns, pageName: ns.CapitalizePageName(pageName)}
}

// FromSimple copies any SimpleTitle into a Title.
func FromSimple(t SimpleTitle) Title {
	if t, ok := t.(Title); ok {
		return t
	}
	return New(t.Namespace(), t.PageName())
}

// Namespace returns the title's namespace.
func (t Title) Namespace() *site.Namespace {
	return t.ns
}

// PageName returns the page name without its namespace.
func (t Title) PageName() string {
	return t.pageName
}

// Site returns the site the title belongs to.
func (t Title) Site() *site.Site {
	if t.ns == nil {
		return nil
	}
	return t.ns.Site()
}

// IsZero reports whether t is the zero Title.
func (t Title) IsZero() bool {
	return t.ns == nil && t.pageName == ""
}

// FullPageName is the namespace-decorated name, e.g. "Talk:Foo".
func (t Title) FullPageName() string {
	if t.ns == nil {
		return t.pageName
	}
	return t.ns.DecoratedName() + t.pageName
}

// LinkName is FullPageName with a leading colon for File and Category pages,
// the form needed to link to them rather than embed or categorize.
func (t Title) LinkName() string {
	if t.ns != nil && t.ns.IsForcedLinkSpace() {
		return ":" + t.FullPageName()
	}
	return t.FullPageName()
}

func (t Title) String() string {
	return t.FullPageName()
}

// Key returns the identity key of the title.
func (t Title) Key() Key {
	return KeyOf(t)
}

// TalkPage returns the matching talk page. It fails for namespaces without
// a talk space.
func (t Title) TalkPage() (Title, bool) {
	if t.ns == nil {
		return Title{}, false
	}
	talk := t.ns.TalkSpace()
	if talk == nil {
		return Title{}, false
	}
	return New(talk, t.pageName), true
}

// SubjectPage returns the matching subject page.
func (t Title) SubjectPage() Title {
	if t.ns == nil {
		return t
	}
	subject := t.ns.SubjectSpace()
	if subject == nil {
		return t
	}
	return New(subject, t.pageName)
}

// RootPageName is the page name up to the first '/' in namespaces with
// subpages, the whole page name elsewhere.
func (t Title) RootPageName() string {
	if !t.hasSubpages() {
		return t.pageName
	}
	root, _, _ := strings.Cut(t.pageName, "/")
	return root
}

// BasePageName is the page name up to the last '/' in namespaces with
// subpages.
func (t Title) BasePageName() string {
	if !t.hasSubpages() {
		return t.pageName
	}
	if i := strings.LastIndexByte(t.pageName, '/'); i > 0 {
		return t.pageName[:i]
	}
	return t.pageName
}

// SubpageName is the part after the last '/' in namespaces with subpages.
func (t Title) SubpageName() string {
	if !t.hasSubpages() {
		return t.pageName
	}
	if i := strings.LastIndexByte(t.pageName, '/'); i >= 0 {
		return t.pageName[i+1:]
	}
	return t.pageName
}

func (t Title) hasSubpages() bool {
	return t.ns != nil && t.ns.AllowsSubpages
}

// FullTitle is a Title with an optional interwiki prefix and fragment.
type FullTitle struct {
	Title
	interwiki   *site.InterwikiEntry
	fragment    string
	hasFragment bool
}

// NewFull wraps t with an interwiki prefix (may be nil) and a fragment. An
// empty fragment counts as absent; use WithFragment to keep an empty one.
func NewFull(t Title, interwiki *site.InterwikiEntry, fragment string) FullTitle {
	return FullTitle{Title: t, interwiki: interwiki, fragment: fragment, hasFragment: fragment != ""}
}

// WithFragment returns a copy of ft whose fragment is present, even if empty.
func (ft FullTitle) WithFragment(fragment string) FullTitle {
	ft.fragment = fragment
	ft.hasFragment = true
	return ft
}

// Interwiki returns the interwiki entry, or nil for plain local titles.
func (ft FullTitle) Interwiki() *site.InterwikiEntry {
	return ft.interwiki
}

// Fragment returns the section part of the link.
func (ft FullTitle) Fragment() string {
	return ft.fragment
}

// HasFragment reports whether a '#' was present.
func (ft FullTitle) HasFragment() bool {
	return ft.hasFragment
}

// IsLocal reports whether the title lives on this wiki, either with no
// interwiki prefix or with one that points back here.
func (ft FullTitle) IsLocal() bool {
	return ft.interwiki == nil || ft.interwiki.LocalWiki
}

// IsBareInterwiki reports whether ft is just an interwiki prefix.
func (ft FullTitle) IsBareInterwiki() bool {
	return isBareInterwiki(ft)
}

func isBareInterwiki(t FullLink) bool {
	return t.Interwiki() != nil && t.PageName() == ""
}

func (ft FullTitle) String() string {
	var sb strings.Builder
	if ft.interwiki != nil {
		sb.WriteString(ft.interwiki.Prefix)
		sb.WriteByte(':')
	}
	sb.WriteString(ft.FullPageName())
	if ft.hasFragment {
		sb.WriteByte('#')
		sb.WriteString(ft.fragment)
	}
	return sb.String()
}

// Original holds the raw pieces of text the parser consumed.
type Original struct {
	Raw       string
	Interwiki string
	Namespace string
	PageName  string
	Fragment  string
	// HasFragment is set when the input contained '#'.
	HasFragment bool
}

// LinkTitle is the result of parsing link text.
type LinkTitle struct {
	FullTitle
	// Coerced is set when no namespace was written and a non-main default
	// namespace was applied.
	Coerced bool
	// ForcedInterwikiLink is set when a leading colon preceded an interwiki
	// prefix.
	ForcedInterwikiLink bool
	// ForcedNamespaceLink is set when the text began with a colon, or when a
	// local interwiki prefix was followed by one.
	ForcedNamespaceLink bool
	Original            Original

	leadingColon bool
	innerColon   bool
}

// OriginalText rebuilds the cleaned-up input from the parts the parser
// consumed, keeping aliases and the case they were typed in.
func (lt LinkTitle) OriginalText() string {
	var sb strings.Builder
	if lt.leadingColon {
		sb.WriteByte(':')
	}
	if lt.Original.Interwiki != "" {
		sb.WriteString(lt.Original.Interwiki)
		sb.WriteByte(':')
	}
	if lt.innerColon {
		sb.WriteByte(':')
	}
	if lt.Original.Namespace != "" {
		sb.WriteString(lt.Original.Namespace)
		sb.WriteByte(':')
	}
	sb.WriteString(lt.Original.PageName)
	if lt.Original.HasFragment {
		sb.WriteByte('#')
		sb.WriteString(lt.Original.Fragment)
	}
	return sb.String()
}

// LinkText renders the title as link text, restoring the forcing colon when
// the input had one.
func (lt LinkTitle) LinkText() string {
	if lt.leadingColon {
		return ":" + lt.FullTitle.String()
	}
	return lt.FullTitle.String()
}

// Key is the comparable identity of a title: its namespace and its page name
// after the namespace's capitalization rule.
type Key struct {
	ns   *site.Namespace
	name string
}

// KeyOf returns the identity key of t. Page names on foreign wikis are kept
// as written, since their case rules are unknown here.
func KeyOf(t SimpleTitle) Key {
	ns := t.Namespace()
	if ns == nil || IsForeign(t) {
		return Key{ns: ns, name: t.PageName()}
	}
	return Key{ns: ns, name: ns.CapitalizePageName(t.PageName())}
}

// IsForeign reports whether t is a FullLink pointing at another wiki.
func IsForeign(t SimpleTitle) bool {
	fl, ok := t.(FullLink)
	if !ok || IsNil(t) {
		return false
	}
	iw := fl.Interwiki()
	return iw != nil && !iw.LocalWiki
}

// Namespace returns the key's namespace.
func (k Key) Namespace() *site.Namespace {
	return k.ns
}

// PageName returns the key's normalized page name.
func (k Key) PageName() string {
	return k.name
}

// IsNil reports whether t is absent: a nil interface or a nil pointer to
// one of this package's types.
func IsNil(t SimpleTitle) bool {
	switch v := t.(type) {
	case nil:
		return true
	case *Title:
		return v == nil
	case *FullTitle:
		return v == nil
	case *LinkTitle:
		return v == nil
	}
	return false
}
