/*
Package site models the metadata a bot needs about one wiki: its namespace
table, its interwiki map and its main page.

Loading this data from a live wiki is the API client's job; here it comes
from a Definition, usually decoded from a TOML file (see LoadFile). A Site
is read-only once built and can be shared freely.

	s, err := site.New(site.DefaultDefinition("Example Wiki"))
	talk, _ := s.Namespaces.Lookup("talk")
*/
package site

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Definition is the raw, serializable description of a site.
type Definition struct {
	Name       string           `toml:"name"`
	Version    string           `toml:"version,omitempty"`
	MainPage   string           `toml:"main_page,omitempty"`
	Namespaces []Namespace      `toml:"namespace"`
	Interwiki  []InterwikiEntry `toml:"interwiki"`
}

// Site is the resolved form of a Definition.
type Site struct {
	Name string
	// Version is the MediaWiki version string, e.g. "1.39.4" or "1.42.0-wmf.5".
	Version string
	// MainPageName is the raw text of the main page title. Parsers resolve it
	// on demand.
	MainPageName string
	Namespaces   *NamespaceCollection
	Interwiki    *InterwikiMap
}

// New builds a Site. A definition without namespaces gets the standard
// MediaWiki set.
func New(def Definition) (*Site, error) {
	s := &Site{
		Name:         def.Name,
		Version:      def.Version,
		MainPageName: def.MainPage,
	}

	namespaces := def.Namespaces
	if len(namespaces) == 0 {
		namespaces = DefaultNamespaces()
	}

	nc, err := newNamespaceCollection(s, namespaces)
	if err != nil {
		return nil, fmt.Errorf("site %q: %w", def.Name, err)
	}
	s.Namespaces = nc

	iw, err := newInterwikiMap(def.Interwiki)
	if err != nil {
		return nil, fmt.Errorf("site %q: %w", def.Name, err)
	}
	s.Interwiki = iw

	return s, nil
}

// Namespace is shorthand for s.Namespaces.ByID.
func (s *Site) Namespace(id int) *Namespace {
	return s.Namespaces.ByID(id)
}

// VersionAtLeast reports whether the site runs at least the given MediaWiki
// version. Unknown or unparsable versions never qualify.
func (s *Site) VersionAtLeast(version string) bool {
	have := canonicalVersion(s.Version)
	want := canonicalVersion(version)
	if have == "" || want == "" {
		return false
	}
	return semver.Compare(have, want) >= 0
}

func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "MediaWiki ")
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

func (s *Site) String() string {
	return s.Name
}

// DefaultNamespaces returns the namespaces every MediaWiki install ships with.
func DefaultNamespaces() []Namespace {
	return []Namespace{
		{ID: NamespaceMedia, CanonicalName: "Media", Name: "Media"},
		{ID: NamespaceSpecial, CanonicalName: "Special", Name: "Special"},
		{ID: NamespaceMain, ContentSpace: true},
		{ID: NamespaceTalk, CanonicalName: "Talk", Name: "Talk", AllowsSubpages: true},
		{ID: NamespaceUser, CanonicalName: "User", Name: "User", AllowsSubpages: true},
		{ID: NamespaceUserTalk, CanonicalName: "User talk", Name: "User talk", AllowsSubpages: true},
		{ID: NamespaceProject, CanonicalName: "Project", Name: "Project", AllowsSubpages: true},
		{ID: NamespaceProjectTalk, CanonicalName: "Project talk", Name: "Project talk", AllowsSubpages: true},
		{ID: NamespaceFile, CanonicalName: "File", Name: "File", Aliases: []string{"Image"}},
		{ID: NamespaceFileTalk, CanonicalName: "File talk", Name: "File talk", Aliases: []string{"Image talk"}, AllowsSubpages: true},
		{ID: NamespaceMediaWiki, CanonicalName: "MediaWiki", Name: "MediaWiki", AllowsSubpages: true},
		{ID: NamespaceMediaWikiTalk, CanonicalName: "MediaWiki talk", Name: "MediaWiki talk", AllowsSubpages: true},
		{ID: NamespaceTemplate, CanonicalName: "Template", Name: "Template", AllowsSubpages: true},
		{ID: NamespaceTemplateTalk, CanonicalName: "Template talk", Name: "Template talk", AllowsSubpages: true},
		{ID: NamespaceHelp, CanonicalName: "Help", Name: "Help", AllowsSubpages: true},
		{ID: NamespaceHelpTalk, CanonicalName: "Help talk", Name: "Help talk", AllowsSubpages: true},
		{ID: NamespaceCategory, CanonicalName: "Category", Name: "Category"},
		{ID: NamespaceCategoryTalk, CanonicalName: "Category talk", Name: "Category talk", AllowsSubpages: true},
	}
}

// DefaultDefinition is a definition with the standard namespaces, a "Main
// Page" main page and no interwiki prefixes.
func DefaultDefinition(name string) Definition {
	return Definition{
		Name:       name,
		MainPage:   "Main Page",
		Namespaces: DefaultNamespaces(),
	}
}
