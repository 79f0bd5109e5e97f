package site

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// InterwikiEntry is one row of a site's interwiki map.
type InterwikiEntry struct {
	Prefix string `toml:"prefix"`
	URL    string `toml:"url,omitempty"`
	// LocalWiki marks a prefix that points back at this same wiki.
	LocalWiki bool   `toml:"local_wiki"`
	Language  string `toml:"language,omitempty"`
}

func (e *InterwikiEntry) String() string {
	return e.Prefix
}

// InterwikiMap resolves interwiki prefixes case-insensitively.
type InterwikiMap struct {
	prefixes *patricia.Trie
	count    int
}

func newInterwikiMap(entries []InterwikiEntry) (*InterwikiMap, error) {
	m := &InterwikiMap{prefixes: patricia.NewTrie()}
	for i := range entries {
		entry := entries[i]
		key := NormalizeName(entry.Prefix)
		if key == "" {
			return nil, fmt.Errorf("interwiki entry %d has an empty prefix", i)
		}
		if !m.prefixes.Insert(patricia.Prefix(key), &entry) {
			return nil, fmt.Errorf("duplicate interwiki prefix %q", entry.Prefix)
		}
		m.count++
	}
	log.Debugf("Indexed %d interwiki prefixes", m.count)
	return m, nil
}

// Lookup resolves an interwiki prefix.
func (m *InterwikiMap) Lookup(prefix string) (*InterwikiEntry, bool) {
	key := NormalizeName(prefix)
	if key == "" {
		return nil, false
	}
	item := m.prefixes.Get(patricia.Prefix(key))
	if item == nil {
		return nil, false
	}
	return item.(*InterwikiEntry), true
}

// Len returns the number of prefixes.
func (m *InterwikiMap) Len() int {
	return m.count
}

// Entries returns all entries sorted by prefix.
func (m *InterwikiMap) Entries() []*InterwikiEntry {
	entries := make([]*InterwikiEntry, 0, m.count)
	err := m.prefixes.Visit(func(_ patricia.Prefix, item patricia.Item) error {
		entries = append(entries, item.(*InterwikiEntry))
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting interwiki map: %v", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return NormalizeName(entries[i].Prefix) < NormalizeName(entries[j].Prefix)
	})
	return entries
}

// PrefixesStartingWith returns the normalized prefixes beginning with s.
func (m *InterwikiMap) PrefixesStartingWith(s string) []string {
	var prefixes []string
	err := m.prefixes.VisitSubtree(patricia.Prefix(NormalizeName(s)), func(p patricia.Prefix, _ patricia.Item) error {
		prefixes = append(prefixes, string(p))
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting interwiki prefixes: %v", err)
	}
	sort.Strings(prefixes)
	return prefixes
}
