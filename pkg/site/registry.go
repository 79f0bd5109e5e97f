package site

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// NamespaceCollection is the namespace table of one site. Names, canonical
// names and aliases are indexed in a patricia trie under their normalized
// form so lookups are case-insensitive and treat '_' like a space.
type NamespaceCollection struct {
	byID  map[int]*Namespace
	ids   []int
	names *patricia.Trie
}

func newNamespaceCollection(s *Site, namespaces []Namespace) (*NamespaceCollection, error) {
	nc := &NamespaceCollection{
		byID:  make(map[int]*Namespace, len(namespaces)),
		names: patricia.NewTrie(),
	}

	for i := range namespaces {
		ns := namespaces[i]
		if _, exists := nc.byID[ns.ID]; exists {
			return nil, fmt.Errorf("duplicate namespace id %d", ns.ID)
		}
		if ns.Name == "" {
			ns.Name = ns.CanonicalName
		}
		ns.Aliases = append([]string(nil), ns.Aliases...)
		ns.site = s

		stored := &ns
		nc.byID[ns.ID] = stored
		nc.ids = append(nc.ids, ns.ID)

		for _, name := range stored.AllNames() {
			key := patricia.Prefix(NormalizeName(name))
			if existing := nc.names.Get(key); existing != nil {
				if other := existing.(*Namespace); other != stored {
					return nil, fmt.Errorf("namespace name %q is used by both %d and %d", name, other.ID, ns.ID)
				}
				continue
			}
			nc.names.Insert(key, stored)
		}
	}

	if _, ok := nc.byID[NamespaceMain]; !ok {
		return nil, fmt.Errorf("namespace table has no main namespace")
	}

	sort.Ints(nc.ids)
	log.Debugf("Indexed %d namespaces", len(nc.ids))
	return nc, nil
}

// ByID returns the namespace with the given ID, or nil.
func (nc *NamespaceCollection) ByID(id int) *Namespace {
	return nc.byID[id]
}

// Lookup resolves a namespace by its localized name, canonical name or alias.
func (nc *NamespaceCollection) Lookup(name string) (*Namespace, bool) {
	key := NormalizeName(name)
	if key == "" {
		return nil, false
	}
	item := nc.names.Get(patricia.Prefix(key))
	if item == nil {
		return nil, false
	}
	return item.(*Namespace), true
}

// Main returns the main (article) namespace.
func (nc *NamespaceCollection) Main() *Namespace {
	return nc.byID[NamespaceMain]
}

// All returns the namespaces ordered by ID.
func (nc *NamespaceCollection) All() []*Namespace {
	all := make([]*Namespace, len(nc.ids))
	for i, id := range nc.ids {
		all[i] = nc.byID[id]
	}
	return all
}

// Len returns the number of namespaces.
func (nc *NamespaceCollection) Len() int {
	return len(nc.ids)
}

// NamesWithPrefix returns every indexed (normalized) name starting with prefix.
func (nc *NamespaceCollection) NamesWithPrefix(prefix string) []string {
	var names []string
	err := nc.names.VisitSubtree(patricia.Prefix(NormalizeName(prefix)), func(p patricia.Prefix, _ patricia.Item) error {
		names = append(names, string(p))
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting namespace names: %v", err)
	}
	sort.Strings(names)
	return names
}

// Names returns every indexed (normalized) name.
func (nc *NamespaceCollection) Names() []string {
	return nc.NamesWithPrefix("")
}
