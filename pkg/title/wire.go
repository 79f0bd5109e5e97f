package title

import (
	"fmt"

	"github.com/bastiangx/wikibot/pkg/site"
	"github.com/vmihailenco/msgpack/v5"
)

// Wire is the msgpack form of a title. Namespaces travel by ID and interwiki
// entries by prefix, so FromWire needs the site to resolve them.
type Wire struct {
	Interwiki   string `msgpack:"iw,omitempty"`
	Namespace   int    `msgpack:"ns"`
	PageName    string `msgpack:"p"`
	Fragment    string `msgpack:"f,omitempty"`
	HasFragment bool   `msgpack:"hf,omitempty"`
}

// ToWire converts any title to its wire form. Interwiki and fragment are
// taken along when t is a FullLink.
func ToWire(t SimpleTitle) Wire {
	w := Wire{PageName: t.PageName()}
	if ns := t.Namespace(); ns != nil {
		w.Namespace = ns.ID
	}
	if fl, ok := t.(FullLink); ok {
		w.Fragment = fl.Fragment()
		if iw := fl.Interwiki(); iw != nil {
			w.Interwiki = iw.Prefix
		}
	}
	if f, ok := t.(interface{ HasFragment() bool }); ok {
		w.HasFragment = f.HasFragment()
	} else {
		w.HasFragment = w.Fragment != ""
	}
	return w
}

// FromWire resolves w against s. Unknown namespace IDs and interwiki
// prefixes are reported as ErrInvalidInput.
func FromWire(s *site.Site, w Wire) (FullTitle, error) {
	if s == nil {
		return FullTitle{}, fmt.Errorf("%w: nil site", ErrInvalidInput)
	}
	ns := s.Namespace(w.Namespace)
	if ns == nil {
		return FullTitle{}, fmt.Errorf("%w: site %q has no namespace %d", ErrInvalidInput, s.Name, w.Namespace)
	}

	ft := FullTitle{fragment: w.Fragment, hasFragment: w.HasFragment || w.Fragment != ""}
	if w.Interwiki != "" {
		iw, ok := s.Interwiki.Lookup(w.Interwiki)
		if !ok {
			return FullTitle{}, fmt.Errorf("%w: unknown interwiki prefix %q", ErrInvalidInput, w.Interwiki)
		}
		ft.interwiki = iw
	}
	if ft.IsLocal() {
		ft.Title = New(ns, w.PageName)
	} else {
		ft.Title = Title{ns: ns, pageName: w.PageName}
	}
	return ft, nil
}

// MarshalTitles encodes titles as a msgpack array of Wire values.
func MarshalTitles[T SimpleTitle](titles []T) ([]byte, error) {
	wires := make([]Wire, len(titles))
	for i, t := range titles {
		wires[i] = ToWire(t)
	}
	data, err := msgpack.Marshal(wires)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %d titles: %w", len(titles), err)
	}
	return data, nil
}

// UnmarshalTitles decodes data written by MarshalTitles.
func UnmarshalTitles(s *site.Site, data []byte) ([]FullTitle, error) {
	var wires []Wire
	if err := msgpack.Unmarshal(data, &wires); err != nil {
		return nil, fmt.Errorf("failed to decode titles: %w", err)
	}
	titles := make([]FullTitle, 0, len(wires))
	for i, w := range wires {
		ft, err := FromWire(s, w)
		if err != nil {
			return nil, fmt.Errorf("title %d: %w", i, err)
		}
		titles = append(titles, ft)
	}
	return titles, nil
}
