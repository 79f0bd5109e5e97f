package title

import (
	"cmp"
	"encoding/binary"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bastiangx/wikibot/pkg/site"
	"github.com/cespare/xxhash/v2"
)

// SimpleEquality treats two titles as equal when they name the same page:
// same namespace and the same page name under the namespace's case rule.
// Interwiki prefixes and fragments are ignored. Page names on foreign wikis
// are compared as written.
type SimpleEquality struct{}

func (SimpleEquality) Equal(a, b SimpleTitle) bool {
	if an, bn := IsNil(a), IsNil(b); an || bn {
		return an && bn
	}
	return KeyOf(a) == KeyOf(b)
}

func (SimpleEquality) Hash(t SimpleTitle) uint64 {
	if IsNil(t) {
		return 0
	}
	d := xxhash.New()
	writeKey(d, KeyOf(t))
	return d.Sum64()
}

// FullEquality adds the interwiki prefix, compared case-insensitively, and
// the fragment, compared byte for byte.
type FullEquality struct{}

func (FullEquality) Equal(a, b FullLink) bool {
	if an, bn := IsNil(a), IsNil(b); an || bn {
		return an && bn
	}
	return KeyOf(a) == KeyOf(b) &&
		interwikiKey(a.Interwiki()) == interwikiKey(b.Interwiki()) &&
		a.Fragment() == b.Fragment()
}

func (FullEquality) Hash(t FullLink) uint64 {
	if IsNil(t) {
		return 0
	}
	d := xxhash.New()
	writeKey(d, KeyOf(t))
	d.WriteString(interwikiKey(t.Interwiki()))
	d.Write([]byte{0})
	d.WriteString(t.Fragment())
	return d.Sum64()
}

func writeKey(d *xxhash.Digest, k Key) {
	var buf [9]byte
	if k.ns != nil {
		buf[0] = 1
		binary.LittleEndian.PutUint64(buf[1:], uint64(int64(k.ns.ID)))
	}
	d.Write(buf[:])
	d.WriteString(k.name)
	d.Write([]byte{0})
}

func interwikiKey(iw *site.InterwikiEntry) string {
	if iw == nil {
		return ""
	}
	// Prefixes cannot be empty, so "" stands for "no interwiki".
	return site.NormalizeName(iw.Prefix)
}

// Ordering sorts by namespace ID, then by page name. Names in
// case-insensitive namespaces are compared case-folded after
// capitalization, with a byte-wise tie-break so that only equal titles
// compare as 0.
type Ordering struct{}

func (Ordering) Compare(a, b SimpleTitle) int {
	return compareTitles(a, b, compareFolded)
}

// NaturalOrdering is Ordering with digit runs compared by value, so
// "Page 2" sorts before "Page 10".
type NaturalOrdering struct{}

func (NaturalOrdering) Compare(a, b SimpleTitle) int {
	return compareTitles(a, b, compareNatural)
}

func compareTitles(a, b SimpleTitle, names func(x, y string, fold bool) int) int {
	an, bn := IsNil(a), IsNil(b)
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	}

	ka, kb := KeyOf(a), KeyOf(b)
	if c := cmp.Compare(namespaceOrder(ka.ns), namespaceOrder(kb.ns)); c != 0 {
		return c
	}
	fold := ka.ns == nil || !ka.ns.CaseSensitive
	if c := names(ka.name, kb.name, fold); c != 0 {
		return c
	}
	return strings.Compare(ka.name, kb.name)
}

func namespaceOrder(ns *site.Namespace) int {
	if ns == nil {
		// Below Media (-2) so that a namespace-less title sorts first.
		return -1 << 31
	}
	return ns.ID
}

func foldRune(r rune, fold bool) rune {
	if fold {
		return unicode.ToLower(r)
	}
	return r
}

// compareFolded compares two strings rune by rune, lower-casing when fold
// is set.
func compareFolded(a, b string, fold bool) int {
	for a != "" && b != "" {
		ra, na := utf8.DecodeRuneInString(a)
		rb, nb := utf8.DecodeRuneInString(b)
		if c := cmp.Compare(foldRune(ra, fold), foldRune(rb, fold)); c != 0 {
			return c
		}
		a, b = a[na:], b[nb:]
	}
	return cmp.Compare(len(a), len(b))
}

func isDigit(b byte) bool {
	return '0' <= b && b <= '9'
}

// nextChunk splits off the leading run of ASCII digits or non-digits.
func nextChunk(s string) (chunk, rest string) {
	digits := isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == digits {
		i++
	}
	return s[:i], s[i:]
}

// compareNatural compares digit runs by numeric value and everything else
// with compareFolded. Runs of any length are supported.
func compareNatural(a, b string, fold bool) int {
	for a != "" && b != "" {
		ca, restA := nextChunk(a)
		cb, restB := nextChunk(b)
		var c int
		if isDigit(ca[0]) && isDigit(cb[0]) {
			c = compareNumeric(ca, cb)
		} else {
			c = compareFolded(ca, cb, fold)
		}
		if c != 0 {
			return c
		}
		a, b = restA, restB
	}
	return cmp.Compare(len(a), len(b))
}

func compareNumeric(a, b string) int {
	ta := strings.TrimLeft(a, "0")
	tb := strings.TrimLeft(b, "0")
	if c := cmp.Compare(len(ta), len(tb)); c != 0 {
		return c
	}
	if c := strings.Compare(ta, tb); c != 0 {
		return c
	}
	// Equal values: fewer leading zeros first.
	return cmp.Compare(len(a), len(b))
}

// Compare orders a and b with Ordering. It fits slices.SortFunc.
func Compare[T SimpleTitle](a, b T) int {
	return Ordering{}.Compare(a, b)
}

// CompareNatural orders a and b with NaturalOrdering.
func CompareNatural[T SimpleTitle](a, b T) int {
	return NaturalOrdering{}.Compare(a, b)
}

// Equal reports SimpleEquality.
func Equal[T SimpleTitle](a, b T) bool {
	return SimpleEquality{}.Equal(a, b)
}

// EqualFull reports FullEquality.
func EqualFull[T FullLink](a, b T) bool {
	return FullEquality{}.Equal(a, b)
}
