package title

import (
	"strings"
	"testing"

	"github.com/bastiangx/wikibot/pkg/site"
)

func TestValidate(t *testing.T) {
	s := newTestSite(t, "1.39.4")

	testCases := []struct {
		input    string
		relative bool
		expected Problem
	}{
		{input: "Foo", expected: ProblemNone},
		{input: "Foo/Bar (baz)", expected: ProblemNone},
		{input: "", expected: ProblemEmpty},
		{input: "", relative: true, expected: ProblemNone},
		{input: "#Section", expected: ProblemEmpty},
		{input: "#Section", relative: true, expected: ProblemNone},
		{input: "wikipedia:", expected: ProblemNone},
		{input: "fr:", expected: ProblemNone},
		{input: strings.Repeat("a", 255), expected: ProblemNone},
		{input: strings.Repeat("a", 256), expected: ProblemTooLong},
		{input: strings.Repeat("é", 128), expected: ProblemTooLong},
		{input: "Special:" + strings.Repeat("a", 300), expected: ProblemNone},
		{input: "Special:" + strings.Repeat("a", 513), expected: ProblemTooLong},
		{input: ".", expected: ProblemRelativePath},
		{input: "..", expected: ProblemRelativePath},
		{input: "./Foo", expected: ProblemRelativePath},
		{input: "../Foo", expected: ProblemRelativePath},
		{input: "Foo/./Bar", expected: ProblemRelativePath},
		{input: "Foo/../Bar", expected: ProblemRelativePath},
		{input: "Foo/.", expected: ProblemRelativePath},
		{input: "Foo/..", expected: ProblemRelativePath},
		{input: "Mr./Mrs.", expected: ProblemNone},
		{input: "Foo~~~", expected: ProblemTildes},
		{input: "Foo~~", expected: ProblemNone},
		{input: "Foo<Bar", expected: ProblemIllegalCharacter},
		{input: "Foo[Bar]", expected: ProblemIllegalCharacter},
		{input: "Foo|Bar", expected: ProblemIllegalCharacter},
		{input: "Foo{Bar}", expected: ProblemIllegalCharacter},
		{input: "Foo%41", expected: ProblemIllegalCharacter},
		{input: "Foo%", expected: ProblemNone},
		{input: "Foo&amp;Bar", expected: ProblemIllegalCharacter},
		{input: "Foo&#38;", expected: ProblemIllegalCharacter},
		{input: "Foo & Bar", expected: ProblemNone},
		{input: "Foo\uFFFD", expected: ProblemIllegalCharacter},
		{input: "File:A/B.png", expected: ProblemIllegalCharacter},
		{input: "File:A:B.png", expected: ProblemIllegalCharacter},
		{input: "Media:A\\B.png", expected: ProblemIllegalCharacter},
		{input: "Talk:A/B:C", expected: ProblemNone},
		{input: "User:Foo@bar", expected: ProblemInvalidUserName},
		{input: "User talk:Foo:Bar", expected: ProblemInvalidUserName},
		{input: "User:Foo/a@b", expected: ProblemNone},
		{input: "wikipedia:Foo<Bar", expected: ProblemNone},
		{input: "en:Foo<Bar", expected: ProblemIllegalCharacter},
	}

	for _, tc := range testCases {
		lt := MustParse(s, site.NamespaceMain, tc.input)
		got := Validate(lt, ValidityOptions{AllowRelative: tc.relative})
		if got != tc.expected {
			t.Errorf("Validate(%q, relative=%v) = %v, want %v", tc.input, tc.relative, got, tc.expected)
		}
		if lt.IsValid(ValidityOptions{AllowRelative: tc.relative}) != (tc.expected == ProblemNone) {
			t.Errorf("IsValid(%q) disagrees with Validate", tc.input)
		}
	}
}

func TestValidateUserNamesOnOldSites(t *testing.T) {
	testCases := []struct {
		version  string
		expected Problem
	}{
		{"1.30.0", ProblemNone},
		{"", ProblemNone},
		{"1.31.0", ProblemInvalidUserName},
	}
	for _, tc := range testCases {
		s := newTestSite(t, tc.version)
		lt := MustParse(s, site.NamespaceMain, "User:Foo@bar")
		if got := Validate(lt, ValidityOptions{}); got != tc.expected {
			t.Errorf("version %q: Validate = %v, want %v", tc.version, got, tc.expected)
		}
	}
}

func TestValidateDirectConstruction(t *testing.T) {
	s := newTestSite(t, "1.39.4")
	main := s.Namespaces.Main()

	if IsValid(NewFull(New(main, "Foo\x01"), nil, ""), ValidityOptions{}) {
		t.Error("control characters must be rejected")
	}
	if Validate(nil, ValidityOptions{}) != ProblemEmpty {
		t.Error("nil title must report an empty page name")
	}
	if ProblemTildes.String() != "contains ~~~" {
		t.Errorf("unexpected problem text %q", ProblemTildes.String())
	}
}
