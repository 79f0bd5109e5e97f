package title

import (
	"regexp"
	"strings"

	"github.com/bastiangx/wikibot/pkg/site"
)

const (
	maxTitleBytes        = 255
	maxSpecialTitleBytes = 512
	// userNameRulesSince is the first MediaWiki release that rejects '@'
	// and ':' in user page names.
	userNameRulesSince = "1.31"
)

var (
	illegalChars  = regexp.MustCompile(`[#<>\[\]|{}\x00-\x1f\x7f\x{FFFD}]`)
	percentEscape = regexp.MustCompile(`%[0-9A-Fa-f]{2}`)
	htmlEntity    = regexp.MustCompile(`&[A-Za-z0-9#]+;`)
)

// ValidityOptions tunes Validate.
type ValidityOptions struct {
	// AllowRelative accepts an empty page name, as in a fragment-only link
	// like "#History".
	AllowRelative bool
}

// Problem names the first rule a title breaks.
type Problem int

const (
	ProblemNone Problem = iota
	ProblemEmpty
	ProblemTooLong
	ProblemRelativePath
	ProblemTildes
	ProblemIllegalCharacter
	ProblemInvalidUserName
)

func (p Problem) String() string {
	switch p {
	case ProblemNone:
		return "valid"
	case ProblemEmpty:
		return "empty page name"
	case ProblemTooLong:
		return "page name too long"
	case ProblemRelativePath:
		return "relative path"
	case ProblemTildes:
		return "contains ~~~"
	case ProblemIllegalCharacter:
		return "illegal character"
	case ProblemInvalidUserName:
		return "invalid user name"
	}
	return "unknown problem"
}

// Validate applies the client-side title rules and returns the first
// problem found. The wiki stays authoritative: a title that passes may still
// be rejected by the server.
//
// Titles on foreign wikis are only checked for emptiness, since their rules
// are unknown here.
func Validate(t FullLink, opts ValidityOptions) Problem {
	if IsNil(t) {
		return ProblemEmpty
	}
	if isBareInterwiki(t) {
		return ProblemNone
	}
	name := t.PageName()
	if name == "" {
		if opts.AllowRelative {
			return ProblemNone
		}
		return ProblemEmpty
	}
	if IsForeign(t) {
		return ProblemNone
	}

	ns := t.Namespace()
	limit := maxTitleBytes
	if ns != nil && ns.ID == site.NamespaceSpecial {
		limit = maxSpecialTitleBytes
	}
	if len(name) > limit {
		return ProblemTooLong
	}
	if isRelativePath(name) {
		return ProblemRelativePath
	}
	if strings.Contains(name, "~~~") {
		return ProblemTildes
	}
	if illegalChars.MatchString(name) || percentEscape.MatchString(name) || htmlEntity.MatchString(name) {
		return ProblemIllegalCharacter
	}
	if ns == nil {
		return ProblemNone
	}

	switch ns.ID {
	case site.NamespaceFile, site.NamespaceMedia:
		if strings.ContainsAny(name, `/\:`) {
			return ProblemIllegalCharacter
		}
	case site.NamespaceUser, site.NamespaceUserTalk:
		if s := ns.Site(); s != nil && s.VersionAtLeast(userNameRulesSince) {
			root, _, _ := strings.Cut(name, "/")
			if strings.ContainsAny(root, "@:") {
				return ProblemInvalidUserName
			}
		}
	}
	return ProblemNone
}

// IsValid reports whether Validate finds no problem.
func IsValid(t FullLink, opts ValidityOptions) bool {
	return Validate(t, opts) == ProblemNone
}

// IsValid reports whether ft passes Validate.
func (ft FullTitle) IsValid(opts ValidityOptions) bool {
	return Validate(ft, opts) == ProblemNone
}

func isRelativePath(name string) bool {
	if name == "." || name == ".." {
		return true
	}
	return strings.HasPrefix(name, "./") ||
		strings.HasPrefix(name, "../") ||
		strings.Contains(name, "/./") ||
		strings.Contains(name, "/../") ||
		strings.HasSuffix(name, "/.") ||
		strings.HasSuffix(name, "/..")
}
