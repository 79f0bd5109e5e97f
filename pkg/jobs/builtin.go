package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/bastiangx/wikibot/internal/fuzzy"
	"github.com/bastiangx/wikibot/pkg/collection"
	"github.com/bastiangx/wikibot/pkg/site"
	"github.com/bastiangx/wikibot/pkg/title"
)

// Builtin returns a registry holding the stock jobs.
func Builtin() *Registry {
	r := NewRegistry()
	r.MustRegister(Info{
		ID:          "validate",
		Description: "Report titles the wiki would reject, with namespace spelling hints",
		New:         newValidateJob,
	})
	r.MustRegister(Info{
		ID:          "talk-pages",
		Description: "Map every title to its talk page",
		New:         newTalkPagesJob,
	})
	r.MustRegister(Info{
		ID:          "sort",
		Description: "Sort titles (order=natural|standard, reverse=true)",
		New:         newSortJob,
	})
	r.MustRegister(Info{
		ID:          "filter-namespaces",
		Description: "Keep or drop namespaces (namespaces=0,14;mode=only|disallow)",
		New:         newFilterJob,
	})
	return r
}

// checkEvery is how many titles a job handles between context checks.
const checkEvery = 256

func cancelled(ctx context.Context, i int) error {
	if i%checkEvery != 0 {
		return nil
	}
	return ctx.Err()
}

func newValidateJob(s *site.Site, p Params) (Job, error) {
	allowRelative, err := p.Bool("allow_relative", false)
	if err != nil {
		return nil, err
	}
	opts := title.ValidityOptions{AllowRelative: allowRelative}
	hints := namespaceMatcher(s)

	return JobFunc(func(ctx context.Context, in *collection.Collection[title.Title]) (*Report, error) {
		report := &Report{Output: collection.New[title.Title](s)}
		for i, t := range in.All() {
			if err := cancelled(ctx, i); err != nil {
				return nil, err
			}
			if problem := title.Validate(title.NewFull(t, nil, ""), opts); problem != title.ProblemNone {
				report.Messages = append(report.Messages, fmt.Sprintf("%s: %s", t.FullPageName(), problem))
				continue
			}
			report.Output.Add(t)
			if hint, ok := namespaceHint(hints, t); ok {
				report.Messages = append(report.Messages, fmt.Sprintf("%s: did you mean %s?", t.FullPageName(), hint))
			}
		}
		return report, nil
	}), nil
}

// namespaceMatcher indexes every namespace name of s, canonical names
// weighted above localized names and aliases.
func namespaceMatcher(s *site.Site) *fuzzy.Matcher {
	words := make(map[string]int)
	for _, ns := range s.Namespaces.All() {
		for i, name := range ns.AllNames() {
			words[site.NormalizeName(name)] = max(words[site.NormalizeName(name)], 10-i)
		}
	}
	return fuzzy.NewMatcher(words)
}

// namespaceHint looks for Main-space titles like "Tlak:Foo" whose prefix is
// a near miss for a namespace name.
func namespaceHint(m *fuzzy.Matcher, t title.Title) (string, bool) {
	if t.Namespace().ID != site.NamespaceMain {
		return "", false
	}
	prefix, rest, ok := strings.Cut(t.PageName(), ":")
	if !ok || strings.TrimSpace(rest) == "" {
		return "", false
	}
	suggestion, corrected := m.SuggestCorrection(prefix)
	if !corrected {
		return "", false
	}
	ns, ok := t.Site().Namespaces.Lookup(suggestion)
	if !ok {
		return "", false
	}
	return title.New(ns, strings.TrimSpace(rest)).FullPageName(), true
}

func newTalkPagesJob(s *site.Site, _ Params) (Job, error) {
	return JobFunc(func(ctx context.Context, in *collection.Collection[title.Title]) (*Report, error) {
		report := &Report{Output: collection.New[title.Title](s)}
		skipped := 0
		for i, t := range in.All() {
			if err := cancelled(ctx, i); err != nil {
				return nil, err
			}
			talk, ok := t.TalkPage()
			if !ok {
				skipped++
				continue
			}
			report.Output.Add(talk)
		}
		if skipped > 0 {
			report.Messages = append(report.Messages, fmt.Sprintf("skipped %d titles without a talk namespace", skipped))
		}
		return report, nil
	}), nil
}

func newSortJob(s *site.Site, p Params) (Job, error) {
	order := p.Get("order", "natural")
	if order != "natural" && order != "standard" {
		return nil, fmt.Errorf("%w: order=%q, expected natural or standard", ErrBadParams, order)
	}
	reverse, err := p.Bool("reverse", false)
	if err != nil {
		return nil, err
	}

	return JobFunc(func(ctx context.Context, in *collection.Collection[title.Title]) (*Report, error) {
		out := collection.From(s, in.Items()...)
		cmp := title.CompareNatural[title.Title]
		if order == "standard" {
			cmp = title.Compare[title.Title]
		}
		if reverse {
			out.SortFunc(func(a, b title.Title) int { return cmp(b, a) })
		} else {
			out.SortFunc(cmp)
		}
		return &Report{Output: out}, ctx.Err()
	}), nil
}

func newFilterJob(s *site.Site, p Params) (Job, error) {
	ids, err := p.Ints("namespaces")
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: namespaces is required", ErrBadParams)
	}
	for _, id := range ids {
		if s.Namespace(id) == nil {
			return nil, fmt.Errorf("%w: site %q has no namespace %d", ErrBadParams, s.Name, id)
		}
	}
	mode, ok := collection.ParseLimitationType(p.Get("mode", "only"))
	if !ok || mode == collection.LimitationNone {
		return nil, fmt.Errorf("%w: mode=%q, expected only or disallow", ErrBadParams, p["mode"])
	}

	return JobFunc(func(ctx context.Context, in *collection.Collection[title.Title]) (*Report, error) {
		out := collection.New[title.Title](s)
		out.SetLimitations(mode, ids...)
		kept := out.AddRange(in.Items()...)
		msg := fmt.Sprintf("kept %d of %d titles", kept, in.Len())
		return &Report{Output: out, Messages: []string{msg}}, ctx.Err()
	}), nil
}
