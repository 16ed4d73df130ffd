package model

import (
	"slices"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeAuthor returns the comparable form of an author identity: surrounding
// whitespace trimmed and lower-cased. Case folding is not applied, so "ß" and "ss"
// stay distinct.
func NormalizeAuthor(author string) string {
	// A Caser is stateful and must not be shared between goroutines.
	return cases.Lower(language.Und).String(strings.TrimSpace(author))
}

// AuthorPolicy is the immutable ignore-committer configuration of a branch.
type AuthorPolicy struct {
	ignored            map[string]struct{}
	allowIfNotExcluded bool
}

// NewAuthorPolicy builds a policy from a list of author identities. Entries are
// normalized and empty ones are dropped.
func NewAuthorPolicy(authors []string, allowIfNotExcluded bool) *AuthorPolicy {
	normalized := lo.Filter(lo.Map(authors, func(a string, _ int) string {
		return NormalizeAuthor(a)
	}), func(a string, _ int) bool {
		return a != ""
	})

	ignored := make(map[string]struct{}, len(normalized))
	for _, a := range normalized {
		ignored[a] = struct{}{}
	}

	return &AuthorPolicy{
		ignored:            ignored,
		allowIfNotExcluded: allowIfNotExcluded,
	}
}

// ParseAuthorPolicy builds a policy from a comma-separated authors string.
func ParseAuthorPolicy(authors string, allowIfNotExcluded bool) *AuthorPolicy {
	return NewAuthorPolicy(strings.Split(authors, ","), allowIfNotExcluded)
}

// IsIgnored reports whether the author, after normalization, is in the ignore list.
func (p *AuthorPolicy) IsIgnored(author string) bool {
	if p == nil {
		return false
	}
	_, ok := p.ignored[NormalizeAuthor(author)]
	return ok
}

// AllowIfNotExcluded reports whether a single non-ignored author is enough to build.
func (p *AuthorPolicy) AllowIfNotExcluded() bool {
	return p != nil && p.allowIfNotExcluded
}

// IgnoredAuthors returns the normalized ignore list, sorted.
func (p *AuthorPolicy) IgnoredAuthors() []string {
	if p == nil {
		return nil
	}
	authors := lo.Keys(p.ignored)
	slices.Sort(authors)
	return authors
}
