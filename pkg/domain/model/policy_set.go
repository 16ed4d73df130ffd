package model

import (
	"bytes"

	"github.com/gobwas/glob"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/samber/lo"
)

// StrategyIgnoreCommitter is the name of the author filter strategy
const StrategyIgnoreCommitter = "ignore-committer"

// PolicyConfig is one entry of a policy file
type PolicyConfig struct {
	Repository         string `toml:"repository"` // Glob on owner/name; ignored for [default]
	Branch             string `toml:"branch"`     // Glob on branch name; empty matches any branch
	Strategy           string `toml:"strategy"`
	IgnoredAuthors     string `toml:"ignored_authors"`
	AllowIfNotExcluded bool   `toml:"allow_build_if_not_excluded_author"`
}

type policyFile struct {
	Default PolicyConfig   `toml:"default"`
	Rules   []PolicyConfig `toml:"rules"`
}

// ResolvedPolicy is the result of a PolicySet lookup
type ResolvedPolicy struct {
	Strategy string
	Authors  *AuthorPolicy
}

type policyRule struct {
	repository glob.Glob
	branch     glob.Glob // nil matches any branch
	resolved   *ResolvedPolicy
}

// PolicySet maps repositories and branches to policies
type PolicySet struct {
	defaultPolicy *ResolvedPolicy
	rules         []policyRule
}

// NewPolicySet returns a set holding only a default policy
func NewPolicySet(strategy string, authors *AuthorPolicy) *PolicySet {
	if strategy == "" {
		strategy = StrategyIgnoreCommitter
	}
	return &PolicySet{
		defaultPolicy: &ResolvedPolicy{Strategy: strategy, Authors: authors},
	}
}

// ParsePolicySet reads a TOML policy file. Unknown keys are rejected.
func ParsePolicySet(data []byte) (*PolicySet, error) {
	var file policyFile
	decoder := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := decoder.Decode(&file); err != nil {
		return nil, goerr.Wrap(err, "failed to decode policy file")
	}

	set := NewPolicySet(file.Default.Strategy,
		ParseAuthorPolicy(file.Default.IgnoredAuthors, file.Default.AllowIfNotExcluded))

	for i, rule := range file.Rules {
		if rule.Repository == "" {
			return nil, goerr.New("policy rule has no repository", goerr.V("index", i))
		}

		repoGlob, err := glob.Compile(rule.Repository, '/')
		if err != nil {
			return nil, goerr.Wrap(err, "invalid repository pattern",
				goerr.V("index", i),
				goerr.V("pattern", rule.Repository),
			)
		}

		var branchGlob glob.Glob
		if rule.Branch != "" {
			branchGlob, err = glob.Compile(rule.Branch, '/')
			if err != nil {
				return nil, goerr.Wrap(err, "invalid branch pattern",
					goerr.V("index", i),
					goerr.V("pattern", rule.Branch),
				)
			}
		}

		strategy := rule.Strategy
		if strategy == "" {
			strategy = set.defaultPolicy.Strategy
		}

		set.rules = append(set.rules, policyRule{
			repository: repoGlob,
			branch:     branchGlob,
			resolved: &ResolvedPolicy{
				Strategy: strategy,
				Authors:  ParseAuthorPolicy(rule.IgnoredAuthors, rule.AllowIfNotExcluded),
			},
		})
	}

	return set, nil
}

// Lookup returns the policy of the first rule matching repository (owner/name) and
// branch, or the default policy.
func (s *PolicySet) Lookup(repository, branch string) *ResolvedPolicy {
	for _, rule := range s.rules {
		if !rule.repository.Match(repository) {
			continue
		}
		if rule.branch != nil && !rule.branch.Match(branch) {
			continue
		}
		return rule.resolved
	}
	return s.defaultPolicy
}

// Strategies returns every strategy name referenced by the set
func (s *PolicySet) Strategies() []string {
	names := []string{s.defaultPolicy.Strategy}
	for _, rule := range s.rules {
		names = append(names, rule.resolved.Strategy)
	}
	return lo.Uniq(names)
}
