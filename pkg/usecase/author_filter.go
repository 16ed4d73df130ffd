package usecase

import (
	"context"
	"iter"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"

	"github.com/m-mizutani/buildgate/pkg/domain/model"
)

// ShouldBuild reports whether a changeset should trigger a build under policy.
func ShouldBuild(ctx context.Context, commits []*model.Commit, policy *model.AuthorPolicy) bool {
	return EvaluateAuthors(ctx, slices.Values(commits), policy).Build
}

// EvaluateAuthors scans commits in order and stops at the first decisive one.
//
// When the policy does not allow builds for non-excluded authors, any commit by an
// ignored author vetoes the build. When it does, the first commit by a non-ignored
// author triggers the build. A scan without a decisive commit yields the opposite of
// the allow flag. Commits whose author is blank are skipped. A nil policy ignores nobody.
func EvaluateAuthors(ctx context.Context, commits iter.Seq[*model.Commit], policy *model.AuthorPolicy) *model.Decision {
	logger := ctxlog.From(ctx)
	allow := policy.AllowIfNotExcluded()

	decision := &model.Decision{
		ID: uuid.NewString(),
	}

	logger.Debug("Evaluating changeset authors",
		slog.String("decision_id", decision.ID),
		slog.Any("ignored_authors", policy.IgnoredAuthors()),
		slog.Bool("allow_if_not_excluded", allow),
	)

	for commit := range commits {
		decision.Scanned++
		if commit == nil {
			continue
		}

		author := model.NormalizeAuthor(commit.Author)
		if author == "" {
			logger.Warn("Skipping commit without author", slog.String("commit", commit.ID))
			continue
		}

		ignored := policy.IsIgnored(author)
		switch {
		case ignored && !allow:
			decision.Build = false
			decision.Reason = model.ReasonIgnoredAuthor
			decision.Commit = commit
			logger.Info("Changeset contains ignored author, build is not required",
				slog.String("decision_id", decision.ID),
				slog.String("author", author),
				slog.String("commit", commit.ID),
			)
			return decision

		case !ignored && allow:
			decision.Build = true
			decision.Reason = model.ReasonNonIgnoredAuthor
			decision.Commit = commit
			logger.Info("Changeset contains non-ignored author, build is required",
				slog.String("decision_id", decision.ID),
				slog.String("author", author),
				slog.String("commit", commit.ID),
			)
			return decision
		}
	}

	decision.Build = !allow
	decision.Reason = model.ReasonNoDecisiveCommit
	logger.Info("No decisive commit in changeset",
		slog.String("decision_id", decision.ID),
		slog.Int("scanned", decision.Scanned),
		slog.Bool("build", decision.Build),
	)
	return decision
}
