package git

import (
	"context"
	"errors"
	"slices"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/buildgate/pkg/domain/model"
)

// Source reads changesets from a local git repository
type Source struct {
	repo *git.Repository
}

// Open opens the repository containing path
func Open(path string) (*Source, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open git repository", goerr.V("path", path))
	}
	return New(repo), nil
}

// New wraps an opened repository
func New(repo *git.Repository) *Source {
	return &Source{repo: repo}
}

// Changeset returns the commits reachable from update.After but not from
// update.Before, oldest first. The author e-mail is the author identity.
func (s *Source) Changeset(ctx context.Context, update *model.BranchUpdate) ([]*model.Commit, error) {
	before, err := s.resolve(update.Before)
	if err != nil {
		return nil, err
	}
	after, err := s.resolve(update.After)
	if err != nil {
		return nil, err
	}

	known, err := s.reachable(ctx, before)
	if err != nil {
		return nil, err
	}

	iter, err := s.repo.Log(&git.LogOptions{From: after})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to walk history", goerr.V("from", after.String()))
	}
	defer iter.Close()

	var commits []*model.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := known[c.Hash]; ok {
			return nil
		}
		commits = append(commits, &model.Commit{
			ID:         c.Hash.String(),
			Author:     c.Author.Email,
			AuthorName: c.Author.Name,
		})
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to collect changeset",
			goerr.V("before", update.Before),
			goerr.V("after", update.After),
		)
	}

	slices.Reverse(commits)
	return commits, nil
}

func (s *Source) resolve(rev string) (plumbing.Hash, error) {
	hash, err := s.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return plumbing.ZeroHash, goerr.Wrap(err, "failed to resolve revision", goerr.V("revision", rev))
	}
	return *hash, nil
}

// reachable returns every commit reachable from hash
func (s *Source) reachable(ctx context.Context, hash plumbing.Hash) (map[plumbing.Hash]struct{}, error) {
	iter, err := s.repo.Log(&git.LogOptions{From: hash})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to walk history", goerr.V("from", hash.String()))
	}
	defer iter.Close()

	seen := make(map[plumbing.Hash]struct{})
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		seen[c.Hash] = struct{}{}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, goerr.Wrap(err, "failed to walk history", goerr.V("from", hash.String()))
	}
	return seen, nil
}
