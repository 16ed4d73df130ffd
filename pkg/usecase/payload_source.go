package usecase

import (
	"context"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/buildgate/pkg/domain/model"
)

// maxPayloadCommits is the number of commits a push webhook carries at most
const maxPayloadCommits = 2048

// ErrTruncatedPayload means the push payload may not list every commit of the push.
var ErrTruncatedPayload = goerr.New("push payload commits may be truncated")

// payloadSource serves the commits embedded in a push payload. It is used only when no
// API source is configured.
type payloadSource struct {
	commits      []*model.Commit
	rejectCapped bool
}

// newPayloadSource reads the commits of push. With rejectCapped, a payload holding
// maxPayloadCommits commits is treated as truncated and Changeset fails.
func newPayloadSource(push *github.PushEvent, rejectCapped bool) *payloadSource {
	commits := make([]*model.Commit, 0, len(push.Commits))
	for _, c := range push.Commits {
		commits = append(commits, &model.Commit{
			ID:         c.GetID(),
			Author:     c.GetAuthor().GetEmail(),
			AuthorName: c.GetAuthor().GetName(),
		})
	}
	return &payloadSource{commits: commits, rejectCapped: rejectCapped}
}

func (s *payloadSource) Changeset(_ context.Context, update *model.BranchUpdate) ([]*model.Commit, error) {
	if s.rejectCapped && len(s.commits) >= maxPayloadCommits {
		return nil, goerr.Wrap(ErrTruncatedPayload, "cannot use push payload commits",
			goerr.V("commits", len(s.commits)),
			goerr.V("after", update.After),
		)
	}
	return s.commits, nil
}
