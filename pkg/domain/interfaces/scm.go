package interfaces

import (
	"context"

	"github.com/m-mizutani/buildgate/pkg/domain/model"
)

// ChangesetSource retrieves the commits between the previous and current revision of a branch
type ChangesetSource interface {
	// Changeset returns the commits of the update, ordered as the source reports them
	Changeset(ctx context.Context, update *model.BranchUpdate) ([]*model.Commit, error)
}
