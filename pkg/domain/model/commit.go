package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrOwnerUnavailable means the branch update cannot be attributed to a repository.
	ErrOwnerUnavailable = goerr.New("branch owner is not available")

	// ErrNoBaseRevision means the update has no previous revision to compare against.
	ErrNoBaseRevision = goerr.New("no base revision for branch update")
)

// zeroRevision is what GitHub sends as "before" for a newly created ref.
const zeroRevision = "0000000000000000000000000000000000000000"

// Commit is a single entry of a changeset
type Commit struct {
	ID         string `json:"id"`                    // Commit SHA or revision identifier
	Author     string `json:"author"`                // Author identity compared against the policy (e-mail for git)
	AuthorName string `json:"author_name,omitempty"` // Display name, informational only
}

// BranchUpdate represents one observed move of a branch from Before to After
type BranchUpdate struct {
	Owner  string // Repository owner
	Repo   string // Repository name
	Branch string // Branch name without refs/heads/
	Before string // Previous revision
	After  string // Current revision
	Sender string // User who pushed, if known
}

// FullName returns owner/repo
func (u *BranchUpdate) FullName() string {
	return u.Owner + "/" + u.Repo
}

// HasBase reports whether the update has a usable previous revision
func (u *BranchUpdate) HasBase() bool {
	before := strings.TrimSpace(u.Before)
	return before != "" && before != zeroRevision
}

// Validate checks that the update can be evaluated
func (u *BranchUpdate) Validate() error {
	if u.Owner == "" || u.Repo == "" {
		return goerr.Wrap(ErrOwnerUnavailable, "invalid branch update",
			goerr.V("owner", u.Owner),
			goerr.V("repo", u.Repo),
		)
	}
	if !u.HasBase() {
		return goerr.Wrap(ErrNoBaseRevision, "invalid branch update",
			goerr.V("repository", u.FullName()),
			goerr.V("branch", u.Branch),
		)
	}
	if strings.TrimSpace(u.After) == "" {
		return goerr.New("missing current revision",
			goerr.V("repository", u.FullName()),
			goerr.V("branch", u.Branch),
		)
	}
	return nil
}
