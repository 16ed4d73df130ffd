package model

// DecisionReason explains how a build decision was reached
type DecisionReason string

const (
	ReasonIgnoredAuthor    DecisionReason = "ignored_author"
	ReasonNonIgnoredAuthor DecisionReason = "non_ignored_author"
	ReasonNoDecisiveCommit DecisionReason = "no_decisive_commit"
	ReasonFailOpen         DecisionReason = "fail_open"
	ReasonAlways           DecisionReason = "always"
)

// Decision is the verdict of one evaluation. It is not persisted.
type Decision struct {
	ID      string         `json:"id"`
	Build   bool           `json:"build"`
	Reason  DecisionReason `json:"reason"`
	Commit  *Commit        `json:"commit,omitempty"` // Decisive commit; nil when the scan fell through
	Scanned int            `json:"scanned"`          // Number of commits inspected before deciding
	Error   string         `json:"error,omitempty"`  // Set only for fail-open decisions
}
