package reconcile

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunSummary tallies what a run did. It is reported at the end of every run
// whether or not interior failures occurred; per-item errors only ever bump
// Failed, they never abort the batch.
type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	// Item-level tallies.
	Processed int // items examined
	Skipped   int // items with no usable grouping key
	Failed    int // items whose remote mutation ultimately failed

	// Membership tallies.
	Added          int // memberships newly created
	AlreadyMembers int // duplicate adds normalized to success

	// Collection tallies.
	CollectionsCreated int
	CollectionsUpdated int // collections with at least one change this run

	// Tag tallies.
	TagsAdded   int
	TagsRemoved int

	// Description tallies.
	TextUpdated   int
	TextUnchanged int // merges that produced identical text, write skipped
}

func newSummary() *RunSummary {
	return &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
}

func (s *RunSummary) finish() {
	s.FinishedAt = time.Now()
}

// Duration returns the wall-clock length of the run.
func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// String renders the one-line end-of-run report.
func (s *RunSummary) String() string {
	return fmt.Sprintf(
		"run %s: processed=%d skipped=%d failed=%d added=%d already_member=%d sets_created=%d sets_updated=%d tags_added=%d tags_removed=%d text_updated=%d text_unchanged=%d in %v",
		s.RunID, s.Processed, s.Skipped, s.Failed, s.Added, s.AlreadyMembers,
		s.CollectionsCreated, s.CollectionsUpdated, s.TagsAdded, s.TagsRemoved,
		s.TextUpdated, s.TextUnchanged, s.Duration().Round(time.Millisecond))
}
