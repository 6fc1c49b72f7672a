package reconcile

import (
	"context"

	"go.uber.org/zap"

	"setkeeper/internal/remote"
	"setkeeper/internal/retry"
)

// Outcome classifies one ensure-membership call.
type Outcome int

const (
	// OutcomeAdded means the item was newly added to the collection.
	OutcomeAdded Outcome = iota
	// OutcomeAlreadyMember means the service reported a duplicate add;
	// the desired state already held, so this is success.
	OutcomeAlreadyMember
	// OutcomeFailed means the add ultimately failed.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdded:
		return "added"
	case OutcomeAlreadyMember:
		return "already_member"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Memberships ensures items belong to collections. It keeps no local state:
// the remote membership list is the only record.
type Memberships struct {
	svc     remote.Service
	retrier *retry.Retrier
	log     *zap.Logger
}

// NewMemberships builds a membership reconciler. The retrier should classify
// with remote.IsTransient so benign duplicates return immediately instead of
// burning the backoff schedule.
func NewMemberships(svc remote.Service, retrier *retry.Retrier, log *zap.Logger) *Memberships {
	if log == nil {
		log = zap.NewNop()
	}
	return &Memberships{svc: svc, retrier: retrier, log: log}
}

// EnsureMember makes itemID a member of col. "Already a member" is a success
// outcome, never an error. The returned error is non-nil only for
// OutcomeFailed.
func (m *Memberships) EnsureMember(ctx context.Context, itemID string, col remote.Collection) (Outcome, error) {
	err := m.retrier.Do(ctx, "collection.add", func() error {
		return m.svc.AddItemToCollection(ctx, col.ID, itemID)
	})
	switch {
	case err == nil:
		m.log.Debug("added item to collection",
			zap.String("item", itemID),
			zap.String("collection", col.ID),
			zap.String("title", col.Title))
		return OutcomeAdded, nil
	case remote.IsBenign(err):
		return OutcomeAlreadyMember, nil
	default:
		m.log.Warn("add to collection failed",
			zap.String("item", itemID),
			zap.String("collection", col.ID),
			zap.Error(err))
		return OutcomeFailed, err
	}
}
