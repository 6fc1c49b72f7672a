package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"setkeeper/internal/remote"
)

func TestEnsureMember_Idempotent(t *testing.T) {
	svc := newFakeService(remote.Item{ID: "p1"})
	col, err := svc.CreateCollection(context.Background(), "B0 - 2024/05/01", "p0")
	require.NoError(t, err)

	m := NewMemberships(svc, testRetrier(), zap.NewNop())

	first, err := m.EnsureMember(context.Background(), "p1", col)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdded, first)

	// Second call: the service reports a duplicate, the reconciler reports
	// success. No retry is spent on it.
	calls := len(svc.addCalls)
	second, err := m.EnsureMember(context.Background(), "p1", col)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyMember, second)
	assert.Equal(t, calls+1, len(svc.addCalls))

	// Remote state unchanged: still exactly one membership for p1.
	assert.Equal(t, []string{"p0", "p1"}, svc.members[col.ID])
}

func TestEnsureMember_TransientFailureRetried(t *testing.T) {
	svc := newFakeService(remote.Item{ID: "p1"})
	col, err := svc.CreateCollection(context.Background(), "B0 - 2024/05/01", "p0")
	require.NoError(t, err)
	svc.transientAdds[col.ID+"/p1"] = 2

	m := NewMemberships(svc, testRetrier(), zap.NewNop())
	outcome, err := m.EnsureMember(context.Background(), "p1", col)

	require.NoError(t, err)
	assert.Equal(t, OutcomeAdded, outcome)
	assert.Contains(t, svc.members[col.ID], "p1")
}

func TestEnsureMember_ExhaustionIsFailedOutcome(t *testing.T) {
	svc := newFakeService(remote.Item{ID: "p1"})
	col, err := svc.CreateCollection(context.Background(), "B0 - 2024/05/01", "p0")
	require.NoError(t, err)
	svc.transientAdds[col.ID+"/p1"] = 100

	m := NewMemberships(svc, testRetrier(), zap.NewNop())
	outcome, err := m.EnsureMember(context.Background(), "p1", col)

	assert.Equal(t, OutcomeFailed, outcome)
	assert.Error(t, err)
	assert.NotContains(t, svc.members[col.ID], "p1")
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "added", OutcomeAdded.String())
	assert.Equal(t, "already_member", OutcomeAlreadyMember.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
}
