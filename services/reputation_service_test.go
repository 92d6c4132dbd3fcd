package services

import (
	"testing"

	"penpal-exchange-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReputationStartsAtInitialScore(t *testing.T) {
	db := newTestDB(t)
	svc := NewReputationService(db)

	rep, err := svc.Get("u1")
	require.NoError(t, err)
	assert.Equal(t, 100, rep.ReputationScore)
	assert.Zero(t, rep.TotalMatches)
	assert.Empty(t, rep.Penalties)
}

func TestReputationScoreClampsAtCeiling(t *testing.T) {
	db := newTestDB(t)
	svc := NewReputationService(db)

	// Bonuses on a perfect score never push past the ceiling.
	for i := 0; i < 3; i++ {
		rep, err := svc.Apply(db, "u1", EventMatchCompleted, "m1", "")
		require.NoError(t, err)
		assert.Equal(t, 100, rep.ReputationScore)
	}

	rep, err := svc.Get("u1")
	require.NoError(t, err)
	assert.Equal(t, 3, rep.CompletedMatches)
}

func TestReputationScoreClampsAtFloor(t *testing.T) {
	db := newTestDB(t)
	svc := NewReputationService(db)

	for i := 0; i < 12; i++ {
		_, err := svc.Apply(db, "u1", EventCancelByUser, "m1", "quit")
		require.NoError(t, err)
	}

	rep, err := svc.Get("u1")
	require.NoError(t, err)
	assert.Equal(t, 0, rep.ReputationScore)
	assert.Equal(t, 12, rep.CancelledByUser)
	assert.Len(t, rep.Penalties, 12)
}

func TestReputationEventDeltas(t *testing.T) {
	db := newTestDB(t)
	svc := NewReputationService(db)

	rep, err := svc.Apply(db, "u1", EventMatchCreated, "m1", "")
	require.NoError(t, err)
	assert.Equal(t, 100, rep.ReputationScore)
	assert.Equal(t, 1, rep.TotalMatches)

	rep, err = svc.Apply(db, "u1", EventLateResponse, "m1", "slow to verify")
	require.NoError(t, err)
	assert.Equal(t, 97, rep.ReputationScore)

	rep, err = svc.Apply(db, "u1", EventNoAddress, "m1", "address never submitted")
	require.NoError(t, err)
	assert.Equal(t, 92, rep.ReputationScore)

	rep, err = svc.Apply(db, "u1", EventCancelByUser, "m1", "quit")
	require.NoError(t, err)
	assert.Equal(t, 82, rep.ReputationScore)

	// The non-initiating side of a cancellation only gets a counter bump.
	rep, err = svc.Apply(db, "u2", EventCancelByPartner, "m1", "")
	require.NoError(t, err)
	assert.Equal(t, 100, rep.ReputationScore)
	assert.Equal(t, 1, rep.CancelledByPartner)

	_, err = svc.Apply(db, "u1", ReputationEvent("bogus"), "m1", "")
	assert.ErrorIs(t, err, ErrInvariant)
}

func TestApplyComposesAgainstStoredScore(t *testing.T) {
	db := newTestDB(t)
	svc := NewReputationService(db)

	_, err := svc.Apply(db, "u1", EventLateResponse, "m1", "slow")
	require.NoError(t, err)

	// Another writer moves the stored score between this caller's events.
	// The deltas are SQL expressions, so the next event lands on top of the
	// stored value instead of overwriting it with a stale computation.
	require.NoError(t, db.Model(&models.UserPenpalReputation{}).
		Where("user_id = ?", "u1").
		Update("reputation_score", 50).Error)

	rep, err := svc.Apply(db, "u1", EventLateResponse, "m1", "slow again")
	require.NoError(t, err)
	assert.Equal(t, 47, rep.ReputationScore)

	// Counter bumps compose the same way.
	require.NoError(t, db.Model(&models.UserPenpalReputation{}).
		Where("user_id = ?", "u1").
		Update("total_matches", 4).Error)
	rep, err = svc.Apply(db, "u1", EventMatchCreated, "m2", "")
	require.NoError(t, err)
	assert.Equal(t, 5, rep.TotalMatches)
}

func TestPenaltyHistoryRecordsContext(t *testing.T) {
	db := newTestDB(t)
	svc := NewReputationService(db)

	_, err := svc.Apply(db, "u1", EventLateResponse, "m1", "letter #3 unverified for 10 days")
	require.NoError(t, err)

	rep, err := svc.Get("u1")
	require.NoError(t, err)
	require.Len(t, rep.Penalties, 1)

	p := rep.Penalties[0]
	assert.Equal(t, models.PenaltyLateResponse, p.Type)
	assert.Equal(t, "minor", p.Severity)
	assert.Equal(t, 3, p.Points)
	assert.Equal(t, "m1", p.MatchID)
	assert.Equal(t, "letter #3 unverified for 10 days", p.Reason)
}
