package services

import (
	"testing"

	"penpal-exchange-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLetterFixture(t *testing.T) (*LetterService, *models.PenpalMatch, *models.LetterMission) {
	t.Helper()

	db := newTestDB(t)
	match := seedMatch(t, db, models.MatchStatusCompleted)
	mission := seedMission(t, db, match)
	return NewLetterService(db, NewReputationService(db)), match, mission
}

func TestSendCreatesProofForNextStep(t *testing.T) {
	svc, match, _ := newLetterFixture(t)

	proof, notes, err := svc.Send(match.ID, "u1", "https://cdn.example.com/l1.jpg")
	require.NoError(t, err)
	assert.Equal(t, 1, proof.Step)
	assert.Equal(t, models.ProofStatusSent, proof.Status)
	assert.Equal(t, models.EscalationNone, proof.Escalation)
	assert.Equal(t, "u2", proof.ReceiverID)
	require.Len(t, notes, 1)
	assert.Equal(t, "u2", notes[0].UserID)

	// A second letter for the same step is blocked while one is outstanding.
	_, _, err = svc.Send(match.ID, "u1", "https://cdn.example.com/l1b.jpg")
	assert.ErrorIs(t, err, ErrInvariant)
}

func TestSendRequiresCompletedMatch(t *testing.T) {
	db := newTestDB(t)
	svc := NewLetterService(db, NewReputationService(db))
	match := seedMatch(t, db, models.MatchStatusAdminReview)
	seedMission(t, db, match)

	_, _, err := svc.Send(match.ID, "u1", "https://cdn.example.com/l1.jpg")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, _, err = svc.Send(match.ID, "intruder", "https://cdn.example.com/l1.jpg")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestReceiveAdvancesMission(t *testing.T) {
	svc, match, _ := newLetterFixture(t)

	proof, _, err := svc.Send(match.ID, "u1", "https://cdn.example.com/l1.jpg")
	require.NoError(t, err)

	verified, notes, err := svc.Receive(proof.ID, "u2", "https://cdn.example.com/r1.jpg")
	require.NoError(t, err)
	assert.Equal(t, models.ProofStatusReceived, verified.Status)
	assert.Equal(t, models.EscalationResolved, verified.Escalation)
	require.NotNil(t, verified.ReceiverUploadedAt)
	require.Len(t, notes, 1)
	assert.Equal(t, "u1", notes[0].UserID)

	mission, err := svc.Mission(match.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, mission.CurrentStep)
	assert.True(t, mission.Steps()[0])
	assert.False(t, mission.IsCompleted)

	// Next send targets step 2.
	next, _, err := svc.Send(match.ID, "u2", "https://cdn.example.com/l2.jpg")
	require.NoError(t, err)
	assert.Equal(t, 2, next.Step)
}

func TestReceiveOnlyByRecordedReceiver(t *testing.T) {
	svc, match, _ := newLetterFixture(t)

	proof, _, err := svc.Send(match.ID, "u1", "https://cdn.example.com/l1.jpg")
	require.NoError(t, err)

	_, _, err = svc.Receive(proof.ID, "u1", "https://cdn.example.com/r1.jpg")
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = svc.Receive(proof.ID, "u2", "")
	assert.ErrorIs(t, err, ErrInvariant)

	// Verification is single-shot.
	_, _, err = svc.Receive(proof.ID, "u2", "https://cdn.example.com/r1.jpg")
	require.NoError(t, err)
	_, _, err = svc.Receive(proof.ID, "u2", "https://cdn.example.com/r1.jpg")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestDisputeThenApproveCancelsProof(t *testing.T) {
	svc, match, _ := newLetterFixture(t)

	proof, _, err := svc.Send(match.ID, "u1", "https://cdn.example.com/l1.jpg")
	require.NoError(t, err)

	_, _, err = svc.Dispute(proof.ID, "u2", "")
	assert.ErrorIs(t, err, ErrInvariant)
	_, _, err = svc.Dispute(proof.ID, "u1", "never arrived")
	assert.ErrorIs(t, err, ErrForbidden)

	disputed, notes, err := svc.Dispute(proof.ID, "u2", "never arrived")
	require.NoError(t, err)
	assert.Equal(t, models.ProofStatusDisputed, disputed.Status)
	require.Len(t, notes, 1)
	assert.Equal(t, models.AdminAudience, notes[0].UserID)

	queue, err := svc.DisputedQueue()
	require.NoError(t, err)
	require.Len(t, queue, 1)

	resolved, notes, err := svc.ResolveDispute(proof.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.ProofStatusCancelled, resolved.Status)
	require.Len(t, notes, 1)
	assert.Equal(t, "u1", notes[0].UserID)

	// Mission did not move; the sender can resend the same step.
	mission, err := svc.Mission(match.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, mission.CurrentStep)

	resent, _, err := svc.Send(match.ID, "u1", "https://cdn.example.com/l1-again.jpg")
	require.NoError(t, err)
	assert.Equal(t, 1, resent.Step)
}

func TestDisputeThenRejectAutoVerifies(t *testing.T) {
	svc, match, _ := newLetterFixture(t)

	proof, _, err := svc.Send(match.ID, "u1", "https://cdn.example.com/l1.jpg")
	require.NoError(t, err)
	_, _, err = svc.Dispute(proof.ID, "u2", "never arrived")
	require.NoError(t, err)

	resolved, notes, err := svc.ResolveDispute(proof.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.ProofStatusAutoVerified, resolved.Status)
	require.NotNil(t, resolved.AutoVerifiedAt)
	require.Len(t, notes, 1)
	assert.Equal(t, "u2", notes[0].UserID)

	mission, err := svc.Mission(match.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, mission.CurrentStep)
	assert.True(t, mission.Steps()[0])

	// Resolution is single-shot either way.
	_, _, err = svc.ResolveDispute(proof.ID, false)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestMissionCompletionAwardsBothUsers(t *testing.T) {
	svc, match, _ := newLetterFixture(t)

	var lastNotes []models.Notification
	for step := 1; step <= models.MissionTotalSteps; step++ {
		proof, _, err := svc.Send(match.ID, "u1", "https://cdn.example.com/letter.jpg")
		require.NoError(t, err)
		require.Equal(t, step, proof.Step)
		_, notes, err := svc.Receive(proof.ID, "u2", "https://cdn.example.com/receipt.jpg")
		require.NoError(t, err)
		lastNotes = notes
	}

	mission, err := svc.Mission(match.ID, "u1")
	require.NoError(t, err)
	assert.True(t, mission.IsCompleted)
	assert.Equal(t, models.MissionTotalSteps, mission.CurrentStep)

	// Final receipt carries the completion fan-out on top of the delivery note.
	assert.Len(t, lastNotes, 3)

	for _, uid := range []string{"u1", "u2"} {
		rep, err := svc.Reputation.Get(uid)
		require.NoError(t, err)
		assert.Equal(t, 100, rep.ReputationScore)
		assert.Equal(t, 1, rep.CompletedMatches)
	}

	_, _, err = svc.Send(match.ID, "u1", "https://cdn.example.com/extra.jpg")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestExtendedMissionAcceptsExtraSteps(t *testing.T) {
	svc, match, mission := newLetterFixture(t)

	for step := 1; step <= models.MissionTotalSteps; step++ {
		proof, _, err := svc.Send(match.ID, "u1", "https://cdn.example.com/letter.jpg")
		require.NoError(t, err)
		_, _, err = svc.Receive(proof.ID, "u2", "https://cdn.example.com/receipt.jpg")
		require.NoError(t, err)
	}

	extended, err := svc.ExtendMission(mission.ID)
	require.NoError(t, err)
	assert.True(t, extended.Extended)

	proof, _, err := svc.Send(match.ID, "u2", "https://cdn.example.com/bonus.jpg")
	require.NoError(t, err)
	assert.Equal(t, models.MissionTotalSteps+1, proof.Step)

	verified, _, err := svc.Receive(proof.ID, "u1", "https://cdn.example.com/bonus-receipt.jpg")
	require.NoError(t, err)
	assert.Equal(t, models.ProofStatusReceived, verified.Status)

	after, err := svc.Mission(match.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.MissionTotalSteps+1, after.CurrentStep)
	assert.True(t, after.IsCompleted)
}
