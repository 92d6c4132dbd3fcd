package services

import (
	"testing"
	"time"

	"penpal-exchange-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newEscalationFixture(t *testing.T) (*gorm.DB, *EscalationService, *models.LetterProof) {
	t.Helper()

	db := newTestDB(t)
	match := seedMatch(t, db, models.MatchStatusCompleted)
	seedMission(t, db, match)

	reputation := NewReputationService(db)
	letters := NewLetterService(db, reputation)
	proof, _, err := letters.Send(match.ID, "u1", "https://cdn.example.com/l1.jpg")
	require.NoError(t, err)

	return db, NewEscalationService(db, NewNotificationService(db), reputation), proof
}

func ageProof(t *testing.T, db *gorm.DB, proof *models.LetterProof, days int) time.Time {
	t.Helper()

	uploaded := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	require.NoError(t, db.Model(&models.LetterProof{}).
		Where("id = ?", proof.ID).
		Update("sender_uploaded_at", uploaded).Error)
	return time.Now()
}

func reloadProof(t *testing.T, db *gorm.DB, id string) *models.LetterProof {
	t.Helper()

	var proof models.LetterProof
	require.NoError(t, db.First(&proof, "id = ?", id).Error)
	return &proof
}

func TestSweepIgnoresFreshProofs(t *testing.T) {
	db, svc, proof := newEscalationFixture(t)

	report, err := svc.RunSweep(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Zero(t, report.Reminders)
	assert.Zero(t, report.AdminAlerts)
	assert.Zero(t, report.AutoVerified)

	assert.Equal(t, models.EscalationNone, reloadProof(t, db, proof.ID).Escalation)
}

func TestSweepRemindsOnceAtDayThree(t *testing.T) {
	db, svc, proof := newEscalationFixture(t)
	now := ageProof(t, db, proof, 4)

	report, err := svc.RunSweep(now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Reminders)
	assert.Zero(t, report.AdminAlerts)

	reloaded := reloadProof(t, db, proof.ID)
	assert.Equal(t, models.EscalationReminded, reloaded.Escalation)
	assert.NotNil(t, reloaded.ReminderSentAt)
	assert.Equal(t, models.ProofStatusSent, reloaded.Status)

	// Re-running inside the same window fires nothing new.
	report, err = svc.RunSweep(now.Add(6 * time.Hour))
	require.NoError(t, err)
	assert.Zero(t, report.Reminders)
	assert.Zero(t, report.AdminAlerts)
	assert.Zero(t, report.AutoVerified)
}

func TestSweepAlertsAdminAtDaySeven(t *testing.T) {
	db, svc, proof := newEscalationFixture(t)

	report, err := svc.RunSweep(ageProof(t, db, proof, 4))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Reminders)

	now := ageProof(t, db, proof, 8)
	report, err = svc.RunSweep(now)
	require.NoError(t, err)
	assert.Zero(t, report.Reminders)
	assert.Equal(t, 1, report.AdminAlerts)
	assert.Zero(t, report.AutoVerified)

	reloaded := reloadProof(t, db, proof.ID)
	assert.Equal(t, models.EscalationAdminNotified, reloaded.Escalation)
	assert.NotNil(t, reloaded.AdminNotifiedAt)
}

func TestSweepAutoVerifiesAtDayTen(t *testing.T) {
	db, svc, proof := newEscalationFixture(t)
	now := ageProof(t, db, proof, 11)

	// A sweep delayed past every threshold fires all stages in one pass.
	report, err := svc.RunSweep(now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Reminders)
	assert.Equal(t, 1, report.AdminAlerts)
	assert.Equal(t, 1, report.AutoVerified)

	reloaded := reloadProof(t, db, proof.ID)
	assert.Equal(t, models.ProofStatusAutoVerified, reloaded.Status)
	assert.Equal(t, models.EscalationResolved, reloaded.Escalation)
	require.NotNil(t, reloaded.AutoVerifiedAt)

	// Mission advanced as if the receiver had verified.
	var mission models.LetterMission
	require.NoError(t, db.First(&mission, "match_id = ?", proof.MatchID).Error)
	assert.Equal(t, 1, mission.CurrentStep)
	assert.True(t, mission.Steps()[0])

	// The receiver took the late-response penalty; the sender did not.
	receiver, err := svc.Reputation.Get("u2")
	require.NoError(t, err)
	assert.Equal(t, 97, receiver.ReputationScore)
	require.Len(t, receiver.Penalties, 1)
	assert.Equal(t, models.PenaltyLateResponse, receiver.Penalties[0].Type)

	sender, err := svc.Reputation.Get("u1")
	require.NoError(t, err)
	assert.Equal(t, 100, sender.ReputationScore)
	assert.Empty(t, sender.Penalties)

	// Auto-verified proofs leave the sweep's scan set entirely.
	report, err = svc.RunSweep(now.Add(24 * time.Hour))
	require.NoError(t, err)
	assert.Zero(t, report.Scanned)
}

func TestHumanVerificationWinsOverSweep(t *testing.T) {
	db, svc, proof := newEscalationFixture(t)
	now := ageProof(t, db, proof, 11)

	letters := NewLetterService(db, svc.Reputation)
	verified, _, err := letters.Receive(proof.ID, "u2", "https://cdn.example.com/r1.jpg")
	require.NoError(t, err)
	assert.Equal(t, models.ProofStatusReceived, verified.Status)

	report, err := svc.RunSweep(now)
	require.NoError(t, err)
	assert.Zero(t, report.Scanned)
	assert.Zero(t, report.AutoVerified)

	// The human verdict stands and no penalty was taken.
	assert.Equal(t, models.ProofStatusReceived, reloadProof(t, db, proof.ID).Status)
	receiver, err := svc.Reputation.Get("u2")
	require.NoError(t, err)
	assert.Equal(t, 100, receiver.ReputationScore)
	assert.Empty(t, receiver.Penalties)
}

func TestSweepPersistsEscalationNotifications(t *testing.T) {
	db, svc, proof := newEscalationFixture(t)

	_, err := svc.RunSweep(ageProof(t, db, proof, 4))
	require.NoError(t, err)

	var notes []models.Notification
	require.NoError(t, db.Where("type = ?", models.NotifyLetterReminder).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, "u2", notes[0].UserID)
	assert.False(t, notes[0].Delivered)
}
