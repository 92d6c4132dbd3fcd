package services

import (
	"fmt"
	"log"
	"time"

	"penpal-exchange-system/models"

	"gorm.io/gorm"
)

// Escalation thresholds in days since the sender's upload.
const (
	reminderAfterDays   = 3
	adminAlertAfterDays = 7
	autoVerifyAfterDays = 10
)

// SweepReport summarizes one escalation pass.
type SweepReport struct {
	Scanned      int `json:"scanned"`
	Reminders    int `json:"reminders"`
	AdminAlerts  int `json:"admin_alerts"`
	AutoVerified int `json:"auto_verified"`
	Failed       int `json:"failed"`
}

// EscalationService advances stale sent proofs through
// reminder → admin alert → auto-verify. The sweep is safe to run
// concurrently with itself and with user actions: every action is a
// conditional update gated on the proof's escalation state or status,
// so a retried cron run or a racing human verification makes the write
// match zero rows instead of double-firing.
type EscalationService struct {
	DB         *gorm.DB
	Notifier   *NotificationService
	Reputation *ReputationService
}

func NewEscalationService(db *gorm.DB, notifier *NotificationService, reputation *ReputationService) *EscalationService {
	return &EscalationService{DB: db, Notifier: notifier, Reputation: reputation}
}

// RunSweep applies at most one new action per threshold per proof. The
// three checks are cumulative: a sweep delayed past day 10 fires the
// 7-day and 10-day actions for the same proof in a single pass. A
// failure on one proof is counted and the sweep moves on.
func (s *EscalationService) RunSweep(now time.Time) (SweepReport, error) {
	var report SweepReport

	var proofs []models.LetterProof
	if err := s.DB.
		Where("status = ?", models.ProofStatusSent).
		Order("sender_uploaded_at ASC").
		Find(&proofs).Error; err != nil {
		return report, err
	}
	report.Scanned = len(proofs)

	for i := range proofs {
		if err := s.escalate(&proofs[i], now, &report); err != nil {
			report.Failed++
			log.Printf("[SWEEP] proof %s: %v", proofs[i].ID, err)
		}
	}

	log.Printf("[SWEEP] scanned=%d reminders=%d admin_alerts=%d auto_verified=%d failed=%d",
		report.Scanned, report.Reminders, report.AdminAlerts, report.AutoVerified, report.Failed)
	return report, nil
}

func (s *EscalationService) escalate(proof *models.LetterProof, now time.Time, report *SweepReport) error {
	elapsed := now.Sub(proof.SenderUploadedAt)

	if elapsed >= reminderAfterDays*24*time.Hour && proof.Escalation.Rank() < models.EscalationReminded.Rank() {
		if err := s.remind(proof, now); err != nil {
			return err
		}
		report.Reminders++
	}

	if elapsed >= adminAlertAfterDays*24*time.Hour && proof.Escalation.Rank() < models.EscalationAdminNotified.Rank() {
		if err := s.alertAdmin(proof, now); err != nil {
			return err
		}
		report.AdminAlerts++
	}

	if elapsed >= autoVerifyAfterDays*24*time.Hour {
		fired, err := s.autoVerify(proof, now)
		if err != nil {
			return err
		}
		if fired {
			report.AutoVerified++
		}
	}
	return nil
}

// remind nudges the receiver at day 3. The conditional update on the
// escalation state is the idempotency guard; ReminderSentAt is audit.
func (s *EscalationService) remind(proof *models.LetterProof, now time.Time) error {
	res := s.DB.Model(&models.LetterProof{}).
		Where("id = ? AND status = ? AND escalation = ?", proof.ID, models.ProofStatusSent, models.EscalationNone).
		Updates(map[string]interface{}{
			"escalation":       models.EscalationReminded,
			"reminder_sent_at": &now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Another sweep got here first.
		return nil
	}
	proof.Escalation = models.EscalationReminded
	proof.ReminderSentAt = &now

	s.Notifier.Dispatch([]models.Notification{
		note(proof.ReceiverID, models.NotifyLetterReminder,
			"Has your letter arrived?",
			fmt.Sprintf("%s sent letter #%d %d days ago. Verify it if it arrived.", proof.SenderName, proof.Step, reminderAfterDays),
			"/penpal/matches/"+proof.MatchID),
	})
	return nil
}

// alertAdmin raises the day-7 alert once, even if the day-3 stage was
// skipped by a delayed sweep.
func (s *EscalationService) alertAdmin(proof *models.LetterProof, now time.Time) error {
	res := s.DB.Model(&models.LetterProof{}).
		Where("id = ? AND status = ? AND escalation IN ?", proof.ID, models.ProofStatusSent,
			[]models.EscalationState{models.EscalationNone, models.EscalationReminded}).
		Updates(map[string]interface{}{
			"escalation":        models.EscalationAdminNotified,
			"admin_notified_at": &now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}
	proof.Escalation = models.EscalationAdminNotified
	proof.AdminNotifiedAt = &now

	s.Notifier.Dispatch([]models.Notification{
		note(models.AdminAudience, models.NotifyAdminAlert,
			"Letter unverified for a week",
			fmt.Sprintf("Letter #%d of match %s has waited %d+ days for %s to verify.", proof.Step, proof.MatchID, adminAlertAfterDays, proof.ReceiverName),
			"/admin/letters"),
	})
	return nil
}

// autoVerify is the day-10 terminal action. The WHERE clause re-checks
// status = sent so a letter the receiver verified between the sweep's
// read and this write is left alone.
func (s *EscalationService) autoVerify(proof *models.LetterProof, now time.Time) (bool, error) {
	fired := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.LetterProof{}).
			Where("id = ? AND status = ?", proof.ID, models.ProofStatusSent).
			Updates(map[string]interface{}{
				"status":           models.ProofStatusAutoVerified,
				"escalation":       models.EscalationResolved,
				"auto_verified_at": &now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		fired = true
		proof.Status = models.ProofStatusAutoVerified
		proof.Escalation = models.EscalationResolved
		proof.AutoVerifiedAt = &now

		mission, completedNow, err := advanceMission(tx, proof)
		if err != nil {
			return err
		}
		if completedNow {
			for _, uid := range []string{mission.User1ID, mission.User2ID} {
				if _, err := s.Reputation.Apply(tx, uid, EventMatchCompleted, mission.MatchID, ""); err != nil {
					return err
				}
			}
		}

		// The receiver sat on the letter for the full window. The CAS
		// above fires once per proof, so this penalty cannot repeat.
		_, err = s.Reputation.Apply(tx, proof.ReceiverID, EventLateResponse, proof.MatchID,
			fmt.Sprintf("letter #%d unverified for %d days", proof.Step, autoVerifyAfterDays))
		return err
	})
	if err != nil || !fired {
		return false, err
	}

	s.Notifier.Dispatch([]models.Notification{
		note(proof.ReceiverID, models.NotifyLetterAutoVerified,
			"Letter verified automatically",
			fmt.Sprintf("Letter #%d went unverified for %d days and was marked delivered automatically.", proof.Step, autoVerifyAfterDays),
			"/penpal/matches/"+proof.MatchID),
	})
	return true, nil
}
