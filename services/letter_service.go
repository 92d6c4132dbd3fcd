package services

import (
	"errors"
	"fmt"
	"time"

	"penpal-exchange-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LetterService owns the per-step letter-proof lifecycle and mission
// progression.
type LetterService struct {
	DB         *gorm.DB
	Reputation *ReputationService
}

func NewLetterService(db *gorm.DB, reputation *ReputationService) *LetterService {
	return &LetterService{DB: db, Reputation: reputation}
}

// Send registers a letter photo for the next mission step. The proof is
// created in sent; the mission cursor moves only on resolution.
func (s *LetterService) Send(matchID, senderID, imageURL string) (*models.LetterProof, []models.Notification, error) {
	if imageURL == "" {
		return nil, nil, fmt.Errorf("%w: a letter photo is required", ErrInvariant)
	}

	var proof *models.LetterProof
	var notes []models.Notification

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var match models.PenpalMatch
		if err := tx.First(&match, "id = ?", matchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: match %s", ErrNotFound, matchID)
			}
			return err
		}
		if !match.HasParticipant(senderID) {
			return fmt.Errorf("%w: you are not a participant in this match", ErrForbidden)
		}
		if match.Status != models.MatchStatusCompleted {
			return fmt.Errorf("%w: match is %s, letters start after approval", ErrInvalidState, match.Status)
		}

		var mission models.LetterMission
		if err := tx.First(&mission, "match_id = ?", matchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: mission for match %s", ErrNotFound, matchID)
			}
			return err
		}
		if mission.IsCompleted && !mission.Extended {
			return fmt.Errorf("%w: mission is complete", ErrInvalidState)
		}

		step := mission.CurrentStep + 1
		if step > mission.TotalSteps && !mission.Extended {
			return fmt.Errorf("%w: step %d exceeds the mission's %d steps", ErrInvariant, step, mission.TotalSteps)
		}

		var open int64
		if err := tx.Model(&models.LetterProof{}).
			Where("match_id = ? AND step = ? AND status IN ?", matchID, step,
				[]models.ProofStatus{models.ProofStatusSent, models.ProofStatusDisputed}).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return fmt.Errorf("%w: a letter for step %d is already outstanding", ErrInvariant, step)
		}

		receiverID := match.PartnerOf(senderID)
		proof = &models.LetterProof{
			ID:               uuid.NewString(),
			MatchID:          matchID,
			Step:             step,
			SenderID:         senderID,
			SenderName:       match.PartnerNameOf(receiverID),
			ReceiverID:       receiverID,
			ReceiverName:     match.PartnerNameOf(senderID),
			SenderImageURL:   imageURL,
			SenderUploadedAt: time.Now(),
			Status:           models.ProofStatusSent,
			Escalation:       models.EscalationNone,
		}
		if err := tx.Create(proof).Error; err != nil {
			return err
		}

		notes = append(notes, note(receiverID, models.NotifyLetterSent,
			"A letter is on its way",
			fmt.Sprintf("%s mailed letter #%d. Upload a photo when it arrives.", proof.SenderName, step),
			"/penpal/matches/"+matchID))
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return proof, notes, nil
}

// Receive confirms delivery. Only the recorded receiver may verify; the
// terminal write is conditional on the proof still being sent so a
// concurrent sweep auto-verify cannot double-advance the mission.
func (s *LetterService) Receive(proofID, receiverID, imageURL string) (*models.LetterProof, []models.Notification, error) {
	if imageURL == "" {
		return nil, nil, fmt.Errorf("%w: a photo of the received letter is required", ErrInvariant)
	}

	var proof models.LetterProof
	var notes []models.Notification

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&proof, "id = ?", proofID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: letter proof %s", ErrNotFound, proofID)
			}
			return err
		}
		if proof.ReceiverID != receiverID {
			return fmt.Errorf("%w: only the receiver can verify this letter", ErrForbidden)
		}
		if !proof.Status.CanTransition(models.ProofStatusReceived) {
			return fmt.Errorf("%w: this letter has already been %s", ErrInvalidState, proof.Status)
		}

		now := time.Now()
		res := tx.Model(&models.LetterProof{}).
			Where("id = ? AND status = ?", proofID, models.ProofStatusSent).
			Updates(map[string]interface{}{
				"status":               models.ProofStatusReceived,
				"receiver_image_url":   imageURL,
				"receiver_uploaded_at": &now,
				"escalation":           models.EscalationResolved,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: this letter was verified by another action", ErrInvalidState)
		}
		proof.Status = models.ProofStatusReceived
		proof.ReceiverImageURL = &imageURL
		proof.ReceiverUploadedAt = &now
		proof.Escalation = models.EscalationResolved

		mission, completedNow, err := advanceMission(tx, &proof)
		if err != nil {
			return err
		}

		notes = append(notes, note(proof.SenderID, models.NotifyLetterReceived,
			"Letter delivered",
			fmt.Sprintf("%s confirmed letter #%d arrived.", proof.ReceiverName, proof.Step),
			"/penpal/matches/"+proof.MatchID))
		if completedNow {
			if err := s.creditCompletion(tx, mission); err != nil {
				return err
			}
			for _, uid := range []string{mission.User1ID, mission.User2ID} {
				notes = append(notes, note(uid, models.NotifyLetterReceived,
					"Mission complete",
					fmt.Sprintf("All %d letters exchanged. Congratulations!", mission.TotalSteps),
					"/penpal/matches/"+proof.MatchID))
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &proof, notes, nil
}

// Dispute lets the receiver contest a letter that never arrived. The
// mission does not advance; an admin resolves it.
func (s *LetterService) Dispute(proofID, receiverID, reason string) (*models.LetterProof, []models.Notification, error) {
	if reason == "" {
		return nil, nil, fmt.Errorf("%w: a dispute reason is required", ErrInvariant)
	}

	var proof models.LetterProof
	if err := s.DB.First(&proof, "id = ?", proofID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: letter proof %s", ErrNotFound, proofID)
		}
		return nil, nil, err
	}
	if proof.ReceiverID != receiverID {
		return nil, nil, fmt.Errorf("%w: only the receiver can dispute this letter", ErrForbidden)
	}
	if !proof.Status.CanTransition(models.ProofStatusDisputed) {
		return nil, nil, fmt.Errorf("%w: this letter has already been %s", ErrInvalidState, proof.Status)
	}

	res := s.DB.Model(&models.LetterProof{}).
		Where("id = ? AND status = ?", proofID, models.ProofStatusSent).
		Updates(map[string]interface{}{
			"status":         models.ProofStatusDisputed,
			"dispute_reason": reason,
		})
	if res.Error != nil {
		return nil, nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil, fmt.Errorf("%w: this letter was resolved by another action", ErrInvalidState)
	}
	proof.Status = models.ProofStatusDisputed
	proof.DisputeReason = reason

	notes := []models.Notification{
		note(models.AdminAudience, models.NotifyLetterDisputed,
			"Letter dispute filed",
			fmt.Sprintf("%s disputes letter #%d of match %s: %s", proof.ReceiverName, proof.Step, proof.MatchID, reason),
			"/admin/letters/disputed"),
	}
	return &proof, notes, nil
}

// ResolveDispute is the admin verdict. Approving the dispute cancels the
// proof (letter deemed lost, sender resends); rejecting it auto-verifies
// the proof and advances the mission as a normal receipt would.
func (s *LetterService) ResolveDispute(proofID string, approve bool) (*models.LetterProof, []models.Notification, error) {
	var proof models.LetterProof
	var notes []models.Notification

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&proof, "id = ?", proofID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: letter proof %s", ErrNotFound, proofID)
			}
			return err
		}
		if proof.Status != models.ProofStatusDisputed {
			return fmt.Errorf("%w: letter is %s, not disputed", ErrInvalidState, proof.Status)
		}

		if approve {
			res := tx.Model(&models.LetterProof{}).
				Where("id = ? AND status = ?", proofID, models.ProofStatusDisputed).
				Updates(map[string]interface{}{
					"status":     models.ProofStatusCancelled,
					"escalation": models.EscalationResolved,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: dispute already resolved", ErrInvalidState)
			}
			proof.Status = models.ProofStatusCancelled
			proof.Escalation = models.EscalationResolved

			notes = append(notes, note(proof.SenderID, models.NotifyDisputeResolved,
				"Letter marked undelivered",
				fmt.Sprintf("Letter #%d was ruled undelivered. Please resend it.", proof.Step),
				"/penpal/matches/"+proof.MatchID))
			return nil
		}

		now := time.Now()
		res := tx.Model(&models.LetterProof{}).
			Where("id = ? AND status = ?", proofID, models.ProofStatusDisputed).
			Updates(map[string]interface{}{
				"status":           models.ProofStatusAutoVerified,
				"escalation":       models.EscalationResolved,
				"auto_verified_at": &now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: dispute already resolved", ErrInvalidState)
		}
		proof.Status = models.ProofStatusAutoVerified
		proof.Escalation = models.EscalationResolved
		proof.AutoVerifiedAt = &now

		mission, completedNow, err := advanceMission(tx, &proof)
		if err != nil {
			return err
		}
		if completedNow {
			if err := s.creditCompletion(tx, mission); err != nil {
				return err
			}
		}

		notes = append(notes, note(proof.ReceiverID, models.NotifyDisputeResolved,
			"Dispute rejected",
			fmt.Sprintf("Letter #%d was ruled delivered and the mission moved on. Please verify letters you receive.", proof.Step),
			"/penpal/matches/"+proof.MatchID))
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &proof, notes, nil
}

// Mission returns a participant's mission progress.
func (s *LetterService) Mission(matchID, callerID string) (*models.LetterMission, error) {
	var mission models.LetterMission
	if err := s.DB.First(&mission, "match_id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: mission for match %s", ErrNotFound, matchID)
		}
		return nil, err
	}
	if mission.User1ID != callerID && mission.User2ID != callerID {
		return nil, fmt.Errorf("%w: you are not a participant in this match", ErrForbidden)
	}
	return &mission, nil
}

// ExtendMission lets the admin reopen a mission for indefinite
// continuation past the nominal step count.
func (s *LetterService) ExtendMission(missionID string) (*models.LetterMission, error) {
	var mission models.LetterMission
	if err := s.DB.First(&mission, "id = ?", missionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: mission %s", ErrNotFound, missionID)
		}
		return nil, err
	}
	if mission.Extended {
		return &mission, nil
	}
	if err := s.DB.Model(&mission).Update("extended", true).Error; err != nil {
		return nil, err
	}
	mission.Extended = true
	return &mission, nil
}

// DisputedQueue lists open disputes for the admin, oldest first.
func (s *LetterService) DisputedQueue() ([]models.LetterProof, error) {
	var proofs []models.LetterProof
	err := s.DB.
		Where("status = ?", models.ProofStatusDisputed).
		Order("updated_at ASC").
		Find(&proofs).Error
	return proofs, err
}

// creditCompletion fires the completion bonus for both participants,
// once, when the mission's last step lands.
func (s *LetterService) creditCompletion(tx *gorm.DB, mission *models.LetterMission) error {
	for _, uid := range []string{mission.User1ID, mission.User2ID} {
		if _, err := s.Reputation.Apply(tx, uid, EventMatchCompleted, mission.MatchID, ""); err != nil {
			return err
		}
	}
	return nil
}

// advanceMission moves the mission cursor to the proof's step and marks
// the step done. Shared by receipt, dispute rejection and sweep
// auto-verification so the three paths cannot drift apart. The bool
// reports whether this very call completed the mission.
func advanceMission(tx *gorm.DB, proof *models.LetterProof) (*models.LetterMission, bool, error) {
	var mission models.LetterMission
	if err := tx.First(&mission, "match_id = ?", proof.MatchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("%w: mission for match %s", ErrNotFound, proof.MatchID)
		}
		return nil, false, err
	}

	wasCompleted := mission.IsCompleted
	mission.MarkStep(proof.Step)
	if err := tx.Model(&models.LetterMission{}).
		Where("id = ?", mission.ID).
		Updates(map[string]interface{}{
			"current_step": mission.CurrentStep,
			"steps_json":   mission.StepsJSON,
			"is_completed": mission.IsCompleted,
		}).Error; err != nil {
		return nil, false, err
	}
	return &mission, mission.IsCompleted && !wasCompleted, nil
}
