package services

import (
	"errors"
	"fmt"
	"time"

	"penpal-exchange-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MatchService owns the match lifecycle: address submission, the admin
// review gate and address disclosure.
type MatchService struct {
	DB *gorm.DB
}

func NewMatchService(db *gorm.DB) *MatchService {
	return &MatchService{DB: db}
}

// AddressInput carries one side's mailing address and consent.
type AddressInput struct {
	ParentName string `json:"parent_name"`
	Phone      string `json:"phone"`
	Postcode   string `json:"postcode"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2"`
	Consent    bool   `json:"consent"`
}

// MatchDetail is a participant's view of a match. PartnerAddress is
// populated only once the match is completed.
type MatchDetail struct {
	Match          *models.PenpalMatch   `json:"match"`
	PartnerAddress *models.ParentAddress `json:"partner_address,omitempty"`
}

// SubmitAddress records one side's address. Two participants can submit
// at nearly the same instant, so both the flag write and the
// address_pending → admin_review flip are conditional updates: the flip
// fires only for the writer that observes both flags true, and fires
// exactly once.
func (s *MatchService) SubmitAddress(matchID, userID string, in AddressInput) (*models.PenpalMatch, []models.Notification, error) {
	var updated models.PenpalMatch
	var notes []models.Notification

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var match models.PenpalMatch
		if err := tx.First(&match, "id = ?", matchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: match %s", ErrNotFound, matchID)
			}
			return err
		}
		if !match.HasParticipant(userID) {
			return fmt.Errorf("%w: you are not a participant in this match", ErrForbidden)
		}
		if match.Status != models.MatchStatusAddressPending {
			// Re-submission after the side already submitted is a no-op
			// success; any other state rejects.
			if s.sideSubmitted(&match, userID) {
				updated = match
				return nil
			}
			return fmt.Errorf("%w: match is %s", ErrInvalidState, match.Status)
		}
		if s.sideSubmitted(&match, userID) {
			updated = match
			return nil
		}
		if !in.Consent {
			return fmt.Errorf("%w: parental consent is required to share an address", ErrInvariant)
		}
		if in.ParentName == "" || in.Address1 == "" {
			return fmt.Errorf("%w: parent name and address are required", ErrInvariant)
		}

		addr := models.ParentAddress{
			ID:         uuid.NewString(),
			UserID:     userID,
			MatchID:    matchID,
			ParentName: in.ParentName,
			Phone:      in.Phone,
			Postcode:   in.Postcode,
			Address1:   in.Address1,
			Address2:   in.Address2,
			Consent:    in.Consent,
		}
		if err := tx.Create(&addr).Error; err != nil {
			return err
		}

		flagCol := "user1_address_submitted"
		if userID == match.User2ID {
			flagCol = "user2_address_submitted"
		}
		res := tx.Model(&models.PenpalMatch{}).
			Where("id = ? AND status = ?", matchID, models.MatchStatusAddressPending).
			Update(flagCol, true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: match changed state during submission", ErrInvalidState)
		}

		// The flip runs against the stored flags, not the ones read above,
		// so a concurrent submission by the other side cannot be lost and
		// the transition cannot double-fire.
		flip := tx.Model(&models.PenpalMatch{}).
			Where("id = ? AND status = ? AND user1_address_submitted = ? AND user2_address_submitted = ?",
				matchID, models.MatchStatusAddressPending, true, true).
			Update("status", models.MatchStatusAdminReview)
		if flip.Error != nil {
			return flip.Error
		}

		if err := tx.First(&updated, "id = ?", matchID).Error; err != nil {
			return err
		}

		partnerID := match.PartnerOf(userID)
		if flip.RowsAffected > 0 {
			notes = append(notes, note(models.AdminAudience, models.NotifyAdminAlert,
				"Match ready for review",
				fmt.Sprintf("Both addresses submitted for match %s (%s / %s).", matchID, match.User1Name, match.User2Name),
				"/admin/matches/review"))
		} else {
			notes = append(notes, note(partnerID, models.NotifyAddressSubmitted,
				"Your pen pal submitted an address",
				"Submit your mailing address too so the exchange can start.",
				"/penpal/matches/"+matchID))
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &updated, notes, nil
}

func (s *MatchService) sideSubmitted(match *models.PenpalMatch, userID string) bool {
	if userID == match.User1ID {
		return match.User1AddressSubmitted
	}
	return match.User2AddressSubmitted
}

// AdminApprove moves an admin_review match to completed and creates its
// letter mission. The status flip is conditional so two admins clicking
// approve at once create exactly one mission.
func (s *MatchService) AdminApprove(matchID string) (*models.PenpalMatch, *models.LetterMission, []models.Notification, error) {
	var match models.PenpalMatch
	var mission *models.LetterMission
	var notes []models.Notification

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&match, "id = ?", matchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: match %s", ErrNotFound, matchID)
			}
			return err
		}
		if !match.Status.CanTransition(models.MatchStatusCompleted) {
			return fmt.Errorf("%w: match is %s, not %s", ErrInvalidState, match.Status, models.MatchStatusAdminReview)
		}

		now := time.Now()
		res := tx.Model(&models.PenpalMatch{}).
			Where("id = ? AND status = ?", matchID, models.MatchStatusAdminReview).
			Updates(map[string]interface{}{
				"status":      models.MatchStatusCompleted,
				"approved_at": &now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: match changed state during approval", ErrInvalidState)
		}
		match.Status = models.MatchStatusCompleted
		match.ApprovedAt = &now

		mission = models.NewLetterMission(uuid.NewString(), &match)
		if err := tx.Create(mission).Error; err != nil {
			return err
		}

		for _, uid := range []string{match.User1ID, match.User2ID} {
			notes = append(notes, note(uid, models.NotifyMatchApproved,
				"Pen-pal exchange approved",
				"Your match was approved. Your pen pal's address is now visible — send your first letter!",
				"/penpal/matches/"+matchID))
		}
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return &match, mission, notes, nil
}

// AdminReject closes an admin_review match with a mandatory reason. No
// reputation penalty applies — this is an admin judgment, not a user
// cancellation — and both profiles reopen for recruiting.
func (s *MatchService) AdminReject(matchID, reason string) (*models.PenpalMatch, []models.Notification, error) {
	if reason == "" {
		return nil, nil, fmt.Errorf("%w: a rejection reason is required", ErrInvariant)
	}

	var match models.PenpalMatch
	var notes []models.Notification

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&match, "id = ?", matchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: match %s", ErrNotFound, matchID)
			}
			return err
		}
		if match.Status != models.MatchStatusAdminReview {
			return fmt.Errorf("%w: match is %s, not %s", ErrInvalidState, match.Status, models.MatchStatusAdminReview)
		}

		now := time.Now()
		res := tx.Model(&models.PenpalMatch{}).
			Where("id = ? AND status = ?", matchID, models.MatchStatusAdminReview).
			Updates(map[string]interface{}{
				"status":        models.MatchStatusCancelled,
				"rejected_at":   &now,
				"cancelled_at":  &now,
				"reject_reason": reason,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: match changed state during rejection", ErrInvalidState)
		}
		match.Status = models.MatchStatusCancelled
		match.RejectedAt = &now
		match.CancelledAt = &now
		match.RejectReason = reason

		if err := restoreProfiles(tx, &match); err != nil {
			return err
		}

		for _, uid := range []string{match.User1ID, match.User2ID} {
			notes = append(notes, note(uid, models.NotifyMatchRejected,
				"Pen-pal match not approved",
				fmt.Sprintf("An admin closed this match: %s. Your profile is recruiting again.", reason),
				"/penpal"))
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &match, notes, nil
}

// restoreProfiles reopens the recruiting profile this match consumed so
// the child can look for a new pen pal. Scoped to the match's own profile:
// other matched profiles the same users hold through unrelated matches are
// left alone.
func restoreProfiles(tx *gorm.DB, match *models.PenpalMatch) error {
	if match.ProfileID == "" {
		return nil
	}
	return tx.Model(&models.PenpalProfile{}).
		Where("id = ? AND status = ?", match.ProfileID, models.ProfileStatusMatched).
		Update("status", models.ProfileStatusRecruiting).Error
}

// GetMatch returns a participant's view with the address gate applied:
// the partner's address is attached only when the match is completed.
// Any earlier state fails closed — the address row exists from the moment
// it is submitted but is never exposed before approval.
func (s *MatchService) GetMatch(matchID, callerID string) (*MatchDetail, error) {
	var match models.PenpalMatch
	if err := s.DB.First(&match, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: match %s", ErrNotFound, matchID)
		}
		return nil, err
	}
	if !match.HasParticipant(callerID) {
		return nil, fmt.Errorf("%w: you are not a participant in this match", ErrForbidden)
	}

	detail := &MatchDetail{Match: &match}
	if match.Status == models.MatchStatusCompleted {
		var addr models.ParentAddress
		err := s.DB.Where("match_id = ? AND user_id = ?", matchID, match.PartnerOf(callerID)).First(&addr).Error
		if err == nil {
			detail.PartnerAddress = &addr
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return detail, nil
}

// PartnerAddress fetches the counterpart's address through the disclosure
// gate. Callable only by a participant, only once the match is completed.
func (s *MatchService) PartnerAddress(matchID, callerID string) (*models.ParentAddress, error) {
	var match models.PenpalMatch
	if err := s.DB.First(&match, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: match %s", ErrNotFound, matchID)
		}
		return nil, err
	}
	if !match.HasParticipant(callerID) {
		return nil, fmt.Errorf("%w: you are not a participant in this match", ErrForbidden)
	}
	if match.Status != models.MatchStatusCompleted {
		return nil, fmt.Errorf("%w: addresses are disclosed only after admin approval", ErrInvalidState)
	}

	var addr models.ParentAddress
	if err := s.DB.Where("match_id = ? AND user_id = ?", matchID, match.PartnerOf(callerID)).First(&addr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: partner address", ErrNotFound)
		}
		return nil, err
	}
	return &addr, nil
}

// ListForUser returns every match the user participates in, newest first.
func (s *MatchService) ListForUser(userID string) ([]models.PenpalMatch, error) {
	var matches []models.PenpalMatch
	err := s.DB.
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&matches).Error
	return matches, err
}

// ReviewQueue lists matches waiting for admin approval, oldest first.
func (s *MatchService) ReviewQueue() ([]models.PenpalMatch, error) {
	var matches []models.PenpalMatch
	err := s.DB.
		Where("status = ?", models.MatchStatusAdminReview).
		Order("updated_at ASC").
		Find(&matches).Error
	return matches, err
}
