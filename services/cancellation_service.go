package services

import (
	"errors"
	"fmt"
	"time"

	"penpal-exchange-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CancellationService runs the request/arbitration flow that terminates a
// match and applies its reputation consequences.
type CancellationService struct {
	DB         *gorm.DB
	Reputation *ReputationService
}

func NewCancellationService(db *gorm.DB, reputation *ReputationService) *CancellationService {
	return &CancellationService{DB: db, Reputation: reputation}
}

// Request files a cancellation for admin arbitration. The match stays
// untouched until the admin decides; there is no expiry on the request.
func (s *CancellationService) Request(matchID, requesterID, reason string) (*models.PenpalCancelRequest, []models.Notification, error) {
	if reason == "" {
		return nil, nil, fmt.Errorf("%w: a cancellation reason is required", ErrInvariant)
	}

	var match models.PenpalMatch
	if err := s.DB.First(&match, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: match %s", ErrNotFound, matchID)
		}
		return nil, nil, err
	}
	if !match.HasParticipant(requesterID) {
		return nil, nil, fmt.Errorf("%w: you are not a participant in this match", ErrForbidden)
	}
	if match.IsTerminal() {
		return nil, nil, fmt.Errorf("%w: match is already cancelled", ErrInvalidState)
	}

	var open int64
	if err := s.DB.Model(&models.PenpalCancelRequest{}).
		Where("match_id = ? AND status = ?", matchID, models.CancelRequestPending).
		Count(&open).Error; err != nil {
		return nil, nil, err
	}
	if open > 0 {
		// Friendly error for the common case; the partial unique index on
		// match_id catches the concurrent one.
		return nil, nil, fmt.Errorf("%w: a cancellation request is already pending for this match", ErrInvariant)
	}

	partnerID := match.PartnerOf(requesterID)
	req := models.PenpalCancelRequest{
		ID:            uuid.NewString(),
		MatchID:       matchID,
		RequesterID:   requesterID,
		RequesterName: match.PartnerNameOf(partnerID),
		PartnerID:     partnerID,
		PartnerName:   match.PartnerNameOf(requesterID),
		Reason:        reason,
		Status:        models.CancelRequestPending,
	}
	if err := s.DB.Create(&req).Error; err != nil {
		return nil, nil, err
	}

	notes := []models.Notification{
		note(models.AdminAudience, models.NotifyAdminAlert,
			"Cancellation requested",
			fmt.Sprintf("%s asked to cancel match %s: %s", req.RequesterName, matchID, reason),
			"/admin/cancel-requests"),
	}
	return &req, notes, nil
}

// Resolve is the admin verdict. Approval cancels the match, penalizes the
// requester, records the partner as the non-initiating side (never
// penalized) and reopens both profiles. Rejection leaves the match alive
// and records the admin's reason on the request.
func (s *CancellationService) Resolve(requestID string, approve bool, adminNote string) (*models.PenpalCancelRequest, []models.Notification, error) {
	var req models.PenpalCancelRequest
	var notes []models.Notification

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&req, "id = ?", requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: cancel request %s", ErrNotFound, requestID)
			}
			return err
		}
		if !req.Status.CanTransition(models.CancelRequestApproved) {
			return fmt.Errorf("%w: request is %s", ErrInvalidState, req.Status)
		}

		now := time.Now()

		if !approve {
			if adminNote == "" {
				return fmt.Errorf("%w: a rejection reason is required", ErrInvariant)
			}
			res := tx.Model(&models.PenpalCancelRequest{}).
				Where("id = ? AND status = ?", requestID, models.CancelRequestPending).
				Updates(map[string]interface{}{
					"status":       models.CancelRequestRejected,
					"admin_note":   adminNote,
					"processed_at": &now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: request already processed", ErrInvalidState)
			}
			req.Status = models.CancelRequestRejected
			req.AdminNote = adminNote
			req.ProcessedAt = &now

			notes = append(notes, note(req.RequesterID, models.NotifyCancelRejected,
				"Cancellation declined",
				fmt.Sprintf("Your cancellation request was declined: %s", adminNote),
				"/penpal/matches/"+req.MatchID))
			return nil
		}

		res := tx.Model(&models.PenpalCancelRequest{}).
			Where("id = ? AND status = ?", requestID, models.CancelRequestPending).
			Updates(map[string]interface{}{
				"status":       models.CancelRequestApproved,
				"admin_note":   adminNote,
				"processed_at": &now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: request already processed", ErrInvalidState)
		}
		req.Status = models.CancelRequestApproved
		req.AdminNote = adminNote
		req.ProcessedAt = &now

		var match models.PenpalMatch
		if err := tx.First(&match, "id = ?", req.MatchID).Error; err != nil {
			return err
		}
		if match.IsTerminal() {
			return fmt.Errorf("%w: match is already cancelled", ErrInvalidState)
		}

		cancel := tx.Model(&models.PenpalMatch{}).
			Where("id = ? AND status <> ?", match.ID, models.MatchStatusCancelled).
			Updates(map[string]interface{}{
				"status":        models.MatchStatusCancelled,
				"cancelled_at":  &now,
				"cancel_reason": req.Reason,
				"cancelled_by":  req.RequesterID,
			})
		if cancel.Error != nil {
			return cancel.Error
		}
		if cancel.RowsAffected == 0 {
			return fmt.Errorf("%w: match changed state during cancellation", ErrInvalidState)
		}
		match.Status = models.MatchStatusCancelled

		if _, err := s.Reputation.Apply(tx, req.RequesterID, EventCancelByUser, match.ID, req.Reason); err != nil {
			return err
		}
		if _, err := s.Reputation.Apply(tx, req.PartnerID, EventCancelByPartner, match.ID, req.Reason); err != nil {
			return err
		}

		if err := restoreProfiles(tx, &match); err != nil {
			return err
		}

		notes = append(notes, note(req.PartnerID, models.NotifyCancelApproved,
			"Pen-pal exchange ended",
			fmt.Sprintf("%s ended your pen-pal exchange: %s. Your profile is recruiting again.", req.RequesterName, req.Reason),
			"/penpal"))
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &req, notes, nil
}

// PendingQueue lists unresolved requests, oldest first, with their age so
// stale ones are visible.
type PendingCancelRequest struct {
	models.PenpalCancelRequest
	AgeDays int `json:"age_days"`
}

func (s *CancellationService) PendingQueue(now time.Time) ([]PendingCancelRequest, error) {
	var reqs []models.PenpalCancelRequest
	if err := s.DB.
		Where("status = ?", models.CancelRequestPending).
		Order("created_at ASC").
		Find(&reqs).Error; err != nil {
		return nil, err
	}

	out := make([]PendingCancelRequest, len(reqs))
	for i, r := range reqs {
		out[i] = PendingCancelRequest{
			PenpalCancelRequest: r,
			AgeDays:             int(now.Sub(r.CreatedAt).Hours() / 24),
		}
	}
	return out, nil
}
