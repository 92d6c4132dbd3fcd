package services

import (
	"errors"
	"fmt"

	"penpal-exchange-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReputationEvent is one scoring occurrence. The ledger applies each event
// exactly as told — callers are responsible for firing an event at most
// once per logical occurrence.
type ReputationEvent string

const (
	EventMatchCreated    ReputationEvent = "match_created"
	EventMatchCompleted  ReputationEvent = "match_completed"
	EventCancelByUser    ReputationEvent = "cancel_by_user"
	EventCancelByPartner ReputationEvent = "cancel_by_partner"
	EventLateResponse    ReputationEvent = "late_response"
	EventNoAddress       ReputationEvent = "no_address"
)

// Score deltas per event. The score is clamped to [0,100]; the
// non-initiating side of a cancellation is never penalized.
const (
	completedBonus    = 5
	cancelPenalty     = 10
	latePenalty       = 3
	noAddressPenalty  = 5
	scoreFloor        = 0
	scoreCeil         = 100
	initialReputation = 100
)

type ReputationService struct {
	DB *gorm.DB
}

func NewReputationService(db *gorm.DB) *ReputationService {
	return &ReputationService{DB: db}
}

// Ensure loads a user's reputation record, creating it at the initial
// score if this is the user's first scoring event.
func (s *ReputationService) Ensure(tx *gorm.DB, userID string) (*models.UserPenpalReputation, error) {
	var rep models.UserPenpalReputation
	err := tx.Where("user_id = ?", userID).First(&rep).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rep = models.UserPenpalReputation{
			ID:              uuid.NewString(),
			UserID:          userID,
			ReputationScore: initialReputation,
		}
		if err := tx.Create(&rep).Error; err != nil {
			return nil, err
		}
		return &rep, nil
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// Apply records one scoring event inside the caller's transaction. Deltas
// and counter bumps are applied as SQL expressions against the stored row,
// so concurrent events for the same user compose instead of overwriting
// each other's writes.
func (s *ReputationService) Apply(tx *gorm.DB, userID string, event ReputationEvent, matchID, reason string) (*models.UserPenpalReputation, error) {
	if _, err := s.Ensure(tx, userID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	switch event {
	case EventMatchCreated:
		updates["total_matches"] = gorm.Expr("total_matches + 1")
	case EventMatchCompleted:
		updates["completed_matches"] = gorm.Expr("completed_matches + 1")
		updates["reputation_score"] = gorm.Expr("reputation_score + ?", completedBonus)
	case EventCancelByUser:
		updates["cancelled_by_user"] = gorm.Expr("cancelled_by_user + 1")
		updates["reputation_score"] = gorm.Expr("reputation_score - ?", cancelPenalty)
		if err := s.appendPenalty(tx, userID, matchID, models.PenaltyCancelRequest, "major", cancelPenalty, reason); err != nil {
			return nil, err
		}
	case EventCancelByPartner:
		updates["cancelled_by_partner"] = gorm.Expr("cancelled_by_partner + 1")
	case EventLateResponse:
		updates["reputation_score"] = gorm.Expr("reputation_score - ?", latePenalty)
		if err := s.appendPenalty(tx, userID, matchID, models.PenaltyLateResponse, "minor", latePenalty, reason); err != nil {
			return nil, err
		}
	case EventNoAddress:
		updates["reputation_score"] = gorm.Expr("reputation_score - ?", noAddressPenalty)
		if err := s.appendPenalty(tx, userID, matchID, models.PenaltyNoAddress, "minor", noAddressPenalty, reason); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown reputation event %q", ErrInvariant, event)
	}

	if err := tx.Model(&models.UserPenpalReputation{}).
		Where("user_id = ?", userID).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	// Clamp in place; each statement matches only when the score actually
	// left the band.
	if err := tx.Model(&models.UserPenpalReputation{}).
		Where("user_id = ? AND reputation_score > ?", userID, scoreCeil).
		Update("reputation_score", scoreCeil).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&models.UserPenpalReputation{}).
		Where("user_id = ? AND reputation_score < ?", userID, scoreFloor).
		Update("reputation_score", scoreFloor).Error; err != nil {
		return nil, err
	}

	var rep models.UserPenpalReputation
	if err := tx.Where("user_id = ?", userID).First(&rep).Error; err != nil {
		return nil, err
	}
	return &rep, nil
}

func (s *ReputationService) appendPenalty(tx *gorm.DB, userID, matchID string, ptype models.PenaltyType, severity string, points int, reason string) error {
	record := models.PenaltyRecord{
		ID:       uuid.NewString(),
		UserID:   userID,
		MatchID:  matchID,
		Type:     ptype,
		Severity: severity,
		Points:   points,
		Reason:   reason,
	}
	return tx.Create(&record).Error
}

// Get returns a user's reputation with penalty history, creating the
// record lazily so first-time users see the initial score.
func (s *ReputationService) Get(userID string) (*models.UserPenpalReputation, error) {
	rep, err := s.Ensure(s.DB, userID)
	if err != nil {
		return nil, err
	}
	if err := s.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&rep.Penalties).Error; err != nil {
		return nil, err
	}
	return rep, nil
}
