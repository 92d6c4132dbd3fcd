package services

import (
	"errors"
	"fmt"

	"penpal-exchange-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// ProfileService owns recruitment profiles and the application flow that
// turns an accepted application into a match.
type ProfileService struct {
	DB *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{DB: db}
}

// RegisterProfileInput carries the recruitment post fields.
type RegisterProfileInput struct {
	ChildID        string `json:"child_id"`
	ChildName      string `json:"child_name"`
	Age            int    `json:"age"`
	EnglishLevel   string `json:"english_level"`
	Introduction   string `json:"introduction"`
	CharacterStamp string `json:"character_stamp"`
}

// RegisterProfile opens a new recruitment post. A child may have at most
// one recruiting profile at a time; matched profiles stay as history and
// a new record is created per round.
func (s *ProfileService) RegisterProfile(userID string, in RegisterProfileInput) (*models.PenpalProfile, error) {
	if in.ChildID == "" || in.ChildName == "" {
		return nil, fmt.Errorf("%w: child id and name are required", ErrInvariant)
	}

	var count int64
	if err := s.DB.Model(&models.PenpalProfile{}).
		Where("child_id = ? AND status = ?", in.ChildID, models.ProfileStatusRecruiting).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		// Friendly error for the common case; the partial unique index on
		// child_id catches the concurrent one.
		return nil, fmt.Errorf("%w: child already has an active recruitment", ErrInvariant)
	}

	profile := models.PenpalProfile{
		ID:             uuid.NewString(),
		UserID:         userID,
		ChildID:        in.ChildID,
		ChildName:      in.ChildName,
		Age:            in.Age,
		EnglishLevel:   in.EnglishLevel,
		Introduction:   in.Introduction,
		CharacterStamp: in.CharacterStamp,
		Slug:           slug.Make(in.ChildName),
		Status:         models.ProfileStatusRecruiting,
	}
	if err := s.DB.Create(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListRecruiting pages through open profiles, newest first, excluding the
// caller's own posts.
func (s *ProfileService) ListRecruiting(excludeUserID string, page, size int) ([]models.PenpalProfile, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}

	var profiles []models.PenpalProfile
	err := s.DB.
		Where("status = ? AND user_id <> ?", models.ProfileStatusRecruiting, excludeUserID).
		Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&profiles).Error
	return profiles, err
}

// GetProfile fetches one profile with its pending-application count.
func (s *ProfileService) GetProfile(profileID string) (*models.PenpalProfile, int64, error) {
	var profile models.PenpalProfile
	if err := s.DB.First(&profile, "id = ?", profileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, fmt.Errorf("%w: profile %s", ErrNotFound, profileID)
		}
		return nil, 0, err
	}

	var pending int64
	if err := s.DB.Model(&models.PenpalApplication{}).
		Where("profile_id = ? AND status = ?", profileID, models.ApplicationStatusPending).
		Count(&pending).Error; err != nil {
		return nil, 0, err
	}
	return &profile, pending, nil
}

// Apply files an application against a recruiting profile.
func (s *ProfileService) Apply(profileID, applicantID, applicantName string) (*models.PenpalApplication, []models.Notification, error) {
	var profile models.PenpalProfile
	if err := s.DB.First(&profile, "id = ?", profileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: profile %s", ErrNotFound, profileID)
		}
		return nil, nil, err
	}
	if profile.UserID == applicantID {
		return nil, nil, fmt.Errorf("%w: cannot apply to your own profile", ErrInvariant)
	}
	if profile.Status != models.ProfileStatusRecruiting {
		return nil, nil, fmt.Errorf("%w: profile is no longer recruiting", ErrInvalidState)
	}

	var dup int64
	if err := s.DB.Model(&models.PenpalApplication{}).
		Where("profile_id = ? AND applicant_id = ? AND status = ?", profileID, applicantID, models.ApplicationStatusPending).
		Count(&dup).Error; err != nil {
		return nil, nil, err
	}
	if dup > 0 {
		return nil, nil, fmt.Errorf("%w: application already pending", ErrInvariant)
	}

	app := models.PenpalApplication{
		ID:            uuid.NewString(),
		ProfileID:     profileID,
		ApplicantID:   applicantID,
		ApplicantName: applicantName,
		Status:        models.ApplicationStatusPending,
	}
	if err := s.DB.Create(&app).Error; err != nil {
		return nil, nil, err
	}

	notes := []models.Notification{
		note(profile.UserID, models.NotifyApplicationReceived,
			"New pen-pal application",
			fmt.Sprintf("%s wants to be %s's pen pal.", applicantName, profile.ChildName),
			"/penpal/applications"),
	}
	return &app, notes, nil
}

// Accept turns a pending application into a match. In one transaction it
// marks the application accepted, rejects every sibling still pending on
// the profile, flips the profile to matched and creates the match in
// address_pending. Acceptance fails if the profile is already matched.
func (s *ProfileService) Accept(applicationID, ownerID string, reputation *ReputationService) (*models.PenpalMatch, []models.Notification, error) {
	var match *models.PenpalMatch
	var notes []models.Notification

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var app models.PenpalApplication
		if err := tx.First(&app, "id = ?", applicationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: application %s", ErrNotFound, applicationID)
			}
			return err
		}

		var profile models.PenpalProfile
		if err := tx.First(&profile, "id = ?", app.ProfileID).Error; err != nil {
			return err
		}
		if profile.UserID != ownerID {
			return fmt.Errorf("%w: only the profile owner can accept applications", ErrForbidden)
		}
		if !app.Status.CanTransition(models.ApplicationStatusAccepted) {
			return fmt.Errorf("%w: application is %s", ErrInvalidState, app.Status)
		}
		if profile.Status != models.ProfileStatusRecruiting {
			return fmt.Errorf("%w: profile already matched", ErrInvariant)
		}

		if err := tx.Model(&app).Update("status", models.ApplicationStatusAccepted).Error; err != nil {
			return err
		}

		// Sibling applications lose in the same transaction.
		if err := tx.Model(&models.PenpalApplication{}).
			Where("profile_id = ? AND id <> ? AND status = ?", profile.ID, app.ID, models.ApplicationStatusPending).
			Update("status", models.ApplicationStatusRejected).Error; err != nil {
			return err
		}

		// The flip is conditional on the stored status so two concurrent
		// accepts on the same profile cannot both create a match.
		flip := tx.Model(&models.PenpalProfile{}).
			Where("id = ? AND status = ?", profile.ID, models.ProfileStatusRecruiting).
			Update("status", models.ProfileStatusMatched)
		if flip.Error != nil {
			return flip.Error
		}
		if flip.RowsAffected == 0 {
			return fmt.Errorf("%w: profile already matched", ErrInvariant)
		}

		match = &models.PenpalMatch{
			ID:        uuid.NewString(),
			ProfileID: profile.ID,
			User1ID:   profile.UserID,
			User1Name: profile.ChildName,
			User2ID:   app.ApplicantID,
			User2Name: app.ApplicantName,
			Status:    models.MatchStatusAddressPending,
		}
		if err := tx.Create(match).Error; err != nil {
			return err
		}

		for _, uid := range []string{match.User1ID, match.User2ID} {
			if _, err := reputation.Apply(tx, uid, EventMatchCreated, match.ID, ""); err != nil {
				return err
			}
		}

		notes = append(notes,
			note(app.ApplicantID, models.NotifyApplicationAccepted,
				"Application accepted",
				fmt.Sprintf("You are now matched with %s. Submit your mailing address to continue.", profile.ChildName),
				"/penpal/matches/"+match.ID))
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return match, notes, nil
}

// Reject closes a pending application without creating a match.
func (s *ProfileService) Reject(applicationID, ownerID string) (*models.PenpalApplication, []models.Notification, error) {
	var app models.PenpalApplication
	if err := s.DB.Preload("Profile").First(&app, "id = ?", applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: application %s", ErrNotFound, applicationID)
		}
		return nil, nil, err
	}
	if app.Profile.UserID != ownerID {
		return nil, nil, fmt.Errorf("%w: only the profile owner can reject applications", ErrForbidden)
	}
	if !app.Status.CanTransition(models.ApplicationStatusRejected) {
		return nil, nil, fmt.Errorf("%w: application is %s", ErrInvalidState, app.Status)
	}

	if err := s.DB.Model(&app).Update("status", models.ApplicationStatusRejected).Error; err != nil {
		return nil, nil, err
	}
	app.Status = models.ApplicationStatusRejected

	notes := []models.Notification{
		note(app.ApplicantID, models.NotifyApplicationRejected,
			"Application declined",
			fmt.Sprintf("Your application to %s was declined.", app.Profile.ChildName),
			"/penpal"),
	}
	return &app, notes, nil
}

// ListApplications returns the applications filed against the caller's profile.
func (s *ProfileService) ListApplications(profileID, ownerID string) ([]models.PenpalApplication, error) {
	var profile models.PenpalProfile
	if err := s.DB.First(&profile, "id = ?", profileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: profile %s", ErrNotFound, profileID)
		}
		return nil, err
	}
	if profile.UserID != ownerID {
		return nil, fmt.Errorf("%w: not your profile", ErrForbidden)
	}

	var apps []models.PenpalApplication
	err := s.DB.Where("profile_id = ?", profileID).Order("created_at ASC").Find(&apps).Error
	return apps, err
}
