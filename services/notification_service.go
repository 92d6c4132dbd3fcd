package services

import (
	"log"

	"penpal-exchange-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationService is the write-only sink for push notifications.
// Transitions return the notifications they want sent; Dispatch persists
// them after the owning transaction has committed. Failures are logged
// and swallowed — the match/letter state is the source of truth and a
// lost notification must never roll back a transition.
type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// Dispatch persists outgoing notifications best-effort.
func (s *NotificationService) Dispatch(notes []models.Notification) {
	for i := range notes {
		if notes[i].ID == "" {
			notes[i].ID = uuid.NewString()
		}
		if err := s.DB.Create(&notes[i]).Error; err != nil {
			log.Printf("[NOTIFY] failed to queue %s for %s: %v", notes[i].Type, notes[i].UserID, err)
		}
	}
}

// note builds a pending notification row.
func note(userID string, ntype models.NotificationType, title, message, link string) models.Notification {
	return models.Notification{
		ID:      uuid.NewString(),
		UserID:  userID,
		Type:    ntype,
		Title:   title,
		Message: message,
		Link:    link,
	}
}
