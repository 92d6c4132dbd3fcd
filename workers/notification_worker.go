// workers/notification_worker.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"penpal-exchange-system/models"
	"penpal-exchange-system/utils"

	"gorm.io/gorm"
)

// pushPayload matches the JSON the push service expects per notification.
type pushPayload struct {
	UserID  string `json:"user_id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
}

// NotificationDispatchWorker drains undelivered notification rows to the
// external push service. Delivery is best-effort: a failed batch stays
// undelivered and is retried on the next tick, and nothing here ever
// touches match or letter state.
type NotificationDispatchWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string // e.g. "http://localhost:8600"
	endpointPath string // e.g. "/api/v1/push"
	serviceToken string
	batchSize    int
}

func NewNotificationDispatchWorker(db *gorm.DB, pushServiceBaseURL, endpointPath, serviceToken string) *NotificationDispatchWorker {
	return &NotificationDispatchWorker{
		db:           db,
		interval:     15 * time.Second,
		baseURL:      pushServiceBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		batchSize:    100,
	}
}

func (w *NotificationDispatchWorker) Start(ctx context.Context) {
	log.Println("Starting notification dispatch worker…")
	go w.run(ctx)
}

func (w *NotificationDispatchWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.dispatchBatch(ctx); err != nil {
				log.Printf("[NOTIFY] dispatch batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("Notification dispatch worker stopped")
			return
		}
	}
}

// dispatchBatch pushes the oldest undelivered notifications and marks
// them delivered only after the push service accepts the whole batch.
func (w *NotificationDispatchWorker) dispatchBatch(ctx context.Context) error {
	var pending []models.Notification
	if err := w.db.
		Where("delivered = ?", false).
		Order("created_at ASC").
		Limit(w.batchSize).
		Find(&pending).Error; err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	payload := make([]pushPayload, len(pending))
	ids := make([]string, len(pending))
	for i, n := range pending {
		payload[i] = pushPayload{
			UserID:  n.UserID,
			Type:    string(n.Type),
			Title:   n.Title,
			Message: n.Message,
			Link:    n.Link,
		}
		ids[i] = n.ID
	}

	if err := w.push(ctx, payload); err != nil {
		return err
	}

	now := time.Now()
	if err := w.db.Model(&models.Notification{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"delivered":    true,
			"delivered_at": &now,
		}).Error; err != nil {
		return err
	}

	log.Printf("[NOTIFY] delivered %d notifications", len(pending))
	return nil
}

func (w *NotificationDispatchWorker) push(ctx context.Context, payload []pushPayload) error {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid push service URL %q: %w", w.baseURL, err)
	}
	endpoint := base.JoinPath(w.endpointPath).String()

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.serviceToken)

	resp, err := utils.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push service returned %d: %s", resp.StatusCode, snippet)
	}
	return nil
}
