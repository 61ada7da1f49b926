package service

import (
	"encoding/json"
	"time"

	"fitcrush/internal/models"

	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"
)

// EventPayload is the body of an outbox event. Fields not relevant to the
// event type stay empty.
type EventPayload struct {
	Type           string `json:"type"`
	UserID         uint   `json:"user_id"`
	ActorID        uint   `json:"actor_id,omitempty"`
	ActorName      string `json:"actor_name,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	MessageID      uint   `json:"message_id,omitempty"`
	Preview        string `json:"preview,omitempty"`
	Reference      string `json:"reference,omitempty"`
	PackageID      string `json:"package_id,omitempty"`
	Crushes        int    `json:"crushes,omitempty"`
	OccurredAt     string `json:"occurred_at"`
}

func newOutboxEvent(p EventPayload, now time.Time) (*models.OutboxEvent, error) {
	p.OccurredAt = now.UTC().Format(time.RFC3339)
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return &models.OutboxEvent{
		EventID:       ulid.Make().String(),
		Type:          p.Type,
		UserID:        p.UserID,
		Payload:       datatypes.JSON(body),
		Status:        models.OutboxPending,
		NextAttemptAt: now,
	}, nil
}

// DecodePayload reads an outbox event body.
func DecodePayload(evt *models.OutboxEvent) (EventPayload, error) {
	var p EventPayload
	err := json.Unmarshal(evt.Payload, &p)
	return p, err
}
