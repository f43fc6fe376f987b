package db_models

import "gorm.io/datatypes"

type WebhookOutcome string

const (
	WebhookHandled WebhookOutcome = "handled"
	WebhookIgnored WebhookOutcome = "ignored"
	WebhookFailed  WebhookOutcome = "failed"
)

// WebhookEvent is the delivery log, one row per processor event id.
type WebhookEvent struct {
	BaseModel
	EventID         string         `gorm:"uniqueIndex;not null"`
	Type            string         `gorm:"index;not null"`
	StripeAccountID string         `gorm:"index"`
	Outcome         WebhookOutcome `gorm:"index;not null"`
	Error           string
	Payload         datatypes.JSON `gorm:"type:jsonb"`
	Attempts        int            `gorm:"not null;default:1"`
}
