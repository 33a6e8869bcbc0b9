package model

import (
	"strings"
	"time"
)

type APIKey struct {
	ID            uint   `gorm:"primaryKey"`
	AccountID     string `gorm:"size:64;index;not null"`
	PublicID      string `gorm:"size:64;uniqueIndex;not null"` // shareable identifier, pk_live_* / pk_test_*
	SecretHash    string `gorm:"size:128;not null"`            // bcrypt; the raw secret is shown exactly once
	Tier          string `gorm:"size:16;index;not null"`       // free, starter, pro, enterprise
	IsActive      bool   `gorm:"not null;default:true"`
	Sandbox       bool   `gorm:"not null;default:false"`
	DailyLimit    int64  `gorm:"not null"`
	DailyRequests int64  `gorm:"not null;default:0"`
	LastResetAt   time.Time
	LastUsedAt    *time.Time
	Permissions   string `gorm:"size:256;not null"` // comma-separated
	ExpiresAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PermissionList splits the stored permission set.
func (k *APIKey) PermissionList() []string {
	if k.Permissions == "" {
		return nil
	}
	return strings.Split(k.Permissions, ",")
}

type Webhook struct {
	ID              uint   `gorm:"primaryKey"`
	APIKeyID        uint   `gorm:"index;not null"`
	URL             string `gorm:"size:512;not null"`
	Events          string `gorm:"size:512;not null"` // comma-separated event names, "*" subscribes to all
	Secret          string `gorm:"size:64;not null"`  // HMAC signing secret, generated at registration
	IsActive        bool   `gorm:"not null;default:true"`
	FailureCount    int    `gorm:"not null;default:0"` // consecutive exhausted delivery sequences
	LastDeliveredAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EventList splits the stored subscription set.
func (w *Webhook) EventList() []string {
	if w.Events == "" {
		return nil
	}
	return strings.Split(w.Events, ",")
}

// SubscribedTo reports whether the webhook should receive the given event.
func (w *Webhook) SubscribedTo(event string) bool {
	for _, e := range w.EventList() {
		if e == "*" || e == event {
			return true
		}
	}
	return false
}

// WebhookDelivery is an append-only record of a single delivery attempt.
type WebhookDelivery struct {
	ID         uint   `gorm:"primaryKey"`
	WebhookID  uint   `gorm:"index;not null"`
	DeliveryID string `gorm:"size:64;index;not null"` // shared across attempts of one sequence
	Event      string `gorm:"size:64;index;not null"`
	Payload    string `gorm:"type:text"`
	StatusCode int    // 0 when the attempt never reached the network
	Response   string `gorm:"size:512"` // truncated response body
	Attempt    int    `gorm:"not null"`
	Success    bool   `gorm:"not null"`
	CreatedAt  time.Time
}

// APIUsageLog is one audit row per admitted API call.
type APIUsageLog struct {
	ID         uint   `gorm:"primaryKey"`
	APIKeyID   uint   `gorm:"index;not null"`
	Method     string `gorm:"size:8"`
	Path       string `gorm:"size:256"`
	StatusCode int
	LatencyMS  int64
	ClientIP   string `gorm:"size:64"`
	UserAgent  string `gorm:"size:256"`
	CreatedAt  time.Time
}
