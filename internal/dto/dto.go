package dto

import "time"

type CheckoutRequest struct {
	OrderID       string            `json:"order_id"`
	Amount        string            `json:"amount"`
	Currency      string            `json:"currency"`
	Type          string            `json:"type"` // online, in_person, pos, crypto
	International bool              `json:"international"`
	CustomerEmail string            `json:"customer_email"`
	Metadata      map[string]string `json:"metadata"`
}

type RefundRequest struct {
	Amount string `json:"amount"`
}

type CreateKeyRequest struct {
	Tier      string     `json:"tier"`
	Sandbox   bool       `json:"sandbox"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// CreatedKeyResponse carries the raw secret; it is returned exactly once,
// at creation or rotation, and never retrievable again.
type CreatedKeyResponse struct {
	PublicID    string     `json:"public_id"`
	Secret      string     `json:"secret"`
	Tier        string     `json:"tier"`
	Sandbox     bool       `json:"sandbox"`
	DailyLimit  int64      `json:"daily_limit"`
	Permissions []string   `json:"permissions"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type KeySummary struct {
	PublicID      string     `json:"public_id"`
	Tier          string     `json:"tier"`
	Sandbox       bool       `json:"sandbox"`
	IsActive      bool       `json:"is_active"`
	DailyLimit    int64      `json:"daily_limit"`
	DailyRequests int64      `json:"daily_requests"`
	Permissions   []string   `json:"permissions"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type RegisterWebhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

// WebhookResponse includes the signing secret only when returned from
// registration.
type WebhookResponse struct {
	ID              uint       `json:"id"`
	URL             string     `json:"url"`
	Events          []string   `json:"events"`
	Secret          string     `json:"secret,omitempty"`
	IsActive        bool       `json:"is_active"`
	FailureCount    int        `json:"failure_count"`
	LastDeliveredAt *time.Time `json:"last_delivered_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type TestEventRequest struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}
