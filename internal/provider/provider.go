package provider

import (
	"context"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeOnline   OrderType = "online"
	OrderTypeInPerson OrderType = "in_person"
	OrderTypePOS      OrderType = "pos"
	OrderTypeCrypto   OrderType = "crypto"
)

// PaymentOrder is the abstract checkout request handed to the router.
// It is constructed per checkout and never mutated afterwards.
type PaymentOrder struct {
	OrderID       string
	Amount        decimal.Decimal
	Currency      string
	Type          OrderType
	International bool
	CustomerEmail string
	Metadata      map[string]string
}

// PaymentResult is the normalized outcome of a successful routing attempt.
type PaymentResult struct {
	Provider     string          `json:"provider"`
	IntentID     string          `json:"intent_id"`
	ClientSecret string          `json:"client_secret,omitempty"` // client continuation (approval URL, hosted checkout, ...)
	TxHash       string          `json:"tx_hash,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
}

type DisputeResolution string

const (
	DisputeLoggedForReview      DisputeResolution = "logged_for_review"
	DisputeDefenseNeeded        DisputeResolution = "defense_needed"
	DisputeReviewPending        DisputeResolution = "review_pending"
	DisputeEvidenceRequired     DisputeResolution = "evidence_required"
	DisputeManualReviewRequired DisputeResolution = "manual_review_required"
	DisputeNoAction             DisputeResolution = "no_action"
)

// DisputeOutcome is the adapter's classification of a backend dispute notification.
type DisputeOutcome struct {
	Resolution DisputeResolution `json:"resolution"`
	DisputeID  string            `json:"dispute_id,omitempty"`
}

// FeeQuote estimates what a backend would charge for a given amount.
type FeeQuote struct {
	Rate       decimal.Decimal `json:"rate"` // percentage as fraction, e.g. 0.029
	Estimated  decimal.Decimal `json:"estimated"`
	Configured bool            `json:"configured"`
}

// Adapter is the uniform capability surface implemented once per payment backend.
type Adapter interface {
	// Key returns the stable registry identifier (e.g. "braintree").
	Key() string
	// Name returns the human-readable backend name.
	Name() string
	// IsConfigured reports whether the backend's credentials are present.
	IsConfigured() bool

	CreatePayment(ctx context.Context, order PaymentOrder) (*PaymentResult, error)
	Capture(ctx context.Context, intentID string) error
	Cancel(ctx context.Context, intentID string) error
	Refund(ctx context.Context, intentID string, amount decimal.Decimal) error
	Status(ctx context.Context, intentID string) (string, error)

	// ClassifyDispute maps the backend's webhook vocabulary to a normalized outcome.
	ClassifyDispute(payload map[string]any) DisputeOutcome
	EstimateFees(amount decimal.Decimal) FeeQuote
}

// percentPlusFlat is the fee model every backend in the registry uses.
func percentPlusFlat(amount, rate, flat decimal.Decimal, configured bool) FeeQuote {
	return FeeQuote{
		Rate:       rate,
		Estimated:  amount.Mul(rate).Add(flat).Round(2),
		Configured: configured,
	}
}

func stringField(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}
