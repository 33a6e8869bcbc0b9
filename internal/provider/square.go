package provider

import (
	"context"
	"fmt"
	"marketplace-gateway/internal/client"
	"marketplace-gateway/internal/config"

	"github.com/shopspring/decimal"
)

// squareAdapter handles in-person and POS terminal orders.
type squareAdapter struct {
	client     client.SquareClient
	configured bool
	rate       decimal.Decimal
	flat       decimal.Decimal
}

func NewSquareAdapter(cfg *config.Square) Adapter {
	return &squareAdapter{
		client:     client.NewSquareClient(cfg),
		configured: cfg.AccessToken != "" && cfg.LocationID != "",
		rate:       decimal.NewFromFloat(0.026),
		flat:       decimal.NewFromFloat(0.10),
	}
}

func (a *squareAdapter) Key() string        { return "square" }
func (a *squareAdapter) Name() string       { return "Square" }
func (a *squareAdapter) IsConfigured() bool { return a.configured }

func (a *squareAdapter) CreatePayment(ctx context.Context, order PaymentOrder) (*PaymentResult, error) {
	sourceID := order.Metadata["source_id"]
	if sourceID == "" {
		return nil, fmt.Errorf("square: missing source_id in order metadata")
	}

	paymentID, err := a.client.CreatePayment(ctx, order.Amount, order.Currency, sourceID)
	if err != nil {
		return nil, err
	}

	return &PaymentResult{
		Provider: a.Key(),
		IntentID: paymentID,
		Amount:   order.Amount,
		Currency: order.Currency,
	}, nil
}

func (a *squareAdapter) Capture(ctx context.Context, intentID string) error {
	return a.client.CompletePayment(ctx, intentID)
}

func (a *squareAdapter) Cancel(ctx context.Context, intentID string) error {
	return a.client.CancelPayment(ctx, intentID)
}

func (a *squareAdapter) Refund(ctx context.Context, intentID string, amount decimal.Decimal) error {
	_, err := a.client.RefundPayment(ctx, intentID, amount, "USD")
	return err
}

func (a *squareAdapter) Status(ctx context.Context, intentID string) (string, error) {
	return a.client.GetPayment(ctx, intentID)
}

// ClassifyDispute maps Square dispute states.
func (a *squareAdapter) ClassifyDispute(payload map[string]any) DisputeOutcome {
	outcome := DisputeOutcome{DisputeID: stringField(payload, "dispute_id")}

	switch stringField(payload, "state") {
	case "EVIDENCE_REQUIRED":
		outcome.Resolution = DisputeEvidenceRequired
	case "PROCESSING", "INQUIRY_EVIDENCE_REQUIRED":
		outcome.Resolution = DisputeReviewPending
	case "WON", "LOST", "ACCEPTED":
		outcome.Resolution = DisputeNoAction
	default:
		outcome.Resolution = DisputeLoggedForReview
	}
	return outcome
}

func (a *squareAdapter) EstimateFees(amount decimal.Decimal) FeeQuote {
	return percentPlusFlat(amount, a.rate, a.flat, a.configured)
}
