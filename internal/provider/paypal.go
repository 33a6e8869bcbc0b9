package provider

import (
	"context"
	"fmt"
	"marketplace-gateway/internal/client"
	"marketplace-gateway/internal/config"

	"github.com/shopspring/decimal"
)

// paypalAdapter handles international orders via PayPal checkout.
type paypalAdapter struct {
	client     client.PaypalClient
	baseURL    string
	configured bool
	rate       decimal.Decimal
	flat       decimal.Decimal
}

func NewPaypalAdapter(cfg *config.Paypal, serviceBaseURL string) Adapter {
	return &paypalAdapter{
		client:     client.NewPaypalClient(cfg),
		baseURL:    serviceBaseURL,
		configured: cfg.ClientID != "" && cfg.ClientSecret != "",
		rate:       decimal.NewFromFloat(0.0449),
		flat:       decimal.NewFromFloat(0.49),
	}
}

func (a *paypalAdapter) Key() string        { return "paypal" }
func (a *paypalAdapter) Name() string       { return "PayPal" }
func (a *paypalAdapter) IsConfigured() bool { return a.configured }

func (a *paypalAdapter) CreatePayment(ctx context.Context, order PaymentOrder) (*PaymentResult, error) {
	resp, err := a.client.CreateOrder(ctx, order.Amount.StringFixed(2), order.Currency, a.baseURL)
	if err != nil {
		return nil, err
	}

	return &PaymentResult{
		Provider:     a.Key(),
		IntentID:     resp.OrderID,
		ClientSecret: resp.ApproveURL, // buyer continues at the approval URL
		Amount:       order.Amount,
		Currency:     order.Currency,
	}, nil
}

func (a *paypalAdapter) Capture(ctx context.Context, intentID string) error {
	return a.client.CaptureOrder(ctx, intentID)
}

func (a *paypalAdapter) Cancel(ctx context.Context, intentID string) error {
	// PayPal has no cancel call for uncaptured orders; they expire server-side
	return fmt.Errorf("paypal: cancel not supported, uncaptured orders expire automatically")
}

func (a *paypalAdapter) Refund(ctx context.Context, intentID string, amount decimal.Decimal) error {
	_, err := a.client.RefundCapture(ctx, intentID, amount.StringFixed(2), "USD")
	return err
}

func (a *paypalAdapter) Status(ctx context.Context, intentID string) (string, error) {
	return a.client.GetOrder(ctx, intentID)
}

// ClassifyDispute maps PayPal dispute life-cycle stages.
func (a *paypalAdapter) ClassifyDispute(payload map[string]any) DisputeOutcome {
	outcome := DisputeOutcome{DisputeID: stringField(payload, "dispute_id")}

	switch stringField(payload, "dispute_life_cycle_stage") {
	case "INQUIRY":
		outcome.Resolution = DisputeReviewPending
	case "CHARGEBACK":
		outcome.Resolution = DisputeDefenseNeeded
	case "PRE_ARBITRATION", "ARBITRATION":
		outcome.Resolution = DisputeManualReviewRequired
	default:
		outcome.Resolution = DisputeLoggedForReview
	}
	return outcome
}

func (a *paypalAdapter) EstimateFees(amount decimal.Decimal) FeeQuote {
	return percentPlusFlat(amount, a.rate, a.flat, a.configured)
}
