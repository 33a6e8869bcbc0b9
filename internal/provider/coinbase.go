package provider

import (
	"context"
	"fmt"
	"marketplace-gateway/internal/client"
	"marketplace-gateway/internal/config"

	"github.com/shopspring/decimal"
)

// coinbaseAdapter handles crypto orders via Coinbase Commerce hosted charges.
type coinbaseAdapter struct {
	client     client.CoinbaseClient
	configured bool
	rate       decimal.Decimal
}

func NewCoinbaseAdapter(cfg *config.Coinbase) Adapter {
	return &coinbaseAdapter{
		client:     client.NewCoinbaseClient(cfg),
		configured: cfg.APIKey != "",
		rate:       decimal.NewFromFloat(0.01),
	}
}

func (a *coinbaseAdapter) Key() string        { return "coinbase" }
func (a *coinbaseAdapter) Name() string       { return "Coinbase Commerce" }
func (a *coinbaseAdapter) IsConfigured() bool { return a.configured }

func (a *coinbaseAdapter) CreatePayment(ctx context.Context, order PaymentOrder) (*PaymentResult, error) {
	charge, err := a.client.CreateCharge(ctx, order.OrderID, order.Amount.StringFixed(2), order.Currency)
	if err != nil {
		return nil, err
	}

	return &PaymentResult{
		Provider:     a.Key(),
		IntentID:     charge.ID,
		ClientSecret: charge.HostedURL, // buyer continues at the hosted charge page
		TxHash:       charge.TxHash,
		Amount:       order.Amount,
		Currency:     order.Currency,
	}, nil
}

func (a *coinbaseAdapter) Capture(ctx context.Context, intentID string) error {
	// settlement happens on-chain once the charge confirms; nothing to capture
	return nil
}

func (a *coinbaseAdapter) Cancel(ctx context.Context, intentID string) error {
	return a.client.CancelCharge(ctx, intentID)
}

func (a *coinbaseAdapter) Refund(ctx context.Context, intentID string, amount decimal.Decimal) error {
	return fmt.Errorf("coinbase: crypto refunds are processed manually")
}

func (a *coinbaseAdapter) Status(ctx context.Context, intentID string) (string, error) {
	charge, err := a.client.GetCharge(ctx, intentID)
	if err != nil {
		return "", err
	}
	return charge.Status, nil
}

// ClassifyDispute: crypto settlements are final, so backend notifications
// never require a defense.
func (a *coinbaseAdapter) ClassifyDispute(payload map[string]any) DisputeOutcome {
	outcome := DisputeOutcome{DisputeID: stringField(payload, "id")}

	switch stringField(payload, "type") {
	case "charge:failed", "charge:delayed":
		outcome.Resolution = DisputeLoggedForReview
	default:
		outcome.Resolution = DisputeNoAction
	}
	return outcome
}

func (a *coinbaseAdapter) EstimateFees(amount decimal.Decimal) FeeQuote {
	return percentPlusFlat(amount, a.rate, decimal.Zero, a.configured)
}
