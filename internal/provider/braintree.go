package provider

import (
	"context"
	"fmt"
	"marketplace-gateway/internal/client"
	"marketplace-gateway/internal/config"

	"github.com/shopspring/decimal"
)

// braintreeAdapter handles card payments for standard online orders.
type braintreeAdapter struct {
	client     client.BraintreeClient
	configured bool
	rate       decimal.Decimal
	flat       decimal.Decimal
}

func NewBraintreeAdapter(cfg *config.Braintree) Adapter {
	return &braintreeAdapter{
		client:     client.NewBraintreeClient(cfg),
		configured: cfg.MerchantID != "" && cfg.PublicKey != "" && cfg.PrivateKey != "",
		rate:       decimal.NewFromFloat(0.029),
		flat:       decimal.NewFromFloat(0.30),
	}
}

func (a *braintreeAdapter) Key() string        { return "braintree" }
func (a *braintreeAdapter) Name() string       { return "Braintree" }
func (a *braintreeAdapter) IsConfigured() bool { return a.configured }

func (a *braintreeAdapter) CreatePayment(ctx context.Context, order PaymentOrder) (*PaymentResult, error) {
	nonce := order.Metadata["payment_nonce"]
	if nonce == "" {
		return nil, fmt.Errorf("braintree: missing payment_nonce in order metadata")
	}

	txID, err := a.client.Sale(ctx, order.Amount, nonce)
	if err != nil {
		return nil, err
	}

	return &PaymentResult{
		Provider: a.Key(),
		IntentID: txID,
		Amount:   order.Amount,
		Currency: order.Currency,
	}, nil
}

func (a *braintreeAdapter) Capture(ctx context.Context, intentID string) error {
	return a.client.SubmitForSettlement(ctx, intentID)
}

func (a *braintreeAdapter) Cancel(ctx context.Context, intentID string) error {
	return a.client.Void(ctx, intentID)
}

func (a *braintreeAdapter) Refund(ctx context.Context, intentID string, amount decimal.Decimal) error {
	_, err := a.client.Refund(ctx, intentID, amount)
	return err
}

func (a *braintreeAdapter) Status(ctx context.Context, intentID string) (string, error) {
	return a.client.Find(ctx, intentID)
}

// ClassifyDispute maps Braintree dispute kinds.
func (a *braintreeAdapter) ClassifyDispute(payload map[string]any) DisputeOutcome {
	outcome := DisputeOutcome{DisputeID: stringField(payload, "id")}

	switch stringField(payload, "kind") {
	case "chargeback":
		outcome.Resolution = DisputeDefenseNeeded
	case "retrieval":
		outcome.Resolution = DisputeEvidenceRequired
	case "pre_arbitration":
		outcome.Resolution = DisputeManualReviewRequired
	default:
		outcome.Resolution = DisputeLoggedForReview
	}
	return outcome
}

func (a *braintreeAdapter) EstimateFees(amount decimal.Decimal) FeeQuote {
	return percentPlusFlat(amount, a.rate, a.flat, a.configured)
}
