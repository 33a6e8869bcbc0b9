package client

import (
	"context"
	"fmt"
	"marketplace-gateway/internal/config"

	"github.com/braintree-go/braintree-go"
	"github.com/shopspring/decimal"
)

// --- INTERFACE ---

type BraintreeClient interface {
	// Sale authorizes a card payment against a vaulted token or frontend nonce
	Sale(ctx context.Context, amount decimal.Decimal, paymentNonce string) (string, error)

	// SubmitForSettlement captures a previously authorized transaction
	SubmitForSettlement(ctx context.Context, txID string) error

	// Refund refunds a settled transaction, partially or in full
	Refund(ctx context.Context, txID string, amount decimal.Decimal) (string, error)

	// Void cancels a transaction that has not settled yet
	Void(ctx context.Context, txID string) error

	// Find returns the current transaction status
	Find(ctx context.Context, txID string) (string, error)
}

// --- IMPLEMENTATION ---

type braintreeClientImpl struct {
	gateway *braintree.Braintree
}

// NewBraintreeClient initializes the Braintree SDK gateway
func NewBraintreeClient(cfg *config.Braintree) BraintreeClient {
	env := braintree.Sandbox
	if cfg.Environment == "production" {
		env = braintree.Production
	}

	gateway := braintree.New(
		env,
		cfg.MerchantID,
		cfg.PublicKey,
		cfg.PrivateKey,
	)

	return &braintreeClientImpl{
		gateway: gateway,
	}
}

// --- METHODS ---

// toBraintreeAmount converts shopspring's Decimal to braintree's *Decimal format.
// Braintree expects NewDecimal(unscaled, scale). For 2 decimal places (like USD):
// 50.00 * 100 = 5000 -> braintree.NewDecimal(5000, 2)
func toBraintreeAmount(amount decimal.Decimal) *braintree.Decimal {
	cents := amount.Mul(decimal.NewFromInt(100)).IntPart()
	return braintree.NewDecimal(cents, 2)
}

func (c *braintreeClientImpl) Sale(ctx context.Context, amount decimal.Decimal, paymentNonce string) (string, error) {
	req := &braintree.TransactionRequest{
		Type:               "sale",
		Amount:             toBraintreeAmount(amount),
		PaymentMethodNonce: paymentNonce,
	}

	tx, err := c.gateway.Transaction().Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("transaction creation failed: %w", err)
	}

	if tx.Status == braintree.TransactionStatusProcessorDeclined {
		return "", fmt.Errorf("transaction declined by processor: %s", tx.ProcessorResponseText)
	}

	return tx.Id, nil
}

func (c *braintreeClientImpl) SubmitForSettlement(ctx context.Context, txID string) error {
	_, err := c.gateway.Transaction().SubmitForSettlement(ctx, txID)
	if err != nil {
		return fmt.Errorf("submit for settlement: %w", err)
	}
	return nil
}

func (c *braintreeClientImpl) Refund(ctx context.Context, txID string, amount decimal.Decimal) (string, error) {
	refund, err := c.gateway.Transaction().Refund(ctx, txID, toBraintreeAmount(amount))
	if err != nil {
		return "", fmt.Errorf("refund transaction: %w", err)
	}
	return refund.Id, nil
}

func (c *braintreeClientImpl) Void(ctx context.Context, txID string) error {
	_, err := c.gateway.Transaction().Void(ctx, txID)
	if err != nil {
		return fmt.Errorf("void transaction: %w", err)
	}
	return nil
}

func (c *braintreeClientImpl) Find(ctx context.Context, txID string) (string, error) {
	tx, err := c.gateway.Transaction().Find(ctx, txID)
	if err != nil {
		return "", fmt.Errorf("find transaction: %w", err)
	}
	return string(tx.Status), nil
}
