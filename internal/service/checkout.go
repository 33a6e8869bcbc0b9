package service

import (
	"context"
	"fmt"
	"marketplace-gateway/internal/dto"
	"marketplace-gateway/internal/provider"
	"marketplace-gateway/internal/webhook"

	"github.com/shopspring/decimal"
)

type CheckoutService interface {
	CreatePayment(ctx context.Context, req *dto.CheckoutRequest) (*provider.PaymentResult, error)
	Capture(ctx context.Context, intentID, providerKey string) error
	Cancel(ctx context.Context, intentID, providerKey string) error
	Refund(ctx context.Context, intentID, providerKey, amount string) error
	Status(ctx context.Context, intentID, providerKey string) (string, error)
	HandleProviderDispute(ctx context.Context, providerKey string, payload map[string]any) (provider.DisputeOutcome, error)
}

type checkoutServiceImpl struct {
	router     *provider.Router
	dispatcher *webhook.Dispatcher
}

func NewCheckoutService(router *provider.Router, dispatcher *webhook.Dispatcher) CheckoutService {
	return &checkoutServiceImpl{
		router:     router,
		dispatcher: dispatcher,
	}
}

var validOrderTypes = map[provider.OrderType]bool{
	provider.OrderTypeOnline:   true,
	provider.OrderTypeInPerson: true,
	provider.OrderTypePOS:      true,
	provider.OrderTypeCrypto:   true,
}

func (s *checkoutServiceImpl) CreatePayment(ctx context.Context, req *dto.CheckoutRequest) (*provider.PaymentResult, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", req.Amount, err)
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("amount must not be negative")
	}

	orderType := provider.OrderType(req.Type)
	if !validOrderTypes[orderType] {
		return nil, fmt.Errorf("invalid order type %q", req.Type)
	}

	order := provider.PaymentOrder{
		OrderID:       req.OrderID,
		Amount:        amount,
		Currency:      req.Currency,
		Type:          orderType,
		International: req.International,
		CustomerEmail: req.CustomerEmail,
		Metadata:      req.Metadata,
	}

	result, err := s.router.Route(ctx, order)
	if err != nil {
		s.dispatcher.Dispatch(webhook.EventPaymentFailed, map[string]any{
			"order_id": req.OrderID,
			"reason":   err.Error(),
		})
		return nil, err
	}

	s.dispatcher.Dispatch(webhook.EventPaymentSucceeded, map[string]any{
		"order_id":  req.OrderID,
		"intent_id": result.IntentID,
		"provider":  result.Provider,
		"amount":    result.Amount.StringFixed(2),
		"currency":  result.Currency,
	})
	return result, nil
}

func (s *checkoutServiceImpl) Capture(ctx context.Context, intentID, providerKey string) error {
	return s.router.Capture(ctx, intentID, providerKey)
}

func (s *checkoutServiceImpl) Cancel(ctx context.Context, intentID, providerKey string) error {
	return s.router.Cancel(ctx, intentID, providerKey)
}

func (s *checkoutServiceImpl) Refund(ctx context.Context, intentID, providerKey, amount string) error {
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", amount, err)
	}

	if err := s.router.Refund(ctx, intentID, providerKey, amt); err != nil {
		return err
	}

	s.dispatcher.Dispatch(webhook.EventPaymentRefunded, map[string]any{
		"intent_id": intentID,
		"provider":  providerKey,
		"amount":    amt.StringFixed(2),
	})
	return nil
}

func (s *checkoutServiceImpl) Status(ctx context.Context, intentID, providerKey string) (string, error) {
	return s.router.Status(ctx, intentID, providerKey)
}

// HandleProviderDispute classifies an asynchronous backend dispute
// notification and fans it out; the underlying payment is left untouched
// pending manual ops follow-up.
func (s *checkoutServiceImpl) HandleProviderDispute(ctx context.Context, providerKey string, payload map[string]any) (provider.DisputeOutcome, error) {
	outcome, err := s.router.HandleDispute(payload, providerKey)
	if err != nil {
		return provider.DisputeOutcome{}, err
	}

	s.dispatcher.Dispatch(webhook.EventPaymentDisputed, map[string]any{
		"provider":   providerKey,
		"dispute_id": outcome.DisputeID,
		"resolution": string(outcome.Resolution),
	})
	return outcome, nil
}
