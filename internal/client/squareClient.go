package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"marketplace-gateway/internal/config"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SquareClient interface {
	CreatePayment(ctx context.Context, amount decimal.Decimal, currency, sourceID string) (string, error)
	CompletePayment(ctx context.Context, paymentID string) error
	CancelPayment(ctx context.Context, paymentID string) error
	RefundPayment(ctx context.Context, paymentID string, amount decimal.Decimal, currency string) (string, error)
	GetPayment(ctx context.Context, paymentID string) (string, error)
}

type squareClientImpl struct {
	httpClient  *http.Client
	baseApiURL  string
	accessToken string
	locationID  string
}

func NewSquareClient(cfg *config.Square) SquareClient {
	return &squareClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:  cfg.BaseApiURL,
		accessToken: cfg.AccessToken,
		locationID:  cfg.LocationID,
	}
}

type squareMoney struct {
	Amount   int64  `json:"amount"` // smallest currency unit
	Currency string `json:"currency"`
}

type squarePayment struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (c *squareClientImpl) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	var reqBody io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal req payload: %w", err)
		}
		reqBody = bytes.NewBuffer(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseApiURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("square error %d: %s", resp.StatusCode, string(b))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode square response: %w", err)
		}
	}
	return nil
}

func (c *squareClientImpl) CreatePayment(ctx context.Context, amount decimal.Decimal, currency, sourceID string) (string, error) {
	payload := map[string]interface{}{
		"idempotency_key": uuid.NewString(),
		"source_id":       sourceID,
		"location_id":     c.locationID,
		"autocomplete":    false,
		"amount_money": squareMoney{
			Amount:   amount.Mul(decimal.NewFromInt(100)).IntPart(),
			Currency: currency,
		},
	}

	var result struct {
		Payment squarePayment `json:"payment"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v2/payments", payload, &result); err != nil {
		return "", err
	}
	return result.Payment.ID, nil
}

func (c *squareClientImpl) CompletePayment(ctx context.Context, paymentID string) error {
	path := fmt.Sprintf("/v2/payments/%s/complete", paymentID)
	return c.doJSON(ctx, http.MethodPost, path, map[string]interface{}{}, nil)
}

func (c *squareClientImpl) CancelPayment(ctx context.Context, paymentID string) error {
	path := fmt.Sprintf("/v2/payments/%s/cancel", paymentID)
	return c.doJSON(ctx, http.MethodPost, path, nil, nil)
}

func (c *squareClientImpl) RefundPayment(ctx context.Context, paymentID string, amount decimal.Decimal, currency string) (string, error) {
	payload := map[string]interface{}{
		"idempotency_key": uuid.NewString(),
		"payment_id":      paymentID,
		"amount_money": squareMoney{
			Amount:   amount.Mul(decimal.NewFromInt(100)).IntPart(),
			Currency: currency,
		},
	}

	var result struct {
		Refund struct {
			ID string `json:"id"`
		} `json:"refund"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v2/refunds", payload, &result); err != nil {
		return "", err
	}
	return result.Refund.ID, nil
}

func (c *squareClientImpl) GetPayment(ctx context.Context, paymentID string) (string, error) {
	var result struct {
		Payment squarePayment `json:"payment"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v2/payments/"+paymentID, nil, &result); err != nil {
		return "", err
	}
	return result.Payment.Status, nil
}
