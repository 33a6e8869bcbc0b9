package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"marketplace-gateway/internal/config"
	"math/rand"
	"net/http"
	"time"
)

type CoinbaseClient interface {
	CreateCharge(ctx context.Context, orderID, amount, currency string) (*CoinbaseCharge, error)
	GetCharge(ctx context.Context, chargeID string) (*CoinbaseCharge, error)
	CancelCharge(ctx context.Context, chargeID string) error
}

type CoinbaseCharge struct {
	ID        string
	HostedURL string
	Status    string
	TxHash    string
}

type coinbaseClientImpl struct {
	httpClient *http.Client
	baseApiURL string
	apiKey     string

	// retry settings for charge lookups; on-chain confirmations lag,
	// so status reads retry with jittered backoff
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func NewCoinbaseClient(cfg *config.Coinbase) CoinbaseClient {
	return &coinbaseClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL: cfg.BaseApiURL,
		apiKey:     cfg.APIKey,
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
		maxDelay:   5 * time.Second,
	}
}

type coinbaseChargeResult struct {
	Data struct {
		ID        string `json:"id"`
		HostedURL string `json:"hosted_url"`
		Timeline  []struct {
			Status string `json:"status"`
		} `json:"timeline"`
		Payments []struct {
			TransactionID string `json:"transaction_id"`
		} `json:"payments"`
	} `json:"data"`
}

func (r *coinbaseChargeResult) toCharge() *CoinbaseCharge {
	charge := &CoinbaseCharge{
		ID:        r.Data.ID,
		HostedURL: r.Data.HostedURL,
		Status:    "NEW",
	}
	if n := len(r.Data.Timeline); n > 0 {
		charge.Status = r.Data.Timeline[n-1].Status
	}
	if len(r.Data.Payments) > 0 {
		charge.TxHash = r.Data.Payments[0].TransactionID
	}
	return charge
}

func (c *coinbaseClientImpl) doJSON(ctx context.Context, method, path string, payload any, out any) error {
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
	req.Header.Set("X-CC-Api-Key", c.apiKey)
	req.Header.Set("X-CC-Version", "2018-03-22")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("coinbase error %d: %s", resp.StatusCode, string(b))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode coinbase response: %w", err)
		}
	}
	return nil
}

func (c *coinbaseClientImpl) CreateCharge(ctx context.Context, orderID, amount, currency string) (*CoinbaseCharge, error) {
	payload := map[string]interface{}{
		"name":         "Marketplace order",
		"description":  orderID,
		"pricing_type": "fixed_price",
		"local_price": map[string]string{
			"amount":   amount,
			"currency": currency,
		},
		"metadata": map[string]string{
			"order_id": orderID,
		},
	}

	var result coinbaseChargeResult
	if err := c.doJSON(ctx, http.MethodPost, "/charges", payload, &result); err != nil {
		return nil, err
	}
	return result.toCharge(), nil
}

// GetCharge retries internally: a charge freshly broadcast to the chain can
// briefly 404 and confirmation status lags, so lookups back off with jitter
// capped at maxDelay.
func (c *coinbaseClientImpl) GetCharge(ctx context.Context, chargeID string) (*CoinbaseCharge, error) {
	var lastErr error
	delay := c.baseDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			jittered := delay + time.Duration(rand.Int63n(int64(delay)/2+1))
			if jittered > c.maxDelay {
				jittered = c.maxDelay
			}
			select {
			case <-time.After(jittered):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
		}

		var result coinbaseChargeResult
		if err := c.doJSON(ctx, http.MethodGet, "/charges/"+chargeID, nil, &result); err != nil {
			lastErr = err
			continue
		}
		return result.toCharge(), nil
	}

	return nil, fmt.Errorf("get charge after %d retries: %w", c.maxRetries, lastErr)
}

func (c *coinbaseClientImpl) CancelCharge(ctx context.Context, chargeID string) error {
	return c.doJSON(ctx, http.MethodPost, "/charges/"+chargeID+"/cancel", nil, nil)
}
