package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"marketplace-gateway/internal/config"
	"net/http"
	"time"
)

type PaypalClient interface {
	CreateOrder(ctx context.Context, amount, currency, returnBaseURL string) (*PaypalOrderResponse, error)
	CaptureOrder(ctx context.Context, orderID string) error
	RefundCapture(ctx context.Context, captureID, amount, currency string) (string, error)
	GetOrder(ctx context.Context, orderID string) (string, error)
}

type paypalClientImpl struct {
	httpClient         *http.Client
	baseApiURL         string
	paypalClientID     string
	paypalClientSecret string
}

type PaypalLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type paypalOrderResult struct {
	ID     string       `json:"id"`
	Links  []PaypalLink `json:"links"`
	Status string       `json:"status"`
}

type PaypalOrderResponse struct {
	OrderID    string
	ApproveURL string
}

func NewPaypalClient(cfg *config.Paypal) PaypalClient {
	return &paypalClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:         cfg.BaseApiURL,
		paypalClientID:     cfg.ClientID,
		paypalClientSecret: cfg.ClientSecret,
	}
}

func (c *paypalClientImpl) getAccessToken(ctx context.Context) (string, error) {
	auth := base64.StdEncoding.EncodeToString(
		[]byte(c.paypalClientID + ":" + c.paypalClientSecret),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+"/v1/oauth2/token",
		bytes.NewBufferString("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	var res struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	return res.AccessToken, nil
}

func (c *paypalClientImpl) doJSON(ctx context.Context, method, url string, payload any, out any) error {
	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return fmt.Errorf("get paypal access token: %w", err)
	}

	var reqBody io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal req payload: %w", err)
		}
		reqBody = bytes.NewBuffer(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("paypal error %d: %s", resp.StatusCode, string(b))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode paypal response: %w", err)
		}
	}
	return nil
}

func (c *paypalClientImpl) CreateOrder(ctx context.Context, amount, currency, returnBaseURL string) (*PaypalOrderResponse, error) {
	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"amount": map[string]string{
					"currency_code": currency,
					"value":         amount,
				},
			},
		},
		"application_context": map[string]string{
			"return_url": fmt.Sprintf("%s/api/v1/checkout/paypal/return", returnBaseURL),
			"cancel_url": returnBaseURL,
		},
	}

	var result paypalOrderResult
	err := c.doJSON(ctx, http.MethodPost, c.baseApiURL+"/v2/checkout/orders", payload, &result)
	if err != nil {
		return nil, err
	}

	return &PaypalOrderResponse{
		OrderID:    result.ID,
		ApproveURL: _extractApproveURL(result.Links),
	}, nil
}

func (c *paypalClientImpl) CaptureOrder(ctx context.Context, orderID string) error {
	url := fmt.Sprintf("%s/v2/checkout/orders/%s/capture", c.baseApiURL, orderID)
	return c.doJSON(ctx, http.MethodPost, url, nil, nil)
}

func (c *paypalClientImpl) RefundCapture(ctx context.Context, captureID, amount, currency string) (string, error) {
	url := fmt.Sprintf("%s/v2/payments/captures/%s/refund", c.baseApiURL, captureID)
	payload := map[string]interface{}{
		"amount": map[string]string{
			"currency_code": currency,
			"value":         amount,
		},
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, url, payload, &result); err != nil {
		return "", err
	}
	return result.ID, nil
}

func (c *paypalClientImpl) GetOrder(ctx context.Context, orderID string) (string, error) {
	url := fmt.Sprintf("%s/v2/checkout/orders/%s", c.baseApiURL, orderID)

	var result paypalOrderResult
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &result); err != nil {
		return "", err
	}
	return result.Status, nil
}

func _extractApproveURL(links []PaypalLink) string {
	for _, link := range links {
		if link.Rel == "approve" {
			return link.Href
		}
	}
	return ""
}
