package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Client struct {
	ShopID     string
	SecretKey  string
	APIURL     string
	HTTPClient *http.Client
}

func NewClient(shopID, secretKey string) *Client {
	return &Client{
		ShopID:    shopID,
		SecretKey: secretKey,
		APIURL:    "https://api.yookassa.ru/v3",
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) CreatePayment(ctx context.Context, amount decimal.Decimal, currency, description, returnURL string, metadata map[string]string) (*paymentResponse, error) {
	reqBody := paymentRequest{
		Amount: money{
			Value:    amount.StringFixed(2),
			Currency: currency,
		},
		Capture: true,
		Confirmation: confirmation{
			Type:      "redirect",
			ReturnURL: returnURL,
		},
		Description: description,
		Metadata:    metadata,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/payments", c.APIURL), bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Idempotence-Key", uuid.New().String())
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.ShopID, c.SecretKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("api error: %s (status: %d)", string(respBody), resp.StatusCode)
	}

	var created paymentResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &created, nil
}

// CheckoutURL creates a payment for plan and returns the page the user
// pays on. The webhook reads the plan back from the metadata.
func (c *Client) CheckoutURL(ctx context.Context, userID int64, plan Plan, currency, returnURL string) (string, error) {
	metadata := map[string]string{
		metaTelegramID: strconv.FormatInt(userID, 10),
		metaTier:       string(plan.Tier),
	}
	if plan.DurationDays != nil {
		metadata[metaDurationDays] = strconv.Itoa(*plan.DurationDays)
	}

	resp, err := c.CreatePayment(ctx, plan.Price, currency, plan.Description(), returnURL, metadata)
	if err != nil {
		return "", err
	}
	if resp.Confirmation.ConfirmationURL == "" {
		return "", fmt.Errorf("payment %s has no confirmation url", resp.ID)
	}
	return resp.Confirmation.ConfirmationURL, nil
}
