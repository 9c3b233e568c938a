// Package paystack is a thin client for the Paystack REST API plus the
// webhook signature/event codec.
package paystack

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SignatureHeader is the header Paystack sends the HMAC-SHA512 of the raw
// request body in.
const SignatureHeader = "x-paystack-signature"

// Metadata is the custom metadata we attach when initializing a transaction
// and read back from webhook events. Type routes the webhook flow.
type Metadata struct {
	Type     string `json:"type"` // wallet_funding or direct_payment
	UserID   *int64 `json:"user_id,omitempty"`
	WalletID *int64 `json:"wallet_id,omitempty"`
	OrderID  *int64 `json:"order_id,omitempty"`
}

// Event is the envelope of a webhook delivery.
type Event struct {
	Event string    `json:"event"` // e.g. charge.success
	Data  EventData `json:"data"`
}

// EventData carries the charge details. Amount is in minor units (kobo).
type EventData struct {
	Amount    int64    `json:"amount"`
	Reference string   `json:"reference"`
	Status    string   `json:"status"`
	Metadata  Metadata `json:"metadata"`
	Customer  struct {
		Email string `json:"email"`
	} `json:"customer"`
}

// VerifySignature recomputes the HMAC-SHA512 of the raw body with the shared
// secret and compares it to the header value in constant time.
func VerifySignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// FromMinorUnits converts a kobo amount to naira.
func FromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}

// ToMinorUnits converts a naira amount to kobo.
func ToMinorUnits(amount float64) int64 {
	return int64(amount*100 + 0.5)
}

// Client calls the Paystack API.
type Client struct {
	SecretKey  string
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(secretKey string) *Client {
	return &Client{
		SecretKey:  secretKey,
		BaseURL:    "https://api.paystack.co",
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type initializeRequest struct {
	Email     string   `json:"email"`
	Amount    int64    `json:"amount"` // kobo
	Reference string   `json:"reference"`
	Metadata  Metadata `json:"metadata"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// InitializeTransaction creates a pending Paystack transaction and returns
// the hosted checkout URL the customer should be redirected to.
func (c *Client) InitializeTransaction(email string, amountNaira float64, reference string, metadata Metadata) (string, error) {
	payload := initializeRequest{
		Email:     email,
		Amount:    ToMinorUnits(amountNaira),
		Reference: reference,
		Metadata:  metadata,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/transaction/initialize", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach Paystack: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paystack API error (%d): %s", resp.StatusCode, string(body))
	}

	var initResp initializeResponse
	if err := json.Unmarshal(body, &initResp); err != nil {
		return "", fmt.Errorf("failed to parse Paystack response: %w", err)
	}

	if !initResp.Status {
		return "", fmt.Errorf("paystack error: %s", initResp.Message)
	}
	if initResp.Data.AuthorizationURL == "" {
		return "", fmt.Errorf("paystack returned empty authorization URL")
	}

	return initResp.Data.AuthorizationURL, nil
}
