package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var ErrInvalidSignature = errors.New("razorpay: invalid payment signature")

type Config struct {
	Key     string
	Secret  string
	BaseURL string
}

// Client talks to the Razorpay orders API and verifies checkout signatures.
// Both calls are blocking with no retries; the order service owns the
// compensation when they fail.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.razorpay.com"
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// Key is the public key id clients need to open the checkout widget.
func (c *Client) Key() string {
	return c.cfg.Key
}

// CreatePayableOrder registers a payable order with the gateway. The
// receipt ties the gateway order back to the local one; amounts are in
// minor units (paise).
func (c *Client) CreatePayableOrder(ctx context.Context, amountMinor int64, receipt string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"amount":          amountMinor,
		"currency":        "INR",
		"receipt":         receipt,
		"payment_capture": 1,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.Key, c.cfg.Secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("razorpay: create order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("razorpay: create order: status %d: %s", resp.StatusCode, body)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("razorpay: decode order response: %w", err)
	}
	if out.ID == "" {
		return "", errors.New("razorpay: order response missing id")
	}
	return out.ID, nil
}

// VerifySignature checks the checkout callback signature: HMAC-SHA256 over
// "<orderID>|<paymentID>" with the key secret, hex encoded.
func (c *Client) VerifySignature(externalOrderID, paymentID, signature string) error {
	mac := hmac.New(sha256.New, []byte(c.cfg.Secret))
	mac.Write([]byte(externalOrderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}
