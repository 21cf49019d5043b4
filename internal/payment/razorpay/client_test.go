package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	c := NewClient(Config{Key: "key", Secret: "topsecret"})

	t.Run("valid signature", func(t *testing.T) {
		sig := sign("topsecret", "rzp_order_1", "pay_1")
		require.NoError(t, c.VerifySignature("rzp_order_1", "pay_1", sig))
	})

	t.Run("tampered payment id", func(t *testing.T) {
		sig := sign("topsecret", "rzp_order_1", "pay_1")
		err := c.VerifySignature("rzp_order_1", "pay_2", sig)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("wrong secret", func(t *testing.T) {
		sig := sign("othersecret", "rzp_order_1", "pay_1")
		err := c.VerifySignature("rzp_order_1", "pay_1", sig)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("garbage signature", func(t *testing.T) {
		err := c.VerifySignature("rzp_order_1", "pay_1", "not-hex")
		require.ErrorIs(t, err, ErrInvalidSignature)
	})
}

func TestCreatePayableOrder(t *testing.T) {
	t.Run("posts the order and returns its id", func(t *testing.T) {
		var gotBody map[string]any

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/v1/orders", r.URL.Path)

			user, pass, ok := r.BasicAuth()
			require.True(t, ok)
			require.Equal(t, "key", user)
			require.Equal(t, "topsecret", pass)

			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "rzp_order_42"})
		}))
		defer srv.Close()

		c := NewClient(Config{Key: "key", Secret: "topsecret", BaseURL: srv.URL})

		id, err := c.CreatePayableOrder(context.Background(), 129900, "ORD_abc")
		require.NoError(t, err)
		require.Equal(t, "rzp_order_42", id)

		require.Equal(t, float64(129900), gotBody["amount"])
		require.Equal(t, "INR", gotBody["currency"])
		require.Equal(t, "ORD_abc", gotBody["receipt"])
		require.Equal(t, float64(1), gotBody["payment_capture"])
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":{"description":"authentication failed"}}`, http.StatusUnauthorized)
		}))
		defer srv.Close()

		c := NewClient(Config{Key: "key", Secret: "wrong", BaseURL: srv.URL})

		_, err := c.CreatePayableOrder(context.Background(), 100, "ORD_abc")
		require.Error(t, err)
		require.Contains(t, err.Error(), "status 401")
	})

	t.Run("missing id is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{})
		}))
		defer srv.Close()

		c := NewClient(Config{Key: "key", Secret: "topsecret", BaseURL: srv.URL})

		_, err := c.CreatePayableOrder(context.Background(), 100, "ORD_abc")
		require.Error(t, err)
	})
}
