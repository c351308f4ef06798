package paypal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	tokenCalls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "test-token",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var payload struct {
			Intent        string `json:"intent"`
			PurchaseUnits []struct {
				Amount struct {
					CurrencyCode string `json:"currency_code"`
					Value        string `json:"value"`
				} `json:"amount"`
			} `json:"purchase_units"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "CAPTURE", payload.Intent)
		require.Len(t, payload.PurchaseUnits, 1)
		assert.Equal(t, "USD", payload.PurchaseUnits[0].Amount.CurrencyCode)
		assert.Equal(t, "126.47", payload.PurchaseUnits[0].Amount.Value)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"id": "PP-123", "status": "CREATED"})
	})
	mux.HandleFunc("/v2/checkout/orders/PP-123/capture", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "PP-123",
			"status": "COMPLETED",
			"payer":  map[string]string{"email_address": "payer@example.com"},
			"purchase_units": []map[string]interface{}{
				{
					"payments": map[string]interface{}{
						"captures": []map[string]interface{}{
							{"amount": map[string]string{"value": "126.47"}},
						},
					},
				},
			},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &tokenCalls
}

func TestCreateOrder(t *testing.T) {
	srv, _ := newTestServer(t)
	client := NewClient(srv.URL, "client-id", "client-secret", "USD")

	created, err := client.CreateOrder(context.Background(), decimal.RequireFromString("126.47"))
	require.NoError(t, err)
	assert.Equal(t, "PP-123", created.ID)
	assert.Equal(t, "CREATED", created.Status)
}

func TestCaptureOrder(t *testing.T) {
	srv, _ := newTestServer(t)
	client := NewClient(srv.URL, "client-id", "client-secret", "USD")

	capture, err := client.CaptureOrder(context.Background(), "PP-123")
	require.NoError(t, err)
	assert.Equal(t, "PP-123", capture.ID)
	assert.True(t, capture.Completed())
	assert.Equal(t, "payer@example.com", capture.PayerEmail)
	assert.Equal(t, "126.47", capture.Amount)
}

func TestTokenIsCachedAcrossCalls(t *testing.T) {
	srv, tokenCalls := newTestServer(t)
	client := NewClient(srv.URL, "client-id", "client-secret", "USD")
	ctx := context.Background()

	_, err := client.CreateOrder(ctx, decimal.RequireFromString("126.47"))
	require.NoError(t, err)
	_, err = client.CaptureOrder(ctx, "PP-123")
	require.NoError(t, err)

	assert.Equal(t, 1, *tokenCalls)
}

func TestBadCredentials(t *testing.T) {
	srv, _ := newTestServer(t)
	client := NewClient(srv.URL, "client-id", "wrong-secret", "USD")

	_, err := client.CreateOrder(context.Background(), decimal.RequireFromString("10.00"))
	assert.Error(t, err)
}

func TestCaptureStatusNotCompleted(t *testing.T) {
	assert.False(t, CaptureResult{Status: "PENDING"}.Completed())
	assert.False(t, CaptureResult{}.Completed())
	assert.True(t, CaptureResult{Status: "COMPLETED"}.Completed())
}
