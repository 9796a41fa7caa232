package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artventure/academy-server/pkg/config"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) (*HTTPGateway, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	gw := NewHTTPGateway(config.GatewayConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Timeout: 2 * time.Second,
	}, nil)
	return gw, server
}

func chargeReq() ChargeRequest {
	return ChargeRequest{
		Amount:     decimal.NewFromInt(50),
		Currency:   "USD",
		CustomerID: "stu-1",
		Reference:  "sel-1",
	}
}

func TestHTTPGatewayChargeSuccess(t *testing.T) {
	var gotAuth string
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/charges", r.URL.Path)

		var body ChargeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "stu-1", body.CustomerID)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
			"id":         "ch_123",
			"created_at": time.Now().UTC(),
		})
	})

	conf, err := gw.Charge(context.Background(), chargeReq())
	require.NoError(t, err)
	assert.Equal(t, "ch_123", conf.Token)
	assert.False(t, conf.ChargedAt.IsZero())
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestHTTPGatewayChargeDeclined(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]string{"message": "insufficient funds"}) //nolint:errcheck
	})

	_, err := gw.Charge(context.Background(), chargeReq())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeclined)
	assert.Contains(t, err.Error(), "insufficient funds")
}

func TestHTTPGatewayChargeServerError(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := gw.Charge(context.Background(), chargeReq())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGateway)
}

func TestHTTPGatewayChargeMissingID(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{}) //nolint:errcheck
	})

	_, err := gw.Charge(context.Background(), chargeReq())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGateway)
}

func TestHTTPGatewayChargeTransportFailure(t *testing.T) {
	gw, server := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	_, err := gw.Charge(context.Background(), chargeReq())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGateway)
}
