// Package payment adapts the external payment provider to the settlement
// flow. Only the charge contract is modelled: the provider receives an
// amount and either returns a confirmation token or fails.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/artventure/academy-server/pkg/config"
)

// Sentinel errors distinguishing the two failure classes the settlement
// coordinator cares about. A decline must not be retried internally; a
// gateway error is safe to retry because no charge was made.
var (
	ErrDeclined = errors.New("payment declined")
	ErrGateway  = errors.New("payment gateway unavailable")
)

// ChargeRequest describes a charge to create.
type ChargeRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	CustomerID string          `json:"customer_id"`
	Reference  string          `json:"reference"`
}

// Confirmation is the provider's proof that a charge went through. Token is
// used as the enrollment ledger dedupe key.
type Confirmation struct {
	Token     string    `json:"token"`
	ChargedAt time.Time `json:"charged_at"`
}

// Gateway creates charges against the external provider.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*Confirmation, error)
}

// HTTPGateway talks to the provider over HTTP with a hard timeout.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPGateway constructs the adapter from configuration.
func NewHTTPGateway(cfg config.GatewayConfig, logger *zap.Logger) *HTTPGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPGateway{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type chargeResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Message   string    `json:"message"`
}

// Charge creates a charge. Client errors from the provider map to
// ErrDeclined, everything else (transport failures, timeouts, 5xx) maps to
// ErrGateway.
func (g *HTTPGateway) Charge(ctx context.Context, req ChargeRequest) (*Confirmation, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode charge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/charges", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build charge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		g.logger.Warn("charge transport failure", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	var decoded chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil && resp.StatusCode < 300 {
		return nil, fmt.Errorf("%w: decode charge response: %v", ErrGateway, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if decoded.ID == "" {
			return nil, fmt.Errorf("%w: charge response missing id", ErrGateway)
		}
		chargedAt := decoded.CreatedAt
		if chargedAt.IsZero() {
			chargedAt = time.Now().UTC()
		}
		return &Confirmation{Token: decoded.ID, ChargedAt: chargedAt}, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		if decoded.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrDeclined, decoded.Message)
		}
		return nil, ErrDeclined
	default:
		return nil, fmt.Errorf("%w: provider returned %d", ErrGateway, resp.StatusCode)
	}
}
