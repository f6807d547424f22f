package payment

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
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultRazorpayBaseURL = "https://api.razorpay.com"

// Razorpay implements Provider against the Razorpay Orders API.
type Razorpay struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Client    *http.Client
}

// NewRazorpay constructs a Razorpay provider with an instrumented HTTP client.
func NewRazorpay(keyID, keySecret, baseURL string, timeout time.Duration) (*Razorpay, error) {
	if strings.TrimSpace(keyID) == "" || strings.TrimSpace(keySecret) == "" {
		return nil, errors.New("payment: razorpay credentials are required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Razorpay{
		KeyID:     keyID,
		KeySecret: keySecret,
		BaseURL:   baseURL,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type razorpayErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateGatewayOrder opens an order via POST /v1/orders.
func (r *Razorpay) CreateGatewayOrder(ctx context.Context, req GatewayOrderRequest) (GatewayOrderResponse, error) {
	if req.Amount <= 0 {
		return GatewayOrderResponse{}, errors.New("payment: amount must be positive")
	}
	body, err := json.Marshal(razorpayOrderRequest{
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		return GatewayOrderResponse{}, fmt.Errorf("payment: encode order request: %w", err)
	}

	url := strings.TrimRight(r.baseURL(), "/") + "/v1/orders"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return GatewayOrderResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(r.KeyID, r.KeySecret)

	resp, err := r.client().Do(httpReq)
	if err != nil {
		return GatewayOrderResponse{}, fmt.Errorf("payment: gateway request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return GatewayOrderResponse{}, fmt.Errorf("payment: read gateway response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var gwErr razorpayErrorResponse
		if json.Unmarshal(data, &gwErr) == nil && gwErr.Error.Description != "" {
			return GatewayOrderResponse{}, fmt.Errorf("payment: gateway order failed (%d %s): %s", resp.StatusCode, gwErr.Error.Code, gwErr.Error.Description)
		}
		return GatewayOrderResponse{}, fmt.Errorf("payment: gateway order failed with status %d", resp.StatusCode)
	}

	var parsed razorpayOrderResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return GatewayOrderResponse{}, fmt.Errorf("payment: decode gateway response: %w", err)
	}
	if parsed.ID == "" {
		return GatewayOrderResponse{}, errors.New("payment: gateway returned no order id")
	}
	return GatewayOrderResponse{
		GatewayOrderID: parsed.ID,
		Amount:         parsed.Amount,
		Currency:       parsed.Currency,
		Status:         parsed.Status,
	}, nil
}

// VerifySignature checks the checkout callback signature. The signed message
// is "<gateway order id>|<gateway payment id>" and the key is the API secret.
func (r *Razorpay) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	if gatewayOrderID == "" || gatewayPaymentID == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(r.KeySecret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

// ClientKey returns the publishable key id.
func (r *Razorpay) ClientKey() string {
	return r.KeyID
}

func (r *Razorpay) baseURL() string {
	if strings.TrimSpace(r.BaseURL) == "" {
		return defaultRazorpayBaseURL
	}
	return r.BaseURL
}

func (r *Razorpay) client() *http.Client {
	if r.Client != nil {
		return r.Client
	}
	return http.DefaultClient
}
