package payment

import "context"

// GatewayOrderRequest captures the information required to open an order with
// the payment gateway. Amount is in minor units.
type GatewayOrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

// GatewayOrderResponse is the minimal information returned by the gateway
// when an order is created.
type GatewayOrderResponse struct {
	GatewayOrderID string
	Amount         int64
	Currency       string
	Status         string
}

// Provider abstracts the operations required from the upstream payment
// gateway.
type Provider interface {
	// CreateGatewayOrder opens a gateway order for the given amount.
	CreateGatewayOrder(ctx context.Context, req GatewayOrderRequest) (GatewayOrderResponse, error)
	// VerifySignature reports whether the signature authenticates the
	// (gateway order, gateway payment) pair.
	VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool
	// ClientKey returns the publishable key the frontend uses to open the
	// gateway's checkout widget.
	ClientKey() string
}
