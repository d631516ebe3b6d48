package gateway

import (
	"context"
	"errors"
)

// Outcome is the provider-reported result of a payment attempt after the
// gateway-specific payload has been interpreted.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeConfirmed
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ErrProviderUnavailable marks network failures, timeouts and provider-side
// errors on outbound calls.
var ErrProviderUnavailable = errors.New("payment provider unavailable")

// ErrBadSignature marks webhook authenticity failures.
var ErrBadSignature = errors.New("webhook signature mismatch")

type InitializeRequest struct {
	Reference     string
	Amount        int64
	Currency      string
	CustomerEmail string
}

type InitializeResult struct {
	// Reference is the external reference the provider will report back with:
	// our tx_ref for Flutterwave, the provider's order id for PayPal.
	Reference string
	// PaymentLink is the hosted checkout or approval URL the client is sent to.
	PaymentLink string
}

// Gateway is one payment provider. Payload schemas are provider-owned; only
// the owning gateway parses them.
type Gateway interface {
	Name() string
	Currency() string
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	VerifyWebhook(payload []byte, signature string) error
	ParseOutcome(payload []byte) (Outcome, string)
}

// TransactionVerifier is implemented by gateways that can confirm a
// transaction by polling the provider (the Flutterwave redirect callback path).
type TransactionVerifier interface {
	VerifyTransaction(ctx context.Context, transactionID string) ([]byte, error)
}

// OrderCapturer is implemented by two-phase gateways where the client's
// follow-up request triggers the capture (PayPal).
type OrderCapturer interface {
	CaptureOrder(ctx context.Context, orderID string) ([]byte, error)
}

// Registry selects a gateway by its wire name.
type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry(gws ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway, len(gws))}
	for _, gw := range gws {
		r.gateways[gw.Name()] = gw
	}
	return r
}

func (r *Registry) Lookup(name string) (Gateway, bool) {
	gw, ok := r.gateways[name]
	return gw, ok
}
