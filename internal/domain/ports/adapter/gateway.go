package adapter

import (
	"context"
	"time"
)

// TokenSource yields a valid gateway access token, refreshing it when
// the cached one is near expiry.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// PaymentRecord is the gateway's full view of a payment, fetched by id
// after a webhook notification names it.
type PaymentRecord struct {
	ID                string
	Status            string
	StatusDetail      string
	LiveMode          bool
	TransactionAmount float64
	CurrencyID        string
	PaymentMethodID   string
	ExternalReference string
	Description       string
	Metadata          map[string]any
	DateApproved      *time.Time
	DateCreated       time.Time
}

// PreapprovalRecord is the gateway's recurring-payment contract.
type PreapprovalRecord struct {
	ID                string
	Status            string
	PayerEmail        string
	ExternalReference string
	Reason            string
	AutoRecurring     struct {
		Frequency         int
		FrequencyType     string
		TransactionAmount float64
		CurrencyID        string
	}
}

// PreferenceItem is one line of a checkout preference.
type PreferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id,omitempty"`
}

type PreferencePayer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// PreferenceRequest creates a gateway-side checkout session.
// ExternalReference carries the user id; Metadata carries the typed
// payment metadata so webhooks can be reconciled without local state.
type PreferenceRequest struct {
	Items             []PreferenceItem `json:"items"`
	Payer             PreferencePayer  `json:"payer"`
	BackURLs          BackURLs         `json:"back_urls"`
	AutoReturn        string           `json:"auto_return,omitempty"`
	ExternalReference string           `json:"external_reference"`
	Metadata          map[string]any   `json:"metadata,omitempty"`
}

type PreferenceResponse struct {
	PreferenceID string
	InitPoint    string
}

// PaymentGateway is the outbound port to the payment processor. No call
// retries internally; callers decide.
type PaymentGateway interface {
	GetPayment(ctx context.Context, id string) (*PaymentRecord, error)
	GetPreapproval(ctx context.Context, id string) (*PreapprovalRecord, error)
	CreatePreference(ctx context.Context, req *PreferenceRequest) (*PreferenceResponse, error)
	// SearchPaymentsByPreference lists the ids of payments the gateway
	// recorded against a checkout preference. Used to recover attempts
	// whose webhook never arrived.
	SearchPaymentsByPreference(ctx context.Context, preferenceID string) ([]string, error)
}
