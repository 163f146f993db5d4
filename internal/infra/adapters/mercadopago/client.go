package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"subscription-commerce/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*Client)(nil)

// GatewayError carries the gateway's HTTP status and raw body so the
// caller can distinguish a missing payment from an outage.
type GatewayError struct {
	Status int
	Body   string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.Status, e.Body)
}

// Client implements adapter.PaymentGateway over the gateway's REST API.
// It fetches a Bearer token per request from the TokenSource and never
// retries; the webhook caller decides on redelivery.
type Client struct {
	baseURL string
	tokens  adapter.TokenSource
	client  *http.Client
}

func NewClient(baseURL string, tokens adapter.TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type paymentResponse struct {
	ID                json.Number    `json:"id"`
	Status            string         `json:"status"`
	StatusDetail      string         `json:"status_detail"`
	LiveMode          bool           `json:"live_mode"`
	TransactionAmount float64        `json:"transaction_amount"`
	CurrencyID        string         `json:"currency_id"`
	PaymentMethodID   string         `json:"payment_method_id"`
	ExternalReference string         `json:"external_reference"`
	Description       string         `json:"description"`
	Metadata          map[string]any `json:"metadata"`
	DateApproved      *time.Time     `json:"date_approved"`
	DateCreated       time.Time      `json:"date_created"`
}

func (c *Client) GetPayment(ctx context.Context, id string) (*adapter.PaymentRecord, error) {
	var out paymentResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/payments/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &adapter.PaymentRecord{
		ID:                out.ID.String(),
		Status:            out.Status,
		StatusDetail:      out.StatusDetail,
		LiveMode:          out.LiveMode,
		TransactionAmount: out.TransactionAmount,
		CurrencyID:        out.CurrencyID,
		PaymentMethodID:   out.PaymentMethodID,
		ExternalReference: out.ExternalReference,
		Description:       out.Description,
		Metadata:          out.Metadata,
		DateApproved:      out.DateApproved,
		DateCreated:       out.DateCreated,
	}, nil
}

type preapprovalResponse struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	PayerEmail        string `json:"payer_email"`
	ExternalReference string `json:"external_reference"`
	Reason            string `json:"reason"`
	AutoRecurring     struct {
		Frequency         int     `json:"frequency"`
		FrequencyType     string  `json:"frequency_type"`
		TransactionAmount float64 `json:"transaction_amount"`
		CurrencyID        string  `json:"currency_id"`
	} `json:"auto_recurring"`
}

func (c *Client) GetPreapproval(ctx context.Context, id string) (*adapter.PreapprovalRecord, error) {
	var out preapprovalResponse
	if err := c.doJSON(ctx, http.MethodGet, "/preapproval/"+id, nil, &out); err != nil {
		return nil, err
	}
	rec := &adapter.PreapprovalRecord{
		ID:                out.ID,
		Status:            out.Status,
		PayerEmail:        out.PayerEmail,
		ExternalReference: out.ExternalReference,
		Reason:            out.Reason,
	}
	rec.AutoRecurring.Frequency = out.AutoRecurring.Frequency
	rec.AutoRecurring.FrequencyType = out.AutoRecurring.FrequencyType
	rec.AutoRecurring.TransactionAmount = out.AutoRecurring.TransactionAmount
	rec.AutoRecurring.CurrencyID = out.AutoRecurring.CurrencyID
	return rec, nil
}

type preferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

func (c *Client) CreatePreference(ctx context.Context, req *adapter.PreferenceRequest) (*adapter.PreferenceResponse, error) {
	var out preferenceResponse
	if err := c.doJSON(ctx, http.MethodPost, "/checkout/preferences", req, &out); err != nil {
		return nil, err
	}
	return &adapter.PreferenceResponse{PreferenceID: out.ID, InitPoint: out.InitPoint}, nil
}

type paymentSearchResponse struct {
	Results []struct {
		ID json.Number `json:"id"`
	} `json:"results"`
}

func (c *Client) SearchPaymentsByPreference(ctx context.Context, preferenceID string) ([]string, error) {
	var out paymentSearchResponse
	path := "/v1/payments/search?preference_id=" + url.QueryEscape(preferenceID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(out.Results))
	for _, r := range out.Results {
		ids = append(ids, r.ID.String())
	}
	return ids, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request data: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &GatewayError{Status: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(body))
	}
	return nil
}
