package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Environment base URLs for the hosted aggregator.
const (
	EnvSandbox    = "https://sandbox.plaid.com"
	EnvProduction = "https://production.plaid.com"
)

const clientName = "Budget Tracker"

// HTTPClient is the concrete aggregator Client speaking the hosted service's
// JSON-over-POST protocol. Client credentials are injected into every request
// body, matching the service's authentication scheme.
type HTTPClient struct {
	baseURL    string
	clientID   string
	secret     string
	httpClient *http.Client
}

// NewHTTPClient creates a client against the given environment base URL.
func NewHTTPClient(baseURL, clientID, secret string) *HTTPClient {
	return &HTTPClient{
		baseURL:  baseURL,
		clientID: clientID,
		secret:   secret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateLinkToken issues a short-lived link token for the given user.
func (c *HTTPClient) CreateLinkToken(ctx context.Context, userID string) (*LinkToken, error) {
	req := map[string]any{
		"user":          map[string]string{"client_user_id": userID},
		"client_name":   clientName,
		"products":      []string{"transactions"},
		"country_codes": []string{"US"},
		"language":      "en",
	}

	var resp LinkToken
	if err := c.post(ctx, "/link/token/create", req, &resp); err != nil {
		return nil, fmt.Errorf("CreateLinkToken: %w", err)
	}
	return &resp, nil
}

// ExchangePublicToken trades a public token for a durable access token.
func (c *HTTPClient) ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResult, error) {
	req := map[string]any{"public_token": publicToken}

	var resp ExchangeResult
	if err := c.post(ctx, "/item/public_token/exchange", req, &resp); err != nil {
		return nil, fmt.Errorf("ExchangePublicToken: %w", err)
	}
	return &resp, nil
}

// GetAccounts lists the accounts behind an access token.
func (c *HTTPClient) GetAccounts(ctx context.Context, accessToken string) ([]Account, error) {
	req := map[string]any{"access_token": accessToken}

	var resp struct {
		Accounts []Account `json:"accounts"`
	}
	if err := c.post(ctx, "/accounts/get", req, &resp); err != nil {
		return nil, fmt.Errorf("GetAccounts: %w", err)
	}
	return resp.Accounts, nil
}

// SyncTransactions fetches one page of the transaction delta feed.
func (c *HTTPClient) SyncTransactions(ctx context.Context, accessToken, cursor string) (*DeltaPage, error) {
	req := map[string]any{"access_token": accessToken}
	if cursor != "" {
		req["cursor"] = cursor
	}

	var resp DeltaPage
	if err := c.post(ctx, "/transactions/sync", req, &resp); err != nil {
		return nil, fmt.Errorf("SyncTransactions: %w", err)
	}
	return &resp, nil
}

// post sends a JSON request with client credentials and decodes the response
// into out. Non-2xx responses are decoded into an *APIError.
func (c *HTTPClient) post(ctx context.Context, path string, body map[string]any, out any) error {
	body["client_id"] = c.clientID
	body["secret"] = c.secret

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.ErrorCode = "UNKNOWN"
			apiErr.Message = resp.Status
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Ensure HTTPClient implements the Client interface.
var _ Client = (*HTTPClient)(nil)
