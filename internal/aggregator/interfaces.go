package aggregator

import "context"

// Client defines the operations the backend needs from the financial data
// aggregator. This interface enables mocking in sync-engine and handler
// tests.
type Client interface {
	// CreateLinkToken issues a short-lived link token for the given user.
	CreateLinkToken(ctx context.Context, userID string) (*LinkToken, error)

	// ExchangePublicToken trades the temporary public token from a completed
	// link flow for a durable access token and item id.
	ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResult, error)

	// GetAccounts lists the accounts behind an access token.
	GetAccounts(ctx context.Context, accessToken string) ([]Account, error)

	// SyncTransactions fetches one page of the transaction delta feed.
	// An empty cursor requests the full history from the beginning.
	SyncTransactions(ctx context.Context, accessToken, cursor string) (*DeltaPage, error)
}
