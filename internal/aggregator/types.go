package aggregator

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LinkToken is a short-lived token handed to the frontend to start the
// account-linking flow.
type LinkToken struct {
	LinkToken  string    `json:"link_token"`
	Expiration time.Time `json:"expiration"`
}

// ExchangeResult is the durable credential pair obtained by exchanging a
// public token after the user completes the link flow.
type ExchangeResult struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}

// Account is one bank account as reported by the aggregator.
type Account struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Subtype   string `json:"subtype"`
}

// TxRecord is one transaction record from the delta feed.
//
// Amount uses the aggregator's convention: positive means money leaving the
// account. The sync engine flips the sign on ingest.
//
// On modify deltas the optional fields (Name, Category, Pending, Date) may be
// absent; absent fields must not overwrite previously synced values.
type TxRecord struct {
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Category      []string        `json:"category"`
	Name          string          `json:"name,omitempty"`
	Date          string          `json:"date,omitempty"`
	AccountID     string          `json:"account_id,omitempty"`
	Pending       *bool           `json:"pending,omitempty"`
}

// RemovedRecord identifies a transaction deleted upstream.
type RemovedRecord struct {
	TransactionID string `json:"transaction_id"`
}

// DeltaPage is one page of the cursor-based transaction delta feed.
type DeltaPage struct {
	Added      []TxRecord      `json:"added"`
	Modified   []TxRecord      `json:"modified"`
	Removed    []RemovedRecord `json:"removed"`
	NextCursor string          `json:"next_cursor"`
	HasMore    bool            `json:"has_more"`
}

// APIError is a structured error response from the aggregator.
type APIError struct {
	StatusCode int    `json:"-"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"error_message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("aggregator: %s (%s, http %d)", e.Message, e.ErrorCode, e.StatusCode)
}
