package domain

import "time"

// Account is one bank account exposed by a linked item.
type Account struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Subtype   string `json:"subtype,omitempty"`
}

// LinkedItem is one external bank connection owned by a single user.
// AccessToken is the durable aggregator credential obtained from the
// public-token exchange; it never leaves the backend.
type LinkedItem struct {
	ItemID       string     `json:"item_id"`
	AccessToken  string     `json:"-"`
	Accounts     []Account  `json:"accounts"`
	SyncCursor   string     `json:"-"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// AccountName returns the display name for an account id, or the empty
// string when the id is not among the item's accounts.
func (it LinkedItem) AccountName(accountID string) string {
	for _, acc := range it.Accounts {
		if acc.AccountID == accountID {
			return acc.Name
		}
	}
	return ""
}
