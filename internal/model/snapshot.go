package model

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// AccountSnapshot holds the account fields scraped from an authenticated
// portal page. Values are copied verbatim from the page apart from trimming.
type AccountSnapshot struct {
	// DisplayedName is the name shown in the portal's welcome element.
	DisplayedName string `json:"displayed_name,omitempty"`

	// SubscriptionDate is the raw subscription date text.
	SubscriptionDate string `json:"subscription_date,omitempty"`

	// PlanText is the raw plan (service package) description.
	PlanText string `json:"plan,omitempty"`

	// StatusText is the raw account status text.
	StatusText string `json:"status,omitempty"`

	// AvailableBalanceText is the raw remaining balance or traffic text.
	AvailableBalanceText string `json:"available_balance,omitempty"`

	// ExpiryDateText is the raw expiry date text.
	ExpiryDateText string `json:"expiry_date,omitempty"`
}

// IsEmpty reports whether none of the table-derived fields were found.
// DisplayedName is not considered: a welcome label alone does not prove the
// account table was rendered.
func (s AccountSnapshot) IsEmpty() bool {
	return s.SubscriptionDate == "" &&
		s.PlanText == "" &&
		s.StatusText == "" &&
		s.AvailableBalanceText == "" &&
		s.ExpiryDateText == ""
}

// Fingerprint returns a SHA3-256 hex digest of all fields.
// Two snapshots with the same fingerprint carry the same data, which lets
// the store skip writing unchanged refreshes.
func (s AccountSnapshot) Fingerprint() string {
	fields := []string{
		s.DisplayedName,
		s.SubscriptionDate,
		s.PlanText,
		s.StatusText,
		s.AvailableBalanceText,
		s.ExpiryDateText,
	}
	sum := sha3.Sum256([]byte(strings.Join(fields, "\x1f")))
	return hex.EncodeToString(sum[:])
}
