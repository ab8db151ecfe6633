package model

// Credential is the identity used to attempt a portal login.
// It is owned by the persistence layer and passed by value into the engine.
type Credential struct {
	// ID is the persistence identifier. Zero means the credential has not
	// been stored yet (for example, a username candidate under test).
	ID int64 `json:"id,omitempty"`

	// LoginName is the portal username.
	LoginName string `json:"login_name"`

	// Secret is the portal password. It is never serialized.
	Secret string `json:"-"`

	// NetworkID identifies the owner sub-network of the account.
	NetworkID string `json:"network_id,omitempty"`

	// LineNumber is the ADSL line the account belongs to.
	LineNumber string `json:"line_number,omitempty"`
}
