package domain

// Account is the persisted credential record for one platform login.
type Account struct {
	SteamID      uint64 `json:"steam_id"` // 0 until the first successful logon
	Username     string `json:"username"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	DisplayName  string `json:"display_name,omitempty"`
	Currency     string `json:"currency,omitempty"`
}

// Label is the human-readable name used in logs and progress output.
func (a *Account) Label() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Username
}

// WalletInfo is the resolved billing currency of an account.
type WalletInfo struct {
	Currency string `json:"currency"`
}
