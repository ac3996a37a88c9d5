package wallet

// DefaultCurrency is used when an account has no wallet.
const DefaultCurrency = "USD"

const (
	LogMsgWalletCached    = "Wallet currency served from session"
	LogMsgWalletResolved  = "Wallet currency resolved"
	LogMsgNoWallet        = "Account has no wallet, using default currency"
	LogMsgWalletRPCFailed = "Wallet details request failed"
	LogMsgInvalidCurrency = "Wallet reported an unknown currency code"
)
