package balances

import (
	"sort"

	"github.com/nearkit/plugins/native"
)

// BalanceInfo is the capability the ledger needs from the account extension
// payload. The Accounts store stays generic; any Info type carrying a token
// balance map can host the ledger.
type BalanceInfo interface {
	GetBalance(token TokenID) native.Balance
	SetBalance(token TokenID, balance native.Balance)
	AllTokens() []TokenID
}

// TokenBalances is the stock BalanceInfo implementation: a token balance
// map and nothing else. Contracts needing extra per-account state embed it
// in their own Info type.
type TokenBalances struct {
	Balances map[TokenID]native.Balance `json:"balances"`
}

// NewTokenBalances is a default-Info constructor for accounts.NewAccounts.
func NewTokenBalances(native.AccountID) *TokenBalances {
	return &TokenBalances{Balances: make(map[TokenID]native.Balance)}
}

func (tb *TokenBalances) GetBalance(token TokenID) native.Balance {
	return tb.Balances[token]
}

func (tb *TokenBalances) SetBalance(token TokenID, balance native.Balance) {
	if tb.Balances == nil {
		tb.Balances = make(map[TokenID]native.Balance)
	}
	tb.Balances[token] = balance
}

// AllTokens lists the tracked tokens sorted by their text form, so callers
// iterating balances observe a stable order.
func (tb *TokenBalances) AllTokens() []TokenID {
	tokens := make([]TokenID, 0, len(tb.Balances))
	for token := range tb.Balances {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].String() < tokens[j].String() })
	return tokens
}
