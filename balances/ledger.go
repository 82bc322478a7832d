package balances

import (
	"encoding/json"
	"fmt"

	"github.com/nearkit/plugins/accounts"
	"github.com/nearkit/plugins/host"
	"github.com/nearkit/plugins/native"
	"github.com/nearkit/plugins/pkg/log"
)

// OnTransferOpts is the optional message payload on inbound transfers. It
// lets the transferring contract credit a principal other than the literal
// sender.
type OnTransferOpts struct {
	SenderID native.AccountID `json:"sender_id"`
}

// TokenBalance pairs a token with an amount in query results.
type TokenBalance struct {
	Token  TokenID        `json:"token_id"`
	Amount native.Balance `json:"amount"`
}

// Ledger tracks per-account balances of external assets inside the account
// store's Info payload. Every mutation goes through the store's storage
// meter, so growing a balance map is paid for by the account it belongs to.
type Ledger[Info BalanceInfo] struct {
	accounts *accounts.Accounts[Info]
	env      host.Env
}

func NewLedger[Info BalanceInfo](store *accounts.Accounts[Info]) *Ledger[Info] {
	return &Ledger[Info]{accounts: store, env: store.Env()}
}

// Accounts exposes the underlying account store.
func (l *Ledger[Info]) Accounts() *accounts.Accounts[Info] {
	return l.accounts
}

// GetBalance returns the account's balance of the given token; untracked
// tokens read as zero.
func (l *Ledger[Info]) GetBalance(accountID native.AccountID, token TokenID) (native.Balance, error) {
	acc, err := l.accounts.GetChecked(accountID)
	if err != nil {
		return native.Balance{}, err
	}
	return acc.Info.GetBalance(token), nil
}

// GetAllBalances lists every tracked token of the account in stable order.
func (l *Ledger[Info]) GetAllBalances(accountID native.AccountID) ([]TokenBalance, error) {
	acc, err := l.accounts.GetChecked(accountID)
	if err != nil {
		return nil, err
	}
	tokens := acc.Info.AllTokens()
	out := make([]TokenBalance, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, TokenBalance{Token: token, Amount: acc.Info.GetBalance(token)})
	}
	return out, nil
}

// Increase credits amount of token to a registered account. The write is
// storage-metered: first contact with a new token grows the account's map
// and must be covered by its available balance.
func (l *Ledger[Info]) Increase(accountID native.AccountID, token TokenID, amount native.Balance) error {
	acc, err := l.accounts.GetChecked(accountID)
	if err != nil {
		return err
	}
	current := acc.Info.GetBalance(token)
	updated, err := current.Add(amount)
	if err != nil {
		return err
	}
	log.Balances.Debug().
		Stringer("account", accountID).
		Stringer("token", token).
		Stringer("amount", amount).
		Stringer("current", current).
		Msg("increasing balance")
	return l.accounts.InsertChecked(accountID, acc, func(acc *accounts.Account[Info]) error {
		acc.Info.SetBalance(token, updated)
		return nil
	})
}

// Subtract debits amount of token, failing with ErrInsufficientBalance if
// the account holds less.
func (l *Ledger[Info]) Subtract(accountID native.AccountID, token TokenID, amount native.Balance) error {
	acc, err := l.accounts.GetChecked(accountID)
	if err != nil {
		return err
	}
	current := acc.Info.GetBalance(token)
	updated, ok := current.SubChecked(amount)
	if !ok {
		return fmt.Errorf("%w: account %s holds %s of %s, requested %s",
			ErrInsufficientBalance, accountID, current, token, amount)
	}
	log.Balances.Debug().
		Stringer("account", accountID).
		Stringer("token", token).
		Stringer("amount", amount).
		Stringer("current", current).
		Msg("subtracting balance")
	return l.accounts.InsertChecked(accountID, acc, func(acc *accounts.Account[Info]) error {
		acc.Info.SetBalance(token, updated)
		return nil
	})
}

// Transfer moves amount of token from the caller to recipient, who must be
// registered. The two writes are independently metered: if crediting the
// recipient fails, the caller's debit has already committed and the whole
// call is rolled back by the runtime.
func (l *Ledger[Info]) Transfer(recipient native.AccountID, token TokenID, amount native.Balance, msg string) error {
	if err := accounts.RequireOneYocto(l.env); err != nil {
		return err
	}
	caller := l.env.PredecessorAccountID()
	if msg != "" {
		log.Balances.Info().Str("msg", msg).Msg("balance transfer message")
	}
	if err := l.Subtract(caller, token, amount); err != nil {
		return err
	}
	return l.Increase(recipient, token, amount)
}

// StorageCostForOneBalance measures what tracking one more token costs an
// account, letting integrators quote the incremental deposit needed before
// a first transfer of a new asset.
func (l *Ledger[Info]) StorageCostForOneBalance(token TokenID) (native.Balance, error) {
	id := native.LongestAccountID()
	acc := l.accounts.NewAccount(id)
	if err := l.accounts.InsertUnchecked(id, &acc); err != nil {
		return native.Balance{}, err
	}
	before := l.env.StorageUsage()
	acc.Info.SetBalance(token, native.Balance{})
	if err := l.accounts.InsertUnchecked(id, &acc); err != nil {
		return native.Balance{}, err
	}
	delta := l.env.StorageUsage() - before
	if _, _, err := l.accounts.RemoveUnchecked(id); err != nil {
		return native.Balance{}, err
	}
	return l.env.StorageByteCost().MulUint64(delta)
}

func parseOpts(msg string, fallback native.AccountID) (native.AccountID, error) {
	if msg == "" {
		return fallback, nil
	}
	var opts OnTransferOpts
	if err := json.Unmarshal([]byte(msg), &opts); err != nil {
		return "", fmt.Errorf("parsing transfer opts: %w", err)
	}
	if err := opts.SenderID.Validate(); err != nil {
		return "", err
	}
	return opts.SenderID, nil
}
