package balances

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/nearkit/plugins/accounts"
	"github.com/nearkit/plugins/host"
	"github.com/nearkit/plugins/native"
	"github.com/nearkit/plugins/pkg/log"
)

// ResolveWithdrawMethod is the self-callback chained after every outbound
// transfer.
const ResolveWithdrawMethod = "resolve_internal_withdraw_call"

// Gas allowances for the external transfer legs, sized like the reference
// token standards expect: the base transfer cost plus headroom for receiver
// hooks.
const (
	GasForFTTransfer  host.Gas = 25_000_000_000_000 + 3*5_000_000_000_000
	GasForNFTTransfer host.Gas = 25_000_000_000_000 + 3*5_000_000_000_000
	GasForMTTransfer  host.Gas = 5_000_000_000_000
	GasForResolve     host.Gas = 5_000_000_000_000
)

type ftTransferArgs struct {
	ReceiverID native.AccountID `json:"receiver_id"`
	Amount     native.Balance   `json:"amount"`
	Memo       string           `json:"memo,omitempty"`
}

type nftTransferArgs struct {
	ReceiverID native.AccountID `json:"receiver_id"`
	TokenID    string           `json:"token_id"`
	Memo       string           `json:"memo,omitempty"`
}

type mtTransferArgs struct {
	ReceiverID native.AccountID `json:"receiver_id"`
	TokenID    string           `json:"token_id"`
	Amount     native.Balance   `json:"amount"`
	Memo       string           `json:"memo,omitempty"`
}

type resolveArgs struct {
	PendingID uuid.UUID `json:"pending_id"`
}

// WithdrawTo debits amount of token from the caller and sends it to
// recipient (the caller when empty) on the token's originating contract.
// The debit commits now; the returned pending transfer is reconciled by the
// resolve callback once the external transfer settles. For NFT tokens
// amount is ignored and one unit moves.
func (l *Ledger[Info]) WithdrawTo(amount native.Balance, token TokenID, recipient native.AccountID, msg string) (*PendingTransfer, error) {
	return l.withdraw(amount, token, recipient, msg, false)
}

// WithdrawCallTo is the transfer-and-call variant for fungible tokens: the
// recipient contract reports how much it consumed, and the resolve callback
// re-credits the remainder.
func (l *Ledger[Info]) WithdrawCallTo(amount native.Balance, token TokenID, recipient native.AccountID, msg string) (*PendingTransfer, error) {
	if token.Kind != FT {
		return nil, fmt.Errorf("%w: transfer-and-call is only defined for fungible tokens", ErrUnsupportedTokenKind)
	}
	return l.withdraw(amount, token, recipient, msg, true)
}

func (l *Ledger[Info]) withdraw(amount native.Balance, token TokenID, recipient native.AccountID, msg string, isCall bool) (*PendingTransfer, error) {
	if err := accounts.RequireOneYocto(l.env); err != nil {
		return nil, err
	}
	if err := token.Validate(); err != nil {
		return nil, err
	}
	caller := l.env.PredecessorAccountID()
	if recipient == "" {
		recipient = caller
	}
	if token.Kind == NFT {
		amount = native.NewBalance(1)
	}

	// Debit phase. From here until the resolve callback the ledger is
	// below its true value; a failed transfer restores it there.
	if err := l.Subtract(caller, token, amount); err != nil {
		return nil, err
	}

	method, args, gas, err := transferCall(token, recipient, amount, msg, isCall)
	if err != nil {
		return nil, err
	}
	promise, err := l.env.FunctionCall(token.Contract, method, args, native.OneYocto, gas)
	if err != nil {
		return nil, err
	}

	pending := &PendingTransfer{
		ID:      uuid.New(),
		Account: caller,
		Token:   token,
		Amount:  amount,
		IsCall:  isCall,
		Promise: promise,
	}
	if err := l.putPending(pending); err != nil {
		return nil, err
	}
	callbackArgs, err := json.Marshal(resolveArgs{PendingID: pending.ID})
	if err != nil {
		return nil, err
	}
	if _, err := l.env.ThenSelf(promise, ResolveWithdrawMethod, callbackArgs, GasForResolve); err != nil {
		return nil, err
	}
	log.Balances.Info().
		Stringer("account", caller).
		Stringer("token", token).
		Stringer("amount", amount).
		Stringer("pending", pending.ID).
		Msg("withdrawal initiated")
	return pending, nil
}

func transferCall(token TokenID, recipient native.AccountID, amount native.Balance, msg string, isCall bool) (method string, args []byte, gas host.Gas, err error) {
	switch token.Kind {
	case FT:
		method, gas = "ft_transfer", GasForFTTransfer
		if isCall {
			method = "ft_transfer_call"
		}
		args, err = json.Marshal(ftTransferArgs{ReceiverID: recipient, Amount: amount, Memo: msg})
	case NFT:
		method, gas = "nft_transfer", GasForNFTTransfer
		args, err = json.Marshal(nftTransferArgs{ReceiverID: recipient, TokenID: token.SubID, Memo: msg})
	case MT:
		method, gas = "mt_transfer", GasForMTTransfer
		args, err = json.Marshal(mtTransferArgs{ReceiverID: recipient, TokenID: token.SubID, Amount: amount, Memo: msg})
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedTokenKind, token.Kind)
	}
	return method, args, gas, err
}

// ResolveWithdraw is the self-only callback finishing a withdrawal. It
// consumes the pending record (a replayed callback finds nothing and
// fails), then reconciles: a failed transfer re-credits the full amount, a
// plain transfer consumed everything, and a transfer-and-call re-credits
// whatever the recipient reported unused. Returns the amount consumed.
func (l *Ledger[Info]) ResolveWithdraw(pendingID uuid.UUID) (native.Balance, error) {
	if l.env.PredecessorAccountID() != l.env.CurrentAccountID() {
		return native.Balance{}, ErrSelfCallbackOnly
	}
	pending, err := l.takePending(pendingID)
	if err != nil {
		return native.Balance{}, err
	}
	if pending.Amount.IsZero() {
		return native.Balance{}, nil
	}

	result, err := l.env.PromiseResult()
	if err != nil {
		return native.Balance{}, err
	}
	if !result.Success {
		log.Balances.Info().
			Stringer("pending", pendingID).
			Stringer("account", pending.Account).
			Msg("external transfer failed, redepositing funds")
		if err := l.Increase(pending.Account, pending.Token, pending.Amount); err != nil {
			return native.Balance{}, err
		}
		return native.Balance{}, nil
	}

	used := pending.Amount
	if pending.IsCall {
		used, err = parseUsedAmount(result.Data)
		if err != nil {
			return native.Balance{}, err
		}
		if used.Cmp(pending.Amount) > 0 {
			return native.Balance{}, fmt.Errorf("%w: reported %s used of %s withdrawn",
				ErrMalformedCallbackPayload, used, pending.Amount)
		}
	}
	unused, _ := pending.Amount.SubChecked(used)
	if !unused.IsZero() {
		log.Balances.Debug().Stringer("unused", unused).Msg("crediting back unused amount")
		if err := l.Increase(pending.Account, pending.Token, unused); err != nil {
			return native.Balance{}, err
		}
	}
	return used, nil
}

// parseUsedAmount reads the consumed amount a transfer-and-call recipient
// reports: a JSON string holding a decimal u128.
func parseUsedAmount(data []byte) (native.Balance, error) {
	var dec string
	if err := json.Unmarshal(data, &dec); err != nil {
		return native.Balance{}, fmt.Errorf("%w: %s", ErrMalformedCallbackPayload, err)
	}
	used, err := native.BalanceFromDecimal(dec)
	if err != nil {
		return native.Balance{}, fmt.Errorf("%w: %s", ErrMalformedCallbackPayload, err)
	}
	return used, nil
}
