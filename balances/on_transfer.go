package balances

import (
	"github.com/nearkit/plugins/native"
	"github.com/nearkit/plugins/pkg/log"
)

// FtOnTransfer handles an inbound fungible-token deposit. The token
// contract calls it after moving tokens to this contract; the amount is
// credited internally to the sender, or to the principal named in msg's
// OnTransferOpts. Returns the unconsumed amount, always "0": deposits are
// accepted in full.
func (l *Ledger[Info]) FtOnTransfer(senderID native.AccountID, amount string, msg string) (string, error) {
	beneficiary, err := parseOpts(msg, senderID)
	if err != nil {
		return "", err
	}
	credited, err := native.BalanceFromDecimal(amount)
	if err != nil {
		return "", err
	}
	token := FungibleToken(l.env.PredecessorAccountID())
	if err := l.Increase(beneficiary, token, credited); err != nil {
		return "", err
	}
	return "0", nil
}

// NftOnTransfer handles an inbound non-fungible-token deposit, crediting
// one unit to the previous owner (or the principal in msg). Returns false:
// the token stays with this contract.
func (l *Ledger[Info]) NftOnTransfer(senderID, previousOwnerID native.AccountID, tokenID string, msg string) (bool, error) {
	beneficiary, err := parseOpts(msg, previousOwnerID)
	if err != nil {
		return false, err
	}
	token := NonFungibleToken(l.env.PredecessorAccountID(), tokenID)
	if err := l.Increase(beneficiary, token, native.NewBalance(1)); err != nil {
		return false, err
	}
	log.Balances.Debug().
		Stringer("account", beneficiary).
		Stringer("token", token).
		Msg("nft deposited")
	return false, nil
}

// MtOnTransfer handles an inbound multi-token deposit of one or more
// assets. Returns a zero per entry: deposits are accepted in full.
func (l *Ledger[Info]) MtOnTransfer(senderID native.AccountID, tokenIDs []string, amounts []native.Balance, msg string) ([]native.Balance, error) {
	if len(tokenIDs) != len(amounts) {
		return nil, ErrTokenAmountMismatch
	}
	beneficiary, err := parseOpts(msg, senderID)
	if err != nil {
		return nil, err
	}
	contract := l.env.PredecessorAccountID()
	for i, id := range tokenIDs {
		if err := l.Increase(beneficiary, MultiToken(contract, id), amounts[i]); err != nil {
			return nil, err
		}
	}
	return make([]native.Balance, len(tokenIDs)), nil
}
