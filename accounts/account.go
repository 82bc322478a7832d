// Package accounts implements prepaid storage accounting for contract
// state. Each registered account holds a native-currency balance; the part
// of it earmarked as collateral for the account's persisted bytes grows and
// shrinks as mutations are metered against the host's storage-usage counter.
package accounts

import (
	"fmt"

	"github.com/nearkit/plugins/native"
)

// Account is the per-principal record the store persists. Info is the
// hosting contract's extension payload (for the balance ledger, a token
// balance map).
type Account[Info any] struct {
	// NearAmount is the total native currency the account has prepaid
	// into the contract.
	NearAmount native.Balance `json:"near_amount"`
	// NearUsedForStorage is the portion of NearAmount currently held as
	// collateral for this account's persisted bytes.
	NearUsedForStorage native.Balance `json:"near_used_for_storage"`
	Info               Info           `json:"info"`
}

// StorageBalance is the externally visible balance of an account.
type StorageBalance struct {
	Total     native.Balance `json:"total"`
	Available native.Balance `json:"available"`
}

// BalanceBounds reports the registration minimum. Max is always nil: there
// is no ceiling on prepayment.
type BalanceBounds struct {
	Min native.Balance  `json:"min"`
	Max *native.Balance `json:"max"`
}

// AvailableNear is NearAmount minus the storage collateral. The collateral
// exceeding the total is an accounting bug, never a recoverable condition.
func (a *Account[Info]) AvailableNear() native.Balance {
	available, ok := a.NearAmount.SubChecked(a.NearUsedForStorage)
	if !ok {
		panic(fmt.Sprintf("storage collateral %s exceeds account total %s",
			a.NearUsedForStorage, a.NearAmount))
	}
	return available
}

func (a *Account[Info]) StorageBalance() StorageBalance {
	return StorageBalance{
		Total:     a.NearAmount,
		Available: a.AvailableNear(),
	}
}
