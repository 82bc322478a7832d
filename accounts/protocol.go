package accounts

import (
	"fmt"

	"github.com/nearkit/plugins/native"
	"github.com/nearkit/plugins/pkg/log"
)

// StorageDeposit credits the attached deposit to accountID (the caller when
// empty). An unregistered target is registered if the deposit covers its
// measured storage cost and the registry minimum; otherwise the full amount
// is refunded and a zero balance returned, so callers detect the soft
// failure by inspecting the result. With registrationOnly, any amount
// beyond the storage cost is refunded.
func (a *Accounts[Info]) StorageDeposit(accountID native.AccountID, registrationOnly bool) (StorageBalance, error) {
	caller := a.env.PredecessorAccountID()
	id := accountID
	if id == "" {
		id = caller
	}
	if err := id.Validate(); err != nil {
		return StorageBalance{}, err
	}
	attached := a.env.AttachedDeposit()

	acc, registered, err := a.Get(id)
	if err != nil {
		return StorageBalance{}, err
	}

	switch {
	case registered && registrationOnly:
		log.Accounts.Debug().Stringer("account", id).Msg("account already registered")
		if err := a.refund(caller, attached); err != nil {
			return StorageBalance{}, err
		}
		return acc.StorageBalance(), nil

	case registered:
		total, err := acc.NearAmount.Add(attached)
		if err != nil {
			return StorageBalance{}, err
		}
		acc.NearAmount = total
		if err := a.InsertUnchecked(id, acc); err != nil {
			return StorageBalance{}, err
		}
		return acc.StorageBalance(), nil
	}

	// Registering measures the cost by provisionally storing the default
	// record for this id.
	cost, err := a.storageCost(id, true)
	if err != nil {
		return StorageBalance{}, err
	}
	if attached.Cmp(cost) < 0 || attached.Cmp(a.minStorageBal) < 0 {
		log.Accounts.Debug().
			Stringer("account", id).
			Stringer("attached", attached).
			Stringer("required", cost).
			Msg("deposit below registration cost, refunding")
		if _, _, err := a.RemoveUnchecked(id); err != nil {
			return StorageBalance{}, err
		}
		if err := a.refund(caller, attached); err != nil {
			return StorageBalance{}, err
		}
		return StorageBalance{}, nil
	}

	acc, err = a.GetChecked(id)
	if err != nil {
		return StorageBalance{}, err
	}
	if registrationOnly {
		acc.NearAmount = cost
		acc.NearUsedForStorage = cost
		if err := a.InsertUnchecked(id, acc); err != nil {
			return StorageBalance{}, err
		}
		// attached >= cost was checked above.
		excess, _ := attached.SubChecked(cost)
		if err := a.refund(caller, excess); err != nil {
			return StorageBalance{}, err
		}
	} else {
		// The caller overpaid on purpose: the excess stays as prepaid
		// available balance.
		acc.NearAmount = attached
		acc.NearUsedForStorage = cost
		if err := a.InsertUnchecked(id, acc); err != nil {
			return StorageBalance{}, err
		}
	}
	log.Accounts.Info().Stringer("account", id).Stringer("total", acc.NearAmount).Msg("account registered")
	return acc.StorageBalance(), nil
}

// StorageWithdraw sends part of the caller's available balance back to the
// caller; amount nil withdraws everything available.
func (a *Accounts[Info]) StorageWithdraw(amount *native.Balance) (StorageBalance, error) {
	if err := a.requireOneYocto(); err != nil {
		return StorageBalance{}, err
	}
	caller := a.env.PredecessorAccountID()
	acc, err := a.GetChecked(caller)
	if err != nil {
		return StorageBalance{}, err
	}

	available := acc.AvailableNear()
	withdrawal := available
	if amount != nil {
		if amount.Cmp(available) > 0 {
			return StorageBalance{}, fmt.Errorf("%w: requested %s, available %s",
				ErrExcessiveWithdrawal, amount, available)
		}
		withdrawal = *amount
	}

	remaining, ok := acc.NearAmount.SubChecked(withdrawal)
	if !ok {
		return StorageBalance{}, ErrExcessiveWithdrawal
	}
	acc.NearAmount = remaining
	if err := a.InsertUnchecked(caller, acc); err != nil {
		return StorageBalance{}, err
	}
	if err := a.env.TransferNative(caller, withdrawal); err != nil {
		return StorageBalance{}, err
	}
	return acc.StorageBalance(), nil
}

// StorageUnregister deletes the caller's account and refunds its full
// balance. Without force it is a soft no-op returning false.
func (a *Accounts[Info]) StorageUnregister(force bool) (bool, error) {
	if !force {
		log.Accounts.Debug().Msg("can only unregister with force")
		return false, nil
	}
	if err := a.requireOneYocto(); err != nil {
		return false, err
	}
	caller := a.env.PredecessorAccountID()
	acc, found, err := a.RemoveUnchecked(caller)
	if err != nil {
		return false, err
	}
	if !found {
		return false, fmt.Errorf("%w: %s", ErrAccountNotRegistered, caller)
	}
	log.Accounts.Info().Stringer("account", caller).Msg("deleting account")
	if err := a.env.TransferNative(caller, acc.NearAmount); err != nil {
		return false, err
	}
	return true, nil
}

func (a *Accounts[Info]) StorageBalanceBounds() BalanceBounds {
	return BalanceBounds{Min: a.minStorageBal}
}

// StorageBalanceOf returns the balance of accountID, or nil if it is not
// registered.
func (a *Accounts[Info]) StorageBalanceOf(accountID native.AccountID) (*StorageBalance, error) {
	acc, found, err := a.Get(accountID)
	if err != nil || !found {
		return nil, err
	}
	balance := acc.StorageBalance()
	return &balance, nil
}

// NearBalanceOf is StorageBalanceOf under the name callers reaching for
// the native balance expect.
func (a *Accounts[Info]) NearBalanceOf(accountID native.AccountID) (*StorageBalance, error) {
	return a.StorageBalanceOf(accountID)
}

func (a *Accounts[Info]) requireOneYocto() error {
	return RequireOneYocto(a.env)
}

func (a *Accounts[Info]) refund(receiver native.AccountID, amount native.Balance) error {
	if amount.IsZero() {
		return nil
	}
	return a.env.TransferNative(receiver, amount)
}
