package accounts

import (
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/nearkit/plugins/host"
	"github.com/nearkit/plugins/native"
	"github.com/nearkit/plugins/pkg/log"
	"github.com/nearkit/plugins/pkg/serialization/codec"
)

// settleRounds bounds the fee-settlement loop in InsertChecked. Writing an
// updated collateral value can change the record's encoded size by a few
// bytes, so the usage reading is re-settled until stable.
const settleRounds = 4

// Accounts is the durable store of account records and the storage meter
// every mutation is charged through. One Accounts owns all records under
// its key prefix; records are never shared across calls.
type Accounts[Info any] struct {
	env     host.Env
	codec   codec.Codec
	newInfo func(native.AccountID) Info
	prefix  []byte

	minStorageBal native.Balance
}

// Option adjusts store construction.
type Option func(*storeConfig)

type storeConfig struct {
	prefix []byte
}

// WithPrefix namespaces the store's keys, for contracts embedding more than
// one account store.
func WithPrefix(prefix []byte) Option {
	return func(c *storeConfig) { c.prefix = prefix }
}

// NewAccounts builds a store over the given host environment. newInfo
// constructs the default extension payload for a freshly registered id.
// The registration minimum is measured here, once, by writing and removing
// a synthetic account under the longest legal id.
func NewAccounts[Info any](env host.Env, c codec.Codec, newInfo func(native.AccountID) Info, opts ...Option) (*Accounts[Info], error) {
	cfg := storeConfig{prefix: []byte("acc:")}
	for _, opt := range opts {
		opt(&cfg)
	}
	a := &Accounts[Info]{
		env:     env,
		codec:   c,
		newInfo: newInfo,
		prefix:  cfg.prefix,
	}
	minBal, err := a.storageCost(native.LongestAccountID(), false)
	if err != nil {
		return nil, fmt.Errorf("measuring default storage cost: %w", err)
	}
	a.minStorageBal = minBal
	return a, nil
}

// NewAccount is the default record for a freshly registered id: zero
// balances and a default-constructed Info.
func (a *Accounts[Info]) NewAccount(id native.AccountID) Account[Info] {
	return Account[Info]{Info: a.newInfo(id)}
}

// MinStorageBalance is the registration minimum measured at construction.
func (a *Accounts[Info]) MinStorageBalance() native.Balance {
	return a.minStorageBal
}

// Env exposes the host environment the store runs against.
func (a *Accounts[Info]) Env() host.Env {
	return a.env
}

// Get returns the account for id, or found=false if it is not registered.
func (a *Accounts[Info]) Get(id native.AccountID) (*Account[Info], bool, error) {
	raw, found, err := a.env.StorageRead(a.storageKey(id))
	if err != nil || !found {
		return nil, false, err
	}
	var acc Account[Info]
	if err := a.codec.Unmarshal(raw, &acc); err != nil {
		return nil, false, fmt.Errorf("decoding account %s: %w", id, err)
	}
	return &acc, true, nil
}

// GetChecked returns the account for id or ErrAccountNotRegistered.
func (a *Accounts[Info]) GetChecked(id native.AccountID) (*Account[Info], error) {
	acc, found, err := a.Get(id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotRegistered, id)
	}
	return acc, nil
}

// InsertUnchecked persists the record without metering. It is reserved for
// bootstrap bookkeeping (synthetic cost measurements, deposit-path balance
// setup); everything else goes through InsertChecked.
func (a *Accounts[Info]) InsertUnchecked(id native.AccountID, acc *Account[Info]) error {
	raw, err := a.codec.Marshal(acc)
	if err != nil {
		return fmt.Errorf("encoding account %s: %w", id, err)
	}
	return a.env.StorageWrite(a.storageKey(id), raw)
}

// RemoveUnchecked deletes the record without metering and returns the
// previous value, if any.
func (a *Accounts[Info]) RemoveUnchecked(id native.AccountID) (*Account[Info], bool, error) {
	acc, found, err := a.Get(id)
	if err != nil || !found {
		return nil, false, err
	}
	if _, err := a.env.StorageRemove(a.storageKey(id)); err != nil {
		return nil, false, err
	}
	return acc, true, nil
}

// InsertChecked is the storage meter. It runs mutate on acc, persists the
// record, and settles the resulting byte delta against the account: growth
// is charged to the available balance (ErrInsufficientStorageFunds on
// shortfall), shrink is refunded with the collateral floored at zero.
func (a *Accounts[Info]) InsertChecked(id native.AccountID, acc *Account[Info], mutate func(*Account[Info]) error) error {
	before := a.env.StorageUsage()
	if mutate != nil {
		if err := mutate(acc); err != nil {
			return err
		}
	}
	base := acc.NearUsedForStorage
	available := acc.AvailableNear()

	if err := a.InsertUnchecked(id, acc); err != nil {
		return err
	}
	for i := 0; i < settleRounds; i++ {
		after := a.env.StorageUsage()
		used := base
		switch {
		case after > before:
			cost, err := a.env.StorageByteCost().MulUint64(after - before)
			if err != nil {
				return err
			}
			if available.Cmp(cost) < 0 {
				return fmt.Errorf("%w: account %s needs %s, has %s available",
					ErrInsufficientStorageFunds, id, cost, available)
			}
			used, err = base.Add(cost)
			if err != nil {
				return err
			}
		case after < before:
			refund, err := a.env.StorageByteCost().MulUint64(before - after)
			if err != nil {
				return err
			}
			used = base.SubSaturating(refund)
		}
		if used == acc.NearUsedForStorage {
			return nil
		}
		acc.NearUsedForStorage = used
		if err := a.InsertUnchecked(id, acc); err != nil {
			return err
		}
	}
	log.Accounts.Warn().Stringer("account", id).Msg("storage fee settlement did not stabilize")
	return nil
}

// storageCost measures the footprint of a default account stored under id.
// With keepRegistered the synthetic record is left in place, provisionally
// registering id; the deposit path relies on that.
func (a *Accounts[Info]) storageCost(id native.AccountID, keepRegistered bool) (native.Balance, error) {
	before := a.env.StorageUsage()
	acc := a.NewAccount(id)
	if err := a.InsertUnchecked(id, &acc); err != nil {
		return native.Balance{}, err
	}
	cost, err := a.env.StorageByteCost().MulUint64(a.env.StorageUsage() - before)
	if err != nil {
		return native.Balance{}, err
	}
	if !keepRegistered {
		if _, _, err := a.RemoveUnchecked(id); err != nil {
			return native.Balance{}, err
		}
	}
	return cost, nil
}

func (a *Accounts[Info]) storageKey(id native.AccountID) []byte {
	sum := blake2b.Sum256(append(append([]byte{}, a.prefix...), id...))
	return append(append([]byte{}, a.prefix...), sum[:]...)
}
