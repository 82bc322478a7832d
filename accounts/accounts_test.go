package accounts_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearkit/plugins/accounts"
	"github.com/nearkit/plugins/host/hostmock"
	"github.com/nearkit/plugins/native"
	"github.com/nearkit/plugins/pkg/serialization/codec"
)

type noteInfo struct {
	Msg string `json:"msg"`
}

func newNoteInfo(native.AccountID) noteInfo { return noteInfo{} }

const (
	contractID = native.AccountID("plugins.near")
	aliceID    = native.AccountID("alice.near")
)

func newStore(t *testing.T) (*hostmock.Env, *accounts.Accounts[noteInfo]) {
	t.Helper()
	env := hostmock.NewEnv(contractID)
	store, err := accounts.NewAccounts[noteInfo](env, &codec.JSONCodec{}, newNoteInfo)
	require.NoError(t, err)
	return env, store
}

// register runs a storage deposit for id as id itself and resets the
// attached deposit afterwards.
func register(t *testing.T, env *hostmock.Env, store *accounts.Accounts[noteInfo], id native.AccountID, deposit native.Balance, registrationOnly bool) accounts.StorageBalance {
	t.Helper()
	env.SetPredecessor(id)
	env.SetAttachedDeposit(deposit)
	balance, err := store.StorageDeposit(id, registrationOnly)
	require.NoError(t, err)
	env.SetAttachedDeposit(native.Balance{})
	return balance
}

func mulBalance(t *testing.T, b native.Balance, n uint64) native.Balance {
	t.Helper()
	out, err := b.MulUint64(n)
	require.NoError(t, err)
	return out
}

func TestStorageDepositRegistrationOnly(t *testing.T) {
	env, store := newStore(t)
	deposit := mulBalance(t, store.MinStorageBalance(), 10)

	balance := register(t, env, store, aliceID, deposit, true)

	// The full amount is held as collateral and the excess refunded.
	assert.True(t, balance.Available.IsZero())
	require.False(t, balance.Total.IsZero())
	assert.LessOrEqual(t, balance.Total.Cmp(store.MinStorageBalance()), 0)

	refund, ok := env.LastTransfer()
	require.True(t, ok)
	assert.Equal(t, aliceID, refund.Receiver)
	expected, ok2 := deposit.SubChecked(balance.Total)
	require.True(t, ok2)
	assert.Equal(t, expected, refund.Amount)
}

func TestStorageDepositKeepsExcessAvailable(t *testing.T) {
	env, store := newStore(t)
	deposit := mulBalance(t, store.MinStorageBalance(), 10)

	balance := register(t, env, store, aliceID, deposit, false)

	assert.Equal(t, deposit, balance.Total)
	assert.False(t, balance.Available.IsZero())
	// No refund on a plain deposit, the excess stays prepaid.
	assert.Empty(t, env.Transfers())
}

func TestStorageDepositTopsUpRegistered(t *testing.T) {
	env, store := newStore(t)
	deposit := mulBalance(t, store.MinStorageBalance(), 10)
	before := register(t, env, store, aliceID, deposit, false)

	extra := native.NewBalance(1_000_000_000_000_000)
	env.SetAttachedDeposit(extra)
	after, err := store.StorageDeposit(aliceID, false)
	require.NoError(t, err)

	wantTotal, errAdd := before.Total.Add(extra)
	require.NoError(t, errAdd)
	wantAvailable, errAdd := before.Available.Add(extra)
	require.NoError(t, errAdd)
	assert.Equal(t, wantTotal, after.Total)
	assert.Equal(t, wantAvailable, after.Available)
}

func TestStorageDepositRegisteredRegistrationOnlyRefundsAll(t *testing.T) {
	env, store := newStore(t)
	deposit := mulBalance(t, store.MinStorageBalance(), 10)
	before := register(t, env, store, aliceID, deposit, true)
	env.ClearRecorded()

	env.SetAttachedDeposit(deposit)
	after, err := store.StorageDeposit(aliceID, true)
	require.NoError(t, err)

	assert.Equal(t, before, after)
	refund, ok := env.LastTransfer()
	require.True(t, ok)
	assert.Equal(t, deposit, refund.Amount)
}

func TestStorageDepositBelowMinimumRefundsAll(t *testing.T) {
	env, store := newStore(t)
	attached := native.NewBalance(1)

	env.SetPredecessor(aliceID)
	env.SetAttachedDeposit(attached)
	balance, err := store.StorageDeposit(aliceID, false)
	require.NoError(t, err)

	// Soft failure: zero balance back, everything refunded, nothing kept.
	assert.True(t, balance.Total.IsZero())
	assert.True(t, balance.Available.IsZero())
	refund, ok := env.LastTransfer()
	require.True(t, ok)
	assert.Equal(t, attached, refund.Amount)

	stored, err := store.StorageBalanceOf(aliceID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestStorageDepositForOtherAccount(t *testing.T) {
	env, store := newStore(t)
	deposit := mulBalance(t, store.MinStorageBalance(), 10)

	env.SetPredecessor(aliceID)
	env.SetAttachedDeposit(deposit)
	_, err := store.StorageDeposit("bob.near", true)
	require.NoError(t, err)

	// The refund of the excess goes to the payer, not the beneficiary.
	refund, ok := env.LastTransfer()
	require.True(t, ok)
	assert.Equal(t, aliceID, refund.Receiver)

	balance, err := store.StorageBalanceOf("bob.near")
	require.NoError(t, err)
	require.NotNil(t, balance)
	assert.True(t, balance.Available.IsZero())
}

func TestStorageDepositRejectsInvalidID(t *testing.T) {
	env, store := newStore(t)
	env.SetPredecessor(aliceID)
	env.SetAttachedDeposit(store.MinStorageBalance())

	_, err := store.StorageDeposit("Not-Valid!", false)
	assert.ErrorIs(t, err, native.ErrInvalidAccountID)
}

func TestStorageWithdraw(t *testing.T) {
	env, store := newStore(t)
	deposit := mulBalance(t, store.MinStorageBalance(), 10)
	before := register(t, env, store, aliceID, deposit, false)
	env.ClearRecorded()

	amount := native.NewBalance(1_000)
	env.SetAttachedDeposit(native.OneYocto)
	after, err := store.StorageWithdraw(&amount)
	require.NoError(t, err)

	wantTotal, ok := before.Total.SubChecked(amount)
	require.True(t, ok)
	assert.Equal(t, wantTotal, after.Total)

	transfer, ok := env.LastTransfer()
	require.True(t, ok)
	assert.Equal(t, aliceID, transfer.Receiver)
	assert.Equal(t, amount, transfer.Amount)
}

func TestStorageWithdrawAllByDefault(t *testing.T) {
	env, store := newStore(t)
	deposit := mulBalance(t, store.MinStorageBalance(), 10)
	before := register(t, env, store, aliceID, deposit, false)
	env.ClearRecorded()

	env.SetAttachedDeposit(native.OneYocto)
	after, err := store.StorageWithdraw(nil)
	require.NoError(t, err)

	assert.True(t, after.Available.IsZero())
	transfer, ok := env.LastTransfer()
	require.True(t, ok)
	assert.Equal(t, before.Available, transfer.Amount)
}

func TestStorageWithdrawExcessive(t *testing.T) {
	env, store := newStore(t)
	deposit := mulBalance(t, store.MinStorageBalance(), 10)
	balance := register(t, env, store, aliceID, deposit, false)

	over, err := balance.Available.Add(native.OneYocto)
	require.NoError(t, err)
	env.SetAttachedDeposit(native.OneYocto)
	_, err = store.StorageWithdraw(&over)
	assert.ErrorIs(t, err, accounts.ErrExcessiveWithdrawal)
}

func TestStorageWithdrawRequiresOneYocto(t *testing.T) {
	env, store := newStore(t)
	deposit := mulBalance(t, store.MinStorageBalance(), 10)
	register(t, env, store, aliceID, deposit, false)

	_, err := store.StorageWithdraw(nil)
	assert.ErrorIs(t, err, accounts.ErrOneYoctoRequired)

	env.SetAttachedDeposit(native.NewBalance(2))
	_, err = store.StorageWithdraw(nil)
	assert.ErrorIs(t, err, accounts.ErrOneYoctoRequired)
}

func TestStorageWithdrawUnregistered(t *testing.T) {
	env, store := newStore(t)
	env.SetPredecessor(aliceID)
	env.SetAttachedDeposit(native.OneYocto)

	_, err := store.StorageWithdraw(nil)
	assert.ErrorIs(t, err, accounts.ErrAccountNotRegistered)
}

func TestStorageUnregister(t *testing.T) {
	env, store := newStore(t)
	deposit := mulBalance(t, store.MinStorageBalance(), 10)
	balance := register(t, env, store, aliceID, deposit, false)
	env.ClearRecorded()

	env.SetAttachedDeposit(native.OneYocto)
	ok, err := store.StorageUnregister(true)
	require.NoError(t, err)
	assert.True(t, ok)

	refund, found := env.LastTransfer()
	require.True(t, found)
	assert.Equal(t, balance.Total, refund.Amount)

	stored, err := store.StorageBalanceOf(aliceID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestStorageUnregisterWithoutForce(t *testing.T) {
	env, store := newStore(t)
	deposit := mulBalance(t, store.MinStorageBalance(), 10)
	register(t, env, store, aliceID, deposit, false)
	env.ClearRecorded()

	env.SetAttachedDeposit(native.OneYocto)
	ok, err := store.StorageUnregister(false)
	require.NoError(t, err)
	assert.False(t, ok)

	// Still registered, nothing refunded.
	assert.Empty(t, env.Transfers())
	stored, err := store.StorageBalanceOf(aliceID)
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

func TestStorageUnregisterUnregistered(t *testing.T) {
	env, store := newStore(t)
	env.SetPredecessor(aliceID)
	env.SetAttachedDeposit(native.OneYocto)

	_, err := store.StorageUnregister(true)
	assert.ErrorIs(t, err, accounts.ErrAccountNotRegistered)
}

func TestStorageBalanceBounds(t *testing.T) {
	_, store := newStore(t)
	bounds := store.StorageBalanceBounds()
	assert.Equal(t, store.MinStorageBalance(), bounds.Min)
	assert.Nil(t, bounds.Max)
	assert.False(t, bounds.Min.IsZero())
}

func TestInsertCheckedChargesGrowth(t *testing.T) {
	env, store := newStore(t)
	deposit := mulBalance(t, store.MinStorageBalance(), 10)
	register(t, env, store, aliceID, deposit, false)

	acc, err := store.GetChecked(aliceID)
	require.NoError(t, err)
	usedBefore := acc.NearUsedForStorage
	totalBefore := acc.NearAmount
	usageBefore := env.StorageUsage()

	err = store.InsertChecked(aliceID, acc, func(a *accounts.Account[noteInfo]) error {
		a.Info.Msg = strings.Repeat("x", 100)
		return nil
	})
	require.NoError(t, err)

	usageAfter := env.StorageUsage()
	require.Greater(t, usageAfter, usageBefore)
	charge := mulBalance(t, env.StorageByteCost(), usageAfter-usageBefore)
	wantUsed, errAdd := usedBefore.Add(charge)
	require.NoError(t, errAdd)
	assert.Equal(t, wantUsed, acc.NearUsedForStorage)
	assert.Equal(t, totalBefore, acc.NearAmount)

	// What was persisted matches the in-memory record.
	stored, err := store.GetChecked(aliceID)
	require.NoError(t, err)
	assert.Equal(t, acc, stored)
}

func TestInsertCheckedRefundsShrink(t *testing.T) {
	env, store := newStore(t)
	deposit := mulBalance(t, store.MinStorageBalance(), 10)
	register(t, env, store, aliceID, deposit, false)

	acc, err := store.GetChecked(aliceID)
	require.NoError(t, err)
	require.NoError(t, store.InsertChecked(aliceID, acc, func(a *accounts.Account[noteInfo]) error {
		a.Info.Msg = strings.Repeat("x", 100)
		return nil
	}))

	usedBefore := acc.NearUsedForStorage
	usageBefore := env.StorageUsage()
	require.NoError(t, store.InsertChecked(aliceID, acc, func(a *accounts.Account[noteInfo]) error {
		a.Info.Msg = ""
		return nil
	}))

	usageAfter := env.StorageUsage()
	require.Less(t, usageAfter, usageBefore)
	refund := mulBalance(t, env.StorageByteCost(), usageBefore-usageAfter)
	assert.Equal(t, usedBefore.SubSaturating(refund), acc.NearUsedForStorage)
}

func TestInsertCheckedShrinkFloorsAtZero(t *testing.T) {
	env, store := newStore(t)
	deposit := mulBalance(t, store.MinStorageBalance(), 10)
	register(t, env, store, aliceID, deposit, false)

	acc, err := store.GetChecked(aliceID)
	require.NoError(t, err)
	require.NoError(t, store.InsertChecked(aliceID, acc, func(a *accounts.Account[noteInfo]) error {
		a.Info.Msg = strings.Repeat("x", 100)
		return nil
	}))

	// Zero out the collateral directly, then shrink the record: the refund
	// exceeds the tracked collateral and must clamp instead of underflow.
	acc.NearUsedForStorage = native.Balance{}
	require.NoError(t, store.InsertUnchecked(aliceID, acc))
	acc, err = store.GetChecked(aliceID)
	require.NoError(t, err)

	require.NoError(t, store.InsertChecked(aliceID, acc, func(a *accounts.Account[noteInfo]) error {
		a.Info.Msg = ""
		return nil
	}))
	assert.True(t, acc.NearUsedForStorage.IsZero())
}

func TestInsertCheckedInsufficientFunds(t *testing.T) {
	env, store := newStore(t)
	deposit := mulBalance(t, store.MinStorageBalance(), 10)
	register(t, env, store, aliceID, deposit, true)

	acc, err := store.GetChecked(aliceID)
	require.NoError(t, err)
	require.True(t, acc.AvailableNear().IsZero())

	err = store.InsertChecked(aliceID, acc, func(a *accounts.Account[noteInfo]) error {
		a.Info.Msg = strings.Repeat("x", 100)
		return nil
	})
	assert.ErrorIs(t, err, accounts.ErrInsufficientStorageFunds)
}

func TestInsertCheckedMutateErrorAborts(t *testing.T) {
	env, store := newStore(t)
	deposit := mulBalance(t, store.MinStorageBalance(), 10)
	register(t, env, store, aliceID, deposit, false)

	acc, err := store.GetChecked(aliceID)
	require.NoError(t, err)
	usageBefore := env.StorageUsage()

	wantErr := assert.AnError
	err = store.InsertChecked(aliceID, acc, func(*accounts.Account[noteInfo]) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, usageBefore, env.StorageUsage())
}

func TestGetUnregistered(t *testing.T) {
	_, store := newStore(t)
	_, found, err := store.Get(aliceID)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = store.GetChecked(aliceID)
	assert.ErrorIs(t, err, accounts.ErrAccountNotRegistered)
}
