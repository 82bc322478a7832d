// Package hostmock provides an in-memory host.Env for tests. It mirrors the
// runtime's storage-usage accounting byte for byte, so storage-deposit logic
// exercised against it observes the same deltas it would on chain.
package hostmock

import (
	"github.com/nearkit/plugins/host"
	"github.com/nearkit/plugins/native"
)

const recordOverhead = 40

// Env is a mock host environment. Zero-value fields are not usable; build
// one with NewEnv and adjust the call context with the Set* methods between
// simulated calls.
type Env struct {
	self        native.AccountID
	predecessor native.AccountID
	attached    native.Balance
	byteCost    native.Balance

	storage map[string][]byte
	usage   uint64

	promiseResult *host.PromiseResult
	nextPromise   host.PromiseID
	transfers     []host.Transfer
	calls         []host.OutboundCall

	// FailWrites makes every StorageWrite return this error, for testing
	// host-failure propagation.
	FailWrites error
}

func NewEnv(self native.AccountID) *Env {
	return &Env{
		self:        self,
		predecessor: self,
		byteCost:    native.NewBalance(10_000_000_000_000_000_000), // 1e19, the mainnet per-byte price
		storage:     make(map[string][]byte),
	}
}

func (e *Env) SetPredecessor(id native.AccountID) { e.predecessor = id }
func (e *Env) SetAttachedDeposit(b native.Balance) { e.attached = b }
func (e *Env) SetByteCost(b native.Balance) { e.byteCost = b }
func (e *Env) SetPromiseResult(r host.PromiseResult) { e.promiseResult = &r }
func (e *Env) ClearPromiseResult() { e.promiseResult = nil }
func (e *Env) Transfers() []host.Transfer { return e.transfers }
func (e *Env) FunctionCalls() []host.OutboundCall { return e.calls }

// LastTransfer returns the most recent native transfer, or false if none
// was issued.
func (e *Env) LastTransfer() (host.Transfer, bool) {
	if len(e.transfers) == 0 {
		return host.Transfer{}, false
	}
	return e.transfers[len(e.transfers)-1], true
}

// ClearRecorded drops recorded transfers and calls, marking the boundary
// between simulated calls in a test.
func (e *Env) ClearRecorded() {
	e.transfers = nil
	e.calls = nil
}

func (e *Env) CurrentAccountID() native.AccountID { return e.self }
func (e *Env) PredecessorAccountID() native.AccountID { return e.predecessor }
func (e *Env) AttachedDeposit() native.Balance { return e.attached }
func (e *Env) StorageUsage() uint64 { return e.usage }
func (e *Env) StorageByteCost() native.Balance { return e.byteCost }

func (e *Env) StorageRead(key []byte) ([]byte, bool, error) {
	value, ok := e.storage[string(key)]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (e *Env) StorageWrite(key, value []byte) error {
	if e.FailWrites != nil {
		return e.FailWrites
	}
	if old, ok := e.storage[string(key)]; ok {
		e.usage -= recordSize(key, old)
	}
	e.storage[string(key)] = append([]byte(nil), value...)
	e.usage += recordSize(key, value)
	return nil
}

func (e *Env) StorageRemove(key []byte) (bool, error) {
	old, ok := e.storage[string(key)]
	if !ok {
		return false, nil
	}
	delete(e.storage, string(key))
	e.usage -= recordSize(key, old)
	return true, nil
}

func (e *Env) TransferNative(receiver native.AccountID, amount native.Balance) error {
	e.transfers = append(e.transfers, host.Transfer{Receiver: receiver, Amount: amount})
	return nil
}

func (e *Env) FunctionCall(receiver native.AccountID, method string, args []byte, deposit native.Balance, gas host.Gas) (host.PromiseID, error) {
	e.nextPromise++
	e.calls = append(e.calls, host.OutboundCall{
		Promise:  e.nextPromise,
		Receiver: receiver,
		Method:   method,
		Args:     args,
		Deposit:  deposit,
		Gas:      gas,
	})
	return e.nextPromise, nil
}

func (e *Env) ThenSelf(after host.PromiseID, method string, args []byte, gas host.Gas) (host.PromiseID, error) {
	e.nextPromise++
	e.calls = append(e.calls, host.OutboundCall{
		Promise:  e.nextPromise,
		After:    after,
		Receiver: e.self,
		Method:   method,
		Args:     args,
		Gas:      gas,
		Callback: true,
	})
	return e.nextPromise, nil
}

func (e *Env) PromiseResult() (host.PromiseResult, error) {
	if e.promiseResult == nil {
		return host.PromiseResult{}, host.ErrNoPromiseResult
	}
	return *e.promiseResult, nil
}

func recordSize(key, value []byte) uint64 {
	return uint64(len(key)) + uint64(len(value)) + recordOverhead
}
