// Package host defines the narrow interface to the contract runtime: call
// context, metered persistent storage, native transfers and the asynchronous
// cross-contract call primitive. Contract logic never touches storage except
// through an Env, which is what makes before/after usage metering reliable.
package host

import (
	"github.com/nearkit/plugins/native"
)

// Gas is an amount of prepaid execution gas attached to an outbound call.
type Gas uint64

// PromiseID identifies a scheduled cross-contract call within the current
// execution. Promise ids do not survive the call that created them.
type PromiseID uint64

// PromiseResult is the settled outcome of the call a resolve callback
// follows. Data holds the callee's return payload when Success is true.
type PromiseResult struct {
	Success bool
	Data    []byte
}

// Env is the host runtime seen by contract code. The runtime executes one
// call at a time against a contract instance; Env implementations rely on
// that single-writer property and add no locking of their own.
type Env interface {
	// CurrentAccountID is the id of the contract itself.
	CurrentAccountID() native.AccountID
	// PredecessorAccountID is the direct caller of the current method.
	PredecessorAccountID() native.AccountID
	// AttachedDeposit is the native currency sent along with the call.
	AttachedDeposit() native.Balance

	// StorageUsage is the byte-accurate size of everything the contract
	// currently persists, including per-record overhead.
	StorageUsage() uint64
	// StorageByteCost is the runtime's live price of one persisted byte.
	StorageByteCost() native.Balance

	StorageRead(key []byte) (value []byte, found bool, err error)
	StorageWrite(key, value []byte) error
	StorageRemove(key []byte) (removed bool, err error)

	// TransferNative sends native currency out of the contract.
	TransferNative(receiver native.AccountID, amount native.Balance) error

	// FunctionCall schedules an asynchronous call to another contract. The
	// call runs after the current one commits; its outcome is only
	// observable through a callback chained with ThenSelf.
	FunctionCall(receiver native.AccountID, method string, args []byte, deposit native.Balance, gas Gas) (PromiseID, error)
	// ThenSelf chains a callback on this contract after the given promise
	// settles. The runtime invokes it with the promise's result available
	// via PromiseResult.
	ThenSelf(after PromiseID, method string, args []byte, gas Gas) (PromiseID, error)
	// PromiseResult reports the outcome of the followed promise. It is
	// only valid inside a callback scheduled with ThenSelf.
	PromiseResult() (PromiseResult, error)
}
