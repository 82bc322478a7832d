package host

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nearkit/plugins/native"
	"github.com/nearkit/plugins/pkg/db"
	"github.com/nearkit/plugins/pkg/log"
)

// recordOverhead is the runtime's fixed per-record storage charge on top of
// key and value bytes.
const recordOverhead = 40

var metaKey = []byte("__host/meta")

type kvMeta struct {
	StorageUsage uint64         `json:"storage_usage"`
	Balance      native.Balance `json:"balance"`
}

// Transfer is an outbound native-currency transfer issued by contract code.
type Transfer struct {
	Receiver native.AccountID
	Amount   native.Balance
}

// OutboundCall is a cross-contract call scheduled during the current
// execution. Callback marks calls chained on this contract itself.
type OutboundCall struct {
	Promise  PromiseID
	After    PromiseID
	Receiver native.AccountID
	Method   string
	Args     []byte
	Deposit  native.Balance
	Gas      Gas
	Callback bool
}

// KVEnv is an Env over a durable KVStore. It maintains the storage-usage
// counter and the contract's native balance in a meta record that is itself
// excluded from usage accounting. One KVEnv serves one contract instance;
// the embedding process must serialize calls, matching the runtime's
// single-writer execution model.
type KVEnv struct {
	store    db.KVStore
	self     native.AccountID
	byteCost native.Balance

	usage   uint64
	balance native.Balance

	predecessor   native.AccountID
	attached      native.Balance
	promiseResult *PromiseResult

	nextPromise PromiseID
	transfers   []Transfer
	calls       []OutboundCall
}

func NewKVEnv(store db.KVStore, self native.AccountID, byteCost native.Balance) (*KVEnv, error) {
	if err := self.Validate(); err != nil {
		return nil, err
	}
	env := &KVEnv{store: store, self: self, byteCost: byteCost}

	raw, err := store.Get(metaKey)
	switch {
	case errors.Is(err, db.ErrNotFound):
		// fresh store
	case err != nil:
		return nil, fmt.Errorf("loading host meta: %w", err)
	default:
		var meta kvMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("decoding host meta: %w", err)
		}
		env.usage = meta.StorageUsage
		env.balance = meta.Balance
	}
	return env, nil
}

// BeginCall installs the context of the next incoming call. The attached
// deposit is credited to the contract's pool up front; a failed call is the
// embedder's responsibility to roll back, as the real runtime does.
func (e *KVEnv) BeginCall(predecessor native.AccountID, attached native.Balance) error {
	balance, err := e.balance.Add(attached)
	if err != nil {
		return err
	}
	e.predecessor = predecessor
	e.attached = attached
	e.balance = balance
	e.promiseResult = nil
	e.transfers = nil
	e.calls = nil
	e.nextPromise = 0
	return e.persistMeta()
}

// SetPromiseResult marks the current call as a resolve callback following a
// settled promise.
func (e *KVEnv) SetPromiseResult(res PromiseResult) {
	e.promiseResult = &res
}

// Transfers returns the native transfers issued since BeginCall.
func (e *KVEnv) Transfers() []Transfer { return e.transfers }

// Calls returns the cross-contract calls scheduled since BeginCall.
func (e *KVEnv) Calls() []OutboundCall { return e.calls }

func (e *KVEnv) CurrentAccountID() native.AccountID { return e.self }
func (e *KVEnv) PredecessorAccountID() native.AccountID { return e.predecessor }
func (e *KVEnv) AttachedDeposit() native.Balance { return e.attached }
func (e *KVEnv) StorageUsage() uint64 { return e.usage }
func (e *KVEnv) StorageByteCost() native.Balance { return e.byteCost }

func (e *KVEnv) StorageRead(key []byte) ([]byte, bool, error) {
	value, err := e.store.Get(key)
	if errors.Is(err, db.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// StorageWrite commits the record and the updated meta in one batch, so a
// crash between them cannot leave the usage counter out of step with the
// data.
func (e *KVEnv) StorageWrite(key, value []byte) error {
	old, found, err := e.StorageRead(key)
	if err != nil {
		return err
	}
	usage := e.usage
	if found {
		usage -= recordSize(key, old)
	}
	usage += recordSize(key, value)

	batch := e.store.NewBatch()
	defer batch.Close()
	if err := batch.Put(key, value); err != nil {
		return err
	}
	if err := e.putMeta(batch, usage); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return err
	}
	e.usage = usage
	return nil
}

func (e *KVEnv) StorageRemove(key []byte) (bool, error) {
	old, found, err := e.StorageRead(key)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	usage := e.usage - recordSize(key, old)

	batch := e.store.NewBatch()
	defer batch.Close()
	if err := batch.Delete(key); err != nil {
		return false, err
	}
	if err := e.putMeta(batch, usage); err != nil {
		return false, err
	}
	if err := batch.Commit(); err != nil {
		return false, err
	}
	e.usage = usage
	return true, nil
}

func (e *KVEnv) TransferNative(receiver native.AccountID, amount native.Balance) error {
	balance, ok := e.balance.SubChecked(amount)
	if !ok {
		return ErrInsufficientFunds
	}
	e.balance = balance
	e.transfers = append(e.transfers, Transfer{Receiver: receiver, Amount: amount})
	log.Host.Debug().
		Stringer("receiver", receiver).
		Stringer("amount", amount).
		Msg("native transfer")
	return e.persistMeta()
}

func (e *KVEnv) FunctionCall(receiver native.AccountID, method string, args []byte, deposit native.Balance, gas Gas) (PromiseID, error) {
	balance, ok := e.balance.SubChecked(deposit)
	if !ok {
		return 0, ErrInsufficientFunds
	}
	e.balance = balance
	e.nextPromise++
	e.calls = append(e.calls, OutboundCall{
		Promise:  e.nextPromise,
		Receiver: receiver,
		Method:   method,
		Args:     args,
		Deposit:  deposit,
		Gas:      gas,
	})
	return e.nextPromise, e.persistMeta()
}

func (e *KVEnv) ThenSelf(after PromiseID, method string, args []byte, gas Gas) (PromiseID, error) {
	e.nextPromise++
	e.calls = append(e.calls, OutboundCall{
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

func (e *KVEnv) PromiseResult() (PromiseResult, error) {
	if e.promiseResult == nil {
		return PromiseResult{}, ErrNoPromiseResult
	}
	return *e.promiseResult, nil
}

func (e *KVEnv) persistMeta() error {
	return e.putMeta(e.store, e.usage)
}

func (e *KVEnv) putMeta(w db.Writer, usage uint64) error {
	raw, err := json.Marshal(kvMeta{StorageUsage: usage, Balance: e.balance})
	if err != nil {
		return err
	}
	return w.Put(metaKey, raw)
}

func recordSize(key, value []byte) uint64 {
	return uint64(len(key)) + uint64(len(value)) + recordOverhead
}
