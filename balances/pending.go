package balances

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/nearkit/plugins/host"
	"github.com/nearkit/plugins/native"
)

// pendingPrefix namespaces pending-withdrawal records. They are contract
// bookkeeping, not account state, so they bypass the per-account meter.
var pendingPrefix = []byte("pending:")

// PendingTransfer is the handle returned by WithdrawTo: a debited amount
// awaiting the external transfer's outcome. The record persists until its
// resolve callback consumes it, exactly once.
type PendingTransfer struct {
	ID      uuid.UUID        `json:"id"`
	Account native.AccountID `json:"account_id"`
	Token   TokenID          `json:"token_id"`
	Amount  native.Balance   `json:"amount"`
	// IsCall marks the transfer-and-call variant, whose resolve payload
	// reports how much the recipient actually consumed.
	IsCall bool `json:"is_call"`
	// Promise is the external transfer this record follows. Not persisted:
	// promise ids do not outlive the call that created them.
	Promise host.PromiseID `json:"-"`
}

func (l *Ledger[Info]) putPending(p *PendingTransfer) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return l.env.StorageWrite(pendingKey(p.ID), raw)
}

// takePending consumes the record: a second take of the same id reports
// ErrPendingNotFound, which is what guards the credit-back from running
// twice if the runtime ever re-delivers a callback.
func (l *Ledger[Info]) takePending(id uuid.UUID) (*PendingTransfer, error) {
	key := pendingKey(id)
	raw, found, err := l.env.StorageRead(key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrPendingNotFound, id)
	}
	var p PendingTransfer
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decoding pending withdrawal %s: %w", id, err)
	}
	if _, err := l.env.StorageRemove(key); err != nil {
		return nil, err
	}
	return &p, nil
}

func pendingKey(id uuid.UUID) []byte {
	return append(append([]byte{}, pendingPrefix...), id[:]...)
}
