package accounts

import "errors"

var (
	// ErrAccountNotRegistered is returned when an operation targets an
	// account id with no stored record.
	ErrAccountNotRegistered = errors.New("account is not registered")
	// ErrInsufficientStorageFunds is returned when a mutation grows an
	// account's persisted footprint beyond what its available balance can
	// collateralize.
	ErrInsufficientStorageFunds = errors.New("not enough balance to cover storage")
	// ErrExcessiveWithdrawal is returned when a withdrawal requests more
	// than the account's available (non-collateral) balance.
	ErrExcessiveWithdrawal = errors.New("withdrawal exceeds available balance")
	// ErrOneYoctoRequired is returned by state-mutating entry points that
	// demand exactly one yocto attached as proof of intent.
	ErrOneYoctoRequired = errors.New("exactly one yocto must be attached")
)
