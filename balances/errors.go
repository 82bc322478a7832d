package balances

import "errors"

var (
	// ErrInsufficientBalance is returned when a subtraction or transfer
	// requests more of a token than the account holds.
	ErrInsufficientBalance = errors.New("insufficient token balance")
	// ErrInvalidTokenID is returned for token ids whose kind, contract
	// and sub id do not form a valid combination.
	ErrInvalidTokenID = errors.New("invalid token id")
	// ErrMalformedCallbackPayload is returned when the resolve callback
	// cannot parse the consumed amount reported by the external contract.
	ErrMalformedCallbackPayload = errors.New("malformed transfer-call result payload")
	// ErrPendingNotFound is returned when a resolve callback references a
	// pending withdrawal that does not exist or was already consumed.
	ErrPendingNotFound = errors.New("pending withdrawal not found")
	// ErrSelfCallbackOnly is returned when a resolve callback is invoked
	// by anyone other than the contract itself.
	ErrSelfCallbackOnly = errors.New("resolve callback restricted to self")
	// ErrTokenAmountMismatch is returned by the multi-token transfer hook
	// when the token id and amount lists differ in length.
	ErrTokenAmountMismatch = errors.New("token ids and amounts differ in length")
	// ErrUnsupportedTokenKind is returned when an operation does not apply
	// to the given asset kind.
	ErrUnsupportedTokenKind = errors.New("unsupported token kind for operation")
)
