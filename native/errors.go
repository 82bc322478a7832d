package native

import "errors"

var (
	ErrBalanceOverflow  = errors.New("balance out of 128-bit range")
	ErrInvalidAccountID = errors.New("invalid account id")
)
