package host

import "errors"

var (
	ErrNoPromiseResult   = errors.New("host: no promise result in this context")
	ErrInsufficientFunds = errors.New("host: contract balance too low for transfer")
)
