package accounts

import (
	"github.com/nearkit/plugins/host"
	"github.com/nearkit/plugins/native"
)

// RequireOneYocto enforces the anti-griefing proof of intent: the call must
// carry exactly one yocto of native currency.
func RequireOneYocto(env host.Env) error {
	if env.AttachedDeposit() != native.OneYocto {
		return ErrOneYoctoRequired
	}
	return nil
}
