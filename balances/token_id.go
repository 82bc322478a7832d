// Package balances is an internal multi-asset ledger layered on the
// accounts store: deposited external tokens are tracked per account, every
// balance mutation is charged through the storage meter, and withdrawals
// back to the originating token contract run as two-phase transfers with a
// resolve callback reconciling the ledger.
package balances

import (
	"fmt"
	"strings"

	"github.com/nearkit/plugins/native"
)

// Kind distinguishes the supported external asset standards.
type Kind uint8

const (
	// FT is a fungible token (NEP-141 style).
	FT Kind = iota + 1
	// NFT is a non-fungible token (NEP-171 style).
	NFT
	// MT is a multi-token asset (NEP-245 style).
	MT
)

func (k Kind) String() string {
	switch k {
	case FT:
		return "ft"
	case NFT:
		return "nft"
	case MT:
		return "mt"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func kindFromString(s string) (Kind, bool) {
	switch s {
	case "ft":
		return FT, true
	case "nft":
		return NFT, true
	case "mt":
		return MT, true
	default:
		return 0, false
	}
}

// TokenID identifies one asset: its kind, the contract it originates from
// and, for NFT and MT assets, the contract-scoped sub identifier. TokenID
// is comparable and keys the per-account balance map; its text form
// ("kind:contract[:sub]") keys JSON maps.
type TokenID struct {
	Kind     Kind
	Contract native.AccountID
	SubID    string
}

func FungibleToken(contract native.AccountID) TokenID {
	return TokenID{Kind: FT, Contract: contract}
}

func NonFungibleToken(contract native.AccountID, tokenID string) TokenID {
	return TokenID{Kind: NFT, Contract: contract, SubID: tokenID}
}

func MultiToken(contract native.AccountID, tokenID string) TokenID {
	return TokenID{Kind: MT, Contract: contract, SubID: tokenID}
}

func (t TokenID) Validate() error {
	switch t.Kind {
	case FT:
		if t.SubID != "" {
			return fmt.Errorf("%w: fungible token with sub id %q", ErrInvalidTokenID, t.SubID)
		}
	case NFT, MT:
		if t.SubID == "" {
			return fmt.Errorf("%w: %s token without sub id", ErrInvalidTokenID, t.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown kind", ErrInvalidTokenID)
	}
	return t.Contract.Validate()
}

func (t TokenID) String() string {
	if t.SubID == "" {
		return t.Kind.String() + ":" + string(t.Contract)
	}
	return t.Kind.String() + ":" + string(t.Contract) + ":" + t.SubID
}

func (t TokenID) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TokenID) UnmarshalText(text []byte) error {
	parts := strings.SplitN(string(text), ":", 3)
	if len(parts) < 2 {
		return fmt.Errorf("%w: %q", ErrInvalidTokenID, text)
	}
	kind, ok := kindFromString(parts[0])
	if !ok {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidTokenID, parts[0])
	}
	parsed := TokenID{Kind: kind, Contract: native.AccountID(parts[1])}
	if len(parts) == 3 {
		parsed.SubID = parts[2]
	}
	if err := parsed.Validate(); err != nil {
		return err
	}
	*t = parsed
	return nil
}
