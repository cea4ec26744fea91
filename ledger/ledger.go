// Package ledger defines the asset ledgers a settlement moves value through
// and provides in-memory reference implementations of each.
package ledger

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/bitfsorg/settle-go/account"
)

// Fungible is a ledger of interchangeable units (a payment asset).
type Fungible interface {
	BalanceOf(ctx context.Context, owner account.ID) (*uint256.Int, error)
	Allowance(ctx context.Context, owner, spender account.ID) (*uint256.Int, error)

	// TransferFrom moves amount from from to to, drawing on the allowance
	// from has granted spender.
	TransferFrom(ctx context.Context, spender, from, to account.ID, amount *uint256.Int) error

	// Reverse undoes a TransferFrom with identical arguments, restoring both
	// balances and the spender's allowance.
	Reverse(ctx context.Context, spender, from, to account.ID, amount *uint256.Int) error
}

// Unique is a ledger of individually owned token instances.
type Unique interface {
	OwnerOf(ctx context.Context, id *uint256.Int) (account.ID, error)

	// TransferFrom moves ownership of id from from to to. data is handed
	// to the recipient's receiver hook unmodified.
	TransferFrom(ctx context.Context, operator, from, to account.ID, id *uint256.Int, data []byte) error

	// Reverse undoes a TransferFrom with identical arguments.
	Reverse(ctx context.Context, operator, from, to account.ID, id *uint256.Int) error
}

// SemiFungible is a ledger of per-id balances.
type SemiFungible interface {
	BalanceOf(ctx context.Context, owner account.ID, id *uint256.Int) (*uint256.Int, error)

	// TransferFrom moves qty units of id from from to to. data is handed to
	// the recipient's receiver hook unmodified.
	TransferFrom(ctx context.Context, operator, from, to account.ID, id, qty *uint256.Int, data []byte) error

	// Reverse undoes a TransferFrom with identical arguments.
	Reverse(ctx context.Context, operator, from, to account.ID, id, qty *uint256.Int) error
}

// Delivery describes an incoming token transfer presented to a Receiver.
// Quantity is nil for unique tokens.
type Delivery struct {
	Operator account.ID
	From     account.ID
	To       account.ID
	ID       *uint256.Int
	Quantity *uint256.Int
	Data     []byte
}

// Receiver is notified when tokens arrive at the account it is registered
// for. A non-nil return rejects the delivery and the transfer is undone.
type Receiver func(ctx context.Context, d Delivery) error

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func valueOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
