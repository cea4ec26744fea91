package ledger

import "errors"

var (
	// ErrZeroAddress indicates a transfer to or from the null account.
	ErrZeroAddress = errors.New("ledger: zero address")

	// ErrInsufficientBalance indicates the source holds less than requested.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")

	// ErrInsufficientAllowance indicates the spender's allowance is too small.
	ErrInsufficientAllowance = errors.New("ledger: insufficient allowance")

	// ErrNotOwner indicates the source does not own the token.
	ErrNotOwner = errors.New("ledger: not token owner")

	// ErrNotApproved indicates the operator may not move the source's tokens.
	ErrNotApproved = errors.New("ledger: operator not approved")

	// ErrTokenNotFound indicates the token id has never been minted.
	ErrTokenNotFound = errors.New("ledger: token not found")

	// ErrAlreadyMinted indicates a unique token id is already owned.
	ErrAlreadyMinted = errors.New("ledger: token already minted")

	// ErrReceiverRejected indicates the recipient's receiver hook refused a delivery.
	ErrReceiverRejected = errors.New("ledger: receiver rejected delivery")

	// ErrBalanceOverflow indicates a credit would exceed the uint256 range.
	ErrBalanceOverflow = errors.New("ledger: balance overflow")

	// ErrNilAmount indicates a nil amount, id or quantity.
	ErrNilAmount = errors.New("ledger: nil amount")

	// ErrUnknownLedger indicates the directory has no ledger under the id.
	ErrUnknownLedger = errors.New("ledger: unknown ledger")
)
