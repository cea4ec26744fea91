package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/bitfsorg/settle-go/account"
)

// MemUnique is an in-memory Unique ledger with per-token approvals,
// operator approvals and receiver hooks.
type MemUnique struct {
	mu        sync.RWMutex
	owners    map[uint256.Int]account.ID
	approvals map[uint256.Int]account.ID
	cleared   map[uint256.Int]account.ID // approval removed by the last transfer
	operators map[account.ID]map[account.ID]bool
	receivers map[account.ID]Receiver
}

// Compile-time interface check.
var _ Unique = (*MemUnique)(nil)

// NewMemUnique creates an empty unique-token ledger.
func NewMemUnique() *MemUnique {
	return &MemUnique{
		owners:    make(map[uint256.Int]account.ID),
		approvals: make(map[uint256.Int]account.ID),
		cleared:   make(map[uint256.Int]account.ID),
		operators: make(map[account.ID]map[account.ID]bool),
		receivers: make(map[account.ID]Receiver),
	}
}

// Mint assigns a new token id to to.
func (l *MemUnique) Mint(to account.ID, id *uint256.Int) error {
	if to.IsZero() {
		return ErrZeroAddress
	}
	if id == nil {
		return ErrNilAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.owners[*id]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyMinted, id.Dec())
	}
	l.owners[*id] = to
	return nil
}

// Approve lets spender move token id on behalf of its owner. Only the owner
// may approve.
func (l *MemUnique) Approve(owner, spender account.ID, id *uint256.Int) error {
	if id == nil {
		return ErrNilAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.owners[*id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTokenNotFound, id.Dec())
	}
	if cur != owner {
		return ErrNotOwner
	}
	if spender.IsZero() {
		delete(l.approvals, *id)
		return nil
	}
	l.approvals[*id] = spender
	return nil
}

// GetApproved returns the account approved for token id, or the null account.
func (l *MemUnique) GetApproved(id *uint256.Int) account.ID {
	if id == nil {
		return account.Zero
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.approvals[*id]
}

// SetApprovalForAll grants or revokes operator's right to move every token
// owner holds.
func (l *MemUnique) SetApprovalForAll(owner, operator account.ID, approved bool) error {
	if owner.IsZero() || operator.IsZero() {
		return ErrZeroAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	setOperator(l.operators, owner, operator, approved)
	return nil
}

// SetReceiver installs r as the receiver hook for holder. A nil r removes it.
func (l *MemUnique) SetReceiver(holder account.ID, r Receiver) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r == nil {
		delete(l.receivers, holder)
		return
	}
	l.receivers[holder] = r
}

// OwnerOf returns the owner of token id.
func (l *MemUnique) OwnerOf(ctx context.Context, id *uint256.Int) (account.ID, error) {
	if err := ctx.Err(); err != nil {
		return account.Zero, err
	}
	if id == nil {
		return account.Zero, ErrNilAmount
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	owner, ok := l.owners[*id]
	if !ok {
		return account.Zero, fmt.Errorf("%w: %s", ErrTokenNotFound, id.Dec())
	}
	return owner, nil
}

// TransferFrom moves token id from from to to. The operator must be the
// owner, the token's approved account, or an approved operator of the owner.
// If to has a receiver hook it is called after the move; a rejection undoes
// the move.
func (l *MemUnique) TransferFrom(ctx context.Context, operator, from, to account.ID, id *uint256.Int, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if to.IsZero() {
		return ErrZeroAddress
	}
	if id == nil {
		return ErrNilAmount
	}

	l.mu.Lock()
	owner, ok := l.owners[*id]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTokenNotFound, id.Dec())
	}
	if owner != from {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s does not own %s", ErrNotOwner, from, id.Dec())
	}
	if operator != from && l.approvals[*id] != operator && !l.operators[from][operator] {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s for %s", ErrNotApproved, operator, id.Dec())
	}
	prevApproval := l.approvals[*id]
	delete(l.approvals, *id)
	l.cleared[*id] = prevApproval
	l.owners[*id] = to
	hook := l.receivers[to]
	l.mu.Unlock()

	if hook == nil {
		return nil
	}
	err := hook(ctx, Delivery{
		Operator: operator,
		From:     from,
		To:       to,
		ID:       new(uint256.Int).Set(id),
		Data:     cloneBytes(data),
	})
	if err == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owners[*id] != to {
		return fmt.Errorf("%w: %w (undo: %w: %s no longer owns %s)", ErrReceiverRejected, err, ErrNotOwner, to, id.Dec())
	}
	l.owners[*id] = from
	if !prevApproval.IsZero() {
		l.approvals[*id] = prevApproval
	}
	delete(l.cleared, *id)
	return fmt.Errorf("%w: %w", ErrReceiverRejected, err)
}

// Reverse returns token id from to to from and restores the approval the
// transfer cleared.
func (l *MemUnique) Reverse(ctx context.Context, operator, from, to account.ID, id *uint256.Int) error {
	if id == nil {
		return ErrNilAmount
	}
	if from.IsZero() {
		return ErrZeroAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	owner, ok := l.owners[*id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTokenNotFound, id.Dec())
	}
	if owner != to {
		return fmt.Errorf("%w: %s no longer owns %s", ErrNotOwner, to, id.Dec())
	}
	l.owners[*id] = from
	if prev := l.cleared[*id]; !prev.IsZero() {
		l.approvals[*id] = prev
	}
	delete(l.cleared, *id)
	return nil
}

func setOperator(ops map[account.ID]map[account.ID]bool, owner, operator account.ID, approved bool) {
	m, ok := ops[owner]
	if !ok {
		if !approved {
			return
		}
		m = make(map[account.ID]bool)
		ops[owner] = m
	}
	if approved {
		m[operator] = true
	} else {
		delete(m, operator)
	}
}
