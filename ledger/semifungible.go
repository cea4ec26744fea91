package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/bitfsorg/settle-go/account"
)

// MemSemiFungible is an in-memory SemiFungible ledger. Operators are
// authorised per owner for all ids.
type MemSemiFungible struct {
	mu        sync.RWMutex
	balances  map[uint256.Int]map[account.ID]*uint256.Int
	operators map[account.ID]map[account.ID]bool
	receivers map[account.ID]Receiver
}

// Compile-time interface check.
var _ SemiFungible = (*MemSemiFungible)(nil)

// NewMemSemiFungible creates an empty semi-fungible ledger.
func NewMemSemiFungible() *MemSemiFungible {
	return &MemSemiFungible{
		balances:  make(map[uint256.Int]map[account.ID]*uint256.Int),
		operators: make(map[account.ID]map[account.ID]bool),
		receivers: make(map[account.ID]Receiver),
	}
}

// Mint credits qty units of id to to.
func (l *MemSemiFungible) Mint(to account.ID, id, qty *uint256.Int) error {
	if to.IsZero() {
		return ErrZeroAddress
	}
	if id == nil || qty == nil {
		return ErrNilAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.balance(*id, to)
	if _, overflow := bal.AddOverflow(bal, qty); overflow {
		return ErrBalanceOverflow
	}
	l.setBalance(*id, to, bal)
	return nil
}

// SetApprovalForAll grants or revokes operator's right to move owner's units.
func (l *MemSemiFungible) SetApprovalForAll(owner, operator account.ID, approved bool) error {
	if owner.IsZero() || operator.IsZero() {
		return ErrZeroAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	setOperator(l.operators, owner, operator, approved)
	return nil
}

// IsApprovedForAll reports whether operator may move owner's units.
func (l *MemSemiFungible) IsApprovedForAll(owner, operator account.ID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.operators[owner][operator]
}

// SetReceiver installs r as the receiver hook for holder. A nil r removes it.
func (l *MemSemiFungible) SetReceiver(holder account.ID, r Receiver) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r == nil {
		delete(l.receivers, holder)
		return
	}
	l.receivers[holder] = r
}

// BalanceOf returns owner's balance of id.
func (l *MemSemiFungible) BalanceOf(ctx context.Context, owner account.ID, id *uint256.Int) (*uint256.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == nil {
		return nil, ErrNilAmount
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balance(*id, owner), nil
}

// TransferFrom moves qty units of id from from to to. The operator must be
// from or an approved operator of from.
func (l *MemSemiFungible) TransferFrom(ctx context.Context, operator, from, to account.ID, id, qty *uint256.Int, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if to.IsZero() || from.IsZero() {
		return ErrZeroAddress
	}
	if id == nil || qty == nil {
		return ErrNilAmount
	}

	l.mu.Lock()
	if operator != from && !l.operators[from][operator] {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s for %s", ErrNotApproved, operator, from)
	}
	if err := l.move(*id, from, to, qty); err != nil {
		l.mu.Unlock()
		return err
	}
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
		Quantity: new(uint256.Int).Set(qty),
		Data:     cloneBytes(data),
	})
	if err == nil {
		return nil
	}

	l.mu.Lock()
	undoErr := l.move(*id, to, from, qty)
	l.mu.Unlock()
	if undoErr != nil {
		return fmt.Errorf("%w: %w (undo: %w)", ErrReceiverRejected, err, undoErr)
	}
	return fmt.Errorf("%w: %w", ErrReceiverRejected, err)
}

// Reverse moves qty units of id back from to to from.
func (l *MemSemiFungible) Reverse(ctx context.Context, operator, from, to account.ID, id, qty *uint256.Int) error {
	if to.IsZero() || from.IsZero() {
		return ErrZeroAddress
	}
	if id == nil || qty == nil {
		return ErrNilAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(*id, to, from, qty)
}

func (l *MemSemiFungible) move(id uint256.Int, from, to account.ID, qty *uint256.Int) error {
	src := l.balance(id, from)
	if src.Lt(qty) {
		return fmt.Errorf("%w: %s has %s of %s, needs %s", ErrInsufficientBalance, from, src.Dec(), id.Dec(), qty.Dec())
	}
	if from == to {
		return nil
	}
	dst := l.balance(id, to)
	if _, overflow := dst.AddOverflow(dst, qty); overflow {
		return ErrBalanceOverflow
	}
	l.setBalance(id, from, src.Sub(src, qty))
	l.setBalance(id, to, dst)
	return nil
}

func (l *MemSemiFungible) balance(id uint256.Int, owner account.ID) *uint256.Int {
	return valueOrZero(l.balances[id][owner])
}

func (l *MemSemiFungible) setBalance(id uint256.Int, owner account.ID, v *uint256.Int) {
	m, ok := l.balances[id]
	if !ok {
		m = make(map[account.ID]*uint256.Int)
		l.balances[id] = m
	}
	m[owner] = v
}
