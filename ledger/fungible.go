package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/bitfsorg/settle-go/account"
)

// MemFungible is an in-memory Fungible ledger.
type MemFungible struct {
	mu         sync.RWMutex
	balances   map[account.ID]*uint256.Int
	allowances map[account.ID]map[account.ID]*uint256.Int
}

// Compile-time interface check.
var _ Fungible = (*MemFungible)(nil)

// NewMemFungible creates an empty fungible ledger.
func NewMemFungible() *MemFungible {
	return &MemFungible{
		balances:   make(map[account.ID]*uint256.Int),
		allowances: make(map[account.ID]map[account.ID]*uint256.Int),
	}
}

// Mint credits amount to to.
func (l *MemFungible) Mint(to account.ID, amount *uint256.Int) error {
	if to.IsZero() {
		return ErrZeroAddress
	}
	if amount == nil {
		return ErrNilAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.credit(to, amount)
}

// Approve sets the amount spender may draw from owner, replacing any
// previous allowance.
func (l *MemFungible) Approve(owner, spender account.ID, amount *uint256.Int) error {
	if owner.IsZero() || spender.IsZero() {
		return ErrZeroAddress
	}
	if amount == nil {
		return ErrNilAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setAllowance(owner, spender, new(uint256.Int).Set(amount))
	return nil
}

// BalanceOf returns owner's balance.
func (l *MemFungible) BalanceOf(ctx context.Context, owner account.ID) (*uint256.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return valueOrZero(l.balances[owner]), nil
}

// Allowance returns what spender may still draw from owner.
func (l *MemFungible) Allowance(ctx context.Context, owner, spender account.ID) (*uint256.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return valueOrZero(l.allowances[owner][spender]), nil
}

// TransferFrom moves amount from from to to on spender's allowance. A
// spender moving its own funds needs no allowance.
func (l *MemFungible) TransferFrom(ctx context.Context, spender, from, to account.ID, amount *uint256.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if from.IsZero() || to.IsZero() {
		return ErrZeroAddress
	}
	if amount == nil {
		return ErrNilAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var remaining *uint256.Int
	if spender != from {
		allowed := valueOrZero(l.allowances[from][spender])
		if allowed.Lt(amount) {
			return fmt.Errorf("%w: spender %s has %s, needs %s", ErrInsufficientAllowance, spender, allowed.Dec(), amount.Dec())
		}
		remaining = new(uint256.Int).Sub(allowed, amount)
	}
	if err := l.move(from, to, amount); err != nil {
		return err
	}
	if remaining != nil {
		l.setAllowance(from, spender, remaining)
	}
	return nil
}

// Reverse moves amount back from to to from and restores spender's allowance.
func (l *MemFungible) Reverse(ctx context.Context, spender, from, to account.ID, amount *uint256.Int) error {
	if from.IsZero() || to.IsZero() {
		return ErrZeroAddress
	}
	if amount == nil {
		return ErrNilAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.move(to, from, amount); err != nil {
		return err
	}
	if spender != from {
		allowed := valueOrZero(l.allowances[from][spender])
		restored, overflow := new(uint256.Int).AddOverflow(allowed, amount)
		if overflow {
			restored.SetAllOne()
		}
		l.setAllowance(from, spender, restored)
	}
	return nil
}

func (l *MemFungible) move(from, to account.ID, amount *uint256.Int) error {
	bal := valueOrZero(l.balances[from])
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from, bal.Dec(), amount.Dec())
	}
	if from == to {
		return nil
	}
	dst := valueOrZero(l.balances[to])
	if _, overflow := dst.AddOverflow(dst, amount); overflow {
		return ErrBalanceOverflow
	}
	l.balances[from] = bal.Sub(bal, amount)
	l.balances[to] = dst
	return nil
}

func (l *MemFungible) credit(to account.ID, amount *uint256.Int) error {
	dst := valueOrZero(l.balances[to])
	if _, overflow := dst.AddOverflow(dst, amount); overflow {
		return ErrBalanceOverflow
	}
	l.balances[to] = dst
	return nil
}

func (l *MemFungible) setAllowance(owner, spender account.ID, amount *uint256.Int) {
	m, ok := l.allowances[owner]
	if !ok {
		m = make(map[account.ID]*uint256.Int)
		l.allowances[owner] = m
	}
	m[spender] = amount
}
