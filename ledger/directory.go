package ledger

import (
	"fmt"
	"sync"

	"github.com/bitfsorg/settle-go/account"
)

// Directory resolves ledger identifiers to ledger implementations.
type Directory struct {
	mu           sync.RWMutex
	fungible     map[account.ID]Fungible
	unique       map[account.ID]Unique
	semiFungible map[account.ID]SemiFungible
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{
		fungible:     make(map[account.ID]Fungible),
		unique:       make(map[account.ID]Unique),
		semiFungible: make(map[account.ID]SemiFungible),
	}
}

// RegisterFungible binds id to l.
func (d *Directory) RegisterFungible(id account.ID, l Fungible) error {
	if id.IsZero() {
		return ErrZeroAddress
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fungible[id] = l
	return nil
}

// RegisterUnique binds id to l.
func (d *Directory) RegisterUnique(id account.ID, l Unique) error {
	if id.IsZero() {
		return ErrZeroAddress
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unique[id] = l
	return nil
}

// RegisterSemiFungible binds id to l.
func (d *Directory) RegisterSemiFungible(id account.ID, l SemiFungible) error {
	if id.IsZero() {
		return ErrZeroAddress
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.semiFungible[id] = l
	return nil
}

// Fungible returns the fungible ledger registered under id.
func (d *Directory) Fungible(id account.ID) (Fungible, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.fungible[id]
	if !ok || l == nil {
		return nil, fmt.Errorf("%w: fungible %s", ErrUnknownLedger, id)
	}
	return l, nil
}

// Unique returns the unique-token ledger registered under id.
func (d *Directory) Unique(id account.ID) (Unique, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.unique[id]
	if !ok || l == nil {
		return nil, fmt.Errorf("%w: unique %s", ErrUnknownLedger, id)
	}
	return l, nil
}

// SemiFungible returns the semi-fungible ledger registered under id.
func (d *Directory) SemiFungible(id account.ID) (SemiFungible, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.semiFungible[id]
	if !ok || l == nil {
		return nil, fmt.Errorf("%w: semi-fungible %s", ErrUnknownLedger, id)
	}
	return l, nil
}
