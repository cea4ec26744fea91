package settlement

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/bitfsorg/settle-go/account"
	"github.com/bitfsorg/settle-go/ledger"
)

// Calculator computes the profit-sharing schedule of a payment.
// *profitshare.Store satisfies it.
type Calculator interface {
	Cal(amount *uint256.Int, collection account.ID, instance *uint256.Int) ([]account.ID, []*uint256.Int, error)
}

// Calculators resolves profit-sharing source ids.
type Calculators interface {
	Calculator(id account.ID) (Calculator, error)
}

// Ledgers resolves asset ledger ids. *ledger.Directory satisfies it.
type Ledgers interface {
	Fungible(id account.ID) (ledger.Fungible, error)
	Unique(id account.ID) (ledger.Unique, error)
	SemiFungible(id account.ID) (ledger.SemiFungible, error)
}

// Sources is a Calculators backed by a map.
type Sources struct {
	mu sync.RWMutex
	m  map[account.ID]Calculator
}

// Compile-time interface check.
var _ Calculators = (*Sources)(nil)

// NewSources creates an empty Sources.
func NewSources() *Sources {
	return &Sources{m: make(map[account.ID]Calculator)}
}

// Register binds id to c.
func (s *Sources) Register(id account.ID, c Calculator) error {
	if id.IsZero() {
		return fmt.Errorf("%w: null source id", ErrUnknownSource)
	}
	if c == nil {
		return ErrNilParam
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = c
	return nil
}

// Calculator returns the calculator registered under id.
func (s *Sources) Calculator(id account.ID) (Calculator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.m[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}
	return c, nil
}
