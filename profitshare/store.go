package profitshare

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/holiman/uint256"

	"github.com/bitfsorg/settle-go/account"
)

// Store is an administrator-gated profit-sharing rule store and calculator.
//
// AddOrUpdate calls are serialised; Cal and the other readers may run
// concurrently with each other and observe either the previous or the new
// rule of an in-flight update, never a mix.
type Store struct {
	admin   account.ID
	backend Backend
	logger  *slog.Logger

	mu sync.Mutex // serialises AddOrUpdate

	lmu       sync.RWMutex
	listeners map[uint64]Listener
	nextSub   uint64
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for rule change logging.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithListener subscribes l before the store is returned.
func WithListener(l Listener) Option {
	return func(s *Store) { s.subscribe(l) }
}

// NewStore creates a Store administered by admin. A nil backend selects an
// in-memory backend.
func NewStore(admin account.ID, backend Backend, opts ...Option) (*Store, error) {
	if admin.IsZero() {
		return nil, ErrInvalidAdmin
	}
	if backend == nil {
		backend = NewMemBackend()
	}
	s := &Store{
		admin:     admin,
		backend:   backend,
		logger:    slog.Default(),
		listeners: make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Admin returns the administrator identity.
func (s *Store) Admin() account.ID { return s.admin }

// AddOrUpdate validates and stores a rule for (collection, instance),
// replacing any existing rule for that key. Only the administrator may call
// it. Input is fully validated before anything is written, so a rejected call
// leaves the stored rule untouched. Listeners are notified synchronously
// after the write and must not call back into AddOrUpdate.
func (s *Store) AddOrUpdate(caller, collection account.ID, instance *uint256.Int, beneficiaries []account.ID, ratios []uint64) error {
	if caller != s.admin {
		return ErrUnauthorized
	}
	if err := ValidateRule(collection, beneficiaries, ratios); err != nil {
		return err
	}
	if instance == nil {
		return fmt.Errorf("%w: instance", ErrNilParam)
	}

	rule := newRule(NewKey(collection, instance), beneficiaries, ratios)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Put(rule); err != nil {
		return fmt.Errorf("profitshare: store rule: %w", err)
	}

	s.logger.Info("profit sharing rule updated",
		"collection", collection,
		"instance", instance.Dec(),
		"beneficiaries", len(rule.Entries),
		"total_ppm", rule.TotalRatio())

	s.notify(ChangeEvent{
		Collection:    collection,
		Instance:      new(uint256.Int).Set(instance),
		Beneficiaries: rule.Beneficiaries(),
		Ratios:        rule.Ratios(),
	})
	return nil
}

// Cal computes the profit shares of amount for (collection, instance). It
// returns two empty slices when no rule is configured. The null collection is
// always rejected with ErrInvalidCollection.
func (s *Store) Cal(amount *uint256.Int, collection account.ID, instance *uint256.Int) ([]account.ID, []*uint256.Int, error) {
	if collection.IsZero() {
		return nil, nil, ErrInvalidCollection
	}
	if amount == nil {
		return nil, nil, fmt.Errorf("%w: amount", ErrNilParam)
	}

	rule, err := s.backend.Get(NewKey(collection, instance))
	if errors.Is(err, ErrRuleNotFound) {
		return []account.ID{}, []*uint256.Int{}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("profitshare: load rule: %w", err)
	}

	shares, err := Calculate(amount, rule.Entries)
	if err != nil {
		return nil, nil, err
	}
	beneficiaries := make([]account.ID, len(shares))
	amounts := make([]*uint256.Int, len(shares))
	for i, sh := range shares {
		beneficiaries[i] = sh.Beneficiary
		amounts[i] = sh.Amount
	}
	return beneficiaries, amounts, nil
}

// Rule returns the rule stored for (collection, instance), or ErrRuleNotFound.
func (s *Store) Rule(collection account.ID, instance *uint256.Int) (*Rule, error) {
	if collection.IsZero() {
		return nil, ErrInvalidCollection
	}
	return s.backend.Get(NewKey(collection, instance))
}

// Rules lists every stored rule in key order.
func (s *Store) Rules() ([]*Rule, error) {
	return s.backend.List()
}

// Subscribe registers l for change notifications and returns a function that
// removes the subscription.
func (s *Store) Subscribe(l Listener) (cancel func()) {
	id := s.subscribe(l)
	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

func (s *Store) subscribe(l Listener) uint64 {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.nextSub++
	s.listeners[s.nextSub] = l
	return s.nextSub
}

func (s *Store) notify(ev ChangeEvent) {
	s.lmu.RLock()
	defer s.lmu.RUnlock()
	for _, l := range s.listeners {
		if l != nil {
			l(ev)
		}
	}
}
