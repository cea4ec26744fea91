package profitshare

import (
	"bytes"
	"sort"
	"sync"
)

// Backend persists rules. Implementations must treat Put as a full
// replacement of any rule stored under the same key.
type Backend interface {
	// Get returns the rule stored under key, or ErrRuleNotFound.
	Get(key Key) (*Rule, error)

	// Put stores rule under rule.Key, replacing any existing rule.
	Put(rule *Rule) error

	// List returns every stored rule ordered by encoded key.
	List() ([]*Rule, error)
}

// MemBackend is an in-memory Backend.
type MemBackend struct {
	mu    sync.RWMutex
	rules map[Key]*Rule
}

// NewMemBackend creates an empty in-memory backend.
func NewMemBackend() *MemBackend {
	return &MemBackend{rules: make(map[Key]*Rule)}
}

// Compile-time interface check.
var _ Backend = (*MemBackend)(nil)

// Get returns a copy of the rule stored under key.
func (b *MemBackend) Get(key Key) (*Rule, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.rules[key]
	if !ok {
		return nil, ErrRuleNotFound
	}
	return r.Clone(), nil
}

// Put stores a copy of rule.
func (b *MemBackend) Put(rule *Rule) error {
	if rule == nil {
		return ErrNilParam
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rules[rule.Key] = rule.Clone()
	return nil
}

// List returns copies of all rules ordered by encoded key.
func (b *MemBackend) List() ([]*Rule, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]*Rule, 0, len(b.rules))
	for _, r := range b.rules {
		out = append(out, r.Clone())
	}
	sortRules(out)
	return out, nil
}

func sortRules(rules []*Rule) {
	sort.Slice(rules, func(i, j int) bool {
		return bytes.Compare(EncodeKey(rules[i].Key), EncodeKey(rules[j].Key)) < 0
	})
}
