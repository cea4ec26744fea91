package profitshare

import (
	"errors"
	"fmt"
	"os"

	"github.com/cockroachdb/pebble"
)

// rulePrefix namespaces rule records inside the pebble keyspace.
const rulePrefix = 'r'

// PebbleBackend persists rules in a pebble LSM store.
type PebbleBackend struct {
	db *pebble.DB
}

// Compile-time interface check.
var _ Backend = (*PebbleBackend)(nil)

// OpenPebbleBackend opens or creates a pebble database in dir.
func OpenPebbleBackend(dir string) (*PebbleBackend, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("profitshare: create directory: %w", err)
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("profitshare: open pebble db: %w", err)
	}
	return &PebbleBackend{db: db}, nil
}

// Close closes the underlying database.
func (b *PebbleBackend) Close() error {
	if b.db == nil {
		return ErrBackendClosed
	}
	err := b.db.Close()
	b.db = nil
	return err
}

func pebbleKey(k Key) []byte {
	return append([]byte{rulePrefix}, EncodeKey(k)...)
}

// Get retrieves the rule stored under key.
func (b *PebbleBackend) Get(key Key) (*Rule, error) {
	if b.db == nil {
		return nil, ErrBackendClosed
	}
	val, closer, err := b.db.Get(pebbleKey(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("pebblebackend: get rule: %w", err)
	}
	defer closer.Close()

	// DeserializeRule copies out of val, which is only valid until Close.
	r, err := DeserializeRule(val)
	if err != nil {
		return nil, fmt.Errorf("pebblebackend: decode rule: %w", err)
	}
	return r, nil
}

// Put writes rule with a synced commit.
func (b *PebbleBackend) Put(rule *Rule) error {
	if b.db == nil {
		return ErrBackendClosed
	}
	data, err := SerializeRule(rule)
	if err != nil {
		return err
	}
	if err := b.db.Set(pebbleKey(rule.Key), data, pebble.Sync); err != nil {
		return fmt.Errorf("pebblebackend: put rule: %w", err)
	}
	return nil
}

// List returns all rules in key order.
func (b *PebbleBackend) List() ([]*Rule, error) {
	if b.db == nil {
		return nil, ErrBackendClosed
	}
	iter, err := b.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{rulePrefix},
		UpperBound: []byte{rulePrefix + 1},
	})
	if err != nil {
		return nil, fmt.Errorf("pebblebackend: new iterator: %w", err)
	}
	defer iter.Close()

	var rules []*Rule
	for iter.First(); iter.Valid(); iter.Next() {
		r, err := DeserializeRule(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("pebblebackend: decode rule in list: %w", err)
		}
		rules = append(rules, r)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("pebblebackend: list rules: %w", err)
	}
	return rules, nil
}
