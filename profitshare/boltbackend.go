package profitshare

import (
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var bucketRules = []byte("rules")

// BoltBackend persists rules in a bbolt database, one record per key.
type BoltBackend struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Backend = (*BoltBackend)(nil)

// OpenBoltBackend opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltBackend(dbPath string) (*BoltBackend, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("profitshare: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("profitshare: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRules); err != nil {
			return fmt.Errorf("boltbackend: create bucket %q: %w", bucketRules, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("profitshare: create buckets: %w", err)
	}

	return &BoltBackend{db: db}, nil
}

// Close closes the underlying database.
func (b *BoltBackend) Close() error { return b.db.Close() }

// Get retrieves the rule stored under key.
func (b *BoltBackend) Get(key Key) (*Rule, error) {
	var rule *Rule
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRules).Get(EncodeKey(key))
		if data == nil {
			return ErrRuleNotFound
		}
		r, err := DeserializeRule(data)
		if err != nil {
			return fmt.Errorf("boltbackend: decode rule: %w", err)
		}
		rule = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// Put writes rule, replacing any previous record for the same key.
func (b *BoltBackend) Put(rule *Rule) error {
	data, err := SerializeRule(rule)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketRules).Put(EncodeKey(rule.Key), data); err != nil {
			return fmt.Errorf("boltbackend: put rule: %w", err)
		}
		return nil
	})
}

// List returns all rules in key order.
func (b *BoltBackend) List() ([]*Rule, error) {
	var rules []*Rule
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRules).ForEach(func(k, v []byte) error {
			r, err := DeserializeRule(v)
			if err != nil {
				return fmt.Errorf("boltbackend: decode rule in list: %w", err)
			}
			rules = append(rules, r)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltbackend: list rules: %w", err)
	}
	return rules, nil
}
