// Package scenario builds an in-memory trading world from a YAML
// description, settles its trades and reports the resulting holdings.
package scenario

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is a parsed scenario description. Parties and ledgers are referred
// to by alias; an alias that is itself a hex identifier or base58 address
// stands for that account.
type File struct {
	Name         string             `yaml:"name"`
	Admin        string             `yaml:"admin"`
	Source       string             `yaml:"source,omitempty"`
	Accounts     map[string]string  `yaml:"accounts,omitempty"`
	Fungible     []FungibleSpec     `yaml:"fungible,omitempty"`
	Unique       []UniqueSpec       `yaml:"unique,omitempty"`
	SemiFungible []SemiFungibleSpec `yaml:"semi_fungible,omitempty"`
	Rules        []RuleSpec         `yaml:"rules,omitempty"`
	Trades       []TradeSpec        `yaml:"trades"`
}

// FungibleSpec declares a payment ledger with opening balances and allowances.
type FungibleSpec struct {
	ID         string            `yaml:"id"`
	Balances   map[string]string `yaml:"balances,omitempty"`
	Allowances []AllowanceSpec   `yaml:"allowances,omitempty"`
}

// AllowanceSpec grants spender the right to draw amount from owner.
type AllowanceSpec struct {
	Owner   string `yaml:"owner"`
	Spender string `yaml:"spender"`
	Amount  string `yaml:"amount"`
}

// UniqueSpec declares a unique-token ledger. Tokens maps token id to owner.
type UniqueSpec struct {
	ID        string            `yaml:"id"`
	Tokens    map[string]string `yaml:"tokens,omitempty"`
	Operators []OperatorSpec    `yaml:"operators,omitempty"`
}

// SemiFungibleSpec declares a semi-fungible ledger.
type SemiFungibleSpec struct {
	ID        string         `yaml:"id"`
	Holdings  []HoldingSpec  `yaml:"holdings,omitempty"`
	Operators []OperatorSpec `yaml:"operators,omitempty"`
}

// HoldingSpec is an opening semi-fungible balance.
type HoldingSpec struct {
	Owner  string `yaml:"owner"`
	Token  string `yaml:"token"`
	Amount string `yaml:"amount"`
}

// OperatorSpec approves operator for all of owner's tokens.
type OperatorSpec struct {
	Owner    string `yaml:"owner"`
	Operator string `yaml:"operator"`
}

// RuleSpec is a profit-sharing rule installed before trading.
type RuleSpec struct {
	Collection    string   `yaml:"collection"`
	Instance      string   `yaml:"instance"`
	Beneficiaries []string `yaml:"beneficiaries"`
	Ratios        []uint64 `yaml:"ratios"`
}

// TradeSpec is one trade to settle. Expect names the rejection code the
// trade should fail with; empty means it should succeed.
type TradeSpec struct {
	Name       string `yaml:"name"`
	Caller     string `yaml:"caller,omitempty"`
	Seller     string `yaml:"seller"`
	Buyer      string `yaml:"buyer"`
	Payment    string `yaml:"payment"`
	Amount     string `yaml:"amount"`
	Collection string `yaml:"collection"`
	Instance   string `yaml:"instance"`
	Quantity   string `yaml:"quantity,omitempty"`
	Data       string `yaml:"data,omitempty"`
	Source     string `yaml:"source,omitempty"`
	Expect     string `yaml:"expect,omitempty"`
}

// Parse decodes a scenario, rejecting unknown fields.
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFile reads and parses the scenario at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: read %s: %w", path, err)
	}
	return Parse(bytes.NewReader(data))
}

func (f *File) validate() error {
	if f.Admin == "" {
		return fmt.Errorf("%w: admin is required", ErrInvalidScenario)
	}
	seen := make(map[string]bool)
	check := func(kind, id string) error {
		if id == "" {
			return fmt.Errorf("%w: %s ledger id is required", ErrInvalidScenario, kind)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate ledger id %q", ErrInvalidScenario, id)
		}
		seen[id] = true
		return nil
	}
	for _, l := range f.Fungible {
		if err := check("fungible", l.ID); err != nil {
			return err
		}
	}
	for _, l := range f.Unique {
		if err := check("unique", l.ID); err != nil {
			return err
		}
	}
	for _, l := range f.SemiFungible {
		if err := check("semi_fungible", l.ID); err != nil {
			return err
		}
	}
	for i, tr := range f.Trades {
		if tr.Amount == "" || tr.Instance == "" {
			return fmt.Errorf("%w: trades[%d]: amount and instance are required", ErrInvalidScenario, i)
		}
	}
	return nil
}
