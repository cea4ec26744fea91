package profitshare

import (
	"github.com/holiman/uint256"

	"github.com/bitfsorg/settle-go/account"
)

// Denominator is the ratio unit: a ratio of Denominator parts-per-million is 100%.
const Denominator = 1_000_000

// Key identifies the asset instance a rule applies to.
type Key struct {
	Collection account.ID  // asset collection (registry) identifier
	Instance   uint256.Int // instance id within the collection
}

// NewKey builds a Key. A nil instance is treated as instance 0.
func NewKey(collection account.ID, instance *uint256.Int) Key {
	k := Key{Collection: collection}
	if instance != nil {
		k.Instance.Set(instance)
	}
	return k
}

// Entry is one beneficiary's slice of a rule.
type Entry struct {
	Beneficiary account.ID
	Ratio       uint32 // parts-per-million, in (0, Denominator]
}

// Rule is a stored profit-sharing schedule. Entries keep the order in which
// they were supplied and are never empty for a stored rule.
type Rule struct {
	Key     Key
	Entries []Entry
}

// Beneficiaries returns the beneficiaries in stored order.
func (r *Rule) Beneficiaries() []account.ID {
	out := make([]account.ID, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Beneficiary
	}
	return out
}

// Ratios returns the ratios in stored order.
func (r *Rule) Ratios() []uint64 {
	out := make([]uint64, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = uint64(e.Ratio)
	}
	return out
}

// TotalRatio returns the sum of all ratios.
func (r *Rule) TotalRatio() uint64 {
	var total uint64
	for _, e := range r.Entries {
		total += uint64(e.Ratio)
	}
	return total
}

// Clone returns a deep copy.
func (r *Rule) Clone() *Rule {
	c := &Rule{Key: r.Key, Entries: make([]Entry, len(r.Entries))}
	copy(c.Entries, r.Entries)
	return c
}

// Share is a single beneficiary payout computed for a payment.
type Share struct {
	Beneficiary account.ID
	Amount      *uint256.Int
}

// ChangeEvent is emitted after a rule has been added or replaced. It carries
// the complete new rule.
type ChangeEvent struct {
	Collection    account.ID
	Instance      *uint256.Int
	Beneficiaries []account.ID
	Ratios        []uint64
}

// Listener receives rule change notifications.
type Listener func(ChangeEvent)
