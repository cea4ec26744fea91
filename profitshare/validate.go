package profitshare

import (
	"fmt"

	"github.com/bitfsorg/settle-go/account"
)

// ValidateRule checks rule input and returns the first rejection in this
// order: null collection, empty beneficiary list, length mismatch, ratio out
// of range, ratio sum exceeded.
func ValidateRule(collection account.ID, beneficiaries []account.ID, ratios []uint64) error {
	if collection.IsZero() {
		return ErrInvalidCollection
	}
	if len(beneficiaries) == 0 {
		return ErrEmptyBeneficiaryList
	}
	if len(beneficiaries) != len(ratios) {
		return fmt.Errorf("%w: %d beneficiaries, %d ratios", ErrLengthMismatch, len(beneficiaries), len(ratios))
	}

	// Every ratio is at most Denominator, so the running sum cannot overflow.
	var sum uint64
	for i, r := range ratios {
		if r == 0 || r > Denominator {
			return fmt.Errorf("%w: ratio %d at index %d", ErrRatioOutOfRange, r, i)
		}
		sum += r
	}
	if sum > Denominator {
		return fmt.Errorf("%w: total %d", ErrRatioSumExceeded, sum)
	}
	return nil
}

// newRule builds a Rule from already validated input.
func newRule(key Key, beneficiaries []account.ID, ratios []uint64) *Rule {
	r := &Rule{Key: key, Entries: make([]Entry, len(beneficiaries))}
	for i := range beneficiaries {
		r.Entries[i] = Entry{Beneficiary: beneficiaries[i], Ratio: uint32(ratios[i])}
	}
	return r
}
