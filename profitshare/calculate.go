package profitshare

import (
	"fmt"

	"github.com/holiman/uint256"
)

var denominator = uint256.NewInt(Denominator)

// Calculate apportions amount across entries:
//
//	share_i = floor(amount * ratio_i / Denominator)
//
// The product is formed in 512 bits, so no uint256 amount can overflow for a
// ratio within range. Shares are returned in entry order; whatever is left
// over belongs to the caller.
func Calculate(amount *uint256.Int, entries []Entry) ([]Share, error) {
	if amount == nil {
		return nil, fmt.Errorf("%w: amount", ErrNilParam)
	}
	shares := make([]Share, len(entries))
	for i, e := range entries {
		v, overflow := new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(uint64(e.Ratio)), denominator)
		if overflow {
			return nil, fmt.Errorf("%w: entry %d", ErrShareOverflow, i)
		}
		shares[i] = Share{Beneficiary: e.Beneficiary, Amount: v}
	}
	return shares, nil
}
