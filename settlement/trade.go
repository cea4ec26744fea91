package settlement

import (
	"io"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"

	"github.com/bitfsorg/settle-go/account"
)

// Trade describes one exchange of a payment for an asset.
//
// Quantity selects the asset ledger: nil settles a unique token (Instance
// changes owner), non-nil moves Quantity units of Instance on a
// semi-fungible ledger. Data is handed to the asset ledger unmodified.
type Trade struct {
	Seller        account.ID
	Buyer         account.ID
	PaymentAsset  account.ID
	Amount        *uint256.Int
	Collection    account.ID
	Instance      *uint256.Int
	Quantity      *uint256.Int
	Data          []byte
	ProfitSharing account.ID
}

// SemiFungible reports whether the trade moves a quantity rather than a
// unique token.
func (t *Trade) SemiFungible() bool { return t.Quantity != nil }

// Digest returns the Keccak-256 hash of the trade's canonical encoding.
func (t *Trade) Digest() [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(t.Seller[:])
	h.Write(t.Buyer[:])
	h.Write(t.PaymentAsset[:])
	writeWord(h, t.Amount)
	h.Write(t.Collection[:])
	writeWord(h, t.Instance)
	if t.Quantity != nil {
		h.Write([]byte{1})
		writeWord(h, t.Quantity)
	} else {
		h.Write([]byte{0})
	}
	h.Write(t.ProfitSharing[:])
	h.Write(t.Data)

	var out [32]byte
	h.Sum(out[:0])
	return out
}

func writeWord(w io.Writer, v *uint256.Int) {
	var word [32]byte
	if v != nil {
		word = v.Bytes32()
	}
	w.Write(word[:])
}

// check runs the party and asset-reference preconditions in order.
func (t *Trade) check() error {
	switch {
	case t.Seller.IsZero():
		return ErrInvalidSeller
	case t.Buyer.IsZero():
		return ErrInvalidBuyer
	case t.Seller == t.Buyer:
		return ErrSameParty
	case t.PaymentAsset.IsZero():
		return ErrInvalidPaymentAsset
	case t.Collection.IsZero():
		return ErrInvalidTradedAsset
	case t.Amount == nil || t.Instance == nil:
		return ErrIncompleteTrade
	}
	return nil
}
