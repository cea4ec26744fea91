package settlement

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/bitfsorg/settle-go/account"
)

// LegKind distinguishes value movements within a settlement.
type LegKind string

// Leg kinds.
const (
	LegPayment LegKind = "payment"
	LegAsset   LegKind = "asset"
)

// Leg is one value movement applied by a settlement.
//
// Payment legs carry Amount. Asset legs carry TokenID, and Amount holds the
// quantity for semi-fungible trades and is nil for unique tokens.
type Leg struct {
	Kind    LegKind
	Ledger  account.ID
	From    account.ID
	To      account.ID
	Amount  *uint256.Int
	TokenID *uint256.Int
}

// Receipt records a committed settlement.
type Receipt struct {
	ID        uuid.UUID
	Digest    [32]byte
	Seller    account.ID
	Buyer     account.ID
	Legs      []Leg
	Remainder *uint256.Int
	SettledAt time.Time
}

// Payments returns the payment legs in the order they were applied.
func (r *Receipt) Payments() []Leg {
	var out []Leg
	for _, l := range r.Legs {
		if l.Kind == LegPayment {
			out = append(out, l)
		}
	}
	return out
}

// DigestHex returns the trade digest as lowercase hex.
func (r *Receipt) DigestHex() string { return hex.EncodeToString(r.Digest[:]) }

// Recorder persists receipts of committed settlements.
type Recorder interface {
	RecordSettlement(ctx context.Context, r *Receipt) error
}

type legJSON struct {
	Kind    LegKind    `json:"kind"`
	Ledger  account.ID `json:"ledger"`
	From    account.ID `json:"from"`
	To      account.ID `json:"to"`
	Amount  string     `json:"amount,omitempty"`
	TokenID string     `json:"token_id,omitempty"`
}

type receiptJSON struct {
	ID        uuid.UUID  `json:"id"`
	Digest    string     `json:"digest"`
	Seller    account.ID `json:"seller"`
	Buyer     account.ID `json:"buyer"`
	Legs      []legJSON  `json:"legs"`
	Remainder string     `json:"remainder"`
	SettledAt time.Time  `json:"settled_at"`
}

// MarshalJSON encodes amounts as decimal strings.
func (r *Receipt) MarshalJSON() ([]byte, error) {
	out := receiptJSON{
		ID:        r.ID,
		Digest:    r.DigestHex(),
		Seller:    r.Seller,
		Buyer:     r.Buyer,
		Legs:      make([]legJSON, len(r.Legs)),
		Remainder: decOrEmpty(r.Remainder),
		SettledAt: r.SettledAt,
	}
	for i, l := range r.Legs {
		out.Legs[i] = legJSON{
			Kind:    l.Kind,
			Ledger:  l.Ledger,
			From:    l.From,
			To:      l.To,
			Amount:  decOrEmpty(l.Amount),
			TokenID: decOrEmpty(l.TokenID),
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (r *Receipt) UnmarshalJSON(data []byte) error {
	var in receiptJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	digest, err := hex.DecodeString(in.Digest)
	if err != nil || len(digest) != len(r.Digest) {
		return fmt.Errorf("settlement: invalid receipt digest %q", in.Digest)
	}
	rem, err := parseDec(in.Remainder)
	if err != nil {
		return err
	}
	*r = Receipt{
		ID:        in.ID,
		Seller:    in.Seller,
		Buyer:     in.Buyer,
		Legs:      make([]Leg, len(in.Legs)),
		Remainder: rem,
		SettledAt: in.SettledAt,
	}
	copy(r.Digest[:], digest)
	for i, l := range in.Legs {
		amount, err := parseDec(l.Amount)
		if err != nil {
			return err
		}
		tokenID, err := parseDec(l.TokenID)
		if err != nil {
			return err
		}
		r.Legs[i] = Leg{Kind: l.Kind, Ledger: l.Ledger, From: l.From, To: l.To, Amount: amount, TokenID: tokenID}
	}
	return nil
}

func decOrEmpty(v *uint256.Int) string {
	if v == nil {
		return ""
	}
	return v.Dec()
}

func parseDec(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("settlement: invalid amount %q: %w", s, err)
	}
	return v, nil
}
