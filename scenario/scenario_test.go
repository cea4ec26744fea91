package scenario

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/settle-go/account"
	"github.com/bitfsorg/settle-go/profitshare"
	"github.com/bitfsorg/settle-go/settlement"
)

func buildTestdata(t *testing.T, opts Options) *World {
	t.Helper()
	f, err := LoadFile("testdata/royalties.yaml")
	require.NoError(t, err)
	w, err := Build(f, opts)
	require.NoError(t, err)
	return w
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse(strings.NewReader("admin: op\ntrades: []\nunexpected: 1\n"))
	assert.ErrorIs(t, err, ErrInvalidScenario)
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no admin", "trades: []\n"},
		{"duplicate ledger", "admin: op\nfungible: [{id: x}]\nunique: [{id: x}]\ntrades: []\n"},
		{"missing ledger id", "admin: op\nfungible: [{}]\ntrades: []\n"},
		{"trade without amount", "admin: op\ntrades: [{seller: a, buyer: b, instance: \"1\"}]\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.doc))
			assert.ErrorIs(t, err, ErrInvalidScenario)
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile("testdata/does-not-exist.yaml")
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Aliases
// ---------------------------------------------------------------------------

func TestResolve(t *testing.T) {
	f := &File{
		Admin:    "op",
		Accounts: map[string]string{"treasury": "0x1111111111111111111111111111111111111111"},
	}
	w, err := Build(f, Options{})
	require.NoError(t, err)

	treasury, err := w.ID("treasury")
	require.NoError(t, err)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", treasury.Hex())

	raw, err := w.ID("0x2222222222222222222222222222222222222222")
	require.NoError(t, err)
	assert.Equal(t, "0x2222222222222222222222222222222222222222", raw.Hex())

	a1, err := w.ID("alice")
	require.NoError(t, err)
	a2, err := w.ID("alice")
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
	assert.False(t, a1.IsZero())
	assert.Equal(t, "alice", w.Name(a1))

	null, err := w.ID("null")
	require.NoError(t, err)
	assert.True(t, null.IsZero())

	stranger := account.MustParse("0x3333333333333333333333333333333333333333")
	assert.Equal(t, stranger.Hex(), w.Name(stranger))
}

func TestBuild_InvalidRule(t *testing.T) {
	f := &File{
		Admin: "op",
		Rules: []RuleSpec{{Collection: "art", Instance: "1", Beneficiaries: []string{"a", "b"}, Ratios: []uint64{600000, 500000}}},
	}
	_, err := Build(f, Options{})
	assert.ErrorIs(t, err, ErrInvalidScenario)
	assert.ErrorIs(t, err, profitshare.ErrRatioSumExceeded)
}

func TestBuild_InvalidAmount(t *testing.T) {
	f := &File{
		Admin:    "op",
		Fungible: []FungibleSpec{{ID: "usd", Balances: map[string]string{"a": "ten"}}},
	}
	_, err := Build(f, Options{})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

// ---------------------------------------------------------------------------
// Run and Snapshot
// ---------------------------------------------------------------------------

func TestRun_Testdata(t *testing.T) {
	w := buildTestdata(t, Options{})

	outcomes, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 4)
	for _, o := range outcomes {
		assert.True(t, o.OK(), "trade %q: code %q err %v", o.Name, o.Code, o.Err)
	}
	assert.Equal(t, "SameParty", outcomes[1].Code)
	assert.Equal(t, "Unauthorized", outcomes[2].Code)
	require.NotNil(t, outcomes[0].Receipt)
	assert.Equal(t, uint64(1000), outcomes[0].Receipt.Remainder.Uint64())

	snap, err := w.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"buyer":   "7000",
		"seller":  "3700",
		"artist":  "5300",
		"gallery": "2400",
		"curator": "1600",
	}, snap.Fungible["usd"])
	assert.Equal(t, map[string]string{"1": "buyer", "2": "seller"}, snap.Unique["art"])
	assert.Equal(t, map[string]string{"seller": "7", "buyer": "3"}, snap.SemiFungible["prints"]["7"])
}

func TestRun_ExpectationMissed(t *testing.T) {
	f, err := Parse(strings.NewReader(`
admin: op
fungible:
  - id: usd
unique:
  - id: art
trades:
  - name: unfunded
    seller: s
    buyer: b
    payment: usd
    amount: "5"
    collection: art
    instance: "1"
`))
	require.NoError(t, err)
	w, err := Build(f, Options{})
	require.NoError(t, err)

	outcomes, err := w.Run(context.Background())
	assert.ErrorIs(t, err, ErrExpectationFailed)
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].OK())
	assert.Equal(t, "PaymentTransferFailed", outcomes[0].Code)
}

type countingRecorder struct{ n int }

func (c *countingRecorder) RecordSettlement(context.Context, *settlement.Receipt) error {
	c.n++
	return nil
}

func TestBuild_WiresRecorderAndListeners(t *testing.T) {
	rec := &countingRecorder{}
	var events []profitshare.ChangeEvent
	w := buildTestdata(t, Options{
		Recorder:  rec,
		Listeners: []profitshare.Listener{func(ev profitshare.ChangeEvent) { events = append(events, ev) }},
		Backend:   profitshare.NewMemBackend(),
	})
	assert.Len(t, events, 2)

	_, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rec.n)

	rules, err := w.Store().Rules()
	require.NoError(t, err)
	assert.Len(t, rules, 2)
}

func TestTrade_Conversion(t *testing.T) {
	w := buildTestdata(t, Options{})
	tr, err := w.Trade(TradeSpec{
		Seller: "seller", Buyer: "buyer", Payment: "usd", Amount: "10",
		Collection: "prints", Instance: "7", Quantity: "2", Data: "plain",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), tr.Quantity.Uint64())
	assert.Equal(t, []byte("plain"), tr.Data)

	source, err := w.ID(DefaultSource)
	require.NoError(t, err)
	assert.Equal(t, source, tr.ProfitSharing)

	_, err = w.Trade(TradeSpec{Amount: "1", Instance: "1", Data: "0xzz"})
	assert.ErrorIs(t, err, ErrInvalidScenario)
}
