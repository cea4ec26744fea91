package profitshare

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/settle-go/account"
	"github.com/bitfsorg/settle-go/fault"
)

var (
	instance  = uint256.NewInt(123456789)
	threeBens = []account.ID{benA, benB, benC}
	threePcts = []uint64{500000, 240000, 160000}
)

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNewStore_NullAdmin(t *testing.T) {
	_, err := NewStore(account.Zero, nil)
	assert.ErrorIs(t, err, ErrInvalidAdmin)
}

func TestNewStore_DefaultBackend(t *testing.T) {
	s, err := NewStore(admin, nil)
	require.NoError(t, err)
	assert.Equal(t, admin, s.Admin())
	require.NoError(t, s.AddOrUpdate(admin, collection, instance, threeBens, threePcts))
}

// ---------------------------------------------------------------------------
// AddOrUpdate
// ---------------------------------------------------------------------------

func TestAddOrUpdate_NotOwner(t *testing.T) {
	s := newTestStore(t)
	err := s.AddOrUpdate(benA, collection, instance, threeBens, threePcts)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, err, fault.Unauthorized)

	_, err = s.Rule(collection, instance)
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestAddOrUpdate_UnauthorizedCheckedFirst(t *testing.T) {
	s := newTestStore(t)
	err := s.AddOrUpdate(benA, account.Zero, instance, nil, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAddOrUpdate_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		coll    account.ID
		bens    []account.ID
		pcts    []uint64
		wantErr error
	}{
		{"zero collection", account.Zero, threeBens, threePcts, ErrInvalidCollection},
		{"no beneficiary", collection, []account.ID{}, threePcts, ErrEmptyBeneficiaryList},
		{"length mismatch", collection, threeBens, threePcts[1:], ErrLengthMismatch},
		{"zero ratio", collection, threeBens, []uint64{0, 1, 1}, ErrRatioOutOfRange},
		{"ratio too big", collection, threeBens[:1], []uint64{1_000_001}, ErrRatioOutOfRange},
		{"sum exceeded", collection, threeBens, []uint64{500000, 500000, 1}, ErrRatioSumExceeded},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestStore(t)
			err := s.AddOrUpdate(admin, tc.coll, instance, tc.bens, tc.pcts)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestAddOrUpdate_RejectedKeepsPreviousRule(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddOrUpdate(admin, collection, instance, threeBens, threePcts))

	err := s.AddOrUpdate(admin, collection, instance, threeBens, []uint64{500000, 500000, 1})
	require.ErrorIs(t, err, ErrRatioSumExceeded)

	rule, err := s.Rule(collection, instance)
	require.NoError(t, err)
	assert.Equal(t, threeBens, rule.Beneficiaries())
	assert.Equal(t, threePcts, rule.Ratios())
}

func TestAddOrUpdate_Overwrite(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddOrUpdate(admin, collection, instance, threeBens, threePcts))

	other := makeID(0xEE)
	require.NoError(t, s.AddOrUpdate(admin, collection, instance, []account.ID{other}, []uint64{100000}))

	bens, shares, err := s.Cal(uint256.NewInt(10000), collection, instance)
	require.NoError(t, err)
	assert.Equal(t, []account.ID{other}, bens)
	require.Len(t, shares, 1)
	assert.Equal(t, uint64(1000), shares[0].Uint64())
}

func TestAddOrUpdate_EmitsEvent(t *testing.T) {
	var events []ChangeEvent
	s := newTestStore(t, WithListener(func(ev ChangeEvent) { events = append(events, ev) }))

	require.NoError(t, s.AddOrUpdate(admin, collection, instance, threeBens, threePcts))
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, collection, ev.Collection)
	assert.True(t, ev.Instance.Eq(instance))
	assert.Equal(t, threeBens, ev.Beneficiaries)
	assert.Equal(t, threePcts, ev.Ratios)

	// Rejections emit nothing.
	_ = s.AddOrUpdate(admin, collection, instance, threeBens, []uint64{1, 2})
	assert.Len(t, events, 1)
}

func TestSubscribe_Cancel(t *testing.T) {
	s := newTestStore(t)
	count := 0
	cancel := s.Subscribe(func(ChangeEvent) { count++ })

	require.NoError(t, s.AddOrUpdate(admin, collection, instance, threeBens, threePcts))
	cancel()
	require.NoError(t, s.AddOrUpdate(admin, collection, instance, threeBens, threePcts))
	assert.Equal(t, 1, count)
}

func TestAddOrUpdate_Logs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	s := newTestStore(t, WithLogger(logger))

	require.NoError(t, s.AddOrUpdate(admin, collection, instance, threeBens, threePcts))
	assert.Contains(t, buf.String(), "profit sharing rule updated")
	assert.Contains(t, buf.String(), "total_ppm=900000")
}

// ---------------------------------------------------------------------------
// Cal
// ---------------------------------------------------------------------------

func TestCal_NullCollection(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.Cal(uint256.NewInt(10000), account.Zero, instance)
	assert.ErrorIs(t, err, ErrInvalidCollection)
	assert.ErrorIs(t, err, fault.InvalidAssetReference)
}

func TestCal_NoRule(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddOrUpdate(admin, collection, instance, threeBens, threePcts))

	bens, shares, err := s.Cal(uint256.NewInt(10000), collection, uint256.NewInt(123456788))
	require.NoError(t, err)
	assert.NotNil(t, bens)
	assert.NotNil(t, shares)
	assert.Empty(t, bens)
	assert.Empty(t, shares)
}

func TestCal_Results(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddOrUpdate(admin, collection, instance, threeBens, threePcts))

	value := uint64(10000)
	bens, shares, err := s.Cal(uint256.NewInt(value), collection, instance)
	require.NoError(t, err)
	require.Len(t, bens, 3)
	require.Len(t, shares, 3)
	for i := range threeBens {
		assert.Equal(t, threeBens[i], bens[i])
		assert.Equal(t, threePcts[i]*value/Denominator, shares[i].Uint64())
	}
}

func TestCal_LargeAmount(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddOrUpdate(admin, collection, instance, threeBens, []uint64{50000, 24000, 16000}))

	value := uint256.MustFromDecimal("10000000000000000000000") // 1e22
	_, shares, err := s.Cal(value, collection, instance)
	require.NoError(t, err)
	assert.Equal(t, "500000000000000000000", shares[0].Dec())
	assert.Equal(t, "240000000000000000000", shares[1].Dec())
	assert.Equal(t, "160000000000000000000", shares[2].Dec())
}

func TestCal_NilAmount(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.Cal(nil, collection, instance)
	assert.ErrorIs(t, err, ErrNilParam)
}

func TestRules_List(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddOrUpdate(admin, collection, uint256.NewInt(2), threeBens, threePcts))
	require.NoError(t, s.AddOrUpdate(admin, collection, uint256.NewInt(1), threeBens[:1], []uint64{Denominator}))

	rules, err := s.Rules()
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, uint64(1), rules[0].Key.Instance.Uint64())
	assert.Equal(t, uint64(Denominator), rules[0].TotalRatio())
}

func TestRule_NullCollection(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Rule(account.Zero, instance)
	assert.ErrorIs(t, err, ErrInvalidCollection)
}
