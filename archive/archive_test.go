package archive

import (
	"bytes"
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"

	"github.com/bitfsorg/settle-go/account"
	"github.com/bitfsorg/settle-go/profitshare"
	"github.com/bitfsorg/settle-go/settlement"
)

// --- Helper functions ---

func makeKey(seed byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte{seed})
	return h.Sum(nil)
}

func makeID(seed byte) account.ID {
	var id account.ID
	for i := range id {
		id[i] = seed
	}
	return id
}

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return fs
}

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := OpenJournal(t.TempDir(), nil)
	require.NoError(t, err)
	return j
}

func sampleReceipt(at time.Time) *settlement.Receipt {
	return &settlement.Receipt{
		ID:     uuid.New(),
		Digest: [32]byte{0xAB, 0xCD},
		Seller: makeID(0x5E),
		Buyer:  makeID(0xB7),
		Legs: []settlement.Leg{
			{Kind: settlement.LegPayment, Ledger: makeID(0xF7), From: makeID(0xB7), To: makeID(0x5E), Amount: uint256.NewInt(1000)},
			{Kind: settlement.LegAsset, Ledger: makeID(0x7F), From: makeID(0x5E), To: makeID(0xB7), TokenID: uint256.NewInt(1)},
		},
		Remainder: uint256.NewInt(1000),
		SettledAt: at,
	}
}

// --- FileStore tests ---

func TestNewFileStore_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "archive")
	_, err := NewFileStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewFileStore_EmptyDir(t *testing.T) {
	_, err := NewFileStore("")
	assert.ErrorIs(t, err, ErrInvalidBaseDir)
}

func TestKeyPath(t *testing.T) {
	key := makeKey(0x42)
	h := hex.EncodeToString(key)
	assert.Equal(t, filepath.Join("/base", h[:2], h), KeyPath("/base", key))
}

func TestPutGet(t *testing.T) {
	fs := newTestStore(t)
	key := makeKey(1)

	require.NoError(t, fs.Put(key, []byte("record")))
	got, err := fs.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("record"), got)

	require.NoError(t, fs.Put(key, []byte("replaced")))
	got, err = fs.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("replaced"), got)

	_, err = os.Stat(KeyPath(fs.baseDir, key) + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_InvalidInput(t *testing.T) {
	fs := newTestStore(t)

	tests := []struct {
		name string
		key  []byte
	}{
		{"nil", nil},
		{"short", make([]byte, 31)},
		{"long", make([]byte, 33)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, fs.Put(tc.key, []byte("x")), ErrInvalidKey)
			_, err := fs.Get(tc.key)
			assert.ErrorIs(t, err, ErrInvalidKey)
			_, err = fs.Has(tc.key)
			assert.ErrorIs(t, err, ErrInvalidKey)
			assert.ErrorIs(t, fs.Delete(tc.key), ErrInvalidKey)
		})
	}

	assert.ErrorIs(t, fs.Put(makeKey(1), nil), ErrEmptyContent)
}

func TestHasDelete(t *testing.T) {
	fs := newTestStore(t)
	key := makeKey(2)

	ok, err := fs.Has(key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, fs.Delete(key), ErrNotFound)

	require.NoError(t, fs.Put(key, []byte("x")))
	ok, err = fs.Has(key)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, fs.Delete(key))
	_, err = fs.Get(key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_SortedAndSkipsStrays(t *testing.T) {
	fs := newTestStore(t)
	var want [][]byte
	for i := byte(0); i < 5; i++ {
		k := makeKey(i)
		require.NoError(t, fs.Put(k, []byte{i}))
		want = append(want, k)
	}
	require.NoError(t, os.WriteFile(filepath.Join(fs.baseDir, "stray.txt"), []byte("x"), 0600))
	require.NoError(t, os.MkdirAll(filepath.Join(fs.baseDir, "zz"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(fs.baseDir, "zz", "not-hex"), []byte("x"), 0600))

	keys, err := fs.List()
	require.NoError(t, err)
	require.Len(t, keys, 5)
	for i := 1; i < len(keys); i++ {
		assert.Negative(t, bytes.Compare(keys[i-1], keys[i]))
	}
	assert.ElementsMatch(t, want, keys)
}

func TestConcurrentPutGet(t *testing.T) {
	fs := newTestStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(seed byte) {
			defer wg.Done()
			k := makeKey(seed)
			assert.NoError(t, fs.Put(k, []byte{seed}))
			got, err := fs.Get(k)
			assert.NoError(t, err)
			assert.Equal(t, []byte{seed}, got)
		}(byte(i))
	}
	wg.Wait()

	keys, err := fs.List()
	require.NoError(t, err)
	assert.Len(t, keys, 16)
}

// --- Journal tests ---

func TestOpenJournal_EmptyDir(t *testing.T) {
	_, err := OpenJournal("", nil)
	assert.ErrorIs(t, err, ErrInvalidBaseDir)
}

func TestJournal_RecordSettlement(t *testing.T) {
	j := newTestJournal(t)
	r := sampleReceipt(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))

	require.NoError(t, j.RecordSettlement(context.Background(), r))

	got, err := j.Receipt(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, r.Digest, got.Digest)
	assert.Equal(t, r.Legs, got.Legs)
	assert.True(t, r.Remainder.Eq(got.Remainder))

	_, err = j.Receipt(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, j.RecordSettlement(context.Background(), nil), ErrNilReceipt)
}

func TestJournal_ReceiptsOldestFirst(t *testing.T) {
	j := newTestJournal(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, h := range []int{5, 1, 3} {
		require.NoError(t, j.RecordSettlement(context.Background(), sampleReceipt(base.Add(time.Duration(h)*time.Hour))))
	}

	all, err := j.Receipts()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 1, all[0].SettledAt.Hour())
	assert.Equal(t, 3, all[1].SettledAt.Hour())
	assert.Equal(t, 5, all[2].SettledAt.Hour())
}

func TestJournal_CorruptReceipt(t *testing.T) {
	j := newTestJournal(t)
	id := uuid.New()
	require.NoError(t, j.receipts.Put(ReceiptKey(id), []byte("{not json")))

	_, err := j.Receipt(id)
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestJournal_RuleChanges(t *testing.T) {
	j := newTestJournal(t)

	none, err := j.RuleChanges()
	require.NoError(t, err)
	assert.Empty(t, none)

	admin := makeID(0xAD)
	store, err := profitshare.NewStore(admin, nil, profitshare.WithListener(j.Listener()))
	require.NoError(t, err)

	coll := makeID(0xC0)
	bens := []account.ID{makeID(1), makeID(2)}
	require.NoError(t, store.AddOrUpdate(admin, coll, uint256.NewInt(42), bens, []uint64{100, 200}))
	require.NoError(t, store.AddOrUpdate(admin, coll, uint256.NewInt(43), bens[:1], []uint64{300}))

	changes, err := j.RuleChanges()
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, coll, changes[0].Collection)
	assert.Equal(t, "42", changes[0].Instance)
	assert.Equal(t, bens, changes[0].Beneficiaries)
	assert.Equal(t, []uint64{100, 200}, changes[0].Ratios)
	assert.Equal(t, "43", changes[1].Instance)
	assert.False(t, changes[1].RecordedAt.IsZero())
}

func TestJournal_CorruptRuleLog(t *testing.T) {
	j := newTestJournal(t)
	require.NoError(t, os.WriteFile(filepath.Join(j.dir, rulesLog), []byte("garbage\n"), 0600))
	_, err := j.RuleChanges()
	assert.ErrorIs(t, err, ErrCorruptRecord)
}
