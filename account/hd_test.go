package account

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestGenerateMnemonic(t *testing.T) {
	for bits, words := range map[int]int{Mnemonic12Words: 12, Mnemonic24Words: 24} {
		m, err := GenerateMnemonic(bits)
		require.NoError(t, err)
		assert.Len(t, strings.Fields(m), words)

		_, err = FromMnemonic(m, "", 0, true)
		assert.NoError(t, err)
	}
}

func TestGenerateMnemonic_InvalidEntropy(t *testing.T) {
	_, err := GenerateMnemonic(192)
	assert.ErrorIs(t, err, ErrInvalidEntropy)
}

func TestFromMnemonic_Deterministic(t *testing.T) {
	a, err := FromMnemonic(testMnemonic, "", 0, true)
	require.NoError(t, err)
	b, err := FromMnemonic(testMnemonic, "", 0, true)
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.False(t, a.ID.IsZero())
	assert.Equal(t, "m/44'/236'/0'/0/0", a.Path)

	id, err := FromPublicKey(a.PrivateKey.PubKey())
	require.NoError(t, err)
	assert.Equal(t, a.ID, id)
}

func TestFromMnemonic_IndexAndPassphraseDiffer(t *testing.T) {
	base, err := FromMnemonic(testMnemonic, "", 0, true)
	require.NoError(t, err)

	next, err := FromMnemonic(testMnemonic, "", 1, true)
	require.NoError(t, err)
	assert.NotEqual(t, base.ID, next.ID)
	assert.Equal(t, "m/44'/236'/0'/0/1", next.Path)

	salted, err := FromMnemonic(testMnemonic, "TREZOR", 0, true)
	require.NoError(t, err)
	assert.NotEqual(t, base.ID, salted.ID)
}

func TestFromMnemonic_Invalid(t *testing.T) {
	_, err := FromMnemonic("not a real mnemonic", "", 0, true)
	assert.ErrorIs(t, err, ErrInvalidMnemonic)
}

func TestFromSeed_Empty(t *testing.T) {
	_, err := FromSeed(nil, 0, true)
	assert.ErrorIs(t, err, ErrDerivationFailed)
}
