package account

import (
	"fmt"

	bip32 "github.com/bsv-blockchain/go-sdk/compat/bip32"
	"github.com/bsv-blockchain/go-sdk/compat/bip39"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	chaincfg "github.com/bsv-blockchain/go-sdk/transaction/chaincfg"
)

const (
	// Mnemonic entropy sizes.
	Mnemonic12Words = 128
	Mnemonic24Words = 256

	purposeBIP44 = 44
	coinTypeBSV  = 236
	hardened     = 0x80000000
)

// Key is an identity derived from a seed.
type Key struct {
	ID         ID
	PrivateKey *ec.PrivateKey
	Path       string
}

// GenerateMnemonic creates a BIP39 mnemonic with entropyBits of entropy
// (Mnemonic12Words or Mnemonic24Words).
func GenerateMnemonic(entropyBits int) (string, error) {
	if entropyBits != Mnemonic12Words && entropyBits != Mnemonic24Words {
		return "", ErrInvalidEntropy
	}
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", fmt.Errorf("account: generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("account: generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// FromMnemonic derives the identity at m/44'/236'/0'/0/index from a BIP39
// mnemonic and optional passphrase.
func FromMnemonic(mnemonic, passphrase string, index uint32, mainnet bool) (*Key, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMnemonic, err)
	}
	return FromSeed(seed, index, mainnet)
}

// FromSeed derives the identity at m/44'/236'/0'/0/index from a BIP39 seed.
func FromSeed(seed []byte, index uint32, mainnet bool) (*Key, error) {
	if len(seed) == 0 {
		return nil, fmt.Errorf("%w: empty seed", ErrDerivationFailed)
	}
	net := &chaincfg.TestNet
	if mainnet {
		net = &chaincfg.MainNet
	}
	key, err := bip32.NewMaster(seed, net)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}

	for _, child := range []uint32{purposeBIP44 + hardened, coinTypeBSV + hardened, hardened, 0, index} {
		if key, err = key.Child(child); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}
	id, err := FromPublicKey(priv.PubKey())
	if err != nil {
		return nil, err
	}
	return &Key{
		ID:         id,
		PrivateKey: priv,
		Path:       fmt.Sprintf("m/44'/236'/0'/0/%d", index),
	}, nil
}
