// Package account defines the 20-byte identifier used for trading parties,
// beneficiaries, ledgers, asset collections and rule stores.
//
// Identifiers are HASH160 digests, so an identifier can be derived from a
// secp256k1 public key and rendered as a base58 P2PKH address, or written as
// 0x-prefixed hex.
package account

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
	"github.com/bsv-blockchain/go-sdk/script"
)

// Size is the length of an identifier in bytes.
const Size = 20

// ID identifies an account. The zero value is the null identifier: it never
// names a real account and every operation taking an ID rejects it as
// malformed input.
type ID [Size]byte

// Zero is the null identifier.
var Zero ID

// IsZero reports whether id is the null identifier.
func (id ID) IsZero() bool { return id == Zero }

// Bytes returns a copy of the identifier bytes.
func (id ID) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, id[:])
	return b
}

// Hex returns the 0x-prefixed lowercase hex form.
func (id ID) Hex() string { return "0x" + hex.EncodeToString(id[:]) }

// String implements fmt.Stringer.
func (id ID) String() string { return id.Hex() }

// Compare orders identifiers bytewise.
func (id ID) Compare(other ID) int { return bytes.Compare(id[:], other[:]) }

// Address renders the identifier as a base58check P2PKH address.
func (id ID) Address(mainnet bool) (string, error) {
	addr, err := script.NewAddressFromPublicKeyHash(id[:], mainnet)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return addr.AddressString, nil
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) { return []byte(id.Hex()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// FromBytes copies a 20-byte slice into an ID.
func FromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != Size {
		return id, fmt.Errorf("%w: got %d bytes", ErrInvalidLength, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// FromHex decodes a hex identifier, with or without a 0x prefix.
func FromHex(s string) (ID, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return ID{}, fmt.Errorf("%w: %w", ErrInvalidHex, err)
	}
	return FromBytes(b)
}

// FromAddress decodes a base58 P2PKH address.
func FromAddress(s string) (ID, error) {
	addr, err := script.NewAddressFromString(s)
	if err != nil {
		return ID{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return FromBytes([]byte(addr.PublicKeyHash))
}

// FromPublicKey derives the identifier HASH160(compressed pubkey).
func FromPublicKey(pub *ec.PublicKey) (ID, error) {
	if pub == nil {
		return ID{}, ErrNilPublicKey
	}
	return FromBytes(bsvhash.Hash160(pub.Compressed()))
}

// Parse accepts either a 0x-prefixed hex identifier or a base58 address.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ID{}, ErrEmpty
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return FromHex(s)
	}
	if len(s) == 2*Size {
		if id, err := FromHex(s); err == nil {
			return id, nil
		}
	}
	return FromAddress(s)
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}
