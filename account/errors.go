package account

import "errors"

var (
	// ErrInvalidLength indicates raw identifier bytes are not 20 bytes long.
	ErrInvalidLength = errors.New("account: identifier must be 20 bytes")

	// ErrInvalidHex indicates a hex identifier could not be decoded.
	ErrInvalidHex = errors.New("account: invalid hex identifier")

	// ErrInvalidAddress indicates a base58 address could not be decoded.
	ErrInvalidAddress = errors.New("account: invalid address")

	// ErrNilPublicKey indicates a nil public key was supplied.
	ErrNilPublicKey = errors.New("account: public key is nil")

	// ErrEmpty indicates an empty identifier string.
	ErrEmpty = errors.New("account: empty identifier")
)

var (
	// ErrInvalidEntropy indicates an unsupported mnemonic entropy size.
	ErrInvalidEntropy = errors.New("account: entropy must be 128 or 256 bits")

	// ErrInvalidMnemonic indicates a mnemonic failed BIP39 validation.
	ErrInvalidMnemonic = errors.New("account: invalid mnemonic")

	// ErrDerivationFailed indicates BIP32 key derivation failed.
	ErrDerivationFailed = errors.New("account: key derivation failed")
)
