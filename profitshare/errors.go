package profitshare

import (
	"errors"

	"github.com/bitfsorg/settle-go/fault"
)

// Rejections returned by AddOrUpdate and Cal. Each carries a stable code.
var (
	// ErrUnauthorized indicates the caller is not the store administrator.
	ErrUnauthorized = fault.New(fault.Unauthorized, "Unauthorized", "Not owner")

	// ErrInvalidCollection indicates the null collection identifier was supplied.
	ErrInvalidCollection = fault.New(fault.InvalidAssetReference, "InvalidCollection", "Invalid NFT contract address")

	// ErrEmptyBeneficiaryList indicates no beneficiaries were supplied.
	ErrEmptyBeneficiaryList = fault.New(fault.RuleValidation, "EmptyBeneficiaryList", "Empty beneficiary list")

	// ErrLengthMismatch indicates beneficiaries and ratios differ in length.
	ErrLengthMismatch = fault.New(fault.RuleValidation, "LengthMismatch", "Beneficiary and ratio lengths differ")

	// ErrRatioOutOfRange indicates a ratio of zero or above 1,000,000 ppm.
	ErrRatioOutOfRange = fault.New(fault.RuleValidation, "RatioOutOfRange", "Share ratio out of range")

	// ErrRatioSumExceeded indicates the ratios add up to more than 1,000,000 ppm.
	ErrRatioSumExceeded = fault.New(fault.RuleValidation, "RatioSumExceeded", "Share ratio sum exceeds 100%")
)

var (
	// ErrRuleNotFound indicates no rule is configured for the key.
	ErrRuleNotFound = errors.New("profitshare: rule not found")

	// ErrInvalidRuleData indicates a serialized rule is malformed.
	ErrInvalidRuleData = errors.New("profitshare: invalid rule data")

	// ErrInvalidAdmin indicates the null identifier was supplied as administrator.
	ErrInvalidAdmin = errors.New("profitshare: administrator must not be the null identifier")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("profitshare: required parameter is nil")

	// ErrShareOverflow indicates a share does not fit in 256 bits.
	ErrShareOverflow = errors.New("profitshare: share overflows 256 bits")

	// ErrTooManyEntries indicates a rule has more entries than can be encoded.
	ErrTooManyEntries = errors.New("profitshare: too many entries")

	// ErrBackendClosed indicates the backend has been closed.
	ErrBackendClosed = errors.New("profitshare: backend closed")
)
