package scenario

import "errors"

var (
	// ErrInvalidScenario indicates the scenario file is malformed or
	// inconsistent.
	ErrInvalidScenario = errors.New("scenario: invalid scenario")

	// ErrUnknownLedger indicates a trade or rule names a ledger the
	// scenario does not declare.
	ErrUnknownLedger = errors.New("scenario: unknown ledger")

	// ErrInvalidAmount indicates a decimal amount or token id could not be parsed.
	ErrInvalidAmount = errors.New("scenario: invalid amount")

	// ErrExpectationFailed indicates at least one trade outcome differed
	// from its expectation.
	ErrExpectationFailed = errors.New("scenario: expectation failed")
)
