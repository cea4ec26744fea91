// Package fault defines the rejection taxonomy shared by the rule store and
// the settlement engine.
//
// Every rejection that forms part of the public contract is a *Error carrying
// a Kind (the broad category), a Code (stable machine-readable identifier)
// and a Reason (stable human-readable message). Callers match a specific
// rejection with errors.Is against the package sentinel, or a whole category
// with errors.Is against a Kind.
package fault

import "errors"

// Kind is a rejection category. A Kind is itself an error so that it can be
// used as an errors.Is target.
type Kind string

// Rejection categories.
const (
	Unauthorized            Kind = "unauthorized"
	InvalidParty            Kind = "invalid party"
	InvalidAssetReference   Kind = "invalid asset reference"
	RuleValidation          Kind = "rule validation"
	AccountingInconsistency Kind = "accounting inconsistency"
	TransferFailure         Kind = "transfer failure"
)

// Error implements the error interface.
func (k Kind) Error() string { return string(k) }

// Error is a rejected operation with a stable code and reason.
type Error struct {
	Kind   Kind
	Code   string
	Reason string
}

// New returns a rejection sentinel.
func New(kind Kind, code, reason string) *Error {
	return &Error{Kind: kind, Code: code, Reason: reason}
}

// Error returns the human-readable reason.
func (e *Error) Error() string { return e.Reason }

// Is reports whether target is this error's Kind, or a *Error with the same
// Code.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Kind:
		return e.Kind == t
	case *Error:
		return e.Code == t.Code
	}
	return false
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// CodeOf returns the Code of the first *Error in err's chain, or "" if err
// carries none.
func CodeOf(err error) string {
	if fe, ok := As(err); ok {
		return fe.Code
	}
	return ""
}

// ReasonOf returns the Reason of the first *Error in err's chain, or "".
func ReasonOf(err error) string {
	if fe, ok := As(err); ok {
		return fe.Reason
	}
	return ""
}
