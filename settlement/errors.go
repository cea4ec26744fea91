package settlement

import (
	"errors"

	"github.com/bitfsorg/settle-go/fault"
)

// Settlement rejections, in the order Settle checks them.
var (
	// ErrUnauthorized indicates the caller is not the engine administrator.
	ErrUnauthorized = fault.New(fault.Unauthorized, "Unauthorized", "Not owner")

	// ErrInvalidSeller indicates the seller is the null account.
	ErrInvalidSeller = fault.New(fault.InvalidParty, "InvalidSeller", "Invalid seller address")

	// ErrInvalidBuyer indicates the buyer is the null account.
	ErrInvalidBuyer = fault.New(fault.InvalidParty, "InvalidBuyer", "Invalid buyer address")

	// ErrSameParty indicates the buyer and seller are the same account.
	ErrSameParty = fault.New(fault.InvalidParty, "SameParty", "Buyer and seller cannot be the same address")

	// ErrInvalidPaymentAsset indicates the payment asset is the null account.
	ErrInvalidPaymentAsset = fault.New(fault.InvalidAssetReference, "InvalidPaymentAsset", "Invalid FT contract address")

	// ErrInvalidTradedAsset indicates the traded collection is the null account.
	ErrInvalidTradedAsset = fault.New(fault.InvalidAssetReference, "InvalidTradedAsset", "Invalid NFT contract address")

	// ErrIncompleteTrade indicates the trade has no payment amount or no
	// traded instance. It is checked after the traded asset.
	ErrIncompleteTrade = fault.New(fault.InvalidAssetReference, "IncompleteTrade", "Trade amount and instance are required")

	// ErrInvalidProfitSharingSource indicates no calculator is registered
	// under the trade's profit-sharing source.
	ErrInvalidProfitSharingSource = fault.New(fault.InvalidAssetReference, "InvalidProfitSharingSource", "Invalid profit sharing contract address")

	// ErrProfitSharingFailed indicates the calculator failed or returned an
	// inconsistent schedule.
	ErrProfitSharingFailed = fault.New(fault.AccountingInconsistency, "ProfitSharingFailed", "Profit sharing calculation failed")

	// ErrSharesExceedPayment indicates the shares add up to more than the
	// payment amount.
	ErrSharesExceedPayment = fault.New(fault.AccountingInconsistency, "SharesExceedPayment", "Profit shares exceed payment amount")

	// ErrPaymentTransferFailed indicates a payment leg was refused by the
	// payment ledger.
	ErrPaymentTransferFailed = fault.New(fault.TransferFailure, "PaymentTransferFailed", "Payment transfer failed")

	// ErrAssetTransferFailed indicates the traded asset could not be moved.
	ErrAssetTransferFailed = fault.New(fault.TransferFailure, "AssetTransferFailed", "Asset transfer failed")
)

var (
	// ErrInvalidAdmin indicates the null identifier was supplied as administrator.
	ErrInvalidAdmin = errors.New("settlement: administrator must not be the null identifier")

	// ErrNilParam indicates a required constructor parameter is nil.
	ErrNilParam = errors.New("settlement: required parameter is nil")

	// ErrUnknownSource indicates a profit-sharing source id is not registered.
	ErrUnknownSource = errors.New("settlement: unknown profit sharing source")

	// ErrRollbackIncomplete indicates one or more applied legs could not be
	// reversed after a failure.
	ErrRollbackIncomplete = errors.New("settlement: rollback incomplete")
)
