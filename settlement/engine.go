// Package settlement executes trades: it checks the trade, asks the trade's
// profit-sharing source for the royalty schedule, pays the seller and every
// beneficiary from the buyer, and hands the asset to the buyer. Either every
// leg is applied or none is.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/bitfsorg/settle-go/account"
	"github.com/bitfsorg/settle-go/fault"
)

// Engine settles trades on behalf of a fixed administrator. The
// administrator is also the spender and operator the engine presents to
// every ledger, so parties must approve it before trading.
type Engine struct {
	admin       account.ID
	ledgers     Ledgers
	calculators Calculators
	recorder    Recorder
	logger      *slog.Logger
	now         func() time.Time

	mu sync.Mutex // held for a whole Settle call
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecorder persists a receipt for every committed settlement.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithClock overrides the receipt timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an Engine administered by admin.
func NewEngine(admin account.ID, ledgers Ledgers, calculators Calculators, opts ...Option) (*Engine, error) {
	if admin.IsZero() {
		return nil, ErrInvalidAdmin
	}
	if ledgers == nil || calculators == nil {
		return nil, ErrNilParam
	}
	e := &Engine{
		admin:       admin,
		ledgers:     ledgers,
		calculators: calculators,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Admin returns the administrator identity.
func (e *Engine) Admin() account.ID { return e.admin }

// Quote is the profit-sharing breakdown of a trade's payment.
type Quote struct {
	Beneficiaries []account.ID
	Shares        []*uint256.Int
	Remainder     *uint256.Int
}

// Check runs the authorization, party and asset-reference checks of Settle
// without touching any ledger or calculator.
func (e *Engine) Check(caller account.ID, t Trade) error {
	if caller != e.admin {
		return ErrUnauthorized
	}
	return t.check()
}

// Quote computes the shares and seller remainder Settle would pay for t.
func (e *Engine) Quote(t Trade) (*Quote, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return e.quote(&t)
}

// Settle executes t. The first failing check determines the returned
// rejection. When a transfer fails, every leg already applied is reversed
// in reverse order before Settle returns; if a reversal itself fails the
// returned error also matches ErrRollbackIncomplete.
func (e *Engine) Settle(ctx context.Context, caller account.ID, t Trade) (*Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.logger.With(
		"seller", t.Seller,
		"buyer", t.Buyer,
		"collection", t.Collection,
	)
	log.Debug("settlement started", "amount", decOrEmpty(t.Amount))

	receipt, err := e.settle(ctx, log, caller, &t)
	if err != nil {
		log.Info("settlement rejected", "code", fault.CodeOf(err), "error", err)
		return nil, err
	}

	log.Info("settlement committed",
		"receipt", receipt.ID,
		"legs", len(receipt.Legs),
		"remainder", receipt.Remainder.Dec())

	if e.recorder != nil {
		if err := e.recorder.RecordSettlement(ctx, receipt); err != nil {
			log.Error("record settlement receipt", "receipt", receipt.ID, "error", err)
		}
	}
	return receipt, nil
}

func (e *Engine) settle(ctx context.Context, log *slog.Logger, caller account.ID, t *Trade) (*Receipt, error) {
	if caller != e.admin {
		return nil, ErrUnauthorized
	}
	if err := t.check(); err != nil {
		return nil, err
	}

	q, err := e.quote(t)
	if err != nil {
		return nil, err
	}

	payment, err := e.ledgers.Fungible(t.PaymentAsset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymentTransferFailed, err)
	}
	asset, err := e.assetLeg(t)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAssetTransferFailed, err)
	}

	var st staging

	pay := func(to account.ID, amount *uint256.Int) error {
		if amount.IsZero() {
			return nil
		}
		if err := payment.TransferFrom(ctx, e.admin, t.Buyer, to, amount); err != nil {
			return err
		}
		leg := Leg{Kind: LegPayment, Ledger: t.PaymentAsset, From: t.Buyer, To: to, Amount: amount}
		st.add(leg, func(ctx context.Context) error {
			return payment.Reverse(ctx, e.admin, t.Buyer, to, amount)
		})
		return nil
	}

	if err := pay(t.Seller, q.Remainder); err != nil {
		return nil, e.abort(ctx, log, &st, fmt.Errorf("%w: %w", ErrPaymentTransferFailed, err))
	}
	for i, b := range q.Beneficiaries {
		if err := pay(b, q.Shares[i]); err != nil {
			return nil, e.abort(ctx, log, &st, fmt.Errorf("%w: beneficiary %d: %w", ErrPaymentTransferFailed, i, err))
		}
	}

	leg, undo, err := asset(ctx)
	if err != nil {
		return nil, e.abort(ctx, log, &st, fmt.Errorf("%w: %w", ErrAssetTransferFailed, err))
	}
	st.add(leg, undo)

	return &Receipt{
		ID:        uuid.New(),
		Digest:    t.Digest(),
		Seller:    t.Seller,
		Buyer:     t.Buyer,
		Legs:      st.legs(),
		Remainder: q.Remainder,
		SettledAt: e.now().UTC(),
	}, nil
}

type assetTransfer func(ctx context.Context) (Leg, func(context.Context) error, error)

// assetLeg resolves the asset ledger before any value moves.
func (e *Engine) assetLeg(t *Trade) (assetTransfer, error) {
	id := new(uint256.Int).Set(t.Instance)
	leg := Leg{Kind: LegAsset, Ledger: t.Collection, From: t.Seller, To: t.Buyer, TokenID: id}

	if !t.SemiFungible() {
		l, err := e.ledgers.Unique(t.Collection)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) (Leg, func(context.Context) error, error) {
			if err := l.TransferFrom(ctx, e.admin, t.Seller, t.Buyer, id, t.Data); err != nil {
				return Leg{}, nil, err
			}
			return leg, func(ctx context.Context) error {
				return l.Reverse(ctx, e.admin, t.Seller, t.Buyer, id)
			}, nil
		}, nil
	}

	l, err := e.ledgers.SemiFungible(t.Collection)
	if err != nil {
		return nil, err
	}
	qty := new(uint256.Int).Set(t.Quantity)
	leg.Amount = qty
	return func(ctx context.Context) (Leg, func(context.Context) error, error) {
		if err := l.TransferFrom(ctx, e.admin, t.Seller, t.Buyer, id, qty, t.Data); err != nil {
			return Leg{}, nil, err
		}
		return leg, func(ctx context.Context) error {
			return l.Reverse(ctx, e.admin, t.Seller, t.Buyer, id, qty)
		}, nil
	}, nil
}

func (e *Engine) quote(t *Trade) (*Quote, error) {
	calc, err := e.calculators.Calculator(t.ProfitSharing)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProfitSharingSource, err)
	}

	amount := new(uint256.Int).Set(t.Amount)
	beneficiaries, shares, err := calc.Cal(amount, t.Collection, new(uint256.Int).Set(t.Instance))
	if err != nil {
		if _, ok := fault.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrProfitSharingFailed, err)
	}
	if len(beneficiaries) != len(shares) {
		return nil, fmt.Errorf("%w: %d beneficiaries, %d shares", ErrProfitSharingFailed, len(beneficiaries), len(shares))
	}

	total := new(uint256.Int)
	for i, s := range shares {
		if s == nil {
			return nil, fmt.Errorf("%w: nil share %d", ErrProfitSharingFailed, i)
		}
		if _, overflow := total.AddOverflow(total, s); overflow {
			return nil, fmt.Errorf("%w: share total overflows", ErrSharesExceedPayment)
		}
	}
	if total.Gt(amount) {
		return nil, fmt.Errorf("%w: shares %s, payment %s", ErrSharesExceedPayment, total.Dec(), amount.Dec())
	}

	return &Quote{
		Beneficiaries: beneficiaries,
		Shares:        shares,
		Remainder:     new(uint256.Int).Sub(amount, total),
	}, nil
}

// abort reverses every staged leg and returns cause, joined with any
// reversal failure.
func (e *Engine) abort(ctx context.Context, log *slog.Logger, st *staging, cause error) error {
	if st.empty() {
		return cause
	}
	log.Warn("rolling back settlement", "legs", len(st.steps), "cause", cause)

	if err := st.rollback(context.WithoutCancel(ctx)); err != nil {
		log.Error("settlement rollback incomplete", "error", err)
		return errors.Join(cause, fmt.Errorf("%w: %w", ErrRollbackIncomplete, err))
	}
	return cause
}
