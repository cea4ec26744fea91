package scenario

import (
	"context"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"

	"github.com/bitfsorg/settle-go/account"
	"github.com/bitfsorg/settle-go/fault"
	"github.com/bitfsorg/settle-go/settlement"
)

// Outcome is the result of settling one scenario trade.
type Outcome struct {
	Name    string
	Expect  string
	Code    string
	Err     error
	Receipt *settlement.Receipt
}

// OK reports whether the outcome matched its expectation.
func (o Outcome) OK() bool {
	if o.Expect == "" {
		return o.Err == nil
	}
	return o.Code == o.Expect
}

// Trade converts spec into a settlement trade.
func (w *World) Trade(spec TradeSpec) (settlement.Trade, error) {
	parties, err := w.mustResolveAll(spec.Seller, spec.Buyer, spec.Payment, spec.Collection)
	if err != nil {
		return settlement.Trade{}, err
	}
	amount, err := parseAmount(spec.Amount)
	if err != nil {
		return settlement.Trade{}, err
	}
	instance, err := parseAmount(spec.Instance)
	if err != nil {
		return settlement.Trade{}, err
	}
	var qty *uint256.Int
	if spec.Quantity != "" {
		if qty, err = parseAmount(spec.Quantity); err != nil {
			return settlement.Trade{}, err
		}
	}
	data, err := parseData(spec.Data)
	if err != nil {
		return settlement.Trade{}, err
	}
	source := spec.Source
	if source == "" {
		source = w.file.Source
	}
	if source == "" {
		source = DefaultSource
	}
	sourceID, err := w.resolve(source)
	if err != nil {
		return settlement.Trade{}, err
	}

	return settlement.Trade{
		Seller:        parties[0],
		Buyer:         parties[1],
		PaymentAsset:  parties[2],
		Amount:        amount,
		Collection:    parties[3],
		Instance:      instance,
		Quantity:      qty,
		Data:          data,
		ProfitSharing: sourceID,
	}, nil
}

// Run settles every trade in order. The outcomes are always returned; the
// error matches ErrExpectationFailed if any outcome missed its expectation.
func (w *World) Run(ctx context.Context) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(w.file.Trades))
	failed := 0
	for i, spec := range w.file.Trades {
		name := spec.Name
		if name == "" {
			name = fmt.Sprintf("trade %d", i+1)
		}
		trade, err := w.Trade(spec)
		if err != nil {
			return outcomes, fmt.Errorf("%s: %w", name, err)
		}
		caller := w.admin
		if spec.Caller != "" {
			if caller, err = w.resolve(spec.Caller); err != nil {
				return outcomes, err
			}
		}

		receipt, err := w.engine.Settle(ctx, caller, trade)
		o := Outcome{
			Name:    name,
			Expect:  spec.Expect,
			Code:    fault.CodeOf(err),
			Err:     err,
			Receipt: receipt,
		}
		if !o.OK() {
			failed++
			w.logger.Warn("scenario trade missed expectation", "trade", name, "expect", o.Expect, "code", o.Code, "error", err)
		}
		outcomes = append(outcomes, o)
	}
	if failed > 0 {
		return outcomes, fmt.Errorf("%w: %d of %d trades", ErrExpectationFailed, failed, len(outcomes))
	}
	return outcomes, nil
}

// Snapshot lists non-zero holdings by alias: fungible[ledger][holder] is a
// balance, unique[ledger][token] an owner, and
// semi_fungible[ledger][token][holder] a balance.
type Snapshot struct {
	Fungible     map[string]map[string]string            `yaml:"fungible,omitempty" json:"fungible,omitempty"`
	Unique       map[string]map[string]string            `yaml:"unique,omitempty" json:"unique,omitempty"`
	SemiFungible map[string]map[string]map[string]string `yaml:"semi_fungible,omitempty" json:"semi_fungible,omitempty"`
}

// Snapshot reads every ledger concurrently.
func (w *World) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		Fungible:     make(map[string]map[string]string),
		Unique:       make(map[string]map[string]string),
		SemiFungible: make(map[string]map[string]map[string]string),
	}
	holders := w.knownAccounts()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for name, l := range w.fungible {
		g.Go(func() error {
			out := make(map[string]string)
			for _, h := range holders {
				bal, err := l.BalanceOf(gctx, h)
				if err != nil {
					return fmt.Errorf("fungible %s: %w", name, err)
				}
				if !bal.IsZero() {
					out[w.Name(h)] = bal.Dec()
				}
			}
			mu.Lock()
			snap.Fungible[name] = out
			mu.Unlock()
			return nil
		})
	}

	for name, l := range w.unique {
		tokens := w.uniqueTokens[name]
		g.Go(func() error {
			out := make(map[string]string)
			for _, tid := range tokens {
				owner, err := l.OwnerOf(gctx, tid)
				if err != nil {
					return fmt.Errorf("unique %s: %w", name, err)
				}
				out[tid.Dec()] = w.Name(owner)
			}
			mu.Lock()
			snap.Unique[name] = out
			mu.Unlock()
			return nil
		})
	}

	for name, l := range w.semiFungible {
		tokens := w.semiTokens[name]
		g.Go(func() error {
			out := make(map[string]map[string]string)
			for _, tid := range tokens {
				per := make(map[string]string)
				for _, h := range holders {
					bal, err := l.BalanceOf(gctx, h, tid)
					if err != nil {
						return fmt.Errorf("semi_fungible %s: %w", name, err)
					}
					if !bal.IsZero() {
						per[w.Name(h)] = bal.Dec()
					}
				}
				out[tid.Dec()] = per
			}
			mu.Lock()
			snap.SemiFungible[name] = out
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// knownAccounts returns every identifier an alias has resolved to.
func (w *World) knownAccounts() []account.ID {
	out := make([]account.ID, 0, len(w.names))
	for id := range w.names {
		if !id.IsZero() {
			out = append(out, id)
		}
	}
	return out
}
