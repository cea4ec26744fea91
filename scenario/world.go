package scenario

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
	"github.com/holiman/uint256"

	"github.com/bitfsorg/settle-go/account"
	"github.com/bitfsorg/settle-go/ledger"
	"github.com/bitfsorg/settle-go/profitshare"
	"github.com/bitfsorg/settle-go/settlement"
)

// DefaultSource is the alias of the rule store when a scenario names none.
const DefaultSource = "royalties"

// Options tune how a World is built.
type Options struct {
	Logger    *slog.Logger
	Backend   profitshare.Backend // nil selects an in-memory backend
	Recorder  settlement.Recorder
	Listeners []profitshare.Listener
}

// World is a scenario's ledgers, rule store and engine.
type World struct {
	file   *File
	admin  account.ID
	logger *slog.Logger

	ids   map[string]account.ID
	names map[account.ID]string

	dir          *ledger.Directory
	fungible     map[string]*ledger.MemFungible
	unique       map[string]*ledger.MemUnique
	semiFungible map[string]*ledger.MemSemiFungible

	uniqueTokens map[string][]*uint256.Int
	semiTokens   map[string][]*uint256.Int

	store  *profitshare.Store
	engine *settlement.Engine
}

// Build creates the world described by f: it mints opening holdings,
// grants approvals and installs the profit-sharing rules.
func Build(f *File, opts Options) (*World, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	w := &World{
		file:         f,
		logger:       logger,
		ids:          make(map[string]account.ID),
		names:        make(map[account.ID]string),
		dir:          ledger.NewDirectory(),
		fungible:     make(map[string]*ledger.MemFungible),
		unique:       make(map[string]*ledger.MemUnique),
		semiFungible: make(map[string]*ledger.MemSemiFungible),
		uniqueTokens: make(map[string][]*uint256.Int),
		semiTokens:   make(map[string][]*uint256.Int),
	}

	admin, err := w.resolve(f.Admin)
	if err != nil {
		return nil, err
	}
	w.admin = admin

	if err := w.buildFungible(); err != nil {
		return nil, err
	}
	if err := w.buildUnique(); err != nil {
		return nil, err
	}
	if err := w.buildSemiFungible(); err != nil {
		return nil, err
	}

	storeOpts := []profitshare.Option{profitshare.WithLogger(logger)}
	for _, l := range opts.Listeners {
		storeOpts = append(storeOpts, profitshare.WithListener(l))
	}
	store, err := profitshare.NewStore(admin, opts.Backend, storeOpts...)
	if err != nil {
		return nil, err
	}
	w.store = store
	if err := w.installRules(); err != nil {
		return nil, err
	}

	sources := settlement.NewSources()
	sourceAlias := f.Source
	if sourceAlias == "" {
		sourceAlias = DefaultSource
	}
	sourceID, err := w.resolve(sourceAlias)
	if err != nil {
		return nil, err
	}
	if err := sources.Register(sourceID, store); err != nil {
		return nil, err
	}

	engineOpts := []settlement.Option{settlement.WithLogger(logger)}
	if opts.Recorder != nil {
		engineOpts = append(engineOpts, settlement.WithRecorder(opts.Recorder))
	}
	engine, err := settlement.NewEngine(admin, w.dir, sources, engineOpts...)
	if err != nil {
		return nil, err
	}
	w.engine = engine
	return w, nil
}

// Admin returns the administrator identity.
func (w *World) Admin() account.ID { return w.admin }

// Store returns the world's rule store.
func (w *World) Store() *profitshare.Store { return w.store }

// Engine returns the world's settlement engine.
func (w *World) Engine() *settlement.Engine { return w.engine }

// ID returns the identifier bound to alias.
func (w *World) ID(alias string) (account.ID, error) { return w.resolve(alias) }

// Name returns the alias of id, or its hex form if it has none.
func (w *World) Name(id account.ID) string {
	if n, ok := w.names[id]; ok {
		return n
	}
	return id.Hex()
}

// resolve maps an alias to an identifier. An empty alias, "null" or "zero"
// is the null identifier. Explicit account bindings win, then aliases that
// parse as identifiers; any other alias names HASH160(alias).
func (w *World) resolve(alias string) (account.ID, error) {
	alias = strings.TrimSpace(alias)
	switch alias {
	case "", "null", "zero":
		return account.Zero, nil
	}
	if id, ok := w.ids[alias]; ok {
		return id, nil
	}

	var id account.ID
	if bound, ok := w.file.Accounts[alias]; ok {
		parsed, err := account.Parse(bound)
		if err != nil {
			return account.Zero, fmt.Errorf("%w: account %q: %w", ErrInvalidScenario, alias, err)
		}
		id = parsed
	} else if parsed, err := account.Parse(alias); err == nil {
		id = parsed
	} else {
		derived, err := account.FromBytes(bsvhash.Hash160([]byte(alias)))
		if err != nil {
			return account.Zero, err
		}
		id = derived
	}

	w.ids[alias] = id
	if _, named := w.names[id]; !named {
		w.names[id] = alias
	}
	return id, nil
}

func (w *World) mustResolveAll(aliases ...string) ([]account.ID, error) {
	out := make([]account.ID, len(aliases))
	for i, a := range aliases {
		id, err := w.resolve(a)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

func (w *World) buildFungible() error {
	for _, spec := range w.file.Fungible {
		id, err := w.resolve(spec.ID)
		if err != nil {
			return err
		}
		l := ledger.NewMemFungible()
		for _, owner := range sortedKeys(spec.Balances) {
			who, err := w.resolve(owner)
			if err != nil {
				return err
			}
			amt, err := parseAmount(spec.Balances[owner])
			if err != nil {
				return err
			}
			if err := l.Mint(who, amt); err != nil {
				return fmt.Errorf("%w: fungible %s: mint to %s: %w", ErrInvalidScenario, spec.ID, owner, err)
			}
		}
		for _, a := range spec.Allowances {
			ids, err := w.mustResolveAll(a.Owner, a.Spender)
			if err != nil {
				return err
			}
			amt, err := parseAmount(a.Amount)
			if err != nil {
				return err
			}
			if err := l.Approve(ids[0], ids[1], amt); err != nil {
				return fmt.Errorf("%w: fungible %s: approve: %w", ErrInvalidScenario, spec.ID, err)
			}
		}
		if err := w.dir.RegisterFungible(id, l); err != nil {
			return err
		}
		w.fungible[spec.ID] = l
	}
	return nil
}

func (w *World) buildUnique() error {
	for _, spec := range w.file.Unique {
		id, err := w.resolve(spec.ID)
		if err != nil {
			return err
		}
		l := ledger.NewMemUnique()
		for _, token := range sortedKeys(spec.Tokens) {
			tid, err := parseAmount(token)
			if err != nil {
				return err
			}
			owner, err := w.resolve(spec.Tokens[token])
			if err != nil {
				return err
			}
			if err := l.Mint(owner, tid); err != nil {
				return fmt.Errorf("%w: unique %s: mint %s: %w", ErrInvalidScenario, spec.ID, token, err)
			}
			w.uniqueTokens[spec.ID] = append(w.uniqueTokens[spec.ID], tid)
		}
		for _, op := range spec.Operators {
			ids, err := w.mustResolveAll(op.Owner, op.Operator)
			if err != nil {
				return err
			}
			if err := l.SetApprovalForAll(ids[0], ids[1], true); err != nil {
				return fmt.Errorf("%w: unique %s: operator: %w", ErrInvalidScenario, spec.ID, err)
			}
		}
		if err := w.dir.RegisterUnique(id, l); err != nil {
			return err
		}
		w.unique[spec.ID] = l
	}
	return nil
}

func (w *World) buildSemiFungible() error {
	for _, spec := range w.file.SemiFungible {
		id, err := w.resolve(spec.ID)
		if err != nil {
			return err
		}
		l := ledger.NewMemSemiFungible()
		known := make(map[uint256.Int]bool)
		for _, h := range spec.Holdings {
			owner, err := w.resolve(h.Owner)
			if err != nil {
				return err
			}
			tid, err := parseAmount(h.Token)
			if err != nil {
				return err
			}
			amt, err := parseAmount(h.Amount)
			if err != nil {
				return err
			}
			if err := l.Mint(owner, tid, amt); err != nil {
				return fmt.Errorf("%w: semi_fungible %s: mint: %w", ErrInvalidScenario, spec.ID, err)
			}
			if !known[*tid] {
				known[*tid] = true
				w.semiTokens[spec.ID] = append(w.semiTokens[spec.ID], tid)
			}
		}
		for _, op := range spec.Operators {
			ids, err := w.mustResolveAll(op.Owner, op.Operator)
			if err != nil {
				return err
			}
			if err := l.SetApprovalForAll(ids[0], ids[1], true); err != nil {
				return fmt.Errorf("%w: semi_fungible %s: operator: %w", ErrInvalidScenario, spec.ID, err)
			}
		}
		if err := w.dir.RegisterSemiFungible(id, l); err != nil {
			return err
		}
		w.semiFungible[spec.ID] = l
	}
	return nil
}

func (w *World) installRules() error {
	for i, r := range w.file.Rules {
		coll, err := w.resolve(r.Collection)
		if err != nil {
			return err
		}
		inst, err := parseAmount(r.Instance)
		if err != nil {
			return err
		}
		bens, err := w.mustResolveAll(r.Beneficiaries...)
		if err != nil {
			return err
		}
		if err := w.store.AddOrUpdate(w.admin, coll, inst, bens, r.Ratios); err != nil {
			return fmt.Errorf("%w: rules[%d]: %w", ErrInvalidScenario, i, err)
		}
	}
	return nil
}

func parseAmount(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidAmount, s, err)
	}
	return v, nil
}

func parseData(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "0x") {
		b, err := hex.DecodeString(s[2:])
		if err != nil {
			return nil, fmt.Errorf("%w: data: %w", ErrInvalidScenario, err)
		}
		return b, nil
	}
	return []byte(s), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
