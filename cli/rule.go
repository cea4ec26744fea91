package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/bitfsorg/settle-go/account"
	"github.com/bitfsorg/settle-go/fault"
	"github.com/bitfsorg/settle-go/profitshare"
)

// NewRuleCommand creates the rule command group.
func NewRuleCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Manage profit-sharing rules",
	}
	cmd.AddCommand(newRuleSetCommand(opts))
	cmd.AddCommand(newRuleShowCommand(opts))
	cmd.AddCommand(newRuleListCommand(opts))
	cmd.AddCommand(newRuleCalCommand(opts))
	return cmd
}

type shareView struct {
	Account string `json:"account"`
	Address string `json:"address,omitempty"`
	Ratio   uint64 `json:"ratio,omitempty"`
	Amount  string `json:"amount,omitempty"`
}

type ruleView struct {
	Collection    string      `json:"collection"`
	Instance      string      `json:"instance"`
	TotalRatio    uint64      `json:"total_ratio"`
	Beneficiaries []shareView `json:"beneficiaries"`
}

func newRuleView(r *profitshare.Rule, mainnet bool) ruleView {
	v := ruleView{
		Collection: r.Key.Collection.Hex(),
		Instance:   r.Key.Instance.Dec(),
		TotalRatio: r.TotalRatio(),
	}
	for _, e := range r.Entries {
		v.Beneficiaries = append(v.Beneficiaries, shareView{
			Account: e.Beneficiary.Hex(),
			Address: addressOf(e.Beneficiary, mainnet),
			Ratio:   uint64(e.Ratio),
		})
	}
	return v
}

func (v ruleView) writeText(w io.Writer) {
	fmt.Fprintf(w, "%s #%s (%d ppm)\n", v.Collection, v.Instance, v.TotalRatio)
	for _, b := range v.Beneficiaries {
		fmt.Fprintf(w, "  %s %s %d\n", b.Account, b.Address, b.Ratio)
	}
}

// addressOf renders id as a base58 address, or "" for the null identifier.
func addressOf(id account.ID, mainnet bool) string {
	if id.IsZero() {
		return ""
	}
	addr, err := id.Address(mainnet)
	if err != nil {
		return ""
	}
	return addr
}

// ruleTarget parses the <collection> <instance> argument pair.
func ruleTarget(args []string) (account.ID, *uint256.Int, error) {
	collection, err := parseAccount(args[0])
	if err != nil {
		return account.Zero, nil, err
	}
	instance, err := parseUint(args[1])
	if err != nil {
		return account.Zero, nil, err
	}
	return collection, instance, nil
}

// parseAccount accepts an address, 0x hex or "null" for the null identifier.
func parseAccount(s string) (account.ID, error) {
	if s == "null" || s == "0" {
		return account.Zero, nil
	}
	id, err := account.Parse(s)
	if err != nil {
		return account.Zero, WrapExitError(ExitCommandError, fmt.Sprintf("invalid account %q", s), err)
	}
	return id, nil
}

func parseUint(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid number %q", s), err)
	}
	return v, nil
}

// parseShares parses account=ratio pairs.
func parseShares(pairs []string) ([]account.ID, []uint64, error) {
	beneficiaries := make([]account.ID, 0, len(pairs))
	ratios := make([]uint64, 0, len(pairs))
	for _, pair := range pairs {
		who, ratio, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid share %q: want account=ratio", pair))
		}
		id, err := parseAccount(who)
		if err != nil {
			return nil, nil, err
		}
		r, err := strconv.ParseUint(ratio, 10, 64)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid ratio %q", ratio), err)
		}
		beneficiaries = append(beneficiaries, id)
		ratios = append(ratios, r)
	}
	return beneficiaries, ratios, nil
}

// rejection maps a fault into a failed exit, anything else into a command
// error.
func rejection(msg string, err error) error {
	if fe, ok := fault.As(err); ok {
		return WrapExitError(ExitFailure, fmt.Sprintf("%s rejected (%s)", msg, fe.Code), err)
	}
	return WrapExitError(ExitCommandError, msg, err)
}

func newRuleSetCommand(opts *RootOptions) *cobra.Command {
	var (
		shares []string
		caller string
	)

	cmd := &cobra.Command{
		Use:     "set <collection> <instance>",
		Short:   "Add or replace the rule for an asset instance",
		Example: "  settlectl rule set 0x11..11 1 --share 0x22..22=500000 --share 0x33..33=240000",
		Args:    checkArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, instance, err := ruleTarget(args)
			if err != nil {
				return err
			}
			beneficiaries, ratios, err := parseShares(shares)
			if err != nil {
				return err
			}

			e, err := opts.openEnv(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()

			store, err := e.openStore()
			if err != nil {
				return err
			}
			who := store.Admin()
			if caller != "" {
				if who, err = parseAccount(caller); err != nil {
					return err
				}
			}
			if err := store.AddOrUpdate(who, collection, instance, beneficiaries, ratios); err != nil {
				return rejection("rule set", err)
			}

			rule, err := store.Rule(collection, instance)
			if err != nil {
				return WrapExitError(ExitCommandError, "read back rule", err)
			}
			v := newRuleView(rule, e.cfg.Mainnet())
			return formatter{format: opts.Format, w: cmd.OutOrStdout()}.emit(v, v.writeText)
		},
	}

	cmd.Flags().StringArrayVar(&shares, "share", nil, "beneficiary share as account=ratio (ppm), repeatable")
	cmd.Flags().StringVar(&caller, "caller", "", "act as this account instead of the configured admin")

	return cmd
}

func newRuleShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <collection> <instance>",
		Short: "Print the rule for an asset instance",
		Args:  checkArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, instance, err := ruleTarget(args)
			if err != nil {
				return err
			}
			e, err := opts.openEnv(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()

			store, err := e.openStore()
			if err != nil {
				return err
			}
			rule, err := store.Rule(collection, instance)
			if errors.Is(err, profitshare.ErrRuleNotFound) {
				return WrapExitError(ExitFailure, "rule show", err)
			}
			if err != nil {
				return rejection("rule show", err)
			}
			v := newRuleView(rule, e.cfg.Mainnet())
			return formatter{format: opts.Format, w: cmd.OutOrStdout()}.emit(v, v.writeText)
		},
	}
}

func newRuleListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every stored rule",
		Args:  checkArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.openEnv(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()

			store, err := e.openStore()
			if err != nil {
				return err
			}
			rules, err := store.Rules()
			if err != nil {
				return WrapExitError(ExitCommandError, "list rules", err)
			}
			views := make([]ruleView, 0, len(rules))
			for _, r := range rules {
				views = append(views, newRuleView(r, e.cfg.Mainnet()))
			}
			return formatter{format: opts.Format, w: cmd.OutOrStdout()}.emit(views, func(w io.Writer) {
				if len(views) == 0 {
					fmt.Fprintln(w, "no rules")
				}
				for _, v := range views {
					v.writeText(w)
				}
			})
		},
	}
}

type calView struct {
	Amount    string      `json:"amount"`
	Shares    []shareView `json:"shares"`
	Remainder string      `json:"remainder"`
}

func newRuleCalCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cal <collection> <instance> <amount>",
		Short: "Compute the shares a payment would produce",
		Args:  checkArgs(cobra.ExactArgs(3)),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, instance, err := ruleTarget(args)
			if err != nil {
				return err
			}
			amount, err := parseUint(args[2])
			if err != nil {
				return err
			}
			e, err := opts.openEnv(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()

			store, err := e.openStore()
			if err != nil {
				return err
			}
			beneficiaries, shares, err := store.Cal(amount, collection, instance)
			if err != nil {
				return rejection("rule cal", err)
			}

			v := calView{Amount: amount.Dec(), Shares: []shareView{}}
			remainder := new(uint256.Int).Set(amount)
			for i, b := range beneficiaries {
				remainder.Sub(remainder, shares[i])
				v.Shares = append(v.Shares, shareView{
					Account: b.Hex(),
					Address: addressOf(b, e.cfg.Mainnet()),
					Amount:  shares[i].Dec(),
				})
			}
			v.Remainder = remainder.Dec()

			return formatter{format: opts.Format, w: cmd.OutOrStdout()}.emit(v, func(w io.Writer) {
				for _, s := range v.Shares {
					fmt.Fprintf(w, "%s %s\n", s.Account, s.Amount)
				}
				fmt.Fprintf(w, "remainder %s\n", v.Remainder)
			})
		},
	}
}
