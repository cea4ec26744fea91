package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bitfsorg/settle-go/archive"
	"github.com/bitfsorg/settle-go/settlement"
)

// NewArchiveCommand creates the archive command group.
func NewArchiveCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect archived receipts and rule changes",
	}
	cmd.AddCommand(newArchiveReceiptsCommand(opts))
	cmd.AddCommand(newArchiveReceiptCommand(opts))
	cmd.AddCommand(newArchiveRulesCommand(opts))
	return cmd
}

// openArchive opens the configured journal. Archiving must be enabled.
func openArchive(cmd *cobra.Command, opts *RootOptions) (*env, *archive.Journal, error) {
	e, err := opts.openEnv(cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	j, err := e.openJournal()
	if err != nil {
		_ = e.close()
		return nil, nil, err
	}
	if j == nil {
		_ = e.close()
		return nil, nil, NewExitError(ExitCommandError, "archive_dir is not configured")
	}
	return e, j, nil
}

func writeReceipt(w io.Writer, r *settlement.Receipt) {
	fmt.Fprintf(w, "%s %s seller=%s buyer=%s remainder=%s\n",
		r.ID, r.SettledAt.Format(time.RFC3339), r.Seller.Hex(), r.Buyer.Hex(), r.Remainder.Dec())
}

func newArchiveReceiptsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "receipts",
		Short: "List archived settlement receipts",
		Args:  checkArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, j, err := openArchive(cmd, opts)
			if err != nil {
				return err
			}
			defer e.close()

			receipts, err := j.Receipts()
			if err != nil {
				return WrapExitError(ExitCommandError, "read receipts", err)
			}
			if receipts == nil {
				receipts = []*settlement.Receipt{}
			}
			return formatter{format: opts.Format, w: cmd.OutOrStdout()}.emit(receipts, func(w io.Writer) {
				for _, r := range receipts {
					writeReceipt(w, r)
				}
			})
		},
	}
}

func newArchiveReceiptCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "receipt <id>",
		Short: "Print one archived receipt with its legs",
		Args:  checkArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid receipt id %q", args[0]), err)
			}
			e, j, err := openArchive(cmd, opts)
			if err != nil {
				return err
			}
			defer e.close()

			r, err := j.Receipt(id)
			if errors.Is(err, archive.ErrNotFound) {
				return WrapExitError(ExitFailure, "archive receipt", err)
			}
			if err != nil {
				return WrapExitError(ExitCommandError, "archive receipt", err)
			}
			return formatter{format: opts.Format, w: cmd.OutOrStdout()}.emit(r, func(w io.Writer) {
				writeReceipt(w, r)
				fmt.Fprintf(w, "  digest %s\n", r.DigestHex())
				for _, l := range r.Legs {
					switch {
					case l.Kind == settlement.LegPayment:
						fmt.Fprintf(w, "  %s %s -> %s %s\n", l.Kind, l.From.Hex(), l.To.Hex(), l.Amount.Dec())
					case l.Amount != nil:
						fmt.Fprintf(w, "  %s %s -> %s #%s x%s\n", l.Kind, l.From.Hex(), l.To.Hex(), l.TokenID.Dec(), l.Amount.Dec())
					default:
						fmt.Fprintf(w, "  %s %s -> %s #%s\n", l.Kind, l.From.Hex(), l.To.Hex(), l.TokenID.Dec())
					}
				}
			})
		},
	}
}

func newArchiveRulesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the rule change history",
		Args:  checkArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, j, err := openArchive(cmd, opts)
			if err != nil {
				return err
			}
			defer e.close()

			changes, err := j.RuleChanges()
			if err != nil {
				return WrapExitError(ExitCommandError, "read rule changes", err)
			}
			if changes == nil {
				changes = []archive.RuleChange{}
			}
			return formatter{format: opts.Format, w: cmd.OutOrStdout()}.emit(changes, func(w io.Writer) {
				for _, c := range changes {
					fmt.Fprintf(w, "%s %s #%s %d beneficiaries\n",
						c.RecordedAt.Format(time.RFC3339), c.Collection.Hex(), c.Instance, len(c.Beneficiaries))
				}
			})
		},
	}
}
