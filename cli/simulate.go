package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bitfsorg/settle-go/profitshare"
	"github.com/bitfsorg/settle-go/scenario"
)

type simulateOptions struct {
	snapshot bool
	persist  bool
}

type outcomeView struct {
	Name      string `json:"name"`
	Expect    string `json:"expect,omitempty"`
	Code      string `json:"code,omitempty"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	Receipt   string `json:"receipt,omitempty"`
	Digest    string `json:"digest,omitempty"`
	Legs      int    `json:"legs,omitempty"`
	Remainder string `json:"remainder,omitempty"`
}

type simulateView struct {
	Scenario string             `json:"scenario"`
	Outcomes []outcomeView      `json:"outcomes"`
	Snapshot *scenario.Snapshot `json:"snapshot,omitempty"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(opts *RootOptions) *cobra.Command {
	simOpts := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate <file>",
		Short: "Settle the trades of a scenario file",
		Long: `Build the ledgers, rules and engine described by a scenario file,
settle its trades in order and compare each outcome with its expectation.

Exit codes:
  0 - every trade matched its expectation
  1 - at least one trade missed its expectation
  2 - the scenario or configuration is invalid`,
		Args: checkArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, opts, simOpts, args[0])
		},
	}

	cmd.Flags().BoolVar(&simOpts.snapshot, "snapshot", true, "print final holdings")
	cmd.Flags().BoolVar(&simOpts.persist, "persist", false, "install scenario rules into the configured rule store")

	return cmd
}

func runSimulate(cmd *cobra.Command, opts *RootOptions, simOpts *simulateOptions, path string) error {
	file, err := scenario.LoadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "load scenario", err)
	}

	e, err := opts.openEnv(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer e.close()

	buildOpts := scenario.Options{Logger: e.logger}
	if simOpts.persist {
		backend, err := e.openBackend()
		if err != nil {
			return err
		}
		buildOpts.Backend = backend
	}
	j, err := e.openJournal()
	if err != nil {
		return err
	}
	if j != nil {
		buildOpts.Recorder = j
		buildOpts.Listeners = []profitshare.Listener{j.Listener()}
	}

	world, err := scenario.Build(file, buildOpts)
	if err != nil {
		return WrapExitError(ExitCommandError, "build scenario", err)
	}

	ctx := cmd.Context()
	outcomes, runErr := world.Run(ctx)
	if runErr != nil && !errors.Is(runErr, scenario.ErrExpectationFailed) {
		return WrapExitError(ExitCommandError, "run scenario", runErr)
	}

	v := simulateView{Scenario: file.Name, Outcomes: make([]outcomeView, 0, len(outcomes))}
	if v.Scenario == "" {
		v.Scenario = path
	}
	for _, o := range outcomes {
		v.Outcomes = append(v.Outcomes, newOutcomeView(o))
	}
	if simOpts.snapshot {
		if v.Snapshot, err = world.Snapshot(ctx); err != nil {
			return WrapExitError(ExitCommandError, "snapshot", err)
		}
	}

	f := formatter{format: opts.Format, w: cmd.OutOrStdout()}
	if err := f.emit(v, v.writeText); err != nil {
		return err
	}
	if runErr != nil {
		return WrapExitError(ExitFailure, "simulate", runErr)
	}
	return nil
}

func newOutcomeView(o scenario.Outcome) outcomeView {
	v := outcomeView{Name: o.Name, Expect: o.Expect, Code: o.Code, OK: o.OK()}
	if o.Err != nil {
		v.Error = o.Err.Error()
	}
	if o.Receipt != nil {
		v.Receipt = o.Receipt.ID.String()
		v.Digest = o.Receipt.DigestHex()
		v.Legs = len(o.Receipt.Legs)
		v.Remainder = o.Receipt.Remainder.Dec()
	}
	return v
}

func (v simulateView) writeText(w io.Writer) {
	fmt.Fprintf(w, "scenario %s\n", v.Scenario)
	for _, o := range v.Outcomes {
		status := "ok  "
		if !o.OK {
			status = "FAIL"
		}
		switch {
		case o.Receipt != "":
			fmt.Fprintf(w, "%s %s: settled %d legs, remainder %s (receipt %s)\n", status, o.Name, o.Legs, o.Remainder, o.Receipt)
		default:
			fmt.Fprintf(w, "%s %s: %s (%s)\n", status, o.Name, o.Code, o.Error)
		}
	}
	if v.Snapshot != nil {
		data, err := yaml.Marshal(v.Snapshot)
		if err != nil {
			fmt.Fprintf(w, "snapshot: %v\n", err)
			return
		}
		fmt.Fprintln(w, "---")
		_, _ = w.Write(data)
	}
}
