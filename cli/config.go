package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bitfsorg/settle-go/account"
	"github.com/bitfsorg/settle-go/config"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create and inspect the settlectl configuration",
	}
	cmd.AddCommand(newConfigInitCommand(opts))
	cmd.AddCommand(newConfigShowCommand(opts))
	return cmd
}

type configInitOptions struct {
	admin      string
	backend    string
	network    string
	archiveDir string
	cacheSize  int
	force      bool
	generate   bool
}

func newConfigInitCommand(opts *RootOptions) *cobra.Command {
	initOpts := &configInitOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  checkArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd, opts, initOpts)
		},
	}

	defaults := config.DefaultConfig()
	cmd.Flags().StringVar(&initOpts.admin, "admin", "", "administrator account (address or 0x hex)")
	cmd.Flags().StringVar(&initOpts.backend, "backend", defaults.Backend, "rule store backend (memory|bolt|pebble)")
	cmd.Flags().StringVar(&initOpts.network, "network", defaults.Network, "address network (mainnet|testnet)")
	cmd.Flags().StringVar(&initOpts.archiveDir, "archive", "", "receipt and rule-change archive directory")
	cmd.Flags().IntVar(&initOpts.cacheSize, "cache-size", defaults.CacheSize, "rule cache entries (0 disables)")
	cmd.Flags().BoolVar(&initOpts.force, "force", false, "overwrite an existing configuration file")
	cmd.Flags().BoolVar(&initOpts.generate, "generate-admin", false, "derive a new administrator from a fresh mnemonic")

	return cmd
}

func runConfigInit(cmd *cobra.Command, opts *RootOptions, initOpts *configInitOptions) error {
	path := opts.configPath()
	if _, err := os.Stat(path); err == nil && !initOpts.force {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s already exists (use --force to overwrite)", path))
	}

	if initOpts.generate && initOpts.admin != "" {
		return NewExitError(ExitCommandError, "--admin and --generate-admin are mutually exclusive")
	}

	cfg := config.DefaultConfig()
	cfg.DataDir = opts.dataDir()
	cfg.Admin = initOpts.admin
	cfg.Backend = initOpts.backend
	cfg.Network = initOpts.network
	cfg.ArchiveDir = initOpts.archiveDir
	cfg.CacheSize = initOpts.cacheSize
	if err := config.ValidateConfig(cfg); err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	result := map[string]string{"path": path}
	if initOpts.generate {
		mnemonic, err := account.GenerateMnemonic(account.Mnemonic12Words)
		if err != nil {
			return WrapExitError(ExitCommandError, "generate admin", err)
		}
		key, err := account.FromMnemonic(mnemonic, "", 0, cfg.Mainnet())
		if err != nil {
			return WrapExitError(ExitCommandError, "generate admin", err)
		}
		if cfg.Admin, err = key.ID.Address(cfg.Mainnet()); err != nil {
			return WrapExitError(ExitCommandError, "generate admin", err)
		}
		result["admin"] = cfg.Admin
		result["mnemonic"] = mnemonic
		result["derivation"] = key.Path
	}
	if err := config.SaveConfig(path, cfg); err != nil {
		return WrapExitError(ExitCommandError, "save config", err)
	}

	f := formatter{format: opts.Format, w: cmd.OutOrStdout()}
	return f.emit(result, func(w io.Writer) {
		fmt.Fprintf(w, "wrote %s\n", path)
		if m := result["mnemonic"]; m != "" {
			fmt.Fprintf(w, "admin %s (%s)\n", cfg.Admin, result["derivation"])
			fmt.Fprintf(w, "mnemonic: %s\n", m)
		}
		if cfg.Admin == "" {
			fmt.Fprintln(w, "admin not set: rule set requires --admin or SETTLE_ADMIN")
		}
	})
}

func newConfigShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  checkArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return formatter{format: "json", w: cmd.OutOrStdout()}.emit(cfg, nil)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return WrapExitError(ExitCommandError, "encode config", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
