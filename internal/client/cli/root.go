package cli

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/vaxtrace/vaxsync/internal/client/config"
	"github.com/vaxtrace/vaxsync/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath  string
	DataPath    string
	ControlAddr string
	Format      string // "json" | "text"
	Verbose     bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command. The App is created once flags are
// parsed and shared by every subcommand.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	app := &App{}

	cmd := &cobra.Command{
		Use:           "vaxsync",
		Short:         "vaxsync - offline-first vaccination records",
		Long:          "Work with the device's local vaccination records and the background sync agent.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			level := "warn"
			if opts.Verbose {
				level = "debug"
			}
			app.init(cfg, opts.Format, cmd.OutOrStdout(), logging.New("text", level, cmd.ErrOrStderr()))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "agent config file (JSON or YAML)")
	cmd.PersistentFlags().StringVar(&opts.DataPath, "data", "", "local store file (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.ControlAddr, "control", "", "agent control address (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(newStatusCommand(app))
	cmd.AddCommand(newSyncCommand(app))
	cmd.AddCommand(newClearCacheCommand(app))
	cmd.AddCommand(newSkipWaitingCommand(app))
	cmd.AddCommand(newQueueCommand(app))
	cmd.AddCommand(newRecordCommand(app))
	cmd.AddCommand(newHistoryCommand(app))
	cmd.AddCommand(newShareCommand(app))
	cmd.AddCommand(newSessionCommand(app))
	cmd.AddCommand(newLogoutCommand(app))

	return cmd
}

func loadConfig(cmd *cobra.Command, opts *RootOptions) (*config.Config, error) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	if opts.ConfigPath != "" {
		if err := config.LoadFile(cfg, opts.ConfigPath); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("data") {
		cfg.DataPath = opts.DataPath
	}
	if cmd.Flags().Changed("control") {
		cfg.ControlAddr = opts.ControlAddr
	}
	return cfg, nil
}

// Execute runs the root command with os.Args and returns the process exit
// code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
