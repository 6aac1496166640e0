package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smartsim-dev/smartsim/internal/app"
	"github.com/smartsim-dev/smartsim/internal/cli/commands"
	"github.com/smartsim-dev/smartsim/internal/cli/prompt"
	"github.com/smartsim-dev/smartsim/internal/config"
	"github.com/smartsim-dev/smartsim/internal/logger"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the command tree over a, which must be fully wired
func NewRootCmd(a *commands.App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "smartsim",
		Short: "SmartSim - send SMS from the command line",
		Long: `SmartSim CLI - sign in, send SMS and check your credits.

Administrators can also assign SMS gateway keys to customers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.CheckRoute(cmd)
		},
	}

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "smartsim version %s\n", version)
		},
	})

	// Add all subcommands
	rootCmd.AddCommand(commands.NewLoginCmd(a))
	rootCmd.AddCommand(commands.NewLogoutCmd(a))
	rootCmd.AddCommand(commands.NewWhoamiCmd(a))
	rootCmd.AddCommand(commands.NewSendCmd(a))
	rootCmd.AddCommand(commands.NewBalanceCmd(a))
	rootCmd.AddCommand(commands.NewProfileCmd(a))
	rootCmd.AddCommand(commands.NewProvisionCmd(a))
	rootCmd.AddCommand(commands.NewRouteCmd(a))

	return rootCmd
}

// Execute loads configuration, wires the runtime and runs the root command
func Execute() error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}

	// stdout is reserved for command output
	logger.InitWithWriter(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.New(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close storage")
		}
	}()

	rootCmd := NewRootCmd(&commands.App{
		Runtime:  rt,
		Prompter: prompt.NewTerminal(os.Stderr),
	})

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		commands.PrintError(os.Stderr, err)
		return err
	}
	return nil
}
