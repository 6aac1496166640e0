package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartsim-dev/smartsim/internal/flows"
	"github.com/smartsim-dev/smartsim/internal/routes"
	"github.com/smartsim-dev/smartsim/internal/validation"
)

// NewSendCmd creates the send command
func NewSendCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send [phone] [message]",
		Short: "Send an SMS",
		Long: `Send an SMS with your account's gateway key.

Missing arguments are prompted for when running in a terminal.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, app, args)
		},
	}

	return withRoute(cmd, routes.PathDashboard)
}

func runSend(cmd *cobra.Command, app *App, args []string) error {
	var phone, message string
	if len(args) > 0 {
		phone = args[0]
	}
	if len(args) > 1 {
		message = args[1]
	}

	phone, err := app.ask(phone, "Phone number")
	if err != nil {
		return err
	}
	message, err = app.ask(message, "Message")
	if err != nil {
		return err
	}

	report, err := app.Flows.SendSMS(cmd.Context(), flows.SendForm{Phone: phone, Message: message})
	var verrs *validation.Errors
	if errors.As(err, &verrs) {
		return err
	}

	if report.Outcome != flows.OutcomeSent {
		app.Logger.Debug().Err(err).Msg("Send failed")
		return errors.New(report.Outcome.Message())
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", report.Outcome.Message())
	if report.MessageID != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "  ID: %s\n", report.MessageID)
	}
	return nil
}

// NewBalanceCmd creates the balance command
func NewBalanceCmd(app *App) *cobra.Command {
	var watch string

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the remaining SMS credits",
		Example: `  smartsim balance
  smartsim balance --watch "@every 30s"
  smartsim balance --watch "*/5 * * * *"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch != "" {
				return runBalanceWatch(cmd, app, watch)
			}
			return runBalance(cmd, app)
		},
	}

	cmd.Flags().StringVar(&watch, "watch", "", "Refresh on a cron schedule until interrupted")

	return withRoute(cmd, routes.PathDashboard)
}

func runBalance(cmd *cobra.Command, app *App) error {
	credits, err := app.Flows.FetchBalance(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to fetch balance: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Credits: %d\n", credits)
	return nil
}

func runBalanceWatch(cmd *cobra.Command, app *App, spec string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	watcher, err := flows.NewBalanceWatcher(app.Flows.FetchBalance, spec, app.Logger, func(u flows.BalanceUpdate) {
		stamp := u.At.Local().Format("15:04:05")
		if u.Err != nil {
			fmt.Fprintf(out, "[%s] failed to fetch balance: %v\n", stamp, u.Err)
			return
		}
		fmt.Fprintf(out, "[%s] Credits: %d\n", stamp, u.Credits)
	})
	if err != nil {
		return err
	}

	watcher.Start(ctx)
	<-ctx.Done()
	watcher.Stop()
	return nil
}
