package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/smartsim-dev/smartsim/internal/flows"
	"github.com/smartsim-dev/smartsim/internal/routes"
)

// NewLoginCmd creates the login command
func NewLoginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to SmartSim",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, app, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set SMARTSIM_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set SMARTSIM_PASSWORD, will prompt if not provided)")

	return withRoute(cmd, routes.PathSignIn)
}

func runLogin(cmd *cobra.Command, app *App, email, password string) error {
	out := cmd.OutOrStdout()

	// Check for environment variables (useful for CI/CD)
	if email == "" {
		email = os.Getenv("SMARTSIM_EMAIL")
	}
	if password == "" {
		password = os.Getenv("SMARTSIM_PASSWORD")
	}

	email, err := app.ask(email, "E-mail")
	if err != nil {
		return err
	}

	// Prompt for password if not provided via flag or env var
	if password == "" {
		if app.Prompter == nil || !app.Prompter.Interactive() {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or SMARTSIM_PASSWORD env var)")
		}
		password, err = app.Prompter.Password("Password")
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "Signing in to %s...\n", app.API.BaseURL())

	if err := app.Flows.SignIn(cmd.Context(), flows.SignInForm{Email: email, Password: password}); err != nil {
		return err
	}

	user, _ := app.Manager.CurrentUser()
	fmt.Fprintln(out, "✓ Login successful!")
	fmt.Fprintf(out, "  User: %s (%s)\n", user.Name, user.Email)
	if user.IsAdmin {
		fmt.Fprintln(out, "  Role: Admin")
	}

	return nil
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Flows.SignOut(cmd.Context()); err != nil {
				return fmt.Errorf("failed to sign out: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Signed out")
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			user, ok := app.Manager.CurrentUser()
			if !ok {
				fmt.Fprintln(out, "Not signed in. Run 'smartsim login' to authenticate.")
				return nil
			}

			fmt.Fprintf(out, "User:  %s (%s)\n", user.Name, user.Email)
			fmt.Fprintf(out, "ID:    %s\n", user.ID)
			if user.IsAdmin {
				fmt.Fprintln(out, "Role:  Admin")
			} else {
				fmt.Fprintln(out, "Role:  Customer")
			}
			if user.SMSKey == "" {
				fmt.Fprintln(out, "SMS:   no key assigned")
			} else {
				fmt.Fprintln(out, "SMS:   key assigned")
			}
			if exp, ok := app.Manager.ExpiresAt(); ok {
				fmt.Fprintf(out, "Token: expires %s\n", exp.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}
