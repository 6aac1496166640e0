package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smartsim-dev/smartsim/internal/flows"
	"github.com/smartsim-dev/smartsim/internal/routes"
)

// NewProfileCmd creates the profile command
func NewProfileCmd(app *App) *cobra.Command {
	var form flows.ProfileForm

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("name") && !flags.Changed("email") && !flags.Changed("avatar-url") {
				return printProfile(cmd, app)
			}
			return runProfileUpdate(cmd, app, form)
		},
	}

	cmd.Flags().StringVar(&form.Name, "name", "", "New display name")
	cmd.Flags().StringVar(&form.Email, "email", "", "New e-mail")
	cmd.Flags().StringVar(&form.AvatarURL, "avatar-url", "", "New avatar URL")

	return withRoute(cmd, routes.PathProfile)
}

func printProfile(cmd *cobra.Command, app *App) error {
	user, ok := app.Manager.CurrentUser()
	if !ok {
		return fmt.Errorf("not authenticated. Please run 'smartsim login' first")
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "NAME\t%s\n", user.Name)
	fmt.Fprintf(w, "E-MAIL\t%s\n", user.Email)
	fmt.Fprintf(w, "AVATAR\t%s\n", orDash(user.AvatarURL))
	return w.Flush()
}

func runProfileUpdate(cmd *cobra.Command, app *App, form flows.ProfileForm) error {
	current, ok := app.Manager.CurrentUser()
	if !ok {
		return fmt.Errorf("not authenticated. Please run 'smartsim login' first")
	}

	// Unset flags keep the current values
	flags := cmd.Flags()
	if !flags.Changed("name") {
		form.Name = current.Name
	}
	if !flags.Changed("email") {
		form.Email = current.Email
	}
	if !flags.Changed("avatar-url") {
		form.AvatarURL = current.AvatarURL
	}

	user, err := app.Flows.UpdateProfile(cmd.Context(), form)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Profile updated")
	fmt.Fprintf(cmd.OutOrStdout(), "  User: %s (%s)\n", user.Name, user.Email)
	return nil
}

// NewProvisionCmd creates the provision command
func NewProvisionCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provision [customer-email] [sms-key]",
		Short: "Assign an SMS gateway key to a customer (admin only)",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvision(cmd, app, args)
		},
	}

	return withRoute(cmd, routes.PathUpdateUser)
}

func runProvision(cmd *cobra.Command, app *App, args []string) error {
	var email, key string
	if len(args) > 0 {
		email = args[0]
	}
	if len(args) > 1 {
		key = args[1]
	}

	email, err := app.ask(email, "Customer e-mail")
	if err != nil {
		return err
	}
	key, err = app.ask(key, "SMS key")
	if err != nil {
		return err
	}

	if err := app.Flows.ProvisionCustomer(cmd.Context(), flows.UpdateUserForm{Email: email, SMSKey: key}); err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Customer profile updated!")
	fmt.Fprintf(cmd.OutOrStdout(), "  %s can start sending messages.\n", email)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
