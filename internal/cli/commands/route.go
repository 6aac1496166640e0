package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smartsim-dev/smartsim/internal/routes"
)

// NewRouteCmd creates the route command
func NewRouteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "route [path]",
		Short: "Show where the current session may navigate",
		Long: `Show the route gate decision for a page.

Without a path, every page of the navigation surface is listed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot := app.Manager.Snapshot()

			if len(args) == 1 {
				_, decision, err := app.Routes.Resolve(args[0], snapshot)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), decision)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tPAGE\tACCESS\tDECISION")
			fmt.Fprintln(w, "────\t────\t──────\t────────")
			for _, r := range app.Routes.Routes() {
				_, decision, err := app.Routes.Resolve(r.Path, snapshot)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Path, r.Title, access(r), decision)
			}
			return w.Flush()
		},
	}
}

func access(r routes.Route) string {
	switch {
	case r.Admin:
		return "admin"
	case r.Private:
		return "private"
	default:
		return "public"
	}
}
