package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/smartsim-dev/smartsim/internal/app"
	"github.com/smartsim-dev/smartsim/internal/cli/prompt"
	"github.com/smartsim-dev/smartsim/internal/routes"
	"github.com/smartsim-dev/smartsim/internal/validation"
)

// RouteAnnotation names the page a command stands for. The root command
// runs the route gate for it before the command runs.
const RouteAnnotation = "route"

// App is what every command runs against
type App struct {
	*app.Runtime
	Prompter prompt.Prompter
}

// RouteDeniedError is a command refused by the route gate
type RouteDeniedError struct {
	Path     string
	Redirect string
	Admin    bool
}

func (e *RouteDeniedError) Error() string {
	switch {
	case e.Redirect == routes.PathDashboard:
		return "already signed in. Run 'smartsim logout' first"
	case e.Admin:
		return "admin access required"
	default:
		return "not authenticated. Please run 'smartsim login' first"
	}
}

// CheckRoute runs the route gate for the command's page, if it has one
func (a *App) CheckRoute(cmd *cobra.Command) error {
	path, ok := cmd.Annotations[RouteAnnotation]
	if !ok {
		return nil
	}

	snapshot := a.Manager.Snapshot()
	route, decision, err := a.Routes.Resolve(path, snapshot)
	if err != nil {
		return err
	}
	if decision.Allowed() {
		return nil
	}

	a.Logger.Debug().
		Str("command", cmd.Name()).
		Str("route", path).
		Str("redirect", decision.Redirect).
		Msg("Route gate refused command")

	return &RouteDeniedError{
		Path:     route.Path,
		Redirect: decision.Redirect,
		Admin:    route.Admin && snapshot.Authenticated(),
	}
}

// PrintError writes err to w, one line per field for validation errors
func PrintError(w io.Writer, err error) {
	var verrs *validation.Errors
	if errors.As(err, &verrs) {
		names := make([]string, 0, len(verrs.Fields))
		for name := range verrs.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "Error: %s\n", verrs.Fields[name])
		}
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// ask returns value, or prompts for it when empty
func (a *App) ask(value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	if a.Prompter == nil || !a.Prompter.Interactive() {
		return "", fmt.Errorf("%s is required in non-interactive mode", label)
	}
	return a.Prompter.Text(label, prompt.NotEmpty(label))
}

func withRoute(cmd *cobra.Command, path string) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[RouteAnnotation] = path
	return cmd
}
