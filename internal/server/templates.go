package server

import (
	"embed"
	"fmt"
	"html/template"

	"github.com/gin-gonic/gin/render"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names, one per template file next to the layout
const (
	pageSignIn         = "signin"
	pageSignUp         = "signup"
	pageForgotPassword = "forgot_password"
	pageDashboard      = "dashboard"
	pageProfile        = "profile"
	pageUpdateUser     = "update_user"
)

var pageNames = []string{pageSignIn, pageSignUp, pageForgotPassword, pageDashboard, pageProfile, pageUpdateUser}

// Template functions available in all pages
var templateFuncs = template.FuncMap{
	// field builds the arguments of the "field" partial
	"field": func(name, typ, placeholder, value string, errs map[string]string) map[string]string {
		return map[string]string{
			"Name":        name,
			"Type":        typ,
			"Placeholder": placeholder,
			"Value":       value,
			"Error":       errs[name],
		}
	},
	"deref": func(n *int) int {
		if n == nil {
			return 0
		}
		return *n
	},
}

// pageRender is a gin HTMLRender holding one template set per page, each
// parsed together with the shared layout
type pageRender struct {
	pages map[string]*template.Template
}

func newPageRender() (*pageRender, error) {
	r := &pageRender{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s page: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Instance implements render.HTMLRender
func (r *pageRender) Instance(name string, data any) render.Render {
	return render.HTML{
		Template: r.pages[name],
		Name:     "layout",
		Data:     data,
	}
}
