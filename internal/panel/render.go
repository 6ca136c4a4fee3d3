package panel

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"overseerr-about/internal/status"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageTmpl = template.Must(template.New("about.html").Funcs(template.FuncMap{
	"badgeClass": badgeClass,
	"isLoading":  func(p status.Phase) bool { return p == status.Loading },
	"isFailed":   func(p status.Phase) bool { return p == status.Failed },
}).ParseFS(templatesFS, "templates/about.html"))

// Render writes the HTML page for v.
func Render(w io.Writer, v View) error {
	if err := pageTmpl.Execute(w, v); err != nil {
		return fmt.Errorf("render about page: %w", err)
	}
	return nil
}

func badgeClass(v BadgeVariant) string {
	switch v {
	case BadgeWarning:
		return "badge badge-warning"
	case BadgeSuccess:
		return "badge badge-success"
	default:
		return "badge"
	}
}
