package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Template names
const (
	TemplateCommentAdd       = "comment_add.html"
	TemplateCommentMentioned = "comment_mentioned.html"
	TemplatePasswordReset    = "password_reset.html"
)

// Render executes the named mail template
func Render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}
