// Package view holds the server-rendered pages. Every page is addressed by
// its file name, e.g. "topic.html".
package view

import (
	"embed"
	"html/template"
	"strings"
	"time"

	"github.com/steemit/simpleforum/internal/forum"
)

//go:embed templates/*.html
var files embed.FS

// Funcs are the helpers available to every page
var Funcs = template.FuncMap{
	"topicPath": forum.TopicPath,
	"join":      strings.Join,
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	},
	"inc": func(n int) int { return n + 1 },
	"dec": func(n int) int { return n - 1 },
}

// Letters is the alphabet offered by the tag and badge filters
var Letters = strings.Split("ABCDEFGHIJKLMNOPQRSTUVWXYZ", "")

// Templates parses every page
func Templates() (*template.Template, error) {
	return template.New("").Funcs(Funcs).ParseFS(files, "templates/*.html")
}

// MustTemplates is Templates for program start-up
func MustTemplates() *template.Template {
	return template.Must(Templates())
}
