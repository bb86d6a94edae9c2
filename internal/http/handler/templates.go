package handler

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	landingTemplate        = "landing.html"
	installSuccessTemplate = "install_success.html"
	installFailureTemplate = "install_failure.html"
)

// Templates parses the pages rendered by the handlers. Pass the result to
// gin's SetHTMLTemplate.
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}
