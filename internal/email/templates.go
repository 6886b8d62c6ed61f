package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

// Templates holds the paired text and HTML bodies for each message kind.
type Templates struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

func LoadTemplates() (*Templates, error) {
	text, err := texttemplate.ParseFS(templateFiles, "templates/*.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text templates: %w", err)
	}
	html, err := htmltemplate.ParseFS(templateFiles, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse html templates: %w", err)
	}
	return &Templates{text: text, html: html}, nil
}

// Render executes "<name>.txt.tmpl" and "<name>.html.tmpl" with data.
func (t *Templates) Render(name string, data any) (text string, html string, err error) {
	var textBuf, htmlBuf bytes.Buffer
	if err := t.text.ExecuteTemplate(&textBuf, name+".txt.tmpl", data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	if err := t.html.ExecuteTemplate(&htmlBuf, name+".html.tmpl", data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return textBuf.String(), htmlBuf.String(), nil
}
