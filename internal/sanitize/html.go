package sanitize

import (
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// lineBreakPolicy admits no markup other than <br>.
var lineBreakPolicy = bluemonday.NewPolicy().AllowElements("br")

// HeaderValue reduces user input to a single plain-text line for use in mail
// headers such as Subject. Control characters, CR and LF included, collapse
// into single spaces. Everything else, angle brackets too, is kept literally.
func HeaderValue(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, input)
	return strings.Join(strings.Fields(cleaned), " ")
}

// MultilineHTML renders plain text as an HTML fragment: markup in input is
// escaped and each line break becomes <br>.
func MultilineHTML(input string) template.HTML {
	normalized := strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(input)
	escaped := strings.ReplaceAll(html.EscapeString(normalized), "\n", "<br>\n")
	return template.HTML(lineBreakPolicy.Sanitize(escaped))
}
