package content

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var stripAll = bluemonday.StrictPolicy()

// PlainText derives the text/plain alternative from an HTML body. Block
// closers become newlines; every tag is stripped and entities decoded.
func PlainText(body string) string {
	for _, tag := range []string{"<br>", "<br/>", "<br />", "</p>", "</div>", "</tr>", "</li>", "</h1>", "</h2>", "</h3>", "</h4>", "</h5>", "</h6>"} {
		body = strings.ReplaceAll(body, tag, "\n")
		body = strings.ReplaceAll(body, strings.ToUpper(tag), "\n")
	}
	text := html.UnescapeString(stripAll.Sanitize(body))

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	text = strings.Join(lines, "\n")
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(text)
}
