// Package content renders the per-recipient subject and body.
//
// A template file may start with YAML frontmatter (between "---" lines)
// carrying a subject. Files ending in .md are Markdown, rendered to HTML with
// goldmark and sanitized; anything else is treated as an HTML template. With
// no file configured a built-in HTML template is used.
package content

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"os"
	"path/filepath"
	"strings"
	texttemplate "text/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"
)

// DefaultSubject is used when neither configuration nor template names one.
const DefaultSubject = "A quick introduction"

const defaultBody = `<html><body>
<p>Dear {{.Name}},</p>

<p>I hope this note finds you well. I am reaching out to share a short overview of what we are building, and I have attached a document with more detail for context.</p>

<p>Would you be open to a brief conversation?</p>

<p>Best regards</p>
</body></html>`

var ErrInvalidFrontmatter = errors.New("invalid frontmatter")

// Data is what templates see: {{.Name}}, {{.Email}}, {{index .Fields "Company"}}.
type Data struct {
	Name   string
	Email  string
	Fields map[string]string
}

// Rendered is one recipient's message content.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

type frontmatter struct {
	Subject string `yaml:"subject"`
}

// Renderer holds parsed templates; safe for reuse across rows.
type Renderer struct {
	subject  *texttemplate.Template
	html     *htmltemplate.Template // HTML templates
	markdown *texttemplate.Template // Markdown templates, converted after execution
	md       goldmark.Markdown
	policy   *bluemonday.Policy
}

// Load parses the template at path (or the built-in one when path is empty).
// subjectOverride, when set, wins over the template's own subject.
func Load(path, subjectOverride string) (*Renderer, error) {
	src := []byte(defaultBody)
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", path, err)
		}
		src = b
	}
	return Parse(src, isMarkdown(path), subjectOverride)
}

// Parse builds a Renderer from template source.
func Parse(src []byte, markdown bool, subjectOverride string) (*Renderer, error) {
	meta, body, err := splitFrontmatter(src)
	if err != nil {
		return nil, err
	}

	subject := subjectOverride
	if subject == "" {
		subject = meta.Subject
	}
	if subject == "" {
		subject = DefaultSubject
	}

	r := &Renderer{}
	if r.subject, err = texttemplate.New("subject").Parse(subject); err != nil {
		return nil, fmt.Errorf("parse subject: %w", err)
	}
	if markdown {
		if r.markdown, err = texttemplate.New("body").Parse(body); err != nil {
			return nil, fmt.Errorf("parse body: %w", err)
		}
		r.md = goldmark.New()
		r.policy = bluemonday.UGCPolicy()
	} else if r.html, err = htmltemplate.New("body").Parse(body); err != nil {
		return nil, fmt.Errorf("parse body: %w", err)
	}
	return r, nil
}

// Render executes the templates for one recipient.
func (r *Renderer) Render(d Data) (Rendered, error) {
	var subj bytes.Buffer
	if err := r.subject.Execute(&subj, d); err != nil {
		return Rendered{}, fmt.Errorf("render subject: %w", err)
	}

	var html bytes.Buffer
	if r.markdown != nil {
		var md bytes.Buffer
		if err := r.markdown.Execute(&md, d); err != nil {
			return Rendered{}, fmt.Errorf("render body: %w", err)
		}
		if err := r.md.Convert(md.Bytes(), &html); err != nil {
			return Rendered{}, fmt.Errorf("convert markdown: %w", err)
		}
		sanitized := r.policy.Sanitize(html.String())
		html.Reset()
		html.WriteString(sanitized)
	} else if err := r.html.Execute(&html, d); err != nil {
		return Rendered{}, fmt.Errorf("render body: %w", err)
	}

	return Rendered{
		Subject: strings.TrimSpace(subj.String()),
		HTML:    html.String(),
		Text:    PlainText(html.String()),
	}, nil
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

func splitFrontmatter(src []byte) (frontmatter, string, error) {
	var meta frontmatter
	delim := []byte("---")
	if !bytes.HasPrefix(src, delim) {
		return meta, string(src), nil
	}
	rest := bytes.TrimLeft(bytes.TrimPrefix(src, delim), "\r\n")
	end := bytes.Index(rest, delim)
	if end == -1 {
		return meta, "", fmt.Errorf("%w: closing delimiter not found", ErrInvalidFrontmatter)
	}
	if err := yaml.Unmarshal(rest[:end], &meta); err != nil {
		return meta, "", fmt.Errorf("%w: %v", ErrInvalidFrontmatter, err)
	}
	body := rest[end+len(delim):]
	body = bytes.TrimPrefix(body, []byte("\r"))
	body = bytes.TrimPrefix(body, []byte("\n"))
	return meta, string(body), nil
}
