package notification

import (
	"bytes"
	_ "embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var templatesYAML []byte

type templateSource struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

type compiledTemplate struct {
	subject *texttemplate.Template
	body    *htmltemplate.Template
}

// Catalog holds the compiled email templates shipped with the binary.
type Catalog struct {
	templates map[string]compiledTemplate
}

// LoadCatalog parses and compiles the embedded template file.
func LoadCatalog() (*Catalog, error) {
	var sources map[string]templateSource
	if err := yaml.Unmarshal(templatesYAML, &sources); err != nil {
		return nil, fmt.Errorf("parse template catalog: %w", err)
	}

	catalog := &Catalog{templates: make(map[string]compiledTemplate, len(sources))}
	for name, src := range sources {
		if strings.TrimSpace(src.Subject) == "" || strings.TrimSpace(src.Body) == "" {
			return nil, fmt.Errorf("template %q: subject and body are required", name)
		}
		subject, err := texttemplate.New(name + ".subject").Parse(src.Subject)
		if err != nil {
			return nil, fmt.Errorf("template %q subject: %w", name, err)
		}
		body, err := htmltemplate.New(name + ".body").Parse(src.Body)
		if err != nil {
			return nil, fmt.Errorf("template %q body: %w", name, err)
		}
		catalog.templates[name] = compiledTemplate{subject: subject, body: body}
	}
	return catalog, nil
}

// Render produces the subject line and HTML body for a template.
func (c *Catalog) Render(name string, vars map[string]any) (string, string, error) {
	tpl, ok := c.templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown template %q", name)
	}

	var subject bytes.Buffer
	if err := tpl.subject.Execute(&subject, vars); err != nil {
		return "", "", fmt.Errorf("render %q subject: %w", name, err)
	}
	var body bytes.Buffer
	if err := tpl.body.Execute(&body, vars); err != nil {
		return "", "", fmt.Errorf("render %q body: %w", name, err)
	}
	return strings.TrimSpace(subject.String()), strings.TrimSpace(body.String()), nil
}
