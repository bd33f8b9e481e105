package plugins

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/kingrea/switchboard/internal/component"
)

// replyComponent answers declared commands with templated static text. It
// has no initializer, so the adapter activates it through a shim.
type replyComponent struct {
	id        string
	templates map[string]*template.Template
}

func newReplyComponent(def ComponentDefinition) (*replyComponent, error) {
	normalized := def.Normalized()
	c := &replyComponent{id: normalized.ID, templates: map[string]*template.Template{}}
	for token, text := range normalized.Replies {
		tmpl, err := template.New(token).Funcs(template.FuncMap{
			"join":  strings.Join,
			"upper": strings.ToUpper,
		}).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("plugin %s: reply %s: %w", normalized.ID, token, err)
		}
		c.templates[token] = tmpl
	}
	return c, nil
}

// Commands implements adapter.CommandProvider.
func (c *replyComponent) Commands() map[string]component.CommandHandler {
	out := make(map[string]component.CommandHandler, len(c.templates))
	for token, tmpl := range c.templates {
		out[token] = c.render(token, tmpl)
	}
	return out
}

func (c *replyComponent) render(token string, tmpl *template.Template) component.CommandHandler {
	return func(args []string) (string, error) {
		data := map[string]any{
			"ID":      c.id,
			"Command": token,
			"Args":    args,
			"Text":    strings.Join(args, " "),
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("plugin %s: render %s: %w", c.id, token, err)
		}
		return strings.TrimSpace(buf.String()), nil
	}
}
