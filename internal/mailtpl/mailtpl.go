// Package mailtpl renders the HTML part of outgoing email with Liquid.
package mailtpl

import (
	"fmt"
	"html"
	"strings"

	"github.com/osteele/liquid"
)

// DefaultLayout escapes user content before turning newlines into <br>, so
// markup typed into the form is shown, never interpreted.
const DefaultLayout = `<p>{{ content | escape | newline_to_br }}</p>`

type Renderer struct {
	tpl *liquid.Template
}

func newEngine() *liquid.Engine {
	engine := liquid.NewEngine()
	engine.RegisterFilter("escape", func(s string) string {
		return html.EscapeString(s)
	})
	engine.RegisterFilter("newline_to_br", func(s string) string {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		return strings.ReplaceAll(s, "\n", "<br>")
	})
	return engine
}

// New parses layout; an empty layout selects DefaultLayout.
func New(layout string) (*Renderer, error) {
	if strings.TrimSpace(layout) == "" {
		layout = DefaultLayout
	}
	tpl, err := newEngine().ParseString(layout)
	if err != nil {
		return nil, fmt.Errorf("parse email layout: %w", err)
	}
	return &Renderer{tpl: tpl}, nil
}

func Default() *Renderer {
	r, err := New(DefaultLayout)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Renderer) Render(content string) (string, error) {
	out, err := r.tpl.RenderString(liquid.Bindings{"content": content})
	if err != nil {
		return "", fmt.Errorf("render email layout: %w", err)
	}
	return out, nil
}
