// Package message renders the prefilled WhatsApp chat text for a landing page.
//
// Merchants write the text as a Liquid template, e.g.
//
//	Hi {{ contact_name | default: "there" }}, I'd like to order {{ product_name }}.
//
// Available variables: product_name, contact_name, slug, page_url.
package message

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"github.com/osteele/liquid"
)

// DefaultTemplate is used for new drafts.
const DefaultTemplate = `Hi {{ contact_name | default: "there" }}, I'm interested in {{ product_name }}.`

// Vars are the bindings available to a message template.
type Vars struct {
	ProductName string
	ContactName string
	Slug        string
	PageURL     string
}

func (v Vars) bindings() map[string]interface{} {
	return map[string]interface{}{
		"product_name": v.ProductName,
		"contact_name": v.ContactName,
		"slug":         v.Slug,
		"page_url":     v.PageURL,
	}
}

// maxCachedTemplates bounds the parsed-template cache. Past it, templates
// are parsed on every render.
const maxCachedTemplates = 1024

// Renderer parses and renders message templates, caching parsed templates
// by source text. It is safe for concurrent use.
type Renderer struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
	cached atomic.Int64
}

// NewRenderer creates a renderer with the message filters registered.
func NewRenderer() *Renderer {
	engine := liquid.NewEngine()

	// {{ contact_name | default: "there" }}
	engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		if s := fmt.Sprintf("%v", value); s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})

	// {{ product_name | upcase_first }}
	engine.RegisterFilter("upcase_first", func(s string) string {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError {
			return s
		}
		return string(unicode.ToUpper(r)) + s[size:]
	})

	return &Renderer{engine: engine}
}

var defaultRenderer = NewRenderer()

// Check reports a syntax error in tpl, if any. Checked templates are not
// cached; they come from unsaved edits.
func Check(tpl string) error {
	_, err := defaultRenderer.engine.ParseString(tpl)
	return err
}

// Render renders tpl with the default renderer.
func Render(tpl string, vars Vars) (string, error) {
	return defaultRenderer.Render(tpl, vars)
}

func (r *Renderer) parse(tpl string) (*liquid.Template, error) {
	if cached, ok := r.cache.Load(tpl); ok {
		return cached.(*liquid.Template), nil
	}
	parsed, err := r.engine.ParseString(tpl)
	if err != nil {
		return nil, err
	}
	if r.cached.Load() < maxCachedTemplates {
		if _, loaded := r.cache.LoadOrStore(tpl, parsed); !loaded {
			r.cached.Add(1)
		}
	}
	return parsed, nil
}

// Render renders tpl. An empty template renders to an empty string.
func (r *Renderer) Render(tpl string, vars Vars) (string, error) {
	if strings.TrimSpace(tpl) == "" {
		return "", nil
	}
	parsed, err := r.parse(tpl)
	if err != nil {
		return "", fmt.Errorf("parse message template: %w", err)
	}
	out, err := parsed.RenderString(vars.bindings())
	if err != nil {
		return "", fmt.Errorf("render message template: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// WhatsAppURL builds the wa.me click-to-chat link for phone with text
// prefilled. phone must already be digits only.
func WhatsAppURL(phone, text string) string {
	u := "https://wa.me/" + phone
	if text != "" {
		u += "?text=" + url.QueryEscape(text)
	}
	return u
}
