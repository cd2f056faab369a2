package templates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltmpl "html/template"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	texttmpl "text/template"
)

// Config selects where templates come from. With Dir set, <id>.tmpl files
// are read from disk instead of the embedded set; Reload reparses them on
// every render.
type Config struct {
	Dir    string
	Reload bool
}

// Rendered is one email ready to hand to a sender.
type Rendered struct {
	Subject   string
	EmailHTML string
	EmailText string
}

// Handle ties a template id to the data type it is rendered with.
type Handle[T any] struct {
	id string
}

// Expect declares the handle for template id.
func Expect[T any](id string) Handle[T] { return Handle[T]{id: id} }

func (h Handle[T]) ID() string { return h.id }

// Engine renders the subject, email_text and email_html blocks of a template.
// Parsed templates are cached unless Reload is on.
type Engine struct {
	cfg   Config
	log   *slog.Logger
	fs    fs.FS
	mu    sync.RWMutex
	cache map[string]*compiled
}

type compiled struct {
	text *texttmpl.Template
	html *htmltmpl.Template
}

func NewEngine(cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:   cfg,
		log:   log,
		fs:    EmbeddedFS,
		cache: make(map[string]*compiled),
	}
}

// Render renders the template behind h with data.
func Render[T any](ctx context.Context, e *Engine, h Handle[T], data T) (Rendered, error) {
	return e.RenderAny(ctx, h.ID(), data)
}

// RenderAny renders template id. The subject block is mandatory; a template
// may omit either body.
func (e *Engine) RenderAny(ctx context.Context, id string, data any) (Rendered, error) {
	if err := ctx.Err(); err != nil {
		return Rendered{}, err
	}
	c, err := e.compiled(id)
	if err != nil {
		return Rendered{}, err
	}
	if c.text.Lookup("subject") == nil {
		return Rendered{}, fmt.Errorf("template %s: missing subject block", id)
	}

	var out Rendered
	subject, err := execute(c.text, "subject", data)
	if err != nil {
		return Rendered{}, fmt.Errorf("template %s: %w", id, err)
	}
	out.Subject = strings.TrimSpace(subject)

	if c.text.Lookup("email_text") != nil {
		if out.EmailText, err = execute(c.text, "email_text", data); err != nil {
			return Rendered{}, fmt.Errorf("template %s: %w", id, err)
		}
	}
	if c.html.Lookup("email_html") != nil {
		if out.EmailHTML, err = execute(c.html, "email_html", data); err != nil {
			return Rendered{}, fmt.Errorf("template %s: %w", id, err)
		}
	}
	if out.EmailText == "" && out.EmailHTML == "" {
		return Rendered{}, errors.New("template " + id + ": no email body")
	}
	return out, nil
}

func (e *Engine) compiled(id string) (*compiled, error) {
	if e.cfg.Dir != "" && e.cfg.Reload {
		return e.parse(id)
	}

	e.mu.RLock()
	c, ok := e.cache[id]
	e.mu.RUnlock()
	if ok {
		return c, nil
	}

	c, err := e.parse(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.cache[id] = c
	e.mu.Unlock()
	e.log.Debug("email template parsed", "template", id)
	return c, nil
}

func (e *Engine) parse(id string) (*compiled, error) {
	var (
		b   []byte
		err error
	)
	if e.cfg.Dir != "" {
		b, err = os.ReadFile(filepath.Join(e.cfg.Dir, id+".tmpl"))
	} else {
		b, err = fs.ReadFile(e.fs, "files/"+id+".tmpl")
	}
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", id, err)
	}

	text, err := texttmpl.New(id).Option("missingkey=error").Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", id, err)
	}
	html, err := htmltmpl.New(id).Option("missingkey=error").Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", id, err)
	}
	return &compiled{text: text, html: html}, nil
}

type executor interface {
	ExecuteTemplate(w io.Writer, name string, data any) error
}

func execute(t executor, block string, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		return "", fmt.Errorf("render %s: %w", block, err)
	}
	return buf.String(), nil
}
