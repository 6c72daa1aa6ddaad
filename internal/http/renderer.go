package httpx

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

// TemplateRenderer renders the console's HTML pages.
type TemplateRenderer struct {
	fsys   fs.FS
	reload bool
	logger *slog.Logger

	mu sync.RWMutex
	t  *template.Template
}

// TemplateRendererConfig holds configuration for creating a TemplateRenderer.
type TemplateRendererConfig struct {
	TemplateFS fs.FS // Filesystem containing *.tmpl and partials/*.tmpl (required)
	DevMode    bool  // Re-parse templates on every render
	Logger     *slog.Logger
}

// NewTemplateRenderer parses all templates up front so syntax errors fail startup.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	if cfg.TemplateFS == nil {
		return nil, errors.New("TemplateFS is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &TemplateRenderer{fsys: cfg.TemplateFS, reload: cfg.DevMode, logger: logger}
	t, err := r.parse()
	if err != nil {
		logger.Error("template parsing failed", slog.Any("error", err), slog.String("phase", "initialization"))
		return nil, err
	}
	r.t = t
	return r, nil
}

func (r *TemplateRenderer) parse() (*template.Template, error) {
	return template.New("root").Funcs(template.FuncMap{
		"title": func(s string) string {
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + s[1:]
		},
	}).ParseFS(r.fsys, "*.tmpl", "partials/*.tmpl")
}

func (r *TemplateRenderer) templates() (*template.Template, error) {
	if r.reload {
		t, err := r.parse()
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.t = t
		r.mu.Unlock()
		return t, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.t, nil
}

// Render executes the named template into a buffer and writes it with status.
// Nothing is written when execution fails.
func (r *TemplateRenderer) Render(w http.ResponseWriter, status int, name string, data any) error {
	t, err := r.templates()
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	var buf bytes.Buffer
	if execErr := t.ExecuteTemplate(&buf, name, data); execErr != nil {
		r.logger.Error("template render failed", slog.String("template", name), slog.Any("error", execErr))
		return fmt.Errorf("render %s: %w", name, execErr)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

// page renders name with the request's session and CSRF token filled in, falling back
// to a plain error when rendering fails.
func (r *TemplateRenderer) page(w http.ResponseWriter, req *http.Request, status int, name string, data PageData) {
	data.Session = SnapshotFromContext(req.Context())
	data.CSRFToken = GetCSRFToken(req)
	if r == nil {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if err := r.Render(w, status, name, data); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
