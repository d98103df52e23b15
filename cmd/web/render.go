package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"finitefield.org/hanko-storefront/internal/commerce"
	"finitefield.org/hanko-storefront/internal/format"
	"finitefield.org/hanko-storefront/internal/observability"
	"finitefield.org/hanko-storefront/internal/screens"
)

// renderer owns one template set per page: the layout and partials plus that page's file.
// In dev mode templates are reparsed on each request.
type renderer struct {
	dir      string
	dev      bool
	currency string

	mu    sync.RWMutex
	pages map[string]*template.Template
}

func newRenderer(dir string, dev bool, currency string) (*renderer, error) {
	rd := &renderer{dir: dir, dev: dev, currency: currency}
	pages, err := rd.parse()
	if err != nil {
		return nil, err
	}
	rd.pages = pages
	return rd, nil
}

func (rd *renderer) funcs() template.FuncMap {
	return template.FuncMap{
		"money": func(m commerce.Money) string { return format.Currency(m, rd.currency) },
		"date":  format.Date,
		"year":  func() int { return time.Now().Year() },
		"addToCart": func(id commerce.ID) string {
			return screens.AddToCartURL(id, 1)
		},
	}
}

func (rd *renderer) parse() (map[string]*template.Template, error) {
	shared, err := rd.collect("layouts", "partials")
	if err != nil {
		return nil, err
	}
	pageFiles, err := rd.collect("pages")
	if err != nil {
		return nil, err
	}
	if len(pageFiles) == 0 {
		return nil, fmt.Errorf("no templates found under %s", filepath.Join(rd.dir, "pages"))
	}
	root, err := template.New("_root").Funcs(rd.funcs()).ParseFiles(shared...)
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, file := range pageFiles {
		t, err := template.Must(root.Clone()).ParseFiles(file)
		if err != nil {
			return nil, err
		}
		pages[strings.TrimSuffix(filepath.Base(file), ".tmpl")] = t
	}
	return pages, nil
}

// collect walks the named subdirectories for .tmpl files. ParseGlob doesn't support **.
func (rd *renderer) collect(subdirs ...string) ([]string, error) {
	var files []string
	for _, sub := range subdirs {
		err := filepath.WalkDir(filepath.Join(rd.dir, sub), func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(d.Name(), ".tmpl") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func (rd *renderer) lookup(page string) (*template.Template, error) {
	if rd.dev {
		pages, err := rd.parse()
		if err != nil {
			return nil, fmt.Errorf("template parse error: %w", err)
		}
		rd.mu.Lock()
		rd.pages = pages
		rd.mu.Unlock()
	}
	rd.mu.RLock()
	t := rd.pages[page]
	rd.mu.RUnlock()
	if t == nil {
		return nil, fmt.Errorf("template %q not found", page)
	}
	return t, nil
}

// page executes the base layout of page.
func (rd *renderer) page(w http.ResponseWriter, r *http.Request, status int, page string, data PageData) {
	rd.execute(w, r, status, page, "base", data)
}

// fragment executes a named block defined by page.
func (rd *renderer) fragment(w http.ResponseWriter, r *http.Request, status int, page, name string, data any) {
	rd.execute(w, r, status, page, name, data)
}

func (rd *renderer) execute(w http.ResponseWriter, r *http.Request, status int, page, name string, data any) {
	t, err := rd.lookup(page)
	if err != nil {
		observability.FromContext(r.Context()).Error("template lookup failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	// Render into a buffer so a failing template never leaves a half-written 200.
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		observability.FromContext(r.Context()).Error("template exec failed", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
