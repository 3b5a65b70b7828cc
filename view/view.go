// Package view renders the HTML templates embedded in the binary.
// Page templates define a "content" block wrapped by layout.html.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/i18n"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/shopspring/decimal"
)

//go:embed templates
var embedded embed.FS

var (
	templates fs.FS = mustSub(embedded, "templates")

	tplCache = struct {
		sync.RWMutex
		m map[string]*template.Template
	}{m: map[string]*template.Template{}}

	langResolver = func(r *http.Request) string { return i18n.LangFromContext(r.Context()) }
	// permission resolvers are set by the host app so templates can check authorization
	canResolver     func(r *http.Request, resource, action string) bool
	isAdminResolver func(*http.Request) bool
	userResolver    func(*http.Request) string
)

func mustSub(f fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(f, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// SetLangResolver overrides how the request language is chosen.
func SetLangResolver(f func(*http.Request) string) {
	if f != nil {
		langResolver = f
	}
}

// SetCanResolver sets the callback behind the "can" template function.
func SetCanResolver(f func(*http.Request, string, string) bool) {
	canResolver = f
}

// SetIsAdminResolver sets the callback behind the "isAdmin" template function.
func SetIsAdminResolver(f func(*http.Request) bool) {
	isAdminResolver = f
}

// SetUserResolver sets the callback returning the signed-in user's display name.
func SetUserResolver(f func(*http.Request) string) {
	userResolver = f
}

// ResetForTests drops parsed templates and resolvers.
func ResetForTests() {
	tplCache.Lock()
	tplCache.m = map[string]*template.Template{}
	tplCache.Unlock()
	canResolver, isAdminResolver, userResolver = nil, nil, nil
}

// Funcs returns the request-bound template functions.
func Funcs(r *http.Request) template.FuncMap {
	lang := i18n.DefaultLang
	if r != nil {
		lang = langResolver(r)
	}
	m := staticFuncs()
	m["t"] = func(code string) string { return i18n.T(lang, code) }
	m["lang"] = func() string { return lang }
	m["can"] = func(resource, action string) bool {
		if canResolver == nil || r == nil {
			return false
		}
		return canResolver(r, resource, action)
	}
	m["isAdmin"] = func() bool {
		if isAdminResolver == nil || r == nil {
			return false
		}
		return isAdminResolver(r)
	}
	m["statusLabel"] = func(s models.LeadStatus) string { return i18n.T(lang, "status."+string(s)) }
	m["typeLabel"] = func(t models.InteractionType) string { return i18n.T(lang, "type."+string(t)) }
	m["fieldError"] = func(errs map[string]string, field string) string {
		code, ok := errs[field]
		if !ok {
			return ""
		}
		return i18n.T(lang, code)
	}
	return m
}

func staticFuncs() template.FuncMap {
	return template.FuncMap{
		"statuses":         models.LeadStatuses,
		"interactionTypes": models.InteractionTypes,
		"money": func(d decimal.Decimal) string {
			return d.StringFixed(2)
		},
		"percent": func(f float64) string { return fmt.Sprintf("%.2f", f) },
		"date": func(t any) string {
			switch v := t.(type) {
			case time.Time:
				return v.Format("2006-01-02")
			case *time.Time:
				if v != nil {
					return v.Format("2006-01-02")
				}
			}
			return ""
		},
		"datetime":      func(t time.Time) string { return t.Format("02/01/2006 15:04") },
		"datetimeLocal": func(t time.Time) string { return t.Format("2006-01-02T15:04") },
		"overdue":       func(l models.Lead) bool { return l.IsOverdue(time.Now()) },
		"year":          func() int { return time.Now().Year() },
		"deref": func(p *uint) uint {
			if p == nil {
				return 0
			}
			return *p
		},
		"add": func(a, b int) int { return a + b },
		// dict creates a map from key-value pairs for passing to sub-templates.
		// Usage: {{ template "partial" (dict "Key1" val1 "Key2" val2) }}
		"dict": func(values ...any) map[string]any {
			if len(values)%2 != 0 {
				return nil
			}
			m := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					continue
				}
				m[key] = values[i+1]
			}
			return m
		},
	}
}

// parse builds the template set for one page: layout, partials and the page.
// Request-bound functions are rebound on a clone at execution time.
func parse(name string) (*template.Template, error) {
	tplCache.RLock()
	t, ok := tplCache.m[name]
	tplCache.RUnlock()
	if ok {
		return t, nil
	}

	t, err := template.New("layout.html").Funcs(Funcs(nil)).ParseFS(templates, "layout.html", "partials/*.html", name)
	if err != nil {
		return nil, fmt.Errorf("view: parse %s: %w", name, err)
	}
	tplCache.Lock()
	tplCache.m[name] = t
	tplCache.Unlock()
	return t, nil
}

// Render executes the page template name with status 200.
func Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	return RenderStatus(w, r, http.StatusOK, name, data)
}

// RenderStatus executes the page template name. Common values (flash message,
// signed-in state, current user, language) are injected unless data sets them.
func RenderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) error {
	base, err := parse(name)
	if err != nil {
		return err
	}
	t, err := base.Clone()
	if err != nil {
		return err
	}
	t.Funcs(Funcs(r))

	if data == nil {
		data = map[string]any{}
	}
	if _, exists := data["IsLoggedIn"]; !exists {
		_, loggedIn := auth.UserIDFromContext(r.Context())
		data["IsLoggedIn"] = loggedIn
	}
	if _, exists := data["CurrentUser"]; !exists && userResolver != nil {
		data["CurrentUser"] = userResolver(r)
	}
	if _, exists := data["Flash"]; !exists {
		if f, ok := auth.PopFlash(w, r); ok {
			data["Flash"] = f
		}
	}
	if _, exists := data["Errors"]; !exists {
		data["Errors"] = map[string]string{}
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return fmt.Errorf("view: execute %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

// Must renders and falls back to a plain 500 when the template fails.
func Must(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	if err := RenderStatus(w, r, status, name, data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
