// Package handlers serves the session-based web UI. Handlers decode forms,
// call the services with the request's actor and render view templates.
package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/i18n"
	"github.com/diewo77/go-crm/internal/policy"
	"github.com/diewo77/go-crm/internal/services"
	"github.com/diewo77/go-crm/view"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	dateLayout          = "2006-01-02"
	datetimeLocalLayout = "2006-01-02T15:04"
)

func actorOf(r *http.Request) *policy.Actor {
	a, _ := policy.ActorFromContext(r.Context())
	return a
}

func actorID(r *http.Request) uint {
	if a := actorOf(r); a != nil {
		return a.UserID
	}
	return 0
}

// idParam reads the {id} route parameter. Zero means malformed.
func idParam(r *http.Request) uint {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

func pageParam(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("page"))
	return n
}

func uintValue(s string) uint {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}

// pager holds the navigation links of a paginated list.
type pager struct {
	Pages   int
	Number  int
	PrevURL string
	NextURL string
}

func newPager[T any](p services.Page[T], path string, params url.Values) pager {
	link := func(n int) string {
		q := url.Values{}
		for k, v := range params {
			if len(v) > 0 && v[0] != "" {
				q.Set(k, v[0])
			}
		}
		q.Set("page", strconv.Itoa(n))
		return path + "?" + q.Encode()
	}
	pg := pager{Pages: p.Pages(), Number: p.Number}
	if p.HasPrev() {
		pg.PrevURL = link(p.Prev())
	}
	if p.HasNext() {
		pg.NextURL = link(p.Next())
	}
	return pg
}

func flash(w http.ResponseWriter, r *http.Request, kind, code string) {
	auth.SetFlash(w, kind, i18n.T(i18n.LangFromContext(r.Context()), code))
}

// localPath reports whether p is a path on this site. Browsers read "/\host"
// as "//host" and drop tabs and newlines, so those are rejected outright.
func localPath(p string) bool {
	if !strings.HasPrefix(p, "/") || strings.ContainsAny(p, "\\\t\r\n") {
		return false
	}
	u, err := url.Parse(p)
	return err == nil && u.Scheme == "" && u.Host == "" && !strings.HasPrefix(p, "//")
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// violations extracts field errors for inline display.
func violations(err error) (map[string]string, bool) {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return ve.Fields, true
	}
	return nil, false
}

// fail answers a service error that has no form to go back to.
// Not-found and forbidden both render as 404 so hidden rows stay hidden.
func fail(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrForbidden):
		http.NotFound(w, r)
	case errors.Is(err, services.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrUpstream):
		log.Error().Err(err).Str("path", r.URL.Path).Msg("upstream failure")
		http.Error(w, i18n.T(i18n.LangFromContext(r.Context()), "flash.upstream"), http.StatusBadGateway)
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func render(w http.ResponseWriter, r *http.Request, log zerolog.Logger, status int, name string, data map[string]any) {
	if err := view.RenderStatus(w, r, status, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("render failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func parseDate(s string) (*time.Time, bool) {
	if s == "" {
		return nil, true
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
