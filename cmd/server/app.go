package main

import (
	"net"
	"net/http"
	"slices"
	"strings"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/gate"
	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/i18n"
	"github.com/diewo77/go-crm/internal/config"
	"github.com/diewo77/go-crm/internal/db"
	"github.com/diewo77/go-crm/internal/logger"
	"github.com/diewo77/go-crm/internal/metrics"
	"github.com/diewo77/go-crm/internal/policy"
	"github.com/diewo77/go-crm/view"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// App is the main application handler that sets up all routes.
type App struct {
	router    chi.Router
	db        *gorm.DB
	cfg       *config.Config
	routerCfg *RouterConfig
	log       zerolog.Logger
}

// NewApp creates the application with all routes configured.
func NewApp(db *gorm.DB, cfg *config.Config, routerCfg *RouterConfig, log zerolog.Logger) *App {
	app := &App{
		router:    chi.NewRouter(),
		db:        db,
		cfg:       cfg,
		routerCfg: routerCfg,
		log:       log,
	}

	// A session or token only counts when its user resolved to an active actor.
	auth.SetUserVerifier(policy.VerifyUser)

	// Templates reach identity through callbacks so the view package stays
	// independent of policy.
	view.SetCanResolver(func(r *http.Request, resource, action string) bool {
		return routerCfg.AuthGate.Can(r.Context(), gate.Action(action), resource, nil)
	})
	view.SetIsAdminResolver(func(r *http.Request) bool {
		a, _ := policy.ActorFromContext(r.Context())
		return a.IsAdmin()
	})
	view.SetUserResolver(func(r *http.Request) string {
		a, ok := policy.ActorFromContext(r.Context())
		if !ok {
			return ""
		}
		u, err := routerCfg.Services.Accounts.GetUser(r.Context(), a.UserID)
		if err != nil {
			return a.Username
		}
		return u.DisplayName()
	})

	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *App) setupRoutes() {
	r := a.router
	rc := a.routerCfg

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware(a.log))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(allowedHosts(a.cfg.Server.AllowedHosts))
	r.Use(auth.Middleware)
	r.Use(rc.AuthGate.ResolveActor)
	r.Use(withPreferences(a.cfg.App.Language))

	// ─────────────────────────────────────────────────────────────────────────
	// Public routes
	// ─────────────────────────────────────────────────────────────────────────
	r.Get("/", a.home)
	r.Get("/health", a.health)
	r.Get("/healthz", a.health)
	if a.cfg.Telemetry.MetricsEnabled {
		r.Handle(a.cfg.Telemetry.MetricsPath, promhttp.Handler())
	}
	if media := mediaPrefix(a.cfg.Storage); media != "" {
		r.Handle(media+"*", http.StripPrefix(media, http.FileServer(http.Dir(a.cfg.Storage.MediaRoot))))
	}

	ah := rc.AuthHandler
	r.Get("/login", ah.Login)
	r.Post("/login", ah.Login)
	r.Get("/signup", ah.Signup)
	r.Post("/signup", ah.Signup)
	r.Get("/logout", ah.Logout)
	r.Post("/logout", ah.Logout)

	// ─────────────────────────────────────────────────────────────────────────
	// JSON API
	// ─────────────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   a.cfg.Server.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
		r.Mount("/", rc.API.Routes())
	})

	// ─────────────────────────────────────────────────────────────────────────
	// Authenticated UI
	// ─────────────────────────────────────────────────────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Get("/dashboard", rc.DashboardHandler.Show)
		r.Get("/pipeline", rc.LeadHandler.Board)

		ch, ih := rc.ClientHandler, rc.InteractionHandler
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", ch.List)
			r.Get("/new", ch.New)
			r.Post("/", ch.Create)
			r.Get("/{id}", ch.View)
			r.Get("/{id}/edit", ch.Edit)
			r.Post("/{id}", ch.Update)
			r.Post("/{id}/delete", ch.Delete)
			r.Get("/{id}/interactions/new", ih.New)
		})

		lh := rc.LeadHandler
		r.Route("/leads", func(r chi.Router) {
			r.Get("/", lh.List)
			r.Get("/new", lh.New)
			r.Post("/", lh.Create)
			r.Get("/{id}", lh.View)
			r.Get("/{id}/edit", lh.Edit)
			r.Post("/{id}", lh.Update)
			r.Post("/{id}/delete", lh.Delete)
			r.Post("/{id}/stage", lh.Stage)
		})

		r.Route("/interactions", func(r chi.Router) {
			r.Post("/", ih.Create)
			r.Get("/{id}/edit", ih.Edit)
			r.Post("/{id}", ih.Update)
			r.Post("/{id}/delete", ih.Delete)
			r.Post("/{id}/complete", ih.Complete)
		})

		r.Get("/profile", rc.ProfileHandler.Edit)
		r.Post("/profile", rc.ProfileHandler.Update)

		// ─────────────────────────────────────────────────────────────────────
		// Admin area (role gate)
		// ─────────────────────────────────────────────────────────────────────
		uh := rc.AdminUserHandler
		r.Route("/admin/users", func(r chi.Router) {
			r.Use(rc.AuthGate.RequireAdmin(a.denyAdmin))
			r.Get("/", uh.List)
			r.Post("/{id}/position", uh.SetPosition)
			r.Post("/{id}/active", uh.SetActive)
			r.Post("/{id}/delete", uh.Delete)
		})
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

// allowedHosts rejects requests whose Host header is not listed. "*" accepts any host.
func allowedHosts(hosts []string) func(http.Handler) http.Handler {
	allowAll := slices.Contains(hosts, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := r.Host
			if h, _, err := net.SplitHostPort(host); err == nil {
				host = h
			}
			if !allowAll && !slices.Contains(hosts, strings.ToLower(host)) {
				http.Error(w, "Bad Request", http.StatusBadRequest)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// withPreferences picks the request language: ?lang (remembered in a
// cookie), then the lang cookie, then Accept-Language, then def.
func withPreferences(def string) func(http.Handler) http.Handler {
	if !i18n.Supported(def) {
		def = i18n.DefaultLang
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := def
			if q := r.URL.Query().Get("lang"); i18n.Supported(q) {
				lang = q
				http.SetCookie(w, &http.Cookie{
					Name:     "lang",
					Value:    lang,
					Path:     "/",
					MaxAge:   86400 * 365,
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			} else if c, err := r.Cookie("lang"); err == nil && i18n.Supported(c.Value) {
				lang = c.Value
			} else if accept := r.Header.Get("Accept-Language"); accept != "" {
				lang = i18n.DetectLanguage(accept)
			}
			next.ServeHTTP(w, r.WithContext(i18n.WithLang(r.Context(), lang)))
		})
	}
}

func (a *App) denyAdmin(w http.ResponseWriter, r *http.Request) {
	auth.SetFlash(w, auth.FlashError, i18n.T(i18n.LangFromContext(r.Context()), "flash.no_permission"))
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// mediaPrefix returns the URL prefix local uploads are served under,
// or "" when media lives in object storage.
func mediaPrefix(s config.StorageConfig) string {
	if s.UseCloud || !strings.HasPrefix(s.MediaURL, "/") {
		return ""
	}
	return "/" + strings.Trim(s.MediaURL, "/") + "/"
}

// ─────────────────────────────────────────────────────────────────────────────
// Page handlers
// ─────────────────────────────────────────────────────────────────────────────

func (a *App) home(w http.ResponseWriter, r *http.Request) {
	if _, ok := policy.ActorFromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	if err := db.Ping(r.Context(), a.db); err != nil {
		a.log.Warn().Err(err).Msg("health check failed")
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
