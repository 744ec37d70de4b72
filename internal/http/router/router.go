// Package router assembles the chi router: global middleware, the public
// surface, the session-gated administrative surface, and (optionally) the
// static frontend with its login redirect.
package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/aanand-mishra/exam-results-api/internal/auth"
	"github.com/aanand-mishra/exam-results-api/internal/config"
	adminhandler "github.com/aanand-mishra/exam-results-api/internal/http/handlers/admin"
	"github.com/aanand-mishra/exam-results-api/internal/http/handlers/result"
	"github.com/aanand-mishra/exam-results-api/internal/http/handlers/student"
	"github.com/aanand-mishra/exam-results-api/internal/storage"
	"github.com/aanand-mishra/exam-results-api/internal/utils/response"
)

// New builds the full route table.
//
// Route table:
//
//	GET    /api/results/{rollNumber}      public result lookup
//	GET    /api/admin/register            registration probe
//	POST   /api/admin/register            create the first admin
//	POST   /api/admin/login               issue a session cookie
//	POST   /api/admin/logout              clear the session cookie
//	GET    /api/admin/me                  current admin          (session)
//	GET    /api/admin/stats               dashboard counters     (session)
//	POST   /api/admin/students            create student         (session)
//	GET    /api/admin/students            list students          (session)
//	GET    /api/admin/students/{id}       get one student        (session)
//	PUT    /api/admin/students/{id}       replace student        (session)
//	DELETE /api/admin/students/{id}       delete student         (session)
//
// When cfg.WebDir is set the frontend build is served from /, with
// unauthenticated /admin/* page loads redirected to /admin/login.
func New(cfg *config.Config, store storage.Storage, sessions *auth.Manager) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// AllowCredentials lets the browser send the session cookie from the
	// frontend's dev origin.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		// Public: anyone with a roll number can read a published result.
		r.Get("/results/{rollNumber}", result.Get(store))

		r.Route("/admin", func(r chi.Router) {
			r.Get("/register", adminhandler.RegisterProbe(store))
			r.Post("/register", adminhandler.Register(store))
			r.Post("/login", adminhandler.Login(store, sessions))
			r.Post("/logout", adminhandler.Logout(sessions))

			// Everything below requires a valid session cookie.
			r.Group(func(r chi.Router) {
				r.Use(SessionGate(sessions))

				r.Get("/me", adminhandler.Me(store))
				r.Get("/stats", adminhandler.Stats(store))

				r.Route("/students", func(r chi.Router) {
					r.Post("/", student.Create(store))
					r.Get("/", student.List(store))
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", student.GetByID(store))
						r.Put("/", student.Update(store))
						r.Delete("/", student.Delete(store))
					})
				})
			})
		})
	})

	if cfg.WebDir != "" {
		fileServer := http.FileServer(http.Dir(cfg.WebDir))
		r.Group(func(r chi.Router) {
			r.Use(AdminPageGuard(sessions))
			r.Handle("/*", fileServer)
		})
	}

	return r
}

// SessionGate rejects any request without a valid session cookie before
// the handler runs, so an unauthenticated call can never touch data and
// never learns whether the resource behind it exists. On success the
// admin id travels to the handler via the request context.
func SessionGate(sessions *auth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			adminID, err := sessions.AdminIDFromRequest(r)
			if err != nil {
				// Absent cookie, bad signature, and expiry all look the
				// same to the caller.
				response.WriteJSON(w, http.StatusUnauthorized,
					response.Message("Unauthorized"))
				return
			}

			ctx := auth.ContextWithAdminID(r.Context(), adminID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// publicAdminPages are the /admin/* browser routes reachable without a
// session.
var publicAdminPages = []string{"/admin/login", "/admin/register"}

// AdminPageGuard is the browser-navigation counterpart of SessionGate:
// instead of a JSON 401 it redirects unauthenticated page loads under
// /admin/* to the login page, remembering where the visitor was headed.
func AdminPageGuard(sessions *auth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if !strings.HasPrefix(path, "/admin") {
				next.ServeHTTP(w, r)
				return
			}
			for _, public := range publicAdminPages {
				if strings.HasPrefix(path, public) {
					next.ServeHTTP(w, r)
					return
				}
			}

			if _, err := sessions.AdminIDFromRequest(r); err != nil {
				http.Redirect(w, r, "/admin/login?next="+path, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
