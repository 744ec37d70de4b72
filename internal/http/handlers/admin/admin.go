// Package admin contains the HTTP handlers for the administration account:
// registration (first admin only), login/logout, the current-admin probe,
// and the dashboard stats.
//
// The system expects effectively one admin account. Registration is only
// open while zero admins exist, and the decision is NOT trusted to the
// count read here — two concurrent first registrations both pass the count
// check, and the storage layer's unique email index picks the single
// winner. The loser receives a conflict, never a silent second admin.
package admin

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/exam-results-api/internal/auth"
	"github.com/aanand-mishra/exam-results-api/internal/storage"
	"github.com/aanand-mishra/exam-results-api/internal/utils/response"
)

// credentials is the payload for both register and login.
type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// decodeCredentials reads and validates an email/password body, writing
// the 400 response itself on failure.
func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	var creds credentials

	err := json.NewDecoder(r.Body).Decode(&creds)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusBadRequest,
			response.Message("request body is empty"))
		return creds, false
	}
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.Error(err))
		return creds, false
	}

	if err := validator.New().Struct(creds); err != nil {
		validateErrs := err.(validator.ValidationErrors)
		response.WriteJSON(w, http.StatusBadRequest,
			response.ValidationError(validateErrs))
		return creds, false
	}

	return creds, true
}

// RegisterProbe handles GET /api/admin/register.
// The register page calls this before showing the form: once an admin
// exists it shows "already registered" with the email instead.
func RegisterProbe(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := store.CountAdmins(r.Context())
		if err != nil {
			slog.Error("error counting admins", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.Message("server error"))
			return
		}

		if count == 0 {
			response.WriteJSON(w, http.StatusOK, map[string]any{
				"exists": false,
				"count":  0,
			})
			return
		}

		first, err := store.FirstAdmin(r.Context())
		if err != nil {
			slog.Error("error fetching first admin", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.Message("server error"))
			return
		}

		response.WriteJSON(w, http.StatusOK, map[string]any{
			"exists": true,
			"count":  count,
			"email":  first.Email,
		})
	}
}

// Register handles POST /api/admin/register. Creates the very first admin
// only: 403 once an admin exists, 409 for the loser of a concurrent
// first-registration race.
func Register(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds, ok := decodeCredentials(w, r)
		if !ok {
			return
		}

		count, err := store.CountAdmins(r.Context())
		if err != nil {
			slog.Error("error counting admins", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.Message("server error"))
			return
		}
		if count > 0 {
			response.WriteJSON(w, http.StatusForbidden,
				response.Message("An admin is already registered. Please log in."))
			return
		}

		passwordHash, err := auth.HashPassword(creds.Password)
		if err != nil {
			slog.Error("error hashing password", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.Message("server error"))
			return
		}

		created, err := store.CreateAdmin(r.Context(), creds.Email, passwordHash)
		if err != nil {
			// Both registrations saw count == 0; the unique email index
			// decided who won.
			if errors.Is(err, storage.ErrEmailTaken) {
				response.WriteJSON(w, http.StatusConflict,
					response.Message("An admin is already registered. Please log in."))
				return
			}
			slog.Error("error creating admin", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.Message("server error"))
			return
		}

		slog.Info("admin registered", slog.String("id", created.ID))
		response.WriteJSON(w, http.StatusCreated, map[string]any{
			"ok":      true,
			"adminId": created.ID,
		})
	}
}

// Login handles POST /api/admin/login. On success it sets the session
// cookie and returns {ok:true}; every credential failure is the same 401,
// so a caller cannot tell an unknown email from a wrong password.
func Login(store storage.Storage, sessions *auth.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds, ok := decodeCredentials(w, r)
		if !ok {
			return
		}

		found, err := store.GetAdminByEmail(r.Context(), creds.Email)
		if err != nil {
			if errors.Is(err, storage.ErrAdminNotFound) {
				response.WriteJSON(w, http.StatusUnauthorized,
					response.Message("Invalid credentials"))
				return
			}
			slog.Error("error fetching admin", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.Message("server error"))
			return
		}

		if !auth.CheckPassword(found.PasswordHash, creds.Password) {
			response.WriteJSON(w, http.StatusUnauthorized,
				response.Message("Invalid credentials"))
			return
		}

		token, err := sessions.GenerateToken(found.ID)
		if err != nil {
			slog.Error("error generating session token", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.Message("server error"))
			return
		}

		sessions.SetSessionCookie(w, token)
		slog.Info("admin logged in", slog.String("id", found.ID))
		response.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

// Logout handles POST /api/admin/logout. Sessions are stateless, so
// logging out is just expiring the cookie.
func Logout(sessions *auth.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions.ClearSessionCookie(w)
		response.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

// Me handles GET /api/admin/me. The session middleware has already put the
// admin id in the context; this resolves it to a record so a deleted admin
// with a still-valid token is turned away too.
func Me(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, ok := auth.AdminIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized,
				response.Message("Unauthorized"))
			return
		}

		found, err := store.GetAdminByID(r.Context(), adminID)
		if err != nil {
			if errors.Is(err, storage.ErrAdminNotFound) {
				response.WriteJSON(w, http.StatusUnauthorized,
					response.Message("Unauthorized"))
				return
			}
			slog.Error("error fetching admin", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.Message("server error"))
			return
		}

		response.WriteJSON(w, http.StatusOK, map[string]any{"admin": found})
	}
}

// Stats handles GET /api/admin/stats: the dashboard counters.
func Stats(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.CountStudents(r.Context())
		if err != nil {
			slog.Error("error counting students", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.Message("server error"))
			return
		}
		response.WriteJSON(w, http.StatusOK, stats)
	}
}
