// Package student contains the HTTP handlers for the admin student
// resource: create, list, get, replace, delete.
//
// HANDLER PATTERN — THE CLOSURE / FACTORY PATTERN:
// Each exported function accepts its dependencies (storage) and returns a
// func with the router's expected signature. The factory runs once at
// startup; the returned closure runs on every request and can still see
// the captured dependencies.
//
// Every handler follows the same shape: decode → validate → storage →
// respond, mapping the storage sentinels to the HTTP error taxonomy
// (validation 400, conflict 409, not found 404, anything unexpected 500
// with a generic body).
package student

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/exam-results-api/internal/grades"
	"github.com/aanand-mishra/exam-results-api/internal/storage"
	"github.com/aanand-mishra/exam-results-api/internal/types"
	"github.com/aanand-mishra/exam-results-api/internal/utils/response"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// decodeUpsert reads and fully validates a create/replace payload.
// On failure it has already written the 400 response and reports ok=false.
func decodeUpsert(w http.ResponseWriter, r *http.Request) (types.UpsertStudent, bool) {
	var input types.UpsertStudent

	err := json.NewDecoder(r.Body).Decode(&input)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusBadRequest,
			response.Message("request body is empty"))
		return input, false
	}
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.Error(err))
		return input, false
	}

	// Identity fields via struct tags…
	if err := validator.New().Struct(input); err != nil {
		validateErrs := err.(validator.ValidationErrors)
		response.WriteJSON(w, http.StatusBadRequest,
			response.ValidationError(validateErrs))
		return input, false
	}

	// …and the score map via the closed-set check (exactly twelve known
	// subjects, each 0–100). Struct tags cannot express that shape.
	if problems := input.ScoreProblems(); len(problems) > 0 {
		response.WriteJSON(w, http.StatusBadRequest,
			response.FieldProblems(problems))
		return input, false
	}

	return input, true
}

// Create handles POST /api/admin/students.
//
// Success response (201 Created):
//
//	{ "ok": true, "student": { …record with scores and derived fields… } }
//
// 409 on a duplicate roll number, 400 on validation failure.
func Create(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a student")

		input, ok := decodeUpsert(w, r)
		if !ok {
			return
		}

		// Derived fields are computed here, next to the raw scores they
		// belong to, and stored in the same transaction.
		sum := grades.Summarize(input.Scores)

		created, err := store.CreateStudent(r.Context(), input, sum)
		if err != nil {
			if errors.Is(err, storage.ErrRollNumberTaken) {
				response.WriteJSON(w, http.StatusConflict,
					response.Message("Roll number already exists"))
				return
			}
			slog.Error("error creating student", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.Message("server error"))
			return
		}

		slog.Info("student created",
			slog.String("id", created.ID),
			slog.String("rollNumber", created.RollNumber))

		response.WriteJSON(w, http.StatusCreated, map[string]any{
			"ok":      true,
			"student": created,
		})
	}
}

// List handles GET /api/admin/students.
//
// Query parameters: status=ALL|PASSED|FAILED, q=<free text>, page, pageSize.
// Returns { total, items, page, pageSize } ordered by creation time
// descending. Unknown status values fall back to ALL; page/pageSize are
// clamped to sane bounds rather than rejected.
func List(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := types.StudentFilter{
			Status:   r.URL.Query().Get("status"),
			Query:    r.URL.Query().Get("q"),
			Page:     1,
			PageSize: defaultPageSize,
		}
		if filter.Status == "" {
			filter.Status = types.StatusAll
		}
		if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && page > 1 {
			filter.Page = page
		}
		if size, err := strconv.Atoi(r.URL.Query().Get("pageSize")); err == nil && size > 0 {
			filter.PageSize = min(size, maxPageSize)
		}

		slog.Info("listing students",
			slog.String("status", filter.Status),
			slog.String("q", filter.Query),
			slog.Int("page", filter.Page))

		page, err := store.ListStudents(r.Context(), filter)
		if err != nil {
			slog.Error("error listing students", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.Message("server error"))
			return
		}

		response.WriteJSON(w, http.StatusOK, page)
	}
}

// GetByID handles GET /api/admin/students/{id}.
func GetByID(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		slog.Info("getting a student", slog.String("id", id))

		found, err := store.GetStudentByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrStudentNotFound) {
				response.WriteJSON(w, http.StatusNotFound,
					response.Message("Not found"))
				return
			}
			slog.Error("error getting student",
				slog.String("id", id), slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.Message("server error"))
			return
		}

		response.WriteJSON(w, http.StatusOK, map[string]any{"student": found})
	}
}

// Update handles PUT /api/admin/students/{id}.
//
// A PUT replaces everything: all five identity fields and all twelve
// scores, with the derived fields recomputed. There is no partial patch.
func Update(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		slog.Info("updating a student", slog.String("id", id))

		input, ok := decodeUpsert(w, r)
		if !ok {
			return
		}

		sum := grades.Summarize(input.Scores)

		updated, err := store.UpdateStudent(r.Context(), id, input, sum)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrStudentNotFound):
				response.WriteJSON(w, http.StatusNotFound,
					response.Message("Not found"))
			case errors.Is(err, storage.ErrRollNumberTaken):
				response.WriteJSON(w, http.StatusConflict,
					response.Message("Roll number already exists"))
			default:
				slog.Error("error updating student",
					slog.String("id", id), slog.String("error", err.Error()))
				response.WriteJSON(w, http.StatusInternalServerError,
					response.Message("server error"))
			}
			return
		}

		slog.Info("student updated", slog.String("id", id))
		response.WriteJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"student": updated,
		})
	}
}

// Delete handles DELETE /api/admin/students/{id}.
// Deleting an id that does not exist is a 404, not a fatal error.
func Delete(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		slog.Info("deleting a student", slog.String("id", id))

		if err := store.DeleteStudent(r.Context(), id); err != nil {
			if errors.Is(err, storage.ErrStudentNotFound) {
				response.WriteJSON(w, http.StatusNotFound,
					response.Message("Not found"))
				return
			}
			slog.Error("error deleting student",
				slog.String("id", id), slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.Message("server error"))
			return
		}

		slog.Info("student deleted", slog.String("id", id))
		response.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}
