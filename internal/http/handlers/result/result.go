// Package result contains the public result-lookup handler. It is the one
// surface that runs without a session: anyone holding a roll number can
// fetch that student's published result.
package result

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/aanand-mishra/exam-results-api/internal/storage"
	"github.com/aanand-mishra/exam-results-api/internal/utils/response"
)

// Get handles GET /api/results/{rollNumber}.
//
// Success response (200 OK):
//
//	{ "student": { …record with scores and derived fields… } }
//
// 404 with a plain "Not found" body when no student holds the roll number.
func Get(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rollNumber := chi.URLParam(r, "rollNumber")
		// Roll numbers may contain characters the browser percent-encodes.
		if decoded, err := url.PathUnescape(rollNumber); err == nil {
			rollNumber = decoded
		}

		slog.Info("public result lookup", slog.String("rollNumber", rollNumber))

		found, err := store.GetStudentByRollNumber(r.Context(), rollNumber)
		if err != nil {
			if errors.Is(err, storage.ErrStudentNotFound) {
				response.WriteJSON(w, http.StatusNotFound,
					response.Message("Not found"))
				return
			}
			slog.Error("error looking up result",
				slog.String("rollNumber", rollNumber),
				slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.Message("server error"))
			return
		}

		response.WriteJSON(w, http.StatusOK, map[string]any{"student": found})
	}
}
