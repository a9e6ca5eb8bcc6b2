package wire

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/GermanBurdin1/lesson-service/pkg/response"
	"github.com/GermanBurdin1/lesson-service/pkg/sl"
)

// Error maps a service error onto the wire envelope and status code.
// Returns true when the response has been written.
func Error(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, fallbackMsg string) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, response.ErrNotFound):
		log.Error("Lesson not found")
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error(string(response.NOT_FOUND), "lesson not found"))

	case errors.Is(err, response.ErrInvalidState):
		log.Info("Invalid lesson state for operation", sl.Err(err))
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error(string(response.INVALID_STATE), err.Error()))

	case errors.Is(err, response.ErrPastTime):
		log.Info("Attempt to schedule in the past")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(string(response.PAST_TIME), "cannot schedule in the past"))

	case errors.Is(err, response.ErrConflict):
		log.Info("Slot conflict", sl.Err(err))
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error(string(response.CONFLICT), err.Error()))

	case errors.Is(err, response.ErrDuplicateRequest):
		log.Info("Duplicate booking request")
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error(string(response.DUPLICATE_REQUEST), "a request for this time already exists"))

	case errors.Is(err, response.ErrInvalidID):
		log.Error("Invalid id format")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(string(response.INVALID_ID), "invalid id format"))

	case errors.Is(err, response.ErrBadRequest):
		log.Error("Invalid request payload")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "invalid request payload"))

	case errors.Is(err, response.ErrLocked):
		log.Error("Lesson is locked")
		w.WriteHeader(http.StatusLocked)
		render.JSON(w, r, response.Error(string(response.LOCKED), "resource is locked"))

	default:
		log.Error(fallbackMsg, sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "request failed"))
	}

	return true
}
