package cancel

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/GermanBurdin1/lesson-service/api"
	"github.com/GermanBurdin1/lesson-service/internal/http-server/handlers/wire"
	"github.com/GermanBurdin1/lesson-service/pkg/response"
	"github.com/GermanBurdin1/lesson-service/pkg/sl"
)

type LessonCanceller interface {
	CancelLessonByStudent(ctx context.Context, lessonID, reason string) (*api.LessonResponse, error)
}

type Request struct {
	api.CancelLessonRequest
}

type Response struct {
	response.Response
	Lesson api.LessonResponse `json:"lesson,omitempty"`
}

// New handles a student-initiated cancellation. Whether the refund applies
// depends on how close the call happens to the scheduled start.
func New(log *slog.Logger, canceller LessonCanceller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lessons.cancel.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")
		if id == "" {
			log.Error("id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "id is required"))
			return
		}

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		lesson, err := canceller.CancelLessonByStudent(r.Context(), id, req.Reason)

		if wire.Error(w, r, log, err, "Failed to cancel lesson") {
			return
		}

		log.Info("Lesson cancelled by student",
			slog.String("lesson_id", lesson.ID),
			slog.String("status", lesson.Status),
		)
		render.JSON(w, r, Response{
			Lesson: *lesson,
		})
	}
}
