package start

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

type LessonStarter interface {
	StartLesson(ctx context.Context, lessonID, startedBy string) (*api.LessonResponse, error)
}

type Request struct {
	api.StartLessonRequest
}

type Response struct {
	response.Response
	Lesson api.LessonResponse `json:"lesson,omitempty"`
}

func New(log *slog.Logger, starter LessonStarter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lessons.start.New"

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

		lesson, err := starter.StartLesson(r.Context(), id, req.StartedBy)

		if wire.Error(w, r, log, err, "Failed to start lesson") {
			return
		}

		log.Info("Lesson started",
			slog.String("lesson_id", lesson.ID),
			slog.String("started_by", req.StartedBy),
		)
		render.JSON(w, r, Response{
			Lesson: *lesson,
		})
	}
}
