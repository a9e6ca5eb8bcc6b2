package studentrespond

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

type ProposalResponder interface {
	StudentRespondToProposal(ctx context.Context, lessonID string, req *api.StudentRespondRequest) (*api.LessonResponse, error)
}

type Request struct {
	api.StudentRespondRequest
}

type Response struct {
	response.Response
	Lesson api.LessonResponse `json:"lesson,omitempty"`
}

// New handles the student's answer to a teacher-proposed alternative time.
func New(log *slog.Logger, responder ProposalResponder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lessons.studentrespond.New"

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

		lesson, err := responder.StudentRespondToProposal(r.Context(), id, &req.StudentRespondRequest)

		if wire.Error(w, r, log, err, "Failed to record student response") {
			return
		}

		log.Info("Student response recorded",
			slog.String("lesson_id", lesson.ID),
			slog.String("status", lesson.Status),
		)
		render.JSON(w, r, Response{
			Lesson: *lesson,
		})
	}
}
