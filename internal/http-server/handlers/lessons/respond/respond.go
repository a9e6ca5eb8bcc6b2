package respond

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

type BookingResponder interface {
	RespondToBooking(ctx context.Context, lessonID string, req *api.RespondToBookingRequest) (*api.LessonResponse, error)
}

type Request struct {
	api.RespondToBookingRequest
}

type Response struct {
	response.Response
	Lesson api.LessonResponse `json:"lesson,omitempty"`
}

func New(log *slog.Logger, responder BookingResponder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lessons.respond.New"

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

		lesson, err := responder.RespondToBooking(r.Context(), id, &req.RespondToBookingRequest)

		if wire.Error(w, r, log, err, "Failed to respond to booking") {
			return
		}

		log.Info("Booking response recorded",
			slog.String("lesson_id", lesson.ID),
			slog.String("status", lesson.Status),
		)
		render.JSON(w, r, Response{
			Lesson: *lesson,
		})
	}
}
