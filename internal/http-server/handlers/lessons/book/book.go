package book

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/GermanBurdin1/lesson-service/api"
	"github.com/GermanBurdin1/lesson-service/internal/models"
	"github.com/GermanBurdin1/lesson-service/pkg/response"
	"github.com/GermanBurdin1/lesson-service/pkg/sl"
)

type LessonBooker interface {
	BookLesson(ctx context.Context, req *api.BookLessonRequest) (*api.LessonResponse, error)
}

type Request struct {
	api.BookLessonRequest
}

type Response struct {
	response.Response
	Lesson api.LessonResponse `json:"lesson,omitempty"`
}

func New(log *slog.Logger, booker LessonBooker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lessons.book.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		if req.StudentID == "" || req.TeacherID == "" || req.ScheduledAt == "" {
			log.Error("student_id, teacher_id and scheduled_at are required")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "student_id, teacher_id and scheduled_at are required"))
			return
		}

		lesson, err := booker.BookLesson(r.Context(), &req.BookLessonRequest)

		var conflict *models.SlotConflictError
		if errors.As(err, &conflict) {
			log.Info("Slot conflict", slog.Any("conflict", conflict))
			code := response.CONFLICT
			if conflict.Kind == models.ConflictInsufficientBreak {
				code = response.INSUFFICIENT_BREAK
			}
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(code), conflict.Error()))
			return
		}

		if errors.Is(err, response.ErrPastTime) {
			log.Info("Attempt to book a past slot")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.PAST_TIME), "cannot book a slot in the past"))
			return
		}

		if errors.Is(err, response.ErrDuplicateRequest) {
			log.Info("Duplicate booking request")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.DUPLICATE_REQUEST), "a request for this time already exists"))
			return
		}

		if errors.Is(err, response.ErrInvalidID) {
			log.Error("Invalid id format")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.INVALID_ID), "invalid id format"))
			return
		}

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("Invalid request payload")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "invalid request payload"))
			return
		}

		if errors.Is(err, response.ErrLocked) {
			log.Error("Schedule is locked")
			w.WriteHeader(http.StatusLocked)
			render.JSON(w, r, response.Error(string(response.LOCKED), "resource is locked"))
			return
		}

		if err != nil {
			log.Error("Failed to book lesson", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to book lesson"))
			return
		}

		log.Info("Lesson booked", slog.String("lesson_id", lesson.ID))

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, Response{
			Lesson: *lesson,
		})
	}
}
