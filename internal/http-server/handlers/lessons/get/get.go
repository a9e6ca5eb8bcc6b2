package get

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/GermanBurdin1/lesson-service/api"
	"github.com/GermanBurdin1/lesson-service/internal/http-server/handlers/wire"
	"github.com/GermanBurdin1/lesson-service/pkg/response"
)

type LessonProvider interface {
	GetLessonByID(ctx context.Context, lessonID string) (*api.LessonResponse, error)
	GetLessonsForUser(ctx context.Context, userID string) ([]*api.LessonResponse, error)
	GetConfirmedLessonsForStudent(ctx context.Context, studentID string) ([]*api.LessonResponse, error)
	GetAllConfirmedLessonsForTeacher(ctx context.Context, teacherID string) ([]*api.LessonResponse, error)
	GetTeachersForStudent(ctx context.Context, studentID string) ([]*api.UserSummary, error)
	GetConfirmedStudentsForTeacher(ctx context.Context, teacherID string) ([]*api.UserSummary, error)
	GetStudentSentRequestsPaged(ctx context.Context, studentID string, page, pageSize int) (*api.PagedLessonsResponse, error)
	GetCompletedLessonsCount(ctx context.Context, studentID string) (int, error)
}

type LessonReply struct {
	response.Response
	Lesson api.LessonResponse `json:"lesson,omitempty"`
}

type LessonsReply struct {
	response.Response
	Lessons []*api.LessonResponse `json:"lessons"`
}

type UsersReply struct {
	response.Response
	Users []*api.UserSummary `json:"users"`
}

type CountReply struct {
	response.Response
	Count int `json:"count"`
}

// New returns a single lesson by its id.
func New(log *slog.Logger, provider LessonProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lessons.get.New"

		log := reqLog(log, r, op)

		id := chi.URLParam(r, "id")

		lesson, err := provider.GetLessonByID(r.Context(), id)

		if wire.Error(w, r, log, err, "Failed to get lesson") {
			return
		}

		render.JSON(w, r, LessonReply{
			Lesson: *lesson,
		})
	}
}

// NewForUser lists every lesson where the user appears as teacher or student.
func NewForUser(log *slog.Logger, provider LessonProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lessons.get.NewForUser"

		log := reqLog(log, r, op)

		userID := chi.URLParam(r, "userId")

		lessons, err := provider.GetLessonsForUser(r.Context(), userID)

		if wire.Error(w, r, log, err, "Failed to list lessons for user") {
			return
		}

		render.JSON(w, r, LessonsReply{
			Lessons: lessons,
		})
	}
}

// NewConfirmedForStudent lists a student's confirmed upcoming lessons.
func NewConfirmedForStudent(log *slog.Logger, provider LessonProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lessons.get.NewConfirmedForStudent"

		log := reqLog(log, r, op)

		studentID := chi.URLParam(r, "studentId")

		lessons, err := provider.GetConfirmedLessonsForStudent(r.Context(), studentID)

		if wire.Error(w, r, log, err, "Failed to list confirmed lessons for student") {
			return
		}

		render.JSON(w, r, LessonsReply{
			Lessons: lessons,
		})
	}
}

// NewConfirmedForTeacher lists every confirmed lesson of a teacher, past
// included.
func NewConfirmedForTeacher(log *slog.Logger, provider LessonProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lessons.get.NewConfirmedForTeacher"

		log := reqLog(log, r, op)

		teacherID := chi.URLParam(r, "teacherId")

		lessons, err := provider.GetAllConfirmedLessonsForTeacher(r.Context(), teacherID)

		if wire.Error(w, r, log, err, "Failed to list confirmed lessons for teacher") {
			return
		}

		render.JSON(w, r, LessonsReply{
			Lessons: lessons,
		})
	}
}

// NewTeachers lists the distinct teachers a student has confirmed lessons with.
func NewTeachers(log *slog.Logger, provider LessonProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lessons.get.NewTeachers"

		log := reqLog(log, r, op)

		studentID := chi.URLParam(r, "studentId")

		users, err := provider.GetTeachersForStudent(r.Context(), studentID)

		if wire.Error(w, r, log, err, "Failed to list teachers for student") {
			return
		}

		render.JSON(w, r, UsersReply{
			Users: users,
		})
	}
}

// NewStudents lists the distinct students a teacher has confirmed lessons with.
func NewStudents(log *slog.Logger, provider LessonProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lessons.get.NewStudents"

		log := reqLog(log, r, op)

		teacherID := chi.URLParam(r, "teacherId")

		users, err := provider.GetConfirmedStudentsForTeacher(r.Context(), teacherID)

		if wire.Error(w, r, log, err, "Failed to list students for teacher") {
			return
		}

		render.JSON(w, r, UsersReply{
			Users: users,
		})
	}
}

// NewStudentRequests pages through a student's sent booking requests, newest
// first. Page numbers are 1-based, "page" and "pageSize" come as query params.
func NewStudentRequests(log *slog.Logger, provider LessonProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lessons.get.NewStudentRequests"

		log := reqLog(log, r, op)

		studentID := chi.URLParam(r, "studentId")

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

		paged, err := provider.GetStudentSentRequestsPaged(r.Context(), studentID, page, pageSize)

		if wire.Error(w, r, log, err, "Failed to list student requests") {
			return
		}

		render.JSON(w, r, paged)
	}
}

// NewCompletedCount returns how many lessons a student has completed.
func NewCompletedCount(log *slog.Logger, provider LessonProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lessons.get.NewCompletedCount"

		log := reqLog(log, r, op)

		studentID := chi.URLParam(r, "studentId")

		count, err := provider.GetCompletedLessonsCount(r.Context(), studentID)

		if wire.Error(w, r, log, err, "Failed to count completed lessons") {
			return
		}

		render.JSON(w, r, CountReply{
			Count: count,
		})
	}
}

func reqLog(log *slog.Logger, r *http.Request, op string) *slog.Logger {
	return log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}
