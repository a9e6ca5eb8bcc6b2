package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/GermanBurdin1/lesson-service/api"
	"github.com/GermanBurdin1/lesson-service/internal/clock"
	"github.com/GermanBurdin1/lesson-service/internal/lock"
	"github.com/GermanBurdin1/lesson-service/internal/models"
	"github.com/GermanBurdin1/lesson-service/internal/notify"
	"github.com/GermanBurdin1/lesson-service/internal/profile"
	"github.com/GermanBurdin1/lesson-service/pkg/response"
	"github.com/GermanBurdin1/lesson-service/pkg/sl"
)

type Service struct {
	log      *slog.Logger
	store    Store
	locker   lock.Locker
	notifier Notifier
	profiles Profiles
	clock    clock.Clock
}

func NewService(log *slog.Logger, store Store, locker lock.Locker, notifier Notifier, profiles Profiles, clk clock.Clock) *Service {
	return &Service{
		log:      log,
		store:    store,
		locker:   locker,
		notifier: notifier,
		profiles: profiles,
		clock:    clk,
	}
}

type Store interface {
	GetLesson(ctx context.Context, id string) (*models.Lesson, error)
	CreateLesson(ctx context.Context, lesson *models.Lesson) error
	UpdateLesson(ctx context.Context, lesson *models.Lesson) error

	// FindActiveForDay returns confirmed/in_progress lessons of the teacher
	// or the student within the calendar day of `day`, ordered by
	// scheduled_at. excludeID, when non-empty, is left out of the result.
	FindActiveForDay(ctx context.Context, teacherID, studentID string, day time.Time, excludeID string) ([]*models.Lesson, error)
	// FindTeacherLessonsForDay returns the teacher's confirmed/in_progress
	// lessons of the calendar day, ordered by scheduled_at.
	FindTeacherLessonsForDay(ctx context.Context, teacherID string, day time.Time) ([]*models.Lesson, error)
	HasStudentRequestAt(ctx context.Context, studentID string, at time.Time) (bool, error)

	ListForUser(ctx context.Context, userID string) ([]*models.Lesson, error)
	ListConfirmedForStudent(ctx context.Context, studentID string) ([]*models.Lesson, error)
	ListConfirmedForTeacher(ctx context.Context, teacherID string) ([]*models.Lesson, error)
	ListStudentRequestsPaged(ctx context.Context, studentID string, page, pageSize int) ([]*models.Lesson, int, error)
	CountCompletedForStudent(ctx context.Context, studentID string) (int, error)
	LessonsStats(ctx context.Context, from, to time.Time) (*models.LessonsStats, error)
}

type Notifier interface {
	Publish(ctx context.Context, routingKey string, n *models.Notification) error
}

type Profiles interface {
	GetUserInfo(ctx context.Context, userID string) (*models.UserInfo, error)
}

// BookLesson creates a pending booking request from a student to a teacher.
func (s *Service) BookLesson(ctx context.Context, req *api.BookLessonRequest) (*api.LessonResponse, error) {
	const op = "service.BookLesson"

	if !validUUIDs(req.StudentID, req.TeacherID) {
		return nil, fmt.Errorf("%s: %w", op, response.ErrInvalidID)
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid scheduled_at: %w", op, response.ErrBadRequest)
	}

	now := s.clock.Now()
	if !scheduledAt.After(now) {
		return nil, fmt.Errorf("%s: %w", op, response.ErrPastTime)
	}

	// Both parties' schedules are checked and written under one lock pair so
	// two near-simultaneous requests for overlapping slots cannot both pass
	// validation.
	unlockTeacher, err := s.acquire(ctx, lock.Key("schedule", req.TeacherID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlockTeacher()

	unlockStudent, err := s.acquire(ctx, lock.Key("schedule", req.StudentID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlockStudent()

	if err := s.ValidateLessonTime(ctx, req.TeacherID, req.StudentID, scheduledAt, ""); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	duplicate, err := s.store.HasStudentRequestAt(ctx, req.StudentID, scheduledAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if duplicate {
		return nil, fmt.Errorf("%s: %w", op, response.ErrDuplicateRequest)
	}

	lesson := &models.Lesson{
		ID:          uuid.NewString(),
		TeacherID:   req.TeacherID,
		StudentID:   req.StudentID,
		ScheduledAt: scheduledAt,
		Status:      models.StatusPending,
		CreatedAt:   now,
	}

	if err := s.store.CreateLesson(ctx, lesson); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	studentName := s.userName(ctx, lesson.StudentID, profile.FallbackStudentName)
	date, hour := frDateTime(scheduledAt)

	s.publish(ctx, notify.KeyLessonCreated, &models.Notification{
		UserID:  lesson.TeacherID,
		Title:   "Nouvelle demande de réservation",
		Message: fmt.Sprintf("%s souhaite réserver un cours le %s à %s.", studentName, date, hour),
		Type:    "booking_request",
		Metadata: map[string]any{
			"lessonId":    lesson.ID,
			"studentId":   lesson.StudentID,
			"scheduledAt": lesson.ScheduledAt,
		},
		Status: string(lesson.Status),
	})

	return toLessonResponse(lesson), nil
}

// RespondToBooking is the teacher's answer to a pending request: accept,
// reject, or propose an alternative time.
func (s *Service) RespondToBooking(ctx context.Context, lessonID string, req *api.RespondToBookingRequest) (*api.LessonResponse, error) {
	const op = "service.RespondToBooking"

	if !validUUIDs(lessonID) {
		return nil, fmt.Errorf("%s: %w", op, response.ErrInvalidID)
	}

	unlock, err := s.acquire(ctx, lock.Key("lesson", lessonID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	lesson, err := s.store.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if lesson.Status != models.StatusPending {
		return nil, fmt.Errorf("%s: can only respond to a pending booking: %w", op, response.ErrInvalidState)
	}

	teacherName := s.userName(ctx, lesson.TeacherID, profile.FallbackTeacherName)

	if req.ProposeAlternative && req.ProposedTime != nil {
		proposedTime, err := time.Parse(time.RFC3339, *req.ProposedTime)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid proposed_time: %w", op, response.ErrBadRequest)
		}

		now := s.clock.Now()
		lesson.ProposedByTeacherAt = &now
		lesson.ProposedTime = &proposedTime
		lesson.Status = models.StatusPending
		lesson.StudentConfirmed = nil
		lesson.StudentRefused = nil

		if err := s.store.UpdateLesson(ctx, lesson); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		date, hour := frDateTime(proposedTime)
		s.publish(ctx, notify.KeyBookingProposal, &models.Notification{
			UserID:  lesson.StudentID,
			Title:   "Nouvelle proposition de créneau",
			Message: fmt.Sprintf("%s vous propose un autre créneau le %s à %s.", teacherName, date, hour),
			Type:    "booking_proposal",
			Metadata: map[string]any{
				"lessonId":     lesson.ID,
				"teacherId":    lesson.TeacherID,
				"proposedTime": proposedTime,
			},
			Status: string(lesson.Status),
		})

		return toLessonResponse(lesson), nil
	}

	accepted := req.Accepted
	refused := !req.Accepted

	if accepted {
		lesson.Status = models.StatusConfirmed
	} else {
		lesson.Status = models.StatusRejected
	}
	lesson.StudentConfirmed = &accepted
	lesson.StudentRefused = &refused
	lesson.ProposedTime = nil

	if err := s.store.UpdateLesson(ctx, lesson); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	title := "Réservation confirmée"
	message := fmt.Sprintf("%s a accepté votre réservation.", teacherName)
	if !accepted {
		title = "Réservation refusée"
		message = fmt.Sprintf("%s a refusé votre réservation.", teacherName)
		if req.Reason != nil && *req.Reason != "" {
			message += fmt.Sprintf(" Motif : %s", *req.Reason)
		}
	}

	s.publish(ctx, notify.KeyBookingResponse, &models.Notification{
		UserID:  lesson.StudentID,
		Title:   title,
		Message: message,
		Type:    "booking_response",
		Metadata: map[string]any{
			"lessonId":  lesson.ID,
			"teacherId": lesson.TeacherID,
			"accepted":  accepted,
		},
		Status: string(lesson.Status),
	})

	return toLessonResponse(lesson), nil
}

// StudentRespondToProposal is the student's answer to a teacher's
// alternative-time proposal: accept it, decline it, or counter-propose.
// A counter-proposal records the suggested time without advancing the
// status; the booking stays wherever it was.
func (s *Service) StudentRespondToProposal(ctx context.Context, lessonID string, req *api.StudentRespondRequest) (*api.LessonResponse, error) {
	const op = "service.StudentRespondToProposal"

	if !validUUIDs(lessonID) {
		return nil, fmt.Errorf("%s: %w", op, response.ErrInvalidID)
	}

	unlock, err := s.acquire(ctx, lock.Key("lesson", lessonID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	lesson, err := s.store.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if lesson.Status != models.StatusPending || lesson.ProposedTime == nil {
		return nil, fmt.Errorf("%s: no pending proposal to respond to: %w", op, response.ErrInvalidState)
	}

	studentName := s.userName(ctx, lesson.StudentID, profile.FallbackStudentName)
	accepted := req.Accepted
	refused := !req.Accepted

	switch {
	case accepted:
		newTime := *lesson.ProposedTime

		now := s.clock.Now()
		if !newTime.After(now) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrPastTime)
		}
		if err := s.ValidateLessonTime(ctx, lesson.TeacherID, lesson.StudentID, newTime, lesson.ID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		lesson.ScheduledAt = newTime
		lesson.Status = models.StatusConfirmed
		lesson.StudentConfirmed = &accepted
		lesson.StudentRefused = &refused
		lesson.ProposedTime = nil

		if err := s.store.UpdateLesson(ctx, lesson); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		date, hour := frDateTime(newTime)
		s.publish(ctx, notify.KeyBookingResponse, &models.Notification{
			UserID:  lesson.TeacherID,
			Title:   "Proposition acceptée",
			Message: fmt.Sprintf("%s a accepté le créneau du %s à %s.", studentName, date, hour),
			Type:    "booking_response",
			Metadata: map[string]any{
				"lessonId":  lesson.ID,
				"studentId": lesson.StudentID,
			},
			Status: string(lesson.Status),
		})

	case req.NewSuggestedTime != nil:
		suggested, err := time.Parse(time.RFC3339, *req.NewSuggestedTime)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid new_suggested_time: %w", op, response.ErrBadRequest)
		}

		// The status deliberately stays as-is here: the negotiation detail
		// lives in studentAlternativeTime / studentConfirmed / studentRefused.
		lesson.StudentAlternativeTime = &suggested
		lesson.StudentConfirmed = &accepted
		lesson.StudentRefused = &refused

		if err := s.store.UpdateLesson(ctx, lesson); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		date, hour := frDateTime(suggested)
		s.publish(ctx, notify.KeyBookingProposal, &models.Notification{
			UserID:  lesson.TeacherID,
			Title:   "Contre-proposition de l'étudiant",
			Message: fmt.Sprintf("%s propose un autre créneau le %s à %s.", studentName, date, hour),
			Type:    "booking_proposal",
			Metadata: map[string]any{
				"lessonId":      lesson.ID,
				"studentId":     lesson.StudentID,
				"suggestedTime": suggested,
			},
			Status: string(lesson.Status),
		})

	default:
		lesson.Status = models.StatusRejected
		lesson.StudentConfirmed = &accepted
		lesson.StudentRefused = &refused
		lesson.ProposedTime = nil

		if err := s.store.UpdateLesson(ctx, lesson); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		s.publish(ctx, notify.KeyBookingResponse, &models.Notification{
			UserID:  lesson.TeacherID,
			Title:   "Proposition refusée",
			Message: fmt.Sprintf("%s a refusé le créneau proposé.", studentName),
			Type:    "booking_response",
			Metadata: map[string]any{
				"lessonId":  lesson.ID,
				"studentId": lesson.StudentID,
			},
			Status: string(lesson.Status),
		})
	}

	return toLessonResponse(lesson), nil
}

// StartLesson flips a confirmed lesson into the live session.
func (s *Service) StartLesson(ctx context.Context, lessonID, startedBy string) (*api.LessonResponse, error) {
	const op = "service.StartLesson"

	if !validUUIDs(lessonID, startedBy) {
		return nil, fmt.Errorf("%s: %w", op, response.ErrInvalidID)
	}

	unlock, err := s.acquire(ctx, lock.Key("lesson", lessonID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	lesson, err := s.store.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if lesson.Status != models.StatusConfirmed {
		return nil, fmt.Errorf("%s: can only start a confirmed lesson: %w", op, response.ErrInvalidState)
	}

	now := s.clock.Now()
	lesson.Status = models.StatusInProgress
	lesson.StartedAt = &now
	lesson.VideoCallStarted = true
	lesson.StartedBy = &startedBy

	if err := s.store.UpdateLesson(ctx, lesson); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	recipient := lesson.TeacherID
	starterFallback := profile.FallbackStudentName
	if startedBy == lesson.TeacherID {
		recipient = lesson.StudentID
		starterFallback = profile.FallbackTeacherName
	}
	starterName := s.userName(ctx, startedBy, starterFallback)

	s.publish(ctx, notify.KeyLessonStarted, &models.Notification{
		UserID:  recipient,
		Title:   "Le cours a commencé",
		Message: fmt.Sprintf("%s a démarré le cours.", starterName),
		Type:    "lesson_started",
		Metadata: map[string]any{
			"lessonId":  lesson.ID,
			"startedBy": startedBy,
		},
		Status: string(lesson.Status),
	})

	return toLessonResponse(lesson), nil
}

// EndLesson completes a lesson that is in progress.
func (s *Service) EndLesson(ctx context.Context, lessonID, endedBy string) (*api.LessonResponse, error) {
	const op = "service.EndLesson"

	if !validUUIDs(lessonID, endedBy) {
		return nil, fmt.Errorf("%s: %w", op, response.ErrInvalidID)
	}

	unlock, err := s.acquire(ctx, lock.Key("lesson", lessonID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	lesson, err := s.store.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if lesson.Status != models.StatusInProgress {
		return nil, fmt.Errorf("%s: can only end a lesson in progress: %w", op, response.ErrInvalidState)
	}

	now := s.clock.Now()
	lesson.Status = models.StatusCompleted
	lesson.EndedAt = &now

	if err := s.store.UpdateLesson(ctx, lesson); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toLessonResponse(lesson), nil
}

// CancelLessonByStudent cancels a confirmed lesson. Cancelling strictly
// later than two hours before the start forfeits the refund.
func (s *Service) CancelLessonByStudent(ctx context.Context, lessonID, reason string) (*api.LessonResponse, error) {
	const op = "service.CancelLessonByStudent"

	if !validUUIDs(lessonID) {
		return nil, fmt.Errorf("%s: %w", op, response.ErrInvalidID)
	}

	unlock, err := s.acquire(ctx, lock.Key("lesson", lessonID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	lesson, err := s.store.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if lesson.Status != models.StatusConfirmed {
		return nil, fmt.Errorf("%s: only confirmed lessons can be cancelled: %w", op, response.ErrInvalidState)
	}

	now := s.clock.Now()
	withinTwoHours := now.After(lesson.ScheduledAt.Add(-models.RefundCutoff))

	if withinTwoHours {
		lesson.Status = models.StatusCancelledByStudentNoRefund
	} else {
		lesson.Status = models.StatusCancelledByStudent
	}
	lesson.CancelledAt = &now
	lesson.CancellationReason = &reason

	if err := s.store.UpdateLesson(ctx, lesson); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refund := !withinTwoHours
	studentName := s.userName(ctx, lesson.StudentID, profile.FallbackStudentName)
	date, hour := frDateTime(lesson.ScheduledAt)

	message := fmt.Sprintf("%s a annulé le cours du %s à %s. Le paiement sera remboursé.", studentName, date, hour)
	if !refund {
		message = fmt.Sprintf("%s a annulé le cours du %s à %s. Annulation à moins de 2h : pas de remboursement.", studentName, date, hour)
	}

	s.publish(ctx, notify.KeyLessonCancelled, &models.Notification{
		UserID:  lesson.TeacherID,
		Title:   "Cours annulé",
		Message: message,
		Type:    "lesson_cancelled",
		Metadata: map[string]any{
			"lessonId":        lesson.ID,
			"studentId":       lesson.StudentID,
			"refundAvailable": refund,
		},
		Status: string(lesson.Status),
	})

	resp := toLessonResponse(lesson)
	resp.RefundAvailable = &refund

	return resp, nil
}

// acquire takes a short-lived exclusive lock, translating "already held"
// into ErrLocked.
func (s *Service) acquire(ctx context.Context, key string) (func(), error) {
	locked, err := s.locker.Lock(ctx, key, lock.DefaultTTL)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, response.ErrLocked
	}

	return func() {
		if err := s.locker.Unlock(ctx, key); err != nil {
			s.log.Warn("Failed to release lock", slog.String("key", key), sl.Err(err))
		}
	}, nil
}

// publish sends a lifecycle notification. Publish failures never fail the
// mutation that triggered them; they are logged and dropped.
func (s *Service) publish(ctx context.Context, routingKey string, n *models.Notification) {
	if err := s.notifier.Publish(ctx, routingKey, n); err != nil {
		s.log.Error("Failed to publish notification",
			slog.String("routing_key", routingKey),
			slog.String("user_id", n.UserID),
			sl.Err(err),
		)
	}
}

// userName resolves a display name, degrading to a placeholder when the
// auth service is unavailable.
func (s *Service) userName(ctx context.Context, userID, fallback string) string {
	info, err := s.profiles.GetUserInfo(ctx, userID)
	if err != nil {
		s.log.Warn("Failed to resolve user profile", slog.String("user_id", userID), sl.Err(err))
		return fallback
	}

	return info.FullName()
}

func validUUIDs(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}

func frDateTime(t time.Time) (string, string) {
	return t.Format("02/01/2006"), t.Format("15:04")
}

func toLessonResponse(l *models.Lesson) *api.LessonResponse {
	return &api.LessonResponse{
		ID:                     l.ID,
		TeacherID:              l.TeacherID,
		StudentID:              l.StudentID,
		ScheduledAt:            l.ScheduledAt,
		Status:                 string(l.Status),
		CreatedAt:              l.CreatedAt,
		ProposedByTeacherAt:    l.ProposedByTeacherAt,
		ProposedTime:           l.ProposedTime,
		StudentConfirmed:       l.StudentConfirmed,
		StudentRefused:         l.StudentRefused,
		StudentAlternativeTime: l.StudentAlternativeTime,
		StartedAt:              l.StartedAt,
		EndedAt:                l.EndedAt,
		CancelledAt:            l.CancelledAt,
		CancellationReason:     l.CancellationReason,
		VideoCallStarted:       l.VideoCallStarted,
		StartedBy:              l.StartedBy,
	}
}
