package models

import (
	"fmt"
	"time"

	"github.com/GermanBurdin1/lesson-service/pkg/response"
)

// Scheduling constants of the platform. A lesson always lasts one hour and
// needs a 15 minute break around it; the bookable day runs 08:00-21:30 on a
// 30 minute grid.
const (
	LessonDuration  = 60 * time.Minute
	BreakDuration   = 15 * time.Minute
	MinStartToStart = LessonDuration + BreakDuration

	SlotStep     = 30 * time.Minute
	DayStartHour = 8
	DayEndHour   = 21
	DayEndMinute = 30

	RefundCutoff = 2 * time.Hour
)

type LessonStatus string

const (
	StatusPending                    LessonStatus = "pending"
	StatusConfirmed                  LessonStatus = "confirmed"
	StatusRejected                   LessonStatus = "rejected"
	StatusCancelledByStudent         LessonStatus = "cancelled_by_student"
	StatusCancelledByStudentNoRefund LessonStatus = "cancelled_by_student_no_refund"
	StatusInProgress                 LessonStatus = "in_progress"
	StatusCompleted                  LessonStatus = "completed"
)

// IsTerminal reports whether no further status transition is allowed.
func (s LessonStatus) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusCompleted, StatusCancelledByStudent, StatusCancelledByStudentNoRefund:
		return true
	}
	return false
}

// IsActive reports whether the lesson still occupies its time slot.
func (s LessonStatus) IsActive() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress:
		return true
	}
	return false
}

type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

type Lesson struct {
	ID                     string       `db:"id"`
	TeacherID              string       `db:"teacher_id"`
	StudentID              string       `db:"student_id"`
	ScheduledAt            time.Time    `db:"scheduled_at"`
	Status                 LessonStatus `db:"status"`
	CreatedAt              time.Time    `db:"created_at"`
	ProposedByTeacherAt    *time.Time   `db:"proposed_by_teacher_at"`
	ProposedTime           *time.Time   `db:"proposed_time"`
	StudentConfirmed       *bool        `db:"student_confirmed"`
	StudentRefused         *bool        `db:"student_refused"`
	StudentAlternativeTime *time.Time   `db:"student_alternative_time"`
	StartedAt              *time.Time   `db:"started_at"`
	EndedAt                *time.Time   `db:"ended_at"`
	CancelledAt            *time.Time   `db:"cancelled_at"`
	CancellationReason     *string      `db:"cancellation_reason"`
	VideoCallStarted       bool         `db:"video_call_started"`
	StartedBy              *string      `db:"started_by"`
}

// End returns the moment the lesson finishes.
func (l *Lesson) End() time.Time {
	return l.ScheduledAt.Add(LessonDuration)
}

type ConflictKind string

const (
	ConflictOverlap           ConflictKind = "overlap"
	ConflictInsufficientBreak ConflictKind = "insufficient_break"
)

// SlotConflictError reports why a candidate slot was refused, naming the
// party whose existing lesson caused the refusal and the conflicting time.
type SlotConflictError struct {
	Kind  ConflictKind
	Party Role
	At    time.Time
}

func (e *SlotConflictError) Error() string {
	when := e.At.Format("02/01/2006 15:04")
	if e.Kind == ConflictInsufficientBreak {
		return fmt.Sprintf("insufficient break: %s has a lesson at %s, 75 minutes between starts required", e.Party, when)
	}
	return fmt.Sprintf("scheduling conflict: %s already has a lesson at %s", e.Party, when)
}

func (e *SlotConflictError) Is(target error) bool {
	return target == response.ErrConflict
}

type UserInfo struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Surname  string  `json:"surname"`
	PhotoURL *string `json:"photo_url,omitempty"`
}

// FullName joins name and surname, skipping empty parts.
func (u *UserInfo) FullName() string {
	if u.Surname == "" {
		return u.Name
	}
	return u.Name + " " + u.Surname
}

// Notification is the outbound event payload published to the message broker.
type Notification struct {
	UserID   string         `json:"user_id"`
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Type     string         `json:"type"`
	Metadata map[string]any `json:"metadata"`
	Status   string         `json:"status"`
}

type LessonsStats struct {
	TotalLessons     int
	CompletedLessons int
	CancelledLessons int
}
