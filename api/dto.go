package api

import "time"

type BookLessonRequest struct {
	StudentID   string `json:"student_id"`
	TeacherID   string `json:"teacher_id"`
	ScheduledAt string `json:"scheduled_at"`
}

type RespondToBookingRequest struct {
	Accepted           bool    `json:"accepted"`
	Reason             *string `json:"reason,omitempty"`
	ProposeAlternative bool    `json:"propose_alternative,omitempty"`
	ProposedTime       *string `json:"proposed_time,omitempty"`
}

type StudentRespondRequest struct {
	Accepted         bool    `json:"accepted"`
	NewSuggestedTime *string `json:"new_suggested_time,omitempty"`
}

type StartLessonRequest struct {
	StartedBy string `json:"started_by"`
}

type EndLessonRequest struct {
	EndedBy string `json:"ended_by"`
}

type CancelLessonRequest struct {
	Reason string `json:"reason"`
}

type LessonResponse struct {
	ID                     string     `json:"id"`
	TeacherID              string     `json:"teacher_id"`
	StudentID              string     `json:"student_id"`
	ScheduledAt            time.Time  `json:"scheduled_at"`
	Status                 string     `json:"status"`
	CreatedAt              time.Time  `json:"created_at"`
	ProposedByTeacherAt    *time.Time `json:"proposed_by_teacher_at,omitempty"`
	ProposedTime           *time.Time `json:"proposed_time,omitempty"`
	StudentConfirmed       *bool      `json:"student_confirmed,omitempty"`
	StudentRefused         *bool      `json:"student_refused,omitempty"`
	StudentAlternativeTime *time.Time `json:"student_alternative_time,omitempty"`
	StartedAt              *time.Time `json:"started_at,omitempty"`
	EndedAt                *time.Time `json:"ended_at,omitempty"`
	CancelledAt            *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason     *string    `json:"cancellation_reason,omitempty"`
	VideoCallStarted       bool       `json:"video_call_started"`
	StartedBy              *string    `json:"started_by,omitempty"`
	TeacherName            *string    `json:"teacher_name,omitempty"`
	StudentName            *string    `json:"student_name,omitempty"`
	RefundAvailable        *bool      `json:"refund_available,omitempty"`
}

// SlotInfo is one 30-minute point of a teacher's day grid. Available slots
// inside one contiguous free window all carry the window bounds so a client
// can render "09:00-11:00 available" instead of four separate entries.
type SlotInfo struct {
	Time          time.Time  `json:"time"`
	Type          string     `json:"type"` // available | lesson | break | blocked
	Available     bool       `json:"available"`
	LessonID      *string    `json:"lesson_id,omitempty"`
	StudentName   *string    `json:"student_name,omitempty"`
	Note          *string    `json:"note,omitempty"`
	MinutesBefore *int       `json:"minutes_before_lesson,omitempty"`
	WindowStart   *time.Time `json:"window_start,omitempty"`
	WindowEnd     *time.Time `json:"window_end,omitempty"`
	WindowMinutes *int       `json:"window_minutes,omitempty"`
}

type UserSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PagedLessonsResponse struct {
	Data     []*LessonResponse `json:"data"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

type StatsResponse struct {
	TotalLessons     int `json:"totalLessons"`
	CompletedLessons int `json:"completedLessons"`
	CancelledLessons int `json:"cancelledLessons"`
	SuccessRate      int `json:"successRate"`
}
