package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/GermanBurdin1/lesson-service/internal/models"
	"github.com/GermanBurdin1/lesson-service/pkg/response"
)

type Storage struct {
	db *sql.DB
}

func New(storagePath string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("postgres", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

const lessonColumns = `id, teacher_id, student_id, scheduled_at, status, created_at,
	proposed_by_teacher_at, proposed_time, student_confirmed, student_refused,
	student_alternative_time, started_at, ended_at, cancelled_at,
	cancellation_reason, video_call_started, started_by`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLesson(row rowScanner) (*models.Lesson, error) {
	var l models.Lesson

	err := row.Scan(
		&l.ID,
		&l.TeacherID,
		&l.StudentID,
		&l.ScheduledAt,
		&l.Status,
		&l.CreatedAt,
		&l.ProposedByTeacherAt,
		&l.ProposedTime,
		&l.StudentConfirmed,
		&l.StudentRefused,
		&l.StudentAlternativeTime,
		&l.StartedAt,
		&l.EndedAt,
		&l.CancelledAt,
		&l.CancellationReason,
		&l.VideoCallStarted,
		&l.StartedBy,
	)
	if err != nil {
		return nil, err
	}

	return &l, nil
}

func (s *Storage) queryLessons(ctx context.Context, query string, args ...any) ([]*models.Lesson, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lessons []*models.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}

	return lessons, rows.Err()
}

func (s *Storage) GetLesson(ctx context.Context, id string) (*models.Lesson, error) {
	const op = "storage.postgres.GetLesson"

	row := s.db.QueryRowContext(ctx,
		`SELECT `+lessonColumns+` FROM lessons WHERE id = $1`, id)

	lesson, err := scanLesson(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return lesson, nil
}

func (s *Storage) CreateLesson(ctx context.Context, l *models.Lesson) error {
	const op = "storage.postgres.CreateLesson"

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lessons (
			id, teacher_id, student_id, scheduled_at, status, created_at,
			video_call_started
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		l.ID, l.TeacherID, l.StudentID, l.ScheduledAt, l.Status, l.CreatedAt,
		l.VideoCallStarted,
	)
	if err != nil {
		// The partial unique indexes on active slots are the last line of
		// defence against concurrent overlapping inserts.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%s: %w", op, response.ErrConflict)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) UpdateLesson(ctx context.Context, l *models.Lesson) error {
	const op = "storage.postgres.UpdateLesson"

	res, err := s.db.ExecContext(ctx, `
		UPDATE lessons SET
			scheduled_at = $2,
			status = $3,
			proposed_by_teacher_at = $4,
			proposed_time = $5,
			student_confirmed = $6,
			student_refused = $7,
			student_alternative_time = $8,
			started_at = $9,
			ended_at = $10,
			cancelled_at = $11,
			cancellation_reason = $12,
			video_call_started = $13,
			started_by = $14
		WHERE id = $1`,
		l.ID, l.ScheduledAt, l.Status, l.ProposedByTeacherAt, l.ProposedTime,
		l.StudentConfirmed, l.StudentRefused, l.StudentAlternativeTime,
		l.StartedAt, l.EndedAt, l.CancelledAt, l.CancellationReason,
		l.VideoCallStarted, l.StartedBy,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return start, start.AddDate(0, 0, 1)
}

func (s *Storage) FindActiveForDay(ctx context.Context, teacherID, studentID string, day time.Time, excludeID string) ([]*models.Lesson, error) {
	const op = "storage.postgres.FindActiveForDay"

	dayStart, dayEnd := dayBounds(day)

	query := `SELECT ` + lessonColumns + ` FROM lessons
		WHERE (teacher_id = $1 OR student_id = $2)
		  AND status IN ('confirmed', 'in_progress')
		  AND scheduled_at >= $3 AND scheduled_at < $4`
	args := []any{teacherID, studentID, dayStart, dayEnd}

	if excludeID != "" {
		query += ` AND id <> $5`
		args = append(args, excludeID)
	}
	query += ` ORDER BY scheduled_at`

	lessons, err := s.queryLessons(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return lessons, nil
}

func (s *Storage) FindTeacherLessonsForDay(ctx context.Context, teacherID string, day time.Time) ([]*models.Lesson, error) {
	const op = "storage.postgres.FindTeacherLessonsForDay"

	dayStart, dayEnd := dayBounds(day)

	lessons, err := s.queryLessons(ctx, `
		SELECT `+lessonColumns+` FROM lessons
		WHERE teacher_id = $1
		  AND status IN ('confirmed', 'in_progress')
		  AND scheduled_at >= $2 AND scheduled_at < $3
		ORDER BY scheduled_at`,
		teacherID, dayStart, dayEnd,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return lessons, nil
}

func (s *Storage) HasStudentRequestAt(ctx context.Context, studentID string, at time.Time) (bool, error) {
	const op = "storage.postgres.HasStudentRequestAt"

	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM lessons
			WHERE student_id = $1
			  AND scheduled_at = $2
			  AND status IN ('pending', 'confirmed')
		)`, studentID, at).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

func (s *Storage) ListForUser(ctx context.Context, userID string) ([]*models.Lesson, error) {
	const op = "storage.postgres.ListForUser"

	lessons, err := s.queryLessons(ctx, `
		SELECT `+lessonColumns+` FROM lessons
		WHERE teacher_id = $1 OR student_id = $1
		ORDER BY scheduled_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return lessons, nil
}

func (s *Storage) ListConfirmedForStudent(ctx context.Context, studentID string) ([]*models.Lesson, error) {
	const op = "storage.postgres.ListConfirmedForStudent"

	lessons, err := s.queryLessons(ctx, `
		SELECT `+lessonColumns+` FROM lessons
		WHERE student_id = $1 AND status = 'confirmed'
		ORDER BY scheduled_at ASC`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return lessons, nil
}

func (s *Storage) ListConfirmedForTeacher(ctx context.Context, teacherID string) ([]*models.Lesson, error) {
	const op = "storage.postgres.ListConfirmedForTeacher"

	lessons, err := s.queryLessons(ctx, `
		SELECT `+lessonColumns+` FROM lessons
		WHERE teacher_id = $1 AND status IN ('confirmed', 'in_progress')
		ORDER BY scheduled_at ASC`,
		teacherID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return lessons, nil
}

func (s *Storage) ListStudentRequestsPaged(ctx context.Context, studentID string, page, pageSize int) ([]*models.Lesson, int, error) {
	const op = "storage.postgres.ListStudentRequestsPaged"

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lessons WHERE student_id = $1`, studentID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	offset := (page - 1) * pageSize
	lessons, err := s.queryLessons(ctx, `
		SELECT `+lessonColumns+` FROM lessons
		WHERE student_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		studentID, pageSize, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return lessons, total, nil
}

func (s *Storage) CountCompletedForStudent(ctx context.Context, studentID string) (int, error) {
	const op = "storage.postgres.CountCompletedForStudent"

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM lessons
		WHERE student_id = $1 AND status = 'completed'`,
		studentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

// LessonsStats counts lessons scheduled within [from, to]. It tries three
// plain counts first; if any fails it retries as a single raw aggregate,
// and if that fails too it reports zeros rather than erroring, so a broken
// aggregate never takes a dashboard down with it.
func (s *Storage) LessonsStats(ctx context.Context, from, to time.Time) (*models.LessonsStats, error) {
	stats, err := s.countStats(ctx, from, to)
	if err == nil {
		return stats, nil
	}

	stats, err = s.rawStats(ctx, from, to)
	if err != nil {
		return &models.LessonsStats{}, nil
	}

	return stats, nil
}

func (s *Storage) countStats(ctx context.Context, from, to time.Time) (*models.LessonsStats, error) {
	const op = "storage.postgres.countStats"

	var stats models.LessonsStats

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM lessons
		WHERE scheduled_at >= $1 AND scheduled_at <= $2`,
		from, to).Scan(&stats.TotalLessons)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM lessons
		WHERE scheduled_at >= $1 AND scheduled_at <= $2 AND status = 'completed'`,
		from, to).Scan(&stats.CompletedLessons)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM lessons
		WHERE scheduled_at >= $1 AND scheduled_at <= $2
		  AND status IN ('cancelled_by_student', 'cancelled_by_student_no_refund')`,
		from, to).Scan(&stats.CancelledLessons)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &stats, nil
}

func (s *Storage) rawStats(ctx context.Context, from, to time.Time) (*models.LessonsStats, error) {
	const op = "storage.postgres.rawStats"

	var stats models.LessonsStats

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) AS total_lessons,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed_lessons,
			COUNT(*) FILTER (WHERE status LIKE 'cancelled%') AS cancelled_lessons
		FROM lessons
		WHERE scheduled_at >= $1 AND scheduled_at <= $2`,
		from, to).Scan(&stats.TotalLessons, &stats.CompletedLessons, &stats.CancelledLessons)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &stats, nil
}
