package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/GermanBurdin1/lesson-service/api"
	"github.com/GermanBurdin1/lesson-service/internal/models"
	"github.com/GermanBurdin1/lesson-service/internal/profile"
	"github.com/GermanBurdin1/lesson-service/pkg/response"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

func (s *Service) GetLessonByID(ctx context.Context, lessonID string) (*api.LessonResponse, error) {
	const op = "service.GetLessonByID"

	if !validUUIDs(lessonID) {
		return nil, fmt.Errorf("%s: %w", op, response.ErrInvalidID)
	}

	lesson, err := s.store.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp := toLessonResponse(lesson)
	teacherName := s.userName(ctx, lesson.TeacherID, profile.FallbackTeacherName)
	studentName := s.userName(ctx, lesson.StudentID, profile.FallbackStudentName)
	resp.TeacherName = &teacherName
	resp.StudentName = &studentName

	return resp, nil
}

func (s *Service) GetLessonsForUser(ctx context.Context, userID string) ([]*api.LessonResponse, error) {
	const op = "service.GetLessonsForUser"

	if !validUUIDs(userID) {
		return nil, fmt.Errorf("%s: %w", op, response.ErrInvalidID)
	}

	lessons, err := s.store.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]*api.LessonResponse, 0, len(lessons))
	for _, l := range lessons {
		result = append(result, toLessonResponse(l))
	}

	return result, nil
}

func (s *Service) GetConfirmedLessonsForStudent(ctx context.Context, studentID string) ([]*api.LessonResponse, error) {
	const op = "service.GetConfirmedLessonsForStudent"

	if !validUUIDs(studentID) {
		return nil, fmt.Errorf("%s: %w", op, response.ErrInvalidID)
	}

	lessons, err := s.store.ListConfirmedForStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]*api.LessonResponse, 0, len(lessons))
	for _, l := range lessons {
		resp := toLessonResponse(l)
		name := s.userName(ctx, l.TeacherID, profile.FallbackTeacherName)
		resp.TeacherName = &name
		result = append(result, resp)
	}

	return result, nil
}

func (s *Service) GetAllConfirmedLessonsForTeacher(ctx context.Context, teacherID string) ([]*api.LessonResponse, error) {
	const op = "service.GetAllConfirmedLessonsForTeacher"

	if !validUUIDs(teacherID) {
		return nil, fmt.Errorf("%s: invalid teacher id format: %w", op, response.ErrInvalidID)
	}

	lessons, err := s.store.ListConfirmedForTeacher(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]*api.LessonResponse, 0, len(lessons))
	for _, l := range lessons {
		resp := toLessonResponse(l)
		name := s.userName(ctx, l.StudentID, profile.FallbackStudentName)
		resp.StudentName = &name
		result = append(result, resp)
	}

	return result, nil
}

// GetTeachersForStudent lists the distinct teachers the student has
// confirmed lessons with.
func (s *Service) GetTeachersForStudent(ctx context.Context, studentID string) ([]*api.UserSummary, error) {
	const op = "service.GetTeachersForStudent"

	if !validUUIDs(studentID) {
		return nil, fmt.Errorf("%s: %w", op, response.ErrInvalidID)
	}

	lessons, err := s.store.ListConfirmedForStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.distinctParties(ctx, lessons, models.RoleTeacher), nil
}

// GetConfirmedStudentsForTeacher lists the distinct students the teacher
// has confirmed lessons with.
func (s *Service) GetConfirmedStudentsForTeacher(ctx context.Context, teacherID string) ([]*api.UserSummary, error) {
	const op = "service.GetConfirmedStudentsForTeacher"

	if !validUUIDs(teacherID) {
		return nil, fmt.Errorf("%s: %w", op, response.ErrInvalidID)
	}

	lessons, err := s.store.ListConfirmedForTeacher(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.distinctParties(ctx, lessons, models.RoleStudent), nil
}

func (s *Service) distinctParties(ctx context.Context, lessons []*models.Lesson, role models.Role) []*api.UserSummary {
	seen := make(map[string]struct{}, len(lessons))
	result := make([]*api.UserSummary, 0, len(lessons))

	for _, l := range lessons {
		id := l.StudentID
		fallback := profile.FallbackStudentName
		if role == models.RoleTeacher {
			id = l.TeacherID
			fallback = profile.FallbackTeacherName
		}

		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		result = append(result, &api.UserSummary{
			ID:   id,
			Name: s.userName(ctx, id, fallback),
		})
	}

	return result
}

func (s *Service) GetStudentSentRequestsPaged(ctx context.Context, studentID string, page, pageSize int) (*api.PagedLessonsResponse, error) {
	const op = "service.GetStudentSentRequestsPaged"

	if !validUUIDs(studentID) {
		return nil, fmt.Errorf("%s: %w", op, response.ErrInvalidID)
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	lessons, total, err := s.store.ListStudentRequestsPaged(ctx, studentID, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	data := make([]*api.LessonResponse, 0, len(lessons))
	for _, l := range lessons {
		data = append(data, toLessonResponse(l))
	}

	return &api.PagedLessonsResponse{
		Data:     data,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (s *Service) GetCompletedLessonsCount(ctx context.Context, studentID string) (int, error) {
	const op = "service.GetCompletedLessonsCount"

	if !validUUIDs(studentID) {
		return 0, fmt.Errorf("%s: %w", op, response.ErrInvalidID)
	}

	count, err := s.store.CountCompletedForStudent(ctx, studentID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

// GetLessonsStats aggregates lesson counts over a period. The storage layer
// degrades on its own (raw SQL fallback, then zeros), so this never fails a
// dashboard because of a broken aggregate.
func (s *Service) GetLessonsStats(ctx context.Context, from, to time.Time) (*api.StatsResponse, error) {
	const op = "service.GetLessonsStats"

	stats, err := s.store.LessonsStats(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	successRate := 0
	if stats.TotalLessons > 0 {
		successRate = int(math.Round(float64(stats.CompletedLessons) / float64(stats.TotalLessons) * 100))
	}

	return &api.StatsResponse{
		TotalLessons:     stats.TotalLessons,
		CompletedLessons: stats.CompletedLessons,
		CancelledLessons: stats.CancelledLessons,
		SuccessRate:      successRate,
	}, nil
}
