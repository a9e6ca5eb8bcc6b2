package service

import (
	"context"
	"fmt"
	"time"

	"github.com/GermanBurdin1/lesson-service/internal/models"
)

// ValidateLessonTime checks a candidate start time against every active
// lesson of the teacher or the student on the same calendar day. A lesson
// occupies [start, start+60min); on top of that, two lessons must start at
// least 75 minutes apart.
//
// The break rule compares start-to-start distance rather than the true
// edge-to-edge gap. That is how the platform has always behaved and clients
// rely on the 75 minute spacing, so it stays.
func (s *Service) ValidateLessonTime(ctx context.Context, teacherID, studentID string, scheduledAt time.Time, excludeID string) error {
	const op = "service.ValidateLessonTime"

	lessonStart := scheduledAt
	lessonEnd := lessonStart.Add(models.LessonDuration)

	existing, err := s.store.FindActiveForDay(ctx, teacherID, studentID, scheduledAt, excludeID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, other := range existing {
		party := models.RoleStudent
		if other.TeacherID == teacherID {
			party = models.RoleTeacher
		}

		existingStart := other.ScheduledAt
		existingEnd := existingStart.Add(models.LessonDuration)

		if lessonStart.Before(existingEnd) && lessonEnd.After(existingStart) {
			return fmt.Errorf("%s: %w", op, &models.SlotConflictError{
				Kind:  models.ConflictOverlap,
				Party: party,
				At:    existingStart,
			})
		}

		gap := lessonStart.Sub(existingStart)
		if gap < 0 {
			gap = -gap
		}
		if gap < models.MinStartToStart {
			return fmt.Errorf("%s: %w", op, &models.SlotConflictError{
				Kind:  models.ConflictInsufficientBreak,
				Party: party,
				At:    existingStart,
			})
		}
	}

	return nil
}
