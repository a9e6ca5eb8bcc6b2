package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GermanBurdin1/lesson-service/internal/models"
	"github.com/GermanBurdin1/lesson-service/pkg/response"
)

func TestValidateLessonTime(t *testing.T) {
	teacherID := uuid.NewString()
	studentID := uuid.NewString()
	otherStudent := uuid.NewString()

	day := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	at := func(hour, minute int) time.Time {
		return time.Date(2026, 9, 14, hour, minute, 0, 0, time.UTC)
	}

	existing := &models.Lesson{
		ID:          uuid.NewString(),
		TeacherID:   teacherID,
		StudentID:   otherStudent,
		ScheduledAt: at(10, 0),
		Status:      models.StatusConfirmed,
		CreatedAt:   day,
	}

	newService := func(lessons ...*models.Lesson) *Service {
		return newTestService(newFakeStore(lessons...), newFakeLocker(), &spyNotifier{}, nil, at(7, 0))
	}

	t.Run("OverlapRejected", func(t *testing.T) {
		svc := newService(existing)

		err := svc.ValidateLessonTime(context.Background(), teacherID, studentID, at(10, 30), "")
		require.Error(t, err)
		assert.ErrorIs(t, err, response.ErrConflict)

		var conflict *models.SlotConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, models.ConflictOverlap, conflict.Kind)
		assert.Equal(t, models.RoleTeacher, conflict.Party)
		assert.Equal(t, at(10, 0), conflict.At)
	})

	t.Run("InsufficientBreakRejected", func(t *testing.T) {
		svc := newService(existing)

		// 11:10 clears the lesson itself but starts only 70 minutes after it.
		err := svc.ValidateLessonTime(context.Background(), teacherID, studentID, at(11, 10), "")
		require.Error(t, err)

		var conflict *models.SlotConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, models.ConflictInsufficientBreak, conflict.Kind)
	})

	t.Run("ExactSpacingAccepted", func(t *testing.T) {
		svc := newService(existing)

		err := svc.ValidateLessonTime(context.Background(), teacherID, studentID, at(11, 15), "")
		assert.NoError(t, err)
	})

	t.Run("EarlierSlotRespectsSpacingBothWays", func(t *testing.T) {
		svc := newService(existing)

		err := svc.ValidateLessonTime(context.Background(), teacherID, studentID, at(8, 50), "")
		require.Error(t, err)

		err = svc.ValidateLessonTime(context.Background(), teacherID, studentID, at(8, 45), "")
		assert.NoError(t, err)
	})

	t.Run("StudentSideConflictNamesStudent", func(t *testing.T) {
		otherTeacher := uuid.NewString()
		studentLesson := &models.Lesson{
			ID:          uuid.NewString(),
			TeacherID:   otherTeacher,
			StudentID:   studentID,
			ScheduledAt: at(14, 0),
			Status:      models.StatusConfirmed,
			CreatedAt:   day,
		}
		svc := newService(studentLesson)

		err := svc.ValidateLessonTime(context.Background(), teacherID, studentID, at(14, 30), "")
		require.Error(t, err)

		var conflict *models.SlotConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, models.RoleStudent, conflict.Party)
	})

	t.Run("PendingLessonsDoNotBlock", func(t *testing.T) {
		pending := &models.Lesson{
			ID:          uuid.NewString(),
			TeacherID:   teacherID,
			StudentID:   otherStudent,
			ScheduledAt: at(10, 0),
			Status:      models.StatusPending,
			CreatedAt:   day,
		}
		svc := newService(pending)

		err := svc.ValidateLessonTime(context.Background(), teacherID, studentID, at(10, 0), "")
		assert.NoError(t, err)
	})

	t.Run("ExcludeIDSkipsOwnLesson", func(t *testing.T) {
		svc := newService(existing)

		// Revalidating the same lesson against its own slot must pass.
		err := svc.ValidateLessonTime(context.Background(), teacherID, otherStudent, at(10, 0), existing.ID)
		assert.NoError(t, err)
	})

	t.Run("OtherDaysIgnored", func(t *testing.T) {
		svc := newService(existing)

		nextDay := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
		err := svc.ValidateLessonTime(context.Background(), teacherID, studentID, nextDay, "")
		assert.NoError(t, err)
	})
}
