package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GermanBurdin1/lesson-service/internal/models"
	"github.com/GermanBurdin1/lesson-service/pkg/response"
)

func TestGetAvailableSlots(t *testing.T) {
	teacherID := uuid.NewString()
	studentID := uuid.NewString()

	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	at := func(hour, minute int) time.Time {
		return time.Date(2026, 9, 14, hour, minute, 0, 0, time.UTC)
	}
	dayBefore := date.AddDate(0, 0, -1)

	findSlot := func(t *testing.T, svc *Service, when time.Time) (slotType string, available bool) {
		t.Helper()
		slots, err := svc.GetAvailableSlots(context.Background(), teacherID, date)
		require.NoError(t, err)
		for _, s := range slots {
			if s.Time.Equal(when) {
				return s.Type, s.Available
			}
		}
		t.Fatalf("no slot at %s", when)
		return "", false
	}

	t.Run("EmptyDayIsOneFullWindow", func(t *testing.T) {
		svc := newTestService(newFakeStore(), newFakeLocker(), &spyNotifier{}, nil, dayBefore)

		slots, err := svc.GetAvailableSlots(context.Background(), teacherID, date)
		require.NoError(t, err)
		require.Len(t, slots, 28)

		first, last := slots[0], slots[len(slots)-1]
		assert.Equal(t, at(8, 0), first.Time)
		assert.Equal(t, at(21, 30), last.Time)

		for _, s := range slots {
			assert.True(t, s.Available)
			require.NotNil(t, s.WindowStart)
			assert.Equal(t, at(8, 0), *s.WindowStart)
			assert.Equal(t, at(22, 0), *s.WindowEnd)
			assert.Equal(t, 840, *s.WindowMinutes)
		}
	})

	t.Run("BookedLessonShapesTheGrid", func(t *testing.T) {
		lesson := &models.Lesson{
			ID:          uuid.NewString(),
			TeacherID:   teacherID,
			StudentID:   studentID,
			ScheduledAt: at(10, 0),
			Status:      models.StatusConfirmed,
			CreatedAt:   dayBefore,
		}
		profiles := &stubProfiles{names: map[string]*models.UserInfo{
			studentID: {ID: studentID, Name: "Marie", Surname: "Curie"},
		}}
		svc := newTestService(newFakeStore(lesson), newFakeLocker(), &spyNotifier{}, profiles, dayBefore)

		slots, err := svc.GetAvailableSlots(context.Background(), teacherID, date)
		require.NoError(t, err)

		byTime := make(map[time.Time]int, len(slots))
		for i, s := range slots {
			byTime[s.Time] = i
		}

		lessonSlot := slots[byTime[at(10, 0)]]
		assert.Equal(t, "lesson", lessonSlot.Type)
		assert.False(t, lessonSlot.Available)
		require.NotNil(t, lessonSlot.StudentName)
		assert.Equal(t, "Marie Curie", *lessonSlot.StudentName)
		require.NotNil(t, lessonSlot.LessonID)
		assert.Equal(t, lesson.ID, *lessonSlot.LessonID)

		assert.Equal(t, "lesson", slots[byTime[at(10, 30)]].Type)
		assert.Equal(t, "break", slots[byTime[at(11, 0)]].Type)

		// A lesson started at 9:00 or 9:30 would run into the buffered zone.
		assert.Equal(t, "blocked", slots[byTime[at(9, 0)]].Type)
		assert.Equal(t, "blocked", slots[byTime[at(9, 30)]].Type)

		morning := slots[byTime[at(8, 0)]]
		require.Equal(t, "available", morning.Type)
		assert.Equal(t, at(8, 0), *morning.WindowStart)
		assert.Equal(t, at(9, 0), *morning.WindowEnd)
		assert.Equal(t, 60, *morning.WindowMinutes)

		afternoon := slots[byTime[at(11, 30)]]
		require.Equal(t, "available", afternoon.Type)
		assert.Equal(t, at(11, 30), *afternoon.WindowStart)
		assert.Equal(t, at(22, 0), *afternoon.WindowEnd)
		assert.Equal(t, 630, *afternoon.WindowMinutes)
	})

	t.Run("PreparationSlotBeforeOffGridLesson", func(t *testing.T) {
		lesson := &models.Lesson{
			ID:          uuid.NewString(),
			TeacherID:   teacherID,
			StudentID:   studentID,
			ScheduledAt: at(10, 15),
			Status:      models.StatusConfirmed,
			CreatedAt:   dayBefore,
		}
		svc := newTestService(newFakeStore(lesson), newFakeLocker(), &spyNotifier{}, nil, dayBefore)

		slots, err := svc.GetAvailableSlots(context.Background(), teacherID, date)
		require.NoError(t, err)

		for _, s := range slots {
			if !s.Time.Equal(at(10, 0)) {
				continue
			}
			assert.Equal(t, "break", s.Type)
			require.NotNil(t, s.MinutesBefore)
			assert.Equal(t, 15, *s.MinutesBefore)
			return
		}
		t.Fatal("no slot at 10:00")
	})

	t.Run("PastSlotsAreDropped", func(t *testing.T) {
		svc := newTestService(newFakeStore(), newFakeLocker(), &spyNotifier{}, nil, at(12, 10))

		slots, err := svc.GetAvailableSlots(context.Background(), teacherID, date)
		require.NoError(t, err)
		require.NotEmpty(t, slots)
		assert.Equal(t, at(12, 30), slots[0].Time)
	})

	t.Run("InProgressLessonStillOccupiesItsSlot", func(t *testing.T) {
		lesson := &models.Lesson{
			ID:          uuid.NewString(),
			TeacherID:   teacherID,
			StudentID:   studentID,
			ScheduledAt: at(15, 0),
			Status:      models.StatusInProgress,
			CreatedAt:   dayBefore,
		}
		svc := newTestService(newFakeStore(lesson), newFakeLocker(), &spyNotifier{}, nil, dayBefore)

		slotType, available := findSlot(t, svc, at(15, 0))
		assert.Equal(t, "lesson", slotType)
		assert.False(t, available)
	})

	t.Run("CancelledLessonFreesItsSlot", func(t *testing.T) {
		lesson := &models.Lesson{
			ID:          uuid.NewString(),
			TeacherID:   teacherID,
			StudentID:   studentID,
			ScheduledAt: at(15, 0),
			Status:      models.StatusCancelledByStudent,
			CreatedAt:   dayBefore,
		}
		svc := newTestService(newFakeStore(lesson), newFakeLocker(), &spyNotifier{}, nil, dayBefore)

		slotType, available := findSlot(t, svc, at(15, 0))
		assert.Equal(t, "available", slotType)
		assert.True(t, available)
	})

	t.Run("RepeatedQueryIsIdentical", func(t *testing.T) {
		lesson := &models.Lesson{
			ID:          uuid.NewString(),
			TeacherID:   teacherID,
			StudentID:   studentID,
			ScheduledAt: at(10, 0),
			Status:      models.StatusConfirmed,
			CreatedAt:   dayBefore,
		}
		svc := newTestService(newFakeStore(lesson), newFakeLocker(), &spyNotifier{}, nil, dayBefore)

		first, err := svc.GetAvailableSlots(context.Background(), teacherID, date)
		require.NoError(t, err)
		second, err := svc.GetAvailableSlots(context.Background(), teacherID, date)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("InvalidTeacherID", func(t *testing.T) {
		svc := newTestService(newFakeStore(), newFakeLocker(), &spyNotifier{}, nil, dayBefore)

		_, err := svc.GetAvailableSlots(context.Background(), "not-a-uuid", date)
		assert.ErrorIs(t, err, response.ErrInvalidID)
	})
}
