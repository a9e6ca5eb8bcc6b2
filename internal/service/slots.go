package service

import (
	"context"
	"fmt"
	"time"

	"github.com/GermanBurdin1/lesson-service/api"
	"github.com/GermanBurdin1/lesson-service/internal/models"
	"github.com/GermanBurdin1/lesson-service/internal/profile"
	"github.com/GermanBurdin1/lesson-service/pkg/response"
)

const (
	slotTypeAvailable = "available"
	slotTypeLesson    = "lesson"
	slotTypeBreak     = "break"
	slotTypeBlocked   = "blocked"

	notePreparation = "préparation"
	notePauseAfter  = "pause après le cours"
)

// GetAvailableSlots builds the teacher's day grid: every 30 minutes from
// 08:00 to 21:30, each point classified against that day's lessons. Slots
// at or before "now" are dropped so a same-day query never offers the past.
func (s *Service) GetAvailableSlots(ctx context.Context, teacherID string, date time.Time) ([]*api.SlotInfo, error) {
	const op = "service.GetAvailableSlots"

	if !validUUIDs(teacherID) {
		return nil, fmt.Errorf("%s: %w", op, response.ErrInvalidID)
	}

	lessons, err := s.store.FindTeacherLessonsForDay(ctx, teacherID, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Name lookups degrade per lesson, never failing the whole grid.
	names := make(map[string]string, len(lessons))
	for _, l := range lessons {
		names[l.ID] = s.userName(ctx, l.StudentID, profile.FallbackStudentName)
	}

	now := s.clock.Now()
	loc := date.Location()
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), models.DayStartHour, 0, 0, 0, loc)
	dayEnd := time.Date(date.Year(), date.Month(), date.Day(), models.DayEndHour, models.DayEndMinute, 0, 0, loc)

	var slots []*api.SlotInfo
	for t := dayStart; !t.After(dayEnd); t = t.Add(models.SlotStep) {
		if !t.After(now) {
			continue
		}
		slots = append(slots, classifySlot(t, lessons, names))
	}

	mergeAvailableWindows(slots)

	return slots, nil
}

// classifySlot checks one grid point against every lesson of the day, in
// chronological order. For each lesson the first matching rule wins; the
// first lesson that marks the point unavailable decides the slot.
func classifySlot(t time.Time, lessons []*models.Lesson, names map[string]string) *api.SlotInfo {
	for _, l := range lessons {
		start := l.ScheduledAt
		end := start.Add(models.LessonDuration)

		switch {
		case !t.Before(start) && t.Before(end):
			name := names[l.ID]
			return &api.SlotInfo{
				Time:        t,
				Type:        slotTypeLesson,
				Available:   false,
				LessonID:    &l.ID,
				StudentName: &name,
			}

		case !t.Before(start.Add(-models.BreakDuration)) && t.Before(start):
			minutes := int(start.Sub(t).Minutes())
			note := notePreparation
			return &api.SlotInfo{
				Time:          t,
				Type:          slotTypeBreak,
				Available:     false,
				LessonID:      &l.ID,
				Note:          &note,
				MinutesBefore: &minutes,
			}

		case !t.Before(end) && t.Before(end.Add(models.BreakDuration)):
			note := notePauseAfter
			return &api.SlotInfo{
				Time:      t,
				Type:      slotTypeBreak,
				Available: false,
				LessonID:  &l.ID,
				Note:      &note,
			}

		// A lesson started here would itself run into the buffered zone
		// [start-15min, end+15min) around the existing lesson.
		case t.Before(end.Add(models.BreakDuration)) && t.Add(models.LessonDuration).After(start.Add(-models.BreakDuration)):
			return &api.SlotInfo{
				Time:      t,
				Type:      slotTypeBlocked,
				Available: false,
				LessonID:  &l.ID,
			}
		}
	}

	return &api.SlotInfo{
		Time:      t,
		Type:      slotTypeAvailable,
		Available: true,
	}
}

// mergeAvailableWindows annotates every slot of a contiguous available run
// with the run's bounds and total length in minutes.
func mergeAvailableWindows(slots []*api.SlotInfo) {
	for i := 0; i < len(slots); {
		if slots[i].Type != slotTypeAvailable {
			i++
			continue
		}

		j := i
		for j < len(slots) && slots[j].Type == slotTypeAvailable {
			j++
		}

		windowStart := slots[i].Time
		windowEnd := slots[j-1].Time.Add(models.SlotStep)
		minutes := int(windowEnd.Sub(windowStart).Minutes())

		for k := i; k < j; k++ {
			start := windowStart
			end := windowEnd
			m := minutes
			slots[k].WindowStart = &start
			slots[k].WindowEnd = &end
			slots[k].WindowMinutes = &m
		}

		i = j
	}
}
