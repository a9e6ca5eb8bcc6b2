package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/GermanBurdin1/lesson-service/internal/models"
	"github.com/GermanBurdin1/lesson-service/pkg/response"
)

type fakeStore struct {
	mu      sync.Mutex
	lessons map[string]*models.Lesson
	stats   *models.LessonsStats

	createErr error
	updateErr error
	listErr   error
}

func newFakeStore(lessons ...*models.Lesson) *fakeStore {
	s := &fakeStore{lessons: make(map[string]*models.Lesson)}
	for _, l := range lessons {
		cp := *l
		s.lessons[l.ID] = &cp
	}
	return s
}

func (s *fakeStore) GetLesson(_ context.Context, id string) (*models.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lessons[id]
	if !ok {
		return nil, response.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *fakeStore) CreateLesson(_ context.Context, lesson *models.Lesson) error {
	if s.createErr != nil {
		return s.createErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *lesson
	s.lessons[lesson.ID] = &cp
	return nil
}

func (s *fakeStore) UpdateLesson(_ context.Context, lesson *models.Lesson) error {
	if s.updateErr != nil {
		return s.updateErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lessons[lesson.ID]; !ok {
		return response.ErrNotFound
	}
	cp := *lesson
	s.lessons[lesson.ID] = &cp
	return nil
}

func (s *fakeStore) FindActiveForDay(_ context.Context, teacherID, studentID string, day time.Time, excludeID string) ([]*models.Lesson, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Lesson
	for _, l := range s.lessons {
		if l.ID == excludeID {
			continue
		}
		if l.TeacherID != teacherID && l.StudentID != studentID {
			continue
		}
		if l.Status != models.StatusConfirmed && l.Status != models.StatusInProgress {
			continue
		}
		if !sameDay(l.ScheduledAt, day) {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	sortByTime(out)
	return out, nil
}

func (s *fakeStore) FindTeacherLessonsForDay(_ context.Context, teacherID string, day time.Time) ([]*models.Lesson, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Lesson
	for _, l := range s.lessons {
		if l.TeacherID != teacherID {
			continue
		}
		if l.Status != models.StatusConfirmed && l.Status != models.StatusInProgress {
			continue
		}
		if !sameDay(l.ScheduledAt, day) {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	sortByTime(out)
	return out, nil
}

func (s *fakeStore) HasStudentRequestAt(_ context.Context, studentID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.lessons {
		if l.StudentID != studentID || !l.ScheduledAt.Equal(at) {
			continue
		}
		if l.Status == models.StatusPending || l.Status == models.StatusConfirmed {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) ListForUser(_ context.Context, userID string) ([]*models.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Lesson
	for _, l := range s.lessons {
		if l.TeacherID == userID || l.StudentID == userID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sortByTime(out)
	return out, nil
}

func (s *fakeStore) ListConfirmedForStudent(_ context.Context, studentID string) ([]*models.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Lesson
	for _, l := range s.lessons {
		if l.StudentID == studentID && l.Status == models.StatusConfirmed {
			cp := *l
			out = append(out, &cp)
		}
	}
	sortByTime(out)
	return out, nil
}

func (s *fakeStore) ListConfirmedForTeacher(_ context.Context, teacherID string) ([]*models.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Lesson
	for _, l := range s.lessons {
		if l.TeacherID == teacherID && l.Status == models.StatusConfirmed {
			cp := *l
			out = append(out, &cp)
		}
	}
	sortByTime(out)
	return out, nil
}

func (s *fakeStore) ListStudentRequestsPaged(_ context.Context, studentID string, page, pageSize int) ([]*models.Lesson, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []*models.Lesson
	for _, l := range s.lessons {
		if l.StudentID == studentID {
			cp := *l
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	lo := (page - 1) * pageSize
	if lo > total {
		lo = total
	}
	hi := lo + pageSize
	if hi > total {
		hi = total
	}
	return all[lo:hi], total, nil
}

func (s *fakeStore) CountCompletedForStudent(_ context.Context, studentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, l := range s.lessons {
		if l.StudentID == studentID && l.Status == models.StatusCompleted {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) LessonsStats(_ context.Context, _, _ time.Time) (*models.LessonsStats, error) {
	if s.stats != nil {
		return s.stats, nil
	}
	return &models.LessonsStats{}, nil
}

func (s *fakeStore) get(id string) *models.Lesson {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lessons[id]
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sortByTime(ls []*models.Lesson) {
	sort.Slice(ls, func(i, j int) bool { return ls[i].ScheduledAt.Before(ls[j].ScheduledAt) })
}

type fakeLocker struct {
	mu     sync.Mutex
	held   map[string]bool
	busy   map[string]bool
	lockEr error
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool), busy: make(map[string]bool)}
}

func (f *fakeLocker) Lock(_ context.Context, key string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.lockEr != nil {
		return false, f.lockEr
	}
	if f.busy[key] || f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeLocker) Unlock(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.held, key)
	return nil
}

type publishedEvent struct {
	routingKey   string
	notification *models.Notification
}

type spyNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (n *spyNotifier) Publish(_ context.Context, routingKey string, notification *models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, publishedEvent{routingKey: routingKey, notification: notification})
	return nil
}

func (n *spyNotifier) last() *publishedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.events) == 0 {
		return nil
	}
	return &n.events[len(n.events)-1]
}

func (n *spyNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type stubProfiles struct {
	names map[string]*models.UserInfo
	err   error
}

func (p *stubProfiles) GetUserInfo(_ context.Context, userID string) (*models.UserInfo, error) {
	if p.err != nil {
		return nil, p.err
	}
	info, ok := p.names[userID]
	if !ok {
		return nil, errors.New("user not found")
	}
	return info, nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(store *fakeStore, locker *fakeLocker, notifier *spyNotifier, profiles *stubProfiles, now time.Time) *Service {
	if profiles == nil {
		profiles = &stubProfiles{}
	}
	return NewService(discardLogger(), store, locker, notifier, profiles, fixedClock{now: now})
}
