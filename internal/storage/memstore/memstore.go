// Package memstore 是 storage.Store 的内存实现，用于测试与 database.driver=memory 的本地开发。
//
// 所有集合共用一把读写锁；读出与写入时都深拷贝记录，调用方拿到的对象修改后不会影响存储。
package memstore

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/masoommulla/project-sub001/internal/domain"
	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/storage"
)

// Store 内存存储。
type Store struct {
	mu sync.RWMutex

	users         map[string]model.User
	otps          map[string]model.OneTimePasscode
	moods         map[string]model.MoodEntry
	journals      map[string]model.JournalEntry
	todos         map[string]model.Todo
	studyPlans    map[string]model.StudyPlan
	appointments  map[string]model.Appointment
	therapists    map[string]model.Therapist
	resources     map[string]model.Resource
	conversations map[string]model.Conversation
	messages      map[string]model.ChatMessage
}

var _ storage.Store = (*Store)(nil)

// New 创建空的内存存储。
func New() *Store {
	return &Store{
		users:         make(map[string]model.User),
		otps:          make(map[string]model.OneTimePasscode),
		moods:         make(map[string]model.MoodEntry),
		journals:      make(map[string]model.JournalEntry),
		todos:         make(map[string]model.Todo),
		studyPlans:    make(map[string]model.StudyPlan),
		appointments:  make(map[string]model.Appointment),
		therapists:    make(map[string]model.Therapist),
		resources:     make(map[string]model.Resource),
		conversations: make(map[string]model.Conversation),
		messages:      make(map[string]model.ChatMessage),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// ---- 通用辅助 ----

func get[T any](m map[string]T, id string) (*T, error) {
	v, ok := m[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := clone(v)
	return &c, nil
}

func insert[T any](m map[string]T, id string, v T) error {
	if _, ok := m[id]; ok {
		return storage.ErrDuplicate
	}
	m[id] = clone(v)
	return nil
}

func replace[T any](m map[string]T, id string, v T) error {
	if _, ok := m[id]; !ok {
		return storage.ErrNotFound
	}
	m[id] = clone(v)
	return nil
}

func remove[T any](m map[string]T, id string) error {
	if _, ok := m[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m, id)
	return nil
}

func collect[T any](m map[string]T, keep func(*T) bool) []T {
	out := make([]T, 0)
	for _, v := range m {
		if keep(&v) {
			out = append(out, clone(v))
		}
	}
	return out
}

func paginate[T any](items []T, p storage.Page) []T {
	if p.Offset > 0 {
		if p.Offset >= len(items) {
			return []T{}
		}
		items = items[p.Offset:]
	}
	if p.Limit > 0 && len(items) > p.Limit {
		items = items[:p.Limit]
	}
	return items
}

func newestFirst(a, b time.Time) int { return b.Compare(a) }

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func anyFold(list []string, needle string) bool {
	for _, v := range list {
		if strings.EqualFold(v, needle) {
			return true
		}
	}
	return false
}

// ---- UserStore ----

func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return storage.ErrDuplicate
		}
	}
	return insert(s.users, u.ID, *u)
}

func (s *Store) GetUser(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(s.users, id)
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			c := cloneUser(u)
			return &c, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) UpdateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.users {
		if id != u.ID && existing.Email == u.Email {
			return storage.ErrDuplicate
		}
	}
	return replace(s.users, u.ID, *u)
}

func (s *Store) DeleteAccount(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	for id, v := range s.moods {
		if v.UserID == userID {
			delete(s.moods, id)
		}
	}
	for id, v := range s.journals {
		if v.UserID == userID {
			delete(s.journals, id)
		}
	}
	for id, v := range s.todos {
		if v.UserID == userID {
			delete(s.todos, id)
		}
	}
	for id, v := range s.studyPlans {
		if v.UserID == userID {
			delete(s.studyPlans, id)
		}
	}
	for id, v := range s.appointments {
		if v.UserID == userID {
			delete(s.appointments, id)
		}
	}
	for id, c := range s.conversations {
		if !c.HasParticipant(userID) {
			continue
		}
		for mid, m := range s.messages {
			if m.ConversationID == id {
				delete(s.messages, mid)
			}
		}
		delete(s.conversations, id)
	}
	for id, o := range s.otps {
		if o.Email == u.Email {
			delete(s.otps, id)
		}
	}
	for id, t := range s.therapists {
		if t.UserID == userID {
			t.IsAvailable = false
			s.therapists[id] = t
		}
	}
	delete(s.users, userID)
	return nil
}

// ---- OTPStore ----

func (s *Store) CreateOTP(_ context.Context, o *model.OneTimePasscode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insert(s.otps, o.ID, *o)
}

func (s *Store) LatestOTP(_ context.Context, email string) (*model.OneTimePasscode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *model.OneTimePasscode
	for _, o := range s.otps {
		if o.Email != email {
			continue
		}
		if latest == nil || o.CreatedAt.After(latest.CreatedAt) {
			o := o
			latest = &o
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return latest, nil
}

func (s *Store) UpdateOTP(_ context.Context, o *model.OneTimePasscode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return replace(s.otps, o.ID, *o)
}

func (s *Store) DeleteOTP(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return remove(s.otps, id)
}

func (s *Store) DeleteOTPsByEmail(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, o := range s.otps {
		if o.Email == email {
			delete(s.otps, id)
		}
	}
	return nil
}

func (s *Store) DeleteExpiredOTPs(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, o := range s.otps {
		if o.Expired(now) {
			delete(s.otps, id)
			n++
		}
	}
	return n, nil
}

// ---- MoodStore ----

func (s *Store) CreateMood(_ context.Context, m *model.MoodEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insert(s.moods, m.ID, *m)
}

func (s *Store) GetMood(_ context.Context, id string) (*model.MoodEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(s.moods, id)
}

func (s *Store) ListMoods(_ context.Context, f storage.MoodFilter) ([]model.MoodEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.moods, func(m *model.MoodEntry) bool {
		if m.UserID != f.UserID {
			return false
		}
		if f.Mood != "" && m.Mood != f.Mood {
			return false
		}
		if f.Since != nil && m.CreatedAt.Before(*f.Since) {
			return false
		}
		if f.Until != nil && !m.CreatedAt.Before(*f.Until) {
			return false
		}
		return true
	})
	slices.SortFunc(out, func(a, b model.MoodEntry) int { return newestFirst(a.CreatedAt, b.CreatedAt) })
	return paginate(out, f.Page), nil
}

func (s *Store) UpdateMood(_ context.Context, m *model.MoodEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return replace(s.moods, m.ID, *m)
}

func (s *Store) DeleteMood(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return remove(s.moods, id)
}

// ---- JournalStore ----

func (s *Store) CreateJournal(_ context.Context, j *model.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insert(s.journals, j.ID, *j)
}

func (s *Store) GetJournal(_ context.Context, id string) (*model.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(s.journals, id)
}

func (s *Store) ListJournals(_ context.Context, f storage.JournalFilter) ([]model.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.journals, func(j *model.JournalEntry) bool {
		if j.UserID != f.UserID {
			return false
		}
		if f.Mood != "" && j.Mood != f.Mood {
			return false
		}
		if f.Tag != "" && !slices.Contains(j.Tags, f.Tag) {
			return false
		}
		if f.Favorite != nil && j.IsFavorite != *f.Favorite {
			return false
		}
		if f.Search != "" && !containsFold(j.Title, f.Search) && !containsFold(j.Content, f.Search) {
			return false
		}
		return true
	})
	slices.SortFunc(out, func(a, b model.JournalEntry) int { return newestFirst(a.CreatedAt, b.CreatedAt) })
	return paginate(out, f.Page), nil
}

func (s *Store) UpdateJournal(_ context.Context, j *model.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return replace(s.journals, j.ID, *j)
}

func (s *Store) DeleteJournal(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return remove(s.journals, id)
}

// ---- TodoStore ----

func (s *Store) CreateTodo(_ context.Context, t *model.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insert(s.todos, t.ID, *t)
}

func (s *Store) GetTodo(_ context.Context, id string) (*model.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(s.todos, id)
}

func (s *Store) ListTodos(_ context.Context, f storage.TodoFilter) ([]model.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.todos, func(t *model.Todo) bool {
		if t.UserID != f.UserID {
			return false
		}
		if f.Category != "" && t.Category != f.Category {
			return false
		}
		if f.Priority != "" && t.Priority != f.Priority {
			return false
		}
		if f.Completed != nil && t.Completed != *f.Completed {
			return false
		}
		return true
	})
	slices.SortFunc(out, func(a, b model.Todo) int { return newestFirst(a.CreatedAt, b.CreatedAt) })
	return paginate(out, f.Page), nil
}

func (s *Store) UpdateTodo(_ context.Context, t *model.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return replace(s.todos, t.ID, *t)
}

func (s *Store) DeleteTodo(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return remove(s.todos, id)
}

func (s *Store) DeleteCompletedTodos(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.todos {
		if t.UserID == userID && t.Completed {
			delete(s.todos, id)
			n++
		}
	}
	return n, nil
}

// ---- StudyPlanStore ----

func (s *Store) CreateStudyPlan(_ context.Context, p *model.StudyPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insert(s.studyPlans, p.ID, *p)
}

func (s *Store) GetStudyPlan(_ context.Context, id string) (*model.StudyPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(s.studyPlans, id)
}

func (s *Store) ListStudyPlans(_ context.Context, f storage.StudyPlanFilter) ([]model.StudyPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.studyPlans, func(p *model.StudyPlan) bool {
		if p.UserID != f.UserID {
			return false
		}
		if f.Subject != "" && !strings.EqualFold(p.Subject, f.Subject) {
			return false
		}
		if f.Completed != nil && p.Completed != *f.Completed {
			return false
		}
		if f.From != nil && p.Date.Before(*f.From) {
			return false
		}
		if f.To != nil && !p.Date.Before(*f.To) {
			return false
		}
		return true
	})
	slices.SortFunc(out, func(a, b model.StudyPlan) int { return a.Date.Compare(b.Date) })
	return paginate(out, f.Page), nil
}

func (s *Store) UpdateStudyPlan(_ context.Context, p *model.StudyPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return replace(s.studyPlans, p.ID, *p)
}

func (s *Store) DeleteStudyPlan(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return remove(s.studyPlans, id)
}

// ---- AppointmentStore ----

// slotTaken 模拟唯一稀疏索引：只比较非空的 SlotKey。
func (s *Store) slotTaken(a *model.Appointment) bool {
	if a.SlotKey == nil {
		return false
	}
	for id, other := range s.appointments {
		if id != a.ID && other.SlotKey != nil && *other.SlotKey == *a.SlotKey {
			return true
		}
	}
	return false
}

func (s *Store) CreateAppointment(_ context.Context, a *model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slotTaken(a) {
		return storage.ErrDuplicate
	}
	return insert(s.appointments, a.ID, *a)
}

func (s *Store) GetAppointment(_ context.Context, id string) (*model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(s.appointments, id)
}

func (s *Store) ListAppointments(_ context.Context, f storage.AppointmentFilter) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.appointments, func(a *model.Appointment) bool {
		if f.UserID != "" && a.UserID != f.UserID {
			return false
		}
		if f.TherapistID != "" && a.TherapistID != f.TherapistID {
			return false
		}
		if f.Date != "" && a.Date != f.Date {
			return false
		}
		if f.FromDate != "" && a.Date < f.FromDate {
			return false
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, a.Status) {
			return false
		}
		return true
	})
	slices.SortFunc(out, func(a, b model.Appointment) int {
		c := cmp.Or(cmp.Compare(a.Date, b.Date), cmp.Compare(a.StartTime, b.StartTime))
		if f.Ascending {
			return c
		}
		return -c
	})
	return paginate(out, f.Page), nil
}

func (s *Store) UpdateAppointment(_ context.Context, a *model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[a.ID]; !ok {
		return storage.ErrNotFound
	}
	if s.slotTaken(a) {
		return storage.ErrDuplicate
	}
	s.appointments[a.ID] = cloneAppointment(*a)
	return nil
}

func (s *Store) DeleteAppointment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return remove(s.appointments, id)
}

func (s *Store) FindSlotConflict(_ context.Context, therapistID, date, startTime, excludeID string) (*model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.appointments {
		if a.ID == excludeID || a.TherapistID != therapistID || a.Date != date || a.StartTime != startTime {
			continue
		}
		if domain.HoldsSlot(a.Status) {
			c := cloneAppointment(a)
			return &c, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) DeleteFinishedAppointments(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, a := range s.appointments {
		if a.UserID == userID && domain.IsTerminal(a.Status) {
			delete(s.appointments, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) ReviewRatings(_ context.Context, therapistID string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ratings := make([]int, 0)
	for _, a := range s.appointments {
		if a.TherapistID == therapistID && a.Review != nil {
			ratings = append(ratings, a.Review.Rating)
		}
	}
	return ratings, nil
}

// ---- TherapistStore ----

func (s *Store) CreateTherapist(_ context.Context, t *model.Therapist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insert(s.therapists, t.ID, *t)
}

func (s *Store) GetTherapist(_ context.Context, id string) (*model.Therapist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(s.therapists, id)
}

func (s *Store) GetTherapistByUser(_ context.Context, userID string) (*model.Therapist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.therapists {
		if t.UserID == userID {
			c := cloneTherapist(t)
			return &c, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) ListTherapists(_ context.Context, f storage.TherapistFilter) ([]model.Therapist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.therapists, func(t *model.Therapist) bool {
		if f.Specialty != "" && !anyFold(t.Specialties, f.Specialty) {
			return false
		}
		if f.Language != "" && !anyFold(t.Languages, f.Language) {
			return false
		}
		if f.SessionType != "" && !slices.Contains(t.SessionTypes, f.SessionType) {
			return false
		}
		if f.Featured != nil && t.IsFeatured != *f.Featured {
			return false
		}
		if f.AvailableOnly && !t.IsAvailable {
			return false
		}
		if f.MinRating > 0 && t.Rating < f.MinRating {
			return false
		}
		if f.MaxFee > 0 && t.SessionFee > f.MaxFee {
			return false
		}
		if f.Search != "" && !containsFold(t.Name, f.Search) && !containsFold(t.Bio, f.Search) &&
			!containsFold(t.Title, f.Search) && !slices.ContainsFunc(t.Specialties, func(sp string) bool { return containsFold(sp, f.Search) }) {
			return false
		}
		return true
	})
	slices.SortFunc(out, therapistOrder(f.Sort))
	return paginate(out, f.Page), nil
}

func therapistOrder(sort string) func(a, b model.Therapist) int {
	switch sort {
	case "experience":
		return func(a, b model.Therapist) int { return cmp.Compare(b.YearsExperience, a.YearsExperience) }
	case "fee":
		return func(a, b model.Therapist) int { return cmp.Compare(a.SessionFee, b.SessionFee) }
	case "recent":
		return func(a, b model.Therapist) int { return newestFirst(a.CreatedAt, b.CreatedAt) }
	default:
		return func(a, b model.Therapist) int {
			return cmp.Or(cmp.Compare(b.Rating, a.Rating), cmp.Compare(b.ReviewCount, a.ReviewCount))
		}
	}
}

func (s *Store) UpdateTherapist(_ context.Context, t *model.Therapist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.therapists[t.ID]
	if !ok {
		return storage.ErrNotFound
	}
	next := cloneTherapist(*t)
	next.Rating, next.ReviewCount, next.TotalSessions = cur.Rating, cur.ReviewCount, cur.TotalSessions
	next.CreatedAt = cur.CreatedAt
	s.therapists[t.ID] = next
	return nil
}

func (s *Store) DeleteTherapist(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return remove(s.therapists, id)
}

func (s *Store) SetTherapistRating(_ context.Context, id string, rating float64, reviewCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.therapists[id]
	if !ok {
		return storage.ErrNotFound
	}
	t.Rating = rating
	t.ReviewCount = reviewCount
	t.UpdatedAt = time.Now()
	s.therapists[id] = t
	return nil
}

func (s *Store) IncrementTherapistSessions(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.therapists[id]
	if !ok {
		return storage.ErrNotFound
	}
	t.TotalSessions++
	s.therapists[id] = t
	return nil
}

// ---- ResourceStore ----

func (s *Store) CreateResource(_ context.Context, r *model.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insert(s.resources, r.ID, *r)
}

func (s *Store) GetResource(_ context.Context, id string) (*model.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(s.resources, id)
}

func (s *Store) ListResources(_ context.Context, f storage.ResourceFilter) ([]model.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.resources, func(r *model.Resource) bool {
		if f.Category != "" && r.Category != f.Category {
			return false
		}
		if f.Type != "" && r.Type != f.Type {
			return false
		}
		if f.Tag != "" && !anyFold(r.Tags, f.Tag) {
			return false
		}
		if f.Featured != nil && r.IsFeatured != *f.Featured {
			return false
		}
		if f.Search != "" && !containsFold(r.Title, f.Search) && !containsFold(r.Description, f.Search) &&
			!slices.ContainsFunc(r.Tags, func(tag string) bool { return containsFold(tag, f.Search) }) {
			return false
		}
		return true
	})
	slices.SortFunc(out, resourceOrder(f.Sort))
	return paginate(out, f.Page), nil
}

func resourceOrder(sort string) func(a, b model.Resource) int {
	switch sort {
	case "popular":
		return func(a, b model.Resource) int {
			return cmp.Or(cmp.Compare(b.Views, a.Views), cmp.Compare(b.Likes, a.Likes))
		}
	case "rating":
		return func(a, b model.Resource) int { return cmp.Compare(b.Rating, a.Rating) }
	default:
		return func(a, b model.Resource) int { return newestFirst(a.CreatedAt, b.CreatedAt) }
	}
}

func (s *Store) UpdateResource(_ context.Context, r *model.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.resources[r.ID]
	if !ok {
		return storage.ErrNotFound
	}
	next := cloneResource(*r)
	next.Views, next.Likes, next.Downloads = cur.Views, cur.Likes, cur.Downloads
	next.LikedBy = cur.LikedBy
	next.CreatedBy, next.CreatedAt = cur.CreatedBy, cur.CreatedAt
	s.resources[r.ID] = next
	return nil
}

func (s *Store) DeleteResource(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return remove(s.resources, id)
}

func (s *Store) CountResources(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.resources)), nil
}

func (s *Store) IncrementResourceViews(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[id]
	if !ok {
		return storage.ErrNotFound
	}
	r.Views++
	s.resources[id] = r
	return nil
}

func (s *Store) IncrementResourceDownloads(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[id]
	if !ok {
		return 0, storage.ErrNotFound
	}
	r.Downloads++
	s.resources[id] = r
	return r.Downloads, nil
}

func (s *Store) ToggleResourceLike(_ context.Context, id, userID string) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[id]
	if !ok {
		return false, 0, storage.ErrNotFound
	}
	liked := !r.LikedByUser(userID)
	if liked {
		r.LikedBy = append(slices.Clone(r.LikedBy), userID)
		r.Likes++
	} else {
		r.LikedBy = slices.DeleteFunc(slices.Clone(r.LikedBy), func(v string) bool { return v == userID })
		r.Likes--
	}
	s.resources[id] = r
	return liked, r.Likes, nil
}

func (s *Store) ResourceCategoryCounts(context.Context) ([]model.CategoryCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, r := range s.resources {
		counts[r.Category]++
	}
	out := make([]model.CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, model.CategoryCount{Category: c, Count: n})
	}
	slices.SortFunc(out, func(a, b model.CategoryCount) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.Category, b.Category))
	})
	return out, nil
}

// ---- ChatStore ----

func (s *Store) CreateConversation(_ context.Context, c *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insert(s.conversations, c.ID, *c)
}

func (s *Store) GetConversation(_ context.Context, id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(s.conversations, id)
}

func (s *Store) FindConversation(_ context.Context, convType, userID, otherID string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.conversations {
		if c.Type == convType && c.HasParticipant(userID) && c.HasParticipant(otherID) {
			cc := cloneConversation(c)
			return &cc, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) ListConversations(_ context.Context, userID string) ([]model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.conversations, func(c *model.Conversation) bool { return c.HasParticipant(userID) })
	slices.SortFunc(out, func(a, b model.Conversation) int { return newestFirst(a.UpdatedAt, b.UpdatedAt) })
	return out, nil
}

func (s *Store) UpdateConversation(_ context.Context, c *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return replace(s.conversations, c.ID, *c)
}

func (s *Store) DeleteConversation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := remove(s.conversations, id); err != nil {
		return err
	}
	for mid, m := range s.messages {
		if m.ConversationID == id {
			delete(s.messages, mid)
		}
	}
	return nil
}

func (s *Store) CreateMessage(_ context.Context, m *model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insert(s.messages, m.ID, *m)
}

func (s *Store) GetMessage(_ context.Context, id string) (*model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(s.messages, id)
}

func (s *Store) ListMessages(_ context.Context, conversationID string, before *time.Time, limit int) ([]model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.messages, func(m *model.ChatMessage) bool {
		if m.ConversationID != conversationID {
			return false
		}
		return before == nil || m.CreatedAt.Before(*before)
	})
	slices.SortFunc(out, func(a, b model.ChatMessage) int { return a.CreatedAt.Compare(b.CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *Store) MarkMessagesRead(_ context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, m := range s.messages {
		if m.ConversationID == conversationID && m.ReceiverID == readerID && !m.IsRead {
			m.IsRead = true
			readAt := at
			m.ReadAt = &readAt
			s.messages[id] = m
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteMessage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return remove(s.messages, id)
}
