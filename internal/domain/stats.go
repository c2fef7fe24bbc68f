package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/masoommulla/project-sub001/internal/model"
)

// TopTagLimit 统计中 top-N 列表的长度。
const TopTagLimit = 5

// Count 名称与出现次数。
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// counter 按首次出现顺序记录计数，TopN 在次数相同时保持该顺序。
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string, n int) {
	if key == "" {
		return
	}
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key] += n
}

func (c *counter) addAll(keys []string) {
	for _, k := range keys {
		c.add(k, 1)
	}
}

// TopN 按次数降序返回前 n 项。
func (c *counter) TopN(n int) []Count {
	out := make([]Count, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, Count{Name: k, Count: c.counts[k]})
	}
	slices.SortStableFunc(out, func(a, b Count) int { return b.Count - a.Count })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func (c *counter) Map() map[string]int {
	m := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		m[k] = v
	}
	return m
}

// MoodSummary 心情统计。
type MoodSummary struct {
	Days             int            `json:"days"`
	Total            int            `json:"total"`
	AverageIntensity float64        `json:"averageIntensity"`
	ByMood           map[string]int `json:"byMood"`
	MostFrequentMood string         `json:"mostFrequentMood,omitempty"`
	TopEmotions      []Count        `json:"topEmotions"`
	TopTriggers      []Count        `json:"topTriggers"`
	TopActivities    []Count        `json:"topActivities"`
}

// MoodStats 汇总时间窗口内的心情记录，entries 应已按窗口过滤。
func MoodStats(entries []model.MoodEntry, days int) MoodSummary {
	moods, emotions, triggers, activities := newCounter(), newCounter(), newCounter(), newCounter()
	sum := 0
	for _, e := range entries {
		moods.add(e.Mood, 1)
		emotions.addAll(e.Emotions)
		triggers.addAll(e.Triggers)
		activities.addAll(e.Activities)
		sum += e.Intensity
	}
	s := MoodSummary{
		Days:          days,
		Total:         len(entries),
		ByMood:        moods.Map(),
		TopEmotions:   emotions.TopN(TopTagLimit),
		TopTriggers:   triggers.TopN(TopTagLimit),
		TopActivities: activities.TopN(TopTagLimit),
	}
	if len(entries) > 0 {
		s.AverageIntensity = Round1(float64(sum) / float64(len(entries)))
	}
	if top := moods.TopN(1); len(top) == 1 {
		s.MostFrequentMood = top[0].Name
	}
	return s
}

// JournalSummary 日记统计。
type JournalSummary struct {
	Total      int            `json:"total"`
	Favorites  int            `json:"favorites"`
	ByMood     map[string]int `json:"byMood"`
	TopTags    []Count        `json:"topTags"`
	TotalWords int            `json:"totalWords"`
	ThisMonth  int            `json:"thisMonth"`
}

// JournalStats 汇总日记；ThisMonth 以 now 所在的自然月计算。
func JournalStats(entries []model.JournalEntry, now time.Time) JournalSummary {
	moods, tags := newCounter(), newCounter()
	s := JournalSummary{Total: len(entries)}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for _, e := range entries {
		if e.IsFavorite {
			s.Favorites++
		}
		moods.add(e.Mood, 1)
		tags.addAll(e.Tags)
		s.TotalWords += e.WordCount
		if !e.CreatedAt.Before(monthStart) {
			s.ThisMonth++
		}
	}
	s.ByMood = moods.Map()
	s.TopTags = tags.TopN(TopTagLimit)
	return s
}

// WordCount 按空白分词计数。
func WordCount(content string) int {
	return len(strings.Fields(content))
}

// TodoSummary 待办统计。CompletionRate 为百分比。
type TodoSummary struct {
	Total          int            `json:"total"`
	Completed      int            `json:"completed"`
	Pending        int            `json:"pending"`
	Overdue        int            `json:"overdue"`
	CompletionRate float64        `json:"completionRate"`
	ByCategory     map[string]int `json:"byCategory"`
	ByPriority     map[string]int `json:"byPriority"`
}

// TodoStats 汇总待办；未完成且截止时间早于 now 的计为逾期。
func TodoStats(todos []model.Todo, now time.Time) TodoSummary {
	cats, prios := newCounter(), newCounter()
	s := TodoSummary{Total: len(todos)}
	for _, t := range todos {
		cats.add(t.Category, 1)
		prios.add(t.Priority, 1)
		if t.Completed {
			s.Completed++
			continue
		}
		s.Pending++
		if t.DueDate != nil && t.DueDate.Before(now) {
			s.Overdue++
		}
	}
	if s.Total > 0 {
		s.CompletionRate = Round1(float64(s.Completed) * 100 / float64(s.Total))
	}
	s.ByCategory = cats.Map()
	s.ByPriority = prios.Map()
	return s
}

// StudySummary 学习计划统计，BySubject 为各科目的计划分钟数。
type StudySummary struct {
	Total            int            `json:"total"`
	Completed        int            `json:"completed"`
	TotalMinutes     int            `json:"totalMinutes"`
	CompletedMinutes int            `json:"completedMinutes"`
	BySubject        map[string]int `json:"bySubject"`
}

func StudyStats(plans []model.StudyPlan) StudySummary {
	subjects := newCounter()
	s := StudySummary{Total: len(plans)}
	for _, p := range plans {
		s.TotalMinutes += p.Duration
		subjects.add(p.Subject, p.Duration)
		if p.Completed {
			s.Completed++
			s.CompletedMinutes += p.Duration
		}
	}
	s.BySubject = subjects.Map()
	return s
}

// AppointmentSummary 预约统计。
type AppointmentSummary struct {
	Total         int            `json:"total"`
	ByStatus      map[string]int `json:"byStatus"`
	Upcoming      int            `json:"upcoming"`
	Completed     int            `json:"completed"`
	AverageRating float64        `json:"averageRating"`
}

// AppointmentStats 汇总预约；Upcoming 为开始时间晚于 now 的有效预约。
func AppointmentStats(appts []model.Appointment, now time.Time) AppointmentSummary {
	statuses := newCounter()
	var ratings []int
	s := AppointmentSummary{Total: len(appts)}
	for i := range appts {
		a := &appts[i]
		statuses.add(a.Status, 1)
		if a.Status == model.AppointmentCompleted {
			s.Completed++
		}
		if IsActive(a.Status) && a.StartsAt(now.Location()).After(now) {
			s.Upcoming++
		}
		if a.Review != nil {
			ratings = append(ratings, a.Review.Rating)
		}
	}
	s.ByStatus = statuses.Map()
	s.AverageRating = AverageRating(ratings)
	return s
}
