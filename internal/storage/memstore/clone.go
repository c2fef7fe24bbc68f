package memstore

import (
	"slices"
	"time"

	"github.com/masoommulla/project-sub001/internal/model"
)

// clone 深拷贝记录，存储内的值与调用方持有的值不共享指针和切片。
func clone[T any](v T) T {
	var out any
	switch x := any(v).(type) {
	case model.User:
		out = cloneUser(x)
	case model.MoodEntry:
		out = cloneMood(x)
	case model.JournalEntry:
		out = cloneJournal(x)
	case model.Todo:
		x.CompletedAt = cloneTime(x.CompletedAt)
		x.DueDate = cloneTime(x.DueDate)
		out = x
	case model.StudyPlan:
		x.CompletedAt = cloneTime(x.CompletedAt)
		out = x
	case model.Appointment:
		out = cloneAppointment(x)
	case model.Therapist:
		out = cloneTherapist(x)
	case model.Resource:
		out = cloneResource(x)
	case model.Conversation:
		out = cloneConversation(x)
	case model.ChatMessage:
		x.ReadAt = cloneTime(x.ReadAt)
		out = x
	default:
		// OneTimePasscode 等只含值字段的类型
		return v
	}
	return out.(T)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func cloneUser(u model.User) model.User {
	u.LastCheckIn = cloneTime(u.LastCheckIn)
	u.LastLogin = cloneTime(u.LastLogin)
	u.Subscription.StartedAt = cloneTime(u.Subscription.StartedAt)
	u.Subscription.ExpiresAt = cloneTime(u.Subscription.ExpiresAt)
	return u
}

func cloneMood(m model.MoodEntry) model.MoodEntry {
	m.Emotions = slices.Clone(m.Emotions)
	m.Activities = slices.Clone(m.Activities)
	m.Triggers = slices.Clone(m.Triggers)
	return m
}

func cloneJournal(j model.JournalEntry) model.JournalEntry {
	j.Tags = slices.Clone(j.Tags)
	if j.AIInsights != nil {
		ai := *j.AIInsights
		ai.Themes = slices.Clone(ai.Themes)
		j.AIInsights = &ai
	}
	return j
}

func cloneAppointment(a model.Appointment) model.Appointment {
	if a.Payment != nil {
		p := *a.Payment
		p.PaidAt = cloneTime(p.PaidAt)
		a.Payment = &p
	}
	a.Cancellation = clonePtr(a.Cancellation)
	a.Review = clonePtr(a.Review)
	a.SlotKey = clonePtr(a.SlotKey)
	return a
}

func cloneTherapist(t model.Therapist) model.Therapist {
	t.Specialties = slices.Clone(t.Specialties)
	t.Qualifications = slices.Clone(t.Qualifications)
	t.Languages = slices.Clone(t.Languages)
	t.SessionTypes = slices.Clone(t.SessionTypes)
	t.Availability = slices.Clone(t.Availability)
	return t
}

func cloneResource(r model.Resource) model.Resource {
	r.Tags = slices.Clone(r.Tags)
	r.LikedBy = slices.Clone(r.LikedBy)
	return r
}

func cloneConversation(c model.Conversation) model.Conversation {
	c.Participants = slices.Clone(c.Participants)
	c.LastMessage = clonePtr(c.LastMessage)
	return c
}
