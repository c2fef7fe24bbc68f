package domain

import (
	"testing"
	"time"

	"github.com/masoommulla/project-sub001/internal/model"
)

func TestUpdateStreak_Scenario(t *testing.T) {
	dayN := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)
	u := &model.User{ID: "u1"}

	UpdateStreak(u, dayN)
	if u.Streak != 1 {
		t.Fatalf("first check-in: streak = %d, want 1", u.Streak)
	}

	UpdateStreak(u, dayN.Add(24*time.Hour))
	if u.Streak != 2 {
		t.Fatalf("next day: streak = %d, want 2", u.Streak)
	}

	// N+1 → N+5，相差 4 天
	UpdateStreak(u, dayN.Add(5*24*time.Hour))
	if u.Streak != 1 {
		t.Fatalf("after gap: streak = %d, want 1", u.Streak)
	}
	if !u.LastCheckIn.Equal(dayN.Add(5 * 24 * time.Hour)) {
		t.Fatalf("lastCheckIn not updated: %v", u.LastCheckIn)
	}
}

func TestUpdateStreak_SameDayUnchanged(t *testing.T) {
	first := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	u := &model.User{ID: "u1", Streak: 3, LastCheckIn: &first}

	later := first.Add(10 * time.Hour)
	UpdateStreak(u, later)
	if u.Streak != 3 {
		t.Fatalf("streak = %d, want 3", u.Streak)
	}
	if !u.LastCheckIn.Equal(later) {
		t.Fatalf("lastCheckIn = %v, want %v", u.LastCheckIn, later)
	}
}

func TestUpdateStreak_ElapsedNotCalendar(t *testing.T) {
	// 跨过了日历日，但不足 24 小时，按 0 天处理。
	last := time.Date(2026, 5, 1, 23, 0, 0, 0, time.UTC)
	u := &model.User{ID: "u1", Streak: 2, LastCheckIn: &last}

	UpdateStreak(u, last.Add(2*time.Hour))
	if u.Streak != 2 {
		t.Fatalf("streak = %d, want 2", u.Streak)
	}

	// 47 小时仍是 1 天。
	last2 := *u.LastCheckIn
	UpdateStreak(u, last2.Add(47*time.Hour))
	if u.Streak != 3 {
		t.Fatalf("streak = %d, want 3", u.Streak)
	}
}
