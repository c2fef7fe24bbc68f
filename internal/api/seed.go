package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/masoommulla/project-sub001/internal/api/auth"
	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/storage"
)

// Seed 初始化启动数据：配置了管理员密码时确保管理员账号存在；资源库为空时写入默认资源。
func (s *Server) Seed(ctx context.Context) error {
	if err := s.ensureAdmin(ctx); err != nil {
		return err
	}
	if !s.cfg.App.SeedResources {
		return nil
	}
	return s.seedResources(ctx)
}

func (s *Server) ensureAdmin(ctx context.Context) error {
	email := auth.NormalizeEmail(s.cfg.Security.AdminEmail)
	if email == "" || s.cfg.Security.AdminPassword == "" {
		return nil
	}
	u, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if u.Role == model.RoleAdmin {
			return nil
		}
		u.Role = model.RoleAdmin
		u.UpdatedAt = s.now()
		if err := s.store.UpdateUser(ctx, u); err != nil {
			return fmt.Errorf("promote admin: %w", err)
		}
		s.logger.Info("existing user promoted to admin", slog.String("user_id", u.ID))
		return nil
	case !errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := auth.HashPassword(s.cfg.Security.AdminPassword)
	if err != nil {
		return err
	}
	now := s.now()
	admin := &model.User{
		ID:           uuid.NewString(),
		Name:         "Administrator",
		Email:        email,
		Password:     hash,
		Role:         model.RoleAdmin,
		Settings:     model.DefaultSettings(),
		Subscription: model.Subscription{Plan: model.PlanFree, Status: "active", StartedAt: &now},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, admin); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil
		}
		return fmt.Errorf("create admin: %w", err)
	}
	s.logger.Info("admin account created", slog.String("user_id", admin.ID))
	return nil
}

func (s *Server) seedResources(ctx context.Context) error {
	n, err := s.store.CountResources(ctx)
	if err != nil {
		return fmt.Errorf("count resources: %w", err)
	}
	if n > 0 {
		return nil
	}
	now := s.now()
	for _, r := range starterResources() {
		r.ID = uuid.NewString()
		r.LikedBy = []string{}
		r.CreatedAt = now
		r.UpdatedAt = now
		if err := s.store.CreateResource(ctx, &r); err != nil {
			return fmt.Errorf("seed resource %q: %w", r.Title, err)
		}
	}
	s.logger.Info("starter resources seeded", slog.Int("count", len(starterResources())))
	return nil
}

func starterResources() []model.Resource {
	return []model.Resource{
		{
			Title:       "Box Breathing in Four Steps",
			Description: "A short breathing exercise that calms the body when anxiety spikes.",
			Category:    "anxiety",
			Type:        "exercise",
			Content:     "Breathe in for 4 seconds, hold for 4, breathe out for 4, hold for 4. Repeat four times.",
			Tags:        []string{"breathing", "calm", "quick"},
			Duration:    5,
			Rating:      4.8,
			IsFeatured:  true,
		},
		{
			Title:       "Understanding Low Moods",
			Description: "What depression can feel like for teens and when to ask for help.",
			Category:    "depression",
			Type:        "article",
			Content:     "Feeling down for a day is normal. Feeling empty for weeks is a sign to talk to someone you trust.",
			Tags:        []string{"awareness", "help"},
			Duration:    8,
			Rating:      4.6,
			IsFeatured:  true,
		},
		{
			Title:       "Exam Stress Survival Kit",
			Description: "Practical ways to plan revision and keep stress manageable.",
			Category:    "stress",
			Type:        "worksheet",
			Content:     "Split revision into 25 minute blocks, schedule breaks, and write down one worry before each session.",
			Tags:        []string{"school", "exams", "planning"},
			Duration:    15,
			Rating:      4.5,
		},
		{
			Title:       "Sleep Reset Routine",
			Description: "Small evening habits that make it easier to fall asleep.",
			Category:    "sleep",
			Type:        "article",
			Content:     "Put screens away 30 minutes before bed, keep the room cool, and wake up at the same time each day.",
			Tags:        []string{"sleep", "routine"},
			Duration:    6,
			Rating:      4.4,
		},
		{
			Title:       "Five Minute Body Scan",
			Description: "A guided mindfulness practice to notice tension and let it go.",
			Category:    "mindfulness",
			Type:        "audio",
			Tags:        []string{"mindfulness", "relaxation"},
			Duration:    5,
			Rating:      4.7,
			IsFeatured:  true,
		},
		{
			Title:       "Crisis Text Line",
			Description: "Free, confidential support 24/7. Text HOME to 741741.",
			Category:    "general",
			Type:        "hotline",
			URL:         "https://www.crisistextline.org",
			Tags:        []string{"crisis", "support", "hotline"},
			Rating:      5,
			IsFeatured:  true,
		},
	}
}
