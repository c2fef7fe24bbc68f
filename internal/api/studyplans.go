package api

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/masoommulla/project-sub001/internal/api/response"
	"github.com/masoommulla/project-sub001/internal/domain"
	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/storage"
)

type createStudyPlanRequest struct {
	Subject  string `json:"subject" binding:"required,max=100"`
	Topic    string `json:"topic" binding:"max=200"`
	Duration int    `json:"duration" binding:"required,min=1,max=480"`
	Date     string `json:"date"`
	Notes    string `json:"notes" binding:"max=1000"`
}

type updateStudyPlanRequest struct {
	Subject   *string `json:"subject" binding:"omitempty,min=1,max=100"`
	Topic     *string `json:"topic" binding:"omitempty,max=200"`
	Duration  *int    `json:"duration" binding:"omitempty,min=1,max=480"`
	Date      *string `json:"date"`
	Notes     *string `json:"notes" binding:"omitempty,max=1000"`
	Completed *bool   `json:"completed"`
}

type listStudyPlansQuery struct {
	Subject   string `form:"subject" binding:"max=100"`
	Completed *bool  `form:"completed"`
	From      string `form:"from"`
	To        string `form:"to"`
	pageQuery
}

func (s *Server) handleCreateStudyPlan(c *gin.Context) {
	var req createStudyPlanRequest
	if err := response.Bind(c, &req); err != nil {
		s.resp.Error(c, err)
		return
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		s.resp.Error(c, domain.Invalid("subject", "subject is required"))
		return
	}
	now := s.now()
	date := now
	if d, err := parseDate("date", req.Date); err != nil {
		s.resp.Error(c, err)
		return
	} else if d != nil {
		date = *d
	}
	p := &model.StudyPlan{
		ID:        uuid.NewString(),
		UserID:    s.caller(c).ID,
		Subject:   subject,
		Topic:     strings.TrimSpace(req.Topic),
		Duration:  req.Duration,
		Date:      date,
		Notes:     strings.TrimSpace(req.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateStudyPlan(c.Request.Context(), p); err != nil {
		s.resp.Error(c, err)
		return
	}
	response.Created(c, "study plan created", p)
}

func (s *Server) handleListStudyPlans(c *gin.Context) {
	var q listStudyPlansQuery
	if err := response.BindQuery(c, &q); err != nil {
		s.resp.Error(c, err)
		return
	}
	from, err := parseDate("from", q.From)
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	to, err := parseDate("to", q.To)
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	if to != nil && len(strings.TrimSpace(q.To)) == len(model.DateLayout) {
		end := to.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	plans, err := s.store.ListStudyPlans(c.Request.Context(), storage.StudyPlanFilter{
		UserID:    s.caller(c).ID,
		Subject:   strings.TrimSpace(q.Subject),
		Completed: q.Completed,
		From:      from,
		To:        to,
		Page:      q.toPage(),
	})
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.List(c, plans)
}

func (s *Server) handleStudyStats(c *gin.Context) {
	plans, err := s.store.ListStudyPlans(c.Request.Context(), storage.StudyPlanFilter{UserID: s.caller(c).ID})
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "", domain.StudyStats(plans))
}

func (s *Server) handleGetStudyPlan(c *gin.Context) {
	p, err := s.loadStudyPlan(c.Request.Context(), s.caller(c), c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "", p)
}

func (s *Server) handleUpdateStudyPlan(c *gin.Context) {
	var req updateStudyPlanRequest
	if err := response.Bind(c, &req); err != nil {
		s.resp.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	p, err := s.loadStudyPlan(ctx, s.caller(c), c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	now := s.now()
	if req.Subject != nil {
		if v := strings.TrimSpace(*req.Subject); v != "" {
			p.Subject = v
		}
	}
	if req.Topic != nil {
		p.Topic = strings.TrimSpace(*req.Topic)
	}
	if req.Duration != nil {
		p.Duration = *req.Duration
	}
	if req.Date != nil {
		d, err := parseDate("date", *req.Date)
		if err != nil {
			s.resp.Error(c, err)
			return
		}
		if d != nil {
			p.Date = *d
		}
	}
	if req.Notes != nil {
		p.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.Completed != nil && *req.Completed != p.Completed {
		p.SetCompleted(*req.Completed, now)
	}
	p.UpdatedAt = now
	if err := s.store.UpdateStudyPlan(ctx, p); err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "study plan updated", p)
}

// handleCompleteStudyPlan 切换完成状态。
//
// PATCH /study-plans/:id/complete
func (s *Server) handleCompleteStudyPlan(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := s.loadStudyPlan(ctx, s.caller(c), c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	now := s.now()
	p.SetCompleted(!p.Completed, now)
	p.UpdatedAt = now
	if err := s.store.UpdateStudyPlan(ctx, p); err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "study plan updated", p)
}

func (s *Server) handleDeleteStudyPlan(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := s.loadStudyPlan(ctx, s.caller(c), c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	if err := s.store.DeleteStudyPlan(ctx, p.ID); err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "study plan deleted", nil)
}

func (s *Server) loadStudyPlan(ctx context.Context, caller *model.User, id string) (*model.StudyPlan, error) {
	return loadOwned(ctx, s.store.GetStudyPlan, caller, id, "study plan", func(p *model.StudyPlan) string { return p.UserID })
}
