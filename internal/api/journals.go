package api

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/masoommulla/project-sub001/internal/api/response"
	"github.com/masoommulla/project-sub001/internal/domain"
	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/storage"
)

type insightsRequest struct {
	Sentiment string   `json:"sentiment" binding:"omitempty,oneof=positive neutral negative mixed"`
	Summary   string   `json:"summary" binding:"max=1000"`
	Themes    []string `json:"themes" binding:"max=10,dive,max=50"`
}

type createJournalRequest struct {
	Title      string           `json:"title" binding:"required,max=200"`
	Content    string           `json:"content" binding:"required,max=20000"`
	Mood       string           `json:"mood" binding:"omitempty,oneof=happy excited calm okay sad anxious angry"`
	Tags       []string         `json:"tags" binding:"max=20,dive,max=30"`
	IsFavorite bool             `json:"isFavorite"`
	IsPrivate  *bool            `json:"isPrivate"`
	AIInsights *insightsRequest `json:"aiInsights"`
}

type updateJournalRequest struct {
	Title      *string          `json:"title" binding:"omitempty,min=1,max=200"`
	Content    *string          `json:"content" binding:"omitempty,min=1,max=20000"`
	Mood       *string          `json:"mood" binding:"omitempty,oneof=happy excited calm okay sad anxious angry"`
	Tags       []string         `json:"tags" binding:"omitempty,max=20,dive,max=30"`
	IsFavorite *bool            `json:"isFavorite"`
	IsPrivate  *bool            `json:"isPrivate"`
	AIInsights *insightsRequest `json:"aiInsights"`
}

type listJournalsQuery struct {
	Mood     string `form:"mood" binding:"omitempty,oneof=happy excited calm okay sad anxious angry"`
	Tag      string `form:"tag"`
	Favorite *bool  `form:"favorite"`
	Search   string `form:"search" binding:"max=100"`
	pageQuery
}

func (r *insightsRequest) toModel() *model.AIInsights {
	if r == nil {
		return nil
	}
	return &model.AIInsights{Sentiment: r.Sentiment, Summary: strings.TrimSpace(r.Summary), Themes: cleanList(r.Themes)}
}

func (s *Server) handleCreateJournal(c *gin.Context) {
	var req createJournalRequest
	if err := response.Bind(c, &req); err != nil {
		s.resp.Error(c, err)
		return
	}
	title, content := strings.TrimSpace(req.Title), strings.TrimSpace(req.Content)
	ve := &domain.ValidationError{}
	if title == "" {
		ve.Add("title", "title is required")
	}
	if content == "" {
		ve.Add("content", "content is required")
	}
	if err := ve.Err(); err != nil {
		s.resp.Error(c, err)
		return
	}

	private := true
	if req.IsPrivate != nil {
		private = *req.IsPrivate
	}
	now := s.now()
	j := &model.JournalEntry{
		ID:         uuid.NewString(),
		UserID:     s.caller(c).ID,
		Title:      title,
		Content:    content,
		Mood:       req.Mood,
		Tags:       lowerList(req.Tags),
		IsFavorite: req.IsFavorite,
		IsPrivate:  private,
		AIInsights: req.AIInsights.toModel(),
		WordCount:  domain.WordCount(content),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateJournal(c.Request.Context(), j); err != nil {
		s.resp.Error(c, err)
		return
	}
	response.Created(c, "journal entry created", j)
}

func (s *Server) handleListJournals(c *gin.Context) {
	var q listJournalsQuery
	if err := response.BindQuery(c, &q); err != nil {
		s.resp.Error(c, err)
		return
	}
	entries, err := s.store.ListJournals(c.Request.Context(), storage.JournalFilter{
		UserID:   s.caller(c).ID,
		Mood:     q.Mood,
		Tag:      strings.ToLower(strings.TrimSpace(q.Tag)),
		Favorite: q.Favorite,
		Search:   strings.TrimSpace(q.Search),
		Page:     q.toPage(),
	})
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.List(c, entries)
}

func (s *Server) handleJournalStats(c *gin.Context) {
	entries, err := s.store.ListJournals(c.Request.Context(), storage.JournalFilter{UserID: s.caller(c).ID})
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "", domain.JournalStats(entries, s.now()))
}

func (s *Server) handleGetJournal(c *gin.Context) {
	j, err := s.loadJournal(c.Request.Context(), s.caller(c), c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "", j)
}

// handleUpdateJournal 修改内容时重新计算字数。
func (s *Server) handleUpdateJournal(c *gin.Context) {
	var req updateJournalRequest
	if err := response.Bind(c, &req); err != nil {
		s.resp.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	j, err := s.loadJournal(ctx, s.caller(c), c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	if req.Title != nil {
		if t := strings.TrimSpace(*req.Title); t != "" {
			j.Title = t
		}
	}
	if req.Content != nil {
		if body := strings.TrimSpace(*req.Content); body != "" {
			j.Content = body
			j.WordCount = domain.WordCount(body)
		}
	}
	if req.Mood != nil {
		j.Mood = *req.Mood
	}
	if req.Tags != nil {
		j.Tags = lowerList(req.Tags)
	}
	if req.IsFavorite != nil {
		j.IsFavorite = *req.IsFavorite
	}
	if req.IsPrivate != nil {
		j.IsPrivate = *req.IsPrivate
	}
	if req.AIInsights != nil {
		j.AIInsights = req.AIInsights.toModel()
	}
	j.UpdatedAt = s.now()
	if err := s.store.UpdateJournal(ctx, j); err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "journal entry updated", j)
}

// handleToggleFavorite PATCH /journals/:id/favorite
func (s *Server) handleToggleFavorite(c *gin.Context) {
	ctx := c.Request.Context()
	j, err := s.loadJournal(ctx, s.caller(c), c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	j.IsFavorite = !j.IsFavorite
	j.UpdatedAt = s.now()
	if err := s.store.UpdateJournal(ctx, j); err != nil {
		s.resp.Error(c, err)
		return
	}
	msg := "removed from favorites"
	if j.IsFavorite {
		msg = "added to favorites"
	}
	response.OK(c, msg, j)
}

func (s *Server) handleDeleteJournal(c *gin.Context) {
	ctx := c.Request.Context()
	j, err := s.loadJournal(ctx, s.caller(c), c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	if err := s.store.DeleteJournal(ctx, j.ID); err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "journal entry deleted", nil)
}

func (s *Server) loadJournal(ctx context.Context, caller *model.User, id string) (*model.JournalEntry, error) {
	return loadOwned(ctx, s.store.GetJournal, caller, id, "journal entry", func(j *model.JournalEntry) string { return j.UserID })
}
