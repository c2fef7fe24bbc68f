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
	"github.com/masoommulla/project-sub001/internal/pkg/metrics"
	"github.com/masoommulla/project-sub001/internal/storage"
)

const defaultStatsDays = 30

type createMoodRequest struct {
	Mood       string   `json:"mood" binding:"required,oneof=happy excited calm okay sad anxious angry"`
	Intensity  int      `json:"intensity" binding:"required,min=1,max=10"`
	Notes      string   `json:"notes" binding:"max=1000"`
	Emotions   []string `json:"emotions" binding:"max=20,dive,max=50"`
	Activities []string `json:"activities" binding:"max=20,dive,max=50"`
	Triggers   []string `json:"triggers" binding:"max=20,dive,max=50"`
}

// updateMoodRequest 不包含 suggestion：建议在创建时生成，之后保持不变。
type updateMoodRequest struct {
	Mood       *string  `json:"mood" binding:"omitempty,oneof=happy excited calm okay sad anxious angry"`
	Intensity  *int     `json:"intensity" binding:"omitempty,min=1,max=10"`
	Notes      *string  `json:"notes" binding:"omitempty,max=1000"`
	Emotions   []string `json:"emotions" binding:"omitempty,max=20,dive,max=50"`
	Activities []string `json:"activities" binding:"omitempty,max=20,dive,max=50"`
	Triggers   []string `json:"triggers" binding:"omitempty,max=20,dive,max=50"`
}

type listMoodsQuery struct {
	Mood      string `form:"mood" binding:"omitempty,oneof=happy excited calm okay sad anxious angry"`
	Days      int    `form:"days" binding:"omitempty,min=1,max=365"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
	pageQuery
}

type statsQuery struct {
	Days int `form:"days" binding:"omitempty,min=1,max=365"`
}

// handleCreateMood 记录心情并附带一条随机建议。
func (s *Server) handleCreateMood(c *gin.Context) {
	var req createMoodRequest
	if err := response.Bind(c, &req); err != nil {
		s.resp.Error(c, err)
		return
	}
	now := s.now()
	entry := &model.MoodEntry{
		ID:         uuid.NewString(),
		UserID:     s.caller(c).ID,
		Mood:       req.Mood,
		Intensity:  req.Intensity,
		Notes:      strings.TrimSpace(req.Notes),
		Emotions:   lowerList(req.Emotions),
		Activities: lowerList(req.Activities),
		Triggers:   lowerList(req.Triggers),
		Suggestion: domain.SuggestWith(req.Mood, s.pick),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateMood(c.Request.Context(), entry); err != nil {
		s.resp.Error(c, err)
		return
	}
	metrics.MoodEntriesTotal.WithLabelValues(entry.Mood).Inc()
	response.Created(c, "mood logged", entry)
}

// handleListMoods 列出当前用户的心情记录，可按心情与时间过滤。
func (s *Server) handleListMoods(c *gin.Context) {
	var q listMoodsQuery
	if err := response.BindQuery(c, &q); err != nil {
		s.resp.Error(c, err)
		return
	}
	since, err := parseDate("startDate", q.StartDate)
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	until, err := parseDate("endDate", q.EndDate)
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	if until != nil && len(strings.TrimSpace(q.EndDate)) == len(model.DateLayout) {
		// 只给日期时包含当天
		end := until.Add(24*time.Hour - time.Nanosecond)
		until = &end
	}
	if since == nil && q.Days > 0 {
		from := s.now().AddDate(0, 0, -q.Days)
		since = &from
	}

	moods, err := s.store.ListMoods(c.Request.Context(), storage.MoodFilter{
		UserID: s.caller(c).ID,
		Mood:   q.Mood,
		Since:  since,
		Until:  until,
		Page:   q.toPage(),
	})
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.List(c, moods)
}

// handleMoodStats 统计最近 days 天（默认 30）的心情。
func (s *Server) handleMoodStats(c *gin.Context) {
	var q statsQuery
	if err := response.BindQuery(c, &q); err != nil {
		s.resp.Error(c, err)
		return
	}
	days := q.Days
	if days == 0 {
		days = defaultStatsDays
	}
	since := s.now().AddDate(0, 0, -days)
	moods, err := s.store.ListMoods(c.Request.Context(), storage.MoodFilter{UserID: s.caller(c).ID, Since: &since})
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "", domain.MoodStats(moods, days))
}

func (s *Server) handleGetMood(c *gin.Context) {
	m, err := s.loadMood(c.Request.Context(), s.caller(c), c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "", m)
}

func (s *Server) handleUpdateMood(c *gin.Context) {
	var req updateMoodRequest
	if err := response.Bind(c, &req); err != nil {
		s.resp.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	m, err := s.loadMood(ctx, s.caller(c), c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	if req.Mood != nil {
		m.Mood = *req.Mood
	}
	if req.Intensity != nil {
		m.Intensity = *req.Intensity
	}
	if req.Notes != nil {
		m.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.Emotions != nil {
		m.Emotions = lowerList(req.Emotions)
	}
	if req.Activities != nil {
		m.Activities = lowerList(req.Activities)
	}
	if req.Triggers != nil {
		m.Triggers = lowerList(req.Triggers)
	}
	m.UpdatedAt = s.now()
	if err := s.store.UpdateMood(ctx, m); err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "mood updated", m)
}

func (s *Server) handleDeleteMood(c *gin.Context) {
	ctx := c.Request.Context()
	m, err := s.loadMood(ctx, s.caller(c), c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	if err := s.store.DeleteMood(ctx, m.ID); err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "mood deleted", nil)
}

func (s *Server) loadMood(ctx context.Context, caller *model.User, id string) (*model.MoodEntry, error) {
	return loadOwned(ctx, s.store.GetMood, caller, id, "mood entry", func(m *model.MoodEntry) string { return m.UserID })
}
