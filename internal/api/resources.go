package api

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/masoommulla/project-sub001/internal/api/response"
	"github.com/masoommulla/project-sub001/internal/domain"
	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/storage"
)

type createResourceRequest struct {
	Title       string   `json:"title" binding:"required,max=200"`
	Description string   `json:"description" binding:"required,max=1000"`
	Category    string   `json:"category" binding:"required,oneof=anxiety depression stress self-care relationships sleep mindfulness general"`
	Type        string   `json:"type" binding:"required,oneof=article video audio exercise worksheet hotline"`
	Content     string   `json:"content" binding:"max=50000"`
	URL         string   `json:"url" binding:"omitempty,url"`
	Author      string   `json:"author" binding:"max=100"`
	Tags        []string `json:"tags" binding:"max=20,dive,max=30"`
	Duration    int      `json:"duration" binding:"min=0,max=600"`
	Rating      float64  `json:"rating" binding:"min=0,max=5"`
	IsFeatured  bool     `json:"isFeatured"`
}

type updateResourceRequest struct {
	Title       *string  `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string  `json:"description" binding:"omitempty,min=1,max=1000"`
	Category    *string  `json:"category" binding:"omitempty,oneof=anxiety depression stress self-care relationships sleep mindfulness general"`
	Type        *string  `json:"type" binding:"omitempty,oneof=article video audio exercise worksheet hotline"`
	Content     *string  `json:"content" binding:"omitempty,max=50000"`
	URL         *string  `json:"url" binding:"omitempty,url"`
	Author      *string  `json:"author" binding:"omitempty,max=100"`
	Tags        []string `json:"tags" binding:"omitempty,max=20,dive,max=30"`
	Duration    *int     `json:"duration" binding:"omitempty,min=0,max=600"`
	Rating      *float64 `json:"rating" binding:"omitempty,min=0,max=5"`
	IsFeatured  *bool    `json:"isFeatured"`
}

type listResourcesQuery struct {
	Category string `form:"category" binding:"omitempty,oneof=anxiety depression stress self-care relationships sleep mindfulness general"`
	Type     string `form:"type" binding:"omitempty,oneof=article video audio exercise worksheet hotline"`
	Tag      string `form:"tag"`
	Search   string `form:"search" binding:"max=100"`
	Q        string `form:"q" binding:"max=100"`
	Featured *bool  `form:"featured"`
	Sort     string `form:"sort" binding:"omitempty,oneof=popular rating recent"`
	pageQuery
}

func (q listResourcesQuery) filter() storage.ResourceFilter {
	search := strings.TrimSpace(q.Search)
	if search == "" {
		search = strings.TrimSpace(q.Q)
	}
	return storage.ResourceFilter{
		Category: q.Category,
		Type:     q.Type,
		Tag:      strings.ToLower(strings.TrimSpace(q.Tag)),
		Search:   search,
		Featured: q.Featured,
		Sort:     q.Sort,
		Page:     q.toPage(),
	}
}

func (s *Server) handleListResources(c *gin.Context) {
	var q listResourcesQuery
	if err := response.BindQuery(c, &q); err != nil {
		s.resp.Error(c, err)
		return
	}
	list, err := s.store.ListResources(c.Request.Context(), q.filter())
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.List(c, list)
}

func (s *Server) handleFeaturedResources(c *gin.Context) {
	var q pageQuery
	if err := response.BindQuery(c, &q); err != nil {
		s.resp.Error(c, err)
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultFeaturedLimit
	}
	featured := true
	list, err := s.store.ListResources(c.Request.Context(), storage.ResourceFilter{Featured: &featured, Sort: "popular", Page: q.toPage()})
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.List(c, list)
}

func (s *Server) handleSearchResources(c *gin.Context) {
	var q listResourcesQuery
	if err := response.BindQuery(c, &q); err != nil {
		s.resp.Error(c, err)
		return
	}
	f := q.filter()
	if f.Search == "" {
		s.resp.Error(c, domain.Invalid("q", "search query is required"))
		return
	}
	list, err := s.store.ListResources(c.Request.Context(), f)
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.List(c, list)
}

// handleResourceCategories 返回全部分类及数量，没有资源的分类计为 0。
func (s *Server) handleResourceCategories(c *gin.Context) {
	counts, err := s.store.ResourceCategoryCounts(c.Request.Context())
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	byName := make(map[string]int, len(counts))
	for _, cc := range counts {
		byName[cc.Category] = cc.Count
	}
	out := make([]model.CategoryCount, 0, len(model.ResourceCategories))
	for _, name := range model.ResourceCategories {
		out = append(out, model.CategoryCount{Category: name, Count: byName[name]})
	}
	response.List(c, out)
}

// handleGetResource 读取资源并累加浏览数。
func (s *Server) handleGetResource(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if err := s.store.IncrementResourceViews(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = domain.NotFound("resource")
		}
		s.resp.Error(c, err)
		return
	}
	r, err := s.store.GetResource(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = domain.NotFound("resource")
		}
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "", r)
}

func (s *Server) handleCreateResource(c *gin.Context) {
	var req createResourceRequest
	if err := response.Bind(c, &req); err != nil {
		s.resp.Error(c, err)
		return
	}
	now := s.now()
	r := &model.Resource{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Category:    req.Category,
		Type:        req.Type,
		Content:     req.Content,
		URL:         req.URL,
		Author:      strings.TrimSpace(req.Author),
		Tags:        lowerList(req.Tags),
		Duration:    req.Duration,
		Rating:      req.Rating,
		LikedBy:     []string{},
		IsFeatured:  req.IsFeatured,
		CreatedBy:   s.caller(c).ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateResource(c.Request.Context(), r); err != nil {
		s.resp.Error(c, err)
		return
	}
	response.Created(c, "resource created", r)
}

func (s *Server) handleUpdateResource(c *gin.Context) {
	var req updateResourceRequest
	if err := response.Bind(c, &req); err != nil {
		s.resp.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	r, err := s.store.GetResource(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = domain.NotFound("resource")
		}
		s.resp.Error(c, err)
		return
	}
	if req.Title != nil {
		r.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		r.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		r.Category = *req.Category
	}
	if req.Type != nil {
		r.Type = *req.Type
	}
	if req.Content != nil {
		r.Content = *req.Content
	}
	if req.URL != nil {
		r.URL = *req.URL
	}
	if req.Author != nil {
		r.Author = strings.TrimSpace(*req.Author)
	}
	if req.Tags != nil {
		r.Tags = lowerList(req.Tags)
	}
	if req.Duration != nil {
		r.Duration = *req.Duration
	}
	if req.Rating != nil {
		r.Rating = *req.Rating
	}
	if req.IsFeatured != nil {
		r.IsFeatured = *req.IsFeatured
	}
	r.UpdatedAt = s.now()
	if err := s.store.UpdateResource(ctx, r); err != nil {
		s.resp.Error(c, err)
		return
	}
	updated, err := s.store.GetResource(ctx, r.ID)
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "resource updated", updated)
}

func (s *Server) handleDeleteResource(c *gin.Context) {
	if err := s.store.DeleteResource(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = domain.NotFound("resource")
		}
		s.resp.Error(c, err)
		return
	}
	s.logger.Info("resource deleted", slog.String("resource_id", c.Param("id")))
	response.OK(c, "resource deleted", nil)
}

// handleLikeResource 切换当前用户的点赞。
func (s *Server) handleLikeResource(c *gin.Context) {
	liked, likes, err := s.store.ToggleResourceLike(c.Request.Context(), c.Param("id"), s.caller(c).ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = domain.NotFound("resource")
		}
		s.resp.Error(c, err)
		return
	}
	msg := "resource unliked"
	if liked {
		msg = "resource liked"
	}
	response.OK(c, msg, gin.H{"liked": liked, "likes": likes})
}

func (s *Server) handleDownloadResource(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	downloads, err := s.store.IncrementResourceDownloads(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = domain.NotFound("resource")
		}
		s.resp.Error(c, err)
		return
	}
	r, err := s.store.GetResource(ctx, id)
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "download recorded", gin.H{"downloads": downloads, "url": r.URL})
}
