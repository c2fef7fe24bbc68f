package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/masoommulla/project-sub001/internal/api/response"
	"github.com/masoommulla/project-sub001/internal/domain"
	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/storage"
)

const defaultFeaturedLimit = 6

type qualificationRequest struct {
	Degree      string `json:"degree" binding:"required,max=100"`
	Institution string `json:"institution" binding:"max=150"`
	Year        int    `json:"year" binding:"omitempty,min=1950,max=2100"`
}

type availabilityRequest struct {
	Day       string `json:"day" binding:"required,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	StartTime string `json:"startTime" binding:"required,datetime=15:04"`
	EndTime   string `json:"endTime" binding:"required,datetime=15:04"`
}

type therapistRequest struct {
	UserID          string                 `json:"userId"`
	Name            string                 `json:"name" binding:"required,min=2,max=100"`
	Email           string                 `json:"email" binding:"omitempty,email"`
	Title           string                 `json:"title" binding:"max=100"`
	Bio             string                 `json:"bio" binding:"max=2000"`
	Specialties     []string               `json:"specialties" binding:"max=20,dive,max=50"`
	Qualifications  []qualificationRequest `json:"qualifications" binding:"max=10,dive"`
	Languages       []string               `json:"languages" binding:"max=10,dive,max=30"`
	YearsExperience int                    `json:"yearsExperience" binding:"min=0,max=70"`
	SessionTypes    []string               `json:"sessionTypes" binding:"max=4,dive,oneof=video audio chat in-person"`
	SessionFee      float64                `json:"sessionFee" binding:"min=0"`
	Availability    []availabilityRequest  `json:"availability" binding:"max=21,dive"`
	Avatar          string                 `json:"avatar" binding:"omitempty,url"`
	IsAvailable     *bool                  `json:"isAvailable"`
	IsVerified      *bool                  `json:"isVerified"`
	IsFeatured      *bool                  `json:"isFeatured"`
}

type updateTherapistRequest struct {
	Name            *string                `json:"name" binding:"omitempty,min=2,max=100"`
	Email           *string                `json:"email" binding:"omitempty,email"`
	Title           *string                `json:"title" binding:"omitempty,max=100"`
	Bio             *string                `json:"bio" binding:"omitempty,max=2000"`
	Specialties     []string               `json:"specialties" binding:"omitempty,max=20,dive,max=50"`
	Qualifications  []qualificationRequest `json:"qualifications" binding:"omitempty,max=10,dive"`
	Languages       []string               `json:"languages" binding:"omitempty,max=10,dive,max=30"`
	YearsExperience *int                   `json:"yearsExperience" binding:"omitempty,min=0,max=70"`
	SessionTypes    []string               `json:"sessionTypes" binding:"omitempty,max=4,dive,oneof=video audio chat in-person"`
	SessionFee      *float64               `json:"sessionFee" binding:"omitempty,min=0"`
	Availability    []availabilityRequest  `json:"availability" binding:"omitempty,max=21,dive"`
	Avatar          *string                `json:"avatar" binding:"omitempty,url"`
	IsAvailable     *bool                  `json:"isAvailable"`
	IsVerified      *bool                  `json:"isVerified"`
	IsFeatured      *bool                  `json:"isFeatured"`
}

type listTherapistsQuery struct {
	Specialty   string  `form:"specialty"`
	Language    string  `form:"language"`
	SessionType string  `form:"sessionType" binding:"omitempty,oneof=video audio chat in-person"`
	Search      string  `form:"search" binding:"max=100"`
	Q           string  `form:"q" binding:"max=100"`
	Featured    *bool   `form:"featured"`
	Available   bool    `form:"available"`
	MinRating   float64 `form:"minRating" binding:"min=0,max=5"`
	MaxFee      float64 `form:"maxFee" binding:"min=0"`
	Sort        string  `form:"sort" binding:"omitempty,oneof=rating experience fee recent"`
	pageQuery
}

type availabilityQuery struct {
	Date string `form:"date" binding:"required"`
}

func (q listTherapistsQuery) filter() storage.TherapistFilter {
	search := strings.TrimSpace(q.Search)
	if search == "" {
		search = strings.TrimSpace(q.Q)
	}
	return storage.TherapistFilter{
		Specialty:     strings.TrimSpace(q.Specialty),
		Language:      strings.TrimSpace(q.Language),
		SessionType:   q.SessionType,
		Search:        search,
		Featured:      q.Featured,
		AvailableOnly: q.Available,
		MinRating:     q.MinRating,
		MaxFee:        q.MaxFee,
		Sort:          q.Sort,
		Page:          q.toPage(),
	}
}

func toQualifications(in []qualificationRequest) []model.Qualification {
	out := make([]model.Qualification, 0, len(in))
	for _, q := range in {
		out = append(out, model.Qualification{Degree: strings.TrimSpace(q.Degree), Institution: strings.TrimSpace(q.Institution), Year: q.Year})
	}
	return out
}

func toAvailability(in []availabilityRequest) ([]model.Availability, error) {
	out := make([]model.Availability, 0, len(in))
	for _, a := range in {
		if a.EndTime <= a.StartTime {
			return nil, domain.Invalid("availability", "endTime must be after startTime")
		}
		out = append(out, model.Availability{Day: a.Day, StartTime: a.StartTime, EndTime: a.EndTime})
	}
	return out, nil
}

func (s *Server) handleListTherapists(c *gin.Context) {
	var q listTherapistsQuery
	if err := response.BindQuery(c, &q); err != nil {
		s.resp.Error(c, err)
		return
	}
	list, err := s.store.ListTherapists(c.Request.Context(), q.filter())
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.List(c, list)
}

func (s *Server) handleFeaturedTherapists(c *gin.Context) {
	var q pageQuery
	if err := response.BindQuery(c, &q); err != nil {
		s.resp.Error(c, err)
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultFeaturedLimit
	}
	featured := true
	list, err := s.store.ListTherapists(c.Request.Context(), storage.TherapistFilter{
		Featured:      &featured,
		AvailableOnly: true,
		Sort:          "rating",
		Page:          q.toPage(),
	})
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.List(c, list)
}

// handleSearchTherapists GET /therapists/search?q=
func (s *Server) handleSearchTherapists(c *gin.Context) {
	var q listTherapistsQuery
	if err := response.BindQuery(c, &q); err != nil {
		s.resp.Error(c, err)
		return
	}
	f := q.filter()
	if f.Search == "" {
		s.resp.Error(c, domain.Invalid("q", "search query is required"))
		return
	}
	list, err := s.store.ListTherapists(c.Request.Context(), f)
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.List(c, list)
}

func (s *Server) handleGetTherapist(c *gin.Context) {
	t, err := s.store.GetTherapist(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = domain.NotFound("therapist")
		}
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "", t)
}

// handleTherapistAvailability 返回指定日期的工作时段与已被预约的开始时间。
//
// GET /therapists/:id/availability?date=YYYY-MM-DD
func (s *Server) handleTherapistAvailability(c *gin.Context) {
	var q availabilityQuery
	if err := response.BindQuery(c, &q); err != nil {
		s.resp.Error(c, err)
		return
	}
	day, err := time.Parse(model.DateLayout, q.Date)
	if err != nil {
		s.resp.Error(c, domain.Invalid("date", "date must be formatted as YYYY-MM-DD"))
		return
	}
	ctx := c.Request.Context()
	t, err := s.store.GetTherapist(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = domain.NotFound("therapist")
		}
		s.resp.Error(c, err)
		return
	}
	booked, err := s.store.ListAppointments(ctx, storage.AppointmentFilter{
		TherapistID: t.ID,
		Date:        q.Date,
		Statuses:    []string{model.AppointmentScheduled, model.AppointmentConfirmed, model.AppointmentCompleted, model.AppointmentNoShow},
		Ascending:   true,
	})
	if err != nil {
		s.resp.Error(c, err)
		return
	}

	weekday := strings.ToLower(day.Weekday().String())
	slots := make([]model.Availability, 0)
	for _, a := range t.Availability {
		if a.Day == weekday {
			slots = append(slots, a)
		}
	}
	times := make([]string, 0, len(booked))
	for _, a := range booked {
		times = append(times, a.StartTime)
	}
	response.OK(c, "", gin.H{
		"therapistId": t.ID,
		"date":        q.Date,
		"day":         weekday,
		"isAvailable": t.IsAvailable,
		"slots":       slots,
		"booked":      times,
	})
}

// handleCreateTherapist 咨询师为自己创建资料（每个账号一份）；管理员可以代为创建并指定 userId。
func (s *Server) handleCreateTherapist(c *gin.Context) {
	var req therapistRequest
	if err := response.Bind(c, &req); err != nil {
		s.resp.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	caller := s.caller(c)

	ownerID := caller.ID
	if caller.IsAdmin() {
		ownerID = strings.TrimSpace(req.UserID)
	}
	if ownerID != "" {
		if _, err := s.store.GetTherapistByUser(ctx, ownerID); err == nil {
			s.resp.Error(c, domain.Conflict("therapist profile already exists for this account"))
			return
		} else if !errors.Is(err, storage.ErrNotFound) {
			s.resp.Error(c, err)
			return
		}
	}
	avail, err := toAvailability(req.Availability)
	if err != nil {
		s.resp.Error(c, err)
		return
	}

	now := s.now()
	t := &model.Therapist{
		ID:              uuid.NewString(),
		UserID:          ownerID,
		Name:            strings.TrimSpace(req.Name),
		Email:           strings.ToLower(strings.TrimSpace(req.Email)),
		Title:           strings.TrimSpace(req.Title),
		Bio:             strings.TrimSpace(req.Bio),
		Specialties:     lowerList(req.Specialties),
		Qualifications:  toQualifications(req.Qualifications),
		Languages:       cleanList(req.Languages),
		YearsExperience: req.YearsExperience,
		SessionTypes:    cleanList(req.SessionTypes),
		SessionFee:      req.SessionFee,
		Availability:    avail,
		Avatar:          req.Avatar,
		IsAvailable:     true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if t.Email == "" && ownerID == caller.ID {
		t.Email = caller.Email
	}
	if len(t.SessionTypes) == 0 {
		t.SessionTypes = []string{model.SessionVideo}
	}
	if req.IsAvailable != nil {
		t.IsAvailable = *req.IsAvailable
	}
	if caller.IsAdmin() {
		if req.IsVerified != nil {
			t.IsVerified = *req.IsVerified
		}
		if req.IsFeatured != nil {
			t.IsFeatured = *req.IsFeatured
		}
	}
	if err := s.store.CreateTherapist(ctx, t); err != nil {
		s.resp.Error(c, err)
		return
	}
	response.Created(c, "therapist profile created", t)
}

// handleUpdateTherapist 资料本人或管理员可修改；认证与推荐标记只有管理员能改。
func (s *Server) handleUpdateTherapist(c *gin.Context) {
	var req updateTherapistRequest
	if err := response.Bind(c, &req); err != nil {
		s.resp.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	caller := s.caller(c)
	t, err := s.store.GetTherapist(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = domain.NotFound("therapist")
		}
		s.resp.Error(c, err)
		return
	}
	if !domain.CanManageTherapist(caller, t) {
		s.resp.Error(c, domain.Forbidden(""))
		return
	}
	if (req.IsVerified != nil || req.IsFeatured != nil) && !caller.IsAdmin() {
		s.resp.Error(c, domain.Forbidden(""))
		return
	}

	if req.Name != nil {
		t.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		t.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Title != nil {
		t.Title = strings.TrimSpace(*req.Title)
	}
	if req.Bio != nil {
		t.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.Specialties != nil {
		t.Specialties = lowerList(req.Specialties)
	}
	if req.Qualifications != nil {
		t.Qualifications = toQualifications(req.Qualifications)
	}
	if req.Languages != nil {
		t.Languages = cleanList(req.Languages)
	}
	if req.YearsExperience != nil {
		t.YearsExperience = *req.YearsExperience
	}
	if req.SessionTypes != nil {
		t.SessionTypes = cleanList(req.SessionTypes)
	}
	if req.SessionFee != nil {
		t.SessionFee = *req.SessionFee
	}
	if req.Availability != nil {
		avail, err := toAvailability(req.Availability)
		if err != nil {
			s.resp.Error(c, err)
			return
		}
		t.Availability = avail
	}
	if req.Avatar != nil {
		t.Avatar = *req.Avatar
	}
	if req.IsAvailable != nil {
		t.IsAvailable = *req.IsAvailable
	}
	if req.IsVerified != nil {
		t.IsVerified = *req.IsVerified
	}
	if req.IsFeatured != nil {
		t.IsFeatured = *req.IsFeatured
	}
	t.UpdatedAt = s.now()
	if err := s.store.UpdateTherapist(ctx, t); err != nil {
		s.resp.Error(c, err)
		return
	}
	// 重新读取，带上并发写入的评分与会话数
	updated, err := s.store.GetTherapist(ctx, t.ID)
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "therapist profile updated", updated)
}

func (s *Server) handleDeleteTherapist(c *gin.Context) {
	if err := s.store.DeleteTherapist(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = domain.NotFound("therapist")
		}
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "therapist deleted", nil)
}
