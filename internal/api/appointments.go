package api

import (
	"context"
	"errors"
	"log/slog"
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

const defaultSessionMinutes = 60

type paymentRequest struct {
	Amount   float64 `json:"amount" binding:"min=0"`
	Currency string  `json:"currency" binding:"omitempty,len=3,alpha"`
	Status   string  `json:"status" binding:"omitempty,oneof=pending paid"`
	Method   string  `json:"method" binding:"max=30"`
}

type createAppointmentRequest struct {
	TherapistID string          `json:"therapistId" binding:"required"`
	Date        string          `json:"date" binding:"required"`
	StartTime   string          `json:"startTime" binding:"required"`
	EndTime     string          `json:"endTime"`
	Duration    int             `json:"duration" binding:"omitempty,min=15,max=240"`
	Type        string          `json:"type" binding:"omitempty,oneof=video audio chat in-person"`
	Reason      string          `json:"reason" binding:"max=500"`
	Notes       string          `json:"notes" binding:"max=1000"`
	Payment     *paymentRequest `json:"payment"`
}

type updateAppointmentRequest struct {
	Date      *string `json:"date"`
	StartTime *string `json:"startTime"`
	EndTime   *string `json:"endTime"`
	Duration  *int    `json:"duration" binding:"omitempty,min=15,max=240"`
	Type      *string `json:"type" binding:"omitempty,oneof=video audio chat in-person"`
	Reason    *string `json:"reason" binding:"omitempty,max=500"`
	Notes     *string `json:"notes" binding:"omitempty,max=1000"`
}

type cancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=1000"`
}

type listAppointmentsQuery struct {
	Status      string `form:"status"`
	TherapistID string `form:"therapistId"`
	From        string `form:"from"`
	pageQuery
}

// endTimeFor 由开始时间与时长推算结束时间。
func endTimeFor(start string, minutes int) string {
	t, err := time.Parse(model.TimeLayout, start)
	if err != nil {
		return ""
	}
	return t.Add(time.Duration(minutes) * time.Minute).Format(model.TimeLayout)
}

// handleCreateAppointment 预约咨询师。先查询冲突给出明确提示，再依靠存储层的时段唯一键兜底并发预约。
func (s *Server) handleCreateAppointment(c *gin.Context) {
	var req createAppointmentRequest
	if err := response.Bind(c, &req); err != nil {
		s.resp.Error(c, err)
		return
	}
	if err := domain.ValidateSlot(req.Date, req.StartTime, req.EndTime); err != nil {
		s.resp.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	caller := s.caller(c)
	now := s.now()

	therapist, err := s.store.GetTherapist(ctx, req.TherapistID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = domain.NotFound("therapist")
		}
		s.resp.Error(c, err)
		return
	}
	if !therapist.IsAvailable {
		s.resp.Error(c, domain.Conflict("therapist is not accepting appointments"))
		return
	}

	a := &model.Appointment{
		ID:          uuid.NewString(),
		UserID:      caller.ID,
		TherapistID: therapist.ID,
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Duration:    req.Duration,
		Type:        req.Type,
		Reason:      strings.TrimSpace(req.Reason),
		Notes:       strings.TrimSpace(req.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if a.Duration == 0 {
		a.Duration = defaultSessionMinutes
	}
	if a.EndTime == "" {
		a.EndTime = endTimeFor(a.StartTime, a.Duration)
	}
	if a.Type == "" {
		a.Type = model.SessionVideo
	}
	if !a.StartsAt(now.Location()).After(now) {
		s.resp.Error(c, domain.Invalid("date", "appointment must be scheduled in the future"))
		return
	}
	if p := req.Payment; p != nil {
		a.Payment = &model.Payment{Amount: p.Amount, Currency: strings.ToUpper(p.Currency), Status: p.Status, Method: p.Method}
		if a.Payment.Currency == "" {
			a.Payment.Currency = "USD"
		}
		if a.Payment.Status == "" {
			a.Payment.Status = model.PaymentPending
		}
		if a.Payment.Status == model.PaymentPaid {
			a.Payment.PaidAt = &now
		}
	}
	a.Status = domain.InitialStatus(a.Payment)

	if err := s.checkSlot(ctx, a); err != nil {
		s.resp.Error(c, err)
		return
	}
	a.Reserve()
	if err := s.store.CreateAppointment(ctx, a); err != nil {
		s.resp.Error(c, slotError(err))
		return
	}
	metrics.AppointmentsBookedTotal.Inc()
	s.logger.Info("appointment booked",
		slog.String("appointment_id", a.ID),
		slog.String("user_id", caller.ID),
		slog.String("therapist_id", a.TherapistID),
	)
	response.Created(c, "appointment booked", a)
}

// checkSlot 同一咨询师同一日期同一开始时间只能有一个有效预约。
func (s *Server) checkSlot(ctx context.Context, a *model.Appointment) error {
	_, err := s.store.FindSlotConflict(ctx, a.TherapistID, a.Date, a.StartTime, a.ID)
	if err == nil {
		metrics.AppointmentConflictsTotal.Inc()
		return domain.Conflict("this time slot is already booked")
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

func slotError(err error) error {
	if errors.Is(err, storage.ErrDuplicate) {
		metrics.AppointmentConflictsTotal.Inc()
		return domain.Conflict("this time slot is already booked")
	}
	return err
}

func (s *Server) handleListAppointments(c *gin.Context) {
	var q listAppointmentsQuery
	if err := response.BindQuery(c, &q); err != nil {
		s.resp.Error(c, err)
		return
	}
	if q.From != "" {
		if _, err := time.Parse(model.DateLayout, q.From); err != nil {
			s.resp.Error(c, domain.Invalid("from", "from must be formatted as YYYY-MM-DD"))
			return
		}
	}
	appts, err := s.store.ListAppointments(c.Request.Context(), storage.AppointmentFilter{
		UserID:      s.caller(c).ID,
		TherapistID: q.TherapistID,
		FromDate:    q.From,
		Statuses:    splitCSV(q.Status),
		Page:        q.toPage(),
	})
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.List(c, appts)
}

// handleUpcomingAppointments 返回尚未开始的有效预约，按时间升序。
func (s *Server) handleUpcomingAppointments(c *gin.Context) {
	var q pageQuery
	if err := response.BindQuery(c, &q); err != nil {
		s.resp.Error(c, err)
		return
	}
	now := s.now()
	appts, err := s.store.ListAppointments(c.Request.Context(), storage.AppointmentFilter{
		UserID:    s.caller(c).ID,
		FromDate:  now.Format(model.DateLayout),
		Statuses:  []string{model.AppointmentScheduled, model.AppointmentConfirmed},
		Ascending: true,
	})
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	upcoming := make([]model.Appointment, 0, len(appts))
	for i := range appts {
		if appts[i].StartsAt(now.Location()).After(now) {
			upcoming = append(upcoming, appts[i])
		}
	}
	page := q.toPage()
	if page.Offset >= len(upcoming) {
		upcoming = upcoming[:0]
	} else {
		upcoming = upcoming[page.Offset:min(len(upcoming), page.Offset+page.Limit)]
	}
	response.List(c, upcoming)
}

func (s *Server) handleAppointmentStats(c *gin.Context) {
	appts, err := s.store.ListAppointments(c.Request.Context(), storage.AppointmentFilter{UserID: s.caller(c).ID})
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "", domain.AppointmentStats(appts, s.now()))
}

func (s *Server) handleGetAppointment(c *gin.Context) {
	a, err := s.loadAppointment(c.Request.Context(), s.caller(c), c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "", a)
}

// handleUpdateAppointment 修改或改期。已完成与已取消的预约不可修改；改期会重新检查时段。
func (s *Server) handleUpdateAppointment(c *gin.Context) {
	var req updateAppointmentRequest
	if err := response.Bind(c, &req); err != nil {
		s.resp.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	a, err := s.loadAppointment(ctx, s.caller(c), c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	if err := domain.CheckUpdatable(a); err != nil {
		s.resp.Error(c, err)
		return
	}

	now := s.now()
	rescheduled := false
	if req.Date != nil && *req.Date != a.Date {
		a.Date, rescheduled = *req.Date, true
	}
	if req.StartTime != nil && *req.StartTime != a.StartTime {
		a.StartTime, rescheduled = *req.StartTime, true
	}
	if req.Duration != nil {
		a.Duration = *req.Duration
	}
	switch {
	case req.EndTime != nil:
		a.EndTime = *req.EndTime
	case rescheduled || req.Duration != nil:
		a.EndTime = endTimeFor(a.StartTime, a.Duration)
	}
	if req.Type != nil {
		a.Type = *req.Type
	}
	if req.Reason != nil {
		a.Reason = strings.TrimSpace(*req.Reason)
	}
	if req.Notes != nil {
		a.Notes = strings.TrimSpace(*req.Notes)
	}
	if err := domain.ValidateSlot(a.Date, a.StartTime, a.EndTime); err != nil {
		s.resp.Error(c, err)
		return
	}

	if rescheduled {
		if !a.StartsAt(now.Location()).After(now) {
			s.resp.Error(c, domain.Invalid("date", "appointment must be scheduled in the future"))
			return
		}
		if domain.HoldsSlot(a.Status) {
			if err := s.checkSlot(ctx, a); err != nil {
				s.resp.Error(c, err)
				return
			}
			a.Reserve()
		}
	}
	a.UpdatedAt = now
	if err := s.store.UpdateAppointment(ctx, a); err != nil {
		s.resp.Error(c, slotError(err))
		return
	}
	response.OK(c, "appointment updated", a)
}

func (s *Server) handleDeleteAppointment(c *gin.Context) {
	ctx := c.Request.Context()
	caller := s.caller(c)
	a, err := s.loadAppointment(ctx, caller, c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	// 只有预约人与管理员能删除；咨询师与其他人一样得到 404
	if !domain.CanAccess(caller, a.UserID) {
		s.resp.Error(c, domain.NotFound("appointment"))
		return
	}
	if err := s.store.DeleteAppointment(ctx, a.ID); err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "appointment deleted", nil)
}

// handleCancelAppointment PUT /appointments/:id/cancel，请求体 {reason} 可省略。
func (s *Server) handleCancelAppointment(c *gin.Context) {
	var req cancelRequest
	if err := bindOptional(c, &req); err != nil {
		s.resp.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	caller := s.caller(c)
	a, err := s.loadAppointment(ctx, caller, c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	by := model.RoleUser
	switch {
	case caller.ID == a.UserID:
	case caller.IsAdmin():
		by = model.RoleAdmin
	default:
		by = model.RoleTherapist
	}
	if err := domain.Cancel(a, by, strings.TrimSpace(req.Reason), s.now()); err != nil {
		s.resp.Error(c, err)
		return
	}
	s.saveTransition(c, a, "appointment cancelled")
}

func (s *Server) handleConfirmAppointment(c *gin.Context) {
	a, err := s.loadAppointment(c.Request.Context(), s.caller(c), c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	if err := domain.Confirm(a, s.now()); err != nil {
		s.resp.Error(c, err)
		return
	}
	s.saveTransition(c, a, "appointment confirmed")
}

// handleCompleteAppointment 完成预约并累加咨询师的会话数。
func (s *Server) handleCompleteAppointment(c *gin.Context) {
	ctx := c.Request.Context()
	a, err := s.loadAppointment(ctx, s.caller(c), c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	if err := domain.Complete(a, s.now()); err != nil {
		s.resp.Error(c, err)
		return
	}
	if !s.saveTransition(c, a, "appointment completed") {
		return
	}
	if err := s.store.IncrementTherapistSessions(ctx, a.TherapistID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("increment therapist sessions failed", slog.String("therapist_id", a.TherapistID), slog.String("error", err.Error()))
	}
}

func (s *Server) handleNoShowAppointment(c *gin.Context) {
	a, err := s.loadAppointment(c.Request.Context(), s.caller(c), c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	if err := domain.MarkNoShow(a, s.now()); err != nil {
		s.resp.Error(c, err)
		return
	}
	s.saveTransition(c, a, "appointment marked as no-show")
}

func (s *Server) saveTransition(c *gin.Context, a *model.Appointment, msg string) bool {
	if err := s.store.UpdateAppointment(c.Request.Context(), a); err != nil {
		s.resp.Error(c, slotError(err))
		return false
	}
	response.OK(c, msg, a)
	return true
}

// handleReviewAppointment 写入评价并重新计算咨询师评分。只有预约人本人或管理员可以评价。
func (s *Server) handleReviewAppointment(c *gin.Context) {
	var req reviewRequest
	if err := response.Bind(c, &req); err != nil {
		s.resp.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	caller := s.caller(c)
	a, err := s.loadAppointment(ctx, caller, c.Param("id"))
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	if !domain.CanAccess(caller, a.UserID) {
		s.resp.Error(c, domain.Forbidden("only the client can review an appointment"))
		return
	}
	if err := domain.AddReview(a, req.Rating, strings.TrimSpace(req.Comment), s.now()); err != nil {
		s.resp.Error(c, err)
		return
	}
	if err := s.store.UpdateAppointment(ctx, a); err != nil {
		s.resp.Error(c, err)
		return
	}

	rating, count, err := s.refreshTherapistRating(ctx, a.TherapistID)
	if err != nil {
		s.logger.Error("recompute therapist rating failed", slog.String("therapist_id", a.TherapistID), slog.String("error", err.Error()))
		response.OK(c, "review submitted", gin.H{"appointment": a})
		return
	}
	response.OK(c, "review submitted", gin.H{"appointment": a, "therapistRating": rating, "reviewCount": count})
}

// refreshTherapistRating 评分取该咨询师所有已评价预约的均值，保留一位小数。
func (s *Server) refreshTherapistRating(ctx context.Context, therapistID string) (float64, int, error) {
	ratings, err := s.store.ReviewRatings(ctx, therapistID)
	if err != nil {
		return 0, 0, err
	}
	avg := domain.AverageRating(ratings)
	if err := s.store.SetTherapistRating(ctx, therapistID, avg, len(ratings)); err != nil {
		return 0, 0, err
	}
	return avg, len(ratings), nil
}

// handleClearPastAppointments DELETE /appointments/past/clear 删除已结束的预约。
func (s *Server) handleClearPastAppointments(c *gin.Context) {
	n, err := s.store.DeleteFinishedAppointments(c.Request.Context(), s.caller(c).ID)
	if err != nil {
		s.resp.Error(c, err)
		return
	}
	response.OK(c, "past appointments cleared", gin.H{"deleted": n})
}

// loadAppointment 预约人、管理员以及被预约的咨询师本人可以访问。
func (s *Server) loadAppointment(ctx context.Context, caller *model.User, id string) (*model.Appointment, error) {
	a, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.NotFound("appointment")
		}
		return nil, err
	}
	if domain.CanAccess(caller, a.UserID) || s.isTherapistFor(ctx, caller, a.TherapistID) {
		return a, nil
	}
	return nil, domain.NotFound("appointment")
}

func (s *Server) isTherapistFor(ctx context.Context, caller *model.User, therapistID string) bool {
	if caller == nil || caller.Role != model.RoleTherapist {
		return false
	}
	t, err := s.store.GetTherapistByUser(ctx, caller.ID)
	if err != nil {
		return false
	}
	return t.ID == therapistID
}
