package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/masoommulla/project-sub001/internal/model"
)

// 状态机：
//
//	scheduled → confirmed → completed
//	scheduled | confirmed → cancelled
//	scheduled | confirmed → no-show
//
// completed、cancelled、no-show 为终态。

// IsActive 判断预约是否仍处于可流转状态。
func IsActive(status string) bool {
	return status == model.AppointmentScheduled || status == model.AppointmentConfirmed
}

// HoldsSlot 除 cancelled 外的预约都占用咨询师的时段。
func HoldsSlot(status string) bool {
	return status != model.AppointmentCancelled
}

// IsTerminal 判断预约是否已进入终态。
func IsTerminal(status string) bool {
	switch status {
	case model.AppointmentCompleted, model.AppointmentCancelled, model.AppointmentNoShow:
		return true
	}
	return false
}

// InitialStatus 新预约默认 scheduled；创建时已付款则直接 confirmed。
func InitialStatus(p *model.Payment) string {
	if p != nil && p.Status == model.PaymentPaid {
		return model.AppointmentConfirmed
	}
	return model.AppointmentScheduled
}

// Confirm scheduled → confirmed。
func Confirm(a *model.Appointment, now time.Time) error {
	if a.Status != model.AppointmentScheduled {
		return InvalidState(fmt.Sprintf("cannot confirm a %s appointment", a.Status))
	}
	a.Status = model.AppointmentConfirmed
	a.UpdatedAt = now
	return nil
}

// Cancel 取消预约，记录取消人、原因与时间，已付款的改为退款，并释放时段。
func Cancel(a *model.Appointment, by, reason string, now time.Time) error {
	if a.Status == model.AppointmentCancelled {
		return InvalidState("appointment already cancelled")
	}
	if !IsActive(a.Status) {
		return InvalidState(fmt.Sprintf("cannot cancel a %s appointment", a.Status))
	}
	a.Status = model.AppointmentCancelled
	a.Cancellation = &model.Cancellation{By: by, Reason: reason, At: now}
	if a.Payment != nil && a.Payment.Status == model.PaymentPaid {
		a.Payment.Status = model.PaymentRefunded
	}
	a.Release()
	a.UpdatedAt = now
	return nil
}

// Complete scheduled | confirmed → completed。调用方负责累加咨询师的会话数。
func Complete(a *model.Appointment, now time.Time) error {
	if !IsActive(a.Status) {
		return InvalidState(fmt.Sprintf("cannot complete a %s appointment", a.Status))
	}
	a.Status = model.AppointmentCompleted
	a.UpdatedAt = now
	return nil
}

// MarkNoShow scheduled | confirmed → no-show。时段仍被占用，只有取消才释放。
func MarkNoShow(a *model.Appointment, now time.Time) error {
	if !IsActive(a.Status) {
		return InvalidState(fmt.Sprintf("cannot mark a %s appointment as no-show", a.Status))
	}
	a.Status = model.AppointmentNoShow
	a.UpdatedAt = now
	return nil
}

// AddReview 只允许对已完成且未评价的预约写入一次评价。
func AddReview(a *model.Appointment, rating int, comment string, now time.Time) error {
	if rating < 1 || rating > 5 {
		return Invalid("rating", "rating must be between 1 and 5")
	}
	if a.Status != model.AppointmentCompleted {
		return InvalidState("only completed appointments can be reviewed")
	}
	if a.Review != nil {
		return Conflict("appointment already reviewed")
	}
	a.Review = &model.Review{Rating: rating, Comment: comment, At: now}
	a.UpdatedAt = now
	return nil
}

// CheckUpdatable completed 与 cancelled 的预约不允许再修改。
func CheckUpdatable(a *model.Appointment) error {
	if a.Status == model.AppointmentCompleted || a.Status == model.AppointmentCancelled {
		return InvalidState(fmt.Sprintf("cannot update a %s appointment", a.Status))
	}
	return nil
}

// AverageRating 计算评分均值并保留一位小数，空列表返回 0。
func AverageRating(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return Round1(float64(sum) / float64(len(ratings)))
}

// Round1 四舍五入保留一位小数。
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ValidateSlot 校验日期与时间格式，并要求结束时间晚于开始时间。
func ValidateSlot(date, startTime, endTime string) error {
	ve := &ValidationError{}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		ve.Add("date", "date must be formatted as YYYY-MM-DD")
	}
	start, err := time.Parse(model.TimeLayout, startTime)
	if err != nil {
		ve.Add("startTime", "startTime must be formatted as HH:MM")
	}
	if endTime != "" {
		end, endErr := time.Parse(model.TimeLayout, endTime)
		if endErr != nil {
			ve.Add("endTime", "endTime must be formatted as HH:MM")
		} else if err == nil && !end.After(start) {
			ve.Add("endTime", "endTime must be after startTime")
		}
	}
	return ve.Err()
}
