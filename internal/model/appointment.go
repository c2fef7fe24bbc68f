package model

import "time"

// 预约状态。
const (
	AppointmentScheduled = "scheduled"
	AppointmentConfirmed = "confirmed"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
	AppointmentNoShow    = "no-show"
)

// 预约类型。
const (
	SessionVideo    = "video"
	SessionAudio    = "audio"
	SessionChat     = "chat"
	SessionInPerson = "in-person"
)

// 支付状态。
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

// DateLayout 与 TimeLayout 是预约日期与时间的存储格式，字符串可直接比较大小。
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Appointment 用户与咨询师的一次预约。
//
// SlotKey 只在非取消状态下存在，存储层对其建立唯一索引，
// 保证同一咨询师同一时段只有一个有效预约。
type Appointment struct {
	ID           string        `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	UserID       string        `json:"userId" bson:"user_id" gorm:"type:varchar(36);index;not null"`
	TherapistID  string        `json:"therapistId" bson:"therapist_id" gorm:"type:varchar(36);index;not null"`
	Date         string        `json:"date" bson:"date" gorm:"type:varchar(10);index;not null"`
	StartTime    string        `json:"startTime" bson:"start_time" gorm:"type:varchar(5);not null"`
	EndTime      string        `json:"endTime" bson:"end_time" gorm:"type:varchar(5)"`
	Duration     int           `json:"duration" bson:"duration"` // 分钟
	Type         string        `json:"type" bson:"type" gorm:"type:varchar(16)"`
	Status       string        `json:"status" bson:"status" gorm:"type:varchar(16);index"`
	Reason       string        `json:"reason,omitempty" bson:"reason,omitempty" gorm:"type:text"`
	Notes        string        `json:"notes,omitempty" bson:"notes,omitempty" gorm:"type:text"`
	Payment      *Payment      `json:"payment,omitempty" bson:"payment,omitempty" gorm:"serializer:json"`
	Cancellation *Cancellation `json:"cancellation,omitempty" bson:"cancellation,omitempty" gorm:"serializer:json"`
	Review       *Review       `json:"review,omitempty" bson:"review,omitempty" gorm:"serializer:json"`
	SlotKey      *string       `json:"-" bson:"slot_key,omitempty" gorm:"type:varchar(128);uniqueIndex"`
	CreatedAt    time.Time     `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time     `json:"updatedAt" bson:"updated_at"`
}

// Payment 支付子记录。
type Payment struct {
	Amount   float64    `json:"amount" bson:"amount"`
	Currency string     `json:"currency" bson:"currency"`
	Status   string     `json:"status" bson:"status"`
	Method   string     `json:"method,omitempty" bson:"method,omitempty"`
	PaidAt   *time.Time `json:"paidAt,omitempty" bson:"paid_at,omitempty"`
}

// Cancellation 取消信息。
type Cancellation struct {
	By     string    `json:"by" bson:"by"`
	Reason string    `json:"reason,omitempty" bson:"reason,omitempty"`
	At     time.Time `json:"at" bson:"at"`
}

// Review 预约完成后的评价。
type Review struct {
	Rating  int       `json:"rating" bson:"rating"`
	Comment string    `json:"comment,omitempty" bson:"comment,omitempty"`
	At      time.Time `json:"at" bson:"at"`
}

// SlotKeyFor 返回咨询师时段的唯一键。
func SlotKeyFor(therapistID, date, startTime string) string {
	return therapistID + "|" + date + "|" + startTime
}

// Reserve 为当前时段设置 SlotKey。
func (a *Appointment) Reserve() {
	key := SlotKeyFor(a.TherapistID, a.Date, a.StartTime)
	a.SlotKey = &key
}

// Release 释放时段占用。
func (a *Appointment) Release() {
	a.SlotKey = nil
}

// StartsAt 返回预约开始时间（解析失败时返回零值）。
func (a *Appointment) StartsAt(loc *time.Location) time.Time {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, a.Date+" "+a.StartTime, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}
