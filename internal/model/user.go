package model

import "time"

// 用户角色。
const (
	RoleUser      = "user"
	RoleTherapist = "therapist"
	RoleAdmin     = "admin"
)

// 订阅方案。
const (
	PlanFree    = "free"
	PlanPremium = "premium"
	PlanPro     = "pro"
)

// 年龄限制（面向青少年）。
const (
	MinAge = 13
	MaxAge = 19
)

// User 表示系统用户。
//
// Password 保存 bcrypt 哈希，任何 JSON 响应中都不会输出。
type User struct {
	ID           string       `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Name         string       `json:"name" bson:"name" gorm:"type:varchar(100);not null"`
	Email        string       `json:"email" bson:"email" gorm:"type:varchar(191);uniqueIndex;not null"` // 小写存储
	Password     string       `json:"-" bson:"password" gorm:"not null"`
	Age          int          `json:"age" bson:"age"`
	Role         string       `json:"role" bson:"role" gorm:"type:varchar(16);default:user"`
	Avatar       string       `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Bio          string       `json:"bio,omitempty" bson:"bio,omitempty" gorm:"type:text"`
	Settings     UserSettings `json:"settings" bson:"settings" gorm:"serializer:json"`
	Subscription Subscription `json:"subscription" bson:"subscription" gorm:"serializer:json"`
	Streak       int          `json:"streak" bson:"streak"`
	LastCheckIn  *time.Time   `json:"lastCheckIn,omitempty" bson:"last_check_in,omitempty"`
	LastLogin    *time.Time   `json:"lastLogin,omitempty" bson:"last_login,omitempty"`
	CreatedAt    time.Time    `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time    `json:"updatedAt" bson:"updated_at"`
}

// UserSettings 用户偏好设置。
type UserSettings struct {
	Notifications bool   `json:"notifications" bson:"notifications"`
	EmailUpdates  bool   `json:"emailUpdates" bson:"email_updates"`
	DarkMode      bool   `json:"darkMode" bson:"dark_mode"`
	Language      string `json:"language" bson:"language"`
	ReminderTime  string `json:"reminderTime,omitempty" bson:"reminder_time,omitempty"` // HH:MM
}

// Subscription 订阅信息。
type Subscription struct {
	Plan      string     `json:"plan" bson:"plan"`
	Status    string     `json:"status" bson:"status"` // active / cancelled
	StartedAt *time.Time `json:"startedAt,omitempty" bson:"started_at,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty" bson:"expires_at,omitempty"`
}

// DefaultSettings 返回新用户的默认设置。
func DefaultSettings() UserSettings {
	return UserSettings{
		Notifications: true,
		EmailUpdates:  true,
		Language:      "en",
	}
}

// PublicProfile 是向其他用户展示的最小资料。
type PublicProfile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Avatar string `json:"avatar,omitempty"`
	Bio    string `json:"bio,omitempty"`
}

// Public 返回用户的公开资料。
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:     u.ID,
		Name:   u.Name,
		Role:   u.Role,
		Avatar: u.Avatar,
		Bio:    u.Bio,
	}
}

// IsAdmin 判断是否为管理员。
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// OneTimePasscode 忘记密码流程中的一次性验证码。
type OneTimePasscode struct {
	ID        string    `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Email     string    `json:"email" bson:"email" gorm:"type:varchar(191);index;not null"`
	Code      string    `json:"-" bson:"code" gorm:"type:varchar(6);not null"`
	ExpiresAt time.Time `json:"expiresAt" bson:"expires_at" gorm:"index"`
	Verified  bool      `json:"verified" bson:"verified"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// Expired 判断验证码在 now 时刻是否已过期。
func (o *OneTimePasscode) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
