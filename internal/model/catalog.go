package model

import "time"

// Therapist 咨询师公开资料，UserID 指向拥有该资料的咨询师账号。
type Therapist struct {
	ID              string          `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string          `json:"userId,omitempty" bson:"user_id,omitempty" gorm:"type:varchar(36);index"`
	Name            string          `json:"name" bson:"name" gorm:"type:varchar(100);not null"`
	Email           string          `json:"email,omitempty" bson:"email,omitempty" gorm:"type:varchar(191)"`
	Title           string          `json:"title,omitempty" bson:"title,omitempty" gorm:"type:varchar(100)"`
	Bio             string          `json:"bio,omitempty" bson:"bio,omitempty" gorm:"type:text"`
	Specialties     []string        `json:"specialties" bson:"specialties" gorm:"serializer:json"`
	Qualifications  []Qualification `json:"qualifications" bson:"qualifications" gorm:"serializer:json"`
	Languages       []string        `json:"languages" bson:"languages" gorm:"serializer:json"`
	YearsExperience int             `json:"yearsExperience" bson:"years_experience"`
	SessionTypes    []string        `json:"sessionTypes" bson:"session_types" gorm:"serializer:json"`
	SessionFee      float64         `json:"sessionFee" bson:"session_fee"`
	Availability    []Availability  `json:"availability" bson:"availability" gorm:"serializer:json"`
	Avatar          string          `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Rating          float64         `json:"rating" bson:"rating" gorm:"index"`
	ReviewCount     int             `json:"reviewCount" bson:"review_count"`
	TotalSessions   int             `json:"totalSessions" bson:"total_sessions"`
	IsVerified      bool            `json:"isVerified" bson:"is_verified"`
	IsFeatured      bool            `json:"isFeatured" bson:"is_featured"`
	IsAvailable     bool            `json:"isAvailable" bson:"is_available"`
	CreatedAt       time.Time       `json:"createdAt" bson:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" bson:"updated_at"`
}

// Qualification 资质证书。
type Qualification struct {
	Degree      string `json:"degree" bson:"degree"`
	Institution string `json:"institution,omitempty" bson:"institution,omitempty"`
	Year        int    `json:"year,omitempty" bson:"year,omitempty"`
}

// Availability 每周可预约时段。
type Availability struct {
	Day       string `json:"day" bson:"day"` // monday ... sunday
	StartTime string `json:"startTime" bson:"start_time"`
	EndTime   string `json:"endTime" bson:"end_time"`
}

// 资源分类与类型。
var (
	ResourceCategories = []string{"anxiety", "depression", "stress", "self-care", "relationships", "sleep", "mindfulness", "general"}
	ResourceTypes      = []string{"article", "video", "audio", "exercise", "worksheet", "hotline"}
)

// Resource 资源库条目，所有人可读，仅管理员可写。
type Resource struct {
	ID          string    `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Title       string    `json:"title" bson:"title" gorm:"type:varchar(200);not null"`
	Description string    `json:"description" bson:"description" gorm:"type:text"`
	Category    string    `json:"category" bson:"category" gorm:"type:varchar(32);index"`
	Type        string    `json:"type" bson:"type" gorm:"type:varchar(16)"`
	Content     string    `json:"content,omitempty" bson:"content,omitempty" gorm:"type:text"`
	URL         string    `json:"url,omitempty" bson:"url,omitempty"`
	Author      string    `json:"author,omitempty" bson:"author,omitempty"`
	Tags        []string  `json:"tags" bson:"tags" gorm:"serializer:json"`
	Duration    int       `json:"duration,omitempty" bson:"duration,omitempty"` // 分钟
	Views       int       `json:"views" bson:"views"`
	Likes       int       `json:"likes" bson:"likes"`
	Downloads   int       `json:"downloads" bson:"downloads"`
	LikedBy     []string  `json:"-" bson:"liked_by" gorm:"serializer:json"`
	Rating      float64   `json:"rating" bson:"rating"`
	IsFeatured  bool      `json:"isFeatured" bson:"is_featured"`
	CreatedBy   string    `json:"createdBy,omitempty" bson:"created_by,omitempty" gorm:"type:varchar(36)"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}

// LikedByUser 判断用户是否已点赞。
func (r *Resource) LikedByUser(userID string) bool {
	for _, id := range r.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// CategoryCount 分类及其资源数量。
type CategoryCount struct {
	Category string `json:"category" bson:"_id"`
	Count    int    `json:"count" bson:"count"`
}

// ValidResourceCategory 判断资源分类是否合法。
func ValidResourceCategory(c string) bool {
	for _, v := range ResourceCategories {
		if v == c {
			return true
		}
	}
	return false
}
