package model

import "time"

// 心情标签。
const (
	MoodHappy   = "happy"
	MoodExcited = "excited"
	MoodCalm    = "calm"
	MoodOkay    = "okay"
	MoodSad     = "sad"
	MoodAnxious = "anxious"
	MoodAngry   = "angry"
)

// Moods 按展示顺序列出全部心情标签。
var Moods = []string{MoodHappy, MoodExcited, MoodCalm, MoodOkay, MoodSad, MoodAnxious, MoodAngry}

// ValidMood 判断心情标签是否合法。
func ValidMood(m string) bool {
	for _, v := range Moods {
		if v == m {
			return true
		}
	}
	return false
}

// Suggestion 根据心情生成的应对建议。
type Suggestion struct {
	Type        string `json:"type" bson:"type"`
	Title       string `json:"title" bson:"title"`
	Description string `json:"description" bson:"description"`
	Icon        string `json:"icon" bson:"icon"`
}

// MoodEntry 一条心情记录。Suggestion 在创建时生成，之后不再修改。
type MoodEntry struct {
	ID         string     `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string     `json:"userId" bson:"user_id" gorm:"type:varchar(36);index;not null"`
	Mood       string     `json:"mood" bson:"mood" gorm:"type:varchar(16);not null"`
	Intensity  int        `json:"intensity" bson:"intensity"`
	Notes      string     `json:"notes,omitempty" bson:"notes,omitempty" gorm:"type:text"`
	Emotions   []string   `json:"emotions" bson:"emotions" gorm:"serializer:json"`
	Activities []string   `json:"activities" bson:"activities" gorm:"serializer:json"`
	Triggers   []string   `json:"triggers" bson:"triggers" gorm:"serializer:json"`
	Suggestion Suggestion `json:"suggestion" bson:"suggestion" gorm:"serializer:json"`
	CreatedAt  time.Time  `json:"createdAt" bson:"created_at" gorm:"index"`
	UpdatedAt  time.Time  `json:"updatedAt" bson:"updated_at"`
}

// AIInsights 日记的分析结果（可选）。
type AIInsights struct {
	Sentiment string   `json:"sentiment,omitempty" bson:"sentiment,omitempty"`
	Summary   string   `json:"summary,omitempty" bson:"summary,omitempty"`
	Themes    []string `json:"themes,omitempty" bson:"themes,omitempty"`
}

// JournalEntry 日记。
type JournalEntry struct {
	ID         string      `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string      `json:"userId" bson:"user_id" gorm:"type:varchar(36);index;not null"`
	Title      string      `json:"title" bson:"title" gorm:"type:varchar(200);not null"`
	Content    string      `json:"content" bson:"content" gorm:"type:text;not null"`
	Mood       string      `json:"mood,omitempty" bson:"mood,omitempty" gorm:"type:varchar(16)"`
	Tags       []string    `json:"tags" bson:"tags" gorm:"serializer:json"`
	IsFavorite bool        `json:"isFavorite" bson:"is_favorite"`
	IsPrivate  bool        `json:"isPrivate" bson:"is_private"`
	AIInsights *AIInsights `json:"aiInsights,omitempty" bson:"ai_insights,omitempty" gorm:"serializer:json"`
	WordCount  int         `json:"wordCount" bson:"word_count"`
	CreatedAt  time.Time   `json:"createdAt" bson:"created_at" gorm:"index"`
	UpdatedAt  time.Time   `json:"updatedAt" bson:"updated_at"`
}

// 待办分类与优先级。
const (
	TodoCategoryPersonal = "personal"
	TodoCategorySchool   = "school"
	TodoCategoryHealth   = "health"
	TodoCategorySocial   = "social"
	TodoCategoryOther    = "other"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Todo 待办事项。
type Todo struct {
	ID          string     `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	UserID      string     `json:"userId" bson:"user_id" gorm:"type:varchar(36);index;not null"`
	Text        string     `json:"text" bson:"text" gorm:"type:varchar(500);not null"`
	Category    string     `json:"category" bson:"category" gorm:"type:varchar(16);default:personal"`
	Priority    string     `json:"priority" bson:"priority" gorm:"type:varchar(8);default:medium"`
	Completed   bool       `json:"completed" bson:"completed"`
	CompletedAt *time.Time `json:"completedAt" bson:"completed_at"`
	DueDate     *time.Time `json:"dueDate,omitempty" bson:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" bson:"updated_at"`
}

// SetCompleted 切换完成状态，同时维护 CompletedAt。
func (t *Todo) SetCompleted(done bool, now time.Time) {
	t.Completed = done
	if done {
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}
}

// StudyPlan 学习计划。
type StudyPlan struct {
	ID          string     `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	UserID      string     `json:"userId" bson:"user_id" gorm:"type:varchar(36);index;not null"`
	Subject     string     `json:"subject" bson:"subject" gorm:"type:varchar(100);not null"`
	Topic       string     `json:"topic" bson:"topic" gorm:"type:varchar(200)"`
	Duration    int        `json:"duration" bson:"duration"` // 分钟，1–480
	Date        time.Time  `json:"date" bson:"date" gorm:"index"`
	Completed   bool       `json:"completed" bson:"completed"`
	CompletedAt *time.Time `json:"completedAt" bson:"completed_at"`
	Notes       string     `json:"notes,omitempty" bson:"notes,omitempty" gorm:"type:text"`
	CreatedAt   time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" bson:"updated_at"`
}

// SetCompleted 切换完成状态，同时维护 CompletedAt。
func (p *StudyPlan) SetCompleted(done bool, now time.Time) {
	p.Completed = done
	if done {
		p.CompletedAt = &now
	} else {
		p.CompletedAt = nil
	}
}
