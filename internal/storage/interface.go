package storage

import (
	"context"
	"time"

	"github.com/masoommulla/project-sub001/internal/model"
)

// 单条查询在记录不存在时返回 ErrNotFound；Update 为整条覆盖写。
// 列表查询永远返回非 nil 切片。

// UserStore 用户与账号存储。邮箱由调用方统一转小写。
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error
	// DeleteAccount 删除用户及其名下数据：心情、日记、待办、学习计划、预约、
	// 参与的会话及消息、验证码。其名下的咨询师资料保留但标记为不可预约。
	DeleteAccount(ctx context.Context, userID string) error
}

// OTPStore 忘记密码验证码存储。
type OTPStore interface {
	CreateOTP(ctx context.Context, o *model.OneTimePasscode) error
	// LatestOTP 返回该邮箱最近创建的验证码。
	LatestOTP(ctx context.Context, email string) (*model.OneTimePasscode, error)
	UpdateOTP(ctx context.Context, o *model.OneTimePasscode) error
	DeleteOTP(ctx context.Context, id string) error
	DeleteOTPsByEmail(ctx context.Context, email string) error
	DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
}

// Page 分页参数，Limit <= 0 表示不限制。
type Page struct {
	Limit  int
	Offset int
}

// MoodFilter 心情列表过滤条件。UserID 必填。
type MoodFilter struct {
	UserID string
	Mood   string
	Since  *time.Time
	Until  *time.Time
	Page
}

type MoodStore interface {
	CreateMood(ctx context.Context, m *model.MoodEntry) error
	GetMood(ctx context.Context, id string) (*model.MoodEntry, error)
	ListMoods(ctx context.Context, f MoodFilter) ([]model.MoodEntry, error)
	UpdateMood(ctx context.Context, m *model.MoodEntry) error
	DeleteMood(ctx context.Context, id string) error
}

// JournalFilter 日记列表过滤条件。Search 匹配标题与正文，不区分大小写。
type JournalFilter struct {
	UserID   string
	Mood     string
	Tag      string
	Favorite *bool
	Search   string
	Page
}

type JournalStore interface {
	CreateJournal(ctx context.Context, j *model.JournalEntry) error
	GetJournal(ctx context.Context, id string) (*model.JournalEntry, error)
	ListJournals(ctx context.Context, f JournalFilter) ([]model.JournalEntry, error)
	UpdateJournal(ctx context.Context, j *model.JournalEntry) error
	DeleteJournal(ctx context.Context, id string) error
}

type TodoFilter struct {
	UserID    string
	Category  string
	Priority  string
	Completed *bool
	Page
}

type TodoStore interface {
	CreateTodo(ctx context.Context, t *model.Todo) error
	GetTodo(ctx context.Context, id string) (*model.Todo, error)
	ListTodos(ctx context.Context, f TodoFilter) ([]model.Todo, error)
	UpdateTodo(ctx context.Context, t *model.Todo) error
	DeleteTodo(ctx context.Context, id string) error
	DeleteCompletedTodos(ctx context.Context, userID string) (int64, error)
}

type StudyPlanFilter struct {
	UserID    string
	Subject   string
	Completed *bool
	From      *time.Time
	To        *time.Time
	Page
}

type StudyPlanStore interface {
	CreateStudyPlan(ctx context.Context, p *model.StudyPlan) error
	GetStudyPlan(ctx context.Context, id string) (*model.StudyPlan, error)
	ListStudyPlans(ctx context.Context, f StudyPlanFilter) ([]model.StudyPlan, error)
	UpdateStudyPlan(ctx context.Context, p *model.StudyPlan) error
	DeleteStudyPlan(ctx context.Context, id string) error
}

// AppointmentFilter 预约列表过滤条件。FromDate 为 YYYY-MM-DD，包含当天。
type AppointmentFilter struct {
	UserID      string
	TherapistID string
	Date        string
	FromDate    string
	Statuses    []string
	// Ascending 为 true 时按日期与开始时间升序，否则降序。
	Ascending bool
	Page
}

// AppointmentStore 预约存储。
//
// Create 与 Update 在 SlotKey 与其他记录冲突时返回 ErrDuplicate，
// 这是同一咨询师同一时段只能存在一个有效预约的最终保证。
type AppointmentStore interface {
	CreateAppointment(ctx context.Context, a *model.Appointment) error
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
	ListAppointments(ctx context.Context, f AppointmentFilter) ([]model.Appointment, error)
	UpdateAppointment(ctx context.Context, a *model.Appointment) error
	DeleteAppointment(ctx context.Context, id string) error
	// FindSlotConflict 查找同一咨询师同一日期与开始时间的有效预约，excludeID 用于改期时排除自身。
	FindSlotConflict(ctx context.Context, therapistID, date, startTime, excludeID string) (*model.Appointment, error)
	// DeleteFinishedAppointments 删除用户已结束（完成、取消、爽约）的预约。
	DeleteFinishedAppointments(ctx context.Context, userID string) (int64, error)
	// ReviewRatings 返回咨询师所有已评价预约的评分。
	ReviewRatings(ctx context.Context, therapistID string) ([]int, error)
}

// TherapistFilter 咨询师列表过滤条件。Sort 取 rating / experience / fee / recent。
type TherapistFilter struct {
	Specialty     string
	Language      string
	SessionType   string
	Search        string
	Featured      *bool
	AvailableOnly bool
	MinRating     float64
	MaxFee        float64
	Sort          string
	Page
}

type TherapistStore interface {
	CreateTherapist(ctx context.Context, t *model.Therapist) error
	GetTherapist(ctx context.Context, id string) (*model.Therapist, error)
	GetTherapistByUser(ctx context.Context, userID string) (*model.Therapist, error)
	ListTherapists(ctx context.Context, f TherapistFilter) ([]model.Therapist, error)
	UpdateTherapist(ctx context.Context, t *model.Therapist) error
	DeleteTherapist(ctx context.Context, id string) error
	SetTherapistRating(ctx context.Context, id string, rating float64, reviewCount int) error
	IncrementTherapistSessions(ctx context.Context, id string) error
}

// ResourceFilter 资源列表过滤条件。Sort 取 popular / rating / recent。
type ResourceFilter struct {
	Category string
	Type     string
	Tag      string
	Search   string
	Featured *bool
	Sort     string
	Page
}

type ResourceStore interface {
	CreateResource(ctx context.Context, r *model.Resource) error
	GetResource(ctx context.Context, id string) (*model.Resource, error)
	ListResources(ctx context.Context, f ResourceFilter) ([]model.Resource, error)
	UpdateResource(ctx context.Context, r *model.Resource) error
	DeleteResource(ctx context.Context, id string) error
	CountResources(ctx context.Context) (int64, error)
	IncrementResourceViews(ctx context.Context, id string) error
	IncrementResourceDownloads(ctx context.Context, id string) (int, error)
	// ToggleResourceLike 切换用户的点赞状态，返回切换后的状态与点赞总数。
	ToggleResourceLike(ctx context.Context, id, userID string) (liked bool, likes int, err error)
	ResourceCategoryCounts(ctx context.Context) ([]model.CategoryCount, error)
}

// ChatStore 会话与消息存储。
type ChatStore interface {
	CreateConversation(ctx context.Context, c *model.Conversation) error
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	// FindConversation 查找两位参与者之间指定类型的会话。
	FindConversation(ctx context.Context, convType, userID, otherID string) (*model.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]model.Conversation, error)
	UpdateConversation(ctx context.Context, c *model.Conversation) error
	// DeleteConversation 同时删除会话下的全部消息。
	DeleteConversation(ctx context.Context, id string) error

	CreateMessage(ctx context.Context, m *model.ChatMessage) error
	GetMessage(ctx context.Context, id string) (*model.ChatMessage, error)
	// ListMessages 按时间升序返回消息；before 非空时只返回更早的消息，limit 取最近的 N 条。
	ListMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]model.ChatMessage, error)
	// MarkMessagesRead 把会话中发给 readerID 的未读消息标记为已读。
	MarkMessagesRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error)
	DeleteMessage(ctx context.Context, id string) error
}

// Store 聚合全部存储接口。
type Store interface {
	UserStore
	OTPStore
	MoodStore
	JournalStore
	TodoStore
	StudyPlanStore
	AppointmentStore
	TherapistStore
	ResourceStore
	ChatStore

	Ping(ctx context.Context) error
	Close() error
}
