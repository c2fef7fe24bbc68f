package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/masoommulla/project-sub001/internal/api/auth"
	"github.com/masoommulla/project-sub001/internal/api/middleware"
	"github.com/masoommulla/project-sub001/internal/api/response"
	"github.com/masoommulla/project-sub001/internal/config"
	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/pkg/chathub"
	"github.com/masoommulla/project-sub001/internal/pkg/cooldown"
	"github.com/masoommulla/project-sub001/internal/pkg/metrics"
	"github.com/masoommulla/project-sub001/internal/pkg/notify"
	"github.com/masoommulla/project-sub001/internal/pkg/objstore"
	"github.com/masoommulla/project-sub001/internal/pkg/presence"
	"github.com/masoommulla/project-sub001/internal/pkg/queue"
	"github.com/masoommulla/project-sub001/internal/pkg/ratelimit"
	"github.com/masoommulla/project-sub001/internal/pkg/token"
	"github.com/masoommulla/project-sub001/internal/storage"
	"github.com/masoommulla/project-sub001/internal/storage/gormstore"
	"github.com/masoommulla/project-sub001/internal/storage/memstore"
	"github.com/masoommulla/project-sub001/internal/storage/mongostore"
)

// AvatarStore 头像对象存储。
type AvatarStore interface {
	PutAvatar(ctx context.Context, userID string, r io.Reader, size int64, contentType string) (string, error)
	DeleteAvatar(ctx context.Context, url string) error
}

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有存储、可选的 Redis 客户端、邮件队列、聊天事件中心以及 Gin 路由引擎。
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    storage.Store
	rdb      *redis.Client
	router   *gin.Engine
	resp     *response.Writer
	tokens   *token.Issuer
	auth     *auth.Handler
	queue    *queue.Queue
	hub      *chathub.Hub
	presence *presence.Tracker
	avatars  AvatarStore

	apiLimiter  *ratelimit.Limiter
	authLimiter *ratelimit.Limiter

	now  func() time.Time
	pick func(n int) int
}

// Deps 是 New 的外部依赖，测试中可替换。
type Deps struct {
	Store    storage.Store
	Redis    *redis.Client // 可为 nil
	Notifier notify.Notifier
	Queue    *queue.Queue
	Avatars  AvatarStore
	Now      func() time.Time
	Pick     func(n int) int
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 按配置连接 MongoDB / MySQL / PostgreSQL（或使用内存存储）
// 2. 连接 Redis（可选）
// 3. 初始化对象存储、邮件队列与通知发送器
// 4. 初始化 Gin 路由引擎
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
	}

	deps := Deps{Store: store, Redis: rdb}

	avatars, err := objstore.NewClient(cfg.Storage, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if avatars != nil {
		if err := avatars.EnsureBucket(ctx); err != nil {
			logger.Warn("ensure avatar bucket failed", slog.String("error", err.Error()))
		}
		deps.Avatars = avatars
	}

	metrics.InitMetrics(cfg.App.MailWorkers)

	q := queue.NewQueue(logger, cfg.App.MailWorkers, cfg.App.MailQueueSize)
	q.SetErrorHandler(func(name string, err error) {
		logger.Warn("mail job failed", slog.String("job", name), slog.String("error", err.Error()))
	})
	deps.Queue = q
	deps.Notifier = notify.NewEmailNotifier(&cfg.Email, logger, q)

	return New(cfg, logger, deps), nil
}

// openStore 按驱动名打开存储。
func openStore(cfg config.DatabaseConfig, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Driver {
	case "", "mongo", "mongodb":
		return mongostore.NewStore(cfg.MongoURI, cfg.MongoDB, logger)
	case "mysql", "postgres", "postgresql":
		return gormstore.Open(cfg.Driver, cfg.DSN, logger)
	case "memory":
		logger.Warn("using in-memory store, data is lost on restart")
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// New 用给定依赖组装 Server 并注册路由。
func New(cfg *config.Config, logger *slog.Logger, deps Deps) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Pick == nil {
		deps.Pick = rand.IntN
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NewEmailNotifier(&cfg.Email, logger, deps.Queue)
	}

	tokens := token.NewIssuer(cfg.Security.JWTSecret, cfg.App.TokenTTL).WithClock(deps.Now)
	resp := response.NewWriter(logger, cfg.App.IsDevelopment())

	if cfg.App.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.App.CORSOrigins))

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		store:    deps.Store,
		rdb:      deps.Redis,
		router:   r,
		resp:     resp,
		tokens:   tokens,
		queue:    deps.Queue,
		hub:      chathub.New(deps.Redis, logger),
		presence: presence.New(deps.Redis, cfg.App.PresenceTTL),
		avatars:  deps.Avatars,
		now:      deps.Now,
		pick:     deps.Pick,

		apiLimiter:  ratelimit.New(deps.Redis, logger, "teenwell:ratelimit:api", cfg.App.RateLimit, cfg.App.RateBurst),
		authLimiter: ratelimit.New(deps.Redis, logger, "teenwell:ratelimit:auth", cfg.App.AuthRateLimit, cfg.App.AuthRateBurst),
	}
	s.auth = auth.NewHandler(auth.Options{
		Store:    deps.Store,
		Tokens:   tokens,
		Notifier: deps.Notifier,
		Throttle: cooldown.New(deps.Redis, "forgot-password", cfg.App.OTPCooldown),
		Resp:     resp,
		Logger:   logger,
		OTPTTL:   cfg.App.OTPTTL,
		Now:      deps.Now,
	})
	s.registerRoutes()
	return s
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// Start 启动后台组件：邮件队列、聊天事件订阅、过期验证码清理。
func (s *Server) Start(ctx context.Context) {
	if s.queue != nil {
		s.queue.Start(ctx)
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("PANIC in chat hub", slog.Any("panic", r))
			}
		}()
		if err := s.hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("chat hub stopped", slog.String("error", err.Error()))
		}
	}()
	go s.runJanitor(ctx, s.cfg.App.JanitorInterval)
}

// Shutdown 等待邮件队列排空。
func (s *Server) Shutdown(timeout time.Duration) error {
	if s.queue == nil {
		return nil
	}
	return s.queue.ShutdownWithTimeout(timeout)
}

// Close 关闭存储与缓存连接。
func (s *Server) Close() error {
	var firstErr error
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			firstErr = err
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes() {
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/healthz", s.handleHealthz)

	api := s.router.Group("/api")
	api.Use(middleware.RateLimit(s.apiLimiter, "api"))
	api.GET("/healthz", s.handleHealthz)

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimit(s.authLimiter, "auth"))
	s.auth.Register(authGroup)

	// 公开只读
	api.GET("/therapists", s.handleListTherapists)
	api.GET("/therapists/featured", s.handleFeaturedTherapists)
	api.GET("/therapists/search", s.handleSearchTherapists)
	api.GET("/therapists/:id", s.handleGetTherapist)
	api.GET("/therapists/:id/availability", s.handleTherapistAvailability)
	api.GET("/resources", s.handleListResources)
	api.GET("/resources/featured", s.handleFeaturedResources)
	api.GET("/resources/search", s.handleSearchResources)
	api.GET("/resources/categories", s.handleResourceCategories)
	api.GET("/resources/:id", s.handleGetResource)

	// 浏览器无法为 websocket 设置请求头，令牌也可放在查询参数中，由处理器自行校验
	api.GET("/chats/:id/ws", s.handleChatStream)

	authed := api.Group("/")
	authed.Use(middleware.AuthMiddleware(s.tokens, s.store, s.logger))
	authed.Use(middleware.Presence(s.presence, s.logger))

	authed.GET("/users/me", s.handleGetMe)
	authed.PUT("/users/me", s.handleUpdateMe)
	authed.DELETE("/users/me", s.handleDeleteAccount)
	authed.PUT("/users/me/password", s.handleChangePassword)
	authed.PUT("/users/me/avatar", s.handleUpdateAvatar)
	authed.PUT("/users/me/subscription", s.handleUpdateSubscription)
	authed.POST("/users/me/check-in", s.handleCheckIn)
	authed.GET("/users/:id", s.handleGetUser)

	authed.GET("/moods", s.handleListMoods)
	authed.POST("/moods", s.handleCreateMood)
	authed.GET("/moods/stats", s.handleMoodStats)
	authed.GET("/moods/:id", s.handleGetMood)
	authed.PUT("/moods/:id", s.handleUpdateMood)
	authed.DELETE("/moods/:id", s.handleDeleteMood)

	authed.GET("/journals", s.handleListJournals)
	authed.POST("/journals", s.handleCreateJournal)
	authed.GET("/journals/stats", s.handleJournalStats)
	authed.GET("/journals/:id", s.handleGetJournal)
	authed.PUT("/journals/:id", s.handleUpdateJournal)
	authed.PATCH("/journals/:id/favorite", s.handleToggleFavorite)
	authed.DELETE("/journals/:id", s.handleDeleteJournal)

	authed.GET("/todos", s.handleListTodos)
	authed.POST("/todos", s.handleCreateTodo)
	authed.GET("/todos/stats", s.handleTodoStats)
	authed.DELETE("/todos/completed", s.handleClearCompletedTodos)
	authed.GET("/todos/:id", s.handleGetTodo)
	authed.PUT("/todos/:id", s.handleUpdateTodo)
	authed.PATCH("/todos/:id/toggle", s.handleToggleTodo)
	authed.DELETE("/todos/:id", s.handleDeleteTodo)

	authed.GET("/study-plans", s.handleListStudyPlans)
	authed.POST("/study-plans", s.handleCreateStudyPlan)
	authed.GET("/study-plans/stats", s.handleStudyStats)
	authed.GET("/study-plans/:id", s.handleGetStudyPlan)
	authed.PUT("/study-plans/:id", s.handleUpdateStudyPlan)
	authed.PATCH("/study-plans/:id/complete", s.handleCompleteStudyPlan)
	authed.DELETE("/study-plans/:id", s.handleDeleteStudyPlan)

	authed.GET("/appointments", s.handleListAppointments)
	authed.POST("/appointments", s.handleCreateAppointment)
	authed.GET("/appointments/upcoming", s.handleUpcomingAppointments)
	authed.GET("/appointments/stats", s.handleAppointmentStats)
	authed.DELETE("/appointments/past/clear", s.handleClearPastAppointments)
	authed.GET("/appointments/:id", s.handleGetAppointment)
	authed.PUT("/appointments/:id", s.handleUpdateAppointment)
	authed.DELETE("/appointments/:id", s.handleDeleteAppointment)
	authed.PUT("/appointments/:id/cancel", s.handleCancelAppointment)
	authed.PUT("/appointments/:id/confirm", s.handleConfirmAppointment)
	authed.PUT("/appointments/:id/complete", s.handleCompleteAppointment)
	authed.PUT("/appointments/:id/no-show", s.handleNoShowAppointment)
	authed.POST("/appointments/:id/review", s.handleReviewAppointment)

	authed.POST("/therapists", middleware.RequireRoles(model.RoleTherapist, model.RoleAdmin), s.handleCreateTherapist)
	authed.PUT("/therapists/:id", s.handleUpdateTherapist)
	authed.DELETE("/therapists/:id", middleware.RequireRoles(model.RoleAdmin), s.handleDeleteTherapist)

	adminOnly := middleware.RequireRoles(model.RoleAdmin)
	authed.POST("/resources", adminOnly, s.handleCreateResource)
	authed.PUT("/resources/:id", adminOnly, s.handleUpdateResource)
	authed.DELETE("/resources/:id", adminOnly, s.handleDeleteResource)
	authed.POST("/resources/:id/like", s.handleLikeResource)
	authed.POST("/resources/:id/download", s.handleDownloadResource)

	authed.GET("/chats", s.handleListConversations)
	authed.POST("/chats", s.handleCreateConversation)
	authed.GET("/chats/:id", s.handleGetConversation)
	authed.DELETE("/chats/:id", s.handleDeleteConversation)
	authed.GET("/chats/:id/messages", s.handleListMessages)
	authed.POST("/chats/:id/messages", s.handleSendMessage)
	authed.PUT("/chats/:id/read", s.handleMarkRead)
	authed.DELETE("/chats/:id/messages/:messageId", s.handleDeleteMessage)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "component": "database"})
		return
	}
	if s.rdb != nil {
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "component": "redis"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
