package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
)

// Config 保存应用程序配置。
type Config struct {
	App      AppConfig      `json:"app"`
	Database DatabaseConfig `json:"database"`
	Redis    RedisConfig    `json:"redis"`
	Email    EmailConfig    `json:"email"`
	Security SecurityConfig `json:"security"`
	Storage  StorageConfig  `json:"storage"`
}

// AppConfig 应用程序基础配置。
type AppConfig struct {
	Env             string        `json:"env"`              // 运行环境: development / production
	LogLevel        string        `json:"log_level"`        // 日志级别: debug / info / warn / error
	HTTPAddr        string        `json:"http_addr"`        // API 服务监听地址
	TokenTTL        time.Duration `json:"token_ttl"`        // 会话令牌有效期（如 "168h"）
	OTPTTL          time.Duration `json:"otp_ttl"`          // 一次性验证码有效期（如 "10m"）
	OTPCooldown     time.Duration `json:"otp_cooldown"`     // 同一邮箱重复申请验证码的间隔
	JanitorInterval time.Duration `json:"janitor_interval"` // 过期验证码清理间隔
	PresenceTTL     time.Duration `json:"presence_ttl"`     // 在线状态保持时间
	MailWorkers     int           `json:"mail_workers"`     // 异步邮件 worker 数量
	MailQueueSize   int           `json:"mail_queue_size"`  // 异步邮件队列容量
	CORSOrigins     []string      `json:"cors_origins"`     // 允许的跨域来源，"*" 表示全部
	RateLimit       float64       `json:"rate_limit"`       // 全局限流速率（token/s）
	RateBurst       float64       `json:"rate_burst"`       // 全局限流桶容量
	AuthRateLimit   float64       `json:"auth_rate_limit"`  // 认证接口限流速率（token/s）
	AuthRateBurst   float64       `json:"auth_rate_burst"`  // 认证接口限流桶容量
	SeedResources   bool          `json:"seed_resources"`   // 启动时是否写入默认资源
}

// IsDevelopment 返回是否处于开发模式（错误响应会附带详细信息）。
func (a AppConfig) IsDevelopment() bool {
	return strings.EqualFold(a.Env, "development") || strings.EqualFold(a.Env, "dev")
}

// DatabaseConfig 数据库配置。
type DatabaseConfig struct {
	Driver   string `json:"driver"`    // mongo / mysql / postgres / memory
	MongoURI string `json:"mongo_uri"` // MongoDB 连接 URI
	MongoDB  string `json:"mongo_db"`  // MongoDB 数据库名
	DSN      string `json:"dsn"`       // SQL 连接字符串（mysql / postgres）
}

// RedisConfig Redis 配置，Addr 为空时相关功能降级为进程内实现。
type RedisConfig struct {
	Addr     string `json:"addr"`     // Redis 地址 (host:port)
	Password string `json:"password"` // Redis 密码
	DB       int    `json:"db"`
}

// EmailConfig 邮件通知配置。
type EmailConfig struct {
	SMTPHost  string `json:"smtp_host"`
	SMTPPort  int    `json:"smtp_port"`
	SMTPUser  string `json:"smtp_user"`
	SMTPPass  string `json:"smtp_pass"`
	FromEmail string `json:"from_email"`
	AppName   string `json:"app_name"` // 邮件标题中显示的应用名
}

// SecurityConfig 安全相关配置。
type SecurityConfig struct {
	JWTSecret     string `json:"jwt_secret"`     // JWT 签名密钥
	AdminEmail    string `json:"admin_email"`    // 启动时确保存在的管理员账号
	AdminPassword string `json:"admin_password"` // 管理员初始密码（为空表示不创建）
}

// StorageConfig 对象存储（头像）配置，Endpoint 为空表示只接受外部 URL。
type StorageConfig struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	UseSSL    bool   `json:"use_ssl"`
	PublicURL string `json:"public_url"` // 拼接头像访问地址的前缀
}

// Load 从 JSON 文件加载配置。
//
// 它会尝试读取 configs/config.json 文件，如果不存在则使用默认值。
// 环境变量始终优先于文件中的值。
func Load(configPath ...string) (*Config, error) {
	path := "configs/config.json"
	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := getDefaultConfig()
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadOrDefault 加载配置，如果失败则返回默认配置（不报错）。
func LoadOrDefault(configPath ...string) *Config {
	cfg, err := Load(configPath...)
	if err != nil {
		fallback := getDefaultConfig()
		applyEnvOverrides(fallback)
		return fallback
	}
	return cfg
}

// Validate 检查启动所必需的配置项。
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mongo":
		if c.Database.MongoURI == "" {
			return fmt.Errorf("database.mongo_uri is required for mongo driver")
		}
	case "mysql", "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for %s driver", c.Database.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required")
	}
	if !c.App.IsDevelopment() && c.Security.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("security.jwt_secret must be changed outside development")
	}
	return nil
}

const defaultJWTSecret = "dev_secret_change_me"

// getDefaultConfig 返回默认配置。
func getDefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Env:             "development",
			LogLevel:        "info",
			HTTPAddr:        ":5000",
			TokenTTL:        7 * 24 * time.Hour,
			OTPTTL:          10 * time.Minute,
			OTPCooldown:     60 * time.Second,
			JanitorInterval: 5 * time.Minute,
			PresenceTTL:     5 * time.Minute,
			MailWorkers:     4,
			MailQueueSize:   256,
			CORSOrigins:     []string{"http://localhost:3000"},
			RateLimit:       10,
			RateBurst:       100,
			AuthRateLimit:   1,
			AuthRateBurst:   10,
			SeedResources:   true,
		},
		Database: DatabaseConfig{
			Driver:   "mongo",
			MongoURI: "mongodb://localhost:27017",
			MongoDB:  "teenwell",
			DSN:      "",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
		},
		Email: EmailConfig{
			SMTPHost: "smtp.gmail.com",
			SMTPPort: 587,
			AppName:  "TeenWell",
		},
		Security: SecurityConfig{
			JWTSecret: defaultJWTSecret,
		},
		Storage: StorageConfig{
			Bucket: "avatars",
		},
	}
}

// applyDefaults 对未设置的字段应用默认值。
func applyDefaults(cfg *Config) {
	defaults := getDefaultConfig()

	if cfg.App.Env == "" {
		cfg.App.Env = defaults.App.Env
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = defaults.App.LogLevel
	}
	if cfg.App.HTTPAddr == "" {
		cfg.App.HTTPAddr = defaults.App.HTTPAddr
	}
	if cfg.App.TokenTTL == 0 {
		cfg.App.TokenTTL = defaults.App.TokenTTL
	}
	if cfg.App.OTPTTL == 0 {
		cfg.App.OTPTTL = defaults.App.OTPTTL
	}
	if cfg.App.OTPCooldown == 0 {
		cfg.App.OTPCooldown = defaults.App.OTPCooldown
	}
	if cfg.App.JanitorInterval == 0 {
		cfg.App.JanitorInterval = defaults.App.JanitorInterval
	}
	if cfg.App.PresenceTTL == 0 {
		cfg.App.PresenceTTL = defaults.App.PresenceTTL
	}
	if cfg.App.MailWorkers == 0 {
		cfg.App.MailWorkers = defaults.App.MailWorkers
	}
	if cfg.App.MailQueueSize == 0 {
		cfg.App.MailQueueSize = defaults.App.MailQueueSize
	}
	if len(cfg.App.CORSOrigins) == 0 {
		cfg.App.CORSOrigins = defaults.App.CORSOrigins
	}
	if cfg.App.RateLimit == 0 {
		cfg.App.RateLimit = defaults.App.RateLimit
	}
	if cfg.App.RateBurst == 0 {
		cfg.App.RateBurst = defaults.App.RateBurst
	}
	if cfg.App.AuthRateLimit == 0 {
		cfg.App.AuthRateLimit = defaults.App.AuthRateLimit
	}
	if cfg.App.AuthRateBurst == 0 {
		cfg.App.AuthRateBurst = defaults.App.AuthRateBurst
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = defaults.Database.Driver
	}
	if cfg.Database.MongoURI == "" {
		cfg.Database.MongoURI = defaults.Database.MongoURI
	}
	if cfg.Database.MongoDB == "" {
		cfg.Database.MongoDB = defaults.Database.MongoDB
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = defaults.Email.SMTPPort
	}
	if cfg.Email.AppName == "" {
		cfg.Email.AppName = defaults.Email.AppName
	}
	if cfg.Security.JWTSecret == "" {
		cfg.Security.JWTSecret = defaults.Security.JWTSecret
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = defaults.Storage.Bucket
	}
}

func applyEnvOverrides(cfg *Config) {
	viper.AutomaticEnv()

	_ = viper.BindEnv("mongo_uri", "MONGODB_URI", "MONGO_URI")
	_ = viper.BindEnv("db_password", "DB_PASSWORD")
	_ = viper.BindEnv("redis_addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis_password", "REDIS_PASSWORD")
	_ = viper.BindEnv("smtp_pass", "SMTP_PASS")
	_ = viper.BindEnv("jwt_secret", "JWT_SECRET")
	_ = viper.BindEnv("admin_password", "ADMIN_PASSWORD")
	_ = viper.BindEnv("storage_secret_key", "STORAGE_SECRET_KEY")

	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.App.Env = v
	} else if v := os.Getenv("NODE_ENV"); v != "" {
		cfg.App.Env = v
	}
	if v := os.Getenv("APP_LOG_LEVEL"); v != "" {
		cfg.App.LogLevel = v
	}
	if v := os.Getenv("APP_HTTP_ADDR"); v != "" {
		cfg.App.HTTPAddr = v
	} else if v := os.Getenv("PORT"); v != "" {
		cfg.App.HTTPAddr = ":" + v
	}
	if v := os.Getenv("JWT_EXPIRE"); v != "" {
		if d, err := parseDurationDays(v); err == nil {
			cfg.App.TokenTTL = d
		}
	}
	if v := os.Getenv("APP_OTP_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.App.OTPTTL = d
		}
	}
	if v := os.Getenv("APP_OTP_COOLDOWN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.App.OTPCooldown = d
		}
	}
	if v := os.Getenv("APP_JANITOR_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.App.JanitorInterval = d
		}
	}
	if v := os.Getenv("APP_MAIL_WORKERS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.App.MailWorkers = i
		}
	}
	if v := os.Getenv("CLIENT_URL"); v != "" {
		cfg.App.CORSOrigins = splitList(v)
	} else if v := os.Getenv("APP_CORS_ORIGINS"); v != "" {
		cfg.App.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("APP_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.App.RateLimit = f
		}
	}
	if v := os.Getenv("APP_RATE_BURST"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.App.RateBurst = f
		}
	}
	if v := os.Getenv("APP_AUTH_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.App.AuthRateLimit = f
		}
	}
	if v := os.Getenv("APP_AUTH_RATE_BURST"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.App.AuthRateBurst = f
		}
	}
	if v := os.Getenv("APP_SEED_RESOURCES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.App.SeedResources = b
		}
	}

	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.Database.Driver = strings.ToLower(v)
	}
	if v := viper.GetString("mongo_uri"); v != "" {
		cfg.Database.MongoURI = v
	}
	if v := os.Getenv("MONGO_DB"); v != "" {
		cfg.Database.MongoDB = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.Database.DSN = v
	} else if cfg.Database.Driver == "mysql" && (hasAnyEnv("DB_HOST", "DB_PORT", "DB_USER", "DB_NAME") || viper.GetString("db_password") != "") {
		parsed := parseMySQLDSN(cfg.Database.DSN)
		if v := os.Getenv("DB_HOST"); v != "" {
			parsed.Addr = v + ":" + getenvDefault("DB_PORT", parsed.Addr, "3306")
		} else if v := os.Getenv("DB_PORT"); v != "" {
			host := parsed.Addr
			if strings.Contains(host, ":") {
				host = strings.Split(host, ":")[0]
			}
			parsed.Addr = host + ":" + v
		}
		if v := os.Getenv("DB_USER"); v != "" {
			parsed.User = v
		}
		if v := viper.GetString("db_password"); v != "" {
			parsed.Passwd = v
		}
		if v := os.Getenv("DB_NAME"); v != "" {
			parsed.DBName = v
		}
		cfg.Database.DSN = parsed.FormatDSN()
	}

	if v := viper.GetString("redis_addr"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := viper.GetString("redis_password"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DISABLED"); v == "true" || v == "1" {
		cfg.Redis.Addr = ""
	}

	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Email.SMTPHost = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Email.SMTPPort = i
		}
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		cfg.Email.SMTPUser = v
	}
	if v := viper.GetString("smtp_pass"); v != "" {
		cfg.Email.SMTPPass = v
	}
	if v := os.Getenv("SMTP_FROM"); v != "" {
		cfg.Email.FromEmail = v
	}

	if v := viper.GetString("jwt_secret"); v != "" {
		cfg.Security.JWTSecret = v
	}
	if v := os.Getenv("ADMIN_EMAIL"); v != "" {
		cfg.Security.AdminEmail = v
	}
	if v := viper.GetString("admin_password"); v != "" {
		cfg.Security.AdminPassword = v
	}

	if v := os.Getenv("STORAGE_ENDPOINT"); v != "" {
		cfg.Storage.Endpoint = v
	}
	if v := os.Getenv("STORAGE_ACCESS_KEY"); v != "" {
		cfg.Storage.AccessKey = v
	}
	if v := viper.GetString("storage_secret_key"); v != "" {
		cfg.Storage.SecretKey = v
	}
	if v := os.Getenv("STORAGE_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := os.Getenv("STORAGE_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Storage.UseSSL = b
		}
	}
	if v := os.Getenv("STORAGE_PUBLIC_URL"); v != "" {
		cfg.Storage.PublicURL = v
	}
}

// parseDurationDays 解析 "7d" 形式的天数，其余格式交给 time.ParseDuration。
func parseDurationDays(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if strings.HasSuffix(v, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(v, "d"))
		if err != nil {
			return 0, err
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func hasAnyEnv(keys ...string) bool {
	for _, key := range keys {
		if os.Getenv(key) != "" {
			return true
		}
	}
	return false
}

func getenvDefault(envKey, fallbackAddr, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if fallbackAddr == "" {
		return defaultValue
	}
	if strings.Contains(fallbackAddr, ":") {
		parts := strings.Split(fallbackAddr, ":")
		if len(parts) == 2 && parts[1] != "" {
			return parts[1]
		}
	}
	return defaultValue
}

func parseMySQLDSN(dsn string) *mysql.Config {
	fallback := func() *mysql.Config {
		cfg := mysql.NewConfig()
		cfg.User = "root"
		cfg.Net = "tcp"
		cfg.Addr = "localhost:3306"
		cfg.DBName = "teenwell"
		cfg.ParseTime = true
		return cfg
	}
	if dsn == "" {
		return fallback()
	}
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return fallback()
	}
	return parsed
}

// UnmarshalJSON 自定义 JSON 解析，支持时间 Duration 字符串。
func (a *AppConfig) UnmarshalJSON(data []byte) error {
	type Alias AppConfig
	aux := &struct {
		TokenTTL        string `json:"token_ttl"`
		OTPTTL          string `json:"otp_ttl"`
		OTPCooldown     string `json:"otp_cooldown"`
		JanitorInterval string `json:"janitor_interval"`
		PresenceTTL     string `json:"presence_ttl"`
		*Alias
	}{
		Alias: (*Alias)(a),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"token_ttl", aux.TokenTTL, &a.TokenTTL},
		{"otp_ttl", aux.OTPTTL, &a.OTPTTL},
		{"otp_cooldown", aux.OTPCooldown, &a.OTPCooldown},
		{"janitor_interval", aux.JanitorInterval, &a.JanitorInterval},
		{"presence_ttl", aux.PresenceTTL, &a.PresenceTTL},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := parseDurationDays(f.raw)
		if err != nil {
			return fmt.Errorf("invalid %s format: %w", f.name, err)
		}
		*f.dst = d
	}
	return nil
}

// MarshalJSON 自定义 JSON 序列化，将 Duration 转为字符串。
func (a AppConfig) MarshalJSON() ([]byte, error) {
	type Alias AppConfig
	return json.Marshal(&struct {
		TokenTTL        string `json:"token_ttl"`
		OTPTTL          string `json:"otp_ttl"`
		OTPCooldown     string `json:"otp_cooldown"`
		JanitorInterval string `json:"janitor_interval"`
		PresenceTTL     string `json:"presence_ttl"`
		*Alias
	}{
		TokenTTL:        a.TokenTTL.String(),
		OTPTTL:          a.OTPTTL.String(),
		OTPCooldown:     a.OTPCooldown.String(),
		JanitorInterval: a.JanitorInterval.String(),
		PresenceTTL:     a.PresenceTTL.String(),
		Alias:           (*Alias)(&a),
	})
}
