package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config geo-forecast（dashboard BFF）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	API     APIConfig
	Session SessionConfig
	Redis   struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
}

// APIConfig 上游 REST 后端配置
type APIConfig struct {
	// Upstream 上游主机（本地路径默认代理到这里）
	Upstream string
	// BasePath 接口前缀，可以是相对路径（拼接到 Upstream）或完整 URL
	BasePath   string
	Timeout    time.Duration
	RetryCount int
}

// SessionConfig 会话配置（token 存储）
type SessionConfig struct {
	Store     string // memory | redis
	TTL       time.Duration
	LoginPath string
	UserID    string // 未登录提交 userId 时使用的默认值
}

// BaseURL 返回实际请求使用的基础地址
// BasePath 为完整 URL 时直接使用，否则拼接到 Upstream 上
func (c APIConfig) BaseURL() string {
	if strings.HasPrefix(c.BasePath, "http://") || strings.HasPrefix(c.BasePath, "https://") {
		return strings.TrimRight(c.BasePath, "/")
	}
	base := strings.TrimRight(c.Upstream, "/")
	path := strings.Trim(c.BasePath, "/")
	if path == "" {
		return base
	}
	return base + "/" + path
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// 默认走本地 /api 前缀，代理到固定上游
	cfg.API.Upstream = getEnv("API_UPSTREAM", "http://localhost:8081")
	cfg.API.BasePath = getEnv("API_BASE_URL", "/api")
	cfg.API.Timeout = time.Duration(parseInt(getEnv("API_TIMEOUT_MS", "10000"), 10000)) * time.Millisecond
	cfg.API.RetryCount = parseInt(getEnv("API_RETRY_COUNT", "0"), 0)

	cfg.Session.Store = getEnv("SESSION_STORE", "memory")
	cfg.Session.TTL = time.Duration(parseInt(getEnv("SESSION_TTL_MIN", "480"), 480)) * time.Minute
	cfg.Session.LoginPath = getEnv("LOGIN_PATH", "/login")
	cfg.Session.UserID = getEnv("DEFAULT_USER_ID", "")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
