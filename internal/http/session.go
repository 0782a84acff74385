package httpapi

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"geo-forecast/internal/notify"
	"geo-forecast/internal/request"
	"geo-forecast/internal/service"
	"geo-forecast/internal/store"
	"geo-forecast/internal/workpoint"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sessionCookie = "sid"

// Session 一个浏览器会话：token、提示队列、工点缓存
// 对应前端页面内的全局状态，生命周期从登录到登出（或 401）
type Session struct {
	ID      string
	Tokens  *store.TokenStore
	Notices *notify.Buffer
	API     *service.API
	Loader  *workpoint.Loader

	lastSeen atomic.Int64 // unix nano
}

func (s *Session) touch(now time.Time) { s.lastSeen.Store(now.UnixNano()) }

func (s *Session) idle(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// SessionManager 管理会话。token 存在 KV 中（memory / redis），
// 多实例部署时本实例没有的会话可从 KV 重建（工点缓存重新加载）
//
// 超过 ttl 未访问的会话由后台清理（token 此时已在 KV 中过期），
// 浏览器不再回来的会话不会一直占用内存
type SessionManager struct {
	kv         store.KV
	httpClient *resty.Client
	baseURL    string
	ttl        time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewSessionManager(kv store.KV, httpClient *resty.Client, baseURL string, ttl time.Duration, logger *zap.Logger) *SessionManager {
	m := &SessionManager{
		kv:         kv,
		httpClient: httpClient,
		baseURL:    baseURL,
		ttl:        ttl,
		logger:     logger,
		sessions:   make(map[string]*Session),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	if ttl > 0 {
		go m.sweepLoop(sweepInterval(ttl))
	} else {
		close(m.done)
	}
	return m
}

// sweepInterval ttl 的一半，限制在 [10ms, 1min]
func sweepInterval(ttl time.Duration) time.Duration {
	d := ttl / 2
	if d < 10*time.Millisecond {
		d = 10 * time.Millisecond
	}
	if d > time.Minute {
		d = time.Minute
	}
	return d
}

func (m *SessionManager) sweepLoop(every time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.sweep(now)
		}
	}
}

// sweep 释放空闲超过 ttl 的会话缓存，token 留给 KV 过期处理
func (m *SessionManager) sweep(now time.Time) int {
	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.idle(now) > m.ttl {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Loader.Close()
	}
	if len(idle) > 0 {
		m.logger.Info("idle sessions released", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// New 创建未登录的会话（登录时使用）
func (m *SessionManager) New() *Session {
	s := m.build(uuid.NewString())
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Lookup 根据 cookie 找到已登录的会话
func (m *SessionManager) Lookup(r *http.Request) (*Session, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return nil, false
	}
	id := c.Value

	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		s = m.build(id)
	}

	token, err := s.Tokens.Token(r.Context())
	if err != nil {
		m.logger.Warn("failed to read session token", zap.String("session_id", id), zap.Error(err))
		return nil, false
	}
	if token == "" {
		if ok {
			m.drop(id)
		}
		return nil, false
	}
	if !ok {
		m.mu.Lock()
		if existing, found := m.sessions[id]; found {
			s = existing
		} else {
			m.sessions[id] = s
		}
		m.mu.Unlock()
		m.logger.Info("session restored from store", zap.String("session_id", id))
	}
	s.touch(time.Now())
	return s, true
}

// Destroy 登出：清除 token 并释放缓存
func (m *SessionManager) Destroy(ctx context.Context, s *Session) {
	if err := s.Tokens.ClearToken(ctx); err != nil {
		m.logger.Warn("failed to clear session token", zap.String("session_id", s.ID), zap.Error(err))
	}
	m.drop(s.ID)
}

func (m *SessionManager) drop(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Loader.Close()
	}
}

func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close 停止后台清理并关闭全部会话缓存（进程退出时调用），token 保留在 KV 中
func (m *SessionManager) Close() {
	m.closeOnce.Do(func() { close(m.stop) })
	<-m.done

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Loader.Close()
	}
}

func (m *SessionManager) build(id string) *Session {
	logger := m.logger.With(zap.String("session_id", id))
	tokens := store.NewTokenStore(m.kv, id, m.ttl)
	notices := notify.NewBuffer(0)

	// 401：token 已由传输层清除，这里释放该会话的缓存
	onUnauthorized := func(ctx context.Context) {
		logger.Info("session expired by upstream 401")
		m.drop(id)
	}
	transport := request.NewTransport(m.httpClient, tokens, onUnauthorized, logger)
	client := request.NewClient(transport, notify.Multi{notices, notify.NewLogNotifier(logger)}, logger)
	api := service.NewAPI(client, m.baseURL, logger)

	s := &Session{
		ID:      id,
		Tokens:  tokens,
		Notices: notices,
		API:     api,
		Loader:  workpoint.NewLoader(api, logger),
	}
	s.touch(time.Now())
	return s
}

func setSessionCookie(w http.ResponseWriter, id string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
