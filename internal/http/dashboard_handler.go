package httpapi

import (
	"errors"
	"net/http"
	"time"

	"geo-forecast/internal/keyedcache"
	"geo-forecast/internal/request"
	"geo-forecast/internal/service"

	"go.uber.org/zap"
)

const apiPrefix = "/dashboard/api/v1"

// DashboardHandler 超前地质预报管理页面的 BFF 接口
type DashboardHandler struct {
	sessions      *SessionManager
	loginPath     string
	defaultUserID string
	ttl           time.Duration
	logger        *zap.Logger
}

func NewDashboardHandler(sessions *SessionManager, loginPath, defaultUserID string, ttl time.Duration, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		sessions:      sessions,
		loginPath:     loginPath,
		defaultUserID: defaultUserID,
		ttl:           ttl,
		logger:        logger,
	}
}

// ServeHTTP 路由分发
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, apiPrefix)
	if len(parts) == 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch parts[0] {
	case "login":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Login(w, r)
		return
	case "logout":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Logout(w, r)
		return
	}

	s, ok := h.sessions.Lookup(r)
	if !ok {
		h.expired(w)
		return
	}

	switch parts[0] {
	case "messages":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, Ok(s.Notices.Drain()))
	case "tunnels":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListTunnels(w, r, s)
	case "workpoints":
		h.serveWorkPoints(w, r, s, parts[1:])
	case "forecasts":
		h.serveForecasts(w, r, s, parts[1:])
	case "rock-grades":
		h.serveRockGrades(w, r, s, parts[1:])
	case "geology":
		h.serveGeology(w, r, s, parts[1:])
	case "designs":
		h.serveDesigns(w, r, s, parts[1:])
	case "conclusions":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListConclusions(w, r, s)
	case "export":
		h.serveExport(w, r, s, parts[1:])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Login 上游登录成功后创建会话并写入 cookie
func (h *DashboardHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	if req.Username == "" {
		writeJSON(w, http.StatusOK, Fail("username is required"))
		return
	}

	s := h.sessions.New()
	res, err := s.API.Login(r.Context(), req)
	if err != nil {
		h.sessions.Destroy(r.Context(), s)
		h.logger.Info("login failed", zap.String("username", req.Username), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(request.MessageOf(err)))
		return
	}
	userID := res.UserID.String()
	if userID == "" {
		userID = h.defaultUserID
	}
	if err := s.Tokens.SetToken(r.Context(), res.Token, userID); err != nil {
		h.sessions.Destroy(r.Context(), s)
		h.logger.Error("failed to store session token", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("failed to create session"))
		return
	}

	setSessionCookie(w, s.ID, h.ttl)
	writeJSON(w, http.StatusOK, Ok(map[string]any{"userId": userID}))
}

func (h *DashboardHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.sessions.Lookup(r); ok {
		h.sessions.Destroy(r.Context(), s)
	}
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// expired 未登录或登录失效：401 + 跳转登录页
func (h *DashboardHandler) expired(w http.ResponseWriter) {
	clearSessionCookie(w)
	w.Header().Set("Location", h.loginPath)
	writeJSON(w, http.StatusUnauthorized, Expired(h.loginPath))
}

// fail 上游 401（或因 401 已关闭的会话缓存）统一跳转登录，其余返回解析后的提示
func (h *DashboardHandler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, request.ErrUnauthorized) || errors.Is(err, keyedcache.ErrClosed) {
		h.expired(w)
		return
	}
	writeJSON(w, http.StatusOK, Fail(request.MessageOf(err)))
}

func (h *DashboardHandler) userID(r *http.Request, s *Session) string {
	id, err := s.Tokens.UserID(r.Context())
	if err != nil || id == "" {
		return h.defaultUserID
	}
	return id
}
