package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server 管理页面 BFF 的 HTTP 服务
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			// 导出 xlsx 需要等待上游两次列表请求
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  2 * time.Minute,
		},
		logger: logger,
	}
}

// Start 阻塞直到服务停止；正常 Stop 返回 nil
func (s *Server) Start() error {
	s.logger.Info("geo-forecast dashboard listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 等待进行中的请求结束，超时后强制关闭
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("geo-forecast dashboard shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown incomplete", zap.Error(err))
		return s.httpServer.Close()
	}
	return nil
}
