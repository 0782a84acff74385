package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const keyPrefix = "geo-forecast:session:"

// TokenStore 单个会话的鉴权信息（bearer token + 用户 ID）
// 相当于前端 localStorage 中的 token，这里显式注入到请求层
type TokenStore struct {
	kv        KV
	sessionID string
	ttl       time.Duration
}

func NewTokenStore(kv KV, sessionID string, ttl time.Duration) *TokenStore {
	return &TokenStore{kv: kv, sessionID: sessionID, ttl: ttl}
}

func (s *TokenStore) SessionID() string { return s.sessionID }

func (s *TokenStore) tokenKey() string { return keyPrefix + s.sessionID + ":token" }

func (s *TokenStore) userKey() string { return keyPrefix + s.sessionID + ":user" }

// Token 读取 token；未登录时返回空字符串
func (s *TokenStore) Token(ctx context.Context) (string, error) {
	v, err := s.kv.Get(ctx, s.tokenKey())
	if errors.Is(err, ErrMiss) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return v, nil
}

func (s *TokenStore) UserID(ctx context.Context) (string, error) {
	v, err := s.kv.Get(ctx, s.userKey())
	if errors.Is(err, ErrMiss) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read user id: %w", err)
	}
	return v, nil
}

func (s *TokenStore) SetToken(ctx context.Context, token, userID string) error {
	if err := s.kv.Set(ctx, s.tokenKey(), token, s.ttl); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	if err := s.kv.Set(ctx, s.userKey(), userID, s.ttl); err != nil {
		return fmt.Errorf("failed to store user id: %w", err)
	}
	return nil
}

// ClearToken 清除 token（401 或登出时调用）
func (s *TokenStore) ClearToken(ctx context.Context) error {
	return s.kv.Del(ctx, s.tokenKey(), s.userKey())
}
