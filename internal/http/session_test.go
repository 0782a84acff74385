package httpapi

import (
	"context"
	"testing"
	"time"

	"geo-forecast/internal/keyedcache"
	"geo-forecast/internal/request"
	"geo-forecast/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T, ttl time.Duration) *SessionManager {
	httpClient := request.NewHTTPClient(request.TransportConfig{BaseURL: "http://127.0.0.1:1/api", Timeout: time.Second})
	m := NewSessionManager(store.NewMemoryKV(), httpClient, "http://127.0.0.1:1/api", ttl, zap.NewNop())
	t.Cleanup(m.Close)
	return m
}

func TestSessionManager_ReleasesIdleSessions(t *testing.T) {
	m := newTestSessionManager(t, 20*time.Millisecond)
	for i := 0; i < 100; i++ {
		s := m.New()
		require.NoError(t, s.Tokens.SetToken(context.Background(), "tok", "42"))
	}
	require.Equal(t, 100, m.Len())

	assert.Eventually(t, func() bool { return m.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSessionManager_SweepKeepsActiveSessions(t *testing.T) {
	m := newTestSessionManager(t, time.Hour)
	now := time.Now()

	active := m.New()
	idle := m.New()
	idle.touch(now.Add(-2 * time.Hour))

	assert.Equal(t, 1, m.sweep(now))
	assert.Equal(t, 1, m.Len())

	// 被清理的会话缓存已关闭
	err := idle.Loader.Expand(context.Background(), "7")
	assert.ErrorIs(t, err, keyedcache.ErrClosed)

	active.touch(now.Add(2 * time.Hour))
	assert.Zero(t, m.sweep(now.Add(2*time.Hour)))
	assert.Equal(t, 1, m.Len())
}

func TestSessionManager_CloseIsIdempotent(t *testing.T) {
	m := newTestSessionManager(t, time.Hour)
	m.New()
	m.Close()
	m.Close()
	assert.Zero(t, m.Len())
}

func TestSweepInterval(t *testing.T) {
	assert.Equal(t, 10*time.Millisecond, sweepInterval(time.Millisecond))
	assert.Equal(t, 15*time.Second, sweepInterval(30*time.Second))
	assert.Equal(t, time.Minute, sweepInterval(8*time.Hour))
}
