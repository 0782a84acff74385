package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Notifier 全局提示（对应前端的 message toast）
type Notifier interface {
	Success(ctx context.Context, msg string)
	Error(ctx context.Context, msg string)
}

// Level 提示级别
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Message 一条待展示的提示
type Message struct {
	Level   Level     `json:"type"`
	Text    string    `json:"message"`
	Created time.Time `json:"created"`
}

// LogNotifier 只写日志
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Success(ctx context.Context, msg string) {
	n.logger.Info("notify success", zap.String("message", msg))
}

func (n *LogNotifier) Error(ctx context.Context, msg string) {
	n.logger.Warn("notify error", zap.String("message", msg))
}

// Buffer 会话级提示队列，由页面轮询 Drain
type Buffer struct {
	mu   sync.Mutex
	msgs []Message
	max  int
}

func NewBuffer(max int) *Buffer {
	if max <= 0 {
		max = 50
	}
	return &Buffer{max: max}
}

func (b *Buffer) push(level Level, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, Message{Level: level, Text: msg, Created: time.Now()})
	// 只保留最新的 max 条
	if len(b.msgs) > b.max {
		b.msgs = b.msgs[len(b.msgs)-b.max:]
	}
}

func (b *Buffer) Success(ctx context.Context, msg string) { b.push(LevelSuccess, msg) }

func (b *Buffer) Error(ctx context.Context, msg string) { b.push(LevelError, msg) }

// Drain 取出并清空所有提示
func (b *Buffer) Drain() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.msgs
	b.msgs = nil
	if out == nil {
		out = []Message{}
	}
	return out
}

// Multi 同时通知多个 Notifier
type Multi []Notifier

func (m Multi) Success(ctx context.Context, msg string) {
	for _, n := range m {
		n.Success(ctx, msg)
	}
}

func (m Multi) Error(ctx context.Context, msg string) {
	for _, n := range m {
		n.Error(ctx, msg)
	}
}
