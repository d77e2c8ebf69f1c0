package task

import (
	"context"
	"log/slog"
	"time"
)

// ChangeKind 表示任务变更的类型。
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// ChangeEvent 描述一次已经持久化成功的任务变更。
type ChangeEvent struct {
	Kind   ChangeKind `json:"kind"`
	TaskID string     `json:"task_id"`
	Record Record     `json:"record,omitempty"`
	At     int64      `json:"at"`
}

// Notifier 接收任务变更事件。
type Notifier interface {
	Notify(ctx context.Context, event ChangeEvent) error
	Close() error
}

// NopNotifier 丢弃所有事件。
type NopNotifier struct{}

// Notify 实现 Notifier 接口。
func (NopNotifier) Notify(context.Context, ChangeEvent) error { return nil }

// Close 实现 Notifier 接口。
func (NopNotifier) Close() error { return nil }

// LogNotifier 将变更事件写入结构化日志。
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier 创建 LogNotifier；logger 为空时使用 slog.Default()。
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify 实现 Notifier 接口。
func (n *LogNotifier) Notify(ctx context.Context, event ChangeEvent) error {
	n.logger.InfoContext(ctx, "任务变更",
		slog.String("kind", string(event.Kind)),
		slog.String("task_id", event.TaskID),
		slog.Time("at", time.Unix(event.At, 0)),
	)
	return nil
}

// Close 实现 Notifier 接口。
func (n *LogNotifier) Close() error { return nil }

var (
	_ Notifier = NopNotifier{}
	_ Notifier = (*LogNotifier)(nil)
)
