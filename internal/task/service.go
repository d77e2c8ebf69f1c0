package task

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	xerrors "taskpad/internal/errors"
	"taskpad/pkg/logger"
)

// Service 是 shell 调用的入口，负责任务的增删改查。
type Service struct {
	store    *Store
	notifier Notifier
	clock    func() time.Time
}

// ServiceOption 调整 Service 的行为。
type ServiceOption func(*Service)

// WithServiceClock 替换创建任务与统计时使用的时钟。
func WithServiceClock(clock func() time.Time) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService 构造任务服务。notifier 为空时不发送变更事件。
func NewService(store *Store, notifier Notifier, opts ...ServiceOption) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	s := &Service{store: store, notifier: notifier, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// AddTask 使用给定优先级创建任务；priority 为空时使用 medium。
func (s *Service) AddTask(ctx context.Context, title, description, priority string) (*Task, error) {
	p := PriorityMedium
	if strings.TrimSpace(priority) != "" {
		parsed, err := ParsePriority(priority)
		if err != nil {
			return nil, err
		}
		p = parsed
	}
	return s.CreateTask(ctx, title, description, WithPriority(p))
}

// CreateTask 构造并保存任务。
func (s *Service) CreateTask(ctx context.Context, title, description string, opts ...Option) (*Task, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "任务存储未初始化")
	}
	opts = append([]Option{WithClock(s.clock)}, opts...)
	t, err := New(title, description, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.store.Add(ctx, t); err != nil {
		return nil, err
	}
	logger.Audit().Info("任务已创建",
		slog.String("task_id", t.ID),
		slog.String("title", t.Title),
		slog.String("priority", string(t.Priority)),
		slog.String("due_date", t.DueDate),
	)
	s.notify(ctx, ChangeAdded, t.ID, t.Record())
	return t, nil
}

// DeleteTask 删除任务；任务不存在时返回 ErrTaskNotFound。
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	if s.store == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "任务存储未初始化")
	}
	id = strings.TrimSpace(id)
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	logger.Audit().Info("任务已删除", slog.String("task_id", id))
	s.notify(ctx, ChangeDeleted, id, nil)
	return nil
}

// UpdateTask 修改任务的单个字段。
func (s *Service) UpdateTask(ctx context.Context, id, field, value string) error {
	if s.store == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "任务存储未初始化")
	}
	id = strings.TrimSpace(id)
	if err := s.store.UpdateFields(ctx, id, map[string]string{field: value}); err != nil {
		return err
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	logger.Audit().Info("任务已更新",
		slog.String("task_id", id),
		slog.String("field", field),
	)
	s.notify(ctx, ChangeUpdated, id, rec)
	return nil
}

// ListTasks 按插入顺序返回全部任务记录。
func (s *Service) ListTasks(ctx context.Context) ([]Record, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "任务存储未初始化")
	}
	return s.store.List(ctx)
}

// GetTask 返回指定任务。
func (s *Service) GetTask(ctx context.Context, id string) (*Task, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "任务存储未初始化")
	}
	rec, err := s.store.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	return fromRecord(rec, s.clock)
}

// Stats 返回任务统计信息。
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	records, err := s.ListTasks(ctx)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(records, s.clock()), nil
}

// Close 释放存储与通知器。
func (s *Service) Close() error {
	var err error
	if s.store != nil {
		err = errors.Join(err, s.store.Close())
	}
	if s.notifier != nil {
		err = errors.Join(err, s.notifier.Close())
	}
	return err
}

func (s *Service) notify(ctx context.Context, kind ChangeKind, id string, rec Record) {
	event := ChangeEvent{Kind: kind, TaskID: id, Record: rec, At: s.clock().Unix()}
	if err := s.notifier.Notify(ctx, event); err != nil {
		logger.L().Warn("发送任务变更事件失败",
			slog.Any("error", err),
			slog.String("task_id", id),
			slog.String("kind", string(kind)),
		)
	}
}
