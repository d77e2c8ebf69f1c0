package task

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	xerrors "taskpad/internal/errors"
)

// Store 持有任务集合（task_id -> Record），保持插入顺序。
//
// 每次修改都先在副本上计算出新的集合，交给 Backend 整体写入，写入成功后才
// 替换内存中的状态，因此写入失败不会让内存与磁盘产生分歧。
type Store struct {
	mu      sync.Mutex
	backend Backend
	order   []string
	records map[string]Record
	strict  bool
	clock   func() time.Time
}

// StoreOption 调整 Store 的行为。
type StoreOption func(*Store)

// WithStrictFields 为 true 时 UpdateFields 拒绝未知字段名，否则静默忽略。
func WithStrictFields(strict bool) StoreOption {
	return func(s *Store) {
		s.strict = strict
	}
}

// WithStoreClock 替换加载时补全默认日期所用的时钟。
func WithStoreClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewStore 创建 Store 并从 backend 加载已有数据。
func NewStore(ctx context.Context, backend Backend, opts ...StoreOption) (*Store, error) {
	if backend == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "任务存储后端未配置")
	}
	s := &Store{
		backend: backend,
		records: make(map[string]Record),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	loaded, err := s.backend.Load(ctx)
	if err != nil {
		return persistError(err, "加载任务失败")
	}
	order := make([]string, 0, len(loaded))
	records := make(map[string]Record, len(loaded))
	for i, rec := range loaded {
		t, err := fromRecord(rec, s.clock)
		if err != nil {
			return xerrors.Wrap(CodePersist, err, "第 "+strconv.Itoa(i+1)+" 条任务记录无效")
		}
		if _, dup := records[t.ID]; dup {
			return xerrors.New(CodePersist, "任务 ID 重复: "+t.ID)
		}
		order = append(order, t.ID)
		records[t.ID] = t.Record()
	}
	s.order = order
	s.records = records
	return nil
}

// Add 写入新任务；ID 已存在时原位覆盖。写入前校验枚举与日期，保证写出的数据都能重新加载。
func (s *Store) Add(ctx context.Context, task *Task) error {
	if task == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "task 不能为空")
	}
	if strings.TrimSpace(task.ID) == "" {
		return xerrors.New(CodeMissingField, "任务 ID 不能为空", xerrors.WithMetadata("field", FieldTaskID))
	}
	if !IsValidPriority(task.Priority) || !IsValidStatus(task.Status) {
		return xerrors.Newf(CodeInvalidEnumValue, "任务 %s 的优先级或状态无效", task.ID)
	}
	if _, err := ParseDate(task.DueDate); err != nil {
		return err
	}
	if _, err := ParseDate(task.CreatedAt); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, records := s.snapshot()
	if _, ok := records[task.ID]; !ok {
		order = append(order, task.ID)
	}
	records[task.ID] = task.Record()
	return s.commit(ctx, order, records)
}

// Delete 删除任务；任务不存在时返回 ErrTaskNotFound 且不写入。
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return notFound(id)
	}
	order, records := s.snapshot()
	delete(records, id)
	for i, existing := range order {
		if existing == id {
			order = append(order[:i], order[i+1:]...)
			break
		}
	}
	return s.commit(ctx, order, records)
}

// Update 依次应用 changes 并整体写入；即使 changes 为空也会写入一次。
func (s *Store) Update(ctx context.Context, id string, changes ...Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(ctx, id, changes)
}

// UpdateFields 以字段名 -> 文本值的形式更新任务。
//
// 已知字段会按类型校验；task_id、created_at 不可修改；未知字段在非严格模式
// 下被忽略，但仍会写入一次。
func (s *Store) UpdateFields(ctx context.Context, id string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return notFound(id)
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	changes := make([]Change, 0, len(names))
	for _, name := range names {
		change, err := ParseChange(name, fields[name])
		if err != nil {
			if IsTaskError(err, CodeUnknownField) && !s.strict {
				continue
			}
			return err
		}
		changes = append(changes, change)
	}
	return s.update(ctx, id, changes)
}

func (s *Store) update(ctx context.Context, id string, changes []Change) error {
	if _, ok := s.records[id]; !ok {
		return notFound(id)
	}
	for _, change := range changes {
		if err := change.validate(); err != nil {
			return err
		}
	}
	order, records := s.snapshot()
	rec := records[id]
	for _, change := range changes {
		change.apply(rec)
	}
	return s.commit(ctx, order, records)
}

// Get 返回指定任务记录的副本。
func (s *Store) Get(_ context.Context, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, notFound(id)
	}
	return rec.Clone(), nil
}

// List 按插入顺序返回全部记录的副本；没有任务时返回长度为 0 的切片。
func (s *Store) List(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	results := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		results = append(results, s.records[id].Clone())
	}
	return results, nil
}

// Len 返回任务数量。
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Close 关闭底层存储。
func (s *Store) Close() error {
	if s == nil || s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

func (s *Store) snapshot() ([]string, map[string]Record) {
	order := make([]string, len(s.order))
	copy(order, s.order)
	records := make(map[string]Record, len(s.records))
	for id, rec := range s.records {
		records[id] = rec.Clone()
	}
	return order, records
}

func (s *Store) commit(ctx context.Context, order []string, records map[string]Record) error {
	payload := make([]Record, 0, len(order))
	for _, id := range order {
		payload = append(payload, records[id])
	}
	if err := s.backend.Save(ctx, cloneRecords(payload)); err != nil {
		return persistError(err, "保存任务失败")
	}
	s.order = order
	s.records = records
	return nil
}

func notFound(id string) error {
	return xerrors.New(CodeTaskNotFound, "任务不存在: "+id, xerrors.WithMetadata("task_id", id))
}

func persistError(err error, message string) error {
	if IsTaskError(err, CodePersist) {
		return err
	}
	return xerrors.Wrap(CodePersist, err, message)
}
