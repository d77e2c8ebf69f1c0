package task

import (
	"strings"
	"time"

	"github.com/google/uuid"

	xerrors "taskpad/internal/errors"
)

// DateLayout 是任务日期字段（created_at、due_date）的文本格式。
const DateLayout = "2006-01-02"

// Status 表示任务所处的状态。
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Priority 表示任务的优先级。
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Task 描述一条待办任务。ID 与 CreatedAt 在构造后不再变化。
type Task struct {
	ID          string
	Title       string
	Description string
	Status      Status
	Priority    Priority
	CreatedAt   string
	DueDate     string
}

const (
	CodeInvalidEnumValue xerrors.Code = "INVALID_ENUM_VALUE"
	CodeMissingField     xerrors.Code = "MISSING_FIELD"
	CodeInvalidDate      xerrors.Code = "INVALID_DATE"
	CodeUnknownField     xerrors.Code = "UNKNOWN_FIELD"
	CodeImmutableField   xerrors.Code = "IMMUTABLE_FIELD"
	CodeTaskNotFound     xerrors.Code = "TASK_NOT_FOUND"
	CodePersist          xerrors.Code = "PERSIST_FAILURE"
)

var (
	// ErrInvalidEnumValue 表示 priority/status 不是可识别的枚举值。
	ErrInvalidEnumValue = xerrors.New(CodeInvalidEnumValue, "invalid enum value")
	// ErrMissingField 表示反序列化时缺少必填字段。
	ErrMissingField = xerrors.New(CodeMissingField, "missing field")
	// ErrInvalidDate 表示日期字段不是 YYYY-MM-DD。
	ErrInvalidDate = xerrors.New(CodeInvalidDate, "invalid date")
	// ErrUnknownField 表示更新时使用了无法识别的字段名。
	ErrUnknownField = xerrors.New(CodeUnknownField, "unknown field")
	// ErrImmutableField 表示尝试修改 task_id 或 created_at。
	ErrImmutableField = xerrors.New(CodeImmutableField, "immutable field")
	// ErrTaskNotFound 表示指定的任务不存在。
	ErrTaskNotFound = xerrors.New(CodeTaskNotFound, "task not found")
	// ErrPersist 表示底层存储读写失败。
	ErrPersist = xerrors.New(CodePersist, "persist failure", xerrors.WithSeverity(xerrors.SeverityCritical))
)

func init() {
	xerrors.Register(CodeInvalidEnumValue, xerrors.Attributes{
		Message:  "invalid enum value",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeMissingField, xerrors.Attributes{
		Message:  "missing field",
		Severity: xerrors.SeverityWarning,
	})
	xerrors.Register(CodeInvalidDate, xerrors.Attributes{
		Message:  "invalid date",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeUnknownField, xerrors.Attributes{
		Message:  "unknown field",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeImmutableField, xerrors.Attributes{
		Message:  "immutable field",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeTaskNotFound, xerrors.Attributes{
		Message:  "task not found",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodePersist, xerrors.Attributes{
		Message:  "persist failure",
		Severity: xerrors.SeverityCritical,
	})
}

// IsTaskError 判断错误链中是否包含指定的任务错误码。
func IsTaskError(err error, target xerrors.Code) bool {
	if err == nil {
		return false
	}
	return xerrors.HasCode(err, target)
}

// ParseStatus 将文本解析为 Status，忽略大小写与首尾空白。
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if !IsValidStatus(status) {
		return "", xerrors.Newf(CodeInvalidEnumValue, "未知的任务状态 %q", value)
	}
	return status, nil
}

// ParsePriority 将文本解析为 Priority，忽略大小写与首尾空白。
func ParsePriority(value string) (Priority, error) {
	priority := Priority(strings.ToLower(strings.TrimSpace(value)))
	if !IsValidPriority(priority) {
		return "", xerrors.Newf(CodeInvalidEnumValue, "未知的任务优先级 %q", value)
	}
	return priority, nil
}

// IsValidStatus 检查给定的任务状态是否为支持的枚举值。
func IsValidStatus(status Status) bool {
	switch status {
	case StatusPending, StatusCompleted:
		return true
	default:
		return false
	}
}

// IsValidPriority 检查给定的优先级是否为支持的枚举值。
func IsValidPriority(priority Priority) bool {
	switch priority {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

func (s Status) String() string { return string(s) }

func (p Priority) String() string { return string(p) }

// ParseDate 校验并解析 YYYY-MM-DD 格式的日期。
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, xerrors.Wrap(CodeInvalidDate, err, "日期格式应为 YYYY-MM-DD")
	}
	return parsed, nil
}

type options struct {
	id       string
	dueDate  string
	hasDue   bool
	priority Priority
	status   Status
	clock    func() time.Time
}

// Option 调整 New 的构造参数。
type Option func(*options)

// WithID 指定任务 ID，为空时自动生成。ID 按原样保存，不做任何规整。
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// WithDueDate 指定截止日期；为空时使用创建日期的后一天。
func WithDueDate(date string) Option {
	return func(o *options) {
		o.dueDate = strings.TrimSpace(date)
		o.hasDue = o.dueDate != ""
	}
}

// WithPriority 指定优先级，默认 medium。
func WithPriority(priority Priority) Option {
	return func(o *options) {
		o.priority = priority
	}
}

// WithStatus 指定状态，默认 pending。
func WithStatus(status Status) Option {
	return func(o *options) {
		o.status = status
	}
}

// WithClock 替换当前时间来源，主要用于测试。
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// New 构造一个新任务。
func New(title, description string, opts ...Option) (*Task, error) {
	o := options{
		priority: PriorityMedium,
		status:   StatusPending,
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if !IsValidPriority(o.priority) {
		return nil, xerrors.Newf(CodeInvalidEnumValue, "未知的任务优先级 %q", o.priority)
	}
	if !IsValidStatus(o.status) {
		return nil, xerrors.Newf(CodeInvalidEnumValue, "未知的任务状态 %q", o.status)
	}

	now := o.clock()
	dueDate := defaultDueDate(now)
	if o.hasDue {
		if _, err := ParseDate(o.dueDate); err != nil {
			return nil, err
		}
		dueDate = o.dueDate
	}

	id := o.id
	if id == "" {
		id = uuid.NewString()
	}

	return &Task{
		ID:          id,
		Title:       title,
		Description: description,
		Status:      o.status,
		Priority:    o.priority,
		CreatedAt:   now.Format(DateLayout),
		DueDate:     dueDate,
	}, nil
}

// IsOverdue 判断未完成的任务是否已超过截止日期。
func (t *Task) IsOverdue(now time.Time) bool {
	if t == nil || t.Status == StatusCompleted {
		return false
	}
	due, err := ParseDate(t.DueDate)
	if err != nil {
		return false
	}
	today, _ := time.Parse(DateLayout, now.Format(DateLayout))
	return due.Before(today)
}

func defaultDueDate(now time.Time) string {
	return now.AddDate(0, 0, 1).Format(DateLayout)
}
