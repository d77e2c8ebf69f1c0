package task

import (
	"strings"
	"time"

	xerrors "taskpad/internal/errors"
)

// Record 是任务的扁平化序列化形式，所有值均为文本。
type Record map[string]string

// 记录中的字段名，与持久化文件中的键一致。
const (
	FieldTaskID      = "task_id"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldStatus      = "status"
	FieldPriority    = "priority"
	FieldDueDate     = "due_date"
	FieldCreatedAt   = "created_at"
)

// RecordFields 按固定顺序列出记录包含的全部字段。
var RecordFields = []string{
	FieldTaskID,
	FieldTitle,
	FieldDescription,
	FieldStatus,
	FieldPriority,
	FieldDueDate,
	FieldCreatedAt,
}

var requiredFields = []string{FieldTitle, FieldDescription, FieldTaskID, FieldPriority, FieldStatus}

// Record 将任务序列化为扁平记录。
func (t *Task) Record() Record {
	if t == nil {
		return nil
	}
	return Record{
		FieldTaskID:      t.ID,
		FieldTitle:       t.Title,
		FieldDescription: t.Description,
		FieldStatus:      string(t.Status),
		FieldPriority:    string(t.Priority),
		FieldDueDate:     t.DueDate,
		FieldCreatedAt:   t.CreatedAt,
	}
}

// ID 返回记录中的任务 ID。
func (r Record) ID() string {
	return r[FieldTaskID]
}

// Clone 返回记录的浅拷贝。
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	clone := make(Record, len(r))
	for key, value := range r {
		clone[key] = value
	}
	return clone
}

// Equal 判断两条记录的字段是否完全一致。
func (r Record) Equal(other Record) bool {
	if len(r) != len(other) {
		return false
	}
	for key, value := range r {
		if v, ok := other[key]; !ok || v != value {
			return false
		}
	}
	return true
}

// FromRecord 从扁平记录还原任务。
//
// title、description、task_id、priority、status 为必填字段；缺少 due_date 时
// 使用当天的后一天，缺少 created_at 时使用当天。
func FromRecord(rec Record) (*Task, error) {
	return fromRecord(rec, time.Now)
}

func fromRecord(rec Record, clock func() time.Time) (*Task, error) {
	for _, field := range requiredFields {
		if _, ok := rec[field]; !ok {
			return nil, xerrors.New(CodeMissingField, "缺少字段 "+field, xerrors.WithMetadata("field", field))
		}
	}
	if strings.TrimSpace(rec[FieldTaskID]) == "" {
		return nil, xerrors.New(CodeMissingField, "task_id 不能为空", xerrors.WithMetadata("field", FieldTaskID))
	}

	priority, err := ParsePriority(rec[FieldPriority])
	if err != nil {
		return nil, err
	}
	status, err := ParseStatus(rec[FieldStatus])
	if err != nil {
		return nil, err
	}

	t, err := New(rec[FieldTitle], rec[FieldDescription],
		WithID(rec[FieldTaskID]),
		WithDueDate(rec[FieldDueDate]),
		WithPriority(priority),
		WithStatus(status),
		WithClock(clock),
	)
	if err != nil {
		return nil, err
	}
	if createdAt, ok := rec[FieldCreatedAt]; ok && strings.TrimSpace(createdAt) != "" {
		if _, err := ParseDate(createdAt); err != nil {
			return nil, err
		}
		t.CreatedAt = createdAt
	}
	return t, nil
}
