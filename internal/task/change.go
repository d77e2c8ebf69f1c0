package task

import (
	"strings"

	xerrors "taskpad/internal/errors"
)

// Change 描述对单个可变字段的修改，构造时即完成校验。
type Change struct {
	field string
	value string
}

// Field 返回被修改的字段名。
func (c Change) Field() string { return c.field }

// Value 返回修改后的文本值。
func (c Change) Value() string { return c.value }

// SetTitle 修改标题。
func SetTitle(title string) Change {
	return Change{field: FieldTitle, value: title}
}

// SetDescription 修改描述。
func SetDescription(description string) Change {
	return Change{field: FieldDescription, value: description}
}

// SetStatus 修改状态。
func SetStatus(status Status) Change {
	return Change{field: FieldStatus, value: string(status)}
}

// SetPriority 修改优先级。
func SetPriority(priority Priority) Change {
	return Change{field: FieldPriority, value: string(priority)}
}

// SetDueDate 修改截止日期，日期需为 YYYY-MM-DD。
func SetDueDate(date string) (Change, error) {
	if _, err := ParseDate(date); err != nil {
		return Change{}, err
	}
	return Change{field: FieldDueDate, value: strings.TrimSpace(date)}, nil
}

// ParseChange 根据字段名和文本值构造 Change。字段名须与记录中的键完全一致。
//
// task_id、created_at 返回 IMMUTABLE_FIELD；其它未知字段返回 UNKNOWN_FIELD。
func ParseChange(field, value string) (Change, error) {
	switch field {
	case FieldTitle:
		return SetTitle(value), nil
	case FieldDescription:
		return SetDescription(value), nil
	case FieldStatus:
		status, err := ParseStatus(value)
		if err != nil {
			return Change{}, err
		}
		return SetStatus(status), nil
	case FieldPriority:
		priority, err := ParsePriority(value)
		if err != nil {
			return Change{}, err
		}
		return SetPriority(priority), nil
	case FieldDueDate:
		return SetDueDate(value)
	case FieldTaskID, FieldCreatedAt:
		return Change{}, xerrors.New(CodeImmutableField, "字段 "+field+" 不允许修改", xerrors.WithMetadata("field", field))
	default:
		return Change{}, xerrors.New(CodeUnknownField, "未知字段 "+field, xerrors.WithMetadata("field", field))
	}
}

// validate 重新校验 Change，零值或绕过构造函数得到的非法值都会被拒绝。
func (c Change) validate() error {
	switch c.field {
	case FieldTitle, FieldDescription:
		return nil
	case FieldStatus:
		if !IsValidStatus(Status(c.value)) {
			return xerrors.Newf(CodeInvalidEnumValue, "未知的任务状态 %q", c.value)
		}
		return nil
	case FieldPriority:
		if !IsValidPriority(Priority(c.value)) {
			return xerrors.Newf(CodeInvalidEnumValue, "未知的任务优先级 %q", c.value)
		}
		return nil
	case FieldDueDate:
		_, err := ParseDate(c.value)
		return err
	case FieldTaskID, FieldCreatedAt:
		return xerrors.New(CodeImmutableField, "字段 "+c.field+" 不允许修改", xerrors.WithMetadata("field", c.field))
	default:
		return xerrors.New(CodeUnknownField, "无效的字段修改: "+c.field, xerrors.WithMetadata("field", c.field))
	}
}

func (c Change) apply(rec Record) {
	if _, ok := rec[c.field]; ok {
		rec[c.field] = c.value
	}
}
