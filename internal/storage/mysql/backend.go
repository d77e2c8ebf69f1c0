package mysql

import (
	"context"
	"database/sql"

	xerrors "taskpad/internal/errors"
	"taskpad/internal/task"
)

const (
	selectTasksSQL = `SELECT task_id, title, description, status, priority, due_date, created_at
    FROM tasks ORDER BY seq ASC`
	deleteTasksSQL = `DELETE FROM tasks`
	insertTaskSQL  = `INSERT INTO tasks
    (task_id, seq, title, description, status, priority, due_date, created_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
)

// Backend 使用 tasks 表保存任务集合，seq 列记录插入顺序。
type Backend struct {
	db *sql.DB
}

// New 打开数据库连接并确保表结构存在。
func New(ctx context.Context, cfg Config) (*Backend, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, xerrors.Wrap(task.CodePersist, err, "打开任务数据库失败")
	}
	if err := ensureSchema(ctx, db); err != nil {
		db.Close()
		return nil, xerrors.Wrap(task.CodePersist, err, "初始化任务表失败")
	}
	return &Backend{db: db}, nil
}

// NewWithDB 基于已有连接创建 Backend，并确保表结构存在。
func NewWithDB(ctx context.Context, db *sql.DB) (*Backend, error) {
	if db == nil {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "db 不能为空")
	}
	if err := ensureSchema(ctx, db); err != nil {
		return nil, xerrors.Wrap(task.CodePersist, err, "初始化任务表失败")
	}
	return &Backend{db: db}, nil
}

// Load 实现 task.Backend 接口。
func (b *Backend) Load(ctx context.Context) ([]task.Record, error) {
	rows, err := b.db.QueryContext(ctx, selectTasksSQL)
	if err != nil {
		return nil, xerrors.Wrap(task.CodePersist, err, "查询任务失败")
	}
	defer rows.Close()

	var records []task.Record
	for rows.Next() {
		var id, title, description, status, priority, dueDate, createdAt string
		if err := rows.Scan(&id, &title, &description, &status, &priority, &dueDate, &createdAt); err != nil {
			return nil, xerrors.Wrap(task.CodePersist, err, "解析任务行失败")
		}
		records = append(records, task.Record{
			task.FieldTaskID:      id,
			task.FieldTitle:       title,
			task.FieldDescription: description,
			task.FieldStatus:      status,
			task.FieldPriority:    priority,
			task.FieldDueDate:     dueDate,
			task.FieldCreatedAt:   createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(task.CodePersist, err, "遍历任务失败")
	}
	return records, nil
}

// Save 在单个事务内清空并重写 tasks 表。
func (b *Backend) Save(ctx context.Context, records []task.Record) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return xerrors.Wrap(task.CodePersist, err, "开启事务失败")
	}
	if _, err := tx.ExecContext(ctx, deleteTasksSQL); err != nil {
		tx.Rollback()
		return xerrors.Wrap(task.CodePersist, err, "清空任务表失败")
	}
	for i, rec := range records {
		if _, err := tx.ExecContext(ctx, insertTaskSQL,
			rec[task.FieldTaskID],
			int64(i),
			rec[task.FieldTitle],
			rec[task.FieldDescription],
			rec[task.FieldStatus],
			rec[task.FieldPriority],
			rec[task.FieldDueDate],
			rec[task.FieldCreatedAt],
		); err != nil {
			tx.Rollback()
			return xerrors.Wrap(task.CodePersist, err, "写入任务 "+rec.ID()+" 失败")
		}
	}
	if err := tx.Commit(); err != nil {
		return xerrors.Wrap(task.CodePersist, err, "提交事务失败")
	}
	return nil
}

// Close 关闭数据库连接。
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

var _ task.Backend = (*Backend)(nil)
