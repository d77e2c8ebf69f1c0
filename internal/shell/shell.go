// Package shell 提供基于文本菜单的交互界面，只负责解析输入与展示结果。
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	xerrors "taskpad/internal/errors"
	"taskpad/internal/task"
	"taskpad/pkg/logger"
)

const menu = `
1. List Tasks
2. Add Task
3. Update Task
4. Delete Task
5. Exit
`

// TaskService 是 shell 依赖的任务操作集合，由 task.Service 实现。
type TaskService interface {
	AddTask(ctx context.Context, title, description, priority string) (*task.Task, error)
	UpdateTask(ctx context.Context, id, field, value string) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context) ([]task.Record, error)
	GetTask(ctx context.Context, id string) (*task.Task, error)
	Stats(ctx context.Context) (task.Stats, error)
}

// Shell 从 in 读取命令并向 out 输出结果。
type Shell struct {
	svc TaskService
	in  *bufio.Scanner
	out io.Writer
	log *slog.Logger
}

// New 创建 Shell。
func New(svc TaskService, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		svc: svc,
		in:  bufio.NewScanner(in),
		out: out,
		log: logger.Named("shell"),
	}
}

// Run 循环处理菜单选择，直到用户选择退出、输入结束或 ctx 被取消。
func (s *Shell) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(s.out, menu)
		fmt.Fprintln(s.out)
		choice, ok := s.prompt("Enter choice: ")
		if !ok {
			return s.in.Err()
		}
		switch strings.TrimSpace(choice) {
		case "1":
			s.listTasks(ctx)
		case "2":
			if !s.addTask(ctx) {
				return s.in.Err()
			}
		case "3":
			if !s.updateTask(ctx) {
				return s.in.Err()
			}
		case "4":
			if !s.deleteTask(ctx) {
				return s.in.Err()
			}
		case "5":
			return nil
		default:
			fmt.Fprintln(s.out, "Invalid choice! Try again.")
		}
	}
}

func (s *Shell) prompt(label string) (string, bool) {
	fmt.Fprint(s.out, label)
	if !s.in.Scan() {
		fmt.Fprintln(s.out)
		return "", false
	}
	return s.in.Text(), true
}

func (s *Shell) prompts(labels ...string) ([]string, bool) {
	values := make([]string, 0, len(labels))
	for _, label := range labels {
		value, ok := s.prompt(label)
		if !ok {
			return nil, false
		}
		values = append(values, value)
	}
	return values, true
}

func (s *Shell) listTasks(ctx context.Context) {
	records, err := s.svc.ListTasks(ctx)
	if err != nil {
		s.reportError(err)
		return
	}
	if len(records) == 0 {
		fmt.Fprintln(s.out, "No tasks available.")
		return
	}
	RenderTable(s.out, records)

	stats, err := s.svc.Stats(ctx)
	if err != nil {
		s.reportError(err)
		return
	}
	fmt.Fprintln(s.out, FormatStats(stats))
}

func (s *Shell) addTask(ctx context.Context) bool {
	values, ok := s.prompts("Title: ", "Description: ", "Priority (high/medium/low): ")
	if !ok {
		return false
	}
	created, err := s.svc.AddTask(ctx, values[0], values[1], strings.ToLower(values[2]))
	if err != nil {
		s.reportError(err)
		return true
	}
	fmt.Fprintf(s.out, "Task added successfully! (%s)\n", created.ID)
	return true
}

func (s *Shell) updateTask(ctx context.Context) bool {
	id, ok := s.prompt("Task ID: ")
	if !ok {
		return false
	}
	field, ok := s.prompt("Field to update (title/description/status/priority/due_date): ")
	if !ok {
		return false
	}
	value, ok := s.prompt(fmt.Sprintf("New value for %s: ", field))
	if !ok {
		return false
	}
	if err := s.svc.UpdateTask(ctx, id, field, value); err != nil {
		s.reportError(err)
		return true
	}
	fmt.Fprintln(s.out, "Task updated successfully!")
	if updated, err := s.svc.GetTask(ctx, id); err == nil {
		RenderTable(s.out, []task.Record{updated.Record()})
	}
	return true
}

func (s *Shell) deleteTask(ctx context.Context) bool {
	id, ok := s.prompt("Task ID to delete: ")
	if !ok {
		return false
	}
	if err := s.svc.DeleteTask(ctx, id); err != nil {
		s.reportError(err)
		return true
	}
	fmt.Fprintf(s.out, "Task %s deleted successfully!\n", strings.TrimSpace(id))
	return true
}

// reportError 按错误码的严重程度选择日志级别，并向用户输出简短提示。
func (s *Shell) reportError(err error) {
	switch xerrors.SeverityOf(err) {
	case xerrors.SeverityCritical:
		s.log.Error("操作失败", slog.String("code", string(xerrors.CodeOf(err))), slog.Any("error", err))
	case xerrors.SeverityWarning:
		s.log.Warn("操作失败", slog.String("code", string(xerrors.CodeOf(err))), slog.Any("error", err))
	}

	switch {
	case task.IsTaskError(err, task.CodeTaskNotFound):
		fmt.Fprintln(s.out, "Task not found!")
	case task.IsTaskError(err, task.CodePersist):
		fmt.Fprintf(s.out, "Error: could not save tasks: %v\n", err)
	default:
		coded, ok := xerrors.From(err)
		if !ok {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return
		}
		msg := fmt.Sprintf("Error [%s]: %s", coded.Code(), coded.Message())
		if field := coded.Metadata()["field"]; field != "" {
			msg += fmt.Sprintf(" (field: %s)", field)
		}
		fmt.Fprintln(s.out, msg)
	}
}

// FormatStats 返回任务统计的单行摘要。
func FormatStats(stats task.Stats) string {
	return fmt.Sprintf("%d tasks: %d pending, %d completed | high %d, medium %d, low %d | %d overdue",
		stats.Total, stats.Pending, stats.Completed, stats.High, stats.Medium, stats.Low, stats.Overdue)
}

// RenderTable 以对齐的表格输出任务记录。
func RenderTable(out io.Writer, records []task.Record) {
	w := tabwriter.NewWriter(out, 0, 0, 1, ' ', 0)
	fmt.Fprintln(w, "ID\t| Title\t| Status\t| Priority\t| Due Date")
	fmt.Fprintln(w, "--\t| -----\t| ------\t| --------\t| --------")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t| %s\t| %s\t| %s\t| %s\n",
			rec[task.FieldTaskID],
			rec[task.FieldTitle],
			rec[task.FieldStatus],
			rec[task.FieldPriority],
			rec[task.FieldDueDate],
		)
	}
	_ = w.Flush()
}
