package shell

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	xerrors "taskpad/internal/errors"
	"taskpad/internal/task"
)

func newService(t *testing.T) (*task.Service, *task.MemoryBackend) {
	t.Helper()
	backend := task.NewMemoryBackend()
	store, err := task.NewStore(context.Background(), backend)
	require.NoError(t, err)
	return task.NewService(store, nil), backend
}

func runShell(t *testing.T, svc TaskService, input string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, New(svc, strings.NewReader(input), &out).Run(context.Background()))
	return out.String()
}

func TestShellEmptyListAndInvalidChoice(t *testing.T) {
	svc, _ := newService(t)
	out := runShell(t, svc, "1\n9\n5\n")
	require.Contains(t, out, "No tasks available.")
	require.Contains(t, out, "Invalid choice! Try again.")
	require.Contains(t, out, "1. List Tasks")
}

func TestShellAddListUpdateDelete(t *testing.T) {
	svc, backend := newService(t)
	ctx := context.Background()

	out := runShell(t, svc, "2\nBuy milk\n2%\nHIGH\n1\n")
	require.Contains(t, out, "Task added successfully!")
	require.Contains(t, out, "Due Date")
	require.Contains(t, out, "Buy milk")

	records, err := svc.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "high", records[0][task.FieldPriority])
	id := records[0].ID()

	out = runShell(t, svc, "3\n"+id+"\nstatus\ncompleted\n5\n")
	require.Contains(t, out, "Task updated successfully!")
	records, _ = svc.ListTasks(ctx)
	require.Equal(t, "completed", records[0][task.FieldStatus])

	out = runShell(t, svc, "4\n"+id+"\n4\n"+id+"\n5\n")
	require.Contains(t, out, "Task "+id+" deleted successfully!")
	require.Contains(t, out, "Task not found!")
	require.Equal(t, 3, backend.Saves())
}

func TestShellReportsValidationErrors(t *testing.T) {
	svc, _ := newService(t)
	out := runShell(t, svc, "2\nt\nd\nurgent\n3\nmissing\ntitle\nx\n")
	require.Contains(t, out, "INVALID_ENUM_VALUE")
	require.Contains(t, out, "Task not found!")
}

func TestShellStopsOnEOFMidPrompt(t *testing.T) {
	svc, backend := newService(t)
	out := runShell(t, svc, "2\nonly a title")
	require.Contains(t, out, "Description: ")
	require.Zero(t, backend.Saves())
}

type failingService struct{ TaskService }

func (failingService) ListTasks(context.Context) ([]task.Record, error) {
	return nil, task.ErrPersist
}

func TestShellReportsPersistErrors(t *testing.T) {
	out := runShell(t, failingService{}, "1\n5\n")
	require.Contains(t, out, "could not save tasks")
}

func TestRenderTableAlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	RenderTable(&buf, []task.Record{
		{task.FieldTaskID: "a", task.FieldTitle: "short", task.FieldStatus: "pending", task.FieldPriority: "high", task.FieldDueDate: "2024-03-11"},
		{task.FieldTaskID: "bbbb", task.FieldTitle: "a longer title", task.FieldStatus: "completed", task.FieldPriority: "low", task.FieldDueDate: "2024-04-01"},
	})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	pos := strings.Index(lines[0], "| Title")
	require.Positive(t, pos)
	for _, line := range lines[1:] {
		require.Equal(t, "| ", line[pos:pos+2], "line %q", line)
	}
}

func TestShellListShowsStatsSummary(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AddTask(ctx, "a", "", "high")
	require.NoError(t, err)
	_, err = svc.CreateTask(ctx, "b", "", task.WithStatus(task.StatusCompleted))
	require.NoError(t, err)

	out := runShell(t, svc, "1\n5\n")
	require.Contains(t, out, "2 tasks: 1 pending, 1 completed | high 1, medium 1, low 0 | 0 overdue")
}

func TestShellUpdateShowsUpdatedRow(t *testing.T) {
	svc, _ := newService(t)
	created, err := svc.AddTask(context.Background(), "before", "", "")
	require.NoError(t, err)

	out := runShell(t, svc, "3\n"+created.ID+"\ntitle\nafter\n5\n")
	idx := strings.Index(out, "Task updated successfully!")
	require.GreaterOrEqual(t, idx, 0)
	tail := out[idx:]
	require.Contains(t, tail, "Due Date")
	require.Contains(t, tail, created.ID)
	require.Contains(t, tail, "after")
}

func TestShellFieldNamesAreExact(t *testing.T) {
	svc, _ := newService(t)
	created, err := svc.AddTask(context.Background(), "keep", "", "")
	require.NoError(t, err)

	runShell(t, svc, "3\n"+created.ID+"\nTitle\nchanged\n5\n")
	got, err := svc.GetTask(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, "keep", got.Title)
}

func TestReportErrorLogsBySeverity(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		level  string
		output string
		noLog  bool
	}{
		{name: "critical", err: task.ErrPersist, level: "ERROR", output: "could not save tasks"},
		{name: "warning", err: xerrors.New(xerrors.CodeNotifyFailure, "broker down"), level: "WARN", output: "Error [NOTIFY_FAILURE]: broker down"},
		{name: "info", err: xerrors.New(task.CodeUnknownField, "未知字段 color", xerrors.WithMetadata("field", "color")), output: "(field: color)", noLog: true},
		{name: "not found", err: task.ErrTaskNotFound, output: "Task not found!", noLog: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out, logs bytes.Buffer
			sh := New(nil, strings.NewReader(""), &out)
			sh.log = slog.New(slog.NewJSONHandler(&logs, nil))

			sh.reportError(tc.err)
			require.Contains(t, out.String(), tc.output)
			if tc.noLog {
				require.Empty(t, logs.String())
				return
			}
			var entry map[string]any
			require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
			require.Equal(t, tc.level, entry["level"])
			require.Equal(t, string(xerrors.CodeOf(tc.err)), entry["code"])
		})
	}
}
