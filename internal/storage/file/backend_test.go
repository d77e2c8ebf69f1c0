package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"taskpad/internal/task"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
}

func newFileStore(t *testing.T, path string, opts ...Option) (*task.Store, *Backend) {
	t.Helper()
	backend, err := New(path, opts...)
	require.NoError(t, err)
	store, err := task.NewStore(context.Background(), backend)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, backend
}

func TestMissingFileYieldsEmptyStoreAndAddCreatesFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.json")
	store, _ := newFileStore(t, path)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	tk, err := task.New("Buy milk", "2%", task.WithPriority(task.PriorityHigh), task.WithClock(fixedClock))
	require.NoError(t, err)
	require.NoError(t, store.Add(ctx, tk))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	require.Len(t, onDisk, 1)
	require.Equal(t, map[string]string(tk.Record()), onDisk[tk.ID])
	require.Equal(t, "pending", onDisk[tk.ID]["status"])
	require.Equal(t, "2024-03-11", onDisk[tk.ID]["due_date"])

	require.NoError(t, store.Delete(ctx, tk.ID))
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(raw))
}

func TestReloadPreservesInsertionOrder(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "tasks.json")
	store, _ := newFileStore(t, path)

	titles := []string{"zeta", "alpha", "mike", "bravo"}
	var ids []string
	for _, title := range titles {
		tk, err := task.New(title, "")
		require.NoError(t, err)
		require.NoError(t, store.Add(ctx, tk))
		ids = append(ids, tk.ID)
	}
	require.NoError(t, store.Close())

	reopened, _ := newFileStore(t, path)
	list, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, len(titles))
	for i, rec := range list {
		require.Equal(t, ids[i], rec.ID())
		require.Equal(t, titles[i], rec[task.FieldTitle])
	}
}

func TestYAMLFormatRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.yaml")
	store, _ := newFileStore(t, path, WithFormat(FormatYAML))

	first, err := task.New("first: colon", "line\nbreak", task.WithDueDate("2030-01-02"))
	require.NoError(t, err)
	second, err := task.New("123", "true", task.WithStatus(task.StatusCompleted))
	require.NoError(t, err)
	require.NoError(t, store.Add(ctx, first))
	require.NoError(t, store.Add(ctx, second))
	require.NoError(t, store.Close())

	reopened, _ := newFileStore(t, path, WithFormat(FormatYAML))
	list, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.True(t, list[0].Equal(first.Record()), "got %v", list[0])
	require.True(t, list[1].Equal(second.Record()), "got %v", list[1])
}

func TestCorruptFileIsPersistError(t *testing.T) {
	cases := map[string]string{
		"not json":       "{not json",
		"trailing":       `{} {}`,
		"array":          `[]`,
		"number value":   `{"a": {"task_id": "a", "title": 1}}`,
		"nested":         `{"a": {"task_id": "a", "title": {"x": "y"}}}`,
		"null record":    `{"a": null}`,
		"null title":     `{"a": {"task_id": "a", "title": null, "description": "", "status": "pending", "priority": "low"}}`,
		"key mismatch":   `{"a": {"task_id": "b", "title": "t", "description": "", "status": "pending", "priority": "low"}}`,
		"bad enum":       `{"a": {"task_id": "a", "title": "t", "description": "", "status": "done", "priority": "low"}}`,
		"missing fields": `{"a": {"task_id": "a"}}`,
		"empty file":     ``,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tasks.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			backend, err := New(path)
			require.NoError(t, err)
			defer backend.Close()

			_, err = task.NewStore(context.Background(), backend)
			require.Error(t, err)
			require.True(t, task.IsTaskError(err, task.CodePersist), "got %v", err)
		})
	}
}

func TestYAMLNullValueIsPersistError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.yaml")
	content := "a:\n    task_id: a\n    title: ~\n    description: \"\"\n    status: pending\n    priority: low\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	backend, err := New(path, WithFormat(FormatYAML))
	require.NoError(t, err)
	defer backend.Close()

	_, err = task.NewStore(context.Background(), backend)
	require.True(t, task.IsTaskError(err, task.CodePersist), "got %v", err)
}

func TestLoadFillsMissingDueDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	content := `{
    "legacy": {
        "task_id": "legacy",
        "title": "old",
        "description": "from an earlier version",
        "status": "completed",
        "priority": "low",
        "created_at": "2023-05-01"
    }
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	backend, err := New(path)
	require.NoError(t, err)
	store, err := task.NewStore(context.Background(), backend, task.WithStoreClock(fixedClock))
	require.NoError(t, err)
	defer store.Close()

	rec, err := store.Get(context.Background(), "legacy")
	require.NoError(t, err)
	require.Equal(t, "2024-03-11", rec[task.FieldDueDate])
	require.Equal(t, "2023-05-01", rec[task.FieldCreatedAt])
}

func TestJSONLayoutIsIndentedAndOrdered(t *testing.T) {
	rec := task.Record{
		task.FieldCreatedAt:   "2024-03-10",
		task.FieldDueDate:     "2024-03-11",
		task.FieldPriority:    "high",
		task.FieldStatus:      "pending",
		task.FieldDescription: "2%",
		task.FieldTitle:       "Buy milk",
		task.FieldTaskID:      "id-1",
	}
	data, err := encodeJSON([]task.Record{rec})
	require.NoError(t, err)
	want := `{
    "id-1": {
        "task_id": "id-1",
        "title": "Buy milk",
        "description": "2%",
        "status": "pending",
        "priority": "high",
        "due_date": "2024-03-11",
        "created_at": "2024-03-10"
    }
}
`
	require.Equal(t, want, string(data))

	empty, err := encodeJSON(nil)
	require.NoError(t, err)
	require.Equal(t, "{}\n", string(empty))
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")
	store, _ := newFileStore(t, path)

	for i := 0; i < 3; i++ {
		tk, err := task.New("t", "")
		require.NoError(t, err)
		require.NoError(t, store.Add(context.Background(), tk))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.ElementsMatch(t, []string{"tasks.json", "tasks.json.lock"}, names)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("yml")
	require.NoError(t, err)
	require.Equal(t, FormatYAML, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, f)

	_, err = ParseFormat("toml")
	require.Error(t, err)
}
