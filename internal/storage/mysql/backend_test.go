package mysql

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"taskpad/internal/task"
)

func newSQLiteBackend(t *testing.T, path string) *Backend {
	t.Helper()
	backend, err := New(context.Background(), Config{Driver: DriverSQLite, DSN: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return backend
}

func TestSQLiteBackendEmptyThenRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.db")
	backend := newSQLiteBackend(t, path)

	store, err := task.NewStore(ctx, backend)
	require.NoError(t, err)
	require.Zero(t, store.Len())

	var ids []string
	for _, title := range []string{"c", "a", "b"} {
		tk, err := task.New(title, "desc "+title)
		require.NoError(t, err)
		require.NoError(t, store.Add(ctx, tk))
		ids = append(ids, tk.ID)
	}
	require.NoError(t, store.Update(ctx, ids[1], task.SetStatus(task.StatusCompleted)))
	require.NoError(t, store.Delete(ctx, ids[2]))
	require.NoError(t, store.Close())

	reopened, err := task.NewStore(ctx, newSQLiteBackend(t, path))
	require.NoError(t, err)
	list, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, ids[0], list[0].ID())
	require.Equal(t, ids[1], list[1].ID())
	require.Equal(t, "completed", list[1][task.FieldStatus])
	require.Equal(t, "desc a", list[1][task.FieldDescription])
}

func TestSaveRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	backend := newSQLiteBackend(t, filepath.Join(t.TempDir(), "tasks.db"))

	good, err := task.New("kept", "")
	require.NoError(t, err)
	require.NoError(t, backend.Save(ctx, []task.Record{good.Record()}))

	other, err := task.New("dup", "")
	require.NoError(t, err)
	err = backend.Save(ctx, []task.Record{other.Record(), other.Record()})
	require.Error(t, err)
	require.True(t, task.IsTaskError(err, task.CodePersist))

	loaded, err := backend.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.True(t, loaded[0].Equal(good.Record()))
}

func TestSchemaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	backend := newSQLiteBackend(t, filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, ensureSchema(ctx, backend.db))

	again, err := NewWithDB(ctx, backend.db)
	require.NoError(t, err)
	records, err := again.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, records)
}

func TestOpenDatabaseRejectsBadConfig(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, Config{Driver: DriverMySQL, DSN: ""})
	require.Error(t, err)

	_, err = New(ctx, Config{Driver: DriverMySQL, DSN: "not a dsn"})
	require.Error(t, err)

	_, err = New(ctx, Config{Driver: "postgres", DSN: "postgres://localhost"})
	require.Error(t, err)
	require.True(t, task.IsTaskError(err, task.CodePersist))
}

func TestSplitSQLStatements(t *testing.T) {
	statements := splitSQLStatements("CREATE TABLE a (x INT);\n\n  ;CREATE TABLE b (y INT);  ")
	require.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE TABLE b (y INT)"}, statements)

	loaded, err := loadSchemaStatements()
	require.NoError(t, err)
	require.NotEmpty(t, loaded)
	require.Contains(t, loaded[0], "CREATE TABLE IF NOT EXISTS tasks")
}

func TestMySQLBackendIntegration(t *testing.T) {
	dsn := os.Getenv("TASKPAD_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TASKPAD_TEST_MYSQL_DSN not set")
	}
	ctx := context.Background()
	backend, err := New(ctx, Config{Driver: DriverMySQL, DSN: dsn})
	require.NoError(t, err)
	defer backend.Close()

	tk, err := task.New("mysql", "integration")
	require.NoError(t, err)
	require.NoError(t, backend.Save(ctx, []task.Record{tk.Record()}))
	loaded, err := backend.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.True(t, loaded[0].Equal(tk.Record()))
	require.NoError(t, backend.Save(ctx, nil))
}
