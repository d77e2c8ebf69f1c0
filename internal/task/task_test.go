package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	task, err := New("Buy milk", "2%", WithClock(fixedNow))
	require.NoError(t, err)
	require.NotEmpty(t, task.ID)
	require.Equal(t, StatusPending, task.Status)
	require.Equal(t, PriorityMedium, task.Priority)
	require.Equal(t, "2024-03-10", task.CreatedAt)
	require.Equal(t, "2024-03-11", task.DueDate)
}

func TestNewRejectsInvalidInput(t *testing.T) {
	_, err := New("t", "", WithPriority("urgent"))
	require.True(t, IsTaskError(err, CodeInvalidEnumValue))

	_, err = New("t", "", WithStatus("archived"))
	require.True(t, IsTaskError(err, CodeInvalidEnumValue))

	_, err = New("t", "", WithDueDate("03/11/2024"))
	require.True(t, IsTaskError(err, CodeInvalidDate))
}

func TestRecordRoundTripAllEnums(t *testing.T) {
	for _, priority := range []Priority{PriorityHigh, PriorityMedium, PriorityLow} {
		for _, status := range []Status{StatusPending, StatusCompleted} {
			original, err := New("title", "description",
				WithPriority(priority),
				WithStatus(status),
				WithDueDate("2030-06-01"),
			)
			require.NoError(t, err)

			restored, err := FromRecord(original.Record())
			require.NoError(t, err)
			require.Equal(t, original, restored, "%s/%s", priority, status)
		}
	}
}

func TestParseEnums(t *testing.T) {
	p, err := ParsePriority(" HIGH ")
	require.NoError(t, err)
	require.Equal(t, PriorityHigh, p)

	_, err = ParsePriority("urgent")
	require.ErrorIs(t, err, ErrInvalidEnumValue)

	s, err := ParseStatus("Completed")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, s)

	_, err = ParseStatus("")
	require.ErrorIs(t, err, ErrInvalidEnumValue)
}

func TestFromRecordMissingFields(t *testing.T) {
	complete, err := New("t", "d")
	require.NoError(t, err)

	for _, field := range []string{FieldTitle, FieldDescription, FieldTaskID, FieldPriority, FieldStatus} {
		rec := complete.Record()
		delete(rec, field)
		_, err := FromRecord(rec)
		require.ErrorIs(t, err, ErrMissingField, field)
	}

	rec := complete.Record()
	rec[FieldPriority] = "urgent"
	_, err = FromRecord(rec)
	require.ErrorIs(t, err, ErrInvalidEnumValue)

	rec = complete.Record()
	rec[FieldCreatedAt] = "yesterday"
	_, err = FromRecord(rec)
	require.ErrorIs(t, err, ErrInvalidDate)
}

func TestFromRecordFillsOptionalDates(t *testing.T) {
	rec := Record{
		FieldTaskID:      "legacy",
		FieldTitle:       "t",
		FieldDescription: "",
		FieldStatus:      "pending",
		FieldPriority:    "low",
	}
	task, err := fromRecord(rec, fixedNow)
	require.NoError(t, err)
	require.Equal(t, "2024-03-11", task.DueDate)
	require.Equal(t, "2024-03-10", task.CreatedAt)
}

func TestIsOverdue(t *testing.T) {
	now := fixedNow()
	task := &Task{Status: StatusPending, DueDate: "2024-03-09"}
	require.True(t, task.IsOverdue(now))

	task.DueDate = "2024-03-10"
	require.False(t, task.IsOverdue(now))

	task.DueDate = "2024-03-01"
	task.Status = StatusCompleted
	require.False(t, task.IsOverdue(now))
}

func TestParseChange(t *testing.T) {
	change, err := ParseChange("priority", "LOW")
	require.NoError(t, err)
	require.Equal(t, FieldPriority, change.Field())
	require.Equal(t, "low", change.Value())

	_, err = ParseChange("task_id", "x")
	require.ErrorIs(t, err, ErrImmutableField)

	_, err = ParseChange("color", "blue")
	require.ErrorIs(t, err, ErrUnknownField)

	_, err = ParseChange("Priority", "low")
	require.ErrorIs(t, err, ErrUnknownField)

	_, err = SetDueDate("2024-02-30")
	require.ErrorIs(t, err, ErrInvalidDate)
}

func TestComputeStats(t *testing.T) {
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	records := []Record{
		{FieldStatus: "pending", FieldPriority: "high", FieldDueDate: "2024-03-01"},
		{FieldStatus: "completed", FieldPriority: "high", FieldDueDate: "2024-03-01"},
		{FieldStatus: "pending", FieldPriority: "low", FieldDueDate: "2024-04-01"},
		{FieldStatus: "pending", FieldPriority: "medium", FieldDueDate: "2024-03-10"},
	}
	require.Equal(t, Stats{
		Total:     4,
		Pending:   3,
		Completed: 1,
		High:      2,
		Medium:    1,
		Low:       1,
		Overdue:   1,
	}, ComputeStats(records, now))
}
