package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"studytrack/studytrack/database"
	"studytrack/studytrack/models"
	"studytrack/studytrack/services"
	"studytrack/studytrack/testutils"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	subjects []string
	err      error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.subjects = append(p.subjects, subject)
	return p.err
}

func (p *recordingPublisher) Close() {}

func createUser(t *testing.T, db *database.Database, email string) int64 {
	t.Helper()
	user := models.User{Email: email, PasswordHash: "not-a-real-hash"}
	require.NoError(t, db.DB.Create(&user).Error)
	return user.ID
}

func newTaskService() *services.TaskService {
	return services.NewTaskService(nil, nil)
}

func optional(value string) models.OptionalString {
	return models.OptionalString{Set: true, Value: &value}
}

func TestCreateTask_DefaultsRoundTrip(t *testing.T) {
	db := testutils.SetupTestDB(t)
	ctx := context.Background()
	svc := newTaskService()
	owner := createUser(t, db, "owner@example.com")

	created, err := svc.CreateTask(ctx, db, owner, models.TaskInput{Title: "  Essay  ", Subject: "English", DueDate: "2026-01-10"})
	require.NoError(t, err)

	assert.Positive(t, created.ID)
	assert.Equal(t, owner, created.UserID)
	assert.Equal(t, "Essay", created.Title)
	assert.Equal(t, models.PriorityMedium, created.Priority)
	assert.Equal(t, models.StatusPending, created.Status)
	assert.Nil(t, created.Description)
	require.NotNil(t, created.Subject)
	assert.Equal(t, "English", *created.Subject)
	require.NotNil(t, created.DueDate)
	assert.Equal(t, "2026-01-10", *created.DueDate)
	assert.False(t, created.CreatedAt.IsZero())

	fetched, err := svc.GetTaskById(ctx, db, owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, created.Title, fetched.Title)
	assert.Equal(t, created.Priority, fetched.Priority)
	assert.Equal(t, created.Status, fetched.Status)
	assert.True(t, created.CreatedAt.Equal(fetched.CreatedAt))
}

func TestCreateTask_Validation(t *testing.T) {
	db := testutils.SetupTestDB(t)
	ctx := context.Background()
	svc := newTaskService()
	owner := createUser(t, db, "owner@example.com")

	tests := []struct {
		name    string
		input   models.TaskInput
		message string
	}{
		{"missing title", models.TaskInput{}, "Task title is required"},
		{"blank title", models.TaskInput{Title: "   "}, "Task title is required"},
		{"bad priority", models.TaskInput{Title: "x", Priority: "urgent"}, `Invalid priority "urgent": must be one of low, medium, high`},
		{"bad status", models.TaskInput{Title: "x", Status: "done"}, `Invalid status "done": must be one of pending, in-progress, completed`},
		{"bad due date", models.TaskInput{Title: "x", DueDate: "10/01/2026"}, `Invalid due date "10/01/2026": expected YYYY-MM-DD`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTask(ctx, db, owner, tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, services.ErrValidation))
			assert.Equal(t, tt.message, services.PublicMessage(err))
		})
	}

	var count int64
	require.NoError(t, db.DB.Model(&models.Task{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateTask_UnknownOwner(t *testing.T) {
	db := testutils.SetupTestDB(t)
	svc := newTaskService()

	_, err := svc.CreateTask(context.Background(), db, 4242, models.TaskInput{Title: "Orphan"})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.DB.Model(&models.Task{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestTaskService_OwnershipIsolation(t *testing.T) {
	db := testutils.SetupTestDB(t)
	ctx := context.Background()
	svc := newTaskService()
	userA := createUser(t, db, "a@example.com")
	userB := createUser(t, db, "b@example.com")

	task, err := svc.CreateTask(ctx, db, userA, models.TaskInput{Title: "Mine"})
	require.NoError(t, err)

	_, err = svc.GetTaskById(ctx, db, userB, task.ID)
	assert.ErrorIs(t, err, services.ErrTaskNotFound)

	_, err = svc.UpdateTask(ctx, db, userB, task.ID, models.TaskPatch{Title: optional("Stolen")})
	assert.ErrorIs(t, err, services.ErrTaskNotFound)

	err = svc.DeleteTask(ctx, db, userB, task.ID)
	assert.ErrorIs(t, err, services.ErrTaskNotFound)

	tasks, err := svc.GetTasks(ctx, db, userB, models.TaskFilter{}, models.NewTaskSort("", ""))
	require.NoError(t, err)
	assert.Empty(t, tasks)

	stats, err := svc.GetTaskStats(ctx, db, userB)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStats{}, stats)

	unchanged, err := svc.GetTaskById(ctx, db, userA, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mine", unchanged.Title)
}

func TestCreateTask_ConcurrentCreatesReadBackOwnRow(t *testing.T) {
	db := testutils.SetupTestDB(t)
	ctx := context.Background()
	svc := newTaskService()
	owner := createUser(t, db, "busy@example.com")

	const workers = 40
	created := make([]models.Task, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created[i], errs[i] = svc.CreateTask(ctx, db, owner, models.TaskInput{Title: fmt.Sprintf("Task %02d", i)})
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool, workers)
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, fmt.Sprintf("Task %02d", i), created[i].Title)
		assert.False(t, seen[created[i].ID], "duplicate id %d", created[i].ID)
		seen[created[i].ID] = true
	}

	tasks, err := svc.GetTasks(ctx, db, owner, models.TaskFilter{}, models.NewTaskSort("", ""))
	require.NoError(t, err)
	assert.Len(t, tasks, workers)
}

func TestUpdateDelete_Race(t *testing.T) {
	db := testutils.SetupTestDB(t)
	ctx := context.Background()
	svc := newTaskService()
	owner := createUser(t, db, "racer@example.com")

	for round := 0; round < 10; round++ {
		task, err := svc.CreateTask(ctx, db, owner, models.TaskInput{Title: "Contested"})
		require.NoError(t, err)

		var (
			wg        sync.WaitGroup
			updated   models.Task
			updateErr error
			deleteErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			updated, updateErr = svc.UpdateTask(ctx, db, owner, task.ID, models.TaskPatch{Status: optional("completed")})
		}()
		go func() {
			defer wg.Done()
			deleteErr = svc.DeleteTask(ctx, db, owner, task.ID)
		}()
		wg.Wait()

		require.NoError(t, deleteErr)
		if updateErr != nil {
			assert.ErrorIs(t, updateErr, services.ErrTaskNotFound)
		} else {
			assert.Equal(t, task.ID, updated.ID)
			assert.Equal(t, models.StatusCompleted, updated.Status)
			assert.Equal(t, "Contested", updated.Title)
		}

		_, err = svc.GetTaskById(ctx, db, owner, task.ID)
		assert.ErrorIs(t, err, services.ErrTaskNotFound)
	}
}

func TestUpdateTask_EmptyPatchRejected(t *testing.T) {
	db := testutils.SetupTestDB(t)
	ctx := context.Background()
	svc := newTaskService()
	owner := createUser(t, db, "owner@example.com")

	task, err := svc.CreateTask(ctx, db, owner, models.TaskInput{Title: "Read chapter"})
	require.NoError(t, err)

	_, err = svc.UpdateTask(ctx, db, owner, task.ID, models.TaskPatch{})
	require.ErrorIs(t, err, services.ErrValidation)
	assert.Equal(t, "No fields to update", services.PublicMessage(err))

	// Validation runs before the existence check.
	_, err = svc.UpdateTask(ctx, db, owner, 99999, models.TaskPatch{})
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestUpdateTask_SingleFieldLeavesOthers(t *testing.T) {
	db := testutils.SetupTestDB(t)
	ctx := context.Background()
	svc := newTaskService()
	owner := createUser(t, db, "owner@example.com")

	task, err := svc.CreateTask(ctx, db, owner, models.TaskInput{
		Title:       "Lab report",
		Description: "Titration",
		Subject:     "Chemistry",
		DueDate:     "2026-02-01",
		Priority:    "high",
	})
	require.NoError(t, err)

	updated, err := svc.UpdateTask(ctx, db, owner, task.ID, models.TaskPatch{Status: optional("in-progress")})
	require.NoError(t, err)

	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Equal(t, "Lab report", updated.Title)
	assert.Equal(t, "Titration", *updated.Description)
	assert.Equal(t, "Chemistry", *updated.Subject)
	assert.Equal(t, "2026-02-01", *updated.DueDate)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	assert.True(t, task.CreatedAt.Equal(updated.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(task.UpdatedAt))

	again, err := svc.UpdateTask(ctx, db, owner, task.ID, models.TaskPatch{Status: optional("completed")})
	require.NoError(t, err)
	assert.True(t, again.UpdatedAt.After(updated.UpdatedAt))
}

func TestUpdateTask_ClearsOptionalFields(t *testing.T) {
	db := testutils.SetupTestDB(t)
	ctx := context.Background()
	svc := newTaskService()
	owner := createUser(t, db, "owner@example.com")

	task, err := svc.CreateTask(ctx, db, owner, models.TaskInput{Title: "Flashcards", Description: "Spanish", Subject: "Languages"})
	require.NoError(t, err)

	updated, err := svc.UpdateTask(ctx, db, owner, task.ID, models.TaskPatch{
		Description: models.OptionalString{Set: true},
		Subject:     optional(""),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.Description)
	assert.Nil(t, updated.Subject)
}

func TestUpdateTask_InvalidValuesLeaveRowUntouched(t *testing.T) {
	db := testutils.SetupTestDB(t)
	ctx := context.Background()
	svc := newTaskService()
	owner := createUser(t, db, "owner@example.com")

	task, err := svc.CreateTask(ctx, db, owner, models.TaskInput{Title: "Revise"})
	require.NoError(t, err)

	patches := []models.TaskPatch{
		{Title: optional("")},
		{Title: models.OptionalString{Set: true}},
		{Priority: optional("urgent"), Title: optional("Changed")},
		{Status: optional("archived")},
		{DueDate: optional("tomorrow")},
	}
	for _, patch := range patches {
		_, err := svc.UpdateTask(ctx, db, owner, task.ID, patch)
		assert.ErrorIs(t, err, services.ErrValidation)
	}

	current, err := svc.GetTaskById(ctx, db, owner, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Revise", current.Title)
	assert.True(t, current.UpdatedAt.Equal(task.UpdatedAt))
}

func TestDeleteTask(t *testing.T) {
	db := testutils.SetupTestDB(t)
	ctx := context.Background()
	svc := newTaskService()
	owner := createUser(t, db, "owner@example.com")

	task, err := svc.CreateTask(ctx, db, owner, models.TaskInput{Title: "Temporary"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTask(ctx, db, owner, task.ID))

	_, err = svc.GetTaskById(ctx, db, owner, task.ID)
	assert.ErrorIs(t, err, services.ErrTaskNotFound)
	assert.ErrorIs(t, svc.DeleteTask(ctx, db, owner, task.ID), services.ErrTaskNotFound)
}

func TestGetTasks_Filters(t *testing.T) {
	db := testutils.SetupTestDB(t)
	ctx := context.Background()
	svc := newTaskService()
	owner := createUser(t, db, "owner@example.com")

	inputs := []models.TaskInput{
		{Title: "Algebra", Subject: "Math", Status: "pending", Priority: "high"},
		{Title: "Proofs", Subject: "Applied Math", Status: "completed", Priority: "low"},
		{Title: "Calculus", Subject: "mathematics", Status: "pending", Priority: "low"},
		{Title: "Essay", Subject: "English", Status: "in-progress"},
		{Title: "No subject"},
	}
	for _, input := range inputs {
		_, err := svc.CreateTask(ctx, db, owner, input)
		require.NoError(t, err)
	}

	titles := func(filter models.TaskFilter) []string {
		tasks, err := svc.GetTasks(ctx, db, owner, filter, models.NewTaskSort("title", "asc"))
		require.NoError(t, err)
		out := make([]string, 0, len(tasks))
		for _, task := range tasks {
			out = append(out, task.Title)
		}
		return out
	}

	assert.Equal(t, []string{"Algebra", "Proofs"}, titles(models.TaskFilter{Subject: "Math"}))
	assert.Equal(t, []string{"Algebra", "Calculus", "No subject"}, titles(models.TaskFilter{Status: "pending"}))
	assert.Equal(t, []string{"Calculus"}, titles(models.TaskFilter{Status: "pending", Priority: "low"}))
	assert.Equal(t, []string{"Calculus", "Proofs"}, titles(models.TaskFilter{Priority: "low"}))
	assert.Empty(t, titles(models.TaskFilter{Status: "archived"}))
	assert.Empty(t, titles(models.TaskFilter{Subject: "%"}))
}

func TestGetTasks_Sorting(t *testing.T) {
	db := testutils.SetupTestDB(t)
	ctx := context.Background()
	svc := newTaskService()
	owner := createUser(t, db, "owner@example.com")

	for _, input := range []models.TaskInput{
		{Title: "B", Priority: "high", DueDate: "2026-03-01"},
		{Title: "C", Priority: "low"},
		{Title: "A", Priority: "medium", DueDate: "2026-01-15"},
	} {
		_, err := svc.CreateTask(ctx, db, owner, input)
		require.NoError(t, err)
	}

	order := func(field, direction string) []string {
		tasks, err := svc.GetTasks(ctx, db, owner, models.TaskFilter{}, models.NewTaskSort(field, direction))
		require.NoError(t, err)
		out := make([]string, 0, len(tasks))
		for _, task := range tasks {
			out = append(out, task.Title)
		}
		return out
	}

	assert.Equal(t, []string{"C", "A", "B"}, order("priority", "asc"))
	assert.Equal(t, []string{"B", "A", "C"}, order("priority", "desc"))
	assert.Equal(t, []string{"A", "B", "C"}, order("dueDate", "asc"))
	assert.Equal(t, []string{"A", "B", "C"}, order("title", "ASC"))
	assert.Equal(t, []string{"C", "B", "A"}, order("title", "desc"))
	// Default is newest first; ties on created_at fall back to id.
	assert.Equal(t, []string{"A", "C", "B"}, order("", ""))
}

func TestGetTaskStats_SumsToTotal(t *testing.T) {
	db := testutils.SetupTestDB(t)
	ctx := context.Background()
	svc := newTaskService()
	owner := createUser(t, db, "owner@example.com")

	for _, status := range []string{"pending", "pending", "in-progress", "completed", "completed", "completed"} {
		_, err := svc.CreateTask(ctx, db, owner, models.TaskInput{Title: "t", Status: status})
		require.NoError(t, err)
	}

	stats, err := svc.GetTaskStats(ctx, db, owner)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStats{Total: 6, Pending: 2, InProgress: 1, Completed: 3}, stats)
	assert.Equal(t, stats.Total, stats.Pending+stats.InProgress+stats.Completed)
}

func TestTaskService_PublishesEvents(t *testing.T) {
	db := testutils.SetupTestDB(t)
	ctx := context.Background()
	publisher := &recordingPublisher{}
	svc := services.NewTaskService(publisher, nil)
	owner := createUser(t, db, "owner@example.com")

	task, err := svc.CreateTask(ctx, db, owner, models.TaskInput{Title: "Evented"})
	require.NoError(t, err)
	_, err = svc.UpdateTask(ctx, db, owner, task.ID, models.TaskPatch{Status: optional("completed")})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteTask(ctx, db, owner, task.ID))

	// Rejected writes publish nothing.
	_, _ = svc.UpdateTask(ctx, db, owner, task.ID, models.TaskPatch{Status: optional("pending")})

	assert.Equal(t, []string{
		"studytrack.task.created",
		"studytrack.task.updated",
		"studytrack.task.deleted",
	}, publisher.subjects)
}

func TestTaskService_PublishFailureDoesNotFailWrite(t *testing.T) {
	db := testutils.SetupTestDB(t)
	publisher := &recordingPublisher{err: errors.New("nats: connection closed")}
	svc := services.NewTaskService(publisher, nil)
	owner := createUser(t, db, "owner@example.com")

	task, err := svc.CreateTask(context.Background(), db, owner, models.TaskInput{Title: "Still saved"})
	require.NoError(t, err)
	assert.Positive(t, task.ID)
}

func TestGetTaskById_NotFound_Postgres(t *testing.T) {
	db, mock, close := testutils.SetupMockDB()
	defer close()

	mock.ExpectQuery(`SELECT \* FROM "tasks" WHERE id = \$1 AND user_id = \$2 ORDER BY "tasks"."id" LIMIT \$3`).
		WithArgs(int64(5), int64(1), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := newTaskService().GetTaskById(context.Background(), db, 1, 5)
	assert.ErrorIs(t, err, services.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTasks_Postgres(t *testing.T) {
	db, mock, close := testutils.SetupMockDB()
	defer close()

	rows := testutils.MockTaskRows([]models.Task{
		{ID: 2, UserID: 1, Title: "Statistics", Priority: models.PriorityHigh, Status: models.StatusPending},
	})
	mock.ExpectQuery(`SELECT \* FROM "tasks" WHERE user_id = \$1 AND status = \$2 AND strpos\(subject, \$3\) > 0 ORDER BY CASE priority .+ END DESC, id DESC`).
		WithArgs(int64(1), "pending", "Stat").
		WillReturnRows(rows)

	tasks, err := newTaskService().GetTasks(context.Background(), db, 1,
		models.TaskFilter{Status: "pending", Subject: "Stat"},
		models.NewTaskSort("priority", "desc"))
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Statistics", tasks[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTaskStats_Postgres(t *testing.T) {
	db, mock, close := testutils.SetupMockDB()
	defer close()

	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\) AS total,.+FROM "tasks" WHERE user_id = \$4`).
		WithArgs("pending", "in-progress", "completed", int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"total", "pending", "in_progress", "completed"}).AddRow(4, 1, 1, 2))

	stats, err := newTaskService().GetTaskStats(context.Background(), db, 3)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStats{Total: 4, Pending: 1, InProgress: 1, Completed: 2}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}
