package tasks_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/edgard/boteco/internal/bot/tasks"
	"github.com/edgard/boteco/internal/database"
)

type stubStore struct {
	database.Store

	maintenanceErr   error
	maintenanceCalls int
}

func (s *stubStore) RunSQLMaintenance(context.Context) error {
	s.maintenanceCalls++
	return s.maintenanceErr
}

func testDeps(store database.Store) tasks.TaskDeps {
	return tasks.TaskDeps{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:  store,
	}
}

func TestRegisterAllTasksWithStore(t *testing.T) {
	t.Parallel()

	registered := tasks.RegisterAllTasks(testDeps(&stubStore{}))

	if _, ok := registered["sql_maintenance"]; !ok {
		t.Error("sql_maintenance task not registered with a store present")
	}
}

func TestRegisterAllTasksWithoutStore(t *testing.T) {
	t.Parallel()

	registered := tasks.RegisterAllTasks(testDeps(nil))

	if len(registered) != 0 {
		t.Errorf("registered %d tasks without a store, want 0", len(registered))
	}
}

func TestSQLMaintenanceTask(t *testing.T) {
	t.Parallel()

	store := &stubStore{}
	task := tasks.RegisterAllTasks(testDeps(store))["sql_maintenance"]

	if err := task(context.Background()); err != nil {
		t.Errorf("task error = %v", err)
	}
	if store.maintenanceCalls != 1 {
		t.Errorf("RunSQLMaintenance called %d times, want 1", store.maintenanceCalls)
	}
}

func TestSQLMaintenanceTaskPropagatesFailure(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("database locked")
	store := &stubStore{maintenanceErr: wantErr}
	task := tasks.RegisterAllTasks(testDeps(store))["sql_maintenance"]

	if err := task(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("task error = %v, want %v", err, wantErr)
	}
}
