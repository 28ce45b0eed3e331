package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/simple-todos/internal/domain"
	"github.com/phrazzld/simple-todos/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taskRowColumns = []string{"id", "text", "created_at", "owner", "username", "checked", "private", "version"}

func newMockTaskStore(t *testing.T) (*PostgresTaskStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresTaskStore(db, nil), mock
}

func TestPostgresTaskStore_Create(t *testing.T) {
	owner := domain.NewCaller(uuid.New(), "alice")

	t.Run("success", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		task, err := domain.NewTask(owner, "buy milk")
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).
			WithArgs(task.ID, "buy milk", task.CreatedAt, owner.UserID, "alice", false, false, int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Create(context.Background(), task))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid task is rejected before query", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		task := &domain.Task{ID: uuid.New(), Owner: owner.UserID, Text: "   "}

		err := s.Create(context.Background(), task)
		assert.ErrorIs(t, err, domain.ErrEmptyTaskText)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing owner maps to invalid entity", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		task, err := domain.NewTask(owner, "buy milk")
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).
			WillReturnError(&pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "tasks_owner_fkey"})

		err = s.Create(context.Background(), task)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})
}

func TestPostgresTaskStore_GetForUpdate(t *testing.T) {
	id := uuid.New()
	owner := uuid.New()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("locks the row", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		rows := sqlmock.NewRows(taskRowColumns).
			AddRow(id.String(), "walk dog", created, owner.String(), "bob", true, false, 4)
		mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE id = $1 FOR UPDATE")).
			WithArgs(id).
			WillReturnRows(rows)

		task, err := s.GetForUpdate(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id, task.ID)
		assert.Equal(t, owner, task.Owner)
		assert.Equal(t, "bob", task.Username)
		assert.True(t, task.Checked)
		assert.False(t, task.Private)
		assert.Equal(t, int64(4), task.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE id = $1 FOR UPDATE")).
			WithArgs(id).
			WillReturnError(sql.ErrNoRows)

		_, err := s.GetForUpdate(context.Background(), id)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})
}

func TestPostgresTaskStore_Updates(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name    string
		query   string
		call    func(s *PostgresTaskStore) error
		result  sql.Result
		err     error
		wantErr error
	}{
		{
			name:   "set checked",
			query:  "UPDATE tasks SET checked = $1, version = version + 1 WHERE id = $2",
			call:   func(s *PostgresTaskStore) error { return s.SetChecked(context.Background(), id, true) },
			result: sqlmock.NewResult(0, 1),
		},
		{
			name:   "set private",
			query:  "UPDATE tasks SET private = $1, version = version + 1 WHERE id = $2",
			call:   func(s *PostgresTaskStore) error { return s.SetPrivate(context.Background(), id, true) },
			result: sqlmock.NewResult(0, 1),
		},
		{
			name:    "set private on missing task",
			query:   "UPDATE tasks SET private = $1, version = version + 1 WHERE id = $2",
			call:    func(s *PostgresTaskStore) error { return s.SetPrivate(context.Background(), id, true) },
			result:  sqlmock.NewResult(0, 0),
			wantErr: store.ErrTaskNotFound,
		},
		{
			name:   "delete",
			query:  "DELETE FROM tasks WHERE id = $1",
			call:   func(s *PostgresTaskStore) error { return s.Delete(context.Background(), id) },
			result: sqlmock.NewResult(0, 1),
		},
		{
			name:    "delete missing task",
			query:   "DELETE FROM tasks WHERE id = $1",
			call:    func(s *PostgresTaskStore) error { return s.Delete(context.Background(), id) },
			result:  sqlmock.NewResult(0, 0),
			wantErr: store.ErrTaskNotFound,
		},
		{
			name:    "driver error",
			query:   "UPDATE tasks SET checked = $1, version = version + 1 WHERE id = $2",
			call:    func(s *PostgresTaskStore) error { return s.SetChecked(context.Background(), id, false) },
			err:     errors.New("connection reset"),
			wantErr: &store.StoreError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockTaskStore(t)
			exp := mock.ExpectExec(regexp.QuoteMeta(tt.query))
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnResult(tt.result)
			}

			err := tt.call(s)

			switch want := tt.wantErr.(type) {
			case nil:
				assert.NoError(t, err)
			case *store.StoreError:
				assert.ErrorAs(t, err, &want)
			default:
				assert.ErrorIs(t, err, want)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresTaskStore_FindVisible(t *testing.T) {
	viewer := uuid.New()
	other := uuid.New()
	now := time.Now().UTC()

	s, mock := newMockTaskStore(t)
	rows := sqlmock.NewRows(taskRowColumns).
		AddRow(uuid.NewString(), "mine", now, viewer.String(), "me", false, true, 1).
		AddRow(uuid.NewString(), "theirs", now.Add(-time.Minute), other.String(), "them", false, false, 3)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE (private = FALSE OR owner = $1)")).
		WithArgs(viewer, true).
		WillReturnRows(rows)

	tasks, err := s.FindVisible(context.Background(), viewer, store.TaskFilter{HideCompleted: true})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "mine", tasks[0].Text)
	assert.Equal(t, "theirs", tasks[1].Text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTaskStore_CountIncomplete(t *testing.T) {
	owner := uuid.New()
	s, mock := newMockTaskStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tasks WHERE owner = $1 AND checked = FALSE")).
		WithArgs(owner).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := s.CountIncomplete(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
