package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/benbjohnson/clock"
	"github.com/cschleiden/go-dialogflow/backend"
	"github.com/cschleiden/go-dialogflow/backend/test"
	"github.com/cschleiden/go-dialogflow/core"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testUser = "root"
const testPassword = "root"

func newMockBackend(t *testing.T) (*mysqlBackend, sqlmock.Sqlmock, *clock.Mock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	c := clock.NewMock()
	c.Set(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

	return NewMysqlBackendWithDB(db, WithBackendOptions(backend.WithClock(c))), mock, c
}

func Test_MysqlBackend_Save(t *testing.T) {
	insert := regexp.QuoteMeta("INSERT IGNORE INTO `conversations` (id, version, dialog_stack, stack_depth, created_at, updated_at) VALUES (?, 1, ?, ?, ?, ?)")
	update := regexp.QuoteMeta("UPDATE `conversations` SET version = version + 1, dialog_stack = ?, stack_depth = ?, updated_at = ? WHERE id = ? AND version = ?")

	t.Run("Inserts new conversation", func(t *testing.T) {
		b, mock, c := newMockBackend(t)

		s := core.NewConversationState("c1", time.Time{})
		s.DialogStack.Push(&core.DialogInstance{ID: "root"})

		mock.ExpectExec(insert).
			WithArgs("c1", []byte(`[{"id":"root"}]`), 1, c.Now(), c.Now()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, b.SaveConversationState(context.Background(), s))
		require.Equal(t, int64(1), s.Version)
		require.Equal(t, c.Now(), s.CreatedAt)
		require.Equal(t, c.Now(), s.UpdatedAt)
	})

	t.Run("Duplicate insert conflicts", func(t *testing.T) {
		b, mock, _ := newMockBackend(t)

		mock.ExpectExec(insert).WillReturnResult(sqlmock.NewResult(0, 0))

		err := b.SaveConversationState(context.Background(), core.NewConversationState("c1", time.Now()))
		require.ErrorIs(t, err, backend.ErrConflict)
	})

	t.Run("Updates with expected version", func(t *testing.T) {
		b, mock, c := newMockBackend(t)

		s := &core.ConversationState{ConversationID: "c1", Version: 3, DialogStack: core.DialogStack{}}

		mock.ExpectExec(update).
			WithArgs([]byte(`[]`), 0, c.Now(), "c1", int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, b.SaveConversationState(context.Background(), s))
		require.Equal(t, int64(4), s.Version)
	})

	t.Run("Stale version conflicts", func(t *testing.T) {
		b, mock, _ := newMockBackend(t)

		s := &core.ConversationState{ConversationID: "c1", Version: 3, DialogStack: core.DialogStack{}}

		mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))

		err := b.SaveConversationState(context.Background(), s)
		require.ErrorIs(t, err, backend.ErrConflict)
		require.Equal(t, int64(3), s.Version)
	})
}

func Test_MysqlBackend_Get(t *testing.T) {
	query := regexp.QuoteMeta("SELECT version, dialog_stack, created_at, updated_at FROM `conversations` WHERE id = ?")

	t.Run("Decodes the dialog stack", func(t *testing.T) {
		b, mock, c := newMockBackend(t)

		mock.ExpectQuery(query).WithArgs("c1").WillReturnRows(
			sqlmock.NewRows([]string{"version", "dialog_stack", "created_at", "updated_at"}).
				AddRow(int64(2), []byte(`[{"id":"root","state":{"turns":2}}]`), c.Now(), c.Now()),
		)

		s, err := b.GetConversationState(context.Background(), "c1")
		require.NoError(t, err)
		require.Equal(t, int64(2), s.Version)
		require.Equal(t, "root", s.DialogStack.Active().ID)
		require.JSONEq(t, `{"turns":2}`, string(s.DialogStack.Active().State))
	})

	t.Run("Not found", func(t *testing.T) {
		b, mock, _ := newMockBackend(t)

		mock.ExpectQuery(query).WithArgs("c1").WillReturnError(sql.ErrNoRows)

		_, err := b.GetConversationState(context.Background(), "c1")
		require.ErrorIs(t, err, backend.ErrConversationNotFound)
	})
}

// Creating and dropping databases is terribly inefficient, but easiest for complete test isolation.

func Test_MysqlBackend(t *testing.T) {
	if testing.Short() || os.Getenv("DIALOGFLOW_MYSQL_TESTS") == "" {
		t.Skip("set DIALOGFLOW_MYSQL_TESTS to run against a local MySQL server")
	}

	setup, teardown := integrationBackend()
	test.BackendTest(t, setup, teardown)
}

func Test_EndToEndMysqlBackend(t *testing.T) {
	if testing.Short() || os.Getenv("DIALOGFLOW_MYSQL_TESTS") == "" {
		t.Skip("set DIALOGFLOW_MYSQL_TESTS to run against a local MySQL server")
	}

	setup, teardown := integrationBackend()
	test.EndToEndBackendTest(t, setup, teardown)
}

func integrationBackend() (func(t *testing.T) backend.Backend, func(t *testing.T, b backend.Backend)) {
	var dbName string

	return func(t *testing.T) backend.Backend {
			db, err := sql.Open("mysql", fmt.Sprintf("%s:%s@/?parseTime=true&interpolateParams=true", testUser, testPassword))
			require.NoError(t, err)

			dbName = "test_" + strings.Replace(uuid.NewString(), "-", "", -1)
			_, err = db.Exec("CREATE DATABASE " + dbName)
			require.NoError(t, err)
			require.NoError(t, db.Close())

			return NewMysqlBackend("localhost", 3306, testUser, testPassword, dbName)
		}, func(t *testing.T, b backend.Backend) {
			require.NoError(t, b.Close())

			db, err := sql.Open("mysql", fmt.Sprintf("%s:%s@/?parseTime=true&interpolateParams=true", testUser, testPassword))
			require.NoError(t, err)

			_, err = db.Exec("DROP DATABASE IF EXISTS " + dbName)
			require.NoError(t, err)
			require.NoError(t, db.Close())
		}
}
