package mysql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/cschleiden/go-dialogflow/backend"
	"github.com/cschleiden/go-dialogflow/backend/metrics"
	"github.com/cschleiden/go-dialogflow/core"
	"github.com/cschleiden/go-dialogflow/internal/metrickeys"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.opentelemetry.io/otel/trace"
)

//go:embed db/migrations/*.sql
var migrationsFS embed.FS

func NewMysqlBackend(host string, port int, user, password, database string, opts ...option) *mysqlBackend {
	options := &options{
		Options:         backend.ApplyOptions(),
		ApplyMigrations: true,
	}

	for _, opt := range opts {
		opt(options)
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&interpolateParams=true", user, password, host, port, database)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		panic(err)
	}

	if options.MySQLOptions != nil {
		options.MySQLOptions(db)
	}

	b := &mysqlBackend{
		dsn:            dsn,
		db:             db,
		options:        options,
		ownsConnection: true,
	}

	if options.ApplyMigrations {
		if err := b.Migrate(); err != nil {
			panic(err)
		}
	}

	return b
}

// NewMysqlBackendWithDB creates a new MySQL backend using an existing database connection. The
// backend does not close the connection. Migrations are not applied, since they require a
// connection with multiStatements enabled.
func NewMysqlBackendWithDB(db *sql.DB, opts ...option) *mysqlBackend {
	options := &options{
		Options: backend.ApplyOptions(),
	}

	for _, opt := range opts {
		opt(options)
	}

	return &mysqlBackend{
		db:      db,
		options: options,
	}
}

type mysqlBackend struct {
	dsn            string
	db             *sql.DB
	options        *options
	ownsConnection bool
}

var _ backend.Backend = (*mysqlBackend)(nil)

// Migrate applies any pending database migrations.
func (b *mysqlBackend) Migrate() error {
	if b.dsn == "" {
		return errors.New("migrations require a backend created with NewMysqlBackend")
	}

	schemaDsn := b.dsn + "&multiStatements=true"
	db, err := sql.Open("mysql", schemaDsn)
	if err != nil {
		return fmt.Errorf("opening schema database: %w", err)
	}

	dbi, err := mysql.WithInstance(db, &mysql.Config{})
	if err != nil {
		return fmt.Errorf("creating migration instance: %w", err)
	}

	migrations, err := iofs.New(migrationsFS, "db/migrations")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", migrations, "mysql", dbi)
	if err != nil {
		return fmt.Errorf("creating migration: %w", err)
	}

	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("running migrations: %w", err)
		}
	}

	if err := db.Close(); err != nil {
		return fmt.Errorf("closing schema database: %w", err)
	}

	return nil
}

func (b *mysqlBackend) Close() error {
	if !b.ownsConnection {
		return nil
	}

	return b.db.Close()
}

func (b *mysqlBackend) Tracer() trace.Tracer {
	return b.options.TracerProvider.Tracer(backend.TracerName)
}

func (b *mysqlBackend) Metrics() metrics.Client {
	return b.options.Metrics.WithTags(metrics.Tags{metrickeys.Backend: "mysql"})
}

func (b *mysqlBackend) Options() *backend.Options {
	return &b.options.Options
}

func (b *mysqlBackend) GetConversationState(ctx context.Context, conversationID string) (*core.ConversationState, error) {
	row := b.db.QueryRowContext(
		ctx,
		"SELECT version, dialog_stack, created_at, updated_at FROM `conversations` WHERE id = ?",
		conversationID,
	)

	state := &core.ConversationState{ConversationID: conversationID}
	var stack []byte
	if err := row.Scan(&state.Version, &stack, &state.CreatedAt, &state.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, backend.ErrConversationNotFound
		}

		return nil, fmt.Errorf("getting conversation state: %w", err)
	}

	state.DialogStack = core.DialogStack{}
	if err := b.options.Converter.From(stack, &state.DialogStack); err != nil {
		return nil, fmt.Errorf("decoding dialog stack: %w", err)
	}

	return state, nil
}

func (b *mysqlBackend) SaveConversationState(ctx context.Context, state *core.ConversationState) error {
	stack, err := b.options.Converter.To(state.DialogStack)
	if err != nil {
		return fmt.Errorf("encoding dialog stack: %w", err)
	}

	now := b.options.Clock.Now().UTC()

	createdAt := state.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	var res sql.Result
	if state.Version == 0 {
		res, err = b.db.ExecContext(
			ctx,
			"INSERT IGNORE INTO `conversations` (id, version, dialog_stack, stack_depth, created_at, updated_at) VALUES (?, 1, ?, ?, ?, ?)",
			state.ConversationID,
			[]byte(stack),
			len(state.DialogStack),
			createdAt,
			now,
		)
	} else {
		res, err = b.db.ExecContext(
			ctx,
			"UPDATE `conversations` SET version = version + 1, dialog_stack = ?, stack_depth = ?, updated_at = ? WHERE id = ? AND version = ?",
			[]byte(stack),
			len(state.DialogStack),
			now,
			state.ConversationID,
			state.Version,
		)
	}
	if err != nil {
		return fmt.Errorf("saving conversation state: %w", err)
	}

	if rows, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("saving conversation state: %w", err)
	} else if rows != 1 {
		return backend.ErrConflict
	}

	if state.Version == 0 {
		state.CreatedAt = createdAt
	}

	state.Version++
	state.UpdatedAt = now

	return nil
}

func (b *mysqlBackend) RemoveConversationState(ctx context.Context, conversationID string) error {
	res, err := b.db.ExecContext(ctx, "DELETE FROM `conversations` WHERE id = ?", conversationID)
	if err != nil {
		return fmt.Errorf("removing conversation state: %w", err)
	}

	if rows, err := res.RowsAffected(); err != nil {
		return err
	} else if rows == 0 {
		return backend.ErrConversationNotFound
	}

	return nil
}

func (b *mysqlBackend) RemoveConversationStates(ctx context.Context, options ...backend.RemovalOption) error {
	o := backend.ApplyRemovalOptions(options...)

	var err error
	if o.UpdatedBefore.IsZero() {
		_, err = b.db.ExecContext(ctx, "DELETE FROM `conversations`")
	} else {
		_, err = b.db.ExecContext(ctx, "DELETE FROM `conversations` WHERE updated_at < ?", o.UpdatedBefore.UTC())
	}
	if err != nil {
		return fmt.Errorf("removing conversation states: %w", err)
	}

	return nil
}

func (b *mysqlBackend) GetStats(ctx context.Context) (*backend.Stats, error) {
	s := &backend.Stats{}

	row := b.db.QueryRowContext(
		ctx,
		"SELECT COUNT(*), COALESCE(SUM(CASE WHEN stack_depth > 0 THEN 1 ELSE 0 END), 0) FROM `conversations`",
	)
	if err := row.Scan(&s.Conversations, &s.ActiveConversations); err != nil {
		return nil, fmt.Errorf("getting stats: %w", err)
	}

	return s, nil
}
