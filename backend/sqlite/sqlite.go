package sqlite

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
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.opentelemetry.io/otel/trace"

	_ "modernc.org/sqlite"
)

//go:embed db/migrations/*.sql
var migrationsFS embed.FS

func NewInMemoryBackend(opts ...option) *sqliteBackend {
	b := newSqliteBackend("file::memory:", opts...)

	return b
}

func NewSqliteBackend(path string, opts ...option) *sqliteBackend {
	return newSqliteBackend(fmt.Sprintf("file:%v?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path), opts...)
}

func newSqliteBackend(dsn string, opts ...option) *sqliteBackend {
	options := &options{
		Options:         backend.ApplyOptions(),
		ApplyMigrations: true,
	}

	for _, opt := range opts {
		opt(options)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		panic(err)
	}

	// SQLite does not support multiple writers on the database, and every connection to an
	// in-memory database opens a separate database
	db.SetMaxOpenConns(1)

	b := &sqliteBackend{
		db:      db,
		options: options,
	}

	if options.ApplyMigrations {
		if err := b.Migrate(); err != nil {
			panic(err)
		}
	}

	return b
}

type sqliteBackend struct {
	db      *sql.DB
	options *options
}

var _ backend.Backend = (*sqliteBackend)(nil)

// Migrate applies any pending database migrations.
func (sb *sqliteBackend) Migrate() error {
	dbi, err := sqlite.WithInstance(sb.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migration instance: %w", err)
	}

	migrations, err := iofs.New(migrationsFS, "db/migrations")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", migrations, "sqlite", dbi)
	if err != nil {
		return fmt.Errorf("creating migration: %w", err)
	}

	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("running migrations: %w", err)
		}
	}

	return nil
}

func (sb *sqliteBackend) Close() error {
	return sb.db.Close()
}

func (sb *sqliteBackend) Tracer() trace.Tracer {
	return sb.options.TracerProvider.Tracer(backend.TracerName)
}

func (sb *sqliteBackend) Metrics() metrics.Client {
	return sb.options.Metrics.WithTags(metrics.Tags{metrickeys.Backend: "sqlite"})
}

func (sb *sqliteBackend) Options() *backend.Options {
	return &sb.options.Options
}

func (sb *sqliteBackend) GetConversationState(ctx context.Context, conversationID string) (*core.ConversationState, error) {
	row := sb.db.QueryRowContext(
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

	if err := sb.options.Converter.From(stack, &state.DialogStack); err != nil {
		return nil, fmt.Errorf("decoding dialog stack: %w", err)
	}

	if state.DialogStack == nil {
		state.DialogStack = core.DialogStack{}
	}

	return state, nil
}

func (sb *sqliteBackend) SaveConversationState(ctx context.Context, state *core.ConversationState) error {
	stack, err := sb.options.Converter.To(state.DialogStack)
	if err != nil {
		return fmt.Errorf("encoding dialog stack: %w", err)
	}

	now := sb.options.Clock.Now().UTC()

	createdAt := state.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	var res sql.Result
	if state.Version == 0 {
		res, err = sb.db.ExecContext(
			ctx,
			"INSERT OR IGNORE INTO `conversations` (id, version, dialog_stack, stack_depth, created_at, updated_at) VALUES (?, 1, ?, ?, ?, ?)",
			state.ConversationID,
			[]byte(stack),
			len(state.DialogStack),
			createdAt,
			now,
		)
	} else {
		res, err = sb.db.ExecContext(
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

func (sb *sqliteBackend) RemoveConversationState(ctx context.Context, conversationID string) error {
	res, err := sb.db.ExecContext(ctx, "DELETE FROM `conversations` WHERE id = ?", conversationID)
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

func (sb *sqliteBackend) RemoveConversationStates(ctx context.Context, options ...backend.RemovalOption) error {
	o := backend.ApplyRemovalOptions(options...)

	var err error
	if o.UpdatedBefore.IsZero() {
		_, err = sb.db.ExecContext(ctx, "DELETE FROM `conversations`")
	} else {
		_, err = sb.db.ExecContext(ctx, "DELETE FROM `conversations` WHERE updated_at < ?", o.UpdatedBefore.UTC())
	}
	if err != nil {
		return fmt.Errorf("removing conversation states: %w", err)
	}

	return nil
}

func (sb *sqliteBackend) GetStats(ctx context.Context) (*backend.Stats, error) {
	s := &backend.Stats{}

	row := sb.db.QueryRowContext(
		ctx,
		"SELECT COUNT(*), COALESCE(SUM(CASE WHEN stack_depth > 0 THEN 1 ELSE 0 END), 0) FROM `conversations`",
	)
	if err := row.Scan(&s.Conversations, &s.ActiveConversations); err != nil {
		return nil, fmt.Errorf("getting stats: %w", err)
	}

	return s, nil
}
