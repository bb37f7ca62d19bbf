package postgres

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
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.opentelemetry.io/otel/trace"
)

//go:embed db/migrations/*.sql
var migrationsFS embed.FS

func NewPostgresBackend(host string, port int, user, password, database string, opts ...option) *postgresBackend {
	options := &options{
		Options:         backend.ApplyOptions(),
		ApplyMigrations: true,
		SSLMode:         "disable",
	}

	for _, opt := range opts {
		opt(options)
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", host, port, user, password, database, options.SSLMode)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		panic(err)
	}

	if options.PostgresOptions != nil {
		options.PostgresOptions(db)
	}

	b := &postgresBackend{
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

// NewPostgresBackendWithDB creates a new Postgres backend using an existing database connection.
// When using this constructor, the backend will not close the database connection when Close() is called.
func NewPostgresBackendWithDB(db *sql.DB, opts ...option) *postgresBackend {
	options := &options{
		Options:         backend.ApplyOptions(),
		ApplyMigrations: false,
	}

	for _, opt := range opts {
		opt(options)
	}

	b := &postgresBackend{
		db:             db,
		options:        options,
		ownsConnection: false,
	}

	if options.ApplyMigrations {
		if err := b.Migrate(); err != nil {
			panic(err)
		}
	}

	return b
}

type postgresBackend struct {
	db             *sql.DB
	options        *options
	ownsConnection bool
}

var _ backend.Backend = (*postgresBackend)(nil)

// Migrate applies any pending database migrations.
func (pb *postgresBackend) Migrate() error {
	dbi, err := postgres.WithInstance(pb.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("creating migration instance: %w", err)
	}

	migrations, err := iofs.New(migrationsFS, "db/migrations")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", migrations, "postgres", dbi)
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

func (pb *postgresBackend) Close() error {
	if !pb.ownsConnection {
		return nil
	}

	return pb.db.Close()
}

func (pb *postgresBackend) Tracer() trace.Tracer {
	return pb.options.TracerProvider.Tracer(backend.TracerName)
}

func (pb *postgresBackend) Metrics() metrics.Client {
	return pb.options.Metrics.WithTags(metrics.Tags{metrickeys.Backend: "postgres"})
}

func (pb *postgresBackend) Options() *backend.Options {
	return &pb.options.Options
}

func (pb *postgresBackend) GetConversationState(ctx context.Context, conversationID string) (*core.ConversationState, error) {
	row := pb.db.QueryRowContext(
		ctx,
		"SELECT version, dialog_stack, created_at, updated_at FROM conversations WHERE id = $1",
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
	if err := pb.options.Converter.From(stack, &state.DialogStack); err != nil {
		return nil, fmt.Errorf("decoding dialog stack: %w", err)
	}

	return state, nil
}

func (pb *postgresBackend) SaveConversationState(ctx context.Context, state *core.ConversationState) error {
	stack, err := pb.options.Converter.To(state.DialogStack)
	if err != nil {
		return fmt.Errorf("encoding dialog stack: %w", err)
	}

	now := pb.options.Clock.Now().UTC()

	createdAt := state.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	var res sql.Result
	if state.Version == 0 {
		res, err = pb.db.ExecContext(
			ctx,
			`INSERT INTO conversations (id, version, dialog_stack, stack_depth, created_at, updated_at)
			VALUES ($1, 1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING`,
			state.ConversationID,
			[]byte(stack),
			len(state.DialogStack),
			createdAt,
			now,
		)
	} else {
		res, err = pb.db.ExecContext(
			ctx,
			"UPDATE conversations SET version = version + 1, dialog_stack = $1, stack_depth = $2, updated_at = $3 WHERE id = $4 AND version = $5",
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

func (pb *postgresBackend) RemoveConversationState(ctx context.Context, conversationID string) error {
	res, err := pb.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = $1", conversationID)
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

func (pb *postgresBackend) RemoveConversationStates(ctx context.Context, options ...backend.RemovalOption) error {
	o := backend.ApplyRemovalOptions(options...)

	var err error
	if o.UpdatedBefore.IsZero() {
		_, err = pb.db.ExecContext(ctx, "DELETE FROM conversations")
	} else {
		_, err = pb.db.ExecContext(ctx, "DELETE FROM conversations WHERE updated_at < $1", o.UpdatedBefore.UTC())
	}
	if err != nil {
		return fmt.Errorf("removing conversation states: %w", err)
	}

	return nil
}

func (pb *postgresBackend) GetStats(ctx context.Context) (*backend.Stats, error) {
	s := &backend.Stats{}

	row := pb.db.QueryRowContext(
		ctx,
		"SELECT COUNT(*), COUNT(*) FILTER (WHERE stack_depth > 0) FROM conversations",
	)
	if err := row.Scan(&s.Conversations, &s.ActiveConversations); err != nil {
		return nil, fmt.Errorf("getting stats: %w", err)
	}

	return s, nil
}
