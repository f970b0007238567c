package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/ports"
)

const (
	trackedItemsTable = "tracked_items"
	trackingRunsTable = "tracking_runs"
	trackingRunRowID  = 1
)

const schema = `
CREATE TABLE IF NOT EXISTS tracked_items (
    category   TEXT        NOT NULL,
    identifier TEXT        NOT NULL,
    tracked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (category, identifier)
);
CREATE TABLE IF NOT EXISTS tracking_runs (
    id       INTEGER     PRIMARY KEY,
    last_run TIMESTAMPTZ NOT NULL
);`

// DB is the subset of pgxpool.Pool used by the store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore keeps tracked identifiers in Postgres. Rows are only ever inserted.
type PostgresStore struct {
	db      DB
	builder sq.StatementBuilderType
	logger  *slog.Logger
}

var _ ports.TrackingStore = (*PostgresStore)(nil)

// NewPostgresStore wires a pgx pool implementation.
func NewPostgresStore(db DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger:  logger,
	}
}

// EnsureSchema creates the tables when they are missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure tracking schema: %w", err)
	}
	return nil
}

// Load reads every tracked identifier. Query failures degrade to an empty state.
func (s *PostgresStore) Load(ctx context.Context) *domain.TrackingState {
	state, err := s.load(ctx)
	if err != nil {
		s.logger.Warn("cannot load tracking state, starting empty", "error", err)
		return domain.NewTrackingState()
	}
	s.logger.Debug("tracking state loaded", "identifiers", state.Len())
	return state
}

func (s *PostgresStore) load(ctx context.Context) (*domain.TrackingState, error) {
	query, args, err := s.builder.
		Select("category", "identifier").
		From(trackedItemsTable).
		OrderBy("tracked_at", "identifier").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tracked items: %w", err)
	}
	defer rows.Close()

	state := domain.NewTrackingState()
	for rows.Next() {
		var category, id string
		if err := rows.Scan(&category, &id); err != nil {
			return nil, fmt.Errorf("scan tracked item: %w", err)
		}
		state.Restore(domain.Category(category), id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	query, args, err = s.builder.
		Select("last_run").
		From(trackingRunsTable).
		Where(sq.Eq{"id": trackingRunRowID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build last run select: %w", err)
	}

	var lastRun time.Time
	err = s.db.QueryRow(ctx, query, args...).Scan(&lastRun)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("query last run: %w", err)
	default:
		state.LastRun = &lastRun
	}

	return state, nil
}

// Persist inserts the identifiers added during this run and records the last run.
func (s *PostgresStore) Persist(ctx context.Context, state *domain.TrackingState) (err error) {
	if state == nil {
		return fmt.Errorf("persist tracking state: nil state")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	added := state.Added()
	categories := make([]domain.Category, 0, len(added))
	for c := range added {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	insert := s.builder.Insert(trackedItemsTable).Columns("category", "identifier")
	rowsAdded := 0
	for _, c := range categories {
		for _, id := range added[c] {
			insert = insert.Values(string(c), id)
			rowsAdded++
		}
	}

	if rowsAdded > 0 {
		query, args, buildErr := insert.Suffix("ON CONFLICT (category, identifier) DO NOTHING").ToSql()
		if buildErr != nil {
			return fmt.Errorf("build insert: %w", buildErr)
		}
		if _, err = tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert tracked items: %w", err)
		}
	}

	if state.LastRun != nil {
		query, args, buildErr := s.builder.
			Insert(trackingRunsTable).
			Columns("id", "last_run").
			Values(trackingRunRowID, state.LastRun.UTC()).
			Suffix("ON CONFLICT (id) DO UPDATE SET last_run = EXCLUDED.last_run").
			ToSql()
		if buildErr != nil {
			return fmt.Errorf("build last run upsert: %w", buildErr)
		}
		if _, err = tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert last run: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Debug("tracking state persisted", "added", rowsAdded)
	return nil
}
