package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/faultline/faultline/internal/log"
	"github.com/faultline/faultline/internal/model"
	"github.com/faultline/faultline/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.Repository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// StoreEnvelope stores an envelope in the repository.
func (r *Repository) StoreEnvelope(ctx context.Context, e model.Envelope) error {
	query := `
		INSERT INTO envelopes (id, event_id, kind, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, e.ID, string(e.EventID), string(e.Kind), e.Payload, e.CreatedAt.Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: envelopes.") {
			return fmt.Errorf("envelope already exists: %w", model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert envelope: %w", err)
	}

	r.logger.Debugf("Stored envelope in repository: %s", e.ID)
	return nil
}

// GetEnvelope retrieves an envelope by ID.
func (r *Repository) GetEnvelope(ctx context.Context, id string) (*model.Envelope, error) {
	query := `SELECT id, event_id, kind, payload, created_at FROM envelopes WHERE id = ?`

	e, err := scanEnvelope(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("envelope %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get envelope: %w", err)
	}

	return e, nil
}

// ListEnvelopes returns all stored envelopes ordered by creation time.
func (r *Repository) ListEnvelopes(ctx context.Context) ([]model.Envelope, error) {
	query := `SELECT id, event_id, kind, payload, created_at FROM envelopes ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("could not list envelopes: %w", err)
	}
	defer rows.Close()

	es := []model.Envelope{}
	for rows.Next() {
		e, err := scanEnvelope(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan envelope: %w", err)
		}
		es = append(es, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate envelopes: %w", err)
	}

	return es, nil
}

// DeleteEnvelope removes an envelope by ID.
func (r *Repository) DeleteEnvelope(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM envelopes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not delete envelope: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("envelope %s: %w", id, model.ErrNotFound)
	}

	return nil
}

// SaveAppState writes the current launch state slot.
func (r *Repository) SaveAppState(ctx context.Context, s model.AppState) error {
	query := `
		INSERT INTO app_state (slot, sdk_version, started_at, debug_enabled, clean_shutdown)
		VALUES ('current', ?, ?, ?, ?)
		ON CONFLICT (slot) DO UPDATE SET
			sdk_version = excluded.sdk_version,
			started_at = excluded.started_at,
			debug_enabled = excluded.debug_enabled,
			clean_shutdown = excluded.clean_shutdown
	`

	_, err := r.db.ExecContext(ctx, query, s.SDKVersion, s.StartedAt.Unix(), boolToInt(s.DebugEnabled), boolToInt(s.CleanShutdown))
	if err != nil {
		return fmt.Errorf("could not save app state: %w", err)
	}

	return nil
}

// PreviousAppState returns the previous launch state slot.
func (r *Repository) PreviousAppState(ctx context.Context) (*model.AppState, error) {
	query := `SELECT sdk_version, started_at, debug_enabled, clean_shutdown FROM app_state WHERE slot = 'previous'`

	var (
		s              model.AppState
		startedAt      int64
		debug, cleanSd int
	)
	err := r.db.QueryRowContext(ctx, query).Scan(&s.SDKVersion, &startedAt, &debug, &cleanSd)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("previous app state: %w", model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get previous app state: %w", err)
	}

	s.StartedAt = time.Unix(startedAt, 0).UTC()
	s.DebugEnabled = debug != 0
	s.CleanShutdown = cleanSd != 0

	return &s, nil
}

// MoveAppStateToPreviousAppState rotates the current app state slot into the
// previous one, emptying the current slot.
func (r *Repository) MoveAppStateToPreviousAppState(ctx context.Context) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM app_state WHERE slot = 'previous'`); err != nil {
			return fmt.Errorf("could not clear previous app state: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE app_state SET slot = 'previous' WHERE slot = 'current'`); err != nil {
			return fmt.Errorf("could not rotate app state: %w", err)
		}
		return nil
	})
}

// AppendBreadcrumb appends a breadcrumb to the current launch slot.
func (r *Repository) AppendBreadcrumb(ctx context.Context, b model.Breadcrumb) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("could not serialize breadcrumb: %w", err)
	}

	ts := b.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO breadcrumbs (slot, payload, created_at) VALUES ('current', ?, ?)`, payload, ts.Unix())
	if err != nil {
		return fmt.Errorf("could not insert breadcrumb: %w", err)
	}

	return nil
}

// PreviousBreadcrumbs returns the breadcrumbs of the previous launch.
func (r *Repository) PreviousBreadcrumbs(ctx context.Context) ([]model.Breadcrumb, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT payload FROM breadcrumbs WHERE slot = 'previous' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("could not list previous breadcrumbs: %w", err)
	}
	defer rows.Close()

	bs := []model.Breadcrumb{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("could not scan breadcrumb: %w", err)
		}

		b := model.Breadcrumb{}
		if err := json.Unmarshal(payload, &b); err != nil {
			return nil, fmt.Errorf("could not deserialize breadcrumb: %w", err)
		}
		bs = append(bs, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate breadcrumbs: %w", err)
	}

	return bs, nil
}

// MoveBreadcrumbsToPreviousBreadcrumbs rotates current breadcrumbs into the
// previous slot, emptying the current one.
func (r *Repository) MoveBreadcrumbsToPreviousBreadcrumbs(ctx context.Context) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM breadcrumbs WHERE slot = 'previous'`); err != nil {
			return fmt.Errorf("could not clear previous breadcrumbs: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE breadcrumbs SET slot = 'previous' WHERE slot = 'current'`); err != nil {
			return fmt.Errorf("could not rotate breadcrumbs: %w", err)
		}
		return nil
	})
}

func (r *Repository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Errorf("could not rollback transaction: %s", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEnvelope(row rowScanner) (*model.Envelope, error) {
	var (
		e         model.Envelope
		eventID   string
		kind      string
		createdAt int64
	)
	if err := row.Scan(&e.ID, &eventID, &kind, &e.Payload, &createdAt); err != nil {
		return nil, err
	}

	e.EventID = model.EventID(eventID)
	e.Kind = model.EnvelopeKind(kind)
	e.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
