package drafts

import (
	"context"
	"database/sql"
	"encoding/json"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/KirkDiggler/rpg-builder/internal/entities"
	"github.com/KirkDiggler/rpg-builder/internal/errors"
	"github.com/KirkDiggler/rpg-builder/internal/pkg/clock"
	"github.com/KirkDiggler/rpg-builder/internal/repositories/drafts/migrations"
)

const migrationTable = "schema_migrations"

// SQLiteConfig configures the SQLite draft repository
type SQLiteConfig struct {
	// Path is the database file
	Path  string
	Clock clock.Clock
}

// Validate ensures all required settings are present
func (cfg *SQLiteConfig) Validate() error {
	vb := errors.NewValidationBuilder()

	if strings.TrimSpace(cfg.Path) == "" {
		vb.RequiredField("Path")
	}

	return vb.Build()
}

// SQLiteRepository stores drafts in an embedded SQLite database.
// Step payloads live in draft_steps keyed by (draft_id, kind).
type SQLiteRepository struct {
	db    *sql.DB
	clock clock.Clock
}

// NewSQLiteRepository opens the database at cfg.Path and applies migrations
func NewSQLiteRepository(cfg *SQLiteConfig) (*SQLiteRepository, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid sqlite repository config")
	}

	dsn := filepath.Clean(cfg.Path) +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite db")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "failed to ping sqlite db")
	}

	if err := applyMigrations(db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "failed to run migrations")
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	return &SQLiteRepository{db: db, clock: clk}, nil
}

// Close closes the underlying database
func (r *SQLiteRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *SQLiteRepository) Create(ctx context.Context, input CreateInput) (*CreateOutput, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	draft := input.Draft.Clone()
	now := r.clock.Now()
	draft.CreatedAt = now
	draft.UpdatedAt = now
	if draft.StepData == nil {
		draft.StepData = entities.StepData{}
	}

	flags := draft.VariantFlags
	if flags == nil {
		flags = map[string]any{}
	}
	flagJSON, err := json.Marshal(flags)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal variant flags")
	}

	err = r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO drafts (id, owner_id, name, status, starting_level, allow_feats, variant_flags, current_step, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`,
			draft.ID, draft.OwnerID, draft.Name, string(draft.Status), draft.StartingLevel,
			draft.AllowFeats, string(flagJSON), string(draft.CurrentStep),
			toUnixNano(draft.CreatedAt), toUnixNano(draft.UpdatedAt),
		)
		if err != nil {
			return errors.Wrapf(err, "failed to insert draft")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errors.AlreadyExistsf("draft %s already exists", draft.ID)
		}

		for kind, raw := range draft.StepData {
			if err := upsertStep(ctx, tx, draft.ID, kind, raw, draft.IsMarkedComplete(kind), now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CreateOutput{Draft: draft}, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errDraftIDEmpty)
	}

	draft, err := loadDraft(ctx, r.db, input.ID)
	if err != nil {
		return nil, err
	}

	return &GetOutput{Draft: draft}, nil
}

func (r *SQLiteRepository) ListByOwner(ctx context.Context, input ListByOwnerInput) (*ListByOwnerOutput, error) {
	if input.OwnerID == "" {
		return nil, errors.InvalidArgument(errOwnerIDEmpty)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id FROM drafts WHERE owner_id = ? ORDER BY updated_at DESC, id DESC`, input.OwnerID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list owner drafts")
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, errors.Wrapf(err, "failed to scan draft id")
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, errors.Wrapf(err, "failed to list owner drafts")
	}

	out := make([]*entities.Draft, 0, len(ids))
	for _, id := range ids {
		draft, err := loadDraft(ctx, r.db, id)
		if errors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, draft)
	}

	return &ListByOwnerOutput{Drafts: out}, nil
}

func (r *SQLiteRepository) UpdateStep(ctx context.Context, input UpdateStepInput) (*UpdateStepOutput, error) {
	if err := validateUpdateStep(input); err != nil {
		return nil, err
	}

	var out *UpdateStepOutput
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		draft, err := loadDraft(ctx, tx, input.ID)
		if err != nil {
			return err
		}

		previous := applyStep(draft, input)
		draft.UpdatedAt = r.clock.Now()

		if err := upsertStep(ctx, tx, draft.ID, input.Kind, draft.StepData[input.Kind], input.MarkComplete, draft.UpdatedAt); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE drafts SET status = ?, current_step = ?, updated_at = ? WHERE id = ?`,
			string(draft.Status), string(draft.CurrentStep), toUnixNano(draft.UpdatedAt), draft.ID,
		); err != nil {
			return errors.Wrapf(err, "failed to update draft")
		}

		out = &UpdateStepOutput{Draft: draft, PreviousStatus: previous}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *SQLiteRepository) UpdateName(ctx context.Context, input UpdateNameInput) (*UpdateNameOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errDraftIDEmpty)
	}

	var out *UpdateNameOutput
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		draft, err := loadDraft(ctx, tx, input.ID)
		if err != nil {
			return err
		}

		draft.Name = input.Name
		draft.UpdatedAt = r.clock.Now()
		if _, err := tx.ExecContext(ctx, `
UPDATE drafts SET name = ?, updated_at = ? WHERE id = ?`,
			draft.Name, toUnixNano(draft.UpdatedAt), draft.ID,
		); err != nil {
			return errors.Wrapf(err, "failed to rename draft")
		}

		out = &UpdateNameOutput{Draft: draft}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errDraftIDEmpty)
	}

	var deleted bool
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM draft_steps WHERE draft_id = ?`, input.ID); err != nil {
			return errors.Wrapf(err, "failed to delete draft steps")
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, input.ID)
		if err != nil {
			return errors.Wrapf(err, "failed to delete draft")
		}
		n, _ := res.RowsAffected()
		deleted = n > 0
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &DeleteOutput{Deleted: deleted}, nil
}

// inTx runs fn in a transaction, committing only when fn succeeds
func (r *SQLiteRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, "failed to commit transaction")
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadDraft(ctx context.Context, q queryer, id string) (*entities.Draft, error) {
	var (
		d          entities.Draft
		status     string
		flagJSON   string
		current    string
		createdAt  int64
		updatedAt  int64
		allowFeats bool
	)
	err := q.QueryRowContext(ctx, `
SELECT id, owner_id, name, status, starting_level, allow_feats, variant_flags, current_step, created_at, updated_at
FROM drafts WHERE id = ?`, id).Scan(
		&d.ID, &d.OwnerID, &d.Name, &status, &d.StartingLevel, &allowFeats,
		&flagJSON, &current, &createdAt, &updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFoundf("draft with ID %s not found", id)
		}
		return nil, errors.Wrapf(err, "failed to get draft")
	}

	d.Status = entities.Status(status)
	d.CurrentStep = entities.StepKind(current)
	d.AllowFeats = allowFeats
	d.CreatedAt = fromUnixNano(createdAt)
	d.UpdatedAt = fromUnixNano(updatedAt)
	if flagJSON != "" {
		if err := json.Unmarshal([]byte(flagJSON), &d.VariantFlags); err != nil {
			return nil, errors.Wrapf(err, "draft %s: invalid variant flags", id)
		}
	}

	rows, err := q.QueryContext(ctx, `
SELECT kind, payload, marked_complete FROM draft_steps WHERE draft_id = ?`, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get draft steps")
	}
	defer func() { _ = rows.Close() }()

	d.StepData = entities.StepData{}
	for rows.Next() {
		var (
			kind    string
			payload string
			marked  bool
		)
		if err := rows.Scan(&kind, &payload, &marked); err != nil {
			return nil, errors.Wrapf(err, "failed to scan draft step")
		}
		d.StepData[entities.StepKind(kind)] = json.RawMessage(payload)
		if marked {
			d.MarkedComplete = append(d.MarkedComplete, entities.StepKind(kind))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read draft steps")
	}
	sortKinds(d.MarkedComplete)

	return &d, nil
}

func upsertStep(ctx context.Context, tx *sql.Tx, draftID string, kind entities.StepKind, payload json.RawMessage, mark bool, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO draft_steps (draft_id, kind, payload, marked_complete, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (draft_id, kind) DO UPDATE SET
    payload = excluded.payload,
    marked_complete = MAX(draft_steps.marked_complete, excluded.marked_complete),
    updated_at = excluded.updated_at`,
		draftID, string(kind), string(payload), mark, toUnixNano(at),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to write %s step", kind)
	}
	return nil
}

func toUnixNano(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnixNano(v int64) time.Time {
	return time.Unix(0, v).UTC()
}

// applyMigrations executes embedded migrations at most once per file
func applyMigrations(db *sql.DB, migrationFS fs.FS) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return errors.Wrapf(err, "failed to ensure migration table")
	}

	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return errors.Wrapf(err, "failed to read migrations")
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		var found int
		err := db.QueryRow(`SELECT 1 FROM `+migrationTable+` WHERE name = ?`, name).Scan(&found)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return errors.Wrapf(err, "failed to check migration %s", name)
		}

		content, err := fs.ReadFile(migrationFS, name)
		if err != nil {
			return errors.Wrapf(err, "failed to read migration %s", name)
		}
		up := upMigration(string(content))
		if strings.TrimSpace(up) == "" {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return errors.Wrapf(err, "failed to begin migration %s", name)
		}
		if _, err := tx.Exec(up); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "failed to apply migration %s", name)
		}
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`,
			name, time.Now().UTC().UnixMilli(),
		); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "failed to record migration %s", name)
		}
		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "failed to commit migration %s", name)
		}
	}

	return nil
}

// upMigration returns the SQL between the Up and Down markers
func upMigration(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"
	start := strings.Index(content, up)
	if start == -1 {
		return content
	}
	content = content[start+len(up):]
	if end := strings.Index(content, down); end != -1 {
		content = content[:end]
	}
	return content
}

var _ Repository = (*SQLiteRepository)(nil)
