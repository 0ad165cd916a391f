package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/interviewforge/agent/contract"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

var _ contractx.RunStore = (*PostgresBank)(nil)

type PostgresConfig struct {
	DSN     string        `envconfig:"DSN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// runRow is one persisted run. ID is a bigserial so ordering by it gives
// insertion order.
type runRow struct {
	bun.BaseModel `bun:"table:interview_runs,alias:ir"`

	ID        int64     `bun:"id,pk,autoincrement"`
	RunID     string    `bun:"run_id,notnull,unique"`
	Role      string    `bun:"role,notnull"`
	Payload   string    `bun:"payload,type:jsonb,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// PostgresBank keeps the run history in a Postgres table through bun.
type PostgresBank struct {
	mu   sync.Mutex
	db   *bun.DB
	runs []contractx.RunSummary
	log  zerolog.Logger
}

// OpenPostgresBank connects with pgdriver, creates the table if needed and
// loads the history once.
func OpenPostgresBank(ctx context.Context, cfg PostgresConfig, logger zerolog.Logger) (*PostgresBank, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(timeout),
	))
	db := bun.NewDB(sqldb, pgdialect.New())

	b, err := NewPostgresBank(ctx, db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

// NewPostgresBank uses an existing bun handle.
func NewPostgresBank(ctx context.Context, db *bun.DB, logger zerolog.Logger) (*PostgresBank, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	b := &PostgresBank{
		db:   db,
		runs: []contractx.RunSummary{},
		log:  logger.With().Str("component", "memory_bank").Str("backend", "postgres").Logger(),
	}

	if _, err := db.NewCreateTable().Model((*runRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: create interview_runs: %v", contractx.ErrPersistence, err)
	}

	var rows []runRow
	if err := db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("%w: load interview_runs: %v", contractx.ErrPersistence, err)
	}
	b.runs = rowsToRuns(rows, b.log)
	return b, nil
}

func (b *PostgresBank) SaveRun(ctx context.Context, run contractx.RunSummary) error {
	if strings.TrimSpace(run.RunID) == "" {
		return ErrNilRun
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if containsRun(b.runs, run.RunID) {
		return fmt.Errorf("%w: run_id=%s", ErrDuplicateRun, run.RunID)
	}

	row, err := runToRow(run)
	if err != nil {
		return err
	}
	if _, err := b.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	b.runs = append(b.runs, run.Clone())
	b.log.Info().Str("run_id", run.RunID).Int64("row_id", row.ID).Msg("run saved")
	return nil
}

func (b *PostgresBank) ListRuns() []contractx.RunSummary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return contractx.CloneRuns(b.runs)
}

func (b *PostgresBank) Close() error {
	return b.db.Close()
}

func runToRow(run contractx.RunSummary) (runRow, error) {
	payload, err := json.Marshal(run)
	if err != nil {
		return runRow{}, fmt.Errorf("marshal run summary: %w", err)
	}
	created := run.CompletedAt
	if created.IsZero() {
		created = time.Now()
	}
	return runRow{
		RunID:     run.RunID,
		Role:      run.Role,
		Payload:   string(payload),
		CreatedAt: created.UTC(),
	}, nil
}

func rowsToRuns(rows []runRow, log zerolog.Logger) []contractx.RunSummary {
	runs := make([]contractx.RunSummary, 0, len(rows))
	for _, row := range rows {
		var run contractx.RunSummary
		if err := json.Unmarshal([]byte(row.Payload), &run); err != nil {
			log.Warn().Err(err).Int64("row_id", row.ID).Msg("skipping unparseable history row")
			continue
		}
		runs = append(runs, run)
	}
	return runs
}
