package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"phoneadvisor/internal/model"
	"phoneadvisor/internal/service"
	"phoneadvisor/migrations"
)

// PostgresRepository handles database operations
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute) // Shorter lifetime to avoid stale connections
	db.SetConnMaxIdleTime(2 * time.Minute) // Close idle connections sooner

	return &PostgresRepository{db: db}, nil
}

// NewPostgresRepositoryFromDB wraps an existing connection
func NewPostgresRepositoryFromDB(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Ping checks the connection
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Migrate applies all pending schema migrations
func (r *PostgresRepository) Migrate() error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(r.db.DB, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// phoneRow maps a phones row; tags need the array scanner
type phoneRow struct {
	model.Phone
	Tags pq.StringArray `db:"tags"`
}

const selectPhones = `
	SELECT
		id, brand, model, price_inr, os, ram_gb, storage_gb, display_inches,
		refresh_rate_hz, battery_mah, charging_w, camera_primary_mp, has_ois,
		rating, summary, tags
	FROM phones
`

// LoadPhones reads the whole catalog in insertion order
func (r *PostgresRepository) LoadPhones(ctx context.Context) ([]model.Phone, error) {
	var rows []phoneRow
	if err := r.db.SelectContext(ctx, &rows, selectPhones+` ORDER BY sort_order`); err != nil {
		return nil, fmt.Errorf("failed to load phones: %w", err)
	}

	phones := make([]model.Phone, len(rows))
	for i, row := range rows {
		p := row.Phone
		for _, t := range row.Tags {
			p.Tags = append(p.Tags, model.Feature(t))
		}
		phones[i] = p
	}
	return phones, nil
}

// GetPhoneByID retrieves a single phone by its id
func (r *PostgresRepository) GetPhoneByID(ctx context.Context, id string) (*model.Phone, error) {
	var row phoneRow
	err := r.db.GetContext(ctx, &row, selectPhones+` WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get phone: %w", err)
	}
	p := row.Phone
	for _, t := range row.Tags {
		p.Tags = append(p.Tags, model.Feature(t))
	}
	return &p, nil
}

// UpsertPhones inserts or replaces catalog rows in one transaction
func (r *PostgresRepository) UpsertPhones(ctx context.Context, phones []model.Phone) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO phones (
			id, brand, model, price_inr, os, ram_gb, storage_gb, display_inches,
			refresh_rate_hz, battery_mah, charging_w, camera_primary_mp, has_ois,
			rating, summary, tags
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			brand = EXCLUDED.brand, model = EXCLUDED.model, price_inr = EXCLUDED.price_inr,
			os = EXCLUDED.os, ram_gb = EXCLUDED.ram_gb, storage_gb = EXCLUDED.storage_gb,
			display_inches = EXCLUDED.display_inches, refresh_rate_hz = EXCLUDED.refresh_rate_hz,
			battery_mah = EXCLUDED.battery_mah, charging_w = EXCLUDED.charging_w,
			camera_primary_mp = EXCLUDED.camera_primary_mp, has_ois = EXCLUDED.has_ois,
			rating = EXCLUDED.rating, summary = EXCLUDED.summary, tags = EXCLUDED.tags,
			updated_at = NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range phones {
		tags := make([]string, len(p.Tags))
		for i, t := range p.Tags {
			tags[i] = string(t)
		}
		_, err := stmt.ExecContext(ctx,
			p.ID, p.Brand, p.Model, p.Price, p.OS, p.RAMGB, p.StorageGB, p.DisplayInches,
			p.RefreshRateHz, p.BatteryMAh, p.ChargingW, p.CameraPrimaryMP, p.HasOIS,
			p.Rating, p.Summary, pq.Array(tags),
		)
		if err != nil {
			return 0, fmt.Errorf("phone %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(phones), nil
}

// RecordTurn stores the audit summary of one chat turn
func (r *PostgresRepository) RecordTurn(ctx context.Context, rec service.TurnRecord) error {
	query := `
		INSERT INTO chat_turns (turn_id, query, mode, outcome, candidate_ids, used_catalog_ids, fallback, latency_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (turn_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.TurnID, rec.Query, string(rec.Mode), rec.Outcome,
		pq.Array(rec.CandidateIDs), pq.Array(rec.UsedCatalogIDs),
		rec.Fallback, rec.Latency.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record turn: %w", err)
	}
	return nil
}

// LogSearch logs a catalog search query
func (r *PostgresRepository) LogSearch(ctx context.Context, query string, intent model.ParsedIntent, total int, resultIDs []string, tookMs int64) error {
	intentJSON, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("failed to marshal intent: %w", err)
	}

	logQuery := `
		INSERT INTO search_logs (query, intent, result_count, returned_phone_ids, response_time_ms)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.db.ExecContext(ctx, logQuery, query, intentJSON, total, pq.Array(resultIDs), tookMs)
	if err != nil {
		return fmt.Errorf("failed to log search: %w", err)
	}
	return nil
}

// LogFeedback logs a user action on a product shown in a turn
func (r *PostgresRepository) LogFeedback(ctx context.Context, turnID, phoneID, action string) error {
	query := `
		INSERT INTO turn_feedback (turn_id, phone_id, action)
		VALUES ($1, $2, $3)
	`
	_, err := r.db.ExecContext(ctx, query, turnID, phoneID, action)
	if err != nil {
		return fmt.Errorf("failed to log feedback: %w", err)
	}
	return nil
}

// Ensure the repository satisfies the service ports
var (
	_ service.TurnRecorder = (*PostgresRepository)(nil)
	_ service.SearchLogger = (*PostgresRepository)(nil)
)
