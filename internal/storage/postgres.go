package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/msandoval/flasharb/pkg/types"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// StoreOutcome inserts one execution outcome.
func (p *PostgresStorage) StoreOutcome(ctx context.Context, outcome *types.ExecutionOutcome) error {
	query := `
		INSERT INTO execution_outcomes (
			id, succeeded, asset, amount, profit, tx_ref,
			failure_reason, work_used, executed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	var profit, txRef sql.NullString
	if outcome.Succeeded {
		profit = sql.NullString{String: outcome.Profit.String(), Valid: true}
		txRef = sql.NullString{String: outcome.TxRef.Hex(), Valid: true}
	}

	_, err := p.db.ExecContext(ctx, query,
		outcome.ID,
		outcome.Succeeded,
		outcome.Asset.Hex(),
		outcome.Amount.String(),
		profit,
		txRef,
		string(outcome.FailureReason),
		outcome.WorkUsed,
		outcome.ExecutedAt,
	)
	if err != nil {
		OutcomeStoreErrorsTotal.Inc()
		return fmt.Errorf("insert outcome: %w", err)
	}

	OutcomesStoredTotal.Inc()

	p.logger.Debug("outcome-stored",
		zap.String("attempt-id", outcome.ID),
		zap.Bool("succeeded", outcome.Succeeded))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
