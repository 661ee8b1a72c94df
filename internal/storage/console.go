package storage

import (
	"context"

	"go.uber.org/zap"

	"github.com/msandoval/flasharb/pkg/types"
)

// ConsoleStorage logs outcomes instead of persisting them. The default
// when no database is configured.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	return &ConsoleStorage{logger: logger}
}

// StoreOutcome logs the outcome.
func (c *ConsoleStorage) StoreOutcome(_ context.Context, outcome *types.ExecutionOutcome) error {
	fields := []zap.Field{
		zap.String("attempt-id", outcome.ID),
		zap.Bool("succeeded", outcome.Succeeded),
		zap.String("asset", outcome.Asset.Hex()),
		zap.String("amount", outcome.Amount.String()),
		zap.Uint64("work-used", outcome.WorkUsed),
	}

	if outcome.Succeeded {
		fields = append(fields,
			zap.String("profit", outcome.Profit.String()),
			zap.String("tx-ref", outcome.TxRef.Hex()))
	} else {
		fields = append(fields, zap.String("failure-reason", string(outcome.FailureReason)))
	}

	c.logger.Info("execution-outcome", fields...)

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	return nil
}
