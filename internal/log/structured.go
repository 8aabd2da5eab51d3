package log

import (
	"context"
)

// StructuredLogger provides domain-level logging methods on top of Logger.
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogRecommendation logs a completed reward recommendation
func (sl *StructuredLogger) LogRecommendation(ctx context.Context, spendingID int64, cardID, secondCardID string, spendCents, rewardCents int64) {
	fields := NewFields().
		WithReward(cardID, spendCents, rewardCents).
		WithOperation(OpRecommend).
		WithComponent(ComponentEngine)
	fields[FieldSpendingID] = spendingID
	if secondCardID != "" {
		fields[FieldSecondCardID] = secondCardID
	}

	sl.logger.InfoContext(ctx, "Recommendation computed", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	allFields := fields.
		WithError(err).
		WithOperation(operation).
		WithComponent(component)

	sl.logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
