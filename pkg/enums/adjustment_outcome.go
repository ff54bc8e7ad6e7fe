package enums

// AdjustmentOutcome labels the result of a stock adjustment for metrics and logs.
type AdjustmentOutcome string

const (
	AdjustmentApplied            AdjustmentOutcome = "applied"
	AdjustmentNotFound           AdjustmentOutcome = "not_found"
	AdjustmentInsufficientStock  AdjustmentOutcome = "insufficient_stock"
	AdjustmentNotificationFailed AdjustmentOutcome = "notification_failed"
	AdjustmentPersistenceFailed  AdjustmentOutcome = "persistence_failed"
	AdjustmentError              AdjustmentOutcome = "error"
)
