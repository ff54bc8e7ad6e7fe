package enums

import (
	"fmt"
	"strings"
)

// OutboxDLQErrorReason records why the relay gave up on an outbox row.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) String() string { return string(r) }

func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable:
		return true
	}
	return false
}

// ParseOutboxDLQErrorReason accepts stored values case-insensitively.
func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	r := OutboxDLQErrorReason(strings.ToLower(strings.TrimSpace(value)))
	if !r.IsValid() {
		return "", fmt.Errorf("invalid outbox dlq reason %q", value)
	}
	return r, nil
}
