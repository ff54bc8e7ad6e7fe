package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const envelopeVersion = 1

// PayloadEnvelope is what outbox_events.payload_json holds. Data is the exact
// body that goes on the wire.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// NewEnvelope marshals data and stamps it with a fresh event id.
func NewEnvelope(data any, version int, occurredAt time.Time) (PayloadEnvelope, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return PayloadEnvelope{}, fmt.Errorf("marshal event data: %w", err)
	}
	if version == 0 {
		version = envelopeVersion
	}
	return PayloadEnvelope{
		Version:    version,
		EventID:    uuid.NewString(),
		OccurredAt: occurredAt.UTC(),
		Data:       body,
	}, nil
}

// DecodeEnvelope parses a stored envelope. Rows written before event ids were
// stamped fall back to rowID.
func DecodeEnvelope(raw []byte, rowID string) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventID == "" {
		env.EventID = rowID
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return PayloadEnvelope{}, errors.New("envelope has no data")
	}
	return env, nil
}
