package relay

import (
	"errors"
	"fmt"

	"live-bidding/internal/models"

	"github.com/vmihailenco/msgpack/v5"
)

// stream entry fields
const (
	fieldOrigin  = "origin"
	fieldPayload = "payload"
)

var (
	ErrRelayClosed    = errors.New("relay closed")
	ErrMalformedEntry = errors.New("malformed stream entry")
)

// Envelope is one committed state travelling between instances
type Envelope struct {
	Origin string              `msgpack:"origin"`
	State  models.ItemBidState `msgpack:"state"`
}

// EncodeEnvelope returns the stream field list for env. Fields are ordered so
// the resulting XADD is deterministic.
func EncodeEnvelope(env Envelope) ([]any, error) {
	payload, err := msgpack.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("relay: encode envelope for item %s: %w", env.State.ItemID, err)
	}
	return []any{fieldOrigin, env.Origin, fieldPayload, payload}, nil
}

// DecodeEnvelope reads an envelope back from stream entry values
func DecodeEnvelope(values map[string]any) (Envelope, error) {
	var payload []byte
	switch v := values[fieldPayload].(type) {
	case string:
		payload = []byte(v)
	case []byte:
		payload = v
	default:
		return Envelope{}, fmt.Errorf("relay: %w - missing payload", ErrMalformedEntry)
	}

	var env Envelope
	if err := msgpack.Unmarshal(payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("relay: %w - %v", ErrMalformedEntry, err)
	}
	if env.State.ItemID == "" {
		return Envelope{}, fmt.Errorf("relay: %w - missing item id", ErrMalformedEntry)
	}
	env.State.UpdatedAt = env.State.UpdatedAt.UTC()
	return env, nil
}
