package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Intent is an opaque player command targeting one zone. The framework
// buffers it until the zone's next tick and hands it to the game module
// exactly once; the Data payload is never inspected.
type Intent struct {
	PlayerID   uuid.UUID
	ConnID     uint64
	ZoneID     uuid.UUID
	Data       json.RawMessage
	EnqueuedAt time.Time
}
