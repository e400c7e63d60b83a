package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Zone is a uniquely named rectangular region of the world.
// Zones are created and destroyed through the admin API and never move;
// the tick engine only ever reads them.
type Zone struct {
	ID        uuid.UUID
	Name      string
	Width     int
	Height    int
	Metadata  json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPositionValid reports whether (x, y) lies within the zone bounds.
func (z *Zone) IsPositionValid(x, y int) bool {
	return x >= 0 && x < z.Width && y >= 0 && y < z.Height
}

// FitsInBounds reports whether an entity with the given position and
// footprint fits entirely within the zone. Zero-size entities only need
// a valid position.
func (z *Zone) FitsInBounds(x, y, width, height int) bool {
	if width == 0 && height == 0 {
		return z.IsPositionValid(x, y)
	}
	return x >= 0 && y >= 0 &&
		x < z.Width && y < z.Height &&
		x+width <= z.Width && y+height <= z.Height
}
