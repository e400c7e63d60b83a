package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entity is a positioned object inside exactly one zone. Metadata is an
// opaque payload: the framework stores and forwards it but never looks
// inside. Zero-size (0x0) entities are allowed for markers and the like.
type Entity struct {
	ID        uuid.UUID
	ZoneID    uuid.UUID
	X         int
	Y         int
	Width     int
	Height    int
	Metadata  json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Overlaps reports whether the entity intersects the rectangle
// (x, y, width, height). A zero-size entity overlaps only if its position
// lies inside the rectangle; a zero-size rectangle is treated as a point.
func (e *Entity) Overlaps(x, y, width, height int) bool {
	if e.Width == 0 && e.Height == 0 {
		return x <= e.X && e.X < x+width && y <= e.Y && e.Y < y+height
	}
	if width == 0 && height == 0 {
		return e.X <= x && x < e.X+e.Width && e.Y <= y && y < e.Y+e.Height
	}
	return e.X < x+width && e.X+e.Width > x &&
		e.Y < y+height && e.Y+e.Height > y
}
