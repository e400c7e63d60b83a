package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/gridgo/internal/model"
)

// EntityRepository serves the debug/admin entity surface. The tick
// pipeline never uses it; in-tick mutation goes through ZoneTx.
type EntityRepository struct {
	pool *pgxpool.Pool
}

// NewEntityRepository creates a new entity repository.
func NewEntityRepository(pool *pgxpool.Pool) *EntityRepository {
	return &EntityRepository{pool: pool}
}

// Create inserts an entity after validating it against the zone bounds.
func (r *EntityRepository) Create(ctx context.Context, zone *model.Zone, x, y, width, height int, metadata json.RawMessage) (*model.Entity, error) {
	if !zone.FitsInBounds(x, y, width, height) {
		return nil, fmt.Errorf("entity at (%d,%d) size %dx%d does not fit zone %s bounds %dx%d",
			x, y, width, height, zone.ID, zone.Width, zone.Height)
	}
	id := uuid.New()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO entities (id, zone_id, x, y, width, height, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, zone.ID, x, y, width, height, nullableJSON(metadata))
	if err != nil {
		return nil, classify(fmt.Errorf("creating entity in zone %s: %w", zone.ID, err))
	}
	return r.Get(ctx, id)
}

// Get loads an entity by id.
func (r *EntityRepository) Get(ctx context.Context, id uuid.UUID) (*model.Entity, error) {
	return scanEntity(r.pool.QueryRow(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE id = $1`, id))
}

// Update patches an entity. Nil fields keep their current value; the
// result is validated against the zone bounds.
func (r *EntityRepository) Update(ctx context.Context, zone *model.Zone, id uuid.UUID, x, y, width, height *int, metadata json.RawMessage) (*model.Entity, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	newX, newY := current.X, current.Y
	newWidth, newHeight := current.Width, current.Height
	newMetadata := current.Metadata
	if x != nil {
		newX = *x
	}
	if y != nil {
		newY = *y
	}
	if width != nil {
		newWidth = *width
	}
	if height != nil {
		newHeight = *height
	}
	if metadata != nil {
		newMetadata = metadata
	}

	if !zone.FitsInBounds(newX, newY, newWidth, newHeight) {
		return nil, fmt.Errorf("entity %s at (%d,%d) size %dx%d does not fit zone %s bounds %dx%d",
			id, newX, newY, newWidth, newHeight, zone.ID, zone.Width, zone.Height)
	}

	_, err = r.pool.Exec(ctx,
		`UPDATE entities SET x = $1, y = $2, width = $3, height = $4, metadata = $5, updated_at = now()
		 WHERE id = $6`,
		newX, newY, newWidth, newHeight, nullableJSON(newMetadata), id)
	if err != nil {
		return nil, fmt.Errorf("updating entity %s: %w", id, err)
	}
	return r.Get(ctx, id)
}

// Delete removes an entity by id.
func (r *EntityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM entities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting entity %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deleting entity %s: %w", id, ErrNotFound)
	}
	return nil
}
