package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/gridgo/internal/model"
)

// ZoneRepository manages the administrative zone lifecycle. Zones are
// created and destroyed out of band; the tick pipeline only reads them.
type ZoneRepository struct {
	pool *pgxpool.Pool
}

// NewZoneRepository creates a new zone repository.
func NewZoneRepository(pool *pgxpool.Pool) *ZoneRepository {
	return &ZoneRepository{pool: pool}
}

// Create inserts a new zone. A duplicate name returns ErrConflict.
func (r *ZoneRepository) Create(ctx context.Context, name string, width, height int, metadata json.RawMessage) (*model.Zone, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO zones (id, name, width, height, metadata)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, name, width, height, nullableJSON(metadata))
	if err != nil {
		return nil, classify(fmt.Errorf("creating zone %q: %w", name, err))
	}
	return r.Get(ctx, id)
}

// Get loads a zone by id. Returns ErrNotFound if it does not exist.
func (r *ZoneRepository) Get(ctx context.Context, id uuid.UUID) (*model.Zone, error) {
	return scanZone(r.pool.QueryRow(ctx,
		`SELECT `+zoneColumns+` FROM zones WHERE id = $1`, id))
}

// List returns all zones ordered by name.
func (r *ZoneRepository) List(ctx context.Context) ([]model.Zone, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+zoneColumns+` FROM zones ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing zones: %w", err)
	}
	defer rows.Close()

	var zones []model.Zone
	for rows.Next() {
		var z model.Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.Width, &z.Height, &z.Metadata, &z.CreatedAt, &z.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning zone: %w", err)
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating zones: %w", err)
	}
	return zones, nil
}

// Delete removes a zone and, through the FK cascade, all its entities.
func (r *ZoneRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM zones WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting zone %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deleting zone %s: %w", id, ErrNotFound)
	}
	return nil
}
