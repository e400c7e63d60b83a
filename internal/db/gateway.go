package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/gridgo/internal/game"
	"github.com/udisondev/gridgo/internal/model"
)

// Gateway exposes scoped transactional sessions over zones and entities.
// One tick of one zone runs inside one transaction: load, apply deltas,
// re-read the snapshot, then commit or roll back as a unit. Transactions
// of different zones never touch each other.
type Gateway struct {
	pool *pgxpool.Pool
}

// NewGateway creates a gateway over the given pool.
func NewGateway(pool *pgxpool.Pool) *Gateway {
	return &Gateway{pool: pool}
}

// ZoneTx is one scoped transactional session. It never commits on its
// own; the gateway commits when the scope function returns nil and rolls
// back otherwise.
type ZoneTx struct {
	tx pgx.Tx
}

// WithZoneTx runs fn inside a transaction. Commit happens only if fn
// returns nil; any error rolls the whole scope back and is returned
// classified.
func (g *Gateway) WithZoneTx(ctx context.Context, fn func(tx *ZoneTx) error) error {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin zone transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("zone transaction rollback failed", "error", err)
		}
	}()

	if err := fn(&ZoneTx{tx: tx}); err != nil {
		return classify(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit zone transaction: %w", err)
	}
	return nil
}

const zoneColumns = `id, name, width, height, metadata, created_at, updated_at`

const entityColumns = `id, zone_id, x, y, width, height, metadata, created_at, updated_at`

// Zone loads a zone by id within the transaction.
func (t *ZoneTx) Zone(ctx context.Context, id uuid.UUID) (*model.Zone, error) {
	return scanZone(t.tx.QueryRow(ctx,
		`SELECT `+zoneColumns+` FROM zones WHERE id = $1`, id))
}

// Entities lists all entities of a zone within the transaction. After
// ApplyDeltas this is the authoritative post-apply snapshot.
func (t *ZoneTx) Entities(ctx context.Context, zoneID uuid.UUID) ([]model.Entity, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE zone_id = $1 ORDER BY created_at, id`, zoneID)
	if err != nil {
		return nil, fmt.Errorf("querying entities for zone %s: %w", zoneID, err)
	}
	return collectEntities(rows, zoneID)
}

// ApplyDeltas writes a tick result's creates, updates and deletes. It
// does not commit; that is the zone-processing boundary's job. Deltas
// that would place an entity outside the zone bounds fail the whole
// scope.
func (t *ZoneTx) ApplyDeltas(ctx context.Context, zone *model.Zone, result *game.TickResult) error {
	for _, create := range result.Creates {
		if !zone.FitsInBounds(create.X, create.Y, create.Width, create.Height) {
			return fmt.Errorf("create at (%d,%d) size %dx%d outside zone %s bounds %dx%d",
				create.X, create.Y, create.Width, create.Height, zone.ID, zone.Width, zone.Height)
		}
		_, err := t.tx.Exec(ctx,
			`INSERT INTO entities (id, zone_id, x, y, width, height, metadata)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New(), zone.ID, create.X, create.Y, create.Width, create.Height, nullableJSON(create.Metadata))
		if err != nil {
			return fmt.Errorf("creating entity in zone %s: %w", zone.ID, err)
		}
	}

	for _, update := range result.Updates {
		if err := t.applyUpdate(ctx, zone, update); err != nil {
			return err
		}
	}

	for _, id := range result.Deletes {
		_, err := t.tx.Exec(ctx,
			`DELETE FROM entities WHERE id = $1 AND zone_id = $2`, id, zone.ID)
		if err != nil {
			return fmt.Errorf("deleting entity %s in zone %s: %w", id, zone.ID, err)
		}
	}
	return nil
}

func (t *ZoneTx) applyUpdate(ctx context.Context, zone *model.Zone, update game.EntityUpdate) error {
	current, err := scanEntity(t.tx.QueryRow(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE id = $1 AND zone_id = $2`,
		update.ID, zone.ID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Updating an entity that no longer exists is not an error:
			// another delta in the same result may have deleted it.
			return nil
		}
		return err
	}

	x, y := current.X, current.Y
	width, height := current.Width, current.Height
	metadata := current.Metadata
	if update.X != nil {
		x = *update.X
	}
	if update.Y != nil {
		y = *update.Y
	}
	if update.Width != nil {
		width = *update.Width
	}
	if update.Height != nil {
		height = *update.Height
	}
	if update.Metadata != nil {
		metadata = update.Metadata
	}

	if !zone.FitsInBounds(x, y, width, height) {
		return fmt.Errorf("update of entity %s to (%d,%d) size %dx%d outside zone %s bounds %dx%d",
			update.ID, x, y, width, height, zone.ID, zone.Width, zone.Height)
	}

	_, err = t.tx.Exec(ctx,
		`UPDATE entities SET x = $1, y = $2, width = $3, height = $4, metadata = $5, updated_at = now()
		 WHERE id = $6`,
		x, y, width, height, nullableJSON(metadata), update.ID)
	if err != nil {
		return fmt.Errorf("updating entity %s: %w", update.ID, err)
	}
	return nil
}

// Zone loads a zone outside of a tick transaction. Serves the game
// module's framework handle.
func (g *Gateway) Zone(ctx context.Context, id uuid.UUID) (*model.Zone, error) {
	return scanZone(g.pool.QueryRow(ctx,
		`SELECT `+zoneColumns+` FROM zones WHERE id = $1`, id))
}

// ZoneEntities lists a zone's entities outside of a tick transaction.
func (g *Gateway) ZoneEntities(ctx context.Context, zoneID uuid.UUID) ([]model.Entity, error) {
	rows, err := g.pool.Query(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE zone_id = $1 ORDER BY created_at, id`, zoneID)
	if err != nil {
		return nil, fmt.Errorf("querying entities for zone %s: %w", zoneID, err)
	}
	return collectEntities(rows, zoneID)
}

func collectEntities(rows pgx.Rows, zoneID uuid.UUID) ([]model.Entity, error) {
	defer rows.Close()
	var entities []model.Entity
	for rows.Next() {
		var e model.Entity
		if err := rows.Scan(&e.ID, &e.ZoneID, &e.X, &e.Y, &e.Width, &e.Height, &e.Metadata, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning entity in zone %s: %w", zoneID, err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entities for zone %s: %w", zoneID, err)
	}
	return entities, nil
}

func scanZone(row pgx.Row) (*model.Zone, error) {
	var z model.Zone
	err := row.Scan(&z.ID, &z.Name, &z.Width, &z.Height, &z.Metadata, &z.CreatedAt, &z.UpdatedAt)
	if err != nil {
		return nil, classify(fmt.Errorf("scanning zone: %w", err))
	}
	return &z, nil
}

func scanEntity(row pgx.Row) (*model.Entity, error) {
	var e model.Entity
	err := row.Scan(&e.ID, &e.ZoneID, &e.X, &e.Y, &e.Width, &e.Height, &e.Metadata, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, classify(fmt.Errorf("scanning entity: %w", err))
	}
	return &e, nil
}

// nullableJSON maps an empty payload to SQL NULL instead of the invalid
// empty jsonb document.
func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
