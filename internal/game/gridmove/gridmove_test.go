package gridmove

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/gridgo/internal/game"
	"github.com/udisondev/gridgo/internal/model"
)

func intent(data string) model.Intent {
	return model.Intent{PlayerID: uuid.New(), Data: json.RawMessage(data)}
}

func TestOnTick_Move(t *testing.T) {
	m := New()
	zoneID := uuid.New()
	entity := model.Entity{ID: uuid.New(), ZoneID: zoneID, X: 5, Y: 5}

	result, err := m.OnTick(context.Background(), zoneID, []model.Entity{entity},
		[]model.Intent{intent(fmt.Sprintf(`{"action":"move","entity_id":"%s","dx":1,"dy":-1}`, entity.ID))}, 1)
	require.NoError(t, err)

	require.Len(t, result.Updates, 1)
	assert.Equal(t, entity.ID, result.Updates[0].ID)
	assert.Equal(t, 6, *result.Updates[0].X)
	assert.Equal(t, 4, *result.Updates[0].Y)
}

func TestOnTick_MoveChainsWithinTick(t *testing.T) {
	m := New()
	zoneID := uuid.New()
	entity := model.Entity{ID: uuid.New(), ZoneID: zoneID, X: 0, Y: 0}

	move := fmt.Sprintf(`{"action":"move","entity_id":"%s","dx":1,"dy":0}`, entity.ID)
	result, err := m.OnTick(context.Background(), zoneID, []model.Entity{entity},
		[]model.Intent{intent(move), intent(move)}, 1)
	require.NoError(t, err)

	// The second move starts from where the first one ended.
	require.Len(t, result.Updates, 2)
	assert.Equal(t, 1, *result.Updates[0].X)
	assert.Equal(t, 2, *result.Updates[1].X)
}

func TestOnTick_MoveRejectsNegativeTarget(t *testing.T) {
	m := New()
	zoneID := uuid.New()
	entity := model.Entity{ID: uuid.New(), ZoneID: zoneID, X: 0, Y: 0}

	result, err := m.OnTick(context.Background(), zoneID, []model.Entity{entity},
		[]model.Intent{intent(fmt.Sprintf(`{"action":"move","entity_id":"%s","dx":-1,"dy":0}`, entity.ID))}, 1)
	require.NoError(t, err)
	assert.Empty(t, result.Updates)
}

func TestOnTick_CreateAndDelete(t *testing.T) {
	m := New()
	zoneID := uuid.New()
	entity := model.Entity{ID: uuid.New(), ZoneID: zoneID, X: 1, Y: 1}

	result, err := m.OnTick(context.Background(), zoneID, []model.Entity{entity},
		[]model.Intent{
			intent(`{"action":"create_entity","x":3,"y":4,"width":2,"height":2,"metadata":{"kind":"rock"}}`),
			intent(fmt.Sprintf(`{"action":"delete_entity","entity_id":"%s"}`, entity.ID)),
		}, 1)
	require.NoError(t, err)

	require.Len(t, result.Creates, 1)
	assert.Equal(t, 3, result.Creates[0].X)
	assert.Equal(t, 4, result.Creates[0].Y)
	assert.Equal(t, 2, result.Creates[0].Width)
	assert.JSONEq(t, `{"kind":"rock"}`, string(result.Creates[0].Metadata))

	require.Len(t, result.Deletes, 1)
	assert.Equal(t, entity.ID, result.Deletes[0])

	// Creates announce themselves in the extras.
	require.NotNil(t, result.Extras)
	assert.Contains(t, result.Extras, "events")
}

func TestOnTick_CreateDefaultsToUnitSize(t *testing.T) {
	m := New()

	result, err := m.OnTick(context.Background(), uuid.New(), nil,
		[]model.Intent{intent(`{"action":"create_entity"}`)}, 1)
	require.NoError(t, err)

	require.Len(t, result.Creates, 1)
	assert.Equal(t, 1, result.Creates[0].Width)
	assert.Equal(t, 1, result.Creates[0].Height)
}

func TestOnTick_SkipsBadIntents(t *testing.T) {
	m := New()
	zoneID := uuid.New()
	entity := model.Entity{ID: uuid.New(), ZoneID: zoneID, X: 5, Y: 5}

	result, err := m.OnTick(context.Background(), zoneID, []model.Entity{entity},
		[]model.Intent{
			intent(`not json at all`),
			intent(`{"action":"warp"}`),
			intent(`{"action":"move","entity_id":"not-a-uuid","dx":1,"dy":0}`),
			intent(fmt.Sprintf(`{"action":"delete_entity","entity_id":"%s"}`, uuid.New())),
			intent(fmt.Sprintf(`{"action":"move","entity_id":"%s","dx":1,"dy":1}`, entity.ID)),
		}, 1)
	require.NoError(t, err)

	// Only the final, well-formed move survives.
	assert.Len(t, result.Updates, 1)
	assert.Empty(t, result.Creates)
	assert.Empty(t, result.Deletes)
}

func TestGetPlayerState_StampsViewer(t *testing.T) {
	m := New()
	playerID := uuid.New()
	base := &game.BaseState{
		ZoneID:     uuid.New(),
		TickNumber: 9,
		Entities:   []game.EntityView{{ID: uuid.New()}},
		Extras:     map[string]any{"events": "kept"},
	}

	state, err := m.GetPlayerState(base.ZoneID, playerID, base)
	require.NoError(t, err)

	filtered, ok := state.(*game.BaseState)
	require.True(t, ok)
	assert.Equal(t, playerID, filtered.Extras["viewer_id"])
	assert.Equal(t, "kept", filtered.Extras["events"])
	assert.Len(t, filtered.Entities, 1)

	// The shared base must not have been mutated.
	assert.NotContains(t, base.Extras, "viewer_id")
}

func TestGetPlayerState_FogOfWar(t *testing.T) {
	m := New()
	m.ViewRadius = 2
	playerID := uuid.New()

	meta := json.RawMessage(fmt.Sprintf(`{"player_id":"%s"}`, playerID))
	own := game.EntityView{ID: uuid.New(), X: 5, Y: 5, Metadata: meta}
	near := game.EntityView{ID: uuid.New(), X: 7, Y: 3}
	far := game.EntityView{ID: uuid.New(), X: 8, Y: 5}

	base := &game.BaseState{
		ZoneID:   uuid.New(),
		Entities: []game.EntityView{own, near, far},
	}

	state, err := m.GetPlayerState(base.ZoneID, playerID, base)
	require.NoError(t, err)

	filtered := state.(*game.BaseState)
	require.Len(t, filtered.Entities, 2)
	ids := []uuid.UUID{filtered.Entities[0].ID, filtered.Entities[1].ID}
	assert.Contains(t, ids, own.ID)
	assert.Contains(t, ids, near.ID)
	assert.NotContains(t, ids, far.ID)
}

func TestGetPlayerState_NoOwnEntitySeesNothing(t *testing.T) {
	m := New()
	m.ViewRadius = 2

	base := &game.BaseState{
		ZoneID:   uuid.New(),
		Entities: []game.EntityView{{ID: uuid.New(), X: 1, Y: 1}},
	}

	state, err := m.GetPlayerState(base.ZoneID, uuid.New(), base)
	require.NoError(t, err)

	filtered := state.(*game.BaseState)
	assert.Empty(t, filtered.Entities)
}
