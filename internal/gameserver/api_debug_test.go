package gameserver

import (
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/gridgo/internal/model"
)

func TestEntitiesInArea(t *testing.T) {
	inside := model.Entity{ID: uuid.New(), X: 2, Y: 2, Width: 2, Height: 2}
	straddling := model.Entity{ID: uuid.New(), X: 4, Y: 4, Width: 3, Height: 3}
	outside := model.Entity{ID: uuid.New(), X: 10, Y: 10, Width: 1, Height: 1}
	touching := model.Entity{ID: uuid.New(), X: 5, Y: 0, Width: 2, Height: 2}
	point := model.Entity{ID: uuid.New(), X: 3, Y: 3, Width: 0, Height: 0}
	pointOutside := model.Entity{ID: uuid.New(), X: 8, Y: 8, Width: 0, Height: 0}

	all := []model.Entity{inside, straddling, outside, touching, point, pointOutside}
	got := entitiesInArea(all, 0, 0, 5, 5)

	ids := make([]uuid.UUID, 0, len(got))
	for _, e := range got {
		ids = append(ids, e.ID)
	}
	assert.Contains(t, ids, inside.ID)
	assert.Contains(t, ids, straddling.ID)
	assert.Contains(t, ids, point.ID)
	assert.NotContains(t, ids, outside.ID)
	assert.NotContains(t, ids, touching.ID)
	assert.NotContains(t, ids, pointOutside.ID)
}

func TestEntitiesInArea_EmptyInput(t *testing.T) {
	assert.Empty(t, entitiesInArea(nil, 0, 0, 10, 10))
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest("GET", "/?x1=3&x2=bogus", nil)

	v, ok, err := queryInt(r, "x1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok, err = queryInt(r, "y1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = queryInt(r, "x2")
	assert.Error(t, err)
}
