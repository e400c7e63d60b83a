package game

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/gridgo/internal/model"
)

type fakeFramework struct{}

func (fakeFramework) Zone(context.Context, uuid.UUID) (*model.Zone, error) { return nil, nil }
func (fakeFramework) ZoneEntities(context.Context, uuid.UUID) ([]model.Entity, error) {
	return nil, nil
}

// scriptModule lets each test choose the module's behavior per hook.
type scriptModule struct {
	initErr error
	onTick  func() (*TickResult, error)
	state   func() (any, error)
}

func (m *scriptModule) OnInit(Framework) error { return m.initErr }

func (m *scriptModule) OnTick(context.Context, uuid.UUID, []model.Entity, []model.Intent, uint64) (*TickResult, error) {
	return m.onTick()
}

func (m *scriptModule) GetPlayerState(_, _ uuid.UUID, _ *BaseState) (any, error) {
	return m.state()
}

func TestNewAdapter_InitFailure(t *testing.T) {
	_, err := NewAdapter(&scriptModule{initErr: errors.New("boom")}, fakeFramework{})
	require.Error(t, err)
}

func TestAdapter_OnTickPanicBecomesError(t *testing.T) {
	adapter, err := NewAdapter(&scriptModule{
		onTick: func() (*TickResult, error) { panic("module bug") },
	}, fakeFramework{})
	require.NoError(t, err)

	result, err := adapter.OnTick(context.Background(), uuid.New(), nil, nil, 1)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "panic")
}

func TestAdapter_OnTickNilResultBecomesEmpty(t *testing.T) {
	adapter, err := NewAdapter(&scriptModule{
		onTick: func() (*TickResult, error) { return nil, nil },
	}, fakeFramework{})
	require.NoError(t, err)

	result, err := adapter.OnTick(context.Background(), uuid.New(), nil, nil, 1)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Empty(t, result.Creates)
	assert.Empty(t, result.Updates)
	assert.Empty(t, result.Deletes)
}

func TestAdapter_PlayerStatePanicBecomesError(t *testing.T) {
	adapter, err := NewAdapter(&scriptModule{
		state: func() (any, error) { panic("filter bug") },
	}, fakeFramework{})
	require.NoError(t, err)

	state, err := adapter.PlayerState(uuid.New(), uuid.New(), &BaseState{})
	require.Error(t, err)
	assert.Nil(t, state)
}

func TestAdapter_PlayerStateErrorIsWrapped(t *testing.T) {
	sentinel := errors.New("no state for you")
	adapter, err := NewAdapter(&scriptModule{
		state: func() (any, error) { return nil, sentinel },
	}, fakeFramework{})
	require.NoError(t, err)

	_, err = adapter.PlayerState(uuid.New(), uuid.New(), &BaseState{})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
}
