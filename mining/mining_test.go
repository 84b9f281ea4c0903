// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mining_test

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/goldmine/config/game"
	"github.com/blinklabs-io/goldmine/event"
	"github.com/blinklabs-io/goldmine/mining"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAccess grants or revokes level access on demand
type mockAccess struct {
	mu      sync.Mutex
	granted map[game.LevelId]bool
}

func newMockAccess(levels ...game.LevelId) *mockAccess {
	granted := make(map[game.LevelId]bool)
	for _, level := range levels {
		granted[level] = true
	}
	return &mockAccess{granted: granted}
}

func (m *mockAccess) HasAccess(levelId game.LevelId) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.granted[levelId]
}

func (m *mockAccess) revoke(levelId game.LevelId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.granted, levelId)
}

// mockSpeed returns a fixed pickaxe speed
type mockSpeed struct {
	multiplier float64
}

func (m *mockSpeed) SpeedMultiplier(player string) (float64, error) {
	return m.multiplier, nil
}

func newEngine(
	t *testing.T,
	access *mockAccess,
	speed float64,
	eventBus *event.EventBus,
) *mining.Engine {
	t.Helper()
	gameCfg, err := game.Load("")
	require.NoError(t, err)
	return mining.NewEngine(mining.EngineConfig{
		EventBus:   eventBus,
		GameConfig: gameCfg,
		Access:     access,
		Equipment:  &mockSpeed{multiplier: speed},
		Player:     "tester",
		Rng:        rand.New(rand.NewSource(1)),
	})
}

func TestSpawnNode(t *testing.T) {
	engine := newEngine(t, newMockAccess(1), 1.0, nil)
	node, err := engine.SpawnNode(1)
	require.NoError(t, err)
	assert.NotEmpty(t, node.Id)
	assert.NotEmpty(t, node.Material)
	assert.Equal(t, game.LevelId(1), node.LevelId)
	assert.Len(t, engine.Nodes(1), 1)
}

func TestSpawnNodeUnknownLevel(t *testing.T) {
	engine := newEngine(t, newMockAccess(1), 1.0, nil)
	_, err := engine.SpawnNode(99)
	assert.ErrorIs(t, err, mining.ErrUnknownLevel)
}

func TestStartMiningUnknownNode(t *testing.T) {
	engine := newEngine(t, newMockAccess(1), 1.0, nil)
	err := engine.StartMining("no-such-node")
	assert.ErrorIs(t, err, mining.ErrNodeNotFound)
}

func TestStartMiningWithoutAccess(t *testing.T) {
	engine := newEngine(t, newMockAccess(), 1.0, nil)
	node, err := engine.SpawnNode(2)
	require.NoError(t, err)
	err = engine.StartMining(node.Id)
	assert.ErrorIs(t, err, mining.ErrAccessDenied)
}

func TestStartMiningTwice(t *testing.T) {
	engine := newEngine(t, newMockAccess(1), 1.0, nil)
	node, err := engine.SpawnNode(1)
	require.NoError(t, err)
	require.NoError(t, engine.StartMining(node.Id))
	err = engine.StartMining(node.Id)
	assert.ErrorIs(t, err, mining.ErrAlreadyMining)
}

func TestTickCompletesOperation(t *testing.T) {
	engine := newEngine(t, newMockAccess(1), 1.0, nil)
	node, err := engine.SpawnNode(1)
	require.NoError(t, err)
	require.NoError(t, engine.StartMining(node.Id))
	// Level 1 materials all have 3 HP: 3000ms at 1.0x speed
	completions := engine.Tick(2999)
	assert.Empty(t, completions)
	progress, inProgress := engine.Progress(node.Id)
	require.True(t, inProgress)
	assert.InDelta(t, 1.0, progress, 0.01)
	completions = engine.Tick(1)
	require.Len(t, completions, 1)
	assert.Equal(t, node.Id, completions[0].NodeId)
	assert.Equal(t, node.Material, completions[0].Material)
	// Mined-out node is gone
	assert.Empty(t, engine.Nodes(1))
	assert.Equal(t, 0, engine.ActiveOperations())
}

func TestFasterPickaxeShortensMining(t *testing.T) {
	engine := newEngine(t, newMockAccess(1), 1.5, nil)
	node, err := engine.SpawnNode(1)
	require.NoError(t, err)
	require.NoError(t, engine.StartMining(node.Id))
	// 3 HP at 1.5x speed is 2000ms
	completions := engine.Tick(2000)
	assert.Len(t, completions, 1)
}

func TestConcurrentOperations(t *testing.T) {
	engine := newEngine(t, newMockAccess(1), 1.0, nil)
	var nodes []mining.Node
	for i := 0; i < 3; i++ {
		node, err := engine.SpawnNode(1)
		require.NoError(t, err)
		nodes = append(nodes, node)
		require.NoError(t, engine.StartMining(node.Id))
	}
	assert.Equal(t, 3, engine.ActiveOperations())
	completions := engine.Tick(3000)
	assert.Len(t, completions, 3)
}

func TestAccessLossCancelsIncompleteOperations(t *testing.T) {
	access := newMockAccess(2)
	engine := newEngine(t, access, 1.0, nil)
	node, err := engine.SpawnNode(2)
	require.NoError(t, err)
	require.NoError(t, engine.StartMining(node.Id))
	access.revoke(2)
	completions := engine.Tick(100)
	assert.Empty(t, completions)
	assert.Equal(t, 0, engine.ActiveOperations())
	// The node itself survives; only the operation was cancelled
	assert.Len(t, engine.Nodes(2), 1)
}

func TestSameTickCompletionHonoredAtExpiry(t *testing.T) {
	access := newMockAccess(2)
	engine := newEngine(t, access, 1.0, nil)
	node, err := engine.SpawnNode(2)
	require.NoError(t, err)
	require.NoError(t, engine.StartMining(node.Id))
	requiredMs := int64(node.BaseHp) * 1000 //nolint:gosec
	// Session expires, but the operation crosses its threshold within the
	// same tick. The ore is still awarded
	access.revoke(2)
	completions := engine.Tick(requiredMs)
	require.Len(t, completions, 1)
	assert.Equal(t, node.Id, completions[0].NodeId)
}

func TestStopAll(t *testing.T) {
	engine := newEngine(t, newMockAccess(1), 1.0, nil)
	for i := 0; i < 2; i++ {
		node, err := engine.SpawnNode(1)
		require.NoError(t, err)
		require.NoError(t, engine.StartMining(node.Id))
	}
	engine.StopAll()
	assert.Equal(t, 0, engine.ActiveOperations())
	// No completions from discarded progress
	assert.Empty(t, engine.Tick(10000))
}

func TestOreMinedEvent(t *testing.T) {
	eventBus := event.NewEventBus(nil, nil)
	defer eventBus.Stop()
	_, minedCh := eventBus.Subscribe(mining.OreMinedEventType)
	engine := newEngine(t, newMockAccess(1), 1.0, eventBus)
	node, err := engine.SpawnNode(1)
	require.NoError(t, err)
	require.NoError(t, engine.StartMining(node.Id))
	engine.Tick(3000)
	select {
	case evt := <-minedCh:
		minedEvt, ok := evt.Data.(mining.OreMinedEvent)
		require.True(t, ok)
		assert.Equal(t, "tester", minedEvt.Player)
		assert.Equal(t, node.Material, minedEvt.Material)
		assert.Equal(t, node.Value, minedEvt.Value)
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for ore mined event")
	}
}
