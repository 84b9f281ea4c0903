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

package game_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/blinklabs-io/goldmine/config/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := game.Load("")
	require.NoError(t, err)
	assert.Len(t, cfg.Levels, 5)
	assert.Len(t, cfg.Pickaxes, 5)
	assert.NotEmpty(t, cfg.Materials)
}

func TestDefaultLevelOneIsFree(t *testing.T) {
	cfg, err := game.Load("")
	require.NoError(t, err)
	level, ok := cfg.Level(1)
	require.True(t, ok)
	assert.True(t, level.Free())
	assert.Equal(t, game.TierWooden, level.RequiredTier)
}

func TestUnknownLevelLookup(t *testing.T) {
	cfg, err := game.Load("")
	require.NoError(t, err)
	_, ok := cfg.Level(99)
	assert.False(t, ok)
}

func TestSessionCost(t *testing.T) {
	level := game.Level{CostPerSecond: 4}
	assert.Equal(t, uint64(1200), level.SessionCost(300))
	assert.Equal(t, uint64(0), level.SessionCost(0))
}

func TestTierMeets(t *testing.T) {
	assert.True(t, game.TierSteel.Meets(game.TierWooden))
	assert.True(t, game.TierSteel.Meets(game.TierSteel))
	assert.False(t, game.TierStone.Meets(game.TierMythril))
}

func TestMiningDuration(t *testing.T) {
	material := game.Material{Name: "iron", BaseHp: 3}
	assert.Equal(t, 3*time.Second, material.MiningDuration(1.0))
	assert.Equal(t, 2*time.Second, material.MiningDuration(1.5))
	// Faster pickaxes always shorten the duration
	assert.Less(
		t,
		material.MiningDuration(4.5),
		material.MiningDuration(1.0),
	)
}

func TestNextPickaxe(t *testing.T) {
	cfg, err := game.Load("")
	require.NoError(t, err)
	next, ok := cfg.NextPickaxe(game.TierWooden)
	require.True(t, ok)
	assert.Equal(t, game.TierStone, next.Tier)
	// No upgrade past the top tier
	_, ok = cfg.NextPickaxe(game.TierAdamantite)
	assert.False(t, ok)
}

func TestPickaxeSpeedOrdering(t *testing.T) {
	cfg, err := game.Load("")
	require.NoError(t, err)
	prev := 0.0
	for tier := game.TierWooden; tier <= game.TierAdamantite; tier++ {
		pickaxe, ok := cfg.Pickaxe(tier)
		require.True(t, ok, "missing pickaxe for tier %s", tier)
		assert.Greater(t, pickaxe.SpeedMultiplier, prev)
		prev = pickaxe.SpeedMultiplier
	}
}

func TestRandomSpawnRespectsTable(t *testing.T) {
	cfg, err := game.Load("")
	require.NoError(t, err)
	level, ok := cfg.Level(2)
	require.True(t, ok)
	allowed := make(map[string]bool)
	for _, spawn := range level.Spawns {
		allowed[spawn.Material] = true
	}
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		material := level.RandomSpawn(rng)
		assert.True(t, allowed[material], "unexpected spawn: %s", material)
	}
}

func TestRandomSpawnCoversAllEntries(t *testing.T) {
	level := game.Level{
		Spawns: []game.SpawnEntry{
			{Material: "stone", Weight: 50},
			{Material: "copper", Weight: 30},
			{Material: "iron", Weight: 20},
		},
	}
	rng := rand.New(rand.NewSource(7))
	seen := make(map[string]int)
	for i := 0; i < 5000; i++ {
		seen[level.RandomSpawn(rng)]++
	}
	assert.Len(t, seen, 3)
	// Heavier weights should spawn more often
	assert.Greater(t, seen["stone"], seen["iron"])
}

func TestValidateRejectsUnknownSpawnMaterial(t *testing.T) {
	cfg := &game.GameConfig{
		Levels: []game.Level{
			{
				Id:   1,
				Name: "surface",
				Spawns: []game.SpawnEntry{
					{Material: "unobtainium", Weight: 1},
				},
			},
		},
		Materials: []game.Material{
			{Name: "stone", BaseHp: 1, Value: 1},
		},
		Pickaxes: []game.Pickaxe{
			{Tier: game.TierWooden, Name: "wooden", SpeedMultiplier: 1.0},
		},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown material")
}

func TestValidateRejectsInvalidSessionBounds(t *testing.T) {
	cfg := &game.GameConfig{
		Levels: []game.Level{
			{
				Id:                2,
				Name:              "caves",
				CostPerSecond:     1,
				MinSessionSeconds: 600,
				MaxSessionSeconds: 60,
				Spawns: []game.SpawnEntry{
					{Material: "stone", Weight: 1},
				},
			},
		},
		Materials: []game.Material{
			{Name: "stone", BaseHp: 1, Value: 1},
		},
		Pickaxes: []game.Pickaxe{
			{Tier: game.TierWooden, Name: "wooden", SpeedMultiplier: 1.0},
		},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session bounds")
}
