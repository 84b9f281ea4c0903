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

// Package game provides the static gameplay configuration tables: mining
// levels with pricing and gating parameters, materials with their mining
// difficulty and sale values, and the ordered pickaxe tiers. The tables are
// loaded from an embedded default config and can be overridden from a file.
// They are never mutated at runtime.
package game

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var embeddedDefaultConfig []byte

// LevelId identifies a mining level. Level 1 is always free and requires no
// session
type LevelId uint8

// Tier is an ordered equipment capability level. Access checks compare tier
// indexes, not equality
type Tier int

const (
	TierWooden Tier = iota
	TierStone
	TierSteel
	TierMythril
	TierAdamantite
)

func (t Tier) String() string {
	switch t {
	case TierWooden:
		return "wooden"
	case TierStone:
		return "stone"
	case TierSteel:
		return "steel"
	case TierMythril:
		return "mythril"
	case TierAdamantite:
		return "adamantite"
	default:
		return fmt.Sprintf("unknown (%d)", int(t))
	}
}

// Meets returns whether a player holding tier t satisfies the given
// requirement
func (t Tier) Meets(required Tier) bool {
	return t >= required
}

type Material struct {
	Name   string `yaml:"name"`
	Tier   int    `yaml:"tier"`
	BaseHp uint64 `yaml:"baseHp"`
	Value  uint64 `yaml:"value"`
}

// MiningDuration returns how long the material takes to mine at the given
// speed multiplier. The base rate is one second per HP point
func (m Material) MiningDuration(speedMultiplier float64) time.Duration {
	baseMs := float64(m.BaseHp) * 1000
	return time.Duration(baseMs/speedMultiplier) * time.Millisecond
}

type SpawnEntry struct {
	Material string `yaml:"material"`
	Weight   uint   `yaml:"weight"`
}

type Level struct {
	Id                LevelId      `yaml:"id"`
	Name              string       `yaml:"name"`
	CostPerSecond     uint64       `yaml:"costPerSecond"`
	RequiredTier      Tier         `yaml:"requiredTier"`
	MinSessionSeconds uint64       `yaml:"minSessionSeconds"`
	MaxSessionSeconds uint64       `yaml:"maxSessionSeconds"`
	Spawns            []SpawnEntry `yaml:"spawns"`
}

// Free returns whether the level requires no paid session
func (l Level) Free() bool {
	return l.CostPerSecond == 0
}

// SessionCost returns the total cost for a session of the requested length
func (l Level) SessionCost(seconds uint64) uint64 {
	return l.CostPerSecond * seconds
}

type Pickaxe struct {
	Tier            Tier    `yaml:"tier"`
	Name            string  `yaml:"name"`
	SpeedMultiplier float64 `yaml:"speedMultiplier"`
	Price           uint64  `yaml:"price"`
}

type GameConfig struct {
	Levels    []Level    `yaml:"levels"`
	Materials []Material `yaml:"materials"`
	Pickaxes  []Pickaxe  `yaml:"pickaxes"`
}

// Load reads the gameplay config from the given path, falling back to the
// embedded defaults when the path is empty
func Load(path string) (*GameConfig, error) {
	data := embeddedDefaultConfig
	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read game config: %w", err)
		}
		data = fileData
	}
	var cfg GameConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse game config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid game config: %w", err)
	}
	return &cfg, nil
}

// Validate checks internal consistency of the loaded tables
func (g *GameConfig) Validate() error {
	if len(g.Levels) == 0 {
		return errors.New("no levels defined")
	}
	if len(g.Pickaxes) == 0 {
		return errors.New("no pickaxes defined")
	}
	materials := make(map[string]bool, len(g.Materials))
	for _, material := range g.Materials {
		if material.Name == "" {
			return errors.New("material with empty name")
		}
		if materials[material.Name] {
			return fmt.Errorf("duplicate material: %s", material.Name)
		}
		if material.BaseHp == 0 {
			return fmt.Errorf("material %s has zero base HP", material.Name)
		}
		materials[material.Name] = true
	}
	levelIds := make(map[LevelId]bool, len(g.Levels))
	for _, level := range g.Levels {
		if levelIds[level.Id] {
			return fmt.Errorf("duplicate level ID: %d", level.Id)
		}
		levelIds[level.Id] = true
		if !level.Free() {
			if level.MinSessionSeconds == 0 ||
				level.MinSessionSeconds > level.MaxSessionSeconds {
				return fmt.Errorf(
					"level %d has invalid session bounds: min=%d, max=%d",
					level.Id,
					level.MinSessionSeconds,
					level.MaxSessionSeconds,
				)
			}
		}
		if len(level.Spawns) == 0 {
			return fmt.Errorf("level %d has no spawn entries", level.Id)
		}
		for _, spawn := range level.Spawns {
			if !materials[spawn.Material] {
				return fmt.Errorf(
					"level %d spawns unknown material: %s",
					level.Id,
					spawn.Material,
				)
			}
			if spawn.Weight == 0 {
				return fmt.Errorf(
					"level %d has zero spawn weight for %s",
					level.Id,
					spawn.Material,
				)
			}
		}
	}
	for _, pickaxe := range g.Pickaxes {
		if pickaxe.SpeedMultiplier <= 0 {
			return fmt.Errorf(
				"pickaxe %s has invalid speed multiplier: %f",
				pickaxe.Name,
				pickaxe.SpeedMultiplier,
			)
		}
	}
	return nil
}

// Level looks up a level by ID
func (g *GameConfig) Level(id LevelId) (Level, bool) {
	for _, level := range g.Levels {
		if level.Id == id {
			return level, true
		}
	}
	return Level{}, false
}

// Material looks up a material by name
func (g *GameConfig) Material(name string) (Material, bool) {
	for _, material := range g.Materials {
		if material.Name == name {
			return material, true
		}
	}
	return Material{}, false
}

// Pickaxe looks up the pickaxe for a given tier
func (g *GameConfig) Pickaxe(tier Tier) (Pickaxe, bool) {
	for _, pickaxe := range g.Pickaxes {
		if pickaxe.Tier == tier {
			return pickaxe, true
		}
	}
	return Pickaxe{}, false
}

// NextPickaxe returns the pickaxe one tier above the given tier, if any
func (g *GameConfig) NextPickaxe(tier Tier) (Pickaxe, bool) {
	return g.Pickaxe(tier + 1)
}

// RandomSpawn selects a material from the level's weighted spawn table
func (l Level) RandomSpawn(rng *rand.Rand) string {
	var totalWeight uint
	for _, spawn := range l.Spawns {
		totalWeight += spawn.Weight
	}
	if totalWeight == 0 {
		return ""
	}
	roll := uint(rng.Int63n(int64(totalWeight)))
	for _, spawn := range l.Spawns {
		if roll < spawn.Weight {
			return spawn.Material
		}
		roll -= spawn.Weight
	}
	// Unreachable with a non-empty table
	return l.Spawns[0].Material
}
