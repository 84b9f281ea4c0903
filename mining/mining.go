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

// Package mining runs the local mining simulation. Ore nodes are spawned
// per level from weighted tables, and the engine advances any number of
// concurrent mining operations on discrete ticks. Access gating happens
// at operation start and again at each tick, with one deliberate
// exception: an operation that finishes within the same tick the session
// expires still yields its ore.
package mining

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/blinklabs-io/goldmine/config/game"
	"github.com/blinklabs-io/goldmine/event"
	"github.com/google/uuid"
)

var (
	ErrNodeNotFound   = fmt.Errorf("mining node not found")
	ErrAlreadyMining  = fmt.Errorf("node is already being mined")
	ErrAccessDenied   = fmt.Errorf("no access to this level")
	ErrNodeExhausted  = fmt.Errorf("node has already been mined out")
	ErrUnknownLevel   = fmt.Errorf("unknown level")
	ErrUnknownPickaxe = fmt.Errorf("unknown pickaxe tier")
)

// AccessChecker reports whether the player may mine a level right now
type AccessChecker interface {
	HasAccess(levelId game.LevelId) bool
}

// SpeedReader returns the mining speed multiplier for a player's
// current pickaxe
type SpeedReader interface {
	SpeedMultiplier(player string) (float64, error)
}

// Node is a spawned ore node
type Node struct {
	Id       string
	Material string
	LevelId  game.LevelId
	// Value is the sell value of the ore in this node
	Value uint64
	// BaseHp determines how long the node takes to mine
	BaseHp uint64
}

// Completion records a mining operation that finished
type Completion struct {
	NodeId   string
	Material string
	LevelId  game.LevelId
	Value    uint64
}

// operation tracks an in-progress mine on a node
type operation struct {
	node       Node
	progressMs int64
	requiredMs int64
}

type EngineConfig struct {
	Logger     *slog.Logger
	EventBus   *event.EventBus
	GameConfig *game.GameConfig
	Access     AccessChecker
	Equipment  SpeedReader
	Player     string
	// Rng overrides the spawn randomness source, mainly for tests
	Rng *rand.Rand
}

// Engine owns the mining state for one player. All methods are safe for
// concurrent use.
type Engine struct {
	logger     *slog.Logger
	eventBus   *event.EventBus
	gameConfig *game.GameConfig
	access     AccessChecker
	equipment  SpeedReader
	player     string

	mutex sync.Mutex
	rng   *rand.Rand
	nodes map[string]Node
	ops   map[string]*operation
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Rng == nil {
		cfg.Rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		logger: cfg.Logger.With(
			"component", "mining",
			"player", cfg.Player,
		),
		eventBus:   cfg.EventBus,
		gameConfig: cfg.GameConfig,
		access:     cfg.Access,
		equipment:  cfg.Equipment,
		player:     cfg.Player,
		rng:        cfg.Rng,
		nodes:      make(map[string]Node),
		ops:        make(map[string]*operation),
	}
}

// SpawnNode creates a new ore node on the given level using its weighted
// spawn table
func (e *Engine) SpawnNode(levelId game.LevelId) (Node, error) {
	level, ok := e.gameConfig.Level(levelId)
	if !ok {
		return Node{}, ErrUnknownLevel
	}
	e.mutex.Lock()
	defer e.mutex.Unlock()
	materialName := level.RandomSpawn(e.rng)
	material, ok := e.gameConfig.Material(materialName)
	if !ok {
		return Node{}, fmt.Errorf(
			"spawn table references unknown material: %s",
			materialName,
		)
	}
	node := Node{
		Id:       uuid.NewString(),
		Material: material.Name,
		LevelId:  levelId,
		Value:    material.Value,
		BaseHp:   material.BaseHp,
	}
	e.nodes[node.Id] = node
	return node, nil
}

// Nodes returns the nodes currently available on a level
func (e *Engine) Nodes(levelId game.LevelId) []Node {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	var ret []Node
	for _, node := range e.nodes {
		if node.LevelId == levelId {
			ret = append(ret, node)
		}
	}
	return ret
}

// StartMining begins an operation on a node. The required duration is
// fixed at start from the node's HP and the player's current pickaxe
// speed; upgrading mid-operation does not retroactively speed it up.
func (e *Engine) StartMining(nodeId string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	node, ok := e.nodes[nodeId]
	if !ok {
		return ErrNodeNotFound
	}
	if _, ok := e.ops[nodeId]; ok {
		return ErrAlreadyMining
	}
	if !e.access.HasAccess(node.LevelId) {
		return ErrAccessDenied
	}
	speed, err := e.equipment.SpeedMultiplier(e.player)
	if err != nil {
		return err
	}
	material, ok := e.gameConfig.Material(node.Material)
	if !ok {
		return fmt.Errorf("unknown material: %s", node.Material)
	}
	e.ops[nodeId] = &operation{
		node:       node,
		requiredMs: material.MiningDuration(speed).Milliseconds(),
	}
	e.logger.Debug(
		"mining started",
		"node", nodeId,
		"material", node.Material,
		"level", node.LevelId,
	)
	return nil
}

// Tick advances every in-progress operation by deltaMs and returns the
// operations that completed. Completions are evaluated before access, so
// an operation that crosses its threshold in the tick the session expires
// is still honored. Incomplete operations on levels the player no longer
// has access to are cancelled.
func (e *Engine) Tick(deltaMs int64) []Completion {
	e.mutex.Lock()
	var completions []Completion
	var cancelled []string
	for nodeId, op := range e.ops {
		op.progressMs += deltaMs
		if op.progressMs >= op.requiredMs {
			completions = append(completions, Completion{
				NodeId:   op.node.Id,
				Material: op.node.Material,
				LevelId:  op.node.LevelId,
				Value:    op.node.Value,
			})
			delete(e.ops, nodeId)
			delete(e.nodes, nodeId)
			continue
		}
		if !e.access.HasAccess(op.node.LevelId) {
			cancelled = append(cancelled, nodeId)
			delete(e.ops, nodeId)
		}
	}
	e.mutex.Unlock()
	for _, nodeId := range cancelled {
		e.logger.Info(
			"mining cancelled, level access lost",
			"node", nodeId,
		)
	}
	for _, completion := range completions {
		e.publishOreMined(completion)
	}
	return completions
}

// StopAll cancels every in-progress operation. Ore already mined is not
// affected; only incomplete progress is discarded.
func (e *Engine) StopAll() {
	e.mutex.Lock()
	count := len(e.ops)
	e.ops = make(map[string]*operation)
	e.mutex.Unlock()
	if count > 0 {
		e.logger.Info(
			"stopped all mining operations",
			"count", count,
		)
	}
}

// Progress reports the completion fraction of an in-progress operation
func (e *Engine) Progress(nodeId string) (float64, bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	op, ok := e.ops[nodeId]
	if !ok {
		return 0, false
	}
	if op.requiredMs == 0 {
		return 1, true
	}
	ratio := float64(op.progressMs) / float64(op.requiredMs)
	if ratio > 1 {
		ratio = 1
	}
	return ratio, true
}

// ActiveOperations returns the number of in-progress operations
func (e *Engine) ActiveOperations() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return len(e.ops)
}

func (e *Engine) publishOreMined(completion Completion) {
	if e.eventBus == nil {
		return
	}
	e.eventBus.Publish(
		OreMinedEventType,
		event.NewEvent(
			OreMinedEventType,
			OreMinedEvent{
				Player:   e.player,
				NodeId:   completion.NodeId,
				Material: completion.Material,
				LevelId:  completion.LevelId,
				Value:    completion.Value,
			},
		),
	)
}
