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

package goldmine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/goldmine/config/game"
	"github.com/blinklabs-io/goldmine/database"
	"github.com/blinklabs-io/goldmine/equipment"
	"github.com/blinklabs-io/goldmine/event"
	"github.com/blinklabs-io/goldmine/inventory"
	"github.com/blinklabs-io/goldmine/ledger"
	"github.com/blinklabs-io/goldmine/mining"
	"github.com/blinklabs-io/goldmine/purchase"
	"github.com/blinklabs-io/goldmine/sessionsync"
	"github.com/blinklabs-io/goldmine/token"
	"github.com/blinklabs-io/goldmine/txsubmit"
)

type Node struct {
	config        Config
	eventBus      *event.EventBus
	gameConfig    *game.GameConfig
	db            *database.Database
	token         *token.Ledger
	equipment     *equipment.Store
	sessions      *ledger.SessionLedger
	inventory     *inventory.Store
	submitter     *txsubmit.LocalSubmitter
	purchaser     *purchase.Purchaser
	players       map[string]*Player
	playersMutex  sync.Mutex
	shutdownFuncs []func(context.Context) error
	done          chan struct{}
	shutdownOnce  sync.Once
}

// Player bundles the client-side components bound to one signing identity
type Player struct {
	Name   string
	Sync   *sessionsync.Synchronizer
	Mining *mining.Engine
}

func New(cfg Config) (*Node, error) {
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	n := &Node{
		config:   cfg,
		eventBus: eventBus,
		players:  make(map[string]*Player),
		done:     make(chan struct{}),
	}
	// Load game config
	if cfg.gameConfig != nil {
		n.gameConfig = cfg.gameConfig
	} else {
		gameConfig, err := game.Load(cfg.gameConfigFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load game config: %w", err)
		}
		n.gameConfig = gameConfig
	}
	if err := n.gameConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid game config: %w", err)
	}
	return n, nil
}

func (n *Node) Run() error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(&database.Config{
		DataDir:      n.config.dataDir,
		Logger:       n.config.logger,
		PromRegistry: n.config.promRegistry,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.db = db
	// Token ledger
	n.token = token.NewLedger(token.LedgerConfig{
		Database: n.db,
		Logger:   n.config.logger,
	})
	// Equipment store
	n.equipment = equipment.NewStore(equipment.StoreConfig{
		Database:   n.db,
		GameConfig: n.gameConfig,
		Token:      n.token,
		Logger:     n.config.logger,
	})
	// Session ledger
	n.sessions = ledger.NewSessionLedger(ledger.SessionLedgerConfig{
		Database:     n.db,
		EventBus:     n.eventBus,
		GameConfig:   n.gameConfig,
		Tiers:        n.equipment,
		Token:        n.token,
		Logger:       n.config.logger,
		PromRegistry: n.config.promRegistry,
	})
	// Inventory store
	n.inventory = inventory.NewStore(inventory.StoreConfig{
		Database:   n.db,
		EventBus:   n.eventBus,
		GameConfig: n.gameConfig,
		Token:      n.token,
		Logger:     n.config.logger,
	})
	if err := n.inventory.Start(); err != nil {
		return fmt.Errorf("failed to start inventory: %w", err)
	}
	// Transaction submission
	n.submitter = txsubmit.NewLocalSubmitter(txsubmit.LocalSubmitterConfig{
		Database:     n.db,
		Token:        n.token,
		Sessions:     n.sessions,
		Logger:       n.config.logger,
		ConfirmDelay: n.config.confirmDelay,
	})
	// Purchase protocol
	n.purchaser = purchase.NewPurchaser(purchase.PurchaserConfig{
		GameConfig: n.gameConfig,
		Submitter:  n.submitter,
		Allowances: n.token,
		Sessions:   n.sessions,
		Spender:    ledger.SpenderAccount,
		Logger:     n.config.logger,
	})

	// Wait for shutdown signal
	<-n.done
	return nil
}

// Player returns the client-side components for the named player, creating
// and starting them on first use
func (n *Node) Player(name string) (*Player, error) {
	n.playersMutex.Lock()
	defer n.playersMutex.Unlock()
	if player, ok := n.players[name]; ok {
		return player, nil
	}
	synchronizer := sessionsync.NewSynchronizer(sessionsync.SynchronizerConfig{
		Logger:       n.config.logger,
		EventBus:     n.eventBus,
		GameConfig:   n.gameConfig,
		Sessions:     n.sessions,
		Player:       name,
		PollInterval: n.config.sessionPollInterval,
		TickInterval: n.config.countdownInterval,
	})
	if err := synchronizer.Start(); err != nil {
		return nil, fmt.Errorf("failed to start session sync: %w", err)
	}
	player := &Player{
		Name: name,
		Sync: synchronizer,
		Mining: mining.NewEngine(mining.EngineConfig{
			Logger:     n.config.logger,
			EventBus:   n.eventBus,
			GameConfig: n.gameConfig,
			Access:     synchronizer,
			Equipment:  n.equipment,
			Player:     name,
		}),
	}
	n.players[name] = player
	return player, nil
}

// Token returns the token ledger
func (n *Node) Token() *token.Ledger {
	return n.token
}

// Equipment returns the pickaxe shop
func (n *Node) Equipment() *equipment.Store {
	return n.equipment
}

// Sessions returns the session ledger
func (n *Node) Sessions() *ledger.SessionLedger {
	return n.sessions
}

// Inventory returns the inventory store
func (n *Node) Inventory() *inventory.Store {
	return n.inventory
}

// Purchaser returns the session purchase protocol driver
func (n *Node) Purchaser() *purchase.Purchaser {
	return n.purchaser
}

// Submitter returns the transaction submitter
func (n *Node) Submitter() *txsubmit.LocalSubmitter {
	return n.submitter
}

// EventBus returns the node's event bus
func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

// GameConfig returns the loaded game definitions
func (n *Node) GameConfig() *game.GameConfig {
	return n.gameConfig
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop per-player loops
	n.config.logger.Debug("shutdown phase 1: stopping player components")

	n.playersMutex.Lock()
	for _, player := range n.players {
		player.Mining.StopAll()
		if stopErr := player.Sync.Stop(); stopErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("session sync shutdown: %w", stopErr),
			)
		}
	}
	n.players = make(map[string]*Player)
	n.playersMutex.Unlock()

	// Phase 2: Stop event consumers
	n.config.logger.Debug("shutdown phase 2: stopping event consumers")

	if n.inventory != nil {
		if stopErr := n.inventory.Stop(); stopErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("inventory shutdown: %w", stopErr),
			)
		}
	}

	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	// Phase 3: Cleanup resources and close database
	n.config.logger.Debug("shutdown phase 3: cleanup resources")

	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	n.config.logger.Debug("graceful shutdown complete")
	close(n.done)
	return err
}
