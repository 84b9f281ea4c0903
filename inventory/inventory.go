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

// Package inventory tracks each player's mined ore and handles selling
// it for tokens. Ore arrives via mining events; counts are persisted so
// inventory survives restarts.
package inventory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/goldmine/config/game"
	"github.com/blinklabs-io/goldmine/database"
	"github.com/blinklabs-io/goldmine/database/models"
	"github.com/blinklabs-io/goldmine/event"
	"github.com/blinklabs-io/goldmine/mining"
	"gorm.io/gorm"
)

var ErrNothingToSell = errors.New("no ore to sell")

// Minter mints new tokens into a player's balance
type Minter interface {
	Mint(account string, amount uint64) error
}

// Item is a player's holding of one material
type Item struct {
	Material string
	Count    uint64
}

// SaleResult summarizes a completed sale
type SaleResult struct {
	SoldAt     time.Time
	Items      []Item
	TotalValue uint64
}

type StoreConfig struct {
	Logger     *slog.Logger
	Database   *database.Database
	EventBus   *event.EventBus
	GameConfig *game.GameConfig
	Token      Minter
}

type Store struct {
	logger     *slog.Logger
	db         *database.Database
	eventBus   *event.EventBus
	gameConfig *game.GameConfig
	token      Minter
	subId      event.EventSubscriberId
	subscribed bool
}

func NewStore(cfg StoreConfig) *Store {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Store{
		logger: cfg.Logger.With(
			"component", "inventory",
		),
		db:         cfg.Database,
		eventBus:   cfg.EventBus,
		gameConfig: cfg.GameConfig,
		token:      cfg.Token,
	}
}

// Start subscribes the store to mining events so completed operations
// land in player inventories
func (s *Store) Start() error {
	if s.eventBus == nil {
		return nil
	}
	s.subId = s.eventBus.SubscribeFunc(
		mining.OreMinedEventType,
		s.handleOreMined,
	)
	s.subscribed = true
	return nil
}

func (s *Store) Stop() error {
	if s.subscribed {
		s.eventBus.Unsubscribe(mining.OreMinedEventType, s.subId)
		s.subscribed = false
	}
	return nil
}

func (s *Store) handleOreMined(evt event.Event) {
	oreMined, ok := evt.Data.(mining.OreMinedEvent)
	if !ok {
		return
	}
	if err := s.Add(oreMined.Player, oreMined.Material, 1); err != nil {
		s.logger.Error(
			"failed to record mined ore",
			"player", oreMined.Player,
			"material", oreMined.Material,
			"error", err,
		)
	}
}

// Add credits count units of a material to a player's inventory
func (s *Store) Add(player string, material string, count uint64) error {
	if _, ok := s.gameConfig.Material(material); !ok {
		return fmt.Errorf("unknown material: %s", material)
	}
	metadata := s.db.Metadata()
	item := models.InventoryItem{
		Player:   player,
		Material: material,
	}
	result := metadata.DB().
		Where(&item).
		FirstOrCreate(&item)
	if result.Error != nil {
		return result.Error
	}
	result = metadata.DB().
		Model(&models.InventoryItem{}).
		Where("player = ? AND material = ?", player, material).
		Update("count", gorm.Expr("count + ?", count))
	return result.Error
}

// Items returns a player's current holdings, omitting empty entries
func (s *Store) Items(player string) ([]Item, error) {
	var rows []models.InventoryItem
	result := s.db.Metadata().DB().
		Where("player = ? AND count > 0", player).
		Order("material").
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	ret := make([]Item, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, Item{
			Material: row.Material,
			Count:    row.Count,
		})
	}
	return ret, nil
}

// SellAll sells a player's entire inventory at configured material
// values, zeroes the counts, records the sale, and mints the proceeds
// into the player's balance
func (s *Store) SellAll(player string) (SaleResult, error) {
	var ret SaleResult
	err := s.db.Metadata().Transaction(func(tx *gorm.DB) error {
		var rows []models.InventoryItem
		result := tx.
			Where("player = ? AND count > 0", player).
			Find(&rows)
		if result.Error != nil {
			return result.Error
		}
		if len(rows) == 0 {
			return ErrNothingToSell
		}
		for _, row := range rows {
			material, ok := s.gameConfig.Material(row.Material)
			if !ok {
				// Material removed from config; sells for nothing
				continue
			}
			ret.Items = append(ret.Items, Item{
				Material: row.Material,
				Count:    row.Count,
			})
			ret.TotalValue += material.Value * row.Count
		}
		result = tx.
			Model(&models.InventoryItem{}).
			Where("player = ?", player).
			Update("count", 0)
		if result.Error != nil {
			return result.Error
		}
		ret.SoldAt = time.Now()
		sale := models.Sale{
			Player:     player,
			TotalValue: ret.TotalValue,
			SoldAt:     ret.SoldAt.Unix(),
		}
		return tx.Create(&sale).Error
	})
	if err != nil {
		return SaleResult{}, err
	}
	if ret.TotalValue > 0 {
		if err := s.token.Mint(player, ret.TotalValue); err != nil {
			return SaleResult{}, fmt.Errorf(
				"sale recorded but payout failed: %w",
				err,
			)
		}
	}
	s.logger.Info(
		"inventory sold",
		"player", player,
		"value", ret.TotalValue,
		"materials", len(ret.Items),
	)
	return ret, nil
}

// PlayerSales returns the lifetime sale proceeds for one player
func (s *Store) PlayerSales(player string) (uint64, error) {
	var total uint64
	result := s.db.Metadata().DB().
		Model(&models.Sale{}).
		Where("player = ?", player).
		Select("COALESCE(SUM(total_value), 0)").
		Scan(&total)
	return total, result.Error
}

// TotalSales returns the lifetime sale proceeds across all players
func (s *Store) TotalSales() (uint64, error) {
	var total uint64
	result := s.db.Metadata().DB().
		Model(&models.Sale{}).
		Select("COALESCE(SUM(total_value), 0)").
		Scan(&total)
	return total, result.Error
}
