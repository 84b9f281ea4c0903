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

// Package equipment tracks each player's pickaxe tier. The tier both gates
// access to paid levels and determines the mining speed multiplier. Upgrades
// are strictly sequential and paid in GLD.
package equipment

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/goldmine/config/game"
	"github.com/blinklabs-io/goldmine/database"
	"github.com/blinklabs-io/goldmine/database/models"
	"github.com/blinklabs-io/goldmine/token"
	"gorm.io/gorm"
)

// TreasuryAccount receives pickaxe purchase payments
const TreasuryAccount = "treasury"

var ErrUnknownPickaxe = errors.New("unknown pickaxe tier")

type NotNextTierError struct {
	Current   game.Tier
	Requested game.Tier
}

func (e NotNextTierError) Error() string {
	return fmt.Sprintf(
		"pickaxe upgrades are sequential: current tier %s, requested %s",
		e.Current,
		e.Requested,
	)
}

type StoreConfig struct {
	Database   *database.Database
	GameConfig *game.GameConfig
	Token      *token.Ledger
	Logger     *slog.Logger
}

// Store is the single writer for per-player equipment state
type Store struct {
	db      *database.Database
	gameCfg *game.GameConfig
	token   *token.Ledger
	logger  *slog.Logger
	mutex   sync.Mutex
}

func NewStore(cfg StoreConfig) *Store {
	s := &Store{
		db:      cfg.Database,
		gameCfg: cfg.GameConfig,
		token:   cfg.Token,
	}
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		s.logger = cfg.Logger
	}
	return s
}

// CurrentTier returns the player's pickaxe tier. Players with no equipment
// record hold the starter (wooden) pickaxe
func (s *Store) CurrentTier(player string) (game.Tier, error) {
	var equipment models.Equipment
	result := s.db.Metadata().DB().
		Where("player = ?", player).
		First(&equipment)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return game.TierWooden, nil
		}
		return game.TierWooden, result.Error
	}
	return game.Tier(equipment.Tier), nil
}

// SpeedMultiplier returns the mining speed multiplier for the player's
// current pickaxe
func (s *Store) SpeedMultiplier(player string) (float64, error) {
	tier, err := s.CurrentTier(player)
	if err != nil {
		return 0, err
	}
	pickaxe, ok := s.gameCfg.Pickaxe(tier)
	if !ok {
		return 0, ErrUnknownPickaxe
	}
	return pickaxe.SpeedMultiplier, nil
}

// BuyPickaxe upgrades the player to the requested tier, paying its price in
// GLD. Only the next tier up can be purchased
func (s *Store) BuyPickaxe(player string, tier game.Tier) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	current, err := s.CurrentTier(player)
	if err != nil {
		return err
	}
	if tier != current+1 {
		return NotNextTierError{
			Current:   current,
			Requested: tier,
		}
	}
	pickaxe, ok := s.gameCfg.Pickaxe(tier)
	if !ok {
		return ErrUnknownPickaxe
	}
	if pickaxe.Price > 0 {
		if err := s.token.Transfer(player, TreasuryAccount, pickaxe.Price); err != nil {
			return err
		}
	}
	db := s.db.Metadata().DB()
	equipment := &models.Equipment{}
	result := db.FirstOrCreate(equipment, models.Equipment{Player: player})
	if result.Error != nil {
		return fmt.Errorf(
			"failed to find or create equipment: %w",
			result.Error,
		)
	}
	if err := db.Model(equipment).Update("tier", int(tier)).Error; err != nil {
		return fmt.Errorf("failed to update equipment: %w", err)
	}
	s.logger.Info(
		"pickaxe purchased",
		"component", "equipment",
		"player", player,
		"tier", tier.String(),
		"price", pickaxe.Price,
	)
	return nil
}
