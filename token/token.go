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

// Package token implements the GLD token ledger: per-player balances and
// standing spend allowances. The session ledger consumes it through the
// allowance/transfer-from flow, and the inventory sell flow mints against it.
package token

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/goldmine/database"
	"github.com/blinklabs-io/goldmine/database/models"
	"gorm.io/gorm"
)

var ErrZeroAmount = errors.New("amount must be greater than zero")

type InsufficientBalanceError struct {
	Required  uint64
	Available uint64
}

func (e InsufficientBalanceError) Error() string {
	return fmt.Sprintf(
		"insufficient balance: required %d, available %d",
		e.Required,
		e.Available,
	)
}

// Shortfall returns how much is missing
func (e InsufficientBalanceError) Shortfall() uint64 {
	return e.Required - e.Available
}

type InsufficientAllowanceError struct {
	Required  uint64
	Available uint64
}

func (e InsufficientAllowanceError) Error() string {
	return fmt.Sprintf(
		"insufficient allowance: required %d, available %d",
		e.Required,
		e.Available,
	)
}

// Shortfall returns how much is missing
func (e InsufficientAllowanceError) Shortfall() uint64 {
	return e.Required - e.Available
}

type LedgerConfig struct {
	Database *database.Database
	Logger   *slog.Logger
}

// Ledger is the single writer for balance and allowance state
type Ledger struct {
	db     *database.Database
	logger *slog.Logger
	mutex  sync.Mutex
}

func NewLedger(cfg LedgerConfig) *Ledger {
	l := &Ledger{
		db: cfg.Database,
	}
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		l.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		l.logger = cfg.Logger
	}
	return l
}

// BalanceOf returns the player's current balance. Unknown players have a
// zero balance, not an error
func (l *Ledger) BalanceOf(player string) (uint64, error) {
	var balance models.Balance
	result := l.db.Metadata().DB().
		Where("player = ?", player).
		First(&balance)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, result.Error
	}
	return balance.Amount, nil
}

// Allowance returns the standing authorization from owner to spender
func (l *Ledger) Allowance(owner, spender string) (uint64, error) {
	var allowance models.Allowance
	result := l.db.Metadata().DB().
		Where("owner = ? AND spender = ?", owner, spender).
		First(&allowance)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, result.Error
	}
	return allowance.Amount, nil
}

// Approve sets the allowance from owner to spender to the given absolute
// amount, replacing any prior authorization
func (l *Ledger) Approve(owner, spender string, amount uint64) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	db := l.db.Metadata().DB()
	allowance := &models.Allowance{}
	result := db.FirstOrCreate(
		allowance,
		models.Allowance{Owner: owner, Spender: spender},
	)
	if result.Error != nil {
		return fmt.Errorf("failed to find or create allowance: %w", result.Error)
	}
	if err := db.Model(allowance).Update("amount", amount).Error; err != nil {
		return fmt.Errorf("failed to update allowance: %w", err)
	}
	l.logger.Debug(
		"approved allowance",
		"component", "token",
		"owner", owner,
		"spender", spender,
		"amount", amount,
	)
	return nil
}

// Mint credits newly created tokens to the player
func (l *Ledger) Mint(player string, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.credit(l.db.Metadata().DB(), player, amount)
}

// Transfer moves tokens directly from one player to a recipient. Used for
// spends the owner submits themselves (e.g. pickaxe purchases), which need
// no standing allowance
func (l *Ledger) Transfer(from, to string, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.db.Metadata().Transaction(func(txn *gorm.DB) error {
		if err := l.debit(txn, from, amount); err != nil {
			return err
		}
		return l.credit(txn, to, amount)
	})
}

// TransferFrom moves tokens from owner to recipient on behalf of spender,
// consuming the owner's allowance. Allowance is checked before balance so
// the caller can distinguish which authorization is missing
func (l *Ledger) TransferFrom(
	spender, owner, recipient string,
	amount uint64,
) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.db.Metadata().Transaction(func(txn *gorm.DB) error {
		var allowance models.Allowance
		result := txn.Where("owner = ? AND spender = ?", owner, spender).
			First(&allowance)
		if result.Error != nil &&
			!errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return result.Error
		}
		if allowance.Amount < amount {
			return InsufficientAllowanceError{
				Required:  amount,
				Available: allowance.Amount,
			}
		}
		if err := l.debit(txn, owner, amount); err != nil {
			return err
		}
		if err := l.credit(txn, recipient, amount); err != nil {
			return err
		}
		newAllowance := allowance.Amount - amount
		if err := txn.Model(&allowance).Update("amount", newAllowance).Error; err != nil {
			return fmt.Errorf("failed to update allowance: %w", err)
		}
		return nil
	})
}

func (l *Ledger) credit(txn *gorm.DB, player string, amount uint64) error {
	balance := &models.Balance{}
	result := txn.FirstOrCreate(balance, models.Balance{Player: player})
	if result.Error != nil {
		return fmt.Errorf("failed to find or create balance: %w", result.Error)
	}
	newAmount := balance.Amount + amount
	if err := txn.Model(balance).Update("amount", newAmount).Error; err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return nil
}

func (l *Ledger) debit(txn *gorm.DB, player string, amount uint64) error {
	var balance models.Balance
	result := txn.Where("player = ?", player).First(&balance)
	if result.Error != nil &&
		!errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}
	if balance.Amount < amount {
		return InsufficientBalanceError{
			Required:  amount,
			Available: balance.Amount,
		}
	}
	newAmount := balance.Amount - amount
	if err := txn.Model(&balance).Update("amount", newAmount).Error; err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return nil
}
