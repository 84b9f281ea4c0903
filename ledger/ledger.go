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

// Package ledger implements the authoritative session ledger: the state
// machine granting metered, pay-per-second access to mining levels. It is
// the single writer of session state. Whether a session is currently valid
// is always derived from its end time relative to the clock, never from the
// stored active flag, since expiry happens without any transaction.
package ledger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/goldmine/config/game"
	"github.com/blinklabs-io/goldmine/database"
	"github.com/blinklabs-io/goldmine/database/models"
	"github.com/blinklabs-io/goldmine/event"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// SpenderAccount is the identity the session ledger spends player
// allowances as. Purchases approve this account before starting a session
const SpenderAccount = "session-ledger"

// TreasuryAccount receives consumed session payments
const TreasuryAccount = "treasury"

// Session is a time-boxed, paid grant of access to one level for one player
type Session struct {
	Player    string
	StartTime time.Time
	EndTime   time.Time
	LevelId   game.LevelId
	Active    bool
}

// Expired returns whether the session has passed its end time
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.EndTime)
}

// Remaining returns the time left before expiry, clamped at zero
func (s Session) Remaining(now time.Time) time.Duration {
	if s.Expired(now) {
		return 0
	}
	return s.EndTime.Sub(now)
}

// TierReader provides the player's current equipment tier
type TierReader interface {
	CurrentTier(player string) (game.Tier, error)
}

// TokenLedger provides the balance/allowance operations the session ledger
// depends on
type TokenLedger interface {
	BalanceOf(player string) (uint64, error)
	Allowance(owner, spender string) (uint64, error)
	TransferFrom(spender, owner, recipient string, amount uint64) error
}

type SessionLedgerConfig struct {
	Database     *database.Database
	EventBus     *event.EventBus
	GameConfig   *game.GameConfig
	Tiers        TierReader
	Token        TokenLedger
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

// SessionLedger is the authoritative state machine for paid sessions
type SessionLedger struct {
	config  SessionLedgerConfig
	metrics struct {
		sessionsStarted prometheus.Counter
		sessionsEnded   prometheus.Counter
		sessionRevenue  prometheus.Counter
	}
	db       *database.Database
	eventBus *event.EventBus
	gameCfg  *game.GameConfig
	tiers    TierReader
	token    TokenLedger
	logger   *slog.Logger
	mutex    sync.Mutex
}

func NewSessionLedger(cfg SessionLedgerConfig) *SessionLedger {
	l := &SessionLedger{
		config:   cfg,
		db:       cfg.Database,
		eventBus: cfg.EventBus,
		gameCfg:  cfg.GameConfig,
		tiers:    cfg.Tiers,
		token:    cfg.Token,
	}
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		l.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		l.logger = cfg.Logger
	}
	l.initMetrics(cfg.PromRegistry)
	return l
}

// StartSession creates a paid session for the player. Preconditions are
// checked in a fixed order so failures are distinguishable: existing
// session, duration bounds, equipment tier, then funds. Payment is consumed
// atomically with session creation; there is no per-second trickle
func (l *SessionLedger) StartSession(
	player string,
	levelId game.LevelId,
	seconds uint64,
) (Session, error) {
	level, ok := l.gameCfg.Level(levelId)
	if !ok {
		return Session{}, ErrUnknownLevel
	}
	if level.Free() {
		return Session{}, ErrFreeLevel
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	now := time.Now()
	// Reject while an unexpired session exists. Expired sessions are
	// superseded in place, no explicit end transaction required
	if existing, found, err := l.activeSession(player, now); err != nil {
		return Session{}, err
	} else if found {
		return Session{}, SessionAlreadyActiveError{
			LevelId:   existing.LevelId,
			Remaining: existing.Remaining(now),
		}
	}
	if seconds < level.MinSessionSeconds ||
		seconds > level.MaxSessionSeconds {
		return Session{}, InvalidDurationError{
			Min:       level.MinSessionSeconds,
			Max:       level.MaxSessionSeconds,
			Requested: seconds,
		}
	}
	// Tier gating happens before any payment check
	currentTier, err := l.tiers.CurrentTier(player)
	if err != nil {
		return Session{}, fmt.Errorf("failed to read equipment tier: %w", err)
	}
	if !currentTier.Meets(level.RequiredTier) {
		return Session{}, InsufficientTierError{
			Required: level.RequiredTier,
			Current:  currentTier,
		}
	}
	cost := level.SessionCost(seconds)
	if err := l.consumePayment(player, cost); err != nil {
		return Session{}, err
	}
	session := Session{
		Player:    player,
		LevelId:   levelId,
		StartTime: now,
		EndTime:   now.Add(time.Duration(seconds) * time.Second), //nolint:gosec
		Active:    true,
	}
	if err := l.persistSession(session); err != nil {
		return Session{}, err
	}
	l.metrics.sessionsStarted.Inc()
	l.metrics.sessionRevenue.Add(float64(cost))
	l.logger.Info(
		"session started",
		"component", "ledger",
		"player", player,
		"level", levelId,
		"seconds", seconds,
		"cost", cost,
	)
	l.eventBus.Publish(
		SessionStartEventType,
		event.NewEvent(
			SessionStartEventType,
			SessionStartEvent{
				Player:    player,
				LevelId:   levelId,
				StartTime: session.StartTime,
				EndTime:   session.EndTime,
				Cost:      cost,
			},
		),
	)
	return session, nil
}

// consumePayment debits the session cost through the player's standing
// allowance. Allowance and balance are checked up front so the error can
// carry the exact shortfall
func (l *SessionLedger) consumePayment(player string, cost uint64) error {
	allowance, err := l.token.Allowance(player, SpenderAccount)
	if err != nil {
		return fmt.Errorf("failed to read allowance: %w", err)
	}
	if allowance < cost {
		return InsufficientFundsError{
			Required:  cost,
			Available: allowance,
		}
	}
	balance, err := l.token.BalanceOf(player)
	if err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}
	if balance < cost {
		return InsufficientFundsError{
			Required:  cost,
			Available: balance,
		}
	}
	return l.token.TransferFrom(SpenderAccount, player, TreasuryAccount, cost)
}

// EndSession terminates the player's active session. Unused time is not
// refunded: time-based pricing is non-refundable once a session starts
func (l *SessionLedger) EndSession(player string) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	now := time.Now()
	session, found, err := l.activeSession(player, now)
	if err != nil {
		return err
	}
	if !found {
		return ErrNoActiveSession
	}
	result := l.db.Metadata().DB().
		Model(&models.Session{}).
		Where("player = ? AND active = ?", player, true).
		Updates(map[string]any{
			"active":   false,
			"end_time": now.Unix(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to end session: %w", result.Error)
	}
	l.metrics.sessionsEnded.Inc()
	l.logger.Info(
		"session ended",
		"component", "ledger",
		"player", player,
		"level", session.LevelId,
	)
	l.eventBus.Publish(
		SessionEndEventType,
		event.NewEvent(
			SessionEndEventType,
			SessionEndEvent{
				Player:  player,
				LevelId: session.LevelId,
				EndedAt: now,
			},
		),
	)
	return nil
}

// ActiveSession returns the player's current session, if one exists and has
// not expired. The no-session case is a normal result, not an error, since
// this is polled continuously
func (l *SessionLedger) ActiveSession(player string) (Session, bool, error) {
	return l.activeSession(player, time.Now())
}

func (l *SessionLedger) activeSession(
	player string,
	now time.Time,
) (Session, bool, error) {
	var record models.Session
	result := l.db.Metadata().DB().
		Where("player = ? AND active = ?", player, true).
		Order("id DESC").
		First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Session{}, false, nil
		}
		return Session{}, false, result.Error
	}
	session := Session{
		Player:    record.Player,
		LevelId:   game.LevelId(record.LevelId),
		StartTime: time.Unix(record.StartTime, 0),
		EndTime:   time.Unix(record.EndTime, 0),
		Active:    record.Active,
	}
	// The stored flag can lag reality when no end transaction was mined.
	// Validity is derived from time
	if session.Expired(now) {
		return Session{}, false, nil
	}
	return session, true, nil
}

// persistSession marks any prior session rows inactive and inserts the new
// session
func (l *SessionLedger) persistSession(session Session) error {
	return l.db.Metadata().Transaction(func(txn *gorm.DB) error {
		result := txn.Model(&models.Session{}).
			Where("player = ? AND active = ?", session.Player, true).
			Update("active", false)
		if result.Error != nil {
			return fmt.Errorf(
				"failed to supersede prior session: %w",
				result.Error,
			)
		}
		record := models.Session{
			Player:    session.Player,
			LevelId:   uint8(session.LevelId),
			StartTime: session.StartTime.Unix(),
			EndTime:   session.EndTime.Unix(),
			Active:    true,
		}
		if result := txn.Create(&record); result.Error != nil {
			return fmt.Errorf("failed to create session: %w", result.Error)
		}
		return nil
	})
}
