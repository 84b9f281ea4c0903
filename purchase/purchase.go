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

// Package purchase implements the two-phase session purchase protocol:
// approve the spend allowance, then start the session. Each phase can
// abort ambiguously, so the protocol never infers failure from an abort
// alone; it re-reads ground truth before deciding.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/goldmine/config/game"
	"github.com/blinklabs-io/goldmine/ledger"
	"github.com/blinklabs-io/goldmine/txsubmit"
)

const (
	repollBackoffMin = 200 * time.Millisecond
	repollBackoffMax = 2 * time.Second
	repollAttempts   = 5
)

// AllowanceReader reads the current allowance from ground truth
type AllowanceReader interface {
	Allowance(owner string, spender string) (uint64, error)
}

// SessionReader reads the player's active session from ground truth
type SessionReader interface {
	ActiveSession(player string) (ledger.Session, bool, error)
}

// AmbiguousStateError is returned when a phase aborted and re-polling
// ground truth could not confirm that the state change landed. The
// submission may still land later; the caller should surface this as a
// retriable condition, not as a definitive rejection.
type AmbiguousStateError struct {
	Err   error
	Phase string
}

func (e AmbiguousStateError) Error() string {
	return fmt.Sprintf(
		"purchase %s phase aborted and state could not be confirmed: %s",
		e.Phase,
		e.Err,
	)
}

func (e AmbiguousStateError) Unwrap() error {
	return e.Err
}

type PurchaserConfig struct {
	Logger     *slog.Logger
	GameConfig *game.GameConfig
	Submitter  txsubmit.Submitter
	Allowances AllowanceReader
	Sessions   SessionReader
	// Spender is the account the session ledger pulls payment through
	Spender string
	// BackoffMin/BackoffMax/Attempts override the re-poll schedule,
	// mainly for tests
	BackoffMin time.Duration
	BackoffMax time.Duration
	Attempts   int
}

// Purchaser drives the purchase protocol for a single signing identity
type Purchaser struct {
	logger     *slog.Logger
	gameConfig *game.GameConfig
	submitter  txsubmit.Submitter
	allowances AllowanceReader
	sessions   SessionReader
	spender    string
	backoffMin time.Duration
	backoffMax time.Duration
	attempts   int
}

func NewPurchaser(cfg PurchaserConfig) *Purchaser {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.BackoffMin == 0 {
		cfg.BackoffMin = repollBackoffMin
	}
	if cfg.BackoffMax == 0 {
		cfg.BackoffMax = repollBackoffMax
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = repollAttempts
	}
	return &Purchaser{
		logger: cfg.Logger.With(
			"component", "purchase",
		),
		gameConfig: cfg.GameConfig,
		submitter:  cfg.Submitter,
		allowances: cfg.Allowances,
		sessions:   cfg.Sessions,
		spender:    cfg.Spender,
		backoffMin: cfg.BackoffMin,
		backoffMax: cfg.BackoffMax,
		attempts:   cfg.Attempts,
	}
}

// PurchaseAndStart runs the full protocol for a paid level. The session
// cost is computed once up front and used for both phases, so a price
// change mid-protocol cannot desync the allowance from the charge.
func (p *Purchaser) PurchaseAndStart(
	ctx context.Context,
	player string,
	levelId game.LevelId,
	seconds uint64,
) (ledger.Session, error) {
	level, ok := p.gameConfig.Level(levelId)
	if !ok {
		return ledger.Session{}, ledger.ErrUnknownLevel
	}
	if level.Free() {
		return ledger.Session{}, ledger.ErrFreeLevel
	}
	cost := level.SessionCost(seconds)
	if err := p.ensureAllowance(ctx, player, cost); err != nil {
		return ledger.Session{}, err
	}
	return p.startSession(ctx, player, levelId, seconds)
}

// ensureAllowance is phase one. An existing allowance covering the cost
// short-circuits the approve entirely.
func (p *Purchaser) ensureAllowance(
	ctx context.Context,
	player string,
	cost uint64,
) error {
	current, err := p.allowances.Allowance(player, p.spender)
	if err != nil {
		return fmt.Errorf("failed to read allowance: %w", err)
	}
	if current >= cost {
		p.logger.Debug(
			"existing allowance covers cost, skipping approve",
			"player", player,
			"allowance", current,
			"cost", cost,
		)
		return nil
	}
	result := p.submitter.Submit(
		ctx,
		txsubmit.ApproveTx{
			Player:  player,
			Spender: p.spender,
			Amount:  cost,
		},
	)
	switch result.Outcome {
	case txsubmit.OutcomeSuccess:
		return nil
	case txsubmit.OutcomeRejected:
		return result.Err
	}
	// Ambiguous abort: the approve may have landed. Re-poll the
	// allowance before deciding
	p.logger.Warn(
		"approve aborted, re-polling allowance",
		"player", player,
		"error", result.Err,
	)
	confirmed, err := p.repoll(
		ctx,
		func() (bool, error) {
			current, err := p.allowances.Allowance(player, p.spender)
			if err != nil {
				return false, err
			}
			return current >= cost, nil
		},
	)
	if err != nil {
		return AmbiguousStateError{Phase: "approve", Err: err}
	}
	if !confirmed {
		return AmbiguousStateError{Phase: "approve", Err: result.Err}
	}
	p.logger.Info(
		"aborted approve confirmed via allowance re-poll",
		"player", player,
	)
	return nil
}

// startSession is phase two
func (p *Purchaser) startSession(
	ctx context.Context,
	player string,
	levelId game.LevelId,
	seconds uint64,
) (ledger.Session, error) {
	result := p.submitter.Submit(
		ctx,
		txsubmit.StartSessionTx{
			Player:  player,
			LevelId: levelId,
			Seconds: seconds,
		},
	)
	switch result.Outcome {
	case txsubmit.OutcomeSuccess:
		session, found, err := p.sessions.ActiveSession(player)
		if err != nil {
			return ledger.Session{}, fmt.Errorf(
				"failed to read session after start: %w",
				err,
			)
		}
		if !found {
			return ledger.Session{}, errors.New(
				"session not found after confirmed start",
			)
		}
		return session, nil
	case txsubmit.OutcomeRejected:
		return ledger.Session{}, result.Err
	}
	// Ambiguous abort: the session may exist. Ground truth decides
	p.logger.Warn(
		"session start aborted, re-polling active session",
		"player", player,
		"error", result.Err,
	)
	var session ledger.Session
	confirmed, err := p.repoll(
		ctx,
		func() (bool, error) {
			s, found, err := p.sessions.ActiveSession(player)
			if err != nil {
				return false, err
			}
			if found && s.LevelId == levelId {
				session = s
				return true, nil
			}
			return false, nil
		},
	)
	if err != nil {
		return ledger.Session{}, AmbiguousStateError{
			Phase: "start",
			Err:   err,
		}
	}
	if !confirmed {
		return ledger.Session{}, AmbiguousStateError{
			Phase: "start",
			Err:   result.Err,
		}
	}
	p.logger.Info(
		"aborted session start confirmed via re-poll",
		"player", player,
		"level", levelId,
	)
	return session, nil
}

// repoll checks ground truth with exponential backoff between attempts.
// It returns true as soon as the check confirms, false after the attempt
// budget is exhausted, and an error only for context cancellation or a
// persistent read failure.
func (p *Purchaser) repoll(
	ctx context.Context,
	check func() (bool, error),
) (bool, error) {
	var lastErr error
	backoff := p.backoffMin
	for i := 0; i < p.attempts; i++ {
		ok, err := check()
		if err == nil && ok {
			return true, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > p.backoffMax {
			backoff = p.backoffMax
		}
	}
	if lastErr != nil {
		return false, lastErr
	}
	return false, nil
}
