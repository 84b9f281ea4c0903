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

package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/blinklabs-io/goldmine/config/game"
)

var (
	ErrNoActiveSession = errors.New("no active session")
	ErrUnknownLevel    = errors.New("unknown level")
	ErrFreeLevel       = errors.New(
		"level is free and requires no session",
	)
)

// SessionAlreadyActiveError is returned when a player attempts to start a
// session while an unexpired one exists. Remaining lets the caller explain
// why the request was rejected
type SessionAlreadyActiveError struct {
	LevelId   game.LevelId
	Remaining time.Duration
}

func (e SessionAlreadyActiveError) Error() string {
	return fmt.Sprintf(
		"session already active for level %d with %s remaining",
		e.LevelId,
		e.Remaining,
	)
}

type InvalidDurationError struct {
	Min       uint64
	Max       uint64
	Requested uint64
}

func (e InvalidDurationError) Error() string {
	return fmt.Sprintf(
		"requested duration %ds outside level bounds [%ds, %ds]",
		e.Requested,
		e.Min,
		e.Max,
	)
}

type InsufficientTierError struct {
	Required game.Tier
	Current  game.Tier
}

func (e InsufficientTierError) Error() string {
	return fmt.Sprintf(
		"level requires %s tier or better, current tier is %s",
		e.Required,
		e.Current,
	)
}

// InsufficientFundsError is returned when the player's allowance or balance
// cannot cover the session cost. Shortfall carries the exact missing amount
type InsufficientFundsError struct {
	Required  uint64
	Available uint64
}

func (e InsufficientFundsError) Error() string {
	return fmt.Sprintf(
		"insufficient funds: required %d, available %d",
		e.Required,
		e.Available,
	)
}

func (e InsufficientFundsError) Shortfall() uint64 {
	return e.Required - e.Available
}
