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

// Package sessionsync keeps a client-side view of the player's active
// session in sync with the ledger. It polls ground truth on a coarse
// interval and runs a fine-grained local countdown between polls, so
// access checks stay cheap and expiry is detected within a second even
// when the next poll is several seconds out.
package sessionsync

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/goldmine/config/game"
	"github.com/blinklabs-io/goldmine/event"
	"github.com/blinklabs-io/goldmine/ledger"
)

const (
	defaultPollInterval = 10 * time.Second
	defaultTickInterval = 1 * time.Second
)

// SessionReader reads the player's active session from ground truth
type SessionReader interface {
	ActiveSession(player string) (ledger.Session, bool, error)
}

type SynchronizerConfig struct {
	Logger     *slog.Logger
	EventBus   *event.EventBus
	GameConfig *game.GameConfig
	Sessions   SessionReader
	Player     string
	// PollInterval is how often ground truth is re-read
	PollInterval time.Duration
	// TickInterval is the local countdown resolution
	TickInterval time.Duration
}

// Synchronizer owns the local session state for one player. All reads go
// through its mutex; nothing else mutates the cached session.
type Synchronizer struct {
	logger       *slog.Logger
	eventBus     *event.EventBus
	gameConfig   *game.GameConfig
	sessions     SessionReader
	player       string
	pollInterval time.Duration
	tickInterval time.Duration

	mutex     sync.RWMutex
	current   ledger.Session
	hasActive bool
	remaining uint64
	// expiredEnd is the end time of the session the local countdown last
	// declared expired. A poll returning that same end time does not
	// restore access; only a newer session can.
	expiredEnd time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	quitChan  chan struct{}
	doneChan  chan struct{}
}

func NewSynchronizer(cfg SynchronizerConfig) *Synchronizer {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = defaultTickInterval
	}
	return &Synchronizer{
		logger: cfg.Logger.With(
			"component", "sessionsync",
			"player", cfg.Player,
		),
		eventBus:     cfg.EventBus,
		gameConfig:   cfg.GameConfig,
		sessions:     cfg.Sessions,
		player:       cfg.Player,
		pollInterval: cfg.PollInterval,
		tickInterval: cfg.TickInterval,
		quitChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start performs an initial sync and launches the poll and countdown
// loops
func (s *Synchronizer) Start() error {
	var err error
	s.startOnce.Do(func() {
		err = s.Refresh()
		go s.run()
	})
	return err
}

// Stop terminates the background loops
func (s *Synchronizer) Stop() error {
	s.stopOnce.Do(func() {
		close(s.quitChan)
		<-s.doneChan
	})
	return nil
}

func (s *Synchronizer) run() {
	defer close(s.doneChan)
	pollTicker := time.NewTicker(s.pollInterval)
	defer pollTicker.Stop()
	tickTicker := time.NewTicker(s.tickInterval)
	defer tickTicker.Stop()
	for {
		select {
		case <-s.quitChan:
			return
		case <-pollTicker.C:
			if err := s.Refresh(); err != nil {
				s.logger.Warn(
					"session poll failed",
					"error", err,
				)
			}
		case <-tickTicker.C:
			s.countdown()
		}
	}
}

// Refresh re-reads the active session from ground truth. A polled end
// time replaces the local countdown in either direction, with one
// exception: the end time the countdown has already declared expired
// cannot restore access.
func (s *Synchronizer) Refresh() error {
	session, found, err := s.sessions.ActiveSession(s.player)
	if err != nil {
		return err
	}
	now := time.Now()
	// Never resurrect a session the clock has already killed
	if found && session.Expired(now) {
		found = false
	}
	s.mutex.Lock()
	hadActive := s.hasActive
	prev := s.current
	// The countdown already declared this exact session expired; only a
	// session with a newer end time restores access
	if found && session.EndTime.Equal(s.expiredEnd) {
		found = false
	}
	if found {
		s.current = session
		s.hasActive = true
		s.remaining = uint64(session.Remaining(now) / time.Second)
		s.expiredEnd = time.Time{}
	} else {
		s.current = ledger.Session{}
		s.hasActive = false
		s.remaining = 0
	}
	s.mutex.Unlock()
	if hadActive && !found {
		s.publishExpired(prev)
	}
	return nil
}

// countdown decrements the local remaining time by one tick and detects
// expiry between polls
func (s *Synchronizer) countdown() {
	s.mutex.Lock()
	if !s.hasActive {
		s.mutex.Unlock()
		return
	}
	tickSeconds := uint64(s.tickInterval / time.Second)
	if tickSeconds == 0 {
		tickSeconds = 1
	}
	if s.remaining > tickSeconds {
		s.remaining -= tickSeconds
		s.mutex.Unlock()
		return
	}
	// Local expiry
	expired := s.current
	s.current = ledger.Session{}
	s.hasActive = false
	s.remaining = 0
	s.expiredEnd = expired.EndTime
	s.mutex.Unlock()
	s.logger.Info(
		"session expired",
		"level", expired.LevelId,
	)
	s.publishExpired(expired)
	// Corrective poll in case a newer session exists that the local
	// countdown knew nothing about
	if err := s.Refresh(); err != nil {
		s.logger.Warn(
			"post-expiry poll failed",
			"error", err,
		)
	}
}

func (s *Synchronizer) publishExpired(session ledger.Session) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(
		SessionExpiredEventType,
		event.NewEvent(
			SessionExpiredEventType,
			SessionExpiredEvent{
				Player:  s.player,
				LevelId: session.LevelId,
				EndTime: session.EndTime,
			},
		),
	)
}

// HasAccess reports whether the player can currently mine the given
// level. Free levels are always accessible; paid levels require an
// unexpired session on that exact level.
func (s *Synchronizer) HasAccess(levelId game.LevelId) bool {
	level, ok := s.gameConfig.Level(levelId)
	if !ok {
		return false
	}
	if level.Free() {
		return true
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.hasActive && s.current.LevelId == levelId && s.remaining > 0
}

// TimeRemaining returns the local view of seconds left in the active
// session, zero when there is none
func (s *Synchronizer) TimeRemaining() uint64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.hasActive {
		return 0
	}
	return s.remaining
}

// ActiveSession returns the cached session and whether one is active
func (s *Synchronizer) ActiveSession() (ledger.Session, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.current, s.hasActive
}
