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
	"time"

	"github.com/blinklabs-io/goldmine/config/game"
	"github.com/blinklabs-io/goldmine/event"
)

const (
	// SessionStartEventType is emitted when a paid session is created
	SessionStartEventType event.EventType = "session.start"

	// SessionEndEventType is emitted when a session is terminated by the
	// player. Implicit time-based expiry generates no ledger event; the
	// client synchronizer detects it locally
	SessionEndEventType event.EventType = "session.end"
)

// SessionStartEvent contains details about a newly created session
type SessionStartEvent struct {
	Player    string
	LevelId   game.LevelId
	StartTime time.Time
	EndTime   time.Time
	Cost      uint64
}

// SessionEndEvent contains details about a manually ended session
type SessionEndEvent struct {
	Player  string
	LevelId game.LevelId
	EndedAt time.Time
}
