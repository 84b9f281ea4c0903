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

package sessionsync

import (
	"time"

	"github.com/blinklabs-io/goldmine/config/game"
	"github.com/blinklabs-io/goldmine/event"
)

const (
	// SessionExpiredEventType is emitted when the local countdown or a
	// poll detects that the active session has ended
	SessionExpiredEventType event.EventType = "sessionsync.expired"
)

// SessionExpiredEvent carries the session that just expired
type SessionExpiredEvent struct {
	Player  string
	LevelId game.LevelId
	EndTime time.Time
}
