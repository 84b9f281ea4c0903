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

package mining

import (
	"github.com/blinklabs-io/goldmine/config/game"
	"github.com/blinklabs-io/goldmine/event"
)

const (
	// OreMinedEventType is emitted for each completed mining operation
	OreMinedEventType event.EventType = "mining.ore_mined"
)

// OreMinedEvent carries a single mined ore
type OreMinedEvent struct {
	Player   string
	NodeId   string
	Material string
	LevelId  game.LevelId
	Value    uint64
}
