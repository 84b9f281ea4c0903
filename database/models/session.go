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

package models

import "time"

// Session records a paid access grant for a single player and level. The
// stored Active flag is advisory only: readers must derive validity from
// EndTime, since expiry happens without any corresponding write
type Session struct {
	Player    string `gorm:"index"`
	ID        uint   `gorm:"primarykey"`
	LevelId   uint8
	StartTime int64
	EndTime   int64
	Active    bool `gorm:"default:true"`
}

func (Session) TableName() string {
	return "session"
}

// Expired returns whether the session has passed its end time
func (s *Session) Expired(now time.Time) bool {
	return now.Unix() >= s.EndTime
}
