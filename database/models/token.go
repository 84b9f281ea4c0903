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

// Balance holds a player's GLD balance in whole units
type Balance struct {
	Player string `gorm:"uniqueIndex"`
	ID     uint   `gorm:"primarykey"`
	Amount uint64
}

func (Balance) TableName() string {
	return "balance"
}

// Allowance is a standing spend authorization from an owner to a spender,
// decoupled from any single purchase
type Allowance struct {
	Owner   string `gorm:"index:idx_allowance_owner_spender,unique"`
	Spender string `gorm:"index:idx_allowance_owner_spender,unique"`
	ID      uint   `gorm:"primarykey"`
	Amount  uint64
}

func (Allowance) TableName() string {
	return "allowance"
}
