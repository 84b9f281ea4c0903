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

// InventoryItem counts mined-but-unsold units of one material for a player
type InventoryItem struct {
	Player   string `gorm:"index:idx_inventory_player_material,unique"`
	Material string `gorm:"index:idx_inventory_player_material,unique"`
	ID       uint   `gorm:"primarykey"`
	Count    uint64
}

func (InventoryItem) TableName() string {
	return "inventory_item"
}

// Sale records one completed sell-all transaction
type Sale struct {
	Player     string `gorm:"index"`
	ID         uint   `gorm:"primarykey"`
	TotalValue uint64
	SoldAt     int64
}

func (Sale) TableName() string {
	return "sale"
}
