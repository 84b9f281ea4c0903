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

package inventory_test

import (
	"testing"
	"time"

	"github.com/blinklabs-io/goldmine/config/game"
	"github.com/blinklabs-io/goldmine/database"
	"github.com/blinklabs-io/goldmine/event"
	"github.com/blinklabs-io/goldmine/inventory"
	"github.com/blinklabs-io/goldmine/mining"
	"github.com/blinklabs-io/goldmine/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(
	t *testing.T,
	eventBus *event.EventBus,
) (*inventory.Store, *token.Ledger) {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	gameCfg, err := game.Load("")
	require.NoError(t, err)
	ledger := token.NewLedger(token.LedgerConfig{Database: db})
	store := inventory.NewStore(inventory.StoreConfig{
		Database:   db,
		EventBus:   eventBus,
		GameConfig: gameCfg,
		Token:      ledger,
	})
	return store, ledger
}

func TestAddAndItems(t *testing.T) {
	store, _ := testStore(t, nil)
	require.NoError(t, store.Add("inv-add", "stone", 3))
	require.NoError(t, store.Add("inv-add", "copper", 1))
	require.NoError(t, store.Add("inv-add", "stone", 2))
	items, err := store.Items("inv-add")
	require.NoError(t, err)
	require.Len(t, items, 2)
	// Ordered by material name
	assert.Equal(t, inventory.Item{Material: "copper", Count: 1}, items[0])
	assert.Equal(t, inventory.Item{Material: "stone", Count: 5}, items[1])
}

func TestAddUnknownMaterial(t *testing.T) {
	store, _ := testStore(t, nil)
	err := store.Add("inv-unknown", "unobtainium", 1)
	assert.ErrorContains(t, err, "unknown material")
}

func TestItemsEmpty(t *testing.T) {
	store, _ := testStore(t, nil)
	items, err := store.Items("inv-empty")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestOreMinedEventAddsToInventory(t *testing.T) {
	eventBus := event.NewEventBus(nil, nil)
	defer eventBus.Stop()
	store, _ := testStore(t, eventBus)
	require.NoError(t, store.Start())
	defer store.Stop()
	eventBus.Publish(
		mining.OreMinedEventType,
		event.NewEvent(
			mining.OreMinedEventType,
			mining.OreMinedEvent{
				Player:   "inv-events",
				NodeId:   "node-1",
				Material: "coal",
				LevelId:  1,
				Value:    7,
			},
		),
	)
	// The subscriber runs on its own goroutine
	require.Eventually(t, func() bool {
		items, err := store.Items("inv-events")
		return err == nil && len(items) == 1
	}, 2*time.Second, 10*time.Millisecond)
	items, err := store.Items("inv-events")
	require.NoError(t, err)
	assert.Equal(t, inventory.Item{Material: "coal", Count: 1}, items[0])
}

func TestSellAll(t *testing.T) {
	store, ledger := testStore(t, nil)
	// stone is worth 2, coal is worth 7
	require.NoError(t, store.Add("inv-sell", "stone", 10))
	require.NoError(t, store.Add("inv-sell", "coal", 3))
	result, err := store.SellAll("inv-sell")
	require.NoError(t, err)
	assert.Equal(t, uint64(41), result.TotalValue)
	assert.Len(t, result.Items, 2)
	// Proceeds are minted into the player's balance
	balance, err := ledger.BalanceOf("inv-sell")
	require.NoError(t, err)
	assert.Equal(t, uint64(41), balance)
	// Inventory is now empty
	items, err := store.Items("inv-sell")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSellAllEmpty(t *testing.T) {
	store, _ := testStore(t, nil)
	_, err := store.SellAll("inv-sell-empty")
	assert.ErrorIs(t, err, inventory.ErrNothingToSell)
}

func TestSellAllTwice(t *testing.T) {
	store, _ := testStore(t, nil)
	require.NoError(t, store.Add("inv-sell-twice", "stone", 1))
	_, err := store.SellAll("inv-sell-twice")
	require.NoError(t, err)
	// Nothing left to sell the second time
	_, err = store.SellAll("inv-sell-twice")
	assert.ErrorIs(t, err, inventory.ErrNothingToSell)
}

func TestSalesTotals(t *testing.T) {
	store, _ := testStore(t, nil)
	require.NoError(t, store.Add("inv-totals-a", "stone", 5))
	require.NoError(t, store.Add("inv-totals-b", "coal", 2))
	_, err := store.SellAll("inv-totals-a")
	require.NoError(t, err)
	_, err = store.SellAll("inv-totals-b")
	require.NoError(t, err)
	playerTotal, err := store.PlayerSales("inv-totals-a")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), playerTotal)
	// More sales accumulate
	require.NoError(t, store.Add("inv-totals-a", "stone", 1))
	_, err = store.SellAll("inv-totals-a")
	require.NoError(t, err)
	playerTotal, err = store.PlayerSales("inv-totals-a")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), playerTotal)
}
