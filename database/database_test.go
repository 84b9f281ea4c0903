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

package database_test

import (
	"testing"

	"github.com/blinklabs-io/goldmine/database"
	"github.com/blinklabs-io/goldmine/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDatabase(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	defer db.Close()
	assert.NotNil(t, db.Blob())
	assert.NotNil(t, db.Metadata())
	assert.Empty(t, db.DataDir())
}

func TestPersistentDatabase(t *testing.T) {
	db, err := database.New(&database.Config{
		DataDir: t.TempDir(),
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestBlobRoundTrip(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	defer db.Close()
	key := []byte("blob_test_key")
	require.NoError(t, db.Blob().Put(key, []byte("payload")))
	value, err := db.Blob().Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), value)
}

func TestBlobNotFound(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Blob().Get([]byte("blob_test_missing"))
	assert.ErrorIs(t, err, database.ErrBlobNotFound)
}

func TestMetadataMigrations(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	defer db.Close()
	// Migrated schemas accept writes
	item := models.InventoryItem{
		Player:   "db-migrations",
		Material: "stone",
		Count:    1,
	}
	result := db.Metadata().DB().Create(&item)
	require.NoError(t, result.Error)
	assert.NotZero(t, item.ID)
}
