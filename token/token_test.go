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

package token_test

import (
	"testing"

	"github.com/blinklabs-io/goldmine/database"
	"github.com/blinklabs-io/goldmine/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLedger(t *testing.T) *token.Ledger {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	return token.NewLedger(token.LedgerConfig{Database: db})
}

func TestMintAndBalance(t *testing.T) {
	ledger := testLedger(t)
	require.NoError(t, ledger.Mint("alice", 500))
	balance, err := ledger.BalanceOf("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(500), balance)
	// Minting accumulates
	require.NoError(t, ledger.Mint("alice", 250))
	balance, err = ledger.BalanceOf("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(750), balance)
}

func TestMintZeroAmount(t *testing.T) {
	ledger := testLedger(t)
	err := ledger.Mint("mint-zero", 0)
	assert.ErrorIs(t, err, token.ErrZeroAmount)
}

func TestBalanceOfUnknownPlayer(t *testing.T) {
	ledger := testLedger(t)
	balance, err := ledger.BalanceOf("nobody")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance)
}

func TestApproveSetsAbsoluteAmount(t *testing.T) {
	ledger := testLedger(t)
	require.NoError(t, ledger.Approve("bob", "spender", 100))
	allowance, err := ledger.Allowance("bob", "spender")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), allowance)
	// A second approve replaces rather than accumulates
	require.NoError(t, ledger.Approve("bob", "spender", 40))
	allowance, err = ledger.Allowance("bob", "spender")
	require.NoError(t, err)
	assert.Equal(t, uint64(40), allowance)
}

func TestAllowanceUnknownPair(t *testing.T) {
	ledger := testLedger(t)
	allowance, err := ledger.Allowance("nobody", "nothing")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), allowance)
}

func TestTransfer(t *testing.T) {
	ledger := testLedger(t)
	require.NoError(t, ledger.Mint("carol", 300))
	require.NoError(t, ledger.Transfer("carol", "shop", 100))
	balance, err := ledger.BalanceOf("carol")
	require.NoError(t, err)
	assert.Equal(t, uint64(200), balance)
	balance, err = ledger.BalanceOf("shop")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), balance)
}

func TestTransferInsufficientBalance(t *testing.T) {
	ledger := testLedger(t)
	require.NoError(t, ledger.Mint("dave", 50))
	err := ledger.Transfer("dave", "shop2", 100)
	var balErr token.InsufficientBalanceError
	require.ErrorAs(t, err, &balErr)
	assert.Equal(t, uint64(100), balErr.Required)
	assert.Equal(t, uint64(50), balErr.Available)
	assert.Equal(t, uint64(50), balErr.Shortfall())
	// Nothing moved
	balance, err := ledger.BalanceOf("dave")
	require.NoError(t, err)
	assert.Equal(t, uint64(50), balance)
}

func TestTransferFrom(t *testing.T) {
	ledger := testLedger(t)
	require.NoError(t, ledger.Mint("erin", 1000))
	require.NoError(t, ledger.Approve("erin", "broker", 600))
	require.NoError(t, ledger.TransferFrom("broker", "erin", "vault", 400))
	balance, err := ledger.BalanceOf("erin")
	require.NoError(t, err)
	assert.Equal(t, uint64(600), balance)
	balance, err = ledger.BalanceOf("vault")
	require.NoError(t, err)
	assert.Equal(t, uint64(400), balance)
	// Allowance is consumed by the transfer
	allowance, err := ledger.Allowance("erin", "broker")
	require.NoError(t, err)
	assert.Equal(t, uint64(200), allowance)
}

func TestTransferFromInsufficientAllowance(t *testing.T) {
	ledger := testLedger(t)
	require.NoError(t, ledger.Mint("frank", 1000))
	require.NoError(t, ledger.Approve("frank", "broker2", 100))
	err := ledger.TransferFrom("broker2", "frank", "vault2", 400)
	var allowErr token.InsufficientAllowanceError
	require.ErrorAs(t, err, &allowErr)
	assert.Equal(t, uint64(300), allowErr.Shortfall())
	// Balance untouched
	balance, err := ledger.BalanceOf("frank")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), balance)
}

func TestTransferFromInsufficientBalance(t *testing.T) {
	ledger := testLedger(t)
	require.NoError(t, ledger.Mint("grace", 100))
	require.NoError(t, ledger.Approve("grace", "broker3", 500))
	err := ledger.TransferFrom("broker3", "grace", "vault3", 400)
	var balErr token.InsufficientBalanceError
	require.ErrorAs(t, err, &balErr)
	// Failed transfer must not consume allowance
	allowance, err := ledger.Allowance("grace", "broker3")
	require.NoError(t, err)
	assert.Equal(t, uint64(500), allowance)
}
