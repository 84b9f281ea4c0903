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

package txsubmit_test

import (
	"context"
	"testing"
	"time"

	"github.com/blinklabs-io/goldmine/config/game"
	"github.com/blinklabs-io/goldmine/database"
	"github.com/blinklabs-io/goldmine/equipment"
	"github.com/blinklabs-io/goldmine/event"
	"github.com/blinklabs-io/goldmine/ledger"
	"github.com/blinklabs-io/goldmine/token"
	"github.com/blinklabs-io/goldmine/txsubmit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db       *database.Database
	token    *token.Ledger
	sessions *ledger.SessionLedger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	gameCfg, err := game.Load("")
	require.NoError(t, err)
	eventBus := event.NewEventBus(nil, nil)
	t.Cleanup(eventBus.Stop)
	tokenLedger := token.NewLedger(token.LedgerConfig{Database: db})
	equipmentStore := equipment.NewStore(equipment.StoreConfig{
		Database:   db,
		GameConfig: gameCfg,
		Token:      tokenLedger,
	})
	sessions := ledger.NewSessionLedger(ledger.SessionLedgerConfig{
		Database:   db,
		EventBus:   eventBus,
		GameConfig: gameCfg,
		Tiers:      equipmentStore,
		Token:      tokenLedger,
	})
	return &testEnv{
		db:       db,
		token:    tokenLedger,
		sessions: sessions,
	}
}

func (e *testEnv) submitter(confirmDelay time.Duration) *txsubmit.LocalSubmitter {
	return txsubmit.NewLocalSubmitter(txsubmit.LocalSubmitterConfig{
		Database:     e.db,
		Token:        e.token,
		Sessions:     e.sessions,
		ConfirmDelay: confirmDelay,
	})
}

func TestSubmitApprove(t *testing.T) {
	env := newTestEnv(t)
	submitter := env.submitter(0)
	result := submitter.Submit(
		context.Background(),
		txsubmit.ApproveTx{
			Player:  "approver",
			Spender: ledger.SpenderAccount,
			Amount:  500,
		},
	)
	require.Equal(t, txsubmit.OutcomeSuccess, result.Outcome)
	require.NoError(t, result.Err)
	assert.NotEmpty(t, result.Receipt.Id)
	assert.Equal(t, "approve", result.Receipt.Kind)
	// The approve landed on the ledger
	allowance, err := env.token.Allowance("approver", ledger.SpenderAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), allowance)
}

func TestSubmitReceiptStored(t *testing.T) {
	env := newTestEnv(t)
	submitter := env.submitter(0)
	result := submitter.Submit(
		context.Background(),
		txsubmit.ApproveTx{
			Player:  "receipted",
			Spender: ledger.SpenderAccount,
			Amount:  100,
		},
	)
	require.Equal(t, txsubmit.OutcomeSuccess, result.Outcome)
	stored, err := submitter.Receipt(result.Receipt.Id)
	require.NoError(t, err)
	assert.Equal(t, result.Receipt.Id, stored.Id)
	assert.Equal(t, "receipted", stored.Player)
}

func TestSubmitRejection(t *testing.T) {
	env := newTestEnv(t)
	submitter := env.submitter(0)
	// Starting a session on a free level is a definitive rejection
	result := submitter.Submit(
		context.Background(),
		txsubmit.StartSessionTx{
			Player:  "freeloader",
			LevelId: 1,
			Seconds: 300,
		},
	)
	require.Equal(t, txsubmit.OutcomeRejected, result.Outcome)
	assert.ErrorIs(t, result.Err, ledger.ErrFreeLevel)
}

func TestSubmitEndSessionRejection(t *testing.T) {
	env := newTestEnv(t)
	submitter := env.submitter(0)
	result := submitter.Submit(
		context.Background(),
		txsubmit.EndSessionTx{Player: "idler"},
	)
	require.Equal(t, txsubmit.OutcomeRejected, result.Outcome)
	assert.ErrorIs(t, result.Err, ledger.ErrNoActiveSession)
}

func TestSubmitAbortBeforeApply(t *testing.T) {
	env := newTestEnv(t)
	submitter := env.submitter(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := submitter.Submit(
		ctx,
		txsubmit.ApproveTx{
			Player:  "aborted",
			Spender: ledger.SpenderAccount,
			Amount:  100,
		},
	)
	require.Equal(t, txsubmit.OutcomeAbort, result.Outcome)
	// Clean abort: nothing was applied
	allowance, err := env.token.Allowance("aborted", ledger.SpenderAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), allowance)
}

func TestSubmitAbortAfterApply(t *testing.T) {
	env := newTestEnv(t)
	submitter := env.submitter(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	result := submitter.Submit(
		ctx,
		txsubmit.ApproveTx{
			Player:  "ambiguous",
			Spender: ledger.SpenderAccount,
			Amount:  250,
		},
	)
	// Confirmation was lost, but the state change landed anyway. This is
	// the ambiguity callers must resolve by re-reading ground truth
	require.Equal(t, txsubmit.OutcomeAbort, result.Outcome)
	allowance, err := env.token.Allowance("ambiguous", ledger.SpenderAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(250), allowance)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", txsubmit.OutcomeSuccess.String())
	assert.Equal(t, "rejected", txsubmit.OutcomeRejected.String())
	assert.Equal(t, "abort", txsubmit.OutcomeAbort.String())
}
