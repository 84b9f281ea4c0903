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

package txsubmit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/goldmine/database"
	"github.com/blinklabs-io/goldmine/ledger"
	"github.com/blinklabs-io/goldmine/token"
	"github.com/google/uuid"
)

// LocalSubmitter applies transactions against the in-process ledgers. It
// preserves the transport's failure semantics: confirmation can be lost
// after the state change has been applied, in which case the caller sees
// OutcomeAbort for a transaction that actually landed.
type LocalSubmitter struct {
	logger   *slog.Logger
	db       *database.Database
	token    *token.Ledger
	sessions *ledger.SessionLedger
	// confirmDelay simulates the gap between broadcast and confirmation
	confirmDelay time.Duration
}

type LocalSubmitterConfig struct {
	Logger       *slog.Logger
	Database     *database.Database
	Token        *token.Ledger
	Sessions     *ledger.SessionLedger
	ConfirmDelay time.Duration
}

func NewLocalSubmitter(cfg LocalSubmitterConfig) *LocalSubmitter {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &LocalSubmitter{
		logger: cfg.Logger.With(
			"component", "txsubmit",
		),
		db:           cfg.Database,
		token:        cfg.Token,
		sessions:     cfg.Sessions,
		confirmDelay: cfg.ConfirmDelay,
	}
}

// Submit applies the transaction and waits for confirmation. A context
// cancellation before the apply yields a clean abort; a cancellation during
// the confirmation window yields an abort for a transaction that has
// already been applied, which is exactly the ambiguity callers must
// tolerate.
func (l *LocalSubmitter) Submit(ctx context.Context, tx Tx) Result {
	if err := ctx.Err(); err != nil {
		return Result{Outcome: OutcomeAbort, Err: err}
	}
	var player string
	var err error
	switch t := tx.(type) {
	case ApproveTx:
		player = t.Player
		err = l.token.Approve(t.Player, t.Spender, t.Amount)
	case StartSessionTx:
		player = t.Player
		_, err = l.sessions.StartSession(t.Player, t.LevelId, t.Seconds)
	case EndSessionTx:
		player = t.Player
		err = l.sessions.EndSession(t.Player)
	default:
		return Result{
			Outcome: OutcomeRejected,
			Err:     fmt.Errorf("unsupported transaction kind: %T", tx),
		}
	}
	if err != nil {
		l.logger.Debug(
			"transaction rejected",
			"kind", tx.Kind(),
			"player", player,
			"error", err,
		)
		return Result{Outcome: OutcomeRejected, Err: err}
	}
	if l.confirmDelay > 0 {
		select {
		case <-ctx.Done():
			// The state change landed but confirmation was lost
			return Result{Outcome: OutcomeAbort, Err: ctx.Err()}
		case <-time.After(l.confirmDelay):
		}
	}
	receipt := Receipt{
		Id:          uuid.NewString(),
		Kind:        tx.Kind(),
		Player:      player,
		SubmittedAt: time.Now(),
	}
	if err := l.storeReceipt(receipt); err != nil {
		l.logger.Warn(
			"failed to store receipt",
			"id", receipt.Id,
			"error", err,
		)
		// The transaction itself is confirmed; a receipt write failure
		// does not change the outcome
	}
	l.logger.Debug(
		"transaction confirmed",
		"kind", tx.Kind(),
		"player", player,
		"receipt", receipt.Id,
	)
	return Result{Outcome: OutcomeSuccess, Receipt: receipt}
}

func (l *LocalSubmitter) storeReceipt(receipt Receipt) error {
	if l.db == nil {
		return nil
	}
	key := []byte("receipt_" + receipt.Id)
	val, err := json.Marshal(receipt)
	if err != nil {
		return err
	}
	return l.db.Blob().Put(key, val)
}

// Receipt retrieves a stored receipt by id
func (l *LocalSubmitter) Receipt(id string) (Receipt, error) {
	var receipt Receipt
	if l.db == nil {
		return receipt, database.ErrBlobNotFound
	}
	val, err := l.db.Blob().Get([]byte("receipt_" + id))
	if err != nil {
		return receipt, err
	}
	if err := json.Unmarshal(val, &receipt); err != nil {
		return receipt, err
	}
	return receipt, nil
}
