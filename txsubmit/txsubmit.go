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

// Package txsubmit defines the transaction transport between the client and
// the on-chain ledgers. Submission results carry an explicit outcome rather
// than a plain error: an aborted submission does not reliably indicate that
// the underlying state change failed, and callers are forced to handle that
// case by re-reading ground truth.
package txsubmit

import (
	"context"
	"time"

	"github.com/blinklabs-io/goldmine/config/game"
)

type Outcome int

const (
	// OutcomeSuccess means the transaction was confirmed
	OutcomeSuccess Outcome = iota
	// OutcomeRejected means the transaction definitively failed with a
	// known reason. It must not be retried automatically
	OutcomeRejected
	// OutcomeAbort means the transport failed after the transaction may
	// have been broadcast. The underlying state change may or may not have
	// been applied; callers must re-poll ground truth before reporting
	// failure
	OutcomeAbort
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRejected:
		return "rejected"
	case OutcomeAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// Tx is a transaction the signing identity can submit
type Tx interface {
	isTx()
	Kind() string
}

// ApproveTx raises the standing allowance from the player to a spender
type ApproveTx struct {
	Player  string
	Spender string
	Amount  uint64
}

func (ApproveTx) isTx()        {}
func (ApproveTx) Kind() string { return "approve" }

// StartSessionTx starts a paid mining session
type StartSessionTx struct {
	Player  string
	LevelId game.LevelId
	Seconds uint64
}

func (StartSessionTx) isTx()        {}
func (StartSessionTx) Kind() string { return "start_session" }

// EndSessionTx terminates the player's active session
type EndSessionTx struct {
	Player string
}

func (EndSessionTx) isTx()        {}
func (EndSessionTx) Kind() string { return "end_session" }

// Receipt identifies a confirmed transaction
type Receipt struct {
	SubmittedAt time.Time `json:"submittedAt"`
	Id          string    `json:"id"`
	Kind        string    `json:"kind"`
	Player      string    `json:"player"`
}

// Result is the tri-state outcome of a submission. Err is populated for
// rejections (the definitive reason) and aborts (the transport failure)
type Result struct {
	Err     error
	Receipt Receipt
	Outcome Outcome
}

// Submitter submits signed transactions and reports distinguishable
// outcomes
type Submitter interface {
	Submit(ctx context.Context, tx Tx) Result
}
