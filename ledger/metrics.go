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

package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (l *SessionLedger) initMetrics(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	l.metrics.sessionsStarted = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "goldmine_ledger_sessions_started_total",
			Help: "total paid sessions started",
		},
	)
	l.metrics.sessionsEnded = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "goldmine_ledger_sessions_ended_total",
			Help: "total sessions ended manually before expiry",
		},
	)
	l.metrics.sessionRevenue = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "goldmine_ledger_session_revenue_total",
			Help: "total GLD consumed by session purchases",
		},
	)
}
