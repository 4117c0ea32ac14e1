/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 * Adapted from database/marketdata.go for shadowtrader.
 */

// Package eligibility persists the two cross-restart cooldowns
// SPEC_FULL.md §4.2 names: 24h depth ineligibility and 30m tick-by-tick
// cooldowns, keyed by symbol. It is grounded on the teacher's
// database/marketdata.go: same WAL-mode open string and
// prepared-statement-per-operation pattern, repurposed from bulk
// trade/book/OHLCV persistence (an explicit out-of-scope collaborator) to
// this small cache.
package eligibility

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS depth_ineligible (
	symbol TEXT PRIMARY KEY,
	until_unix_ms INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS tick_by_tick_cooldown (
	symbol TEXT PRIMARY KEY,
	until_unix_ms INTEGER NOT NULL
);
`

const (
	upsertDepthIneligibleQuery   = `INSERT INTO depth_ineligible(symbol, until_unix_ms) VALUES (?, ?) ON CONFLICT(symbol) DO UPDATE SET until_unix_ms = excluded.until_unix_ms`
	selectDepthIneligibleQuery   = `SELECT until_unix_ms FROM depth_ineligible WHERE symbol = ?`
	upsertTickByTickCooldownQuery = `INSERT INTO tick_by_tick_cooldown(symbol, until_unix_ms) VALUES (?, ?) ON CONFLICT(symbol) DO UPDATE SET until_unix_ms = excluded.until_unix_ms`
	selectTickByTickCooldownQuery = `SELECT until_unix_ms FROM tick_by_tick_cooldown WHERE symbol = ?`
)

// Store provides SQLite-backed cooldown storage with prepared statements.
// Prepared statements are initialized once and reused for every lookup and
// mark, avoiding SQL parsing overhead on the hot reconcile path.
type Store struct {
	db *sql.DB

	stmtMarkDepthIneligible   *sql.Stmt
	stmtGetDepthIneligible    *sql.Stmt
	stmtMarkTickByTickCooldown *sql.Stmt
	stmtGetTickByTickCooldown  *sql.Stmt
}

// Open opens (creating if absent) the SQLite cache at dbPath in WAL mode.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("eligibility: open database: %w", err)
	}

	s := &Store{db: db}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("eligibility: init schema: %w", err)
	}

	if s.stmtMarkDepthIneligible, err = db.Prepare(upsertDepthIneligibleQuery); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("eligibility: prepare mark-depth-ineligible: %w", err)
	}
	if s.stmtGetDepthIneligible, err = db.Prepare(selectDepthIneligibleQuery); err != nil {
		_ = s.stmtMarkDepthIneligible.Close()
		_ = db.Close()
		return nil, fmt.Errorf("eligibility: prepare get-depth-ineligible: %w", err)
	}
	if s.stmtMarkTickByTickCooldown, err = db.Prepare(upsertTickByTickCooldownQuery); err != nil {
		_ = s.stmtMarkDepthIneligible.Close()
		_ = s.stmtGetDepthIneligible.Close()
		_ = db.Close()
		return nil, fmt.Errorf("eligibility: prepare mark-tbt-cooldown: %w", err)
	}
	if s.stmtGetTickByTickCooldown, err = db.Prepare(selectTickByTickCooldownQuery); err != nil {
		_ = s.stmtMarkDepthIneligible.Close()
		_ = s.stmtGetDepthIneligible.Close()
		_ = s.stmtMarkTickByTickCooldown.Close()
		_ = db.Close()
		return nil, fmt.Errorf("eligibility: prepare get-tbt-cooldown: %w", err)
	}

	log.Printf("eligibility: sqlite cache initialized at %s", dbPath)
	return s, nil
}

func (s *Store) Close() error {
	_ = s.stmtMarkDepthIneligible.Close()
	_ = s.stmtGetDepthIneligible.Close()
	_ = s.stmtMarkTickByTickCooldown.Close()
	_ = s.stmtGetTickByTickCooldown.Close()
	return s.db.Close()
}

// MarkDepthIneligible records that symbol may not carry a depth
// subscription until the given deadline (spec.md §4.2: 24h default).
func (s *Store) MarkDepthIneligible(symbol string, until time.Time) {
	if _, err := s.stmtMarkDepthIneligible.Exec(symbol, until.UnixMilli()); err != nil {
		log.Printf("eligibility: mark depth-ineligible failed for %s: %v", symbol, err)
	}
}

// IsDepthIneligible reports whether symbol is still within its depth
// ineligibility cooldown at now.
func (s *Store) IsDepthIneligible(symbol string, now time.Time) bool {
	var untilMs int64
	err := s.stmtGetDepthIneligible.QueryRow(symbol).Scan(&untilMs)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		log.Printf("eligibility: get depth-ineligible failed for %s: %v", symbol, err)
		return false
	}
	return now.UnixMilli() < untilMs
}

// MarkTickByTickCooldown records a per-symbol tick-by-tick cooldown (spec.md
// §4.2: 30m default).
func (s *Store) MarkTickByTickCooldown(symbol string, until time.Time) {
	if _, err := s.stmtMarkTickByTickCooldown.Exec(symbol, until.UnixMilli()); err != nil {
		log.Printf("eligibility: mark tick-by-tick cooldown failed for %s: %v", symbol, err)
	}
}

// IsTickByTickCooling reports whether symbol is still within its
// tick-by-tick cooldown at now.
func (s *Store) IsTickByTickCooling(symbol string, now time.Time) bool {
	var untilMs int64
	err := s.stmtGetTickByTickCooldown.QueryRow(symbol).Scan(&untilMs)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		log.Printf("eligibility: get tick-by-tick cooldown failed for %s: %v", symbol, err)
		return false
	}
	return now.UnixMilli() < untilMs
}
