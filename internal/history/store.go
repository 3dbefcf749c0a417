// Copyright 2026 The QueryDesk Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package history persists classification and routing decisions to SQLite.
// Queries themselves are stored only as a hash; the full query text never
// touches disk.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/querydesk/querydesk/internal/classify"
	"github.com/querydesk/querydesk/internal/route"
)

// detailSchema versions the detail JSON blob so readers can tell old rows
// apart after a format change.
const detailSchema = 1

// Record is one persisted decision.
type Record struct {
	ID              int64     `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	RequestID       string    `json:"request_id"`
	QueryHash       string    `json:"query_hash"`
	PrimaryCategory string    `json:"primary_category"`
	Confidence      float64   `json:"confidence"`
	MultiIntent     bool      `json:"multi_intent"`
	Priority        string    `json:"priority"`
	Destination     string    `json:"destination"`
	Action          string    `json:"action"`
	// Rule names the decision-table rule that fired, pulled out of the
	// detail blob for convenience.
	Rule string `json:"rule,omitempty"`
}

// Store writes decisions to a SQLite database and prunes them past the
// retention window.
type Store struct {
	db            *sql.DB
	path          string
	retentionDays int
	mu            sync.RWMutex
	closed        bool
}

// Open creates (or opens) the database at path and ensures the schema.
func Open(ctx context.Context, path string, retentionDays int) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history: database path cannot be empty")
	}
	if retentionDays <= 0 {
		retentionDays = 90
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, path: path, retentionDays: retentionDays}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Infof("Decision history initialized (db: %s, retention: %d days)", path, retentionDays)
	go s.pruneOld(context.Background())
	return s, nil
}

// NewWithDB wraps an existing database handle. The caller owns schema setup;
// used by tests that inject a mock.
func NewWithDB(db *sql.DB, retentionDays int) *Store {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &Store{db: db, retentionDays: retentionDays}
}

func (s *Store) ensureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at DATETIME NOT NULL,
		request_id TEXT NOT NULL,
		query_hash TEXT NOT NULL,
		primary_category TEXT NOT NULL,
		confidence REAL NOT NULL,
		multi_intent INTEGER NOT NULL DEFAULT 0,
		priority TEXT NOT NULL,
		destination TEXT NOT NULL,
		action TEXT NOT NULL,
		detail TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_decisions_created_at ON decisions(created_at);
	CREATE INDEX IF NOT EXISTS idx_decisions_category ON decisions(primary_category);
	CREATE INDEX IF NOT EXISTS idx_decisions_destination ON decisions(destination);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("history: create schema: %w", err)
	}
	return nil
}

// Record persists one classified and routed query.
func (s *Store) Record(ctx context.Context, requestID, query string, result classify.Result, decision route.Decision) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("history: store is closed")
	}

	detail, err := buildDetail(result, decision)
	if err != nil {
		log.WithError(err).Warn("failed to build decision detail, storing row without it")
		detail = ""
	}

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO decisions (
		created_at, request_id, query_hash, primary_category, confidence,
		multi_intent, priority, destination, action, detail
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC(),
		requestID,
		HashQuery(query),
		result.PrimaryCategory.Label(),
		result.PrimaryConfidence,
		boolToInt(result.IsMultiIntent),
		result.RoutingPriority.String(),
		decision.Destination.String(),
		decision.Action.String(),
		detail,
	)
	if err != nil {
		return fmt.Errorf("history: insert decision: %w", err)
	}
	return nil
}

// Recent returns the newest records, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("history: store is closed")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT id, created_at, request_id, query_hash, primary_category,
	       confidence, multi_intent, priority, destination, action, detail
	FROM decisions
	ORDER BY created_at DESC, id DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query decisions: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			log.WithError(err).Warn("failed to scan decision record")
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate decisions: %w", err)
	}
	return records, nil
}

// pruneOld removes records past the retention window.
func (s *Store) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	result, err := s.db.ExecContext(ctx, "DELETE FROM decisions WHERE created_at < ?", cutoff)
	if err != nil {
		log.WithError(err).Warn("failed to prune old decision records")
		return
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		log.Infof("Pruned %d decision records older than %d days", n, s.retentionDays)
	}
}

// Close prunes one final time and closes the database.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	if _, err := s.db.ExecContext(ctx, "DELETE FROM decisions WHERE created_at < ?", cutoff); err != nil {
		log.WithError(err).Warn("final prune failed")
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("history: close database: %w", err)
	}
	log.Info("Decision history closed")
	return nil
}

// HashQuery returns the hex SHA-256 of the raw query text.
func HashQuery(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}

// buildDetail serializes the full result and decision into one JSON blob,
// stamped with the detail schema version.
func buildDetail(result classify.Result, decision route.Decision) (string, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	decisionJSON, err := json.Marshal(decision)
	if err != nil {
		return "", err
	}
	detail, err := sjson.Set("{}", "schema", detailSchema)
	if err != nil {
		return "", err
	}
	if detail, err = sjson.SetRaw(detail, "classification", string(resultJSON)); err != nil {
		return "", err
	}
	if detail, err = sjson.SetRaw(detail, "routing", string(decisionJSON)); err != nil {
		return "", err
	}
	return detail, nil
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	var rec Record
	var multiInt int
	var detail sql.NullString

	err := rows.Scan(
		&rec.ID,
		&rec.CreatedAt,
		&rec.RequestID,
		&rec.QueryHash,
		&rec.PrimaryCategory,
		&rec.Confidence,
		&multiInt,
		&rec.Priority,
		&rec.Destination,
		&rec.Action,
		&detail,
	)
	if err != nil {
		return nil, err
	}
	rec.MultiIntent = multiInt == 1
	if detail.Valid && detail.String != "" {
		rec.Rule = gjson.Get(detail.String, "routing.rule").String()
	}
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
