// Package store is the SQLite persistence layer behind the two
// authoritative tables the core owns — scans and generated_fixes — plus
// the quota counters and append-only audit log that ride alongside them
// (spec §3). Every row's payload is stored as JSON next to a handful of
// indexed columns used for lookup and ownership checks; the JSON blob,
// not the columns, is authoritative.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"compliscan/internal/config"
	"compliscan/internal/domain"
	"compliscan/internal/logging"
)

// Store is the SQLite-backed implementation of quota.Store, audit.Store,
// and the orchestrator's scan/fix persistence needs.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (creating if absent) the SQLite database at cfg.Path and
// applies the WAL/busy-timeout/synchronous pragmas a single-writer
// embedded deployment needs.
func New(cfg config.StoreConfig) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "New")
	defer timer.Stop()

	dir := filepath.Dir(cfg.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("compliscan: create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("compliscan: open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logging.Get(logging.CategoryStore).Warn("store: pragma %q failed: %v", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("compliscan: init schema: %w", err)
	}
	logging.Store("store: opened %s", cfg.Path)
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scans (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			url TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			overall_score INTEGER NOT NULL,
			total_risk_euro INTEGER NOT NULL,
			payload TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_user ON scans(user_id)`,
		`CREATE TABLE IF NOT EXISTS generated_fixes (
			id TEXT PRIMARY KEY,
			scan_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			issue_id TEXT NOT NULL,
			idempotency_key TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			payload TEXT NOT NULL,
			FOREIGN KEY(scan_id) REFERENCES scans(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fixes_scan ON generated_fixes(scan_id)`,
		`CREATE INDEX IF NOT EXISTS idx_fixes_idempotency ON generated_fixes(idempotency_key)`,
		`CREATE TABLE IF NOT EXISTS quota_records (
			user_id TEXT PRIMARY KEY,
			payload TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME NOT NULL,
			user_id TEXT NOT NULL,
			action TEXT NOT NULL,
			ref_id TEXT NOT NULL,
			payload TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_user ON audit_log(user_id)`,
		`CREATE TABLE IF NOT EXISTS feedback (
			user_id TEXT NOT NULL,
			fix_id TEXT NOT NULL,
			rating INTEGER NOT NULL,
			comment TEXT,
			created_at DATETIME NOT NULL,
			PRIMARY KEY(user_id, fix_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

// SaveScan inserts or replaces scan, serializing the full value as JSON.
func (s *Store) SaveScan(ctx context.Context, scan domain.Scan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(scan)
	if err != nil {
		return fmt.Errorf("marshal scan: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO scans (id, user_id, url, created_at, overall_score, total_risk_euro, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		scan.ID, scan.UserID, scan.URL, scan.Timestamp, scan.OverallScore, scan.TotalRiskEuro, payload,
	)
	return err
}

// LoadScan fetches a scan by id, returning found=false if absent.
func (s *Store) LoadScan(ctx context.Context, scanID string) (domain.Scan, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM scans WHERE id = ?`, scanID).Scan(&payload)
	if err == sql.ErrNoRows {
		return domain.Scan{}, false, nil
	}
	if err != nil {
		return domain.Scan{}, false, err
	}
	var scan domain.Scan
	if err := json.Unmarshal(payload, &scan); err != nil {
		return domain.Scan{}, false, fmt.Errorf("unmarshal scan: %w", err)
	}
	return scan, true, nil
}

// DeleteScan removes a scan row, used by the orchestrator's rollback path
// when a scan's cancellation budget is exceeded mid-persist.
func (s *Store) DeleteScan(ctx context.Context, scanID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE id = ?`, scanID)
	return err
}

// SaveFix inserts one generated fix row.
func (s *Store) SaveFix(ctx context.Context, fix domain.GeneratedFix) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(fix)
	if err != nil {
		return fmt.Errorf("marshal fix: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO generated_fixes (id, scan_id, user_id, issue_id, idempotency_key, created_at, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fix.ID, fix.ScanID, fix.UserID, fix.IssueID, fix.IdempotencyKey, fix.GeneratedAt, payload,
	)
	return err
}

// FixesByIdempotencyKey returns every previously generated fix sharing
// key, used to answer a repeat GenerateFixes request without re-running
// the generators.
func (s *Store) FixesByIdempotencyKey(ctx context.Context, key string) ([]domain.GeneratedFix, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM generated_fixes WHERE idempotency_key = ?`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fixes []domain.GeneratedFix
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var fix domain.GeneratedFix
		if err := json.Unmarshal(payload, &fix); err != nil {
			return nil, fmt.Errorf("unmarshal fix: %w", err)
		}
		fixes = append(fixes, fix)
	}
	return fixes, rows.Err()
}

// LoadQuota implements quota.Store.
func (s *Store) LoadQuota(ctx context.Context, userID string) (domain.QuotaRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM quota_records WHERE user_id = ?`, userID).Scan(&payload)
	if err == sql.ErrNoRows {
		return domain.QuotaRecord{}, false, nil
	}
	if err != nil {
		return domain.QuotaRecord{}, false, err
	}
	var rec domain.QuotaRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return domain.QuotaRecord{}, false, fmt.Errorf("unmarshal quota record: %w", err)
	}
	return rec, true, nil
}

// SaveQuota implements quota.Store.
func (s *Store) SaveQuota(ctx context.Context, rec domain.QuotaRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal quota record: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO quota_records (user_id, payload) VALUES (?, ?)`,
		rec.UserID, payload,
	)
	return err
}

// AppendAuditEntry implements audit.Store.
func (s *Store) AppendAuditEntry(ctx context.Context, entry domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payload []byte
	if entry.Details != nil {
		var err error
		payload, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (timestamp, user_id, action, ref_id, payload) VALUES (?, ?, ?, ?, ?)`,
		entry.Timestamp, entry.UserID, string(entry.Action), entry.RefID, payload,
	)
	return err
}

// FeedbackExists implements audit.Store.
func (s *Store) FeedbackExists(ctx context.Context, userID, fixID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM feedback WHERE user_id = ? AND fix_id = ?`, userID, fixID,
	).Scan(&count)
	return count > 0, err
}

// SaveFeedback implements audit.Store.
func (s *Store) SaveFeedback(ctx context.Context, fb domain.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (user_id, fix_id, rating, comment, created_at) VALUES (?, ?, ?, ?, ?)`,
		fb.UserID, fb.FixID, fb.Rating, fb.Comment, time.Now(),
	)
	return err
}
