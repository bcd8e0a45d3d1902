package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// RunRecord 是一轮评估的汇总行，供排查「某一轮到底发生了什么」。
type RunRecord struct {
	ID               int64  `json:"id"`
	RunID            string `json:"run_id"`
	StartedAt        int64  `json:"started_at"`
	FinishedAt       int64  `json:"finished_at"`
	DurationMillis   int64  `json:"duration_ms"`
	MarketStatus     string `json:"market_status"`
	SymbolsTotal     int    `json:"symbols_total"`
	EligibleCount    int    `json:"eligible_count"`
	HoldCount        int    `json:"hold_count"`
	BlockedCount     int    `json:"blocked_count"`
	LifecycleEvents  int    `json:"lifecycle_events"`
	AlertsSent       int    `json:"alerts_sent"`
	AlertsSuppressed int    `json:"alerts_suppressed"`
	Error            string `json:"error,omitempty"`
}

// Store 是评估轮次的独立 SQLite 日志，与主库分离，
// 写入失败只影响可观测性，不影响决策链路。
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("run log path 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS evaluation_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL UNIQUE,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			market_status TEXT,
			symbols_total INTEGER NOT NULL DEFAULT 0,
			eligible_count INTEGER NOT NULL DEFAULT 0,
			hold_count INTEGER NOT NULL DEFAULT 0,
			blocked_count INTEGER NOT NULL DEFAULT 0,
			lifecycle_events INTEGER NOT NULL DEFAULT 0,
			alerts_sent INTEGER NOT NULL DEFAULT 0,
			alerts_suppressed INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_evaluation_runs_started_at ON evaluation_runs(started_at DESC, id DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("run log schema init failed: %w", err)
		}
	}
	return nil
}

// Append 写入一轮汇总。run_id 冲突时覆盖旧行（同一轮只保留最终结果）。
func (s *Store) Append(ctx context.Context, rec RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("run log store 已关闭")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO evaluation_runs
		(run_id, started_at, finished_at, duration_ms, market_status,
		 symbols_total, eligible_count, hold_count, blocked_count,
		 lifecycle_events, alerts_sent, alerts_suppressed, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			finished_at=excluded.finished_at,
			duration_ms=excluded.duration_ms,
			market_status=excluded.market_status,
			symbols_total=excluded.symbols_total,
			eligible_count=excluded.eligible_count,
			hold_count=excluded.hold_count,
			blocked_count=excluded.blocked_count,
			lifecycle_events=excluded.lifecycle_events,
			alerts_sent=excluded.alerts_sent,
			alerts_suppressed=excluded.alerts_suppressed,
			error=excluded.error`,
		rec.RunID, rec.StartedAt, rec.FinishedAt, rec.DurationMillis, rec.MarketStatus,
		rec.SymbolsTotal, rec.EligibleCount, rec.HoldCount, rec.BlockedCount,
		rec.LifecycleEvents, rec.AlertsSent, rec.AlertsSuppressed, rec.Error,
		time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("append run record failed: %w", err)
	}
	return nil
}

// Recent 按开始时间倒序返回最近 limit 轮。
func (s *Store) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("run log store 已关闭")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, run_id, started_at, finished_at, duration_ms,
		COALESCE(market_status, ''), symbols_total, eligible_count, hold_count, blocked_count,
		lifecycle_events, alerts_sent, alerts_suppressed, COALESCE(error, '')
		FROM evaluation_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.StartedAt, &rec.FinishedAt, &rec.DurationMillis,
			&rec.MarketStatus, &rec.SymbolsTotal, &rec.EligibleCount, &rec.HoldCount, &rec.BlockedCount,
			&rec.LifecycleEvents, &rec.AlertsSent, &rec.AlertsSuppressed, &rec.Error); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
