package alert

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Record 是追加日志里的一行。字段顺序与线上排查工具约定一致。
type Record struct {
	Fingerprint      string     `json:"fingerprint"`
	CreatedAt        time.Time  `json:"created_at"`
	AlertType        string     `json:"alert_type"`
	Severity         Severity   `json:"severity"`
	Summary          string     `json:"summary"`
	ActionHint       string     `json:"action_hint"`
	Sent             bool       `json:"sent"`
	SentAt           *time.Time `json:"sent_at"`
	SuppressedReason *string    `json:"suppressed_reason"`
}

// Log 是追加写的 JSONL 告警日志。单写者：所有写入都经同一把锁，
// 避免并发写交错出半行 JSON。
type Log struct {
	mu   sync.Mutex
	file *os.File
	now  func() time.Time
}

func OpenLog(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open alert log: %w", err)
	}
	return &Log{file: f, now: time.Now}, nil
}

// Append 写入一条记录并立即落盘。
func (l *Log) Append(a Alert, sent bool, suppressedReason string) (Record, error) {
	now := l.now()
	rec := Record{
		Fingerprint: a.Fingerprint(),
		CreatedAt:   now,
		AlertType:   a.Type,
		Severity:    a.Severity,
		Summary:     a.Summary,
		ActionHint:  a.ActionHint,
		Sent:        sent,
	}
	if sent {
		sentAt := now
		rec.SentAt = &sentAt
	}
	if suppressedReason != "" {
		rec.SuppressedReason = &suppressedReason
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("marshal alert record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return Record{}, fmt.Errorf("append alert record: %w", err)
	}
	return rec, nil
}

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
