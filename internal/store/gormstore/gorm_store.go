package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"wheelhouse/internal/alert"
	"wheelhouse/internal/exitplan"
	"wheelhouse/internal/lifecycle"
	"wheelhouse/internal/position"
	storemodel "wheelhouse/internal/store/model"
)

// GormStore implements position / verdict / alert storage using Gorm + SQLite.
type GormStore struct {
	db *gorm.DB
}

func New(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: 数据库路径不能为空")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&storemodel.PositionModel{},
		&storemodel.VerdictLogModel{},
		&storemodel.LifecycleEventModel{},
		&storemodel.AlertRecordModel{},
	); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: allow a small amount of parallelism for concurrent HTTP reads
	// while keeping lock contention low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db}, nil
}

func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// --------------------- Position ---------------------

func (s *GormStore) SavePosition(ctx context.Context, pos position.Position) (int64, error) {
	m, err := toPositionModel(pos)
	if err != nil {
		return 0, err
	}
	if err := s.db.WithContext(ctx).Save(&m).Error; err != nil {
		return 0, err
	}
	return m.ID, nil
}

// ListOpenPositions 返回参与生命周期评估的持仓（OPEN/PARTIAL_EXIT）。
func (s *GormStore) ListOpenPositions(ctx context.Context) ([]position.Position, error) {
	var rows []storemodel.PositionModel
	err := s.db.WithContext(ctx).
		Where("state IN ?", []string{string(position.StateOpen), string(position.StatePartialExit)}).
		Order("symbol ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]position.Position, 0, len(rows))
	for _, row := range rows {
		pos, err := fromPositionModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, pos)
	}
	return out, nil
}

func (s *GormStore) GetPosition(ctx context.Context, id int64) (position.Position, error) {
	var row storemodel.PositionModel
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return position.Position{}, fmt.Errorf("position %d not found", id)
		}
		return position.Position{}, err
	}
	return fromPositionModel(row)
}

// ApplyTransition 在数据库内执行状态迁移；迁移合法性由状态机裁决，
// 非法迁移原样返回 InvalidTransitionError。
func (s *GormStore) ApplyTransition(ctx context.Context, id int64, action position.Action, correlationID string) (position.State, error) {
	var next position.State
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row storemodel.PositionModel
		if err := tx.First(&row, id).Error; err != nil {
			return err
		}
		to, err := position.Transition(row.Symbol, position.State(row.State), action, correlationID)
		if err != nil {
			return err
		}
		next = to
		return tx.Model(&storemodel.PositionModel{}).
			Where("id = ?", id).
			Update("state", string(to)).Error
	})
	return next, err
}

// MarkPartialExit 是分批离场的唯一写入口：只允许从 OPEN 进入 PARTIAL_EXIT。
func (s *GormStore) MarkPartialExit(ctx context.Context, id int64, remaining int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row storemodel.PositionModel
		if err := tx.First(&row, id).Error; err != nil {
			return err
		}
		if position.State(row.State) != position.StateOpen {
			return fmt.Errorf("position %d: partial exit from %s is not allowed", id, row.State)
		}
		return tx.Model(&storemodel.PositionModel{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"state":     string(position.StatePartialExit),
				"contracts": remaining,
			}).Error
	})
}

func toPositionModel(pos position.Position) (storemodel.PositionModel, error) {
	m := storemodel.PositionModel{
		ID:               pos.ID,
		Symbol:           pos.Symbol,
		Strategy:         string(pos.Strategy),
		Strike:           pos.Strike,
		Expiry:           pos.Expiry,
		Contracts:        pos.Contracts,
		PremiumCollected: pos.PremiumCollected,
		State:            string(pos.State),
		StopPrice:        pos.StopPrice,
		Target1:          pos.Target1,
		Target2:          pos.Target2,
		OpenedAt:         pos.OpenedAt,
	}
	if pos.ExitPlan != nil {
		raw, err := json.Marshal(pos.ExitPlan)
		if err != nil {
			return storemodel.PositionModel{}, fmt.Errorf("marshal exit plan: %w", err)
		}
		m.ExitPlanJSON = datatypes.JSON(raw)
	}
	return m, nil
}

func fromPositionModel(m storemodel.PositionModel) (position.Position, error) {
	pos := position.Position{
		ID:               m.ID,
		Symbol:           m.Symbol,
		Strategy:         position.Strategy(m.Strategy),
		Strike:           m.Strike,
		Expiry:           m.Expiry,
		Contracts:        m.Contracts,
		PremiumCollected: m.PremiumCollected,
		State:            position.State(m.State),
		StopPrice:        m.StopPrice,
		Target1:          m.Target1,
		Target2:          m.Target2,
		OpenedAt:         m.OpenedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	if len(m.ExitPlanJSON) > 0 {
		var plan exitplan.Plan
		if err := json.Unmarshal(m.ExitPlanJSON, &plan); err != nil {
			return position.Position{}, fmt.Errorf("unmarshal exit plan for position %d: %w", m.ID, err)
		}
		pos.ExitPlan = &plan
	}
	return pos, nil
}

// --------------------- Verdict log ---------------------

// VerdictEntry 是一条落库的裁决摘要。
type VerdictEntry struct {
	RunID       string
	Symbol      string
	Mode        string
	Verdict     string
	Reason      string
	Score       int
	Band        string
	Contract    any
	Trace       any
	EvaluatedAt time.Time
}

func (s *GormStore) InsertVerdicts(ctx context.Context, entries []VerdictEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]storemodel.VerdictLogModel, 0, len(entries))
	for _, e := range entries {
		row := storemodel.VerdictLogModel{
			RunID:       e.RunID,
			Symbol:      e.Symbol,
			Mode:        e.Mode,
			Verdict:     e.Verdict,
			Reason:      e.Reason,
			Score:       e.Score,
			Band:        e.Band,
			EvaluatedAt: e.EvaluatedAt,
		}
		if e.Contract != nil {
			if raw, err := json.Marshal(e.Contract); err == nil {
				row.ContractJSON = datatypes.JSON(raw)
			}
		}
		if e.Trace != nil {
			if raw, err := json.Marshal(e.Trace); err == nil {
				row.TraceJSON = datatypes.JSON(raw)
			}
		}
		rows = append(rows, row)
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}

func (s *GormStore) RecentVerdicts(ctx context.Context, symbol string, limit int) ([]storemodel.VerdictLogModel, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := s.db.WithContext(ctx).Order("evaluated_at DESC").Limit(limit)
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	var rows []storemodel.VerdictLogModel
	return rows, q.Find(&rows).Error
}

// --------------------- Lifecycle events ---------------------

func (s *GormStore) InsertLifecycleEvents(ctx context.Context, runID string, events []lifecycle.Event) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]storemodel.LifecycleEventModel, 0, len(events))
	for _, ev := range events {
		rows = append(rows, storemodel.LifecycleEventModel{
			RunID:      runID,
			PositionID: ev.PositionID,
			Symbol:     ev.Symbol,
			Action:     string(ev.Action),
			Reason:     ev.Reason,
			Directive:  ev.Directive,
			Detail:     ev.Detail,
		})
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}

// --------------------- Alert records ---------------------

// InsertAlertRecord 把 JSONL 日志里的记录镜像进数据库，供 HTTP 查询。
func (s *GormStore) InsertAlertRecord(ctx context.Context, rec alert.Record) error {
	row := storemodel.AlertRecordModel{
		Fingerprint:      rec.Fingerprint,
		AlertType:        rec.AlertType,
		Severity:         string(rec.Severity),
		Summary:          rec.Summary,
		ActionHint:       rec.ActionHint,
		Sent:             rec.Sent,
		SentAt:           rec.SentAt,
		SuppressedReason: rec.SuppressedReason,
		CreatedAt:        rec.CreatedAt,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *GormStore) RecentAlerts(ctx context.Context, limit int) ([]storemodel.AlertRecordModel, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []storemodel.AlertRecordModel
	return rows, s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error
}
