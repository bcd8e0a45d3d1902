package model

import (
	"time"

	"gorm.io/datatypes"
)

// PositionModel 持久化一笔轮动持仓。
type PositionModel struct {
	ID               int64          `gorm:"primaryKey;autoIncrement"`
	Symbol           string         `gorm:"size:16;index:idx_positions_symbol_state"`
	Strategy         string         `gorm:"size:8"`
	Strike           float64        `gorm:"not null"`
	Expiry           time.Time      `gorm:"index"`
	Contracts        int            `gorm:"not null"`
	PremiumCollected float64        `gorm:"not null"`
	State            string         `gorm:"size:16;index:idx_positions_symbol_state"`
	StopPrice        float64        `gorm:""`
	Target1          float64        `gorm:""`
	Target2          float64        `gorm:""`
	ExitPlanJSON     datatypes.JSON `gorm:"column:exit_plan_json"`
	OpenedAt         time.Time      `gorm:""`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime"`
	CreatedAt        time.Time      `gorm:"autoCreateTime"`
}

func (PositionModel) TableName() string { return "positions" }

// VerdictLogModel 记录单次评估里单个 symbol 的最终裁决，供 HTTP 查询与复盘。
type VerdictLogModel struct {
	ID           int64          `gorm:"primaryKey;autoIncrement"`
	RunID        string         `gorm:"size:36;index:idx_verdicts_run"`
	Symbol       string         `gorm:"size:16;index:idx_verdicts_symbol"`
	Mode         string         `gorm:"size:8"`
	Verdict      string         `gorm:"size:16"`
	Reason       string         `gorm:"size:255"`
	Score        int            `gorm:""`
	Band         string         `gorm:"size:2"`
	ContractJSON datatypes.JSON `gorm:"column:contract_json"`
	TraceJSON    datatypes.JSON `gorm:"column:trace_json"`
	EvaluatedAt  time.Time      `gorm:"index"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
}

func (VerdictLogModel) TableName() string { return "verdict_logs" }

// LifecycleEventModel 记录生命周期引擎产出的指令，append-only。
type LifecycleEventModel struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	RunID      string    `gorm:"size:36;index"`
	PositionID int64     `gorm:"index"`
	Symbol     string    `gorm:"size:16"`
	Action     string    `gorm:"size:16"`
	Reason     string    `gorm:"size:32"`
	Directive  string    `gorm:"size:64"`
	Detail     string    `gorm:"size:255"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (LifecycleEventModel) TableName() string { return "lifecycle_events" }

// AlertRecordModel 是告警 JSONL 日志的数据库镜像，供 HTTP 查询。
type AlertRecordModel struct {
	ID               int64      `gorm:"primaryKey;autoIncrement"`
	Fingerprint      string     `gorm:"size:64;index"`
	AlertType        string     `gorm:"size:32"`
	Severity         string     `gorm:"size:16"`
	Summary          string     `gorm:"size:255"`
	ActionHint       string     `gorm:"size:255"`
	Sent             bool       `gorm:""`
	SentAt           *time.Time `gorm:""`
	SuppressedReason *string    `gorm:"size:32"`
	CreatedAt        time.Time  `gorm:"index"`
}

func (AlertRecordModel) TableName() string { return "alert_records" }
