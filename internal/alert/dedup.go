package alert

import (
	"sync"
	"time"
)

// Severity 标记告警级别，用于通知渠道的展示。
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert 是一条待发送的逻辑告警。
type Alert struct {
	Type       string
	ReasonCode string
	Symbol     string
	Stage      string
	Extra      []string
	Severity   Severity
	Summary    string
	ActionHint string
}

// Fingerprint 计算该告警的稳定指纹。
func (a Alert) Fingerprint() string {
	return Fingerprint(a.Type, a.ReasonCode, a.Symbol, a.Stage, CanonicalExtra(a.Extra))
}

// Deduper 做指纹级去重与冷却。健康状态是显式结构体字段，
// 时钟可注入，便于测试与重置。
type Deduper struct {
	mu       sync.Mutex
	cooldown time.Duration
	lastSent map[string]time.Time
	now      func() time.Time
}

// 去重判定的抑制原因。
const (
	SuppressCooldown = "cooldown"
)

func NewDeduper(cooldown time.Duration) *Deduper {
	return &Deduper{
		cooldown: cooldown,
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

// WithClock 注入时钟，测试用。
func (d *Deduper) WithClock(now func() time.Time) *Deduper {
	d.now = now
	return d
}

// ShouldSend 判断指纹是否通过冷却窗口；通过时记录本次发送时间。
// 返回 (是否发送, 抑制原因)。
func (d *Deduper) ShouldSend(fingerprint string) (bool, string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.lastSent[fingerprint]; ok && now.Sub(last) < d.cooldown {
		return false, SuppressCooldown
	}
	d.lastSent[fingerprint] = now
	return true, ""
}

// Reset 清空冷却记录。
func (d *Deduper) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastSent = make(map[string]time.Time)
}
