package alert

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Fingerprint 对同一逻辑告警生成稳定指纹。参与哈希的字段及顺序固定为
// (alert_type, reason_code, symbol, stage, extra)，缺省字段取空串，
// 保证跨进程对同一条件算出相同指纹。
func Fingerprint(alertType, reasonCode, symbol, stage, extra string) string {
	parts := []string{alertType, reasonCode, symbol, stage, extra}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:16])
}

// CanonicalExtra 把一组附加标签归一化成与顺序无关的字符串，
// 供 Fingerprint 的 extra 位使用。
func CanonicalExtra(items []string) string {
	if len(items) == 0 {
		return ""
	}
	sorted := make([]string, len(items))
	copy(sorted, items)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
