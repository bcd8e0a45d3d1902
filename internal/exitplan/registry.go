package exitplan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"wheelhouse/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Template 描述单个退出计划模板。
type Template struct {
	ID          string                 `mapstructure:"id" yaml:"id"`
	Description string                 `mapstructure:"description" yaml:"description"`
	Version     int                    `mapstructure:"version" yaml:"version"`
	Schema      map[string]interface{} `mapstructure:"schema" yaml:"schema"`
	Defaults    map[string]interface{} `mapstructure:"defaults" yaml:"defaults"`

	schemaCompiled *jsonschema.Schema
}

// FileConfig 映射 exit_plans。
type FileConfig struct {
	ExitPlans map[string]Template `mapstructure:"exit_plans" yaml:"exit_plans"`
}

// Snapshot 公开的模板快照。
type Snapshot struct {
	Version   int64
	LoadedAt  time.Time
	Templates map[string]Template
}

// ChangeListener 在 registry 重载时触发。
type ChangeListener func(Snapshot)

// Registry 管理 exit plan 模板，文件变更时热重载。
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// NewRegistry 读取配置文件并监听更新。
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("exit plan registry requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read exit plan config failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("exit plan reload failed: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot 返回当前模板集。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Template 返回指定 ID 的模板。
func (r *Registry) Template(id string) (Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tpl, ok := r.snapshot.Templates[strings.TrimSpace(id)]
	return tpl, ok
}

// TemplateIDs 返回全部模板 ID（字典序）。
func (r *Registry) TemplateIDs() []string {
	snap := r.Snapshot()
	out := make([]string, 0, len(snap.Templates))
	for id := range snap.Templates {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// OnChange 注册重载回调。
func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Build 校验参数并产出 Plan。params 为空时使用模板 defaults。
func (r *Registry) Build(planID string, params map[string]any) (Plan, error) {
	tpl, ok := r.Template(planID)
	if !ok {
		return Plan{}, fmt.Errorf("unknown exit_plan: %s", planID)
	}
	if len(params) == 0 {
		params = tpl.Defaults
	}
	if err := tpl.Validate(params); err != nil {
		return Plan{}, err
	}
	return FromParams(tpl.ID, params)
}

func (r *Registry) reload() error {
	cfg, err := readExitPlanFile(r.path)
	if err != nil {
		return err
	}
	templates := make(map[string]Template)
	for name, tpl := range cfg.ExitPlans {
		norm := normalizeTemplate(name, tpl)
		templates[norm.ID] = norm
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:   r.snapshot.Version + 1,
		LoadedAt:  time.Now(),
		Templates: templates,
	}
	r.mu.Unlock()
	logger.Infof("Exit plan registry loaded %d templates from %s", len(templates), filepath.Base(r.path))
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		if fn == nil {
			continue
		}
		go func(cb ChangeListener) {
			defer safeRecover("exit plan listener")
			cb(snap)
		}(fn)
	}
}

func normalizeTemplate(name string, tpl Template) Template {
	tpl.ID = strings.TrimSpace(tpl.ID)
	if tpl.ID == "" {
		tpl.ID = strings.TrimSpace(name)
	}
	if tpl.Version <= 0 {
		tpl.Version = 1
	}
	tpl.Description = strings.TrimSpace(tpl.Description)
	if len(tpl.Schema) > 0 {
		if compiled, err := compileSchema(tpl.Schema); err != nil {
			logger.Errorf("exit plan schema compile failed id=%s: %v", tpl.ID, err)
		} else {
			tpl.schemaCompiled = compiled
		}
	}
	return tpl
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:   src.Version,
		LoadedAt:  src.LoadedAt,
		Templates: make(map[string]Template, len(src.Templates)),
	}
	for id, tpl := range src.Templates {
		dst.Templates[id] = tpl
	}
	return dst
}

func safeRecover(tag string) {
	if r := recover(); r != nil {
		logger.Errorf("%s panic: %v", tag, r)
	}
}

func compileSchema(data map[string]interface{}) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	return compiler.Compile("schema.json")
}

func readExitPlanFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read exit plan config failed: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse exit plan config failed: %w", err)
	}
	return cfg, nil
}

// Validate 按模板 schema 校验参数；未配置 schema 时直接通过。
func (t Template) Validate(params map[string]any) error {
	if t.schemaCompiled == nil {
		return nil
	}
	sanitized := sanitizeParams(params)
	return t.schemaCompiled.Validate(sanitized)
}

// sanitizeParams 递归遍历 params，将字符串形式的数字转为 float64，
// 兼容配置来源偶尔给出 "0.6" 而非 0.6 的情况。
func sanitizeParams(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = sanitizeParams(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = sanitizeParams(child)
		}
		return out
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return val
		}
		if num, err := strconv.ParseFloat(s, 64); err == nil {
			return num
		}
		return val
	default:
		return val
	}
}
