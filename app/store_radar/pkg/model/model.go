package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ThemeKey 评分主题（评论维度或视觉指标）
type ThemeKey string

// AnalysisType 分析类型
type AnalysisType string

const (
	AnalysisSentiment AnalysisType = "sentiment" // 顾客评论情感分析
	AnalysisVisual    AnalysisType = "visual"    // 店内画面视觉分析
)

// 评论维度
const (
	ThemeWaitingTime         ThemeKey = "waiting_time"
	ThemeStaffBehavior       ThemeKey = "staff_behavior"
	ThemeCleanliness         ThemeKey = "cleanliness"
	ThemeEaseOfLocatingItems ThemeKey = "ease_of_locating_items"
	ThemeProductAvailability ThemeKey = "product_availability"
	ThemeStoreLayout         ThemeKey = "store_layout"
)

// 视觉指标
const (
	ThemeEmptyShelves      ThemeKey = "empty_shelves"
	ThemeQueueLength       ThemeKey = "queue_length"
	ThemeStaffPresence     ThemeKey = "staff_presence"
	ThemeStoreOrganization ThemeKey = "store_organization"
)

var catalogs = map[AnalysisType][]ThemeKey{
	AnalysisSentiment: {
		ThemeWaitingTime,
		ThemeStaffBehavior,
		ThemeCleanliness,
		ThemeEaseOfLocatingItems,
		ThemeProductAvailability,
		ThemeStoreLayout,
	},
	AnalysisVisual: {
		ThemeCleanliness,
		ThemeEmptyShelves,
		ThemeQueueLength,
		ThemeStaffPresence,
		ThemeStoreOrganization,
	},
}

// AnalysisTypes 返回所有支持的分析类型
func AnalysisTypes() []AnalysisType {
	return []AnalysisType{AnalysisSentiment, AnalysisVisual}
}

// Valid 判断分析类型是否受支持
func (t AnalysisType) Valid() bool {
	_, ok := catalogs[t]
	return ok
}

// Catalog 返回分析类型对应的主题列表，未知类型返回空列表
func Catalog(t AnalysisType) []ThemeKey {
	themes := catalogs[t]
	out := make([]ThemeKey, len(themes))
	copy(out, themes)
	return out
}

// InCatalog 判断主题是否属于该分析类型
func InCatalog(t AnalysisType, theme ThemeKey) bool {
	for _, k := range catalogs[t] {
		if k == theme {
			return true
		}
	}
	return false
}

// WeightConfig 主题权重配置
type WeightConfig map[ThemeKey]float64

// Clone 深拷贝
func (w WeightConfig) Clone() WeightConfig {
	if w == nil {
		return nil
	}
	out := make(WeightConfig, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Keys 返回按字典序排列的主题
func (w WeightConfig) Keys() []ThemeKey {
	keys := make([]ThemeKey, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	SortThemes(keys)
	return keys
}

// SortThemes 按字典序原地排序
func SortThemes(themes []ThemeKey) {
	sort.Slice(themes, func(i, j int) bool { return themes[i] < themes[j] })
}

// RatedItem 单条已评分的数据（一条评论或一帧画面）
type RatedItem struct {
	ID           string               `json:"id"`
	StoreID      string               `json:"store_id"`
	AnalysisType AnalysisType         `json:"analysis_type"`
	SourceID     string               `json:"source_id"` // 原始评论或画面的引用
	Scores       map[ThemeKey]float64 `json:"scores"`    // 0-100，缺失的主题表示未提及
	CreatedAt    time.Time            `json:"created_at"`
}

// ThemeScore 单个主题的聚合结果
type ThemeScore struct {
	Theme ThemeKey `json:"theme"`
	// Score 为 nil 表示没有任何条目提及该主题
	Score           *float64 `json:"score"`
	Weight          float64  `json:"weight"`           // 归一化后的配置权重
	EffectiveWeight float64  `json:"effective_weight"` // 在已观测主题上重新归一化后的权重
	Observations    int      `json:"observations"`
	Samples         []string `json:"samples,omitempty"` // 得分最低的若干条目来源
}

// Diagnostics 聚合过程中的非致命提示
type Diagnostics struct {
	// UnweightedThemes 条目中出现但权重配置中缺失的主题，按权重 0 处理
	UnweightedThemes []ThemeKey `json:"unweighted_themes,omitempty"`
	// MissingWeights 分析类型目录中存在但权重配置中缺失的主题
	MissingWeights []ThemeKey `json:"missing_weights,omitempty"`
	// UnobservedThemes 权重大于 0 但没有任何数据的主题
	UnobservedThemes []ThemeKey `json:"unobserved_themes,omitempty"`
}

// Empty 是否没有任何提示
func (d Diagnostics) Empty() bool {
	return len(d.UnweightedThemes) == 0 && len(d.MissingWeights) == 0 && len(d.UnobservedThemes) == 0
}

// Scorecard 某门店某分析类型的一次加权评分结果，生成后不可修改
type Scorecard struct {
	ID           string       `json:"id"`
	StoreID      string       `json:"store_id"`
	AnalysisType AnalysisType `json:"analysis_type"`
	Overall      float64      `json:"overall"`
	Themes       []ThemeScore `json:"themes"`  // 按主题字典序
	Weights      WeightConfig `json:"weights"` // 本次使用的归一化权重，用于复现
	ItemCount    int          `json:"item_count"`
	GeneratedAt  time.Time    `json:"generated_at"`
	Diagnostics  Diagnostics  `json:"diagnostics"`
}

// Theme 查找主题得分
func (s *Scorecard) Theme(key ThemeKey) (ThemeScore, bool) {
	for _, ts := range s.Themes {
		if ts.Theme == key {
			return ts, true
		}
	}
	return ThemeScore{}, false
}

// Severity 告警级别
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid 判断级别是否合法
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Comparison 阈值比较方式
type Comparison string

const (
	LessThan       Comparison = "<"
	LessOrEqual    Comparison = "<="
	GreaterThan    Comparison = ">"
	GreaterOrEqual Comparison = ">="
)

// ParseComparison 解析比较符，兼容 lt/lte/gt/gte 写法
func ParseComparison(s string) (Comparison, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "<", "lt":
		return LessThan, nil
	case "<=", "lte", "le":
		return LessOrEqual, nil
	case ">", "gt":
		return GreaterThan, nil
	case ">=", "gte", "ge":
		return GreaterOrEqual, nil
	}
	return "", fmt.Errorf("unknown comparison %q", s)
}

// Breached 判断观测值是否触发阈值
func (c Comparison) Breached(observed, threshold float64) bool {
	switch c {
	case LessThan:
		return observed < threshold
	case LessOrEqual:
		return observed <= threshold
	case GreaterThan:
		return observed > threshold
	case GreaterOrEqual:
		return observed >= threshold
	}
	return false
}

// AlertRule 告警规则
type AlertRule struct {
	Theme ThemeKey `json:"theme" yaml:"theme"`
	// AnalysisType 为空表示对任意分析类型生效
	AnalysisType AnalysisType `json:"analysis_type,omitempty" yaml:"analysis_type"`
	Comparison   Comparison   `json:"comparison" yaml:"comparison"`
	Threshold    float64      `json:"threshold" yaml:"threshold"`
	Severity     Severity     `json:"severity" yaml:"severity"`
}

// Validate 校验规则
func (r AlertRule) Validate() error {
	if r.Theme == "" {
		return fmt.Errorf("alert rule: theme is required")
	}
	if r.AnalysisType != "" && !r.AnalysisType.Valid() {
		return fmt.Errorf("alert rule %s: unknown analysis type %q", r.Theme, r.AnalysisType)
	}
	if _, err := ParseComparison(string(r.Comparison)); err != nil {
		return fmt.Errorf("alert rule %s: %w", r.Theme, err)
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("alert rule %s: unknown severity %q", r.Theme, r.Severity)
	}
	return nil
}

// Alert 告警，只能通过显式操作解除
type Alert struct {
	ID           string       `json:"id"`
	StoreID      string       `json:"store_id"`
	AnalysisType AnalysisType `json:"analysis_type"`
	Theme        ThemeKey     `json:"theme"`
	Observed     float64      `json:"observed"`
	Threshold    float64      `json:"threshold"`
	Comparison   Comparison   `json:"comparison"`
	Severity     Severity     `json:"severity"`
	ScorecardID  string       `json:"scorecard_id"`
	Description  string       `json:"description"`
	CreatedAt    time.Time    `json:"created_at"`
	Resolved     bool         `json:"resolved"`
	ResolvedAt   *time.Time   `json:"resolved_at,omitempty"`
}

// AlertFilter 告警查询条件
type AlertFilter struct {
	StoreID  string
	Resolved *bool // nil 表示不过滤
}

// Match 判断告警是否满足条件
func (f AlertFilter) Match(a Alert) bool {
	if f.StoreID != "" && a.StoreID != f.StoreID {
		return false
	}
	if f.Resolved != nil && a.Resolved != *f.Resolved {
		return false
	}
	return true
}
