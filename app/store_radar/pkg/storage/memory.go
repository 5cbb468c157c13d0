package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
)

// MemoryStore 内存实现，单把锁保证告警去重的原子性
type MemoryStore struct {
	mu         sync.Mutex
	items      []model.RatedItem
	scorecards []*model.Scorecard
	alerts     []model.Alert
	weights    map[model.AnalysisType]model.WeightConfig
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{weights: make(map[model.AnalysisType]model.WeightConfig)}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) SaveItems(ctx context.Context, items []model.RatedItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		it.Scores = copyScores(it.Scores)
		m.items = append(m.items, it)
	}
	return nil
}

func (m *MemoryStore) ListItems(ctx context.Context, storeID string, analysisType model.AnalysisType) ([]model.RatedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.RatedItem
	for _, it := range m.items {
		if it.StoreID == storeID && it.AnalysisType == analysisType {
			it.Scores = copyScores(it.Scores)
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) ListStoreIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{})
	var ids []string
	for _, it := range m.items {
		if _, ok := seen[it.StoreID]; !ok {
			seen[it.StoreID] = struct{}{}
			ids = append(ids, it.StoreID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryStore) SaveScorecard(ctx context.Context, sc *model.Scorecard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scorecards = append(m.scorecards, copyScorecard(sc))
	return nil
}

func (m *MemoryStore) ListScorecards(ctx context.Context, storeID string, analysisType model.AnalysisType, limit int) ([]*model.Scorecard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Scorecard
	for i := len(m.scorecards) - 1; i >= 0; i-- {
		sc := m.scorecards[i]
		if sc.StoreID != storeID || (analysisType != "" && sc.AnalysisType != analysisType) {
			continue
		}
		out = append(out, copyScorecard(sc))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) CreateIfNoneOpen(ctx context.Context, alert model.Alert) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if !a.Resolved && a.StoreID == alert.StoreID && a.AnalysisType == alert.AnalysisType &&
			a.Theme == alert.Theme && a.Severity == alert.Severity {
			return false, nil
		}
	}
	m.alerts = append(m.alerts, alert)
	return true, nil
}

func (m *MemoryStore) ListAlerts(ctx context.Context, filter model.AlertFilter) ([]model.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Alert
	for _, a := range m.alerts {
		if filter.Match(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetAlert(ctx context.Context, id string) (model.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.ID == id {
			return a, nil
		}
	}
	return model.Alert{}, ErrNotFound
}

func (m *MemoryStore) ResolveAlert(ctx context.Context, id string, at time.Time) (model.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].ID != id {
			continue
		}
		if !m.alerts[i].Resolved {
			m.alerts[i].Resolved = true
			m.alerts[i].ResolvedAt = &at
		}
		return m.alerts[i], nil
	}
	return model.Alert{}, ErrNotFound
}

func (m *MemoryStore) GetWeights(ctx context.Context, analysisType model.AnalysisType) (model.WeightConfig, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.weights[analysisType]
	return w.Clone(), ok, nil
}

func (m *MemoryStore) PutWeights(ctx context.Context, analysisType model.AnalysisType, weights model.WeightConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.weights[analysisType] = weights.Clone()
	return nil
}

func copyScores(in map[model.ThemeKey]float64) map[model.ThemeKey]float64 {
	if in == nil {
		return nil
	}
	out := make(map[model.ThemeKey]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// copyScorecard 深拷贝评分卡，调用方修改返回值不影响已保存的历史
func copyScorecard(sc *model.Scorecard) *model.Scorecard {
	cp := *sc
	cp.Weights = sc.Weights.Clone()
	if sc.Themes != nil {
		cp.Themes = make([]model.ThemeScore, len(sc.Themes))
		for i, ts := range sc.Themes {
			if ts.Score != nil {
				v := *ts.Score
				ts.Score = &v
			}
			ts.Samples = append([]string(nil), ts.Samples...)
			cp.Themes[i] = ts
		}
	}
	cp.Diagnostics = model.Diagnostics{
		UnweightedThemes: append([]model.ThemeKey(nil), sc.Diagnostics.UnweightedThemes...),
		MissingWeights:   append([]model.ThemeKey(nil), sc.Diagnostics.MissingWeights...),
		UnobservedThemes: append([]model.ThemeKey(nil), sc.Diagnostics.UnobservedThemes...),
	}
	return &cp
}
