package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/errors"

	"github.com/iWorld-y/store_radar/app/store_radar/pkg/engine"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
)

// mockEngine 记录调用参数的引擎替身
type mockEngine struct {
	mu         sync.Mutex
	override   model.WeightConfig
	weights    map[model.AnalysisType]model.WeightConfig
	reviews    []engine.Review
	ingestFail int
	err        error
}

func (m *mockEngine) Analyze(ctx context.Context, storeID string, analysisType model.AnalysisType, override model.WeightConfig) (*engine.AnalysisResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.override = override
	if m.err != nil {
		return nil, m.err
	}
	return &engine.AnalysisResult{Scorecard: &model.Scorecard{StoreID: storeID, AnalysisType: analysisType, Overall: 72}}, nil
}

func (m *mockEngine) AnalyzeAll(ctx context.Context, storeIDs []string) (*engine.BatchReport, error) {
	return &engine.BatchReport{Stores: len(storeIDs), Scorecards: 2 * len(storeIDs)}, m.err
}

func (m *mockEngine) Weights(ctx context.Context, analysisType model.AnalysisType) (model.WeightConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.weights[analysisType].Clone(), nil
}

func (m *mockEngine) UpdateWeights(ctx context.Context, analysisType model.AnalysisType, weights model.WeightConfig) (model.WeightConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.weights == nil {
		m.weights = make(map[model.AnalysisType]model.WeightConfig)
	}
	m.weights[analysisType] = weights.Clone()
	return weights, nil
}

func (m *mockEngine) IngestReviews(ctx context.Context, storeID string, reviews []engine.Review) (*engine.IngestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews = append(m.reviews, reviews...)
	return &engine.IngestResult{Submitted: len(reviews), Scored: len(reviews) - m.ingestFail, Failed: m.ingestFail}, m.err
}

func (m *mockEngine) IngestFrames(ctx context.Context, storeID string, frames []engine.Frame) (*engine.IngestResult, error) {
	return &engine.IngestResult{Submitted: len(frames), Scored: len(frames)}, m.err
}

func (m *mockEngine) SubmitItems(ctx context.Context, items []model.RatedItem) ([]model.RatedItem, error) {
	return items, m.err
}

func (m *mockEngine) Collaborators() map[string]string {
	return map[string]string{"oracle": "static", "notifier": "none"}
}

// mockScorecardRepo 模拟评分卡仓库
type mockScorecardRepo struct {
	gotLimit int
}

func (m *mockScorecardRepo) ListScorecards(ctx context.Context, storeID string, analysisType model.AnalysisType, limit int) ([]*model.Scorecard, error) {
	m.gotLimit = limit
	return []*model.Scorecard{{ID: "sc-1", StoreID: storeID, AnalysisType: analysisType}}, nil
}

// mockAlertRepo 模拟告警仓库
type mockAlertRepo struct {
	alerts   map[string]model.Alert
	resolves int
}

func (m *mockAlertRepo) ListAlerts(ctx context.Context, filter model.AlertFilter) ([]model.Alert, error) {
	var out []model.Alert
	for _, a := range m.alerts {
		if filter.Match(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAlertRepo) GetAlert(ctx context.Context, id string) (model.Alert, error) {
	a, ok := m.alerts[id]
	if !ok {
		return model.Alert{}, errors.NotFound("ALERT_NOT_FOUND", "alert not found")
	}
	return a, nil
}

func (m *mockAlertRepo) ResolveAlert(ctx context.Context, id string, at time.Time) (model.Alert, error) {
	a, err := m.GetAlert(ctx, id)
	if err != nil {
		return a, err
	}
	m.resolves++
	a.Resolved = true
	a.ResolvedAt = &at
	m.alerts[id] = a
	return a, nil
}

// mockItemRepo 模拟条目仓库
type mockItemRepo struct{}

func (m *mockItemRepo) ListItems(ctx context.Context, storeID string, analysisType model.AnalysisType) ([]model.RatedItem, error) {
	return []model.RatedItem{{ID: "it-1", StoreID: storeID, AnalysisType: analysisType}}, nil
}

func (m *mockItemRepo) ListStoreIDs(ctx context.Context) ([]string, error) {
	return []string{"s-1", "s-2"}, nil
}
