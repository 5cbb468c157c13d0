package scorecard

import (
	"context"
	"fmt"

	"github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
)

// AlertStore 告警去重存储
type AlertStore interface {
	// CreateIfNoneOpen 在同一门店、分析类型、主题、级别不存在未解除告警时写入 alert，
	// 检查与写入必须是原子的。返回是否真正写入。
	CreateIfNoneOpen(ctx context.Context, alert model.Alert) (bool, error)
}

// Evaluator 根据告警规则检查评分卡并生成新告警
type Evaluator struct {
	settings
	store AlertStore
}

// NewEvaluator 创建告警评估器
func NewEvaluator(store AlertStore, opts ...Option) *Evaluator {
	return &Evaluator{settings: newSettings(opts), store: store}
}

// EvaluateAlerts 对评分卡逐条应用规则，返回本次新建的告警。
// 已存在未解除的同门店、同分析类型、同主题、同级别告警时静默跳过。
func (e *Evaluator) EvaluateAlerts(ctx context.Context, sc *model.Scorecard, rules []model.AlertRule) ([]model.Alert, error) {
	normalized := make([]model.AlertRule, 0, len(rules))
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
		cmp, _ := model.ParseComparison(string(r.Comparison))
		r.Comparison = cmp
		normalized = append(normalized, r)
	}

	var created []model.Alert
	for _, r := range normalized {
		if r.AnalysisType != "" && r.AnalysisType != sc.AnalysisType {
			continue
		}
		ts, ok := sc.Theme(r.Theme)
		if !ok || ts.Score == nil {
			continue
		}
		observed := *ts.Score
		if !r.Comparison.Breached(observed, r.Threshold) {
			continue
		}

		alert := model.Alert{
			ID:           e.newID(),
			StoreID:      sc.StoreID,
			AnalysisType: sc.AnalysisType,
			Theme:        r.Theme,
			Observed:     observed,
			Threshold:    r.Threshold,
			Comparison:   r.Comparison,
			Severity:     r.Severity,
			ScorecardID:  sc.ID,
			Description:  fmt.Sprintf("%s score %.1f %s %.1f", r.Theme, observed, r.Comparison, r.Threshold),
			CreatedAt:    e.now(),
		}
		ok, err := e.store.CreateIfNoneOpen(ctx, alert)
		if err != nil {
			return created, fmt.Errorf("save alert %s/%s/%s: %w", alert.StoreID, alert.Theme, alert.Severity, err)
		}
		if ok {
			created = append(created, alert)
		} else if e.onDuplicate != nil {
			e.onDuplicate(alert)
		}
	}
	return created, nil
}
