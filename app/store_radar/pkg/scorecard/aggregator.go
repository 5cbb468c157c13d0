package scorecard

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
)

// DefaultSampleSize 每个主题保留的样本引用数量
const DefaultSampleSize = 3

type settings struct {
	now         func() time.Time
	newID       func() string
	sampleSize  int
	onDuplicate func(model.Alert)
}

// Option 聚合器与告警评估器的可选参数
type Option func(*settings)

// WithClock 指定时间来源
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithIDGenerator 指定 ID 生成方式
func WithIDGenerator(fn func() string) Option {
	return func(s *settings) { s.newID = fn }
}

// WithSampleSize 指定每个主题保留的样本数量
func WithSampleSize(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.sampleSize = n
		}
	}
}

// OnDuplicate 告警因去重被跳过时回调
func OnDuplicate(fn func(model.Alert)) Option {
	return func(s *settings) { s.onDuplicate = fn }
}

func newSettings(opts []Option) settings {
	s := settings{
		now:        time.Now,
		newID:      uuid.NewString,
		sampleSize: DefaultSampleSize,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Aggregator 多主题加权评分聚合器，无状态，可并发使用
type Aggregator struct {
	settings
}

// NewAggregator 创建聚合器
func NewAggregator(opts ...Option) *Aggregator {
	return &Aggregator{settings: newSettings(opts)}
}

// NormalizeWeights 校验权重并归一化到总和为 1。
// 总和为 0 时原样返回，由调用方得到 ErrNoScorableThemes。
func NormalizeWeights(weights model.WeightConfig) (model.WeightConfig, error) {
	var sum float64
	for k, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, fmt.Errorf("%w: %s=%v", ErrInvalidWeight, k, w)
		}
		sum += w
	}
	out := make(model.WeightConfig, len(weights))
	for _, k := range weights.Keys() {
		if sum > 0 {
			out[k] = weights[k] / sum
		} else {
			out[k] = 0
		}
	}
	return out, nil
}

type observation struct {
	score  float64
	source string
}

// ComputeScorecard 将一组已评分条目聚合为门店评分卡。
//
// 每个主题的得分是提及该主题的条目的算术平均，未提及的条目不参与。
// 总分只在"权重大于 0 且有数据"的主题上重新归一化权重后加权求和。
// 结果与条目顺序无关。
func (a *Aggregator) ComputeScorecard(storeID string, analysisType model.AnalysisType, items []model.RatedItem, weights model.WeightConfig) (*model.Scorecard, error) {
	if len(items) == 0 {
		return nil, ErrEmptyInput
	}
	if !analysisType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAnalysisType, analysisType)
	}

	norm, err := NormalizeWeights(weights)
	if err != nil {
		return nil, err
	}

	observed := make(map[model.ThemeKey][]observation)
	for _, item := range items {
		if item.StoreID != storeID {
			return nil, fmt.Errorf("%w: item %s is for store %q, want %q", ErrForeignItem, item.ID, item.StoreID, storeID)
		}
		if item.AnalysisType != "" && item.AnalysisType != analysisType {
			return nil, fmt.Errorf("%w: item %s is %s, want %s", ErrForeignItem, item.ID, item.AnalysisType, analysisType)
		}
		source := item.SourceID
		if source == "" {
			source = item.ID
		}
		for theme, v := range item.Scores {
			if math.IsNaN(v) || v < 0 || v > 100 {
				return nil, fmt.Errorf("%w: item %s %s=%v", ErrScoreOutOfRange, item.ID, theme, v)
			}
			observed[theme] = append(observed[theme], observation{score: v, source: source})
		}
	}

	themes := unionThemes(norm, observed)
	diag := model.Diagnostics{}
	for _, theme := range themes {
		_, weighted := norm[theme]
		_, seen := observed[theme]
		if seen && !weighted {
			diag.UnweightedThemes = append(diag.UnweightedThemes, theme)
		}
		if weighted && norm[theme] > 0 && !seen {
			diag.UnobservedThemes = append(diag.UnobservedThemes, theme)
		}
	}
	for _, theme := range model.Catalog(analysisType) {
		if _, ok := norm[theme]; !ok {
			diag.MissingWeights = append(diag.MissingWeights, theme)
		}
	}
	model.SortThemes(diag.MissingWeights)

	breakdown := make([]model.ThemeScore, 0, len(themes))
	var weightedSum, totalWeight float64
	for _, theme := range themes {
		ts := model.ThemeScore{Theme: theme, Weight: norm[theme]}
		if obs := observed[theme]; len(obs) > 0 {
			mean, samples := summarize(obs, a.sampleSize)
			ts.Score = &mean
			ts.Observations = len(obs)
			ts.Samples = samples
			if ts.Weight > 0 {
				weightedSum += ts.Weight * mean
				totalWeight += ts.Weight
			}
		}
		breakdown = append(breakdown, ts)
	}
	if totalWeight == 0 {
		return nil, ErrNoScorableThemes
	}
	for i := range breakdown {
		if breakdown[i].Score != nil && breakdown[i].Weight > 0 {
			breakdown[i].EffectiveWeight = breakdown[i].Weight / totalWeight
		}
	}

	return &model.Scorecard{
		ID:           a.newID(),
		StoreID:      storeID,
		AnalysisType: analysisType,
		Overall:      weightedSum / totalWeight,
		Themes:       breakdown,
		Weights:      norm,
		ItemCount:    len(items),
		GeneratedAt:  a.now(),
		Diagnostics:  diag,
	}, nil
}

func unionThemes(weights model.WeightConfig, observed map[model.ThemeKey][]observation) []model.ThemeKey {
	seen := make(map[model.ThemeKey]struct{}, len(weights)+len(observed))
	for k := range weights {
		seen[k] = struct{}{}
	}
	for k := range observed {
		seen[k] = struct{}{}
	}
	out := make([]model.ThemeKey, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	model.SortThemes(out)
	return out
}

// summarize 按分数升序求和，保证浮点结果与输入顺序无关；样本取得分最低的条目
func summarize(obs []observation, sampleSize int) (float64, []string) {
	sorted := make([]observation, len(obs))
	copy(sorted, obs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].score != sorted[j].score {
			return sorted[i].score < sorted[j].score
		}
		return sorted[i].source < sorted[j].source
	})

	var sum float64
	for _, o := range sorted {
		sum += o.score
	}

	var samples []string
	for _, o := range sorted {
		if len(samples) >= sampleSize {
			break
		}
		samples = append(samples, o.source)
	}
	return sum / float64(len(sorted)), samples
}
