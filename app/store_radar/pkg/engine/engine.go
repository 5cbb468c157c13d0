package engine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/store_radar/app/store_radar/pkg/config"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/logger"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/metrics"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/notify"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/oracle"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/scorecard"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/storage"
)

// ErrInvalidInput 请求参数不合法
var ErrInvalidInput = errors.New("invalid input")

// Engine 核心处理引擎：打分入库、生成评分卡、检查告警
type Engine struct {
	cfg        *config.Config
	store      storage.Store
	oracle     oracle.ScoringOracle
	notifier   notify.Notifier
	metrics    *metrics.Metrics
	aggregator *scorecard.Aggregator
	evaluator  *scorecard.Evaluator
	now        func() time.Time
	retryDelay time.Duration
}

// Option 引擎可选参数
type Option func(*Engine)

// WithOracle 指定打分实现
func WithOracle(o oracle.ScoringOracle) Option {
	return func(e *Engine) { e.oracle = o }
}

// WithNotifier 指定告警通知器
func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithMetrics 指定指标集合
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock 指定时间来源
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRetryDelay 指定打分失败重试的基础间隔
func WithRetryDelay(d time.Duration) Option {
	return func(e *Engine) { e.retryDelay = d }
}

// NewEngine 创建引擎实例，未指定打分实现时根据配置选择 LLM 或 mock
func NewEngine(ctx context.Context, cfg *config.Config, store storage.Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:        cfg,
		store:      store,
		now:        time.Now,
		retryDelay: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.oracle == nil {
		if cfg.LLM.Enabled() {
			// 初始化限流器
			limit := rate.Limit(float64(cfg.Concurrency.RPM) / 60.0)
			burst := cfg.Concurrency.QPS
			if burst < 1 {
				burst = 1
			}
			o, err := oracle.NewLLMOracle(ctx, cfg.LLM, rate.NewLimiter(limit, burst))
			if err != nil {
				return nil, err
			}
			e.oracle = o
		} else {
			logger.Log.Warn("LLM 未配置，使用 mock 打分")
			e.oracle = oracle.NewStaticOracle()
		}
	}
	if e.notifier == nil {
		e.notifier = notify.New(cfg.Kafka)
	}
	if e.metrics == nil {
		e.metrics = metrics.New()
	}

	e.aggregator = scorecard.NewAggregator(scorecard.WithClock(e.now))
	e.evaluator = scorecard.NewEvaluator(store,
		scorecard.WithClock(e.now),
		scorecard.OnDuplicate(func(a model.Alert) {
			e.metrics.AlertsDeduplicated.Inc()
			logger.Log.Debugf("门店 [%s] 已存在未解除告警 %s/%s，跳过", a.StoreID, a.Theme, a.Severity)
		}),
	)
	return e, nil
}

// Metrics 返回引擎使用的指标集合
func (e *Engine) Metrics() *metrics.Metrics {
	return e.metrics
}

// Store 返回底层存储
func (e *Engine) Store() storage.Store {
	return e.store
}

// Close 释放通知器
func (e *Engine) Close() error {
	return e.notifier.Close()
}

// Collaborators 返回打分与通知组件的配置情况
func (e *Engine) Collaborators() map[string]string {
	out := map[string]string{"oracle": "custom", "notifier": "custom"}
	switch e.oracle.(type) {
	case *oracle.LLMOracle:
		out["oracle"] = "llm"
	case *oracle.StaticOracle:
		out["oracle"] = "static"
	}
	switch e.notifier.(type) {
	case *notify.KafkaNotifier:
		out["notifier"] = "kafka"
	case notify.Nop:
		out["notifier"] = "none"
	}
	return out
}

func (e *Engine) workers() int {
	if e.cfg.Concurrency.Workers > 0 {
		return e.cfg.Concurrency.Workers
	}
	return 4
}

// Weights 返回分析类型当前生效的权重：运营配置优先，其次配置文件，最后内置默认值
func (e *Engine) Weights(ctx context.Context, analysisType model.AnalysisType) (model.WeightConfig, error) {
	if !analysisType.Valid() {
		return nil, fmt.Errorf("%w: unknown analysis type %q", ErrInvalidInput, analysisType)
	}
	w, ok, err := e.store.GetWeights(ctx, analysisType)
	if err != nil {
		return nil, err
	}
	if ok {
		return w, nil
	}
	if w, ok := e.cfg.Scoring.Weights[analysisType]; ok {
		return w.Clone(), nil
	}
	return config.DefaultWeights()[analysisType], nil
}

// UpdateWeights 校验、归一化并保存运营配置的权重
func (e *Engine) UpdateWeights(ctx context.Context, analysisType model.AnalysisType, weights model.WeightConfig) (model.WeightConfig, error) {
	if !analysisType.Valid() {
		return nil, fmt.Errorf("%w: unknown analysis type %q", ErrInvalidInput, analysisType)
	}
	norm, err := scorecard.NormalizeWeights(weights)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	var positive bool
	for _, w := range norm {
		positive = positive || w > 0
	}
	if !positive {
		return nil, fmt.Errorf("%w: at least one weight must be positive", ErrInvalidInput)
	}
	if err := e.store.PutWeights(ctx, analysisType, norm); err != nil {
		return nil, err
	}
	logger.Log.Infof("更新 %s 权重: %v", analysisType, norm)
	return norm, nil
}

// AnalysisResult 一次分析的产出
type AnalysisResult struct {
	Scorecard *model.Scorecard `json:"scorecard"`
	Alerts    []model.Alert    `json:"alerts"`
}

// Analyze 为门店生成评分卡并检查告警。override 非空时使用传入的权重。
func (e *Engine) Analyze(ctx context.Context, storeID string, analysisType model.AnalysisType, override model.WeightConfig) (*AnalysisResult, error) {
	if storeID == "" {
		return nil, fmt.Errorf("%w: store id is required", ErrInvalidInput)
	}
	weights := override
	if len(weights) == 0 {
		w, err := e.Weights(ctx, analysisType)
		if err != nil {
			return nil, err
		}
		weights = w
	}

	items, err := e.store.ListItems(ctx, storeID, analysisType)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}

	sc, err := e.aggregator.ComputeScorecard(storeID, analysisType, items, weights)
	e.metrics.ScorecardsComputed.WithLabelValues(string(analysisType), outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	if len(sc.Diagnostics.UnweightedThemes) > 0 {
		logger.Log.Warnf("门店 [%s] %s 存在未配置权重的主题: %v", storeID, analysisType, sc.Diagnostics.UnweightedThemes)
	}
	if err := e.store.SaveScorecard(ctx, sc); err != nil {
		return nil, fmt.Errorf("save scorecard: %w", err)
	}

	alerts, err := e.evaluator.EvaluateAlerts(ctx, sc, e.cfg.Scoring.AlertRules)
	for _, a := range alerts {
		e.metrics.AlertsRaised.WithLabelValues(string(a.Severity)).Inc()
	}
	if len(alerts) > 0 {
		// 通知失败不影响已写入的告警
		if nerr := e.notifier.Notify(ctx, alerts); nerr != nil {
			logger.Log.Errorf("发送告警通知失败 [%s]: %v", storeID, nerr)
		}
	}
	if err != nil {
		return &AnalysisResult{Scorecard: sc, Alerts: alerts}, fmt.Errorf("evaluate alerts: %w", err)
	}

	logger.Log.Infof("门店 [%s] %s 评分 %.1f，条目 %d，新告警 %d", storeID, analysisType, sc.Overall, sc.ItemCount, len(alerts))
	return &AnalysisResult{Scorecard: sc, Alerts: alerts}, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, scorecard.ErrEmptyInput):
		return "empty"
	case errors.Is(err, scorecard.ErrNoScorableThemes):
		return "no_scorable_themes"
	}
	return "error"
}

// BatchReport 批量分析汇总
type BatchReport struct {
	Stores     int               `json:"stores"`
	Scorecards int               `json:"scorecards"`
	Alerts     int               `json:"alerts"`
	Skipped    int               `json:"skipped"`
	Failures   map[string]string `json:"failures,omitempty"`
}

// AnalyzeAll 并行分析多个门店，门店之间互不影响，只汇总计数。
// storeIDs 为空时依次使用配置中的门店和所有有数据的门店。
func (e *Engine) AnalyzeAll(ctx context.Context, storeIDs []string) (*BatchReport, error) {
	if len(storeIDs) == 0 {
		storeIDs = e.cfg.Stores
	}
	if len(storeIDs) == 0 {
		ids, err := e.store.ListStoreIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list stores: %w", err)
		}
		storeIDs = ids
	}

	report := &BatchReport{Stores: len(storeIDs), Failures: make(map[string]string)}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(e.workers())
	for _, storeID := range storeIDs {
		g.Go(func() error {
			for _, t := range model.AnalysisTypes() {
				res, err := e.Analyze(ctx, storeID, t, nil)

				mu.Lock()
				switch {
				case errors.Is(err, scorecard.ErrEmptyInput):
					report.Skipped++
				case err != nil:
					logger.Log.Errorf("分析门店失败 [%s/%s]: %v", storeID, t, err)
					report.Failures[storeID+"/"+string(t)] = err.Error()
				default:
					report.Scorecards++
				}
				if res != nil {
					report.Alerts += len(res.Alerts)
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}
	logger.Log.Infof("批量分析完成: 门店 %d，评分卡 %d，新告警 %d，跳过 %d，失败 %d",
		report.Stores, report.Scorecards, report.Alerts, report.Skipped, len(report.Failures))
	return report, nil
}

// Review 待打分的评论
type Review struct {
	SourceID string `json:"source_id"`
	Text     string `json:"text"`
}

// Frame 待打分的店内画面
type Frame struct {
	SourceID string `json:"source_id"`
	Data     []byte `json:"data"`
}

// IngestResult 打分入库结果
type IngestResult struct {
	Submitted int               `json:"submitted"`
	Scored    int               `json:"scored"`
	Skipped   int               `json:"skipped"` // 打分结果为空的条目
	Failed    int               `json:"failed"`
	Items     []model.RatedItem `json:"items"`
}

// IngestReviews 对评论逐条打分并保存
func (e *Engine) IngestReviews(ctx context.Context, storeID string, reviews []Review) (*IngestResult, error) {
	return e.ingest(ctx, storeID, model.AnalysisSentiment, len(reviews), func(ctx context.Context, i int) (string, map[model.ThemeKey]float64, error) {
		scores, err := e.oracle.ScoreReview(ctx, reviews[i].Text)
		return reviews[i].SourceID, scores, err
	})
}

// IngestFrames 对画面逐帧打分并保存
func (e *Engine) IngestFrames(ctx context.Context, storeID string, frames []Frame) (*IngestResult, error) {
	return e.ingest(ctx, storeID, model.AnalysisVisual, len(frames), func(ctx context.Context, i int) (string, map[model.ThemeKey]float64, error) {
		scores, err := e.oracle.ScoreImageFrame(ctx, frames[i].Data)
		return frames[i].SourceID, scores, err
	})
}

type scoreFunc func(ctx context.Context, i int) (string, map[model.ThemeKey]float64, error)

func (e *Engine) ingest(ctx context.Context, storeID string, analysisType model.AnalysisType, n int, score scoreFunc) (*IngestResult, error) {
	if storeID == "" {
		return nil, fmt.Errorf("%w: store id is required", ErrInvalidInput)
	}
	kind := "review"
	if analysisType == model.AnalysisVisual {
		kind = "frame"
	}

	slots := make([]*model.RatedItem, n)
	result := &IngestResult{Submitted: n}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(e.workers())
	for i := 0; i < n; i++ {
		g.Go(func() error {
			var (
				source string
				scores map[model.ThemeKey]float64
			)
			err := e.withRetry(ctx, func() error {
				start := time.Now()
				var err error
				source, scores, err = score(ctx, i)
				e.metrics.ObserveOracle(kind, start, err)
				return err
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				logger.Log.Errorf("打分失败 [%s #%d]: %v", storeID, i, err)
				result.Failed++
			case len(scores) == 0:
				result.Skipped++
			default:
				id := uuid.NewString()
				if source == "" {
					source = id
				}
				slots[i] = &model.RatedItem{
					ID:           id,
					StoreID:      storeID,
					AnalysisType: analysisType,
					SourceID:     source,
					Scores:       scores,
					CreatedAt:    e.now(),
				}
				result.Scored++
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return result, err
	}

	for _, it := range slots {
		if it != nil {
			result.Items = append(result.Items, *it)
		}
	}
	if len(result.Items) > 0 {
		if err := e.store.SaveItems(ctx, result.Items); err != nil {
			return result, fmt.Errorf("save items: %w", err)
		}
	}
	logger.Log.Infof("门店 [%s] %s 打分完成: 提交 %d，成功 %d，跳过 %d，失败 %d",
		storeID, analysisType, result.Submitted, result.Scored, result.Skipped, result.Failed)
	return result, nil
}

// withRetry 仅对打分服务不可用的错误做指数退避重试
func (e *Engine) withRetry(ctx context.Context, fn func() error) error {
	maxRetries := 3
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !errors.Is(err, oracle.ErrUnavailable) || i == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.retryDelay * time.Duration(1<<i)):
		}
	}
	return lastErr
}

// SubmitItems 保存外部已评分的条目（人工评分或其他打分来源），返回带服务端 ID 的条目
func (e *Engine) SubmitItems(ctx context.Context, items []model.RatedItem) ([]model.RatedItem, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrInvalidInput)
	}
	out := make([]model.RatedItem, 0, len(items))
	for i, it := range items {
		if it.StoreID == "" {
			return nil, fmt.Errorf("%w: item %d: store id is required", ErrInvalidInput, i)
		}
		if !it.AnalysisType.Valid() {
			return nil, fmt.Errorf("%w: item %d: unknown analysis type %q", ErrInvalidInput, i, it.AnalysisType)
		}
		if len(it.Scores) == 0 {
			return nil, fmt.Errorf("%w: item %d: no scores", ErrInvalidInput, i)
		}
		for _, k := range model.WeightConfig(it.Scores).Keys() {
			if v := it.Scores[k]; math.IsNaN(v) || v < 0 || v > 100 {
				return nil, fmt.Errorf("%w: item %d: %s=%v out of range", ErrInvalidInput, i, k, v)
			}
		}
		// ID 总是由服务端生成，调用方给出的 ID 只作为来源引用
		id := uuid.NewString()
		it.SourceID = cmp.Or(it.SourceID, it.ID, id)
		it.ID = id
		if it.CreatedAt.IsZero() {
			it.CreatedAt = e.now()
		}
		out = append(out, it)
	}
	if err := e.store.SaveItems(ctx, out); err != nil {
		return nil, fmt.Errorf("save items: %w", err)
	}
	return out, nil
}
