package server

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/store_radar/app/display/internal/conf"
	"github.com/iWorld-y/store_radar/app/display/internal/data"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/config"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/engine"
	srLogger "github.com/iWorld-y/store_radar/app/store_radar/pkg/logger"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/metrics"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
)

// RadarConfig 将 internal/conf.Radar 转换为 pkg/config.Config，未填写的部分使用默认值
func RadarConfig(c *conf.Radar) (*config.Config, error) {
	cfg := config.Default()
	if c == nil {
		return cfg, nil
	}
	if c.Llm != nil {
		cfg.LLM = config.LLMConfig{
			BaseURL:     c.Llm.BaseUrl,
			APIKey:      c.Llm.ApiKey,
			Model:       c.Llm.Model,
			VisionModel: c.Llm.VisionModel,
		}
	}
	if c.Log != nil {
		cfg.Log = config.LogConfig{Level: c.Log.Level, File: c.Log.File}
	}
	if c.Concurrency != nil {
		cfg.Concurrency = config.ConcurrencyConfig{
			QPS:     int(c.Concurrency.Qps),
			RPM:     int(c.Concurrency.Rpm),
			Workers: int(c.Concurrency.Workers),
		}
	}
	if c.Kafka != nil {
		cfg.Kafka.Brokers = c.Kafka.Brokers
		if c.Kafka.Topic != "" {
			cfg.Kafka.Topic = c.Kafka.Topic
		}
	}
	if c.Scoring != nil {
		if len(c.Scoring.Weights) > 0 {
			cfg.Scoring.Weights = make(map[model.AnalysisType]model.WeightConfig, len(c.Scoring.Weights))
			for t, ws := range c.Scoring.Weights {
				w := make(model.WeightConfig, len(ws))
				for k, v := range ws {
					w[model.ThemeKey(k)] = v
				}
				cfg.Scoring.Weights[model.AnalysisType(t)] = w
			}
		}
		if len(c.Scoring.AlertRules) > 0 {
			cfg.Scoring.AlertRules = make([]model.AlertRule, 0, len(c.Scoring.AlertRules))
			for _, r := range c.Scoring.AlertRules {
				cfg.Scoring.AlertRules = append(cfg.Scoring.AlertRules, model.AlertRule{
					Theme:        model.ThemeKey(r.Theme),
					AnalysisType: model.AnalysisType(r.AnalysisType),
					Comparison:   model.Comparison(r.Comparison),
					Threshold:    r.Threshold,
					Severity:     model.Severity(r.Severity),
				})
			}
		}
	}
	cfg.Stores = c.Stores
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewRadarEngine 初始化 store_radar 引擎，与 HTTP 服务共用同一存储
func NewRadarEngine(c *conf.Radar, d *data.Data, logger log.Logger) (*engine.Engine, func(), error) {
	helper := log.NewHelper(logger)
	cfg, err := RadarConfig(c)
	if err != nil {
		helper.Errorf("invalid radar config: %v", err)
		return nil, nil, err
	}

	// 初始化日志
	if err := srLogger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		helper.Errorf("Failed to init store_radar logger: %v", err)
		_ = srLogger.InitLogger("info", "") // 降级处理
	}

	eng, err := engine.NewEngine(context.Background(), cfg, d.Store())
	if err != nil {
		helper.Errorf("Failed to init engine: %v", err)
		return nil, nil, err
	}

	cleanup := func() {
		helper.Info("Cleaning up store_radar engine")
		if err := eng.Close(); err != nil {
			helper.Errorf("close engine: %v", err)
		}
	}
	return eng, cleanup, nil
}

// NewMetrics 暴露引擎使用的指标集合
func NewMetrics(eng *engine.Engine) *metrics.Metrics {
	return eng.Metrics()
}
