package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
)

// Config 项目配置结构体
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Log         LogConfig         `yaml:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	DB          DBConfig          `yaml:"db"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Scoring     ScoringConfig     `yaml:"scoring"`
	Stores      []string          `yaml:"stores"` // 批处理时要分析的门店，为空则处理所有有数据的门店
}

// LLMConfig LLM 相关配置，APIKey 为空时使用 mock 打分
type LLMConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKey      string `yaml:"api_key"`
	Model       string `yaml:"model"`
	VisionModel string `yaml:"vision_model"` // 为空时复用 Model
}

// Enabled 是否配置了可用的 LLM
func (c LLMConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// DBConfig 数据库相关配置
type DBConfig struct {
	Driver   string `yaml:"driver"` // postgres / sqlite / memory
	Source   string `yaml:"source"` // 完整连接串，优先于下面的字段
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// DSN 返回数据库连接串
func (c DBConfig) DSN() string {
	if c.Source != "" {
		return c.Source
	}
	if c.Driver == "sqlite" {
		return c.Name
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConcurrencyConfig 并发控制配置
type ConcurrencyConfig struct {
	QPS     int `yaml:"qps"`
	RPM     int `yaml:"rpm"`
	Workers int `yaml:"workers"` // 同时处理的门店/条目数量
}

// KafkaConfig 告警通知配置，Brokers 为空时不发送
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// ScoringConfig 评分与告警配置
type ScoringConfig struct {
	Weights    map[model.AnalysisType]model.WeightConfig `yaml:"weights"`
	AlertRules []model.AlertRule                         `yaml:"alert_rules"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Log:         LogConfig{Level: "info"},
		Concurrency: ConcurrencyConfig{QPS: 2, RPM: 60, Workers: 4},
		DB:          DBConfig{Driver: "memory"},
		Kafka:       KafkaConfig{Topic: "store-radar-alerts"},
		Scoring: ScoringConfig{
			Weights:    DefaultWeights(),
			AlertRules: DefaultAlertRules(),
		},
	}
}

// DefaultWeights 默认主题权重
func DefaultWeights() map[model.AnalysisType]model.WeightConfig {
	return map[model.AnalysisType]model.WeightConfig{
		model.AnalysisSentiment: {
			model.ThemeWaitingTime:         0.20,
			model.ThemeStaffBehavior:       0.25,
			model.ThemeCleanliness:         0.15,
			model.ThemeEaseOfLocatingItems: 0.15,
			model.ThemeProductAvailability: 0.15,
			model.ThemeStoreLayout:         0.10,
		},
		model.AnalysisVisual: {
			model.ThemeCleanliness:       0.25,
			model.ThemeEmptyShelves:      0.20,
			model.ThemeQueueLength:       0.20,
			model.ThemeStaffPresence:     0.20,
			model.ThemeStoreOrganization: 0.15,
		},
	}
}

// DefaultAlertRules 默认告警规则：低于 30 为 high，低于阈值为 medium
func DefaultAlertRules() []model.AlertRule {
	rule := func(t model.AnalysisType, theme model.ThemeKey, thr float64, sev model.Severity) model.AlertRule {
		return model.AlertRule{Theme: theme, AnalysisType: t, Comparison: model.LessThan, Threshold: thr, Severity: sev}
	}
	return []model.AlertRule{
		rule(model.AnalysisVisual, model.ThemeEmptyShelves, 40, model.SeverityMedium),
		rule(model.AnalysisVisual, model.ThemeEmptyShelves, 30, model.SeverityHigh),
		rule(model.AnalysisVisual, model.ThemeQueueLength, 40, model.SeverityMedium),
		rule(model.AnalysisVisual, model.ThemeQueueLength, 30, model.SeverityHigh),
		rule(model.AnalysisVisual, model.ThemeCleanliness, 50, model.SeverityMedium),
		rule(model.AnalysisVisual, model.ThemeCleanliness, 30, model.SeverityHigh),
		rule(model.AnalysisVisual, model.ThemeStaffPresence, 50, model.SeverityMedium),
		rule(model.AnalysisVisual, model.ThemeStaffPresence, 30, model.SeverityHigh),
		rule(model.AnalysisSentiment, model.ThemeWaitingTime, 40, model.SeverityMedium),
		rule(model.AnalysisSentiment, model.ThemeStaffBehavior, 40, model.SeverityMedium),
	}
}

// LoadConfig 从指定路径加载配置，未填写的部分使用默认值
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// .env 不存在时忽略
	_ = godotenv.Load()
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv 使用环境变量覆盖敏感配置
func (c *Config) ApplyEnv() {
	if v := os.Getenv("STORE_RADAR_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("STORE_RADAR_DB_PASSWORD"); v != "" {
		c.DB.Password = v
	}
	if v := os.Getenv("STORE_RADAR_DB_SOURCE"); v != "" {
		c.DB.Source = v
	}
	if v := os.Getenv("STORE_RADAR_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
}

// Validate 校验权重与告警规则
func (c *Config) Validate() error {
	for t, w := range c.Scoring.Weights {
		if !t.Valid() {
			return fmt.Errorf("scoring.weights: unknown analysis type %q", t)
		}
		for theme, v := range w {
			if v < 0 {
				return fmt.Errorf("scoring.weights.%s.%s: negative weight %v", t, theme, v)
			}
		}
	}
	for i, r := range c.Scoring.AlertRules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("scoring.alert_rules[%d]: %w", i, err)
		}
	}
	switch c.DB.Driver {
	case "", "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("db.driver: unsupported driver %q", c.DB.Driver)
	}
	return nil
}
