package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iWorld-y/store_radar/app/store_radar/pkg/config"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("storage: not found")

// ItemRepo 已评分条目仓库
type ItemRepo interface {
	SaveItems(ctx context.Context, items []model.RatedItem) error
	// ListItems 按创建时间返回门店某分析类型的全部条目
	ListItems(ctx context.Context, storeID string, analysisType model.AnalysisType) ([]model.RatedItem, error)
	// ListStoreIDs 返回所有有条目的门店
	ListStoreIDs(ctx context.Context) ([]string, error)
}

// ScorecardRepo 评分卡仓库，评分卡只追加不修改
type ScorecardRepo interface {
	SaveScorecard(ctx context.Context, sc *model.Scorecard) error
	// ListScorecards 按生成时间倒序返回，analysisType 为空时不过滤，limit <= 0 表示不限
	ListScorecards(ctx context.Context, storeID string, analysisType model.AnalysisType, limit int) ([]*model.Scorecard, error)
}

// AlertRepo 告警仓库
type AlertRepo interface {
	// CreateIfNoneOpen 原子地完成去重检查与写入
	CreateIfNoneOpen(ctx context.Context, alert model.Alert) (bool, error)
	ListAlerts(ctx context.Context, filter model.AlertFilter) ([]model.Alert, error)
	GetAlert(ctx context.Context, id string) (model.Alert, error)
	// ResolveAlert 解除告警，重复解除保持第一次的解除时间
	ResolveAlert(ctx context.Context, id string, at time.Time) (model.Alert, error)
}

// WeightRepo 运营人员维护的权重
type WeightRepo interface {
	GetWeights(ctx context.Context, analysisType model.AnalysisType) (model.WeightConfig, bool, error)
	PutWeights(ctx context.Context, analysisType model.AnalysisType, weights model.WeightConfig) error
}

// Store 聚合所有仓库
type Store interface {
	ItemRepo
	ScorecardRepo
	AlertRepo
	WeightRepo
	Close() error
}

// Open 根据配置选择存储实现
func Open(cfg config.DBConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite", "postgres":
		return NewSQLStore(cfg.Driver, cfg.DSN())
	}
	return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
}

// LatestScorecard 返回最新一张评分卡
func LatestScorecard(ctx context.Context, repo ScorecardRepo, storeID string, analysisType model.AnalysisType) (*model.Scorecard, error) {
	list, err := repo.ListScorecards(ctx, storeID, analysisType, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}
