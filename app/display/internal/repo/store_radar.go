package repo

import (
	"context"
	"time"

	"github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
)

// ScorecardRepo 评分卡仓库接口
type ScorecardRepo interface {
	// ListScorecards 按生成时间倒序列出评分卡，analysisType 为空时不过滤
	ListScorecards(ctx context.Context, storeID string, analysisType model.AnalysisType, limit int) ([]*model.Scorecard, error)
}

// AlertRepo 告警仓库接口
type AlertRepo interface {
	// ListAlerts 按条件列出告警
	ListAlerts(ctx context.Context, filter model.AlertFilter) ([]model.Alert, error)
	// GetAlert 根据ID获取告警
	GetAlert(ctx context.Context, id string) (model.Alert, error)
	// ResolveAlert 解除告警，重复解除保留首次解除时间
	ResolveAlert(ctx context.Context, id string, at time.Time) (model.Alert, error)
}

// ItemRepo 评分条目仓库接口
type ItemRepo interface {
	// ListItems 列出门店某分析类型下的全部条目
	ListItems(ctx context.Context, storeID string, analysisType model.AnalysisType) ([]model.RatedItem, error)
	// ListStoreIDs 列出有数据的门店
	ListStoreIDs(ctx context.Context) ([]string, error)
}
