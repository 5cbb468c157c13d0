package usecase

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/store_radar/app/display/internal/repo"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/engine"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
)

const (
	defaultScorecardLimit = 20
	maxScorecardLimit     = 100
)

// ScorecardUseCase 评分卡业务逻辑
type ScorecardUseCase struct {
	engine RadarEngine
	repo   repo.ScorecardRepo
	log    *log.Helper
}

// NewScorecardUseCase 创建评分卡业务逻辑实例
func NewScorecardUseCase(eng RadarEngine, repo repo.ScorecardRepo, logger log.Logger) *ScorecardUseCase {
	return &ScorecardUseCase{engine: eng, repo: repo, log: log.NewHelper(logger)}
}

// Analyze 立即为门店生成一张评分卡，weights 非空时覆盖当前生效权重
func (uc *ScorecardUseCase) Analyze(ctx context.Context, storeID string, analysisType model.AnalysisType, weights model.WeightConfig) (*engine.AnalysisResult, error) {
	res, err := uc.engine.Analyze(ctx, storeID, analysisType, weights)
	if err != nil {
		uc.log.WithContext(ctx).Warnf("analyze %s/%s: %v", storeID, analysisType, err)
		return res, err
	}
	return res, nil
}

// AnalyzeAll 批量分析门店
func (uc *ScorecardUseCase) AnalyzeAll(ctx context.Context, storeIDs []string) (*engine.BatchReport, error) {
	return uc.engine.AnalyzeAll(ctx, storeIDs)
}

// Collaborators 返回打分与通知组件的配置情况
func (uc *ScorecardUseCase) Collaborators() map[string]string {
	return uc.engine.Collaborators()
}

// List 列出门店历史评分卡，limit 不合法时使用默认值
func (uc *ScorecardUseCase) List(ctx context.Context, storeID string, analysisType model.AnalysisType, limit int) ([]*model.Scorecard, error) {
	if limit < 1 {
		limit = defaultScorecardLimit
	}
	if limit > maxScorecardLimit {
		limit = maxScorecardLimit
	}
	return uc.repo.ListScorecards(ctx, storeID, analysisType, limit)
}
