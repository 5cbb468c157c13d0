package usecase

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
)

// WeightUseCase 主题权重配置
type WeightUseCase struct {
	engine RadarEngine
	log    *log.Helper
}

// NewWeightUseCase 创建权重业务逻辑实例
func NewWeightUseCase(eng RadarEngine, logger log.Logger) *WeightUseCase {
	return &WeightUseCase{engine: eng, log: log.NewHelper(logger)}
}

// Get 返回分析类型当前生效的权重
func (uc *WeightUseCase) Get(ctx context.Context, analysisType model.AnalysisType) (model.WeightConfig, error) {
	return uc.engine.Weights(ctx, analysisType)
}

// Update 保存新权重，返回归一化后的结果。只影响之后生成的评分卡
func (uc *WeightUseCase) Update(ctx context.Context, analysisType model.AnalysisType, weights model.WeightConfig) (model.WeightConfig, error) {
	return uc.engine.UpdateWeights(ctx, analysisType, weights)
}
