package usecase

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/store_radar/app/display/internal/repo"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/engine"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
)

// ItemUseCase 评分条目的提交与查询
type ItemUseCase struct {
	engine RadarEngine
	repo   repo.ItemRepo
	log    *log.Helper
}

// NewItemUseCase 创建条目业务逻辑实例
func NewItemUseCase(eng RadarEngine, repo repo.ItemRepo, logger log.Logger) *ItemUseCase {
	return &ItemUseCase{engine: eng, repo: repo, log: log.NewHelper(logger)}
}

// SubmitReviews 提交评论，由打分服务逐条评分后入库
func (uc *ItemUseCase) SubmitReviews(ctx context.Context, storeID string, reviews []engine.Review) (*engine.IngestResult, error) {
	res, err := uc.engine.IngestReviews(ctx, storeID, reviews)
	if err != nil {
		return nil, err
	}
	if res.Failed > 0 {
		uc.log.WithContext(ctx).Warnf("store %s: %d/%d reviews failed to score", storeID, res.Failed, res.Submitted)
	}
	return res, nil
}

// SubmitFrames 提交店内画面，由打分服务逐帧评分后入库
func (uc *ItemUseCase) SubmitFrames(ctx context.Context, storeID string, frames []engine.Frame) (*engine.IngestResult, error) {
	res, err := uc.engine.IngestFrames(ctx, storeID, frames)
	if err != nil {
		return nil, err
	}
	if res.Failed > 0 {
		uc.log.WithContext(ctx).Warnf("store %s: %d/%d frames failed to score", storeID, res.Failed, res.Submitted)
	}
	return res, nil
}

// SubmitItems 直接保存外部已评分的条目
func (uc *ItemUseCase) SubmitItems(ctx context.Context, items []model.RatedItem) ([]model.RatedItem, error) {
	return uc.engine.SubmitItems(ctx, items)
}

// List 列出门店的条目
func (uc *ItemUseCase) List(ctx context.Context, storeID string, analysisType model.AnalysisType) ([]model.RatedItem, error) {
	return uc.repo.ListItems(ctx, storeID, analysisType)
}

// Stores 列出有数据的门店
func (uc *ItemUseCase) Stores(ctx context.Context) ([]string, error) {
	return uc.repo.ListStoreIDs(ctx)
}
