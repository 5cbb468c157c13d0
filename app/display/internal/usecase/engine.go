package usecase

import (
	"context"

	"github.com/iWorld-y/store_radar/app/store_radar/pkg/engine"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
)

// RadarEngine 评分引擎能力，由 *engine.Engine 实现
type RadarEngine interface {
	Analyze(ctx context.Context, storeID string, analysisType model.AnalysisType, override model.WeightConfig) (*engine.AnalysisResult, error)
	AnalyzeAll(ctx context.Context, storeIDs []string) (*engine.BatchReport, error)
	Weights(ctx context.Context, analysisType model.AnalysisType) (model.WeightConfig, error)
	UpdateWeights(ctx context.Context, analysisType model.AnalysisType, weights model.WeightConfig) (model.WeightConfig, error)
	IngestReviews(ctx context.Context, storeID string, reviews []engine.Review) (*engine.IngestResult, error)
	IngestFrames(ctx context.Context, storeID string, frames []engine.Frame) (*engine.IngestResult, error)
	SubmitItems(ctx context.Context, items []model.RatedItem) ([]model.RatedItem, error)
	Collaborators() map[string]string
}
