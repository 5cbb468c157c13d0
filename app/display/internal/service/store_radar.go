package service

import (
	"context"
	"errors"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/store_radar/app/display/internal/usecase"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/engine"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/oracle"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/scorecard"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/storage"
)

type HealthReply struct {
	Status        string            `json:"status"`
	Collaborators map[string]string `json:"collaborators"`
}

type SubmitReviewsRequest struct {
	StoreID string          `json:"store_id"`
	Reviews []engine.Review `json:"reviews"`
}

// SubmitFramesRequest 画面内容按 base64 编码
type SubmitFramesRequest struct {
	StoreID string         `json:"store_id"`
	Frames  []engine.Frame `json:"frames"`
}

type SubmitItemsRequest struct {
	Items []model.RatedItem `json:"items"`
}

type ItemsReply struct {
	Items []model.RatedItem `json:"items"`
}

type ListItemsRequest struct {
	StoreID      string `json:"store_id"`
	AnalysisType string `json:"analysis_type"`
}

type AnalyzeRequest struct {
	StoreID      string             `json:"store_id"`
	AnalysisType string             `json:"analysis_type"`
	Weights      model.WeightConfig `json:"weights"`
}

type ListScorecardsRequest struct {
	StoreID      string `json:"store_id"`
	AnalysisType string `json:"analysis_type"`
	Limit        int    `json:"limit"`
}

type ListScorecardsReply struct {
	Scorecards []*model.Scorecard `json:"scorecards"`
}

type WeightsRequest struct {
	AnalysisType string             `json:"analysis_type"`
	Weights      model.WeightConfig `json:"weights"`
}

type WeightsReply struct {
	AnalysisType string             `json:"analysis_type"`
	Weights      model.WeightConfig `json:"weights"`
}

type ListAlertsRequest struct {
	StoreID  string `json:"store_id"`
	Resolved *bool  `json:"resolved"`
}

type ListAlertsReply struct {
	Alerts []model.Alert `json:"alerts"`
}

type ResolveAlertRequest struct {
	ID string `json:"id"`
}

type AnalyzeAllRequest struct {
	StoreIDs []string `json:"store_ids"`
}

// StoreRadarService 门店评分卡与告警 HTTP 服务
type StoreRadarService struct {
	ucScorecard *usecase.ScorecardUseCase
	ucAlert     *usecase.AlertUseCase
	ucWeight    *usecase.WeightUseCase
	ucItem      *usecase.ItemUseCase
	log         *log.Helper
}

func NewStoreRadarService(ucScorecard *usecase.ScorecardUseCase, ucAlert *usecase.AlertUseCase, ucWeight *usecase.WeightUseCase, ucItem *usecase.ItemUseCase, logger log.Logger) *StoreRadarService {
	return &StoreRadarService{
		ucScorecard: ucScorecard,
		ucAlert:     ucAlert,
		ucWeight:    ucWeight,
		ucItem:      ucItem,
		log:         log.NewHelper(logger),
	}
}

func (s *StoreRadarService) Health(ctx context.Context) (*HealthReply, error) {
	return &HealthReply{Status: "ok", Collaborators: s.ucScorecard.Collaborators()}, nil
}

func (s *StoreRadarService) SubmitReviews(ctx context.Context, req *SubmitReviewsRequest) (*engine.IngestResult, error) {
	if len(req.Reviews) == 0 {
		return nil, kerrors.BadRequest("INVALID_ARGUMENT", "reviews is required")
	}
	res, err := s.ucItem.SubmitReviews(ctx, req.StoreID, req.Reviews)
	return res, toStatus(err)
}

func (s *StoreRadarService) SubmitFrames(ctx context.Context, req *SubmitFramesRequest) (*engine.IngestResult, error) {
	if len(req.Frames) == 0 {
		return nil, kerrors.BadRequest("INVALID_ARGUMENT", "frames is required")
	}
	res, err := s.ucItem.SubmitFrames(ctx, req.StoreID, req.Frames)
	return res, toStatus(err)
}

func (s *StoreRadarService) SubmitItems(ctx context.Context, req *SubmitItemsRequest) (*ItemsReply, error) {
	items, err := s.ucItem.SubmitItems(ctx, req.Items)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ItemsReply{Items: items}, nil
}

func (s *StoreRadarService) ListItems(ctx context.Context, req *ListItemsRequest) (*ItemsReply, error) {
	t, err := analysisType(req.AnalysisType, false)
	if err != nil {
		return nil, err
	}
	items, err := s.ucItem.List(ctx, req.StoreID, t)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ItemsReply{Items: items}, nil
}

func (s *StoreRadarService) Analyze(ctx context.Context, req *AnalyzeRequest) (*engine.AnalysisResult, error) {
	t, err := analysisType(req.AnalysisType, true)
	if err != nil {
		return nil, err
	}
	res, err := s.ucScorecard.Analyze(ctx, req.StoreID, t, req.Weights)
	if err != nil {
		return nil, toStatus(err)
	}
	return res, nil
}

func (s *StoreRadarService) ListScorecards(ctx context.Context, req *ListScorecardsRequest) (*ListScorecardsReply, error) {
	t, err := analysisType(req.AnalysisType, false)
	if err != nil {
		return nil, err
	}
	list, err := s.ucScorecard.List(ctx, req.StoreID, t, req.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListScorecardsReply{Scorecards: list}, nil
}

func (s *StoreRadarService) GetWeights(ctx context.Context, req *WeightsRequest) (*WeightsReply, error) {
	t, err := analysisType(req.AnalysisType, true)
	if err != nil {
		return nil, err
	}
	w, err := s.ucWeight.Get(ctx, t)
	if err != nil {
		return nil, toStatus(err)
	}
	return &WeightsReply{AnalysisType: string(t), Weights: w}, nil
}

func (s *StoreRadarService) UpdateWeights(ctx context.Context, req *WeightsRequest) (*WeightsReply, error) {
	t, err := analysisType(req.AnalysisType, true)
	if err != nil {
		return nil, err
	}
	w, err := s.ucWeight.Update(ctx, t, req.Weights)
	if err != nil {
		return nil, toStatus(err)
	}
	return &WeightsReply{AnalysisType: string(t), Weights: w}, nil
}

func (s *StoreRadarService) ListAlerts(ctx context.Context, req *ListAlertsRequest) (*ListAlertsReply, error) {
	alerts, err := s.ucAlert.List(ctx, model.AlertFilter{StoreID: req.StoreID, Resolved: req.Resolved})
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListAlertsReply{Alerts: alerts}, nil
}

func (s *StoreRadarService) ResolveAlert(ctx context.Context, req *ResolveAlertRequest) (*model.Alert, error) {
	a, err := s.ucAlert.Resolve(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &a, nil
}

func (s *StoreRadarService) AnalyzeAll(ctx context.Context, req *AnalyzeAllRequest) (*engine.BatchReport, error) {
	report, err := s.ucScorecard.AnalyzeAll(ctx, req.StoreIDs)
	if err != nil {
		return nil, toStatus(err)
	}
	return report, nil
}

func analysisType(s string, required bool) (model.AnalysisType, error) {
	t := model.AnalysisType(s)
	if s == "" && !required {
		return t, nil
	}
	if !t.Valid() {
		return "", kerrors.BadRequest("UNKNOWN_ANALYSIS_TYPE", "unknown analysis type: "+s)
	}
	return t, nil
}

// toStatus 将领域错误转换为带 HTTP 状态码的错误
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	var se *kerrors.Error
	if errors.As(err, &se) {
		return err
	}
	switch {
	case errors.Is(err, engine.ErrInvalidInput),
		errors.Is(err, scorecard.ErrInvalidWeight),
		errors.Is(err, scorecard.ErrScoreOutOfRange),
		errors.Is(err, scorecard.ErrForeignItem),
		errors.Is(err, scorecard.ErrUnknownAnalysisType),
		errors.Is(err, scorecard.ErrInvalidRule):
		return kerrors.BadRequest("INVALID_ARGUMENT", err.Error())
	case errors.Is(err, scorecard.ErrEmptyInput):
		return kerrors.New(422, "EMPTY_INPUT", err.Error())
	case errors.Is(err, scorecard.ErrNoScorableThemes):
		return kerrors.New(422, "NO_SCORABLE_THEMES", err.Error())
	case errors.Is(err, storage.ErrNotFound):
		return kerrors.NotFound("NOT_FOUND", err.Error())
	case errors.Is(err, oracle.ErrUnavailable):
		return kerrors.ServiceUnavailable("ORACLE_UNAVAILABLE", err.Error())
	}
	return kerrors.InternalServer("INTERNAL", err.Error()).WithCause(err)
}
