package data

import (
	"context"
	"errors"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/store_radar/app/display/internal/repo"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/storage"
)

type scorecardRepo struct {
	data *Data
	log  *log.Helper
}

func NewScorecardRepo(data *Data, logger log.Logger) repo.ScorecardRepo {
	return &scorecardRepo{data: data, log: log.NewHelper(logger)}
}

func (r *scorecardRepo) ListScorecards(ctx context.Context, storeID string, analysisType model.AnalysisType, limit int) ([]*model.Scorecard, error) {
	return r.data.store.ListScorecards(ctx, storeID, analysisType, limit)
}

type alertRepo struct {
	data *Data
	log  *log.Helper
}

func NewAlertRepo(data *Data, logger log.Logger) repo.AlertRepo {
	return &alertRepo{data: data, log: log.NewHelper(logger)}
}

func (r *alertRepo) ListAlerts(ctx context.Context, filter model.AlertFilter) ([]model.Alert, error) {
	return r.data.store.ListAlerts(ctx, filter)
}

func (r *alertRepo) GetAlert(ctx context.Context, id string) (model.Alert, error) {
	a, err := r.data.store.GetAlert(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return a, kerrors.NotFound("ALERT_NOT_FOUND", "alert not found")
	}
	return a, err
}

func (r *alertRepo) ResolveAlert(ctx context.Context, id string, at time.Time) (model.Alert, error) {
	a, err := r.data.store.ResolveAlert(ctx, id, at)
	if errors.Is(err, storage.ErrNotFound) {
		return a, kerrors.NotFound("ALERT_NOT_FOUND", "alert not found")
	}
	return a, err
}

type itemRepo struct {
	data *Data
	log  *log.Helper
}

func NewItemRepo(data *Data, logger log.Logger) repo.ItemRepo {
	return &itemRepo{data: data, log: log.NewHelper(logger)}
}

func (r *itemRepo) ListItems(ctx context.Context, storeID string, analysisType model.AnalysisType) ([]model.RatedItem, error) {
	return r.data.store.ListItems(ctx, storeID, analysisType)
}

func (r *itemRepo) ListStoreIDs(ctx context.Context) ([]string, error) {
	return r.data.store.ListStoreIDs(ctx)
}
