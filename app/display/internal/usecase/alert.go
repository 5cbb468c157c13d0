package usecase

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/store_radar/app/display/internal/repo"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
)

// AlertUseCase 告警业务逻辑
type AlertUseCase struct {
	repo repo.AlertRepo
	log  *log.Helper
	now  func() time.Time
}

// NewAlertUseCase 创建告警业务逻辑实例
func NewAlertUseCase(repo repo.AlertRepo, logger log.Logger) *AlertUseCase {
	return &AlertUseCase{repo: repo, log: log.NewHelper(logger), now: time.Now}
}

// List 按条件列出告警
func (uc *AlertUseCase) List(ctx context.Context, filter model.AlertFilter) ([]model.Alert, error) {
	return uc.repo.ListAlerts(ctx, filter)
}

// Resolve 人工解除告警。已解除的告警原样返回
func (uc *AlertUseCase) Resolve(ctx context.Context, id string) (model.Alert, error) {
	a, err := uc.repo.GetAlert(ctx, id)
	if err != nil {
		return a, err
	}
	if a.Resolved {
		return a, nil
	}
	a, err = uc.repo.ResolveAlert(ctx, id, uc.now())
	if err != nil {
		return a, err
	}
	uc.log.WithContext(ctx).Infof("alert resolved: id=%s store=%s theme=%s severity=%s", a.ID, a.StoreID, a.Theme, a.Severity)
	return a, nil
}
