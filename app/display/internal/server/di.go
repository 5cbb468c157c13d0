package server

import (
	"github.com/google/wire"

	"github.com/iWorld-y/store_radar/app/display/internal/data"
	"github.com/iWorld-y/store_radar/app/display/internal/service"
	"github.com/iWorld-y/store_radar/app/display/internal/usecase"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/engine"
)

// ProviderSet 是门店雷达服务的依赖注入 Provider 集合
var ProviderSet = wire.NewSet(
	// Server providers
	NewHTTPServer,
	NewRadarEngine,
	NewMetrics,
	wire.Bind(new(usecase.RadarEngine), new(*engine.Engine)),

	// Data providers
	data.NewData,
	data.NewScorecardRepo,
	data.NewAlertRepo,
	data.NewItemRepo,

	// UseCase providers
	usecase.NewScorecardUseCase,
	usecase.NewAlertUseCase,
	usecase.NewWeightUseCase,
	usecase.NewItemUseCase,

	// Service providers
	service.NewStoreRadarService,
)
