package service

import (
	"context"
	"strconv"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/transport/http"
)

const (
	OperationHealth         = "/store_radar.v1.StoreRadar/Health"
	OperationSubmitReviews  = "/store_radar.v1.StoreRadar/SubmitReviews"
	OperationSubmitFrames   = "/store_radar.v1.StoreRadar/SubmitFrames"
	OperationSubmitItems    = "/store_radar.v1.StoreRadar/SubmitItems"
	OperationListItems      = "/store_radar.v1.StoreRadar/ListItems"
	OperationAnalyze        = "/store_radar.v1.StoreRadar/Analyze"
	OperationListScorecards = "/store_radar.v1.StoreRadar/ListScorecards"
	OperationGetWeights     = "/store_radar.v1.StoreRadar/GetWeights"
	OperationUpdateWeights  = "/store_radar.v1.StoreRadar/UpdateWeights"
	OperationListAlerts     = "/store_radar.v1.StoreRadar/ListAlerts"
	OperationResolveAlert   = "/store_radar.v1.StoreRadar/ResolveAlert"
	OperationAnalyzeAll     = "/store_radar.v1.StoreRadar/AnalyzeAll"
)

// RegisterStoreRadarHTTPServer 注册全部 HTTP 路由
func RegisterStoreRadarHTTPServer(s *http.Server, srv *StoreRadarService) {
	r := s.Route("/")
	r.GET("/api/health", _Health_HTTP_Handler(srv))
	r.POST("/api/stores/{store_id}/reviews", _SubmitReviews_HTTP_Handler(srv))
	r.POST("/api/stores/{store_id}/frames", _SubmitFrames_HTTP_Handler(srv))
	r.POST("/api/items", _SubmitItems_HTTP_Handler(srv))
	r.GET("/api/stores/{store_id}/items", _ListItems_HTTP_Handler(srv))
	r.POST("/api/stores/{store_id}/scorecards/{analysis_type}", _Analyze_HTTP_Handler(srv))
	r.GET("/api/stores/{store_id}/scorecards", _ListScorecards_HTTP_Handler(srv))
	r.GET("/api/weights/{analysis_type}", _GetWeights_HTTP_Handler(srv))
	r.PUT("/api/weights/{analysis_type}", _UpdateWeights_HTTP_Handler(srv))
	r.GET("/api/alerts", _ListAlerts_HTTP_Handler(srv))
	r.POST("/api/alerts/{id}/resolve", _ResolveAlert_HTTP_Handler(srv))
	r.POST("/api/analyze-all", _AnalyzeAll_HTTP_Handler(srv))
}

// invoke 经过中间件链调用业务方法并写回结果
func invoke[Req, Reply any](ctx http.Context, op string, in *Req, fn func(context.Context, *Req) (*Reply, error)) error {
	http.SetOperation(ctx, op)
	h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
		return fn(ctx, req.(*Req))
	})
	out, err := h(ctx, in)
	if err != nil {
		return err
	}
	return ctx.Result(200, out)
}

func bindBody(ctx http.Context, in interface{}) error {
	if ctx.Request().ContentLength == 0 {
		return nil
	}
	if err := ctx.Bind(in); err != nil {
		return kerrors.BadRequest("INVALID_BODY", err.Error())
	}
	return nil
}

func _Health_HTTP_Handler(srv *StoreRadarService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		return invoke(ctx, OperationHealth, &struct{}{}, func(ctx context.Context, _ *struct{}) (*HealthReply, error) {
			return srv.Health(ctx)
		})
	}
}

func _SubmitReviews_HTTP_Handler(srv *StoreRadarService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in SubmitReviewsRequest
		if err := bindBody(ctx, &in); err != nil {
			return err
		}
		in.StoreID = ctx.Vars().Get("store_id")
		return invoke(ctx, OperationSubmitReviews, &in, srv.SubmitReviews)
	}
}

func _SubmitFrames_HTTP_Handler(srv *StoreRadarService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in SubmitFramesRequest
		if err := bindBody(ctx, &in); err != nil {
			return err
		}
		in.StoreID = ctx.Vars().Get("store_id")
		return invoke(ctx, OperationSubmitFrames, &in, srv.SubmitFrames)
	}
}

func _SubmitItems_HTTP_Handler(srv *StoreRadarService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in SubmitItemsRequest
		if err := bindBody(ctx, &in); err != nil {
			return err
		}
		return invoke(ctx, OperationSubmitItems, &in, srv.SubmitItems)
	}
}

func _ListItems_HTTP_Handler(srv *StoreRadarService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := ListItemsRequest{
			StoreID:      ctx.Vars().Get("store_id"),
			AnalysisType: ctx.Query().Get("analysis_type"),
		}
		return invoke(ctx, OperationListItems, &in, srv.ListItems)
	}
}

func _Analyze_HTTP_Handler(srv *StoreRadarService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in AnalyzeRequest
		if err := bindBody(ctx, &in); err != nil {
			return err
		}
		in.StoreID = ctx.Vars().Get("store_id")
		in.AnalysisType = ctx.Vars().Get("analysis_type")
		return invoke(ctx, OperationAnalyze, &in, srv.Analyze)
	}
}

func _ListScorecards_HTTP_Handler(srv *StoreRadarService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := ListScorecardsRequest{
			StoreID:      ctx.Vars().Get("store_id"),
			AnalysisType: ctx.Query().Get("analysis_type"),
		}
		if v := ctx.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return kerrors.BadRequest("INVALID_QUERY", "limit must be an integer")
			}
			in.Limit = n
		}
		return invoke(ctx, OperationListScorecards, &in, srv.ListScorecards)
	}
}

func _GetWeights_HTTP_Handler(srv *StoreRadarService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := WeightsRequest{AnalysisType: ctx.Vars().Get("analysis_type")}
		return invoke(ctx, OperationGetWeights, &in, srv.GetWeights)
	}
}

func _UpdateWeights_HTTP_Handler(srv *StoreRadarService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in WeightsRequest
		if err := bindBody(ctx, &in); err != nil {
			return err
		}
		in.AnalysisType = ctx.Vars().Get("analysis_type")
		return invoke(ctx, OperationUpdateWeights, &in, srv.UpdateWeights)
	}
}

func _ListAlerts_HTTP_Handler(srv *StoreRadarService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := ListAlertsRequest{StoreID: ctx.Query().Get("store_id")}
		if v := ctx.Query().Get("resolved"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return kerrors.BadRequest("INVALID_QUERY", "resolved must be a boolean")
			}
			in.Resolved = &b
		}
		return invoke(ctx, OperationListAlerts, &in, srv.ListAlerts)
	}
}

func _ResolveAlert_HTTP_Handler(srv *StoreRadarService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := ResolveAlertRequest{ID: ctx.Vars().Get("id")}
		return invoke(ctx, OperationResolveAlert, &in, srv.ResolveAlert)
	}
}

func _AnalyzeAll_HTTP_Handler(srv *StoreRadarService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in AnalyzeAllRequest
		if err := bindBody(ctx, &in); err != nil {
			return err
		}
		return invoke(ctx, OperationAnalyzeAll, &in, srv.AnalyzeAll)
	}
}
