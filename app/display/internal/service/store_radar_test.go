package service

import (
	"bytes"
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/store_radar/app/display/internal/conf"
	"github.com/iWorld-y/store_radar/app/display/internal/data"
	"github.com/iWorld-y/store_radar/app/display/internal/usecase"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/config"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/engine"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/oracle"
)

func newTestServer(t *testing.T) *http.Server {
	t.Helper()
	logger := log.DefaultLogger
	d, cleanup, err := data.NewData(&conf.Data{Database: &conf.Database{Driver: "memory"}}, logger)
	if err != nil {
		t.Fatalf("NewData() error = %v", err)
	}
	t.Cleanup(cleanup)

	eng, err := engine.NewEngine(context.Background(), config.Default(), d.Store(), engine.WithOracle(oracle.NewStaticOracle()))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	svc := NewStoreRadarService(
		usecase.NewScorecardUseCase(eng, data.NewScorecardRepo(d, logger), logger),
		usecase.NewAlertUseCase(data.NewAlertRepo(d, logger), logger),
		usecase.NewWeightUseCase(eng, logger),
		usecase.NewItemUseCase(eng, data.NewItemRepo(d, logger), logger),
		logger,
	)
	srv := http.NewServer()
	RegisterStoreRadarHTTPServer(srv, svc)
	return srv
}

func do(t *testing.T, srv *http.Server, method, path string, body interface{}, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if out != nil && rec.Code == nethttp.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code
}

func TestStoreRadarHTTP_AnalyzeAndResolve(t *testing.T) {
	srv := newTestServer(t)

	items := SubmitItemsRequest{Items: []model.RatedItem{
		{StoreID: "s-1", AnalysisType: model.AnalysisVisual, SourceID: "cam-1", Scores: map[model.ThemeKey]float64{
			model.ThemeEmptyShelves: 20, model.ThemeQueueLength: 80, model.ThemeCleanliness: 90,
		}},
		{StoreID: "s-1", AnalysisType: model.AnalysisVisual, SourceID: "cam-2", Scores: map[model.ThemeKey]float64{
			model.ThemeEmptyShelves: 30, model.ThemeStaffPresence: 70,
		}},
	}}
	var submitted ItemsReply
	if code := do(t, srv, "POST", "/api/items", items, &submitted); code != 200 {
		t.Fatalf("submit items status = %d", code)
	}
	if len(submitted.Items) != 2 || submitted.Items[0].ID == "" {
		t.Fatalf("submit items = %+v", submitted)
	}

	var res engine.AnalysisResult
	if code := do(t, srv, "POST", "/api/stores/s-1/scorecards/visual", nil, &res); code != 200 {
		t.Fatalf("analyze status = %d", code)
	}
	shelves, ok := res.Scorecard.Theme(model.ThemeEmptyShelves)
	if !ok || shelves.Score == nil || *shelves.Score != 25 {
		t.Fatalf("empty_shelves = %+v", shelves)
	}
	// 25 同时低于 40 和 30
	if len(res.Alerts) != 2 {
		t.Fatalf("alerts = %+v, want 2", res.Alerts)
	}

	var again engine.AnalysisResult
	do(t, srv, "POST", "/api/stores/s-1/scorecards/visual", nil, &again)
	if len(again.Alerts) != 0 {
		t.Errorf("repeat analyze raised %d alerts, want 0", len(again.Alerts))
	}

	var open ListAlertsReply
	if code := do(t, srv, "GET", "/api/alerts?store_id=s-1&resolved=false", nil, &open); code != 200 {
		t.Fatalf("list alerts status = %d", code)
	}
	if len(open.Alerts) != 2 {
		t.Fatalf("open alerts = %d, want 2", len(open.Alerts))
	}

	var resolved model.Alert
	if code := do(t, srv, "POST", "/api/alerts/"+open.Alerts[0].ID+"/resolve", nil, &resolved); code != 200 {
		t.Fatalf("resolve status = %d", code)
	}
	if !resolved.Resolved || resolved.ResolvedAt == nil {
		t.Errorf("resolve = %+v", resolved)
	}

	var list ListScorecardsReply
	do(t, srv, "GET", "/api/stores/s-1/scorecards?analysis_type=visual&limit=1", nil, &list)
	if len(list.Scorecards) != 1 || list.Scorecards[0].ID != again.Scorecard.ID {
		t.Errorf("latest scorecard = %+v, want %s", list.Scorecards, again.Scorecard.ID)
	}
}

func TestStoreRadarHTTP_WeightOverride(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, "POST", "/api/items", SubmitItemsRequest{Items: []model.RatedItem{
		{StoreID: "s-1", AnalysisType: model.AnalysisVisual, Scores: map[model.ThemeKey]float64{
			model.ThemeQueueLength: 50, model.ThemeCleanliness: 100,
		}},
	}}, nil)

	var res engine.AnalysisResult
	req := AnalyzeRequest{Weights: model.WeightConfig{model.ThemeQueueLength: 3, model.ThemeCleanliness: 1}}
	if code := do(t, srv, "POST", "/api/stores/s-1/scorecards/visual", req, &res); code != 200 {
		t.Fatalf("analyze status = %d", code)
	}
	if res.Scorecard.Overall != 62.5 {
		t.Errorf("overall = %v, want 62.5", res.Scorecard.Overall)
	}
	if res.Scorecard.Weights[model.ThemeQueueLength] != 0.75 {
		t.Errorf("recorded weights = %v", res.Scorecard.Weights)
	}
}

func TestStoreRadarHTTP_Errors(t *testing.T) {
	srv := newTestServer(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"no items", "POST", "/api/stores/empty/scorecards/visual", nil, 422},
		{"unknown analysis type", "POST", "/api/stores/s-1/scorecards/audio", nil, 400},
		{"all zero weights", "PUT", "/api/weights/visual", WeightsRequest{Weights: model.WeightConfig{model.ThemeQueueLength: 0}}, 400},
		{"negative weight", "PUT", "/api/weights/sentiment", WeightsRequest{Weights: model.WeightConfig{model.ThemeWaitingTime: -1}}, 400},
		{"unknown alert", "POST", "/api/alerts/nope/resolve", nil, 404},
		{"bad resolved flag", "GET", "/api/alerts?resolved=maybe", nil, 400},
		{"score out of range", "POST", "/api/items", SubmitItemsRequest{Items: []model.RatedItem{
			{StoreID: "s-1", AnalysisType: model.AnalysisVisual, Scores: map[model.ThemeKey]float64{model.ThemeQueueLength: 140}},
		}}, 400},
		{"no reviews", "POST", "/api/stores/s-1/reviews", SubmitReviewsRequest{}, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := do(t, srv, tt.method, tt.path, tt.body, nil); code != tt.want {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, code, tt.want)
			}
		})
	}
}

func TestStoreRadarHTTP_ReviewsAndBatch(t *testing.T) {
	srv := newTestServer(t)

	var ingest engine.IngestResult
	body := SubmitReviewsRequest{Reviews: []engine.Review{{SourceID: "r-1", Text: "结账排队半小时"}, {SourceID: "r-2", Text: "货架很整齐"}}}
	if code := do(t, srv, "POST", "/api/stores/s-7/reviews", body, &ingest); code != 200 {
		t.Fatalf("reviews status = %d", code)
	}
	if ingest.Scored != 2 {
		t.Errorf("scored = %d, want 2", ingest.Scored)
	}

	frames := SubmitFramesRequest{Frames: []engine.Frame{{SourceID: "cam-1", Data: []byte{0xff, 0xd8, 0xff}}}}
	if code := do(t, srv, "POST", "/api/stores/s-7/frames", frames, &ingest); code != 200 {
		t.Fatalf("frames status = %d", code)
	}

	var report engine.BatchReport
	if code := do(t, srv, "POST", "/api/analyze-all", AnalyzeAllRequest{}, &report); code != 200 {
		t.Fatalf("analyze-all status = %d", code)
	}
	if report.Stores != 1 || report.Scorecards != 2 {
		t.Errorf("report = %+v", report)
	}

	var health HealthReply
	if code := do(t, srv, "GET", "/api/health", nil, &health); code != 200 || health.Status != "ok" || health.Collaborators["oracle"] != "static" {
		t.Errorf("health = %d %+v", code, health)
	}
}
