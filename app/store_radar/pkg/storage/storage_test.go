package storage

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/iWorld-y/store_radar/app/store_radar/pkg/config"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := Open(config.DBConfig{Driver: "sqlite", Source: ":memory:"})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	mem, err := Open(config.DBConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	t.Cleanup(func() {
		sqlite.Close()
		mem.Close()
	})
	return map[string]Store{"memory": mem, "sqlite": sqlite}
}

func ptr(v float64) *float64 { return &v }

var timeCmp = cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })

func TestItems(t *testing.T) {
	base := time.Unix(1700000000, 0)
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			items := []model.RatedItem{
				{ID: "i2", StoreID: "s1", AnalysisType: model.AnalysisVisual, SourceID: "frame-2", Scores: map[model.ThemeKey]float64{model.ThemeEmptyShelves: 30}, CreatedAt: base.Add(time.Second)},
				{ID: "i1", StoreID: "s1", AnalysisType: model.AnalysisVisual, SourceID: "frame-1", Scores: map[model.ThemeKey]float64{model.ThemeQueueLength: 70}, CreatedAt: base},
				{ID: "i3", StoreID: "s1", AnalysisType: model.AnalysisSentiment, Scores: map[model.ThemeKey]float64{model.ThemeWaitingTime: 10}, CreatedAt: base},
				{ID: "i4", StoreID: "s0", AnalysisType: model.AnalysisVisual, Scores: map[model.ThemeKey]float64{}, CreatedAt: base},
			}
			if err := s.SaveItems(ctx, items); err != nil {
				t.Fatalf("SaveItems() error = %v", err)
			}

			got, err := s.ListItems(ctx, "s1", model.AnalysisVisual)
			if err != nil {
				t.Fatalf("ListItems() error = %v", err)
			}
			if diff := cmp.Diff([]model.RatedItem{items[1], items[0]}, got, timeCmp); diff != "" {
				t.Errorf("ListItems mismatch (-want +got):\n%s", diff)
			}

			ids, err := s.ListStoreIDs(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff([]string{"s0", "s1"}, ids); diff != "" {
				t.Errorf("ListStoreIDs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScorecards(t *testing.T) {
	base := time.Unix(1700000000, 0)
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			older := &model.Scorecard{
				ID: "sc-1", StoreID: "s1", AnalysisType: model.AnalysisVisual, Overall: 50,
				Themes: []model.ThemeScore{
					{Theme: model.ThemeEmptyShelves, Weight: 0.5},
					{Theme: model.ThemeQueueLength, Score: ptr(50), Weight: 0.5, EffectiveWeight: 1, Observations: 2, Samples: []string{"a", "b"}},
				},
				Weights:     model.WeightConfig{model.ThemeEmptyShelves: 0.5, model.ThemeQueueLength: 0.5},
				ItemCount:   2,
				GeneratedAt: base,
				Diagnostics: model.Diagnostics{UnobservedThemes: []model.ThemeKey{model.ThemeEmptyShelves}},
			}
			newer := &model.Scorecard{
				ID: "sc-2", StoreID: "s1", AnalysisType: model.AnalysisVisual, Overall: 61,
				Themes:      []model.ThemeScore{{Theme: model.ThemeQueueLength, Score: ptr(61), Weight: 1, EffectiveWeight: 1, Observations: 1, Samples: []string{"c"}}},
				Weights:     model.WeightConfig{model.ThemeQueueLength: 1},
				ItemCount:   1,
				GeneratedAt: base.Add(time.Hour),
			}
			for _, sc := range []*model.Scorecard{older, newer} {
				if err := s.SaveScorecard(ctx, sc); err != nil {
					t.Fatalf("SaveScorecard() error = %v", err)
				}
			}

			got, err := s.ListScorecards(ctx, "s1", "", 0)
			if err != nil {
				t.Fatalf("ListScorecards() error = %v", err)
			}
			opts := []cmp.Option{timeCmp, cmpopts.EquateEmpty()}
			if diff := cmp.Diff([]*model.Scorecard{newer, older}, got, opts...); diff != "" {
				t.Errorf("ListScorecards mismatch (-want +got):\n%s", diff)
			}

			latest, err := LatestScorecard(ctx, s, "s1", model.AnalysisVisual)
			if err != nil || latest.ID != "sc-2" {
				t.Errorf("LatestScorecard() = %v, %v", latest, err)
			}
			if _, err := LatestScorecard(ctx, s, "s1", model.AnalysisSentiment); !errors.Is(err, ErrNotFound) {
				t.Errorf("LatestScorecard(sentiment) error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestScorecards_Immutable(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sc := &model.Scorecard{
				ID: "sc-1", StoreID: "s1", AnalysisType: model.AnalysisVisual, Overall: 40,
				Themes:      []model.ThemeScore{{Theme: model.ThemeQueueLength, Score: ptr(40), Weight: 1, EffectiveWeight: 1, Observations: 1, Samples: []string{"cam-1"}}},
				Weights:     model.WeightConfig{model.ThemeQueueLength: 1},
				ItemCount:   1,
				GeneratedAt: time.Unix(1700000000, 0),
			}
			if err := s.SaveScorecard(ctx, sc); err != nil {
				t.Fatalf("SaveScorecard() error = %v", err)
			}
			// 保存后修改入参
			*sc.Themes[0].Score = 99
			sc.Themes[0].Samples[0] = "changed"
			sc.Weights[model.ThemeQueueLength] = 0.1

			got, err := LatestScorecard(ctx, s, "s1", model.AnalysisVisual)
			if err != nil {
				t.Fatalf("LatestScorecard() error = %v", err)
			}
			// 修改返回值
			*got.Themes[0].Score = 1
			got.Themes[0].Samples[0] = "changed"
			got.Weights[model.ThemeQueueLength] = 0.2

			again, err := LatestScorecard(ctx, s, "s1", model.AnalysisVisual)
			if err != nil {
				t.Fatalf("LatestScorecard() error = %v", err)
			}
			ts := again.Themes[0]
			if *ts.Score != 40 || ts.Samples[0] != "cam-1" || again.Weights[model.ThemeQueueLength] != 1 {
				t.Errorf("stored scorecard changed: score=%v samples=%v weights=%v", *ts.Score, ts.Samples, again.Weights)
			}
		})
	}
}

func newAlert(id string, sev model.Severity) model.Alert {
	return model.Alert{
		ID: id, StoreID: "s1", AnalysisType: model.AnalysisVisual, Theme: model.ThemeEmptyShelves,
		Observed: 30, Threshold: 40, Comparison: model.LessThan, Severity: sev,
		ScorecardID: "sc-1", Description: "empty_shelves score 30.0 < 40.0", CreatedAt: time.Unix(1700000000, 0),
	}
}

func TestAlerts(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			created, err := s.CreateIfNoneOpen(ctx, newAlert("a1", model.SeverityHigh))
			if err != nil || !created {
				t.Fatalf("first CreateIfNoneOpen() = %v, %v", created, err)
			}
			created, err = s.CreateIfNoneOpen(ctx, newAlert("a2", model.SeverityHigh))
			if err != nil || created {
				t.Fatalf("duplicate CreateIfNoneOpen() = %v, %v", created, err)
			}
			created, err = s.CreateIfNoneOpen(ctx, newAlert("a3", model.SeverityMedium))
			if err != nil || !created {
				t.Fatalf("other severity CreateIfNoneOpen() = %v, %v", created, err)
			}
			other := newAlert("a5", model.SeverityHigh)
			other.AnalysisType = model.AnalysisSentiment
			created, err = s.CreateIfNoneOpen(ctx, other)
			if err != nil || !created {
				t.Fatalf("other analysis type CreateIfNoneOpen() = %v, %v", created, err)
			}

			at := time.Unix(1700003600, 0)
			resolved, err := s.ResolveAlert(ctx, "a1", at)
			if err != nil {
				t.Fatalf("ResolveAlert() error = %v", err)
			}
			if !resolved.Resolved || resolved.ResolvedAt == nil || !resolved.ResolvedAt.Equal(at) {
				t.Errorf("resolved alert = %+v", resolved)
			}
			again, err := s.ResolveAlert(ctx, "a1", at.Add(time.Hour))
			if err != nil || !again.ResolvedAt.Equal(at) {
				t.Errorf("second ResolveAlert() = %+v, %v; resolved_at must not move", again, err)
			}
			if _, err := s.ResolveAlert(ctx, "missing", at); !errors.Is(err, ErrNotFound) {
				t.Errorf("ResolveAlert(missing) error = %v, want ErrNotFound", err)
			}

			// 解除后可以再次创建
			created, err = s.CreateIfNoneOpen(ctx, newAlert("a4", model.SeverityHigh))
			if err != nil || !created {
				t.Fatalf("CreateIfNoneOpen() after resolve = %v, %v", created, err)
			}

			open := false
			list, err := s.ListAlerts(ctx, model.AlertFilter{StoreID: "s1", Resolved: &open})
			if err != nil {
				t.Fatal(err)
			}
			var ids []string
			for _, a := range list {
				ids = append(ids, a.ID)
			}
			if diff := cmp.Diff([]string{"a3", "a4", "a5"}, ids, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
				t.Errorf("open alerts mismatch (-want +got):\n%s", diff)
			}

			got, err := s.GetAlert(ctx, "a3")
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(newAlert("a3", model.SeverityMedium), got, timeCmp); diff != "" {
				t.Errorf("GetAlert mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAlerts_ConcurrentDedup(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				created int
			)
			for i := 0; i < 32; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					ok, err := s.CreateIfNoneOpen(ctx, newAlert("c"+strconv.Itoa(i), model.SeverityHigh))
					if err != nil {
						t.Errorf("CreateIfNoneOpen() error = %v", err)
						return
					}
					if ok {
						mu.Lock()
						created++
						mu.Unlock()
					}
				}(i)
			}
			wg.Wait()
			if created != 1 {
				t.Errorf("created = %d, want 1", created)
			}
		})
	}
}

func TestWeights(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, ok, err := s.GetWeights(ctx, model.AnalysisVisual); err != nil || ok {
				t.Fatalf("GetWeights() on empty store = %v, %v", ok, err)
			}
			first := model.WeightConfig{model.ThemeEmptyShelves: 1}
			second := model.WeightConfig{model.ThemeEmptyShelves: 0.4, model.ThemeQueueLength: 0.6}
			if err := s.PutWeights(ctx, model.AnalysisVisual, first); err != nil {
				t.Fatal(err)
			}
			if err := s.PutWeights(ctx, model.AnalysisVisual, second); err != nil {
				t.Fatal(err)
			}
			got, ok, err := s.GetWeights(ctx, model.AnalysisVisual)
			if err != nil || !ok {
				t.Fatalf("GetWeights() = %v, %v", ok, err)
			}
			if diff := cmp.Diff(second, got); diff != "" {
				t.Errorf("weights mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(config.DBConfig{Driver: "oracle"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}
