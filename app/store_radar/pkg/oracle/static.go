package oracle

import (
	"context"

	"github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
)

// StaticOracle 返回固定得分，用于未配置 LLM 时的 mock 模式和测试
type StaticOracle struct {
	Review map[model.ThemeKey]float64
	Frame  map[model.ThemeKey]float64
}

// NewStaticOracle 使用默认 mock 得分创建
func NewStaticOracle() *StaticOracle {
	return &StaticOracle{
		Review: map[model.ThemeKey]float64{
			model.ThemeWaitingTime:         55,
			model.ThemeStaffBehavior:       72,
			model.ThemeCleanliness:         68,
			model.ThemeEaseOfLocatingItems: 60,
			model.ThemeProductAvailability: 64,
			model.ThemeStoreLayout:         70,
		},
		Frame: map[model.ThemeKey]float64{
			model.ThemeCleanliness:       78,
			model.ThemeEmptyShelves:      45,
			model.ThemeQueueLength:       62,
			model.ThemeStaffPresence:     58,
			model.ThemeStoreOrganization: 74,
		},
	}
}

func (s *StaticOracle) ScoreReview(ctx context.Context, text string) (map[model.ThemeKey]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return copyScores(s.Review), nil
}

func (s *StaticOracle) ScoreImageFrame(ctx context.Context, frame []byte) (map[model.ThemeKey]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return copyScores(s.Frame), nil
}

func copyScores(in map[model.ThemeKey]float64) map[model.ThemeKey]float64 {
	out := make(map[model.ThemeKey]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
