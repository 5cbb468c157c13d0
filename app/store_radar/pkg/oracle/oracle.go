package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
)

// ErrUnavailable 打分服务不可用或返回了无法解析的结果，调用方自行决定是否重试
var ErrUnavailable = errors.New("scoring oracle unavailable")

// ScoringOracle 将评论文本或店内画面转换为各主题 0-100 的得分。
// 返回结果只包含能够判断的主题，未提及的主题不出现在结果中。
type ScoringOracle interface {
	ScoreReview(ctx context.Context, text string) (map[model.ThemeKey]float64, error)
	ScoreImageFrame(ctx context.Context, frame []byte) (map[model.ThemeKey]float64, error)
}

type scoreResponse struct {
	Themes map[string]*float64 `json:"themes"`
}

// parseScores 解析 LLM 返回的 JSON，只保留目录内的主题并截断到 [0,100]
func parseScores(content string, analysisType model.AnalysisType) (map[model.ThemeKey]float64, error) {
	clean := strings.TrimSpace(content)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	var resp scoreResponse
	if err := json.Unmarshal([]byte(clean), &resp); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrUnavailable, err)
	}

	scores := make(map[model.ThemeKey]float64, len(resp.Themes))
	for k, v := range resp.Themes {
		theme := model.ThemeKey(strings.ToLower(strings.TrimSpace(k)))
		if v == nil || !model.InCatalog(analysisType, theme) {
			continue
		}
		scores[theme] = clamp(*v)
	}
	return scores, nil
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
