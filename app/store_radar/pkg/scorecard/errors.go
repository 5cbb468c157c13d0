package scorecard

import "errors"

var (
	// ErrEmptyInput 没有任何待聚合的条目
	ErrEmptyInput = errors.New("scorecard: no rated items")

	// ErrNoScorableThemes 没有任何权重大于 0 且有数据的主题
	ErrNoScorableThemes = errors.New("scorecard: no weighted theme has data")

	ErrInvalidWeight       = errors.New("scorecard: invalid weight")
	ErrScoreOutOfRange     = errors.New("scorecard: score out of range")
	ErrForeignItem         = errors.New("scorecard: item does not belong to scorecard")
	ErrUnknownAnalysisType = errors.New("scorecard: unknown analysis type")
	ErrInvalidRule         = errors.New("scorecard: invalid alert rule")
)
