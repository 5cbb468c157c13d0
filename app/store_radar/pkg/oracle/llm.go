package oracle

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/store_radar/app/store_radar/pkg/config"
	dm "github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
)

const systemPrompt = "你是一个 JSON 生成器。请只输出 JSON 字符串。"

const reviewPrompt = `你是一名零售门店体验分析师。请阅读下面这条顾客评论，并对评论中明确提及的维度打分。
可用维度：waiting_time（等待时间）、staff_behavior（店员态度）、cleanliness（清洁度）、
ease_of_locating_items（找货难易）、product_availability（商品供应）、store_layout（门店布局）。
评分为 0-100 的数字，分数越高体验越好；评论没有涉及的维度不要输出。
请务必严格按照以下 JSON 格式返回，不要包含任何 markdown 标记：
{"themes": {"waiting_time": 35, "staff_behavior": 80}}

评论：
`

const framePrompt = `你是一名零售门店运营分析师。请观察这张店内画面，并对以下指标打分。
可用指标：cleanliness（清洁度）、empty_shelves（货架饱满度，空货架越多分数越低）、
queue_length（排队情况，排队越长分数越低）、staff_presence（店员在岗情况）、store_organization（陈列整齐度）。
评分为 0-100 的数字，分数越高状况越好；画面中无法判断的指标不要输出。
请务必严格按照以下 JSON 格式返回，不要包含任何 markdown 标记：
{"themes": {"cleanliness": 85, "empty_shelves": 40}}`

// LLMOracle 基于 OpenAI 兼容接口的打分实现
type LLMOracle struct {
	text    model.BaseChatModel
	vision  model.BaseChatModel
	limiter *rate.Limiter
}

// NewLLMOracle 根据配置初始化文本与视觉模型
func NewLLMOracle(ctx context.Context, cfg config.LLMConfig, limiter *rate.Limiter) (*LLMOracle, error) {
	text, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}

	vision := model.BaseChatModel(text)
	if cfg.VisionModel != "" && cfg.VisionModel != cfg.Model {
		vm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.VisionModel,
		})
		if err != nil {
			return nil, fmt.Errorf("视觉模型初始化失败: %w", err)
		}
		vision = vm
	}
	return NewLLMOracleWithModels(text, vision, limiter), nil
}

// NewLLMOracleWithModels 使用已创建的模型构造打分器，limiter 可为 nil
func NewLLMOracleWithModels(text, vision model.BaseChatModel, limiter *rate.Limiter) *LLMOracle {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &LLMOracle{text: text, vision: vision, limiter: limiter}
}

// ScoreReview 对一条评论打分
func (o *LLMOracle) ScoreReview(ctx context.Context, text string) (map[dm.ThemeKey]float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return map[dm.ThemeKey]float64{}, nil
	}
	messages := []*schema.Message{
		{Role: schema.System, Content: systemPrompt},
		{Role: schema.User, Content: reviewPrompt + text},
	}
	return o.generate(ctx, o.text, messages, dm.AnalysisSentiment)
}

// ScoreImageFrame 对一帧店内画面打分
func (o *LLMOracle) ScoreImageFrame(ctx context.Context, frame []byte) (map[dm.ThemeKey]float64, error) {
	if len(frame) == 0 {
		return map[dm.ThemeKey]float64{}, nil
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", http.DetectContentType(frame), base64.StdEncoding.EncodeToString(frame))
	messages := []*schema.Message{
		{Role: schema.System, Content: systemPrompt},
		{
			Role: schema.User,
			MultiContent: []schema.ChatMessagePart{
				{Type: schema.ChatMessagePartTypeText, Text: framePrompt},
				{Type: schema.ChatMessagePartTypeImageURL, ImageURL: &schema.ChatMessageImageURL{
					URL:    dataURL,
					Detail: schema.ImageURLDetailLow,
				}},
			},
		},
	}
	return o.generate(ctx, o.vision, messages, dm.AnalysisVisual)
}

func (o *LLMOracle) generate(ctx context.Context, cm model.BaseChatModel, messages []*schema.Message, analysisType dm.AnalysisType) (map[dm.ThemeKey]float64, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := cm.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return parseScores(resp.Content, analysisType)
}
