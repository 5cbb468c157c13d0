package oracle

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/go-cmp/cmp"

	dm "github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
)

// fakeChatModel 记录收到的消息并返回预设内容
type fakeChatModel struct {
	reply    string
	err      error
	received [][]*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.received = append(f.received, input)
	if f.err != nil {
		return nil, f.err
	}
	return &schema.Message{Role: schema.Assistant, Content: f.reply}, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func TestLLMOracle_ScoreReview(t *testing.T) {
	cm := &fakeChatModel{reply: "```json\n{\"themes\": {\"waiting_time\": 20, \"Staff_Behavior\": 130, \"empty_shelves\": 10, \"store_layout\": null}}\n```"}
	o := NewLLMOracleWithModels(cm, cm, nil)

	got, err := o.ScoreReview(context.Background(), "Waited forty minutes, but the cashier was lovely.")
	if err != nil {
		t.Fatalf("ScoreReview() error = %v", err)
	}
	want := map[dm.ThemeKey]float64{dm.ThemeWaitingTime: 20, dm.ThemeStaffBehavior: 100}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("scores mismatch (-want +got):\n%s", diff)
	}
	if len(cm.received) != 1 || !strings.Contains(cm.received[0][1].Content, "Waited forty minutes") {
		t.Errorf("review text not sent to model: %+v", cm.received)
	}
}

func TestLLMOracle_ScoreImageFrame(t *testing.T) {
	cm := &fakeChatModel{reply: `{"themes": {"empty_shelves": 30, "waiting_time": 90}}`}
	o := NewLLMOracleWithModels(nil, cm, nil)

	png := []byte("\x89PNG\r\n\x1a\n0000")
	got, err := o.ScoreImageFrame(context.Background(), png)
	if err != nil {
		t.Fatalf("ScoreImageFrame() error = %v", err)
	}
	if diff := cmp.Diff(map[dm.ThemeKey]float64{dm.ThemeEmptyShelves: 30}, got); diff != "" {
		t.Errorf("scores mismatch (-want +got):\n%s", diff)
	}
	parts := cm.received[0][1].MultiContent
	if len(parts) != 2 || parts[1].ImageURL == nil || !strings.HasPrefix(parts[1].ImageURL.URL, "data:image/png;base64,") {
		t.Errorf("image part = %+v", parts)
	}
}

func TestLLMOracle_Unavailable(t *testing.T) {
	tests := []struct {
		name string
		cm   *fakeChatModel
	}{
		{"generate error", &fakeChatModel{err: errors.New("status 429: too many requests")}},
		{"malformed json", &fakeChatModel{reply: "I think the store is fine."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewLLMOracleWithModels(tt.cm, tt.cm, nil)
			if _, err := o.ScoreReview(context.Background(), "ok"); !errors.Is(err, ErrUnavailable) {
				t.Errorf("error = %v, want ErrUnavailable", err)
			}
		})
	}
}

func TestLLMOracle_EmptyInputSkipsModel(t *testing.T) {
	cm := &fakeChatModel{}
	o := NewLLMOracleWithModels(cm, cm, nil)
	got, err := o.ScoreReview(context.Background(), "   ")
	if err != nil || len(got) != 0 || len(cm.received) != 0 {
		t.Errorf("ScoreReview(blank) = %v, %v; calls = %d", got, err, len(cm.received))
	}
}

func TestStaticOracle(t *testing.T) {
	o := NewStaticOracle()
	got, err := o.ScoreImageFrame(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	got[dm.ThemeEmptyShelves] = 0
	again, _ := o.ScoreImageFrame(context.Background(), nil)
	if again[dm.ThemeEmptyShelves] == 0 {
		t.Error("callers must not be able to mutate the static scores")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := o.ScoreReview(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
