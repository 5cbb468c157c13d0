package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/iWorld-y/store_radar/app/store_radar/pkg/config"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
)

// Notifier 新告警的下游通知
type Notifier interface {
	Notify(ctx context.Context, alerts []model.Alert) error
	Close() error
}

// New 根据配置创建通知器，未配置 broker 时返回 Nop
func New(cfg config.KafkaConfig) Notifier {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return Nop{}
	}
	return NewKafkaNotifier(cfg)
}

// Nop 不发送任何通知
type Nop struct{}

func (Nop) Notify(context.Context, []model.Alert) error { return nil }
func (Nop) Close() error                               { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier 每条告警一条消息，以门店 ID 作为 key 保证同门店有序
type KafkaNotifier struct {
	writer messageWriter
}

// NewKafkaNotifier 创建 Kafka 通知器
func NewKafkaNotifier(cfg config.KafkaConfig) *KafkaNotifier {
	return &KafkaNotifier{writer: &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}}
}

// AlertEvent 发送到 Kafka 的消息体
type AlertEvent struct {
	Type  string      `json:"type"`
	Alert model.Alert `json:"alert"`
}

func (n *KafkaNotifier) Notify(ctx context.Context, alerts []model.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(alerts))
	for _, a := range alerts {
		value, err := json.Marshal(AlertEvent{Type: "alert.created", Alert: a})
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(a.StoreID),
			Value: value,
			Time:  a.CreatedAt,
		})
	}
	if err := n.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d alerts: %w", len(msgs), err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
