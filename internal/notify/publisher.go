// Package notify hands notification requests to the platform's notification
// service over Kafka. Delivery is best-effort: a failed publish is logged and
// never affects the message that triggered it.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/charukaonline/uninest-sub000/internal/config"
	"github.com/charukaonline/uninest-sub000/internal/models"
)

// Notifier is the sink the message pipeline pushes notifications into.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

type KafkaNotifier struct {
	writer *kafka.Writer
	log    *zap.SugaredLogger
}

// NewKafkaNotifier builds the producer for the notification topic.
func NewKafkaNotifier(cfg *config.Config, log *zap.SugaredLogger) *KafkaNotifier {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.TopicNotification,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &KafkaNotifier{writer: w, log: log}
}

func (n *KafkaNotifier) Notify(ctx context.Context, notification *models.Notification) error {
	b, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(notification.UserID),
		Value: b,
		Time:  time.Now(),
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		n.log.Errorw("notification publish failed", "user", notification.UserID, "err", err)
		return err
	}
	return nil
}

func (n *KafkaNotifier) Close() error { return n.writer.Close() }
