package kafka_client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/spacesedan/ddscraper/internal/models"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ActionProducer publishes newly recorded actions, keyed by post id.
type ActionProducer struct {
	producer *kafka.Producer
	topic    string
}

func NewActionProducer(cfg KafkaConfig) (*ActionProducer, error) {
	slog.Info("[KafkaClient] Initializing Kafka Producer...", slog.String("broker", cfg.Broker))

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":                     cfg.Broker,
		"security.protocol":                     "PLAINTEXT",
		"api.version.request":                   "true",
		"enable.idempotence":                    true,
		"acks":                                  "all",
		"max.in.flight.requests.per.connection": 1,
	})
	if err != nil {
		return nil, fmt.Errorf("[KafkaClient] Failed to create producer: %w", err)
	}

	topic := cfg.Topic
	if topic == "" {
		topic = KAFKA_TOPIC_DD_ACTIONS
	}

	slog.Info("[KafkaClient] Kafka Producer initialized successfully")
	return &ActionProducer{producer: p, topic: topic}, nil
}

func (a *ActionProducer) Name() string { return "kafka" }

func (a *ActionProducer) PublishActions(ctx context.Context, actions []models.Action) error {
	for _, action := range actions {
		if err := a.publish(ctx, action); err != nil {
			return err
		}
	}
	return nil
}

func (a *ActionProducer) publish(ctx context.Context, action models.Action) error {
	payload, err := EncodeAction(action)
	if err != nil {
		return err
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &a.topic, Partition: kafka.PartitionAny},
		Key:            []byte(action.PostID),
		Value:          payload,
		Headers:        []kafka.Header{{Key: "schema", Value: []byte(PAYLOAD_SCHEMA)}},
	}

	deliveryChan := make(chan kafka.Event, 1)
	for i := 0; i < MAX_RETRIES; i++ {
		err = a.producer.Produce(msg, deliveryChan)
		if err == nil {
			break
		}
		slog.Warn("[KafkaClient] Failed to produce message, retrying...",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()))
		time.Sleep(RETRY_DELAY)
	}
	if err != nil {
		return fmt.Errorf("[KafkaClient] failed to produce action %s: %w", action.PostID, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(DELIVERY_WAIT):
		return fmt.Errorf("[KafkaClient] timed out waiting for delivery of %s", action.PostID)
	case e := <-deliveryChan:
		m, ok := e.(*kafka.Message)
		if ok && m.TopicPartition.Error != nil {
			return fmt.Errorf("[KafkaClient] delivery failed for %s: %w", action.PostID, m.TopicPartition.Error)
		}
	}

	slog.Debug("[KafkaClient] Published action",
		slog.String("topic", a.topic),
		slog.String("post_id", action.PostID))
	return nil
}

func (a *ActionProducer) Close() {
	slog.Info("[KafkaClient] Flushing Kafka producer before shutdown...")
	if remaining := a.producer.Flush(FLUSH_TIMEOUT); remaining > 0 {
		slog.Warn("[KafkaClient] Not all messages were delivered before shutdown",
			slog.Int("remaining", remaining))
	}
	a.producer.Close()
}

// EncodeAction serialises an action as a protobuf Struct.
func EncodeAction(action models.Action) ([]byte, error) {
	var ticker any
	if action.DetectedTicker != nil {
		ticker = *action.DetectedTicker
	}

	s, err := structpb.NewStruct(map[string]any{
		"post_id":           action.PostID,
		"detected_ticker":   ticker,
		"post_score":        action.PostScore,
		"avg_comment_score": action.AvgCommentScore,
		"decision":          string(action.Decision),
		"tldr":              action.TLDR,
	})
	if err != nil {
		return nil, fmt.Errorf("[KafkaClient] failed to build action payload: %w", err)
	}
	return proto.Marshal(s)
}

// DecodeAction is the inverse of EncodeAction.
func DecodeAction(payload []byte) (models.Action, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(payload, &s); err != nil {
		return models.Action{}, fmt.Errorf("[KafkaClient] failed to decode action payload: %w", err)
	}

	fields := s.GetFields()
	action := models.Action{
		PostID:          fields["post_id"].GetStringValue(),
		PostScore:       fields["post_score"].GetNumberValue(),
		AvgCommentScore: fields["avg_comment_score"].GetNumberValue(),
		Decision:        models.Decision(fields["decision"].GetStringValue()),
		TLDR:            fields["tldr"].GetStringValue(),
	}
	if v, ok := fields["detected_ticker"].GetKind().(*structpb.Value_StringValue); ok {
		ticker := v.StringValue
		action.DetectedTicker = &ticker
	}
	return action, nil
}
