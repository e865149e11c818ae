package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// KafkaSink appends events to one topic per event type, keyed by appointment
// id so updates to the same appointment stay ordered within a partition.
type KafkaSink struct {
	w           *kafka.Writer
	topicPrefix string
}

func NewKafkaSink(brokers []string, topicPrefix string) *KafkaSink {
	return &KafkaSink{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
		topicPrefix: topicPrefix,
	}
}

func (k *KafkaSink) Topic(t Type) string {
	if k.topicPrefix == "" {
		return string(t)
	}
	return strings.TrimSuffix(k.topicPrefix, ".") + "." + string(t)
}

func (k *KafkaSink) Publish(ctx context.Context, e Event) error {
	return k.w.WriteMessages(ctx, k.message(ctx, e))
}

func (k *KafkaSink) message(ctx context.Context, e Event) kafka.Message {
	value, _ := json.Marshal(e)
	msg := kafka.Message{
		Topic: k.Topic(e.Type),
		Key:   []byte(e.AggregateID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(e.ID)},
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}
	msg.Headers = injectTraceHeaders(ctx, msg.Headers)
	return msg
}

func (k *KafkaSink) Close() error {
	return k.w.Close()
}

func injectTraceHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := &headerCarrier{headers: headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier.headers
}

type headerCarrier struct {
	headers []kafka.Header
}

func (c *headerCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func (c *headerCarrier) Set(key, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

var _ propagation.TextMapCarrier = (*headerCarrier)(nil)
