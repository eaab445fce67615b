package reminders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type KafkaOptions struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publica cada Reminder como JSON con key = pet id, así los
// avisos de una mascota quedan en la misma partición.
type KafkaNotifier struct {
	writer messageWriter
}

func NewKafkaNotifier(opts KafkaOptions) *KafkaNotifier {
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = 50 * time.Millisecond
	}
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(opts.Brokers...),
			Topic:        opts.Topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: opts.BatchTimeout,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (n *KafkaNotifier) Notify(ctx context.Context, r Reminder) error {
	value, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reminder: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(r.PetID),
		Value: value,
		Time:  r.GeneratedAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte("care_reminder")},
		},
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish reminder: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	if n.writer != nil {
		return n.writer.Close()
	}
	return nil
}
