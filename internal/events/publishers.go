// Package events delivers verification state transitions to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/akylbek/payment-system/cod-verifier/internal/interfaces"
	"github.com/akylbek/payment-system/cod-verifier/internal/models"
)

var (
	_ interfaces.EventPublisher = (*KafkaPublisher)(nil)
	_ interfaces.EventPublisher = (*NATSPublisher)(nil)
	_ interfaces.EventPublisher = (*RepositoryPublisher)(nil)
	_ interfaces.EventPublisher = Fanout(nil)
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per transition, keyed by session id so a
// session's events stay ordered within a partition.
type KafkaPublisher struct {
	w messageWriter
}

func NewKafkaPublisher(brokers, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:     kafka.TCP(brokers),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event models.TransitionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal transition: %w", err)
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.SessionID),
		Value: payload,
	})
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes each transition on <prefix>.<flow>.
type NATSPublisher struct {
	nc     natsConn
	prefix string
}

func NewNATSPublisher(nc natsConn, prefix string) *NATSPublisher {
	return &NATSPublisher{nc: nc, prefix: prefix}
}

func (p *NATSPublisher) Publish(_ context.Context, event models.TransitionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal transition: %w", err)
	}
	return p.nc.Publish(p.prefix+"."+event.Flow, payload)
}

func (p *NATSPublisher) Close() error { return p.nc.Drain() }

// RepositoryPublisher appends transitions to the audit log.
type RepositoryPublisher struct {
	repo interfaces.TransitionRepository
}

func NewRepositoryPublisher(repo interfaces.TransitionRepository) *RepositoryPublisher {
	return &RepositoryPublisher{repo: repo}
}

func (p *RepositoryPublisher) Publish(ctx context.Context, event models.TransitionEvent) error {
	return p.repo.Insert(ctx, event)
}

func (p *RepositoryPublisher) Close() error { return nil }

// Fanout publishes to every sink and joins their errors.
type Fanout []interfaces.EventPublisher

func (f Fanout) Publish(ctx context.Context, event models.TransitionEvent) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
