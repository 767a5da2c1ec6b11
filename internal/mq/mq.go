package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoBackend is returned when publishing through an MQ without a broker.
var ErrNoBackend = errors.New("mq: no backend configured")

// Message is a payload delivered to a subscriber.
type Message struct {
	ID          string
	Data        []byte
	Attributes  map[string]string
	Redelivered bool
}

// Decode unmarshals the JSON payload into v.
func (m Message) Decode(v any) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode message %s: %w", m.ID, err)
	}
	return nil
}

// Handler processes a message. A non-nil error nacks it.
type Handler func(ctx context.Context, msg Message) error

// Backend is implemented by each broker.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ wraps a backend. A nil backend is allowed and makes every call fail
// with ErrNoBackend, so callers can hold an *MQ unconditionally.
type MQ struct {
	backend Backend
}

func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// Enabled reports whether a broker is attached.
func (m *MQ) Enabled() bool {
	return m != nil && m.backend != nil
}

func (m *MQ) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if !m.Enabled() {
		return "", ErrNoBackend
	}
	return m.backend.Publish(ctx, channel, data, attrs)
}

// PublishJSON marshals v and publishes it with a JSON content type.
func (m *MQ) PublishJSON(ctx context.Context, channel string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode message: %w", err)
	}
	return m.Publish(ctx, channel, data, map[string]string{"content-type": "application/json"})
}

// Subscribe blocks consuming channel until ctx is done or the broker fails.
func (m *MQ) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if !m.Enabled() {
		return ErrNoBackend
	}
	return m.backend.Subscribe(ctx, channel, handler)
}

func (m *MQ) Close() error {
	if !m.Enabled() {
		return nil
	}
	return m.backend.Close()
}
