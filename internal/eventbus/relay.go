/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus relays in-process events between atcapp instances over
// Redis pub/sub.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jtoledo1974/atcapp/internal/events"
)

const channelPrefix = "atcapp:events:"

// originKey marks payloads that arrived from another node so they are not
// forwarded back out.
const originKey = "origin_node"

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultRedisConfig returns default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Relay mirrors selected event types between a local bus and Redis.
type Relay struct {
	client *redis.Client
	local  *events.Bus
	nodeID string
	types  []events.EventType
	logger zerolog.Logger
}

// NewRelay connects to Redis. local may be nil for publish-only use.
func NewRelay(cfg RedisConfig, local *events.Bus, logger zerolog.Logger, types ...events.EventType) (*Relay, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect event relay: %w", err)
	}

	r := &Relay{
		client: client,
		local:  local,
		nodeID: NodeID(),
		types:  types,
	}
	r.logger = logger.With().Str("component", "eventbus").Str("node_id", r.nodeID).Logger()
	r.logger.Info().Str("addr", cfg.Addr).Msg("event relay connected")
	return r, nil
}

// NodeID identifies this process on the relay.
func NodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "atcapp"
	}
	return host + "-" + uuid.NewString()[:8]
}

// Publish sends one event to every other node.
func (r *Relay) Publish(ctx context.Context, eventType events.EventType, payload events.Payload) error {
	data, err := marshalMessage(eventType, payload, r.nodeID)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.client.Publish(ctx, channelPrefix+string(eventType), data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	r.logger.Debug().Str("event_type", string(eventType)).Msg("published event to Redis")
	return nil
}

// Run forwards local events out and remote events in until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	if r.local == nil || len(r.types) == 0 {
		<-ctx.Done()
		return nil
	}

	channels := make([]string, 0, len(r.types))
	for _, t := range r.types {
		channels = append(channels, channelPrefix+string(t))
	}
	pubsub := r.client.Subscribe(ctx, channels...)
	defer pubsub.Close()

	merged := make(chan localEvent, 16)
	for _, t := range r.types {
		sub := r.local.Subscribe(t)
		defer r.local.Unsubscribe(t, sub)
		go func(t events.EventType, sub events.Subscriber) {
			for payload := range sub {
				select {
				case merged <- localEvent{eventType: t, payload: payload}:
				case <-ctx.Done():
					return
				}
			}
		}(t, sub)
	}

	remote := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-merged:
			if _, ok := ev.payload[originKey]; ok {
				continue
			}
			if err := r.Publish(ctx, ev.eventType, ev.payload); err != nil {
				r.logger.Warn().Err(err).Msg("forward event")
			}
		case msg, ok := <-remote:
			if !ok {
				return fmt.Errorf("event relay subscription closed")
			}
			r.deliver(msg.Payload)
		}
	}
}

func (r *Relay) deliver(raw string) {
	msg, err := unmarshalMessage([]byte(raw))
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to unmarshal Redis message")
		return
	}
	// Skip messages from ourselves.
	if msg.NodeID == r.nodeID {
		return
	}
	payload := msg.Payload
	if payload == nil {
		payload = events.Payload{}
	}
	payload[originKey] = msg.NodeID
	r.local.Publish(msg.EventType, payload)

	r.logger.Debug().
		Str("event_type", string(msg.EventType)).
		Str("source_node", msg.NodeID).
		Msg("delivered Redis event to local subscribers")
}

// Close releases the Redis client.
func (r *Relay) Close() error {
	return r.client.Close()
}

type localEvent struct {
	eventType events.EventType
	payload   events.Payload
}

type message struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
}

func marshalMessage(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	return json.Marshal(message{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
	})
}

func unmarshalMessage(data []byte) (*message, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal relay message: %w", err)
	}
	return &msg, nil
}
