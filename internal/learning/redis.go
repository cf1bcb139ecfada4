package learning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	redisStateKey   = "novatech:learning:state"
	DefaultStateTTL = 7 * 24 * time.Hour
)

// RedisPersister keeps the learned state as one JSON document. Every save
// renews the expiry, so the state only lapses after a quiet ttl.
type RedisPersister struct {
	redis  *redis.Client
	key    string
	ttl    time.Duration
	tracer trace.Tracer
}

func NewRedisPersister(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *RedisPersister {
	if client == nil {
		panic("learning: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	if tracer == nil {
		tracer = otel.Tracer("novatech.internal.learning")
	}
	return &RedisPersister{redis: client, key: redisStateKey, ttl: ttl, tracer: tracer}
}

func (p *RedisPersister) Load(ctx context.Context) (State, bool, error) {
	ctx, span := p.tracer.Start(ctx, "learning.load")
	defer span.End()

	data, err := p.redis.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, false, nil
	}
	if err != nil {
		span.RecordError(err)
		return State{}, false, fmt.Errorf("learning: failed to read state: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		span.RecordError(err)
		return State{}, false, fmt.Errorf("learning: failed to decode state: %w", err)
	}
	return st, true, nil
}

func (p *RedisPersister) Save(ctx context.Context, st State) error {
	ctx, span := p.tracer.Start(ctx, "learning.save")
	defer span.End()

	data, err := json.Marshal(st)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("learning: failed to encode state: %w", err)
	}
	if err := p.redis.Set(ctx, p.key, data, p.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("learning: failed to write state: %w", err)
	}
	return nil
}
