package bootstrap

import (
	"context"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/novatech-assistant/internal/config"
	"github.com/wolfman30/novatech-assistant/internal/learning"
	"github.com/wolfman30/novatech-assistant/internal/query"
	"github.com/wolfman30/novatech-assistant/pkg/logging"
)

// BuildLearning returns nil when learning is disabled. With Redis the state
// survives restarts until it sits unused for LearningStateTTL; a state that
// cannot be read is logged and started over.
func BuildLearning(ctx context.Context, cfg *appconfig.Config, tables *query.Tables, redisClient *redis.Client, logger *logging.Logger) *learning.Store {
	if !cfg.LearningEnabled {
		return nil
	}
	opts := learning.Options{
		MaxInteractions:     cfg.LearningMaxInteractions,
		ConfidenceThreshold: cfg.LearningConfidenceThreshold,
		Keywords:            tables.Keywords,
		Logger:              logger.Component("learning"),
	}
	if redisClient != nil {
		opts.Persister = learning.NewRedisPersister(redisClient, cfg.LearningStateTTL, nil)
	}
	store := learning.NewStore(opts)
	if err := store.Load(ctx); err != nil {
		logger.Warn("learning state not restored, starting empty", "error", err)
	}
	return store
}
