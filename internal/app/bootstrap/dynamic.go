package bootstrap

import (
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/novatech-assistant/internal/config"
	"github.com/wolfman30/novatech-assistant/internal/dynamic"
	"github.com/wolfman30/novatech-assistant/internal/knowledge"
	"github.com/wolfman30/novatech-assistant/internal/observability/metrics"
	"github.com/wolfman30/novatech-assistant/pkg/logging"
)

const fetchTimeout = 15 * time.Second

// BuildFetchers returns a fetcher for every external source that is
// configured. News and market data need API keys; Reddit search does not.
func BuildFetchers(cfg *appconfig.Config) []dynamic.Fetcher {
	client := &http.Client{Timeout: fetchTimeout}
	var fetchers []dynamic.Fetcher
	if strings.TrimSpace(cfg.NewsAPIKey) != "" {
		fetchers = append(fetchers, dynamic.NewNewsFetcher(cfg.NewsAPIKey, cfg.NewsQuery, dynamic.HTTPOptions{Client: client}))
	}
	if strings.TrimSpace(cfg.FinnhubAPIKey) != "" && len(cfg.MarketSymbols) > 0 {
		fetchers = append(fetchers, dynamic.NewMarketFetcher(cfg.FinnhubAPIKey, cfg.MarketSymbols, dynamic.HTTPOptions{Client: client}))
	}
	if strings.TrimSpace(cfg.SocialQuery) != "" {
		fetchers = append(fetchers, dynamic.NewSocialFetcher(cfg.SocialQuery, dynamic.HTTPOptions{Client: client}))
	}
	return fetchers
}

// BuildRefresher wires the fetchers to the Redis cache when available, else
// to an in-process cache, and writes results back into the knowledge base.
// onUpdate may be nil.
func BuildRefresher(cfg *appconfig.Config, loader *knowledge.Loader, redisClient *redis.Client, m *metrics.ChatMetrics, logger *logging.Logger, onUpdate func(dynamic.Report)) *dynamic.Refresher {
	var cache dynamic.Cache
	if redisClient != nil {
		cache = dynamic.NewRedisCache(redisClient, cfg.DynamicCacheTTL, nil)
	} else {
		cache = dynamic.NewMemoryCache(cfg.DynamicCacheTTL, nil)
	}
	return dynamic.NewRefresher(BuildFetchers(cfg), dynamic.RefresherOptions{
		Cache:    cache,
		Writer:   loader,
		Source:   loader,
		Metrics:  m,
		Logger:   logger.Component("dynamic"),
		OnUpdate: onUpdate,
	})
}
