package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// ProviderChain asks each model provider in order until one answers. It
// gives up early once the request context is done.
type ProviderChain struct {
	clients []LLMClient
	logger  *slog.Logger
}

// NewProviderChain skips nil clients, so an unconfigured provider can be
// passed straight through.
func NewProviderChain(logger *slog.Logger, clients ...LLMClient) *ProviderChain {
	if logger == nil {
		logger = slog.Default()
	}
	c := &ProviderChain{logger: logger}
	for _, client := range clients {
		if client != nil {
			c.clients = append(c.clients, client)
		}
	}
	return c
}

func (c *ProviderChain) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if len(c.clients) == 0 {
		return LLMResponse{}, ErrLLMUnavailable
	}

	var errs []error
	for i, client := range c.clients {
		resp, err := client.Complete(ctx, req)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback provider answered", "provider", resp.Provider, "attempt", i+1)
			}
			return resp, nil
		}
		errs = append(errs, err)

		last := i == len(c.clients)-1
		c.logger.Warn("llm provider failed",
			"attempt", i+1,
			"kind", ClassifyLLMError(err),
			"error", err,
			"next_available", !last,
		)
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 1 {
		return LLMResponse{}, errs[0]
	}
	return LLMResponse{}, fmt.Errorf("conversation: %d providers failed: %w", len(errs), errors.Join(errs...))
}

// Close releases every provider that holds a connection.
func (c *ProviderChain) Close() error {
	var errs []error
	for _, client := range c.clients {
		if closer, ok := client.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
