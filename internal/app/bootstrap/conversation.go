package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/novatech-assistant/internal/config"
	"github.com/wolfman30/novatech-assistant/internal/conversation"
	"github.com/wolfman30/novatech-assistant/pkg/logging"
)

// LLM providers reported by /health.
const (
	ProviderNone           = "none"
	ProviderGemini         = "gemini"
	ProviderBedrock        = "bedrock"
	ProviderGeminiFallback = "gemini+bedrock"
)

// BuildLLMClient picks the generation backend from config. Gemini is primary
// when its key is set and Bedrock becomes the fallback; with neither, the
// client is nil and every model answer degrades to a fallback message.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (conversation.LLMClient, string, error) {
	if cfg == nil {
		return nil, "", fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var gemini conversation.LLMClient
	if key := strings.TrimSpace(cfg.GeminiAPIKey); key != "" {
		client, err := conversation.NewGeminiLLMClient(ctx, key, cfg.GeminiModel)
		if err != nil {
			return nil, "", fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		gemini = client
	}

	var bedrock conversation.LLMClient
	if model := strings.TrimSpace(cfg.BedrockModelID); model != "" {
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, "", fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		client, err := conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg), model)
		if err != nil {
			return nil, "", fmt.Errorf("bootstrap: bedrock client: %w", err)
		}
		bedrock = client
	}

	switch {
	case gemini != nil && bedrock != nil:
		logger.Info("using gemini with bedrock fallback", "gemini_model", cfg.GeminiModel, "bedrock_model", cfg.BedrockModelID)
		return conversation.NewProviderChain(logger.Component("llm"), gemini, bedrock), ProviderGeminiFallback, nil
	case gemini != nil:
		logger.Info("using gemini", "model", cfg.GeminiModel)
		return gemini, ProviderGemini, nil
	case bedrock != nil:
		logger.Info("using bedrock", "model", cfg.BedrockModelID)
		return bedrock, ProviderBedrock, nil
	default:
		logger.Warn("no LLM configured; advanced answers will use fallback messages")
		return nil, ProviderNone, nil
	}
}
