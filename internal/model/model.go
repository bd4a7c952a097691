package model

import (
	"context"
	"fmt"
	"net/http"

	"webstarter-backend/internal/config"
	"webstarter-backend/internal/utils"
	"webstarter-backend/pkg/logger"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	einoModel "github.com/cloudwego/eino/components/model"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderArk        = "ark"
	ProviderQwen       = "qwen"
)

// NewChatModel builds the upstream completion provider named by
// cfg.Upstream.Provider. The per-request model id always comes from the
// chat request and is passed as an option.
func NewChatModel(ctx context.Context, cfg *config.Config) (einoModel.BaseChatModel, error) {
	switch cfg.Upstream.Provider {
	case "", ProviderOpenRouter:
		return createOpenRouterModel(cfg), nil
	case ProviderArk:
		return createArkModel(ctx, cfg.Ark)
	case ProviderQwen:
		return createQwenModel(ctx, cfg.Qwen, cfg.Upstream.DebugRequest)
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.Upstream.Provider)
	}
}

func createOpenRouterModel(cfg *config.Config) einoModel.BaseChatModel {
	if cfg.Upstream.APIKey == "" {
		logger.Warnf("OpenRouter API key is not set; upstream calls will be rejected")
	}

	httpClient := utils.NewHTTPClient(cfg.Upstream.Timeout)
	httpClient.Transport = NewDebugTransport(httpClient.Transport, cfg.Upstream.DebugRequest)

	return NewOpenRouterModel(OpenRouterConfig{
		APIKey:     cfg.Upstream.APIKey,
		BaseURL:    cfg.Upstream.BaseURL,
		AppURL:     cfg.App.URL,
		AppName:    cfg.App.Name,
		HTTPClient: httpClient,
	})
}

func createArkModel(ctx context.Context, cfg config.ArkConfig) (einoModel.BaseChatModel, error) {
	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		CustomHeader: map[string]string{
			"X-Ark-Thinking-Mode": "disable",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create ark model: %w", err)
	}
	return chatModel, nil
}

func createQwenModel(ctx context.Context, cfg config.QwenConfig, debug bool) (einoModel.BaseChatModel, error) {
	httpClient := &http.Client{
		Transport: NewDebugTransport(nil, debug),
		Timeout:   cfg.Timeout,
	}

	chatModel, err := qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		Timeout:    cfg.Timeout,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create qwen model: %w", err)
	}
	return chatModel, nil
}
