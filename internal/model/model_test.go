package model

import (
	"context"
	"testing"

	"webstarter-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChatModel_Providers(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		wantErr  bool
	}{
		{name: "default is openrouter", provider: ""},
		{name: "openrouter", provider: ProviderOpenRouter},
		{name: "unsupported", provider: "llamafile", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{Upstream: config.UpstreamConfig{Provider: tc.provider, APIKey: "k", BaseURL: "http://127.0.0.1:1"}}
			m, err := NewChatModel(context.Background(), cfg)
			if tc.wantErr {
				assert.ErrorContains(t, err, "unsupported model provider")
				return
			}
			require.NoError(t, err)
			assert.IsType(t, &OpenRouterModel{}, m)
		})
	}
}
