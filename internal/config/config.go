package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Ark       ArkConfig       `mapstructure:"ark"`
	Qwen      QwenConfig      `mapstructure:"qwen"`
	Email     EmailConfig     `mapstructure:"email"`
	Unsplash  UnsplashConfig  `mapstructure:"unsplash"`
	Auth      AuthConfig      `mapstructure:"auth"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

// UpstreamConfig selects the completion provider behind /api/ai.
type UpstreamConfig struct {
	Provider     string        `mapstructure:"provider"`
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	DebugRequest bool          `mapstructure:"debug_request"`
}

type ArkConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type QwenConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type EmailConfig struct {
	SendGridAPIKey string `mapstructure:"sendgrid_api_key"`
	FromEmail      string `mapstructure:"from_email"`
	FromName       string `mapstructure:"from_name"`
}

type UnsplashConfig struct {
	AccessKey string        `mapstructure:"access_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

var cfg *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Web Starter")
	v.SetDefault("app.url", "http://localhost:3000")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.max_header_bytes", 1<<20)

	v.SetDefault("upstream.provider", "openrouter")
	v.SetDefault("upstream.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("upstream.timeout", 5*time.Minute)

	v.SetDefault("qwen.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("qwen.timeout", 5*time.Minute)

	v.SetDefault("email.from_email", "noreply@example.com")
	v.SetDefault("email.from_name", "The Team")

	v.SetDefault("unsplash.base_url", "https://api.unsplash.com")
	v.SetDefault("unsplash.timeout", 15*time.Second)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Authorization"})
	v.SetDefault("cors.max_age", 600)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("rate_limit.requests_per_minute", 60)
	v.SetDefault("rate_limit.burst", 10)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Registered so AutomaticEnv can reach them during Unmarshal.
	for _, key := range []string{
		"upstream.api_key", "ark.api_key", "ark.base_url", "ark.model",
		"qwen.api_key", "qwen.model", "email.sendgrid_api_key",
		"unsplash.access_key", "auth.jwt_secret",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("upstream.debug_request", false)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("rate_limit.enabled", false)
}

// Load reads the YAML file at configPath. An empty path skips the file and
// uses defaults plus environment only.
func Load(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, err
	}

	// File values win; well-known provider variables fill the gaps.
	fillFromEnv(&c.Upstream.APIKey, "OPENROUTER_API_KEY")
	fillFromEnv(&c.Ark.APIKey, "ARK_API_KEY")
	fillFromEnv(&c.Qwen.APIKey, "DASHSCOPE_API_KEY")
	fillFromEnv(&c.Email.SendGridAPIKey, "SENDGRID_API_KEY")
	fillFromEnv(&c.Unsplash.AccessKey, "UNSPLASH_ACCESS_KEY")
	fillFromEnv(&c.Auth.JWTSecret, "JWT_SECRET")

	cfg = c
	return c, nil
}

func fillFromEnv(dst *string, key string) {
	if *dst != "" {
		return
	}
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func Get() *Config {
	return cfg
}
