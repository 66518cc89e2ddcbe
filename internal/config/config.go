package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env            string        `mapstructure:"ENV"`
	Port           string        `mapstructure:"PORT"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	AdminKey       string        `mapstructure:"ADMIN_KEY"`
	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	CORSAllowed    string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`

	BroadcastTimeout     time.Duration `mapstructure:"BROADCAST_TIMEOUT"`
	BroadcastMaxInflight int           `mapstructure:"BROADCAST_MAX_INFLIGHT"`
	BroadcastMaxLimit    int           `mapstructure:"BROADCAST_MAX_LIMIT"`
	AgentTimeout         time.Duration `mapstructure:"AGENT_TIMEOUT"`

	AssistantBaseURL   string        `mapstructure:"ASSISTANT_BASE_URL"`
	AssistantModel     string        `mapstructure:"ASSISTANT_MODEL"`
	AssistantAPIKey    string        `mapstructure:"ASSISTANT_API_KEY"`
	AssistantMaxTokens int           `mapstructure:"ASSISTANT_MAX_TOKENS"`
	AssistantCacheTTL  time.Duration `mapstructure:"ASSISTANT_CACHE_TTL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	ElasticsearchURLs  string `mapstructure:"ELASTICSEARCH_URLS"`
	ElasticsearchIndex string `mapstructure:"ELASTICSEARCH_INDEX"`

	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("BROADCAST_TIMEOUT", "4s")
	v.SetDefault("BROADCAST_MAX_INFLIGHT", 16)
	v.SetDefault("BROADCAST_MAX_LIMIT", 50)
	v.SetDefault("AGENT_TIMEOUT", "3s")
	v.SetDefault("ASSISTANT_MAX_TOKENS", 512)
	v.SetDefault("ASSISTANT_CACHE_TTL", "60s")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ELASTICSEARCH_INDEX", "zion_search")

	// AutomaticEnv only resolves keys viper already knows about.
	for _, key := range []string{"DATABASE_URL", "ADMIN_KEY", "JWT_SECRET", "ASSISTANT_BASE_URL", "ASSISTANT_MODEL",
		"ASSISTANT_API_KEY", "REDIS_ADDR", "REDIS_PASSWORD", "ELASTICSEARCH_URLS", "OTEL_EXPORTER_OTLP_ENDPOINT"} {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ElasticsearchAddresses splits the comma separated ELASTICSEARCH_URLS value.
func (c Config) ElasticsearchAddresses() []string {
	return SplitList(c.ElasticsearchURLs)
}

func SplitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
