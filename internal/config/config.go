package config

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// Provider names accepted by PROVIDER
const (
	ProviderAuto      = "auto"
	ProviderSimulated = "simulated"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	CORSAllowedOrigins []string
	VerifyRateLimit    float64
	VerifyRateBurst    int

	MaxUploadSize       int64
	HistoryDisplayLimit int

	Provider        string
	ProviderTimeout time.Duration
	SystemPrompt    string
	GeminiAPIKey    string
	GeminiModel     string
	GeminiBaseURL   string
	AnthropicAPIKey string
	AnthropicModel  string
	AnthropicURL    string
	SimulatedDelay  time.Duration

	ResolveURLs       bool
	AllowPrivateURLs  bool
	MediaFetchTimeout time.Duration
	AzureAccountName  string
	AzureAccountKey   string

	OCREnabled          bool
	ImageSignalsEnabled bool

	RedisURL       string
	SessionLockTTL time.Duration

	LogLevel  string
	LogFormat string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// AzureEnabled reports whether blob URLs can be fetched with shared key credentials
func (c *Config) AzureEnabled() bool {
	return c.AzureAccountName != "" && c.AzureAccountKey != ""
}

// ResolvedProvider returns the provider to construct. "auto" picks the
// first provider with an API key and falls back to the simulated one.
func (c *Config) ResolvedProvider() string {
	switch c.Provider {
	case ProviderAuto, "":
		switch {
		case c.GeminiAPIKey != "":
			return ProviderGemini
		case c.AnthropicAPIKey != "":
			return ProviderAnthropic
		default:
			return ProviderSimulated
		}
	default:
		return c.Provider
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", "8080")
	v.SetDefault("request_timeout", 60*time.Second)
	// Leaves room for multipart framing around a 10 MiB upload.
	v.SetDefault("max_request_body_size", 12*1024*1024)
	v.SetDefault("cors_allowed_origins", "*")
	v.SetDefault("verify_rate_limit", 0)
	v.SetDefault("verify_rate_burst", 5)

	v.SetDefault("max_upload_size", 10*1024*1024)
	v.SetDefault("history_display_limit", 3)

	v.SetDefault("provider", ProviderAuto)
	// 0 leaves provider calls unbounded apart from the request deadline
	v.SetDefault("provider_timeout", 0)
	v.SetDefault("system_prompt", "")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", "gemini-2.5-flash")
	v.SetDefault("gemini_base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("anthropic_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic_base_url", "")
	v.SetDefault("simulated_delay", 2*time.Second)

	v.SetDefault("resolve_urls", false)
	v.SetDefault("allow_private_urls", false)
	v.SetDefault("media_fetch_timeout", 15*time.Second)
	v.SetDefault("azure_storage_account", "")
	v.SetDefault("azure_storage_key", "")

	v.SetDefault("ocr_enabled", false)
	v.SetDefault("image_signals_enabled", true)

	v.SetDefault("redis_url", "")
	v.SetDefault("session_lock_ttl", 2*time.Minute)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

// LoadFromEnv reads configuration from the environment and an optional
// veritas.yaml in the working directory (or CONFIG_FILE), then validates it.
func LoadFromEnv() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if file := strings.TrimSpace(v.GetString("config_file")); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("veritas")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Host:               strings.TrimSpace(v.GetString("host")),
		Port:               strings.TrimSpace(v.GetString("port")),
		RequestTimeout:     v.GetDuration("request_timeout"),
		MaxRequestBodySize: v.GetInt64("max_request_body_size"),
		CORSAllowedOrigins: splitList(v.GetString("cors_allowed_origins")),
		VerifyRateLimit:    v.GetFloat64("verify_rate_limit"),
		VerifyRateBurst:    v.GetInt("verify_rate_burst"),

		MaxUploadSize:       v.GetInt64("max_upload_size"),
		HistoryDisplayLimit: v.GetInt("history_display_limit"),

		Provider:        strings.ToLower(strings.TrimSpace(v.GetString("provider"))),
		ProviderTimeout: v.GetDuration("provider_timeout"),
		SystemPrompt:    v.GetString("system_prompt"),
		GeminiAPIKey:    strings.TrimSpace(v.GetString("gemini_api_key")),
		GeminiModel:     strings.TrimSpace(v.GetString("gemini_model")),
		GeminiBaseURL:   strings.TrimRight(strings.TrimSpace(v.GetString("gemini_base_url")), "/"),
		AnthropicAPIKey: strings.TrimSpace(v.GetString("anthropic_api_key")),
		AnthropicModel:  strings.TrimSpace(v.GetString("anthropic_model")),
		AnthropicURL:    strings.TrimSpace(v.GetString("anthropic_base_url")),
		SimulatedDelay:  v.GetDuration("simulated_delay"),

		ResolveURLs:       v.GetBool("resolve_urls"),
		AllowPrivateURLs:  v.GetBool("allow_private_urls"),
		MediaFetchTimeout: v.GetDuration("media_fetch_timeout"),
		AzureAccountName:  strings.TrimSpace(v.GetString("azure_storage_account")),
		AzureAccountKey:   strings.TrimSpace(v.GetString("azure_storage_key")),

		OCREnabled:          v.GetBool("ocr_enabled"),
		ImageSignalsEnabled: v.GetBool("image_signals_enabled"),

		RedisURL:       strings.TrimSpace(v.GetString("redis_url")),
		SessionLockTTL: v.GetDuration("session_lock_ttl"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field requirements
func (c *Config) Validate() error {
	p, err := strconv.Atoi(c.Port)
	if err != nil || p < 1 || p > 65535 {
		return eris.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return eris.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.MaxUploadSize <= 0 {
		return eris.Errorf("MAX_UPLOAD_SIZE must be > 0 (got %d)", c.MaxUploadSize)
	}
	if c.HistoryDisplayLimit <= 0 {
		return eris.Errorf("HISTORY_DISPLAY_LIMIT must be > 0 (got %d)", c.HistoryDisplayLimit)
	}
	if c.RequestTimeout <= 0 || c.MediaFetchTimeout <= 0 || c.SessionLockTTL <= 0 {
		return eris.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, lock=%s)",
			c.RequestTimeout, c.MediaFetchTimeout, c.SessionLockTTL)
	}
	if c.ProviderTimeout < 0 {
		return eris.Errorf("PROVIDER_TIMEOUT must be >= 0 (got %s)", c.ProviderTimeout)
	}
	if c.SimulatedDelay < 0 {
		return eris.Errorf("SIMULATED_DELAY must be >= 0 (got %s)", c.SimulatedDelay)
	}
	if c.VerifyRateLimit < 0 {
		return eris.Errorf("VERIFY_RATE_LIMIT must be >= 0 (got %v)", c.VerifyRateLimit)
	}

	switch c.Provider {
	case ProviderAuto, "", ProviderSimulated:
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return eris.New("PROVIDER=gemini requires GEMINI_API_KEY")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return eris.New("PROVIDER=anthropic requires ANTHROPIC_API_KEY")
		}
	default:
		return eris.Errorf("unknown PROVIDER %q", c.Provider)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
