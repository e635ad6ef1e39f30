package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Pappers    PappersConfig    `yaml:"pappers" mapstructure:"pappers"`
	Societe    SocieteConfig    `yaml:"societe" mapstructure:"societe"`
	Infogreffe InfogreffeConfig `yaml:"infogreffe" mapstructure:"infogreffe"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Import     ImportConfig     `yaml:"import" mapstructure:"import"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// PappersConfig holds Pappers API settings.
type PappersConfig struct {
	Key            string   `yaml:"key" mapstructure:"key"`
	BaseURL        string   `yaml:"base_url" mapstructure:"base_url"`
	RatePerSecond  float64  `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	NAFCodes       []string `yaml:"naf_codes" mapstructure:"naf_codes"`
	Departments    []string `yaml:"departments" mapstructure:"departments"`
	MinRevenueEUR  float64  `yaml:"min_revenue_eur" mapstructure:"min_revenue_eur"`
	MaxRevenueEUR  float64  `yaml:"max_revenue_eur" mapstructure:"max_revenue_eur"`
	ResultsPerPage int      `yaml:"results_per_page" mapstructure:"results_per_page"`
}

// SocieteConfig holds societe.com scraper settings.
type SocieteConfig struct {
	BaseURL         string   `yaml:"base_url" mapstructure:"base_url"`
	NAFCode         string   `yaml:"naf_code" mapstructure:"naf_code"`
	Departments     []string `yaml:"departments" mapstructure:"departments"`
	MinDelayMs      int      `yaml:"min_delay_ms" mapstructure:"min_delay_ms"`
	MaxDelayMs      int      `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
	TimeoutSecs     int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxPagesPerDept int      `yaml:"max_pages_per_dept" mapstructure:"max_pages_per_dept"`
}

// InfogreffeConfig holds Infogreffe enrichment settings.
type InfogreffeConfig struct {
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	MaxConcurrency int     `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	MinRevenueEUR  float64 `yaml:"min_revenue_eur" mapstructure:"min_revenue_eur"`
	MinScore       float64 `yaml:"min_score" mapstructure:"min_score"`
}

// AnthropicConfig holds the optional LLM scoring settings. When Key is empty
// the heuristic scorer is used alone.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ImportConfig configures the bulk import pipeline.
type ImportConfig struct {
	MaxRows int `yaml:"max_rows" mapstructure:"max_rows"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "prospect.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("pappers.key", "")
	v.SetDefault("pappers.base_url", "https://api.pappers.fr/v2")
	v.SetDefault("pappers.rate_per_second", 2.0)
	v.SetDefault("pappers.naf_codes", []string{"6920Z"})
	v.SetDefault("pappers.departments", []string{"75", "77", "78", "91", "92", "93", "94", "95"})
	v.SetDefault("pappers.min_revenue_eur", 3000000)
	v.SetDefault("pappers.max_revenue_eur", 50000000)
	v.SetDefault("pappers.results_per_page", 100)
	v.SetDefault("societe.base_url", "https://www.societe.com")
	v.SetDefault("societe.naf_code", "6920Z")
	v.SetDefault("societe.departments", []string{"75", "77", "78", "91", "92", "93", "94", "95"})
	v.SetDefault("societe.min_delay_ms", 500)
	v.SetDefault("societe.max_delay_ms", 2000)
	v.SetDefault("societe.timeout_secs", 20)
	v.SetDefault("societe.max_pages_per_dept", 20)
	v.SetDefault("infogreffe.base_url", "https://opendata-api.infogreffe.fr")
	v.SetDefault("infogreffe.max_concurrency", 4)
	v.SetDefault("infogreffe.min_revenue_eur", 10000000)
	v.SetDefault("infogreffe.min_score", 70)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 512)
	v.SetDefault("import.max_rows", 50000)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
