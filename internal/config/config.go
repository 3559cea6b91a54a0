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
	Crawl     CrawlConfig     `yaml:"crawl" mapstructure:"crawl"`
	Transport TransportConfig `yaml:"transport" mapstructure:"transport"`
	Crypto    CryptoConfig    `yaml:"crypto" mapstructure:"crypto"`
	Captcha   CaptchaConfig   `yaml:"captcha" mapstructure:"captcha"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CrawlConfig configures the pagination driver.
type CrawlConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// NameFilter is forwarded to the page endpoint as-is (the upstream
	// cioName substring filter).
	NameFilter string `yaml:"name_filter" mapstructure:"name_filter"`
	PageSize   int    `yaml:"page_size" mapstructure:"page_size"`
	// PageRetryMax is attempts per page, including the first one.
	PageRetryMax int `yaml:"page_retry_max" mapstructure:"page_retry_max"`
	// RefreshOnPageFailure refreshes the captcha token between page
	// attempts. The upstream rejects pages with a stale token far more
	// often than it serves a genuinely broken page, so this defaults on.
	RefreshOnPageFailure bool    `yaml:"refresh_on_page_failure" mapstructure:"refresh_on_page_failure"`
	BaselineScore        float64 `yaml:"baseline_score" mapstructure:"baseline_score"`
}

// TransportConfig configures the HTTP client.
type TransportConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	Referer     string  `yaml:"referer" mapstructure:"referer"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// CryptoConfig holds the fixed AES-CBC parameters. The key string's raw
// ASCII bytes are the key material (16/24/32 bytes); it is never
// hex-decoded.
type CryptoConfig struct {
	AESKey string `yaml:"aes_key" mapstructure:"aes_key"`
	AESIV  string `yaml:"aes_iv" mapstructure:"aes_iv"`
}

// CaptchaConfig configures challenge-token refresh.
type CaptchaConfig struct {
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// ExportConfig configures the XLSX report writer.
type ExportConfig struct {
	Dir    string        `yaml:"dir" mapstructure:"dir"`
	Sheets []SheetConfig `yaml:"sheets" mapstructure:"sheets"`
}

// SheetConfig is one report sheet: rows whose zzmx contains
// ZzmxContains land on it. Empty ZzmxContains matches everything.
type SheetConfig struct {
	Name         string `yaml:"name" mapstructure:"name"`
	ZzmxContains string `yaml:"zzmx_contains" mapstructure:"zzmx_contains"`
}

// StoreConfig configures the run-history database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultSheets returns the report sheets used when none are configured.
func DefaultSheets() []SheetConfig {
	return []SheetConfig{
		{Name: "全部数据"},
		{Name: "建筑工程", ZzmxContains: "施工总承包_建筑工程_"},
		{Name: "市政工程", ZzmxContains: "施工总承包_市政公用工程_"},
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CREDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("crawl.base_url", "http://106.15.60.27:22222/ycdc/bakCmisYcOrgan")
	v.SetDefault("crawl.name_filter", "公司")
	v.SetDefault("crawl.page_size", 20)
	v.SetDefault("crawl.page_retry_max", 3)
	v.SetDefault("crawl.refresh_on_page_failure", true)
	v.SetDefault("crawl.baseline_score", 100)
	v.SetDefault("transport.timeout_secs", 20)
	v.SetDefault("transport.max_retries", 3)
	v.SetDefault("transport.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.6261.95 Safari/537.36")
	v.SetDefault("transport.referer", "http://106.15.60.27:22222/")
	v.SetDefault("transport.rate_per_sec", 5)
	v.SetDefault("crypto.aes_key", "6875616E6779696E6875616E6779696E")
	v.SetDefault("crypto.aes_iv", "sskjKingFree5138")
	v.SetDefault("captcha.max_attempts", 3)
	v.SetDefault("export.dir", "reports")
	v.SetDefault("store.path", "credit-crawler.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

	if len(cfg.Export.Sheets) == 0 {
		cfg.Export.Sheets = DefaultSheets()
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
