package config

import (
	"fmt"
	"net"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/anime-shed/skintone-inspector/internal/analyzer"
	"github.com/anime-shed/skintone-inspector/internal/storage"
)

const (
	KeyHost               = "HOST"
	KeyPort               = "PORT"
	KeyRequestTimeout     = "REQUEST_TIMEOUT"
	KeyImageFetchTimeout  = "IMAGE_FETCH_TIMEOUT"
	KeyAnalysisTimeout    = "ANALYSIS_TIMEOUT"
	KeyMaxRequestBodySize = "MAX_REQUEST_BODY_SIZE"
	KeyMaxUploadFiles     = "MAX_UPLOAD_FILES"
	KeyMaxImagePixels     = "MAX_IMAGE_PIXELS"
	KeyWorkers            = "WORKERS"
	KeyMinPercentage      = "MIN_PERCENTAGE"
	KeyClusterEngine      = "CLUSTER_ENGINE"
	KeyPaletteAssetPath   = "PALETTE_ASSET_PATH"
	KeyAzureAccount       = "AZURE_STORAGE_ACCOUNT"
	KeyAzureKey           = "AZURE_STORAGE_KEY"
	KeyRedisAddr          = "REDIS_ADDR"
	KeyRedisPassword      = "REDIS_PASSWORD"
	KeyRedisDB            = "REDIS_DB"
	KeyCacheTTL           = "CACHE_TTL"
	KeyLogLevel           = "LOG_LEVEL"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	AnalysisTimeout    time.Duration
	MaxRequestBodySize int64
	MaxUploadFiles     int
	MaxImagePixels     int
	Workers            int
	MinPercentage      float64
	ClusterEngine      analyzer.ClusterEngine
	PaletteAssetPath   string
	AzureAccount       string
	AzureKey           string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	CacheTTL           time.Duration
	LogLevel           string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// CacheEnabled reports whether a Redis result cache was configured.
func (c *Config) CacheEnabled() bool {
	return strings.TrimSpace(c.RedisAddr) != ""
}

// AzureEnabled reports whether shared-key credentials for blob storage are present.
func (c *Config) AzureEnabled() bool {
	return c.AzureAccount != "" && c.AzureKey != ""
}

func setDefaults(vp *viper.Viper) {
	vp.SetDefault(KeyHost, "0.0.0.0")
	vp.SetDefault(KeyPort, "8080")
	vp.SetDefault(KeyRequestTimeout, 30*time.Second)
	vp.SetDefault(KeyImageFetchTimeout, 15*time.Second)
	vp.SetDefault(KeyAnalysisTimeout, 20*time.Second)
	vp.SetDefault(KeyMaxRequestBodySize, 10*1024*1024) // 10MB
	vp.SetDefault(KeyMaxUploadFiles, 10)
	vp.SetDefault(KeyMaxImagePixels, storage.DefaultMaxImagePixels)
	vp.SetDefault(KeyWorkers, runtime.NumCPU())
	vp.SetDefault(KeyMinPercentage, analyzer.DefaultMinPercentage)
	vp.SetDefault(KeyClusterEngine, string(analyzer.EngineLloyd))
	vp.SetDefault(KeyPaletteAssetPath, "assets/paleta.png")
	vp.SetDefault(KeyRedisDB, 0)
	vp.SetDefault(KeyCacheTTL, 24*time.Hour)
	vp.SetDefault(KeyLogLevel, "info")
}

// LoadFromEnv reads configuration from the process environment.
func LoadFromEnv() (*Config, error) {
	vp := viper.New()
	vp.AutomaticEnv()
	return Load(vp)
}

// Load builds a Config from vp, applying defaults for unset keys.
func Load(vp *viper.Viper) (*Config, error) {
	setDefaults(vp)

	engine, err := analyzer.ParseClusterEngine(strings.TrimSpace(vp.GetString(KeyClusterEngine)))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyClusterEngine, err)
	}

	cfg := &Config{
		Host:               strings.TrimSpace(vp.GetString(KeyHost)),
		Port:               strings.TrimSpace(vp.GetString(KeyPort)),
		RequestTimeout:     vp.GetDuration(KeyRequestTimeout),
		ImageFetchTimeout:  vp.GetDuration(KeyImageFetchTimeout),
		AnalysisTimeout:    vp.GetDuration(KeyAnalysisTimeout),
		MaxRequestBodySize: vp.GetInt64(KeyMaxRequestBodySize),
		MaxUploadFiles:     vp.GetInt(KeyMaxUploadFiles),
		MaxImagePixels:     vp.GetInt(KeyMaxImagePixels),
		Workers:            vp.GetInt(KeyWorkers),
		MinPercentage:      vp.GetFloat64(KeyMinPercentage),
		ClusterEngine:      engine,
		PaletteAssetPath:   vp.GetString(KeyPaletteAssetPath),
		AzureAccount:       vp.GetString(KeyAzureAccount),
		AzureKey:           vp.GetString(KeyAzureKey),
		RedisAddr:          vp.GetString(KeyRedisAddr),
		RedisPassword:      vp.GetString(KeyRedisPassword),
		RedisDB:            vp.GetInt(KeyRedisDB),
		CacheTTL:           vp.GetDuration(KeyCacheTTL),
		LogLevel:           strings.ToLower(vp.GetString(KeyLogLevel)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that viper's typed getters cannot.
func (c *Config) Validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(c.Port)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 || c.AnalysisTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, analysis=%s)",
			c.RequestTimeout, c.ImageFetchTimeout, c.AnalysisTimeout)
	}
	if c.MaxUploadFiles <= 0 {
		return fmt.Errorf("MAX_UPLOAD_FILES must be > 0 (got %d)", c.MaxUploadFiles)
	}
	if c.MaxImagePixels <= 0 {
		return fmt.Errorf("MAX_IMAGE_PIXELS must be > 0 (got %d)", c.MaxImagePixels)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("WORKERS must be > 0 (got %d)", c.Workers)
	}
	if c.MinPercentage < 0 || c.MinPercentage > 100 {
		return fmt.Errorf("MIN_PERCENTAGE must be within [0, 100] (got %g)", c.MinPercentage)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL must be >= 0 (got %s)", c.CacheTTL)
	}
	if (c.AzureAccount == "") != (c.AzureKey == "") {
		return fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY must be set together")
	}
	return nil
}
