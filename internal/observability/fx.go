package observability

import (
	"os"
	"strings"

	"github.com/brightops/usagesync/internal/config"
	"github.com/brightops/usagesync/internal/observability/logger"
	"github.com/brightops/usagesync/internal/observability/metrics"
	"go.uber.org/fx"
)

// Config holds observability configuration derived from environment variables.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "usagesync"
	}
	return Config{
		ServiceName: serviceName,
		Environment: getenv("DEPLOYMENT_ENV", cfg.Environment),
		Version:     getenv("SERVICE_VERSION", cfg.AppVersion),
		LogLevel:    strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
		LogFormat:   strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
	}
}

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideLoggerConfig,
		logger.New,
		provideMetricsConfig,
	),
	fx.Invoke(ensureReconcilerMetrics),
)

func provideLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:   cfg.ServiceName,
		Environment:   cfg.Environment,
		Version:       cfg.Version,
		Level:         cfg.LogLevel,
		Format:        cfg.LogFormat,
		IncludeCaller: true,
	}
}

func provideMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	}
}

func ensureReconcilerMetrics(cfg metrics.Config) {
	metrics.ReconcilerWithConfig(cfg)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
