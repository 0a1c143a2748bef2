package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DatabaseURL       string        // CHRON_DATABASE_URL (required)
	AttributionWindow time.Duration // CHRON_ATTRIBUTION_WINDOW (default 24h)

	// Export settings
	ExportS3Bucket   string // CHRON_EXPORT_S3_BUCKET (enables S3 when set)
	ExportS3Endpoint string // CHRON_EXPORT_S3_ENDPOINT (custom endpoint for MinIO)
	ExportS3Region   string // CHRON_EXPORT_S3_REGION (default "us-east-1")
	ExportS3Prefix   string // CHRON_EXPORT_S3_PREFIX (default "chronicle")
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:      os.Getenv("CHRON_DATABASE_URL"),
		ExportS3Bucket:   os.Getenv("CHRON_EXPORT_S3_BUCKET"),
		ExportS3Endpoint: os.Getenv("CHRON_EXPORT_S3_ENDPOINT"),
		ExportS3Region:   envOrDefault("CHRON_EXPORT_S3_REGION", "us-east-1"),
		ExportS3Prefix:   envOrDefault("CHRON_EXPORT_S3_PREFIX", "chronicle"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("CHRON_DATABASE_URL is required")
	}

	windowStr := envOrDefault("CHRON_ATTRIBUTION_WINDOW", "24h")
	d, err := time.ParseDuration(windowStr)
	if err != nil {
		return nil, fmt.Errorf("CHRON_ATTRIBUTION_WINDOW: %w", err)
	}
	c.AttributionWindow = d

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
