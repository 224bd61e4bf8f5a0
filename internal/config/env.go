package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "CROHNLOG_"

// parseEnv loads envFile (when present) into the process environment without
// overriding variables already set, then reads CROHNLOG_* variables.
func parseEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	strs := map[string]*string{
		"BACKEND":       &cfg.Backend,
		"DATABASE_DSN":  &cfg.DatabaseDSN,
		"JWT_SECRET":    &cfg.JWTSecret,
		"TOKEN_FILE":    &cfg.TokenFile,
		"TIMEZONE":      &cfg.Timezone,
		"LOG_LEVEL":     &cfg.LogLevel,
		"S3_ACCESS_KEY": &cfg.S3AccessKey,
		"S3_SECRET_KEY": &cfg.S3SecretKey,
		"S3_BUCKET":     &cfg.S3Bucket,
		"S3_REGION":     &cfg.S3Region,
		"S3_ENDPOINT":   &cfg.S3BaseEndpoint,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv(envPrefix + "EXPORT_LINK_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sEXPORT_LINK_TTL: %w", envPrefix, err)
		}
		cfg.ExportLinkTTL = d
	}
	return nil
}
