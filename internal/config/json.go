package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/VivreleHpi/crohn-companion-app/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Durations accept
// strings such as "15m" or integer nanoseconds.
type JsonConfig struct {
	Backend        string         `json:"backend"`
	DatabaseDSN    string         `json:"database_dsn"`
	JWTSecret      string         `json:"jwt_secret"`
	TokenFile      string         `json:"token_file"`
	Timezone       string         `json:"timezone"`
	LogLevel       string         `json:"log_level"`
	S3AccessKey    string         `json:"s3_access_key"`
	S3SecretKey    string         `json:"s3_secret_key"`
	S3Bucket       string         `json:"s3_bucket"`
	S3Region       string         `json:"s3_region"`
	S3BaseEndpoint string         `json:"s3_base_endpoint"`
	ExportLinkTTL  timex.Duration `json:"export_link_ttl"`
}

// parseJSON overlays the non-empty fields of path onto cfg. An empty path
// loads nothing.
func parseJSON(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Backend, c.Backend)
	set(&cfg.DatabaseDSN, c.DatabaseDSN)
	set(&cfg.JWTSecret, c.JWTSecret)
	set(&cfg.TokenFile, c.TokenFile)
	set(&cfg.Timezone, c.Timezone)
	set(&cfg.LogLevel, c.LogLevel)
	set(&cfg.S3AccessKey, c.S3AccessKey)
	set(&cfg.S3SecretKey, c.S3SecretKey)
	set(&cfg.S3Bucket, c.S3Bucket)
	set(&cfg.S3Region, c.S3Region)
	set(&cfg.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.ExportLinkTTL.Duration > 0 {
		cfg.ExportLinkTTL = c.ExportLinkTTL.Duration
	}
	return nil
}
