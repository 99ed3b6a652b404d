package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vaxtrace/vaxsync/internal/flagx"
	"github.com/vaxtrace/vaxsync/internal/timex"
)

// FileConfig is the on-disk form of Config. Durations accept "90s" as well
// as integer nanoseconds.
type FileConfig struct {
	Address         string         `json:"address" yaml:"address"`
	Storage         string         `json:"storage" yaml:"storage"`
	DatabaseDSN     string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey       string         `json:"secret_key" yaml:"secret_key"`
	TokenValidity   timex.Duration `json:"token_validity" yaml:"token_validity"`
	Archive         string         `json:"archive" yaml:"archive"`
	S3RootUser      string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword  string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket        string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region        string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint  string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	S3Prefix        string         `json:"s3_prefix" yaml:"s3_prefix"`
	ShutdownTimeout timex.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogFormat       string         `json:"log_format" yaml:"log_format"`
	LogLevel        string         `json:"log_level" yaml:"log_level"`
}

func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc FileConfig
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		err = yaml.Unmarshal(data, &fc)
	} else {
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *FileConfig) apply(cfg *Config) {
	for dst, v := range map[*string]string{
		&cfg.Address:        fc.Address,
		&cfg.Storage:        fc.Storage,
		&cfg.DatabaseDSN:    fc.DatabaseDSN,
		&cfg.SecretKey:      fc.SecretKey,
		&cfg.Archive:        fc.Archive,
		&cfg.S3RootUser:     fc.S3RootUser,
		&cfg.S3RootPassword: fc.S3RootPassword,
		&cfg.S3Bucket:       fc.S3Bucket,
		&cfg.S3Region:       fc.S3Region,
		&cfg.S3BaseEndpoint: fc.S3BaseEndpoint,
		&cfg.S3Prefix:       fc.S3Prefix,
		&cfg.LogFormat:      fc.LogFormat,
		&cfg.LogLevel:       fc.LogLevel,
	} {
		if v != "" {
			*dst = v
		}
	}
	if fc.TokenValidity.Duration > 0 {
		cfg.TokenValidity = fc.TokenValidity.Duration
	}
	if fc.ShutdownTimeout.Duration > 0 {
		cfg.ShutdownTimeout = fc.ShutdownTimeout.Duration
	}
}
