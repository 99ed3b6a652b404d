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

// FileConfig is a DTO used exclusively for decoding config files. Empty
// fields leave the current value alone.
type FileConfig struct {
	ProxyAddr           string         `json:"proxy_addr" yaml:"proxy_addr"`
	ControlAddr         string         `json:"control_addr" yaml:"control_addr"`
	RemoteBaseURL       string         `json:"remote_base_url" yaml:"remote_base_url"`
	UpstreamURL         string         `json:"upstream_url" yaml:"upstream_url"`
	DataPath            string         `json:"data_path" yaml:"data_path"`
	CacheVersion        string         `json:"cache_version" yaml:"cache_version"`
	DynamicPrefix       string         `json:"dynamic_prefix" yaml:"dynamic_prefix"`
	OfflinePage         string         `json:"offline_page" yaml:"offline_page"`
	StaticAssets        []string       `json:"static_assets" yaml:"static_assets"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	SettleDelay         timex.Duration `json:"settle_delay" yaml:"settle_delay"`
	RequestTimeout      timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	ReplayMode          string         `json:"replay_mode" yaml:"replay_mode"`
	ReplayWorkers       int            `json:"replay_workers" yaml:"replay_workers"`
	LogFormat           string         `json:"log_format" yaml:"log_format"`
	LogLevel            string         `json:"log_level" yaml:"log_level"`
}

func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}
	return LoadFile(cfg, path)
}

// LoadFile overlays cfg with the JSON or YAML file at path.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.ProxyAddr, fc.ProxyAddr)
	setString(&cfg.ControlAddr, fc.ControlAddr)
	setString(&cfg.RemoteBaseURL, fc.RemoteBaseURL)
	setString(&cfg.UpstreamURL, fc.UpstreamURL)
	setString(&cfg.DataPath, fc.DataPath)
	setString(&cfg.CacheVersion, fc.CacheVersion)
	setString(&cfg.DynamicPrefix, fc.DynamicPrefix)
	setString(&cfg.OfflinePage, fc.OfflinePage)
	setString(&cfg.ReplayMode, fc.ReplayMode)
	setString(&cfg.LogFormat, fc.LogFormat)
	setString(&cfg.LogLevel, fc.LogLevel)

	if fc.StaticAssets != nil {
		cfg.StaticAssets = fc.StaticAssets
	}
	if fc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
	if fc.SettleDelay.Duration > 0 {
		cfg.SettleDelay = fc.SettleDelay.Duration
	}
	if fc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.ReplayWorkers > 0 {
		cfg.ReplayWorkers = fc.ReplayWorkers
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
