package config

import (
	"time"
)

// Config holds runtime settings for the agent and the foreground CLI.
type Config struct {
	ProxyAddr     string
	ControlAddr   string
	RemoteBaseURL string
	UpstreamURL   string
	DataPath      string

	CacheVersion  string
	DynamicPrefix string
	OfflinePage   string
	StaticAssets  []string

	OnlineCheckInterval time.Duration
	SettleDelay         time.Duration
	RequestTimeout      time.Duration

	ReplayMode    string
	ReplayWorkers int

	LogFormat string
	LogLevel  string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ProxyAddr = "127.0.0.1:8080"
	c.ControlAddr = "127.0.0.1:50061"
	c.RemoteBaseURL = "http://127.0.0.1:8081"
	c.UpstreamURL = "http://127.0.0.1:3000"
	c.DataPath = "vaxsync.db"
	c.CacheVersion = "v1"
	c.DynamicPrefix = "/api/"
	c.OfflinePage = "/offline.html"
	c.StaticAssets = []string{"/", "/auth/login", "/manifest.json", "/offline.html"}
	c.OnlineCheckInterval = 3 * time.Second
	c.SettleDelay = 1 * time.Second
	c.RequestTimeout = 10 * time.Second
	c.ReplayMode = "routed"
	c.ReplayWorkers = 1
	c.LogFormat = "auto"
	c.LogLevel = "info"
}

// Load builds a Config from defaults, then the file named by -c/-config in
// args (if any), then the flags in args.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
