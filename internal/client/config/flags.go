package config

import (
	"flag"
	"io"
	"time"

	"github.com/vaxtrace/vaxsync/internal/flagx"
)

// parseFlags overlays cfg with the short flags found in args. Flags owned by
// other layers are filtered out first with flagx.FilterArgs.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-r", "-u", "-d", "-i", "-v", "-m", "-w", "-l"})

	fs := flag.NewFlagSet("agent", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ProxyAddr, "a", cfg.ProxyAddr, "proxy listen address")
	fs.StringVar(&cfg.ControlAddr, "g", cfg.ControlAddr, "control RPC listen address")
	fs.StringVar(&cfg.RemoteBaseURL, "r", cfg.RemoteBaseURL, "remote authority base URL")
	fs.StringVar(&cfg.UpstreamURL, "u", cfg.UpstreamURL, "UI origin behind the proxy")
	fs.StringVar(&cfg.DataPath, "d", cfg.DataPath, "local store file")
	interval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.CacheVersion, "v", cfg.CacheVersion, "cache version")
	fs.StringVar(&cfg.ReplayMode, "m", cfg.ReplayMode, "replay mode (routed|generic)")
	fs.IntVar(&cfg.ReplayWorkers, "w", cfg.ReplayWorkers, "replay workers")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.OnlineCheckInterval = time.Duration(*interval) * time.Second
	return nil
}
