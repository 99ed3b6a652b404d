// Package config loads runtime configuration for the vaxsync agent and CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file selected with -c or -config; the format is
//     picked by extension (.yaml/.yml is YAML, anything else JSON).
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   proxy listen address
//	-g string   control RPC listen address
//	-r string   remote authority base URL
//	-u string   UI origin behind the proxy
//	-d string   local store file
//	-i int      online check interval (seconds)
//	-v string   cache version
//	-m string   replay mode (routed|generic)
//	-w int      replay workers
//	-l string   log level
//
// Durations in files accept "3s" or integer nanoseconds:
//
//	{
//	  "remote_base_url": "http://127.0.0.1:8081",
//	  "online_check_interval": "3s",
//	  "settle_delay": "1s"
//	}
package config
