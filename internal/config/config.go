// Package config loads bridge configuration from command line flags and
// environment variables.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
)

// Config holds the audio-bridge configuration.
type Config struct {
	LogLevel string

	// HTTP audio server settings
	BridgePrefix  string // URL path prefix, e.g. "/bridge/"
	BasePort      int    // first port tried for a stream's listener
	MaxPortTries  int    // MAX_PLAYER: number of sequential ports to try
	HeadBufSize   int    // HEAD_SIZE
	TailBufSize   int    // TAIL_SIZE, only allocated for tail-dialect clients
	MaxBlock      int    // MAX_BLOCK, per-iteration read size
	MaxChunkSize  int    // MAX_CHUNK_SIZE, cap on one chunked frame
	PollInterval  int    // loop poll timeout in milliseconds
	ICYEnabled    bool
	ICYInterval   int // ICY_INTERVAL
	ForcedMIMEs   []string

	// Device registry settings
	MaxRenderers int

	ServerName string
}

// Load builds a Config from flags, then applies environment overrides.
func Load() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.LogLevel, "loglevel", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.BridgePrefix, "bridge-prefix", "/bridge/", "URL path prefix for streamed tracks")
	flag.IntVar(&cfg.BasePort, "base-port", 9000, "first port tried for a stream listener")
	flag.IntVar(&cfg.MaxPortTries, "max-port-tries", 16, "number of sequential ports tried per stream")
	flag.IntVar(&cfg.HeadBufSize, "head-buf", 64*1024, "head buffer size in bytes")
	flag.IntVar(&cfg.TailBufSize, "tail-buf", 2*1024*1024, "tail ring size in bytes")
	flag.IntVar(&cfg.MaxBlock, "max-block", 32*1024, "max bytes read from the output buffer per iteration")
	flag.IntVar(&cfg.MaxChunkSize, "max-chunk", 256*1024, "max bytes per chunked-transfer frame")
	flag.IntVar(&cfg.PollInterval, "poll-ms", 50, "streaming loop poll interval in milliseconds")
	flag.BoolVar(&cfg.ICYEnabled, "icy", true, "enable ICY metadata for live MP3/AAC streams")
	flag.IntVar(&cfg.ICYInterval, "icy-interval", 32000, "ICY metadata interval in bytes")
	flag.IntVar(&cfg.MaxRenderers, "max-renderers", 32, "device registry capacity")
	flag.StringVar(&cfg.ServerName, "server-name", "renderbridge", "value of the Server response header")

	var forced string
	flag.StringVar(&forced, "forced-mime", "", "forced-accepted MIME types (comma-separated)")

	flag.Parse()

	cfg.ForcedMIMEs = parseList(forced)

	if v := os.Getenv("LOGLEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("BRIDGE_PREFIX"); v != "" {
		cfg.BridgePrefix = v
	}
	if v := os.Getenv("BASE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.BasePort = p
		}
	}
	if v := os.Getenv("FORCED_MIME"); v != "" {
		cfg.ForcedMIMEs = parseList(v)
	}
	if v := os.Getenv("ICY"); v != "" {
		cfg.ICYEnabled = v == "1" || strings.EqualFold(v, "true")
	}

	return cfg
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
