package main

import (
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sebas/renderbridge/internal/banner"
	"github.com/sebas/renderbridge/internal/bridge"
	"github.com/sebas/renderbridge/internal/config"
	"github.com/sebas/renderbridge/internal/logging"
)

func main() {
	cfg := config.Load()

	logging.Init(os.Stdout)
	logging.SetLevel(cfg.LogLevel)

	b := bridge.New(cfg)
	defer b.Close()

	run(b, cfg)
}

func run(b *bridge.Bridge, cfg *config.Config) {
	banner.Print("renderbridge", []banner.ConfigLine{
		{Label: "bridge prefix", Value: cfg.BridgePrefix},
		{Label: "base port", Value: strconv.Itoa(cfg.BasePort)},
		{Label: "max port tries", Value: strconv.Itoa(cfg.MaxPortTries)},
		{Label: "max renderers", Value: strconv.Itoa(cfg.MaxRenderers)},
		{Label: "log level", Value: cfg.LogLevel},
	})
	slog.Info("Starting renderer bridge",
		"bridge_prefix", cfg.BridgePrefix,
		"base_port", cfg.BasePort,
		"max_renderers", cfg.MaxRenderers,
	)
	logNetworkInterfaces()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	slog.Info("Received signal, shutting down", "signal", sig)

	time.Sleep(1 * time.Second)
}

func logNetworkInterfaces() {
	interfaces, err := net.Interfaces()
	if err != nil {
		return
	}

	for _, iface := range interfaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ip, _, err := net.ParseCIDR(addr.String())
			if err != nil {
				continue
			}
			slog.Debug("[Main] network interface", "interface", iface.Name, "ip", ip.String())
		}
	}
}
