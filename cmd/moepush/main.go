package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/moetools/moepush/internal/config"
	"github.com/moetools/moepush/internal/log"
	"github.com/moetools/moepush/internal/moemail"
	"github.com/moetools/moepush/internal/server"
	"github.com/moetools/moepush/internal/wecom"
)

var version = "0.2.0"

func main() {
	app := &cli.App{
		Name:    "moepush",
		Usage:   "Relays moemail new-mail webhooks to a WeCom group bot",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to YAML config file",
				EnvVars: []string{"MOEPUSH_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "TCP address to listen on",
				EnvVars: []string{"MOEPUSH_LISTEN"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level: DEBUG, INFO, WARN, ERROR",
				EnvVars: []string{"MOEPUSH_LOG_LEVEL"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "moepush: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	if v := c.String("listen"); v != "" {
		cfg.Listen = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.LogLevel = v
	}

	log.Setup(cfg.LogLevel)
	logger := log.WithComponent("main")

	notifier := wecom.NewClient(cfg.Wecom.WebhookURL, cfg.Wecom.Secret,
		cfg.Wecom.LogPayload, log.WithComponent("wecom"))
	aliases := moemail.NewClient(cfg.Moemail.APIBaseURL,
		cfg.Moemail.DefaultExpiryHours, log.WithComponent("moemail"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting moepush", "version", version, "listen", cfg.Listen,
		"wecom_configured", cfg.Wecom.WebhookURL != "",
		"default_expiry_hours", cfg.Moemail.DefaultExpiryHours)

	srv := server.New(cfg, notifier, aliases, log.WithComponent("server"))
	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
