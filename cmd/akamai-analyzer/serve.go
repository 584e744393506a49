package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"akamai-analyzer/internal/analysis"
	"akamai-analyzer/internal/api"
	"akamai-analyzer/internal/audit"
	"akamai-analyzer/internal/config"
	"akamai-analyzer/internal/llm"
	"akamai-analyzer/internal/logging"
	redisdb "akamai-analyzer/internal/redis"
	"akamai-analyzer/internal/rules"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web application",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logging.Setup(level, cfg.Log.Format, nil)
	log := logging.For("Main")

	ttl := time.Duration(cfg.Server.SessionTTLMinutes) * time.Minute
	var store rules.Store
	if rdb := redisdb.NewClient(cfg); rdb != nil {
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		store = rules.NewRedisStore(rdb, ttl)
		log.WithField("addr", cfg.Redis.Addr).Info("custom rules stored in redis")
	} else {
		store = rules.NewMemoryStore(ttl)
		log.Info("custom rules stored in memory")
	}

	sink, err := audit.Open(cfg)
	if err != nil {
		return fmt.Errorf("audit init error: %w", err)
	}

	providers, err := llm.FromConfig(cfg.LLM.Providers, llm.Options{
		Timeout: time.Duration(cfg.LLM.RequestTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("provider catalogue error: %w", err)
	}
	for _, p := range providers.List() {
		log.WithField("provider", p.Name).WithField("kind", p.Kind).WithField("model", p.Model).Info("provider registered")
	}

	r := api.SetupRouter(cfg, &api.Services{
		Analyzer: analysis.New(providers, sink),
		Rules:    store,
		Audit:    sink,
	})
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Infof("Starting server on %s%s", addr, cfg.Server.Subpath)
	if err := r.Run(addr); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
