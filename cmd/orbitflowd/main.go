// Command orbitflowd is the orbitflow server process: it serves the Gin
// HTTP/WebSocket surface, hosts the T2 scheduler for cron/push/poll
// triggers, and mounts the webhook trigger's routes, all against one
// Postgres-backed persistence layer. Grounded on
// codeready-toolchain-tarsy's cmd/tarsy/main.go startup sequence (flags,
// .env, config.Initialize, database connect, service construction, router,
// serve), extended with the signal-driven graceful shutdown shown in
// kadirpekel-hector's cmd/hector/main.go ServeCmd.Run.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/orbitflow/orbitflow/internal/agent"
	"github.com/orbitflow/orbitflow/internal/api"
	"github.com/orbitflow/orbitflow/internal/config"
	"github.com/orbitflow/orbitflow/internal/database"
	"github.com/orbitflow/orbitflow/internal/dispatch"
	"github.com/orbitflow/orbitflow/internal/events"
	"github.com/orbitflow/orbitflow/internal/handler/builtin"
	"github.com/orbitflow/orbitflow/internal/memory"
	"github.com/orbitflow/orbitflow/internal/registry"
	"github.com/orbitflow/orbitflow/internal/scheduler"
	"github.com/orbitflow/orbitflow/internal/trigger/cron"
	"github.com/orbitflow/orbitflow/internal/trigger/poll"
	"github.com/orbitflow/orbitflow/internal/trigger/push"
	"github.com/orbitflow/orbitflow/internal/trigger/webhook"
	"github.com/orbitflow/orbitflow/internal/workflow"

	"github.com/redis/go-redis/v9"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: could not load %s: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()
	log.Println("connected to PostgreSQL and applied migrations")

	flows := database.NewFlowStore(pool)
	triggers := database.NewTriggerStore(pool)
	credsStore := database.NewCredsStore(pool)
	agentRuns := database.NewAgentRunStore(pool)
	eventStore := database.NewEventStore(pool)

	reg := registry.New()
	builtin.RegisterAll(reg)
	dispatcher := dispatch.New(reg)

	resolver, catalog := buildLLM(cfg)

	var shortTerm agent.ShortTermStore
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		shortTerm = memory.NewRedisBuffer(rdb, cfg.Redis.BufferTTL)
		log.Printf("using redis short-term memory at %s", cfg.Redis.Addr)
	} else {
		shortTerm = memory.NewBuffer()
		log.Println("using in-process short-term memory (no redis.addr configured)")
	}
	longTerm := memory.NewEpisodic()

	executor := agent.New(cfg, resolver, catalog, dispatcher, shortTerm, longTerm, logger)

	agentIDs := make([]string, 0, len(cfg.AgentRegistry))
	for id := range cfg.AgentRegistry {
		agentIDs = append(agentIDs, id)
	}
	builtin.RegisterSubAgents(reg, executor, agentIDs)

	helper := workflow.New(flows, dispatcher, credsStore, logger)
	publisher := events.NewPublisher(pool)
	sink := newFlowSink(helper, publisher, logger)

	cronSched := cron.New(triggers, sink, logger)

	webhooks := webhook.New(triggers, sink, sink, logger)

	pushManagers := map[string]*push.Manager{
		"drive":  push.NewManager(&push.DriveProvider{}, triggers, sink, cronSched, logger),
		"gmail":  push.NewManager(&push.GmailProvider{}, triggers, sink, cronSched, logger),
		"github": push.NewManager(&push.GitHubProvider{}, triggers, sink, cronSched, logger),
		"slack":  push.NewManager(&push.SlackProvider{}, triggers, sink, cronSched, logger),
	}

	pollInterval := cfg.Defaults.PollInterval
	if pollInterval <= 0 {
		pollInterval = 300 * time.Second
	}
	pollers := map[string]poll.Poller{
		"gmail":  &poll.GmailPoller{},
		"slack":  &poll.SlackPoller{},
		"github": &poll.GitHubPoller{},
	}

	sched := scheduler.New(cronSched, triggers, sink, pushManagers, pollers, pollInterval, logger)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}

	connManager := events.NewConnectionManager(eventStore, 5*time.Second)
	listener := events.NewNotifyListener(cfg.Database.DSN, connManager)
	if err := listener.Start(ctx); err != nil {
		log.Fatalf("failed to start event listener: %v", err)
	}
	connManager.SetListener(listener)

	addr := cfg.Server.Addr
	if addr == "" {
		addr = config.DefaultServerAddr
	}
	server := api.NewServer(addr, api.Deps{
		Pool:             pool,
		Flows:            flows,
		Triggers:         triggers,
		AgentRuns:        agentRuns,
		Helper:           helper,
		Executor:         executor,
		ConnManager:      connManager,
		CronScheduler:    cronSched,
		Webhooks:         webhooks,
		PushManagers:     pushManagers,
		Scheduler:        sched,
		AllowedWSOrigins: cfg.Server.AllowedWSOrigins,
		Logger:           logger,
	})

	stats := cfg.Stats()
	log.Printf("orbitflowd starting on %s (agents=%d llm_providers=%d)", addr, stats.Agents, stats.LLMProviders)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Println("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			log.Printf("api server stopped: %v", err)
		}
	}

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	listener.Stop(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("error during server shutdown: %v", err)
	}
}

// buildLLM wires one GRPCLLMClient per configured provider prefix into a
// ClientResolver (which itself matches models to clients by prefix), then
// derives the billing Catalog by resolving each configured agent's exact
// model name against the longest matching provider prefix. Catalog.Cost
// looks models up by their exact name, not by prefix, so the registry's
// prefix-keyed rates have to be re-keyed onto every model name actually in
// use. A model-name prefix with no matching LLMProviderRegistry entry at
// runtime simply has no resolvable client; Executor.Run reports that as an
// error rather than this function failing startup.
func buildLLM(cfg *config.Config) (*agent.ClientResolver, agent.Catalog) {
	resolver := agent.NewClientResolver()
	for prefix, provider := range cfg.LLMProviderRegistry {
		client, err := agent.NewGRPCLLMClient(provider.GRPCAddr)
		if err != nil {
			log.Printf("warning: failed to dial LLM provider %q at %s: %v", prefix, provider.GRPCAddr, err)
			continue
		}
		resolver.Register(prefix, client)
	}

	catalog := make(agent.Catalog)
	for _, agentCfg := range cfg.AgentRegistry {
		if agentCfg.Model == "" {
			continue
		}
		if _, done := catalog[agentCfg.Model]; done {
			continue
		}
		if rates, ok := bestRateMatch(cfg, agentCfg.Model); ok {
			catalog[agentCfg.Model] = rates
		}
	}
	return resolver, catalog
}

// bestRateMatch finds the longest provider prefix that matches model, so
// overlapping prefixes (e.g. "gpt-" and "gpt-4-") resolve deterministically
// to the more specific rate even though ClientResolver.Resolve itself picks
// whichever matching prefix its map iteration happens to visit first.
func bestRateMatch(cfg *config.Config, model string) (agent.ModelRates, bool) {
	var best string
	var bestRates agent.ModelRates
	found := false
	for prefix, provider := range cfg.LLMProviderRegistry {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
			bestRates = agent.ModelRates{InputRate: provider.InputRate, OutputRate: provider.OutputRate}
			found = true
		}
	}
	return bestRates, found
}
