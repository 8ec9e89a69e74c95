package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/revintel/insight-agent/pkg/agents"
	"github.com/revintel/insight-agent/pkg/classify"
	"github.com/revintel/insight-agent/pkg/config"
	"github.com/revintel/insight-agent/pkg/dataexec"
	"github.com/revintel/insight-agent/pkg/digest"
	"github.com/revintel/insight-agent/pkg/domain"
	"github.com/revintel/insight-agent/pkg/fusion"
	"github.com/revintel/insight-agent/pkg/graph"
	"github.com/revintel/insight-agent/pkg/llm"
	"github.com/revintel/insight-agent/pkg/modeltier"
	"github.com/revintel/insight-agent/pkg/observability"
	"github.com/revintel/insight-agent/pkg/orchestrator"
	"github.com/revintel/insight-agent/pkg/quality"
	"github.com/revintel/insight-agent/pkg/scheduler"
	"github.com/revintel/insight-agent/pkg/session"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"

	telemetry *observability.Telemetry
	metrics   *observability.Metrics
)

func main() {
	var (
		configPath = flag.String("config", "configs/default.yaml", "Path to configuration file")
		version    = flag.Bool("version", false, "Show version information")
		query      = flag.String("query", "", "One-shot analytic question")
		userID     = flag.String("user", "local", "User id for session context")
	)
	flag.Parse()

	if *version {
		fmt.Printf("Insight Agent\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		os.Exit(0)
	}

	cfg := config.LoadOrDefault(*configPath)

	ctx := context.Background()
	if err := initObservability(cfg); err != nil {
		log.Fatalf("Failed to initialize observability: %v", err)
	}
	defer shutdownObservability(ctx)

	log.Printf("Starting Insight Agent v%s (built: %s)", Version, BuildTime)

	if err := run(ctx, cfg, *query, *userID); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}

func initObservability(cfg *config.Config) error {
	telConfig := &observability.TelemetryConfig{
		ServiceName:    "insight-agent",
		ServiceVersion: Version,
		Environment:    cfg.LLM.Environment,
		OTLPEndpoint:   cfg.Observability.Tracing.Endpoint,
		PrometheusPort: cfg.Observability.Metrics.Port,
		SamplingRate:   cfg.Observability.Tracing.SamplingRate,
		EnableTracing:  cfg.Observability.Tracing.Enabled,
		EnableMetrics:  cfg.Observability.Metrics.Enabled,
	}

	var err error
	telemetry, err = observability.NewTelemetry(telConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	if cfg.Observability.Metrics.Enabled {
		metrics, err = observability.NewMetrics(telemetry.Meter())
		if err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}

		go func() {
			addr := fmt.Sprintf(":%d", cfg.Observability.Metrics.Port)
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("Metrics endpoint stopped: %v", err)
			}
		}()
	}

	return nil
}

func shutdownObservability(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}
}

func run(ctx context.Context, cfg *config.Config, query, userID string) error {
	logger := observability.NewStructuredLogger("insight").
		WithMinLevel(observability.LogLevel(strings.ToUpper(cfg.Observability.Logging.Level)))

	selector := modeltier.NewSelector(modeltier.ParseEnvironment(cfg.LLM.Environment))

	reasoner, err := buildReasoningClient(cfg, selector)
	if err != nil {
		return err
	}

	data, err := buildDataRegistry(cfg)
	if err != nil {
		return err
	}

	registry := agents.NewRegistry()
	for _, exec := range []domain.NodeExecutor{
		agents.NewDataFetchExecutor(data),
		agents.NewAnalyticsFetchExecutor(data),
		agents.NewCorrelationExecutor(reasoner, selector),
		agents.NewNarrationExecutor(reasoner, selector),
	} {
		if err := registry.Register(exec); err != nil {
			return fmt.Errorf("failed to register executor: %w", err)
		}
	}

	sessions, err := buildSessionStore(cfg)
	if err != nil {
		return err
	}
	defer sessions.Stop()

	nodeTimeout, _ := time.ParseDuration(cfg.Orchestration.NodeTimeout)
	runTimeout, _ := time.ParseDuration(cfg.Orchestration.RunTimeout)
	retryBase, _ := time.ParseDuration(cfg.Orchestration.RetryBase)
	retryMax, _ := time.ParseDuration(cfg.Orchestration.RetryMax)

	sched := scheduler.New(registry, scheduler.Options{
		MaxConcurrency: cfg.Orchestration.MaxConcurrency,
		NodeTimeout:    nodeTimeout,
		MaxRetries:     cfg.Orchestration.MaxRetries,
		RetryBase:      retryBase,
		RetryMax:       retryMax,
	}, logger.WithComponent("scheduler"), telemetry, metrics)

	engine := orchestrator.New(
		classify.New(reasoner, selector, classify.DefaultCatalog(), logger.WithComponent("classifier"), metrics),
		graph.NewBuilder(nil, logger.WithComponent("graph")),
		sched,
		fusion.New(logger.WithComponent("fusion")),
		quality.New(logger.WithComponent("quality"), metrics),
		sessions,
		orchestrator.Options{RunTimeout: runTimeout},
		logger.WithComponent("orchestrator"),
		telemetry,
		metrics,
	)
	defer engine.Drain()

	var digests *digest.Service
	if cfg.Digest.Enabled {
		frequency, err := digest.ParseFrequency(cfg.Digest.DefaultFrequency)
		if err != nil {
			return err
		}
		digests = digest.NewService(engine, printDigest, logger.WithComponent("digest"), metrics)
		if err := digests.Subscribe(digest.Subscription{UserID: userID, Frequency: frequency}); err != nil {
			return err
		}
		digests.Start()
		defer digests.Stop()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	if query != "" {
		return ask(ctx, engine, query, userID)
	}
	return repl(ctx, engine, userID)
}

func buildReasoningClient(cfg *config.Config, selector *modeltier.Selector) (domain.ReasoningClient, error) {
	timeout, _ := time.ParseDuration(cfg.LLM.Timeout)
	base := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, selector, &llm.Options{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     timeout,
	})

	healthCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := base.CheckHealth(healthCtx); err != nil {
		// The classifier and executors degrade without the model, so a
		// dead endpoint is a warning rather than a startup failure.
		log.Printf("Reasoning endpoint unreachable, running degraded: %v", err)
	}

	breaker := llm.NewBreakerClient(base, llm.DefaultBreakerSettings())
	return llm.NewInstrumentedClient(breaker, telemetry, metrics)
}

func buildDataRegistry(cfg *config.Config) (*dataexec.Registry, error) {
	registry := dataexec.NewRegistry()

	sources := map[domain.DataSource]config.SourceConfig{
		domain.SourceCRM:        cfg.Sources.CRM,
		domain.SourceWarehouse:  cfg.Sources.Warehouse,
		domain.SourceTransforms: cfg.Sources.Transforms,
	}

	for _, source := range domain.KnownSources {
		sourceCfg := sources[source]
		if !sourceCfg.Enabled {
			continue
		}

		var exec dataexec.SourcedExecutor
		if sourceCfg.BaseURL != "" {
			timeout, _ := time.ParseDuration(sourceCfg.Timeout)
			exec = dataexec.NewGatewayClient(source, sourceCfg.BaseURL, timeout)
		} else {
			exec = dataexec.NewMemoryExecutor(source, nil)
		}

		if telemetry != nil {
			exec = dataexec.NewInstrumentedExecutor(exec, telemetry, metrics)
		}
		if err := registry.Register(exec); err != nil {
			return nil, fmt.Errorf("failed to register %s executor: %w", source, err)
		}
	}

	return registry, nil
}

func buildSessionStore(cfg *config.Config) (*session.Store, error) {
	idleTTL, _ := time.ParseDuration(cfg.Session.IdleTTL)

	var kv domain.KVStore
	switch cfg.Session.StoreType {
	case "", "memory":
		kv = session.NewMemoryKV()
	case "kv", "file":
		fileKV, err := session.NewFileKV(cfg.Session.StorePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		kv = fileKV
	default:
		return nil, fmt.Errorf("unknown session store type %q", cfg.Session.StoreType)
	}

	return session.NewStore(session.Options{
		Window:  cfg.Session.Window,
		IdleTTL: idleTTL,
		KV:      kv,
	}), nil
}

func ask(ctx context.Context, engine *orchestrator.Orchestrator, text, userID string) error {
	answer, err := engine.Handle(ctx, domain.Query{
		Text:      text,
		UserID:    userID,
		Timestamp: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	printAnswer(answer)
	return nil
}

func repl(ctx context.Context, engine *orchestrator.Orchestrator, userID string) error {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Ask a question (Ctrl-D to exit):")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		if err := ask(ctx, engine, text, userID); err != nil {
			fmt.Printf("error: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

func printAnswer(answer domain.Answer) {
	fmt.Println()
	fmt.Println(answer.Text)
	for _, caveat := range answer.Caveats {
		fmt.Printf("  note: %s\n", caveat)
	}
	if len(answer.SourcesUsed) > 0 {
		labels := make([]string, len(answer.SourcesUsed))
		for i, source := range answer.SourcesUsed {
			labels[i] = string(source)
		}
		fmt.Printf("  sources: %s\n", strings.Join(labels, ", "))
	}
	fmt.Println()
}

func printDigest(userID string, answer domain.Answer) {
	fmt.Printf("\n=== Digest for %s (%s) ===\n", userID, answer.GeneratedAt.Format(time.RFC3339))
	printAnswer(answer)
}
