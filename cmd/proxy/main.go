package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hfi/llm-secret-interceptor/internal/anonymize"
	"github.com/hfi/llm-secret-interceptor/internal/audit"
	"github.com/hfi/llm-secret-interceptor/internal/cache"
	"github.com/hfi/llm-secret-interceptor/internal/config"
	"github.com/hfi/llm-secret-interceptor/internal/deanonymize"
	"github.com/hfi/llm-secret-interceptor/internal/detect"
	"github.com/hfi/llm-secret-interceptor/internal/pipeline"
	"github.com/hfi/llm-secret-interceptor/internal/protocol"
	"github.com/hfi/llm-secret-interceptor/internal/quota"
	"github.com/hfi/llm-secret-interceptor/internal/secretscan"
	"github.com/hfi/llm-secret-interceptor/internal/server"
	"github.com/hfi/llm-secret-interceptor/internal/store"
	"github.com/hfi/llm-secret-interceptor/internal/strategy"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("LLM Secret Interceptor %s\n", Version)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		fmt.Printf("Build Time: %s\n", BuildTime)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Logging.Level)
	log.Info().Str("version", Version).Str("listen", cfg.Proxy.Listen).Msg("starting proxy")

	deps, closers, err := buildDeps(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to wire dependencies")
	}
	defer closeAll(closers, log)

	p := pipeline.New(*deps)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", p.ServeHTTP)
	mux.HandleFunc("POST /v1/completions", p.ServeHTTP)
	mux.HandleFunc("GET /v1/models", pipeline.ModelsHandler)

	proxySrv := &http.Server{
		Addr:         cfg.Proxy.Listen,
		Handler:      mux,
		ReadTimeout:  cfg.Timeouts.Request(),
		WriteTimeout: 0, // streaming responses manage their own pacing
	}

	adminCfg := server.DefaultConfig()
	adminCfg.Version = Version
	if cfg.Metrics.Port != 0 {
		adminCfg.Addr = fmt.Sprintf(":%d", cfg.Metrics.Port)
	}
	if cfg.Metrics.Endpoint != "" {
		adminCfg.MetricsPath = cfg.Metrics.Endpoint
	}
	adminSrv := server.New(adminCfg)
	adminSrv.RegisterHealthCheck("upstream_configured", func() (bool, string) {
		if cfg.Proxy.UpstreamURL == "" {
			return false, "proxy.upstream_url is not configured"
		}
		return true, ""
	})

	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("addr", proxySrv.Addr).Msg("proxy listening")
		if err := proxySrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("proxy server: %w", err)
		}
	}()
	go func() {
		log.Info().Str("addr", adminSrv.Addr()).Msg("admin listening")
		if err := adminSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("admin server: %w", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("server error, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := proxySrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("proxy server shutdown error")
	}
	if err := adminSrv.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("admin server shutdown error")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

// buildDeps wires every dependency the pipeline needs from cfg, and
// returns the io.Closers that need to run at shutdown.
func buildDeps(cfg *config.Config, log zerolog.Logger) (*pipeline.Deps, []closer, error) {
	var closers []closer

	var redisClient *redis.Client
	if cfg.Storage.Type == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Address,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
	}

	mappingStore, err := buildStore(cfg, redisClient)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, mappingStore)

	allowlist, err := detect.LoadAllowlist(cfg.Detectors.AllowlistDir)
	if err != nil {
		return nil, nil, err
	}
	customRules, err := detect.LoadCustomRules(cfg.Detectors.CustomPatternPath)
	if err != nil {
		return nil, nil, err
	}
	rules := append(detect.BuiltinRules(), customRules...)
	registry := detect.New([]detect.Detector{detect.NewRegexDetector("regex", rules)}, allowlist)
	hotSwap := detect.NewHotSwap(registry)

	anonymizer := anonymize.New(hotSwap, func(seed string) *strategy.Engine {
		return strategy.NewEngine(cfg.Strategy.Assignment, cfg.Strategy.RedactMarker, seed)
	}, buildIntentDetector(cfg.Intent))
	deanonymizer := deanonymize.New(cfg.Fuzzy.Enabled, cfg.Fuzzy.BareConfidenceThreshold)

	protocols := protocol.NewRegistry()
	protocols.Register(protocol.NewOpenAIHandler())

	respCache := cache.New(cfg.Cache.MaxEntries)

	quotaStore := quota.New()
	limits, err := quota.LoadLimitsFile(cfg.Quota.LimitsPath)
	if err != nil {
		return nil, nil, err
	}
	quotaStore.SeedLimits(limits)

	rps := cfg.Quota.RateLimit
	burst := cfg.Quota.RateLimitBurst
	if !cfg.Quota.RateLimitEnabled {
		rps, burst = 0, 0
	}
	rateLimiter := quota.NewRateLimiter(rps, burst)

	scanner := secretscan.New(cfg.Compliance.Preset)

	auditLog, err := buildAudit(cfg.Logging.Audit)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, auditLog)

	return &pipeline.Deps{
		Config:       cfg,
		Client:       &http.Client{},
		Protocols:    protocols,
		Anonymizer:   anonymizer,
		Deanonymizer: deanonymizer,
		Store:        mappingStore,
		Cache:        respCache,
		Quota:        quotaStore,
		RateLimiter:  rateLimiter,
		Scanner:      scanner,
		Audit:        auditLog,
		Log:          log,
	}, closers, nil
}

func buildIntentDetector(cfg config.IntentConfig) *anonymize.IntentDetector {
	if !cfg.Enabled {
		return nil
	}
	if len(cfg.QuestionFavoringTypes) == 0 {
		return anonymize.NewIntentDetector(nil)
	}
	favoring := make(map[string]bool, len(cfg.QuestionFavoringTypes))
	for _, t := range cfg.QuestionFavoringTypes {
		favoring[strings.ToUpper(t)] = true
	}
	return anonymize.NewIntentDetector(favoring)
}

func buildStore(cfg *config.Config, redisClient *redis.Client) (store.Store, error) {
	switch cfg.Storage.Type {
	case "redis":
		if redisClient == nil {
			return nil, errors.New("storage: redis client not configured")
		}
		return store.NewRedisStore(redisClient, "llm-proxy:"), nil
	case "memory", "":
		sweepEvery := cfg.Mapping.TTL()
		if sweepEvery <= 0 {
			sweepEvery = 5 * time.Minute
		}
		return store.NewMemoryStore(sweepEvery), nil
	default:
		return nil, fmt.Errorf("storage: unknown type %q", cfg.Storage.Type)
	}
}

func buildAudit(cfg config.AuditConfig) (interface {
	Log(event *audit.Event)
	LogPIIDetected(requestID, detector, entityType string)
	LogPlaceholderAssigned(requestID string, count int)
	LogPlaceholderRestored(requestID string, count int)
	LogRequestProcessed(requestID, method, host, path string, durationMs float64)
	LogResponseProcessed(requestID, host string, durationMs float64)
	LogMappingCreated(requestID, tenantID string)
	LogMappingExpired(requestID, tenantID string)
	LogSecretScanBlocked(requestID, tenantID string, count int)
	LogError(eventType audit.EventType, requestID, host, errorMsg string)
	Close() error
}, error) {
	if !cfg.Enabled {
		return audit.NewNopLogger(), nil
	}

	level := "standard"
	if cfg.LogEntityTypes {
		level = "verbose"
	}
	return audit.NewLogger(&audit.Config{
		Enabled:               true,
		Level:                 level,
		Output:                "stdout",
		Format:                "json",
		IncludeRequestDetails: cfg.IncludeRequestPath,
	})
}

// closer is anything buildDeps needs to clean up at shutdown.
type closer interface {
	Close() error
}

func closeAll(closers []closer, log zerolog.Logger) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Error().Err(err).Msg("error during shutdown cleanup")
		}
	}
}
