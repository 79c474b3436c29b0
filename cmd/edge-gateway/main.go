package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/localcontactforms/contactform/internal/analytics"
	"github.com/localcontactforms/contactform/internal/common/config"
	"github.com/localcontactforms/contactform/internal/common/configtypes"
	"github.com/localcontactforms/contactform/internal/common/logger"
	"github.com/localcontactforms/contactform/internal/common/metrics"
	"github.com/localcontactforms/contactform/internal/common/metricsserver"
	"github.com/localcontactforms/contactform/internal/common/tlslistener"
	"github.com/localcontactforms/contactform/internal/edge/configclient"
	"github.com/localcontactforms/contactform/internal/edge/configtest"
	"github.com/localcontactforms/contactform/internal/edge/proxy"
	"github.com/localcontactforms/contactform/internal/edge/server"
	"github.com/localcontactforms/contactform/internal/metatags"
	"github.com/localcontactforms/contactform/internal/useragent"
)

const serverName = "EdgeGateway/1.0"

func main() {
	configPath := flag.String("c", "configs/edge-gateway.yaml", "path to configuration file")
	testMode := flag.Bool("t", false, "test configuration and exit; an optional tenant id previews its meta tags")
	envFile := flag.String("env", ".env", "dotenv file loaded before configuration")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		log.Fatalf("Failed to load %s: %v", *envFile, err)
	}

	if *testMode {
		var tenantID string
		if flag.NArg() > 0 {
			tenantID = flag.Arg(0)
		}
		os.Exit(runConfigTest(*configPath, tenantID))
	}

	initialLogger, err := logger.NewDefaultLogger("edge-gateway")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	initialLogger.Info("Starting Edge Gateway", zap.String("config_path", *configPath))

	cfg, err := config.LoadEdgeConfig(*configPath)
	if err != nil {
		initialLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	dynamicLogger, err := logger.NewLoggerWithStartupOverride(cfg.Log, "edge-gateway")
	if err != nil {
		initialLogger.Fatal("Failed to create configured logger", zap.Error(err))
	}
	defer dynamicLogger.Sync()
	lg := dynamicLogger.Logger

	pm := metrics.NewPrometheusMetrics(cfg.Metrics.Namespace, metrics.SubsystemEdge, lg)
	metricsServer, err := metricsserver.Start(cfg.Metrics, pm, serverName, lg)
	if err != nil {
		lg.Fatal("Failed to start metrics server", zap.Error(err))
	}

	origin, err := proxy.New(cfg.Origin, pm, lg)
	if err != nil {
		lg.Fatal("Failed to create origin proxy", zap.Error(err))
	}

	deps := server.Deps{
		Origin:   origin,
		Configs:  newConfigClient(cfg, pm, lg),
		Injector: newInjector(cfg),
		Metrics:  pm,
	}

	if cfg.Beacon.Enabled {
		deps.Beacon, deps.Emitter, err = newBeacon(cfg, pm, lg)
		if err != nil {
			lg.Fatal("Failed to set up page view beacon", zap.Error(err))
		}
	}

	edge := server.NewServer(deps, server.Options{
		DefaultTenantID: cfg.DefaultTenantID,
		PathPrefix:      cfg.MetaTags.PathPrefix,
		LocalHosts:      cfg.MetaTags.LocalHosts,
		RewriteEnabled:  cfg.MetaTags.IsEnabled(),
		ConfigTimeout:   cfg.Origin.Timeout.ToDuration(),
	}, lg)

	timeout := cfg.Server.Timeout.ToDuration()

	var tlsListener net.Listener
	if cfg.Server.TLS.Enabled {
		tlsListener, err = tlslistener.Listen(resolveTLSPaths(cfg.Server.TLS, *configPath))
		if err != nil {
			lg.Fatal("Failed to create TLS listener", zap.Error(err))
		}
	}

	serverErrors := make(chan error, 2)
	servers := []*serverLifecycle{{
		server:  newFastHTTPServer(edge.HandleRequest, timeout),
		name:    "HTTP",
		address: cfg.Server.Listen,
		logger:  lg,
	}}
	if tlsListener != nil {
		servers = append(servers, &serverLifecycle{
			server:   newFastHTTPServer(edge.HandleRequest, timeout),
			listener: tlsListener,
			name:     "HTTPS",
			address:  cfg.Server.TLS.Listen,
			logger:   lg,
		})
	}
	for _, s := range servers {
		s.Start(serverErrors)
	}

	time.Sleep(100 * time.Millisecond)
	select {
	case err := <-serverErrors:
		lg.Fatal("Server failed to start", zap.Error(err))
	default:
	}

	lg.Info("Edge Gateway started",
		zap.String("http_addr", cfg.Server.Listen),
		zap.String("origin", origin.Origin()),
		zap.Bool("meta_tags", cfg.MetaTags.IsEnabled()),
		zap.Bool("beacon", cfg.Beacon.Enabled))
	dynamicLogger.SwitchToConfiguredLevel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		dynamicLogger.EnsureInfoLevelForShutdown()
		lg.Info("Shutting down Edge Gateway...")
	case err := <-serverErrors:
		dynamicLogger.EnsureInfoLevelForShutdown()
		lg.Error("Server failed, initiating shutdown", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(s *serverLifecycle) {
			defer wg.Done()
			_ = s.Shutdown(shutdownCtx)
		}(s)
	}
	wg.Wait()
	lg.Info("Public servers shutdown complete")

	// Drains queued page views.
	if err := edge.Shutdown(); err != nil {
		lg.Error("Failed to close event emitters", zap.Error(err))
	}

	metricsserver.Shutdown(shutdownCtx, metricsServer, lg)

	lg.Info("Edge Gateway stopped")
}

func newConfigClient(cfg *configtypes.EdgeConfig, observer configclient.Observer, lg *zap.Logger) *configclient.Client {
	return configclient.New(cfg.Origin.URL, cfg.Origin.ConfigPath, cfg.Origin.Timeout.ToDuration(), observer, lg)
}

func newInjector(cfg *configtypes.EdgeConfig) *metatags.Injector {
	return metatags.NewInjector(metatags.Options{
		TwitterDescriptionSource: cfg.MetaTags.TwitterDescriptionSource,
	})
}

func newBeacon(cfg *configtypes.EdgeConfig, pm *metrics.PrometheusMetrics, lg *zap.Logger) (*analytics.Builder, analytics.Emitter, error) {
	loc, err := time.LoadLocation(cfg.Beacon.Timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("beacon timezone: %w", err)
	}

	classifier, err := useragent.NewClassifier(cfg.Beacon.BotPatterns)
	if err != nil {
		return nil, nil, fmt.Errorf("bot patterns: %w", err)
	}

	builder, err := analytics.NewBuilder(analytics.BuilderOptions{
		Location:        loc,
		SkipPaths:       cfg.Beacon.SkipPaths,
		ClientIPHeaders: cfg.ClientIP.Headers,
		PathPrefix:      cfg.MetaTags.PathPrefix,
	}, classifier)
	if err != nil {
		return nil, nil, err
	}

	emitters := []analytics.Emitter{
		analytics.NewHTTPEmitter(cfg.Beacon.Endpoint, cfg.Beacon.Timeout.ToDuration(), pm, lg),
	}
	if cfg.EventLogging != nil && cfg.EventLogging.File.Enabled {
		fileEmitter, err := analytics.NewFileEmitter(cfg.EventLogging.File, lg)
		if err != nil {
			return nil, nil, fmt.Errorf("event log: %w", err)
		}
		emitters = append(emitters, fileEmitter)
	}

	return builder, analytics.NewMultiEmitter(emitters...), nil
}

func newFastHTTPServer(handler fasthttp.RequestHandler, timeout time.Duration) *fasthttp.Server {
	return &fasthttp.Server{
		Handler:                      handler,
		Name:                         serverName,
		ReadTimeout:                  timeout,
		WriteTimeout:                 timeout,
		IdleTimeout:                  timeout,
		DisablePreParseMultipartForm: true,
		NoDefaultServerHeader:        true,
		NoDefaultDate:                true,
	}
}

type serverLifecycle struct {
	server   *fasthttp.Server
	listener net.Listener // nil for HTTP (uses ListenAndServe), set for HTTPS
	name     string
	address  string
	logger   *zap.Logger
}

func (s *serverLifecycle) Start(errChan chan<- error) {
	go func() {
		var err error
		if s.listener != nil {
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe(s.address)
		}
		if err != nil {
			s.logger.Error("Server error", zap.String("name", s.name), zap.Error(err))
			errChan <- fmt.Errorf("%s server failed: %w", s.name, err)
		}
	}()
	s.logger.Info("Server started", zap.String("name", s.name), zap.String("address", s.address))
}

func (s *serverLifecycle) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server", zap.String("name", s.name))
	err := s.server.ShutdownWithContext(ctx)
	if err != nil {
		s.logger.Error("Server shutdown error", zap.String("name", s.name), zap.Error(err))
	}
	return err
}

func resolveTLSPaths(t configtypes.TLSConfig, configPath string) configtypes.TLSConfig {
	dir := filepath.Dir(configPath)
	if t.CertFile != "" && !filepath.IsAbs(t.CertFile) {
		t.CertFile = filepath.Join(dir, t.CertFile)
	}
	if t.KeyFile != "" && !filepath.IsAbs(t.KeyFile) {
		t.KeyFile = filepath.Join(dir, t.KeyFile)
	}
	return t
}

// runConfigTest validates the configuration. With a tenant id it also
// fetches that tenant's config from the origin and prints the meta tags the
// edge would inject.
func runConfigTest(configPath, tenantID string) int {
	cfg, err := config.LoadEdgeConfig(configPath)
	if err != nil {
		fmt.Println("Configuration validation FAILED:")
		var joined interface{ Unwrap() []error }
		if errors.As(err, &joined) {
			for _, e := range joined.Unwrap() {
				fmt.Printf("- %v\n", e)
			}
		} else {
			fmt.Printf("- %v\n", err)
		}
		return 1
	}

	fmt.Printf("configuration file %s syntax is ok\n", configPath)
	fmt.Println("configuration test is successful")

	if tenantID == "" {
		return 0
	}

	fetcher := newConfigClient(cfg, nil, zap.NewNop())
	pageURL := cfg.Origin.URL + "/?id=" + url.QueryEscape(tenantID)
	result, err := configtest.Preview(context.Background(), fetcher, newInjector(cfg), tenantID, pageURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nTenant preview error: %v\n", err)
		return 1
	}
	fmt.Println()
	configtest.PrintPreview(os.Stdout, result)
	return 0
}
