package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/localcontactforms/contactform/internal/analytics"
	"github.com/localcontactforms/contactform/internal/captcha"
	"github.com/localcontactforms/contactform/internal/common/config"
	"github.com/localcontactforms/contactform/internal/common/configtypes"
	"github.com/localcontactforms/contactform/internal/common/logger"
	"github.com/localcontactforms/contactform/internal/common/metrics"
	"github.com/localcontactforms/contactform/internal/common/metricsserver"
	"github.com/localcontactforms/contactform/internal/common/redis"
	"github.com/localcontactforms/contactform/internal/common/tlslistener"
	"github.com/localcontactforms/contactform/internal/formpage"
	"github.com/localcontactforms/contactform/internal/functions"
	"github.com/localcontactforms/contactform/internal/notify"
	"github.com/localcontactforms/contactform/internal/ratelimit"
	"github.com/localcontactforms/contactform/internal/sheets"
	"github.com/localcontactforms/contactform/internal/submission"
	"github.com/localcontactforms/contactform/internal/tenant"
	"github.com/localcontactforms/contactform/internal/useragent"
)

const serverName = "ContactForm/1.0"

func main() {
	configPath := flag.String("c", "configs/form-service.yaml", "path to configuration file")
	testMode := flag.Bool("t", false, "test configuration and exit")
	envFile := flag.String("env", ".env", "dotenv file loaded before configuration")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		log.Fatalf("Failed to load %s: %v", *envFile, err)
	}

	if *testMode {
		os.Exit(runConfigTest(*configPath))
	}

	initialLogger, err := logger.NewDefaultLogger("form-service")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	initialLogger.Info("Starting Form Service", zap.String("config_path", *configPath))

	cfg, err := config.LoadFormServiceConfig(*configPath)
	if err != nil {
		initialLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	dynamicLogger, err := logger.NewLoggerWithStartupOverride(cfg.Log, "form-service")
	if err != nil {
		initialLogger.Fatal("Failed to create configured logger", zap.Error(err))
	}
	defer dynamicLogger.Sync()
	lg := dynamicLogger.Logger

	submissionLoc, err := time.LoadLocation(cfg.Submission.Timezone)
	if err != nil {
		lg.Fatal("Invalid submission timezone", zap.Error(err))
	}

	pm := metrics.NewPrometheusMetrics(cfg.Metrics.Namespace, metrics.SubsystemForm, lg)
	metricsServer, err := metricsserver.Start(cfg.Metrics, pm, serverName, lg)
	if err != nil {
		lg.Fatal("Failed to start metrics server", zap.Error(err))
	}

	googleClient, err := sheets.NewGoogleClient(context.Background(), cfg.Sheets, lg)
	if err != nil {
		lg.Fatal("Failed to create spreadsheet client", zap.Error(err))
	}
	sheetsClient := sheets.Instrument(googleClient, pm)

	resolver := tenant.NewResolver(sheetsClient, tenant.Options{
		MasterSheetID:    cfg.Sheets.MasterSheetID,
		MasterRange:      cfg.Sheets.MasterRange,
		ConfigRange:      cfg.Sheets.ConfigRange,
		RecaptchaSiteKey: cfg.Captcha.SiteKey,
	}, lg)

	// Rate limiting is off unless Redis is configured.
	var checks []functions.ReadinessCheck
	limiter := ratelimit.NewLimiter(nil, lg)
	var redisClient *redis.Client
	if cfg.Redis != nil && cfg.Redis.Addr != "" {
		redisClient, err = redis.NewClient(cfg.Redis, lg)
		if err != nil {
			lg.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		limiter = ratelimit.NewLimiter(redisClient, lg)
		checks = append(checks, functions.ReadinessCheck{Name: "Redis", Check: redisClient.HealthCheck})
	}

	classifier, err := useragent.NewClassifier(nil)
	if err != nil {
		lg.Fatal("Failed to build user agent classifier", zap.Error(err))
	}

	mailer := notify.NewMailer(cfg.SMTP, lg)
	if !mailer.Enabled() {
		lg.Warn("SMTP not configured, submission emails are disabled")
	}

	service := submission.NewService(submission.Deps{
		Sheets:     sheetsClient,
		Tenants:    resolver,
		Verifier:   captcha.NewVerifier(cfg.Captcha, lg),
		Notifier:   mailer,
		Limiter:    limiter,
		Classifier: classifier,
		Metrics:    pm,
	}, submission.Options{
		SubmissionsTab:  cfg.Sheets.SubmissionsTab,
		TrackingSheetID: cfg.Sheets.TrackingSheetID,
		TrackingTab:     cfg.Sheets.TrackingTab,
		Location:        submissionLoc,
	}, lg)

	recorder := analytics.NewRecorder(sheetsClient, cfg.Analytics.SheetID, cfg.Analytics.Tab, lg)
	timeout := cfg.Server.Timeout.ToDuration()

	router := functions.NewRouter(lg)
	functions.NewHandlers(resolver, service, recorder, cfg.ClientIP.Headers, timeout, lg).Register(router)
	formpage.NewHandler(resolver, formpage.Options{
		PathPrefix: config.DefaultPathPrefix,
		SubmitURL:  functions.PathSubmitForm,
		Timeout:    timeout,
	}, lg).Register(router)
	srv := functions.NewServer(router, pm, checks, lg)

	var tlsListener net.Listener
	if cfg.Server.TLS.Enabled {
		tlsListener, err = tlslistener.Listen(resolveTLSPaths(cfg.Server.TLS, *configPath))
		if err != nil {
			lg.Fatal("Failed to create TLS listener", zap.Error(err))
		}
	}

	serverErrors := make(chan error, 2)
	servers := []*serverLifecycle{{
		server:  newFastHTTPServer(srv.HandleRequest, timeout),
		name:    "HTTP",
		address: cfg.Server.Listen,
		logger:  lg,
	}}
	if tlsListener != nil {
		servers = append(servers, &serverLifecycle{
			server:   newFastHTTPServer(srv.HandleRequest, timeout),
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

	lg.Info("Form Service started", zap.String("http_addr", cfg.Server.Listen))
	dynamicLogger.SwitchToConfiguredLevel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		dynamicLogger.EnsureInfoLevelForShutdown()
		lg.Info("Shutting down Form Service...")
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

	metricsserver.Shutdown(shutdownCtx, metricsServer, lg)

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			lg.Error("Failed to close Redis client", zap.Error(err))
		}
	}

	lg.Info("Form Service stopped")
}

func newFastHTTPServer(handler fasthttp.RequestHandler, timeout time.Duration) *fasthttp.Server {
	return &fasthttp.Server{
		Handler:                      handler,
		Name:                         serverName,
		ReadTimeout:                  timeout,
		WriteTimeout:                 timeout,
		IdleTimeout:                  timeout,
		MaxRequestBodySize:           1 << 20,
		DisablePreParseMultipartForm: true,
		NoDefaultServerHeader:        true,
	}
}

type serverLifecycle struct {
	server   *fasthttp.Server
	listener net.Listener // nil for HTTP, set for HTTPS
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

// resolveTLSPaths makes relative certificate paths relative to the config file.
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

func runConfigTest(configPath string) int {
	cfg, err := config.LoadFormServiceConfig(configPath)
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
	if cfg.Redis == nil {
		fmt.Println("note: redis not configured, per-tenant rate limits are disabled")
	}
	if !cfg.SMTP.Enabled {
		fmt.Println("note: smtp not configured, submission emails are disabled")
	}
	fmt.Println("configuration test is successful")
	return 0
}
