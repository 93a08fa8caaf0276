// Command sqsd runs the search engine as a long-lived REST daemon:
// submit runs, poll their status, or analyze a single configuration
// without a search, all over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/latticeforge/sqs/pkg/api/rest"
	"github.com/latticeforge/sqs/pkg/config"
	"github.com/latticeforge/sqs/pkg/observability"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version and exit")
		showHelp    = flag.Bool("help", false, "show help and exit")
		host        = flag.String("host", "", "server host (overrides config/env)")
		port        = flag.Int("port", 0, "server port (overrides config/env)")
		logLevel    = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("sqsd v%s (commit: %s)\n", version, commit)
		os.Exit(0)
	}
	if *showHelp {
		showUsage()
		os.Exit(0)
	}

	logger := observability.NewLogger(observability.ParseLogLevel(*logLevel), os.Stdout)
	observability.SetGlobalLogger(logger)

	cfg := config.LoadFromEnv()
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}

	metrics := observability.NewMetrics()
	server := rest.NewServer(*cfg, logger, metrics)

	printStartupInfo(logger, cfg)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	logger.Info("sqsd is ready")
	select {
	case sig := <-sigChan:
		logger.Infof("received signal: %v", sig)
	case err := <-errChan:
		logger.Errorf("server error: %v", err)
	}

	logger.Info("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.Errorf("error stopping server: %v", err)
	}

	logger.Info("sqsd stopped")
}

func printStartupInfo(logger *observability.Logger, cfg *config.Config) {
	logger.Info("starting sqsd", map[string]interface{}{
		"address":            cfg.Server.Address(),
		"auth_enabled":       cfg.Auth.Enabled,
		"rate_limit_enabled": cfg.RateLimit.Enabled,
		"default_atol":       cfg.Engine.DefaultAtol,
		"default_rtol":       cfg.Engine.DefaultRtol,
	})
}

func showUsage() {
	fmt.Println("sqsd - special quasirandom structure search daemon")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sqsd [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -help             Show this help message")
	fmt.Println("  -version          Show version information")
	fmt.Println("  -host HOST        Server host (default: 0.0.0.0)")
	fmt.Println("  -port PORT        Server port (default: 8980)")
	fmt.Println("  -log-level LEVEL  Log level: debug, info, warn, error (default: info)")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  SQS_HOST                        Server host")
	fmt.Println("  SQS_PORT                        Server port")
	fmt.Println("  SQS_MAX_CONNECTIONS             Max concurrent connections (not enforced)")
	fmt.Println("  SQS_REQUEST_TIMEOUT             Request timeout (e.g., 5m)")
	fmt.Println("  SQS_ENABLE_TLS                  Enable TLS (true/false)")
	fmt.Println("  SQS_TLS_CERT                    TLS certificate file")
	fmt.Println("  SQS_TLS_KEY                     TLS key file")
	fmt.Println("  SQS_DEFAULT_ATOL                Default distance tolerance (startup log only)")
	fmt.Println("  SQS_DEFAULT_RTOL                Default relative distance tolerance (startup log only)")
	fmt.Println("  SQS_DEFAULT_MAX_OUTPUT_CONFIGURATIONS  Default K-best cache size (startup log only)")
	fmt.Println("  NUM_THREADS                     Worker count when threads_per_rank is -1")
	fmt.Println("  SQS_AUTH_ENABLED                Enable JWT auth (true/false)")
	fmt.Println("  SQS_AUTH_SECRET                 JWT signing secret")
	fmt.Println("  SQS_RATE_LIMIT_ENABLED          Enable rate limiting (true/false)")
	fmt.Println("  SQS_RATE_LIMIT_RPS              Requests per second per client")
	fmt.Println("  SQS_RATE_LIMIT_BURST            Burst allowance")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  sqsd")
	fmt.Println("  sqsd -port 9090")
	fmt.Println("  SQS_PORT=9090 SQS_AUTH_ENABLED=true SQS_AUTH_SECRET=secret sqsd")
	fmt.Println()
}
