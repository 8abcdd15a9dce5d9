package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/pflag"

	"github.com/dmmcquay/othello-dataset/internal/cache"
	"github.com/dmmcquay/othello-dataset/internal/config"
	"github.com/dmmcquay/othello-dataset/internal/dataset"
	"github.com/dmmcquay/othello-dataset/internal/health"
	"github.com/dmmcquay/othello-dataset/internal/logging"
	mcptools "github.com/dmmcquay/othello-dataset/internal/mcp"
	"github.com/dmmcquay/othello-dataset/internal/metrics"
	httpserver "github.com/dmmcquay/othello-dataset/internal/server"
	"github.com/dmmcquay/othello-dataset/internal/shutdown"
)

var (
	// Version information injected at build time.
	Version   string = "0.1.0"
	GitCommit string = "unknown"
	BuildTime string = "unknown"
)

const usage = `Usage: othello-dataset [convert|serve] [flags]

Commands:
  convert   convert a transcript file into a training dataset (default)
  serve     run an MCP server on stdio

Flags:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	command := "convert"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}
	if command != "convert" && command != "serve" {
		fmt.Fprintf(stderr, "Unknown command %q\n\n%s", command, usage)
		return 2
	}

	fs := pflag.NewFlagSet("othello-dataset", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	config.RegisterFlags(fs)
	configPath := fs.String("config", "", "config file (default: $OTHELLO_DATASET_CONFIG, ./config.json, ~/.othello-dataset/config.json)")
	showVersion := fs.Bool("version", false, "show version information")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "Unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return 2
	}

	if *showVersion {
		fmt.Fprintf(stdout, "othello-dataset version %s\n", Version)
		fmt.Fprintf(stdout, "Git commit: %s\n", GitCommit)
		fmt.Fprintf(stdout, "Build time: %s\n", BuildTime)
		return 0
	}

	path := *configPath
	if path == "" {
		path = config.GetConfigPath()
	}
	cfg, err := config.Load(path, fs)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	logger, logCloser := logging.NewLoggerFromConfig(&logging.Config{
		Level:   cfg.Logging.Level,
		Format:  logging.LogFormat(cfg.Logging.Format),
		Service: cfg.Server.Name,
		Version: cfg.Server.Version,
		File:    cfg.Logging.File,
		Output:  stderr,
	})

	collector := metrics.NewCollector()
	manager := shutdown.NewManager(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := manager.HandleSignals(cancel)
	defer stop()

	opts := dataset.Options{
		Charset:         cfg.Input.Charset,
		Format:          cfg.Output.Format,
		MetricsTextfile: cfg.Metrics.Textfile,
	}

	var code int
	switch command {
	case "serve":
		code = serve(ctx, cfg, logger, collector, manager, opts)
	default:
		code = convert(ctx, cfg, logger, collector, opts, stdout)
	}

	if err := manager.Shutdown(shutdown.DefaultTimeout); err != nil {
		fmt.Fprintf(stderr, "Shutdown error: %v\n", err)
	}
	// The log file outlives the manager so its final lines are kept.
	if logCloser != nil {
		if err := logCloser.Close(); err != nil {
			fmt.Fprintf(stderr, "Failed to close log file: %v\n", err)
		}
	}
	return code
}

func convert(ctx context.Context, cfg *config.Config, logger logging.ContextLogger, collector *metrics.Collector, opts dataset.Options, stdout io.Writer) int {
	converter := dataset.NewConverter(logger, collector, opts)
	res, err := converter.Convert(ctx, cfg.Input.Path, cfg.Output.Path)
	if err != nil {
		return 1
	}
	fmt.Fprintln(stdout, res.Message())
	return 0
}

func serve(ctx context.Context, cfg *config.Config, logger logging.ContextLogger, collector *metrics.Collector, manager *shutdown.Manager, opts dataset.Options) int {
	logger.Info("Starting Othello dataset MCP server version %s (commit: %s, built: %s)",
		cfg.Server.Version, GitCommit, BuildTime)

	if cfg.Metrics.Addr != "" {
		checker := health.NewChecker(logger, cfg.Server.Version, GitCommit)
		checker.RegisterCheck("input", health.FileReadable(cfg.Input.Path))
		checker.RegisterCheck("output-dir", health.DirExists(cfg.Output.Path))

		httpServer := httpserver.NewHTTPServer(cfg.Metrics.Addr, logger, checker, collector)
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP metrics server", "error", err)
			return 1
		}
		manager.Register("http-server", httpServer.Stop)
	}

	mcpServer := server.NewMCPServer(
		cfg.Server.Name,
		cfg.Server.Version,
		server.WithLogging(),
	)

	middleware := mcptools.NewMiddleware(logger, collector)
	toolsHandler := mcptools.NewToolsHandler(logger, collector, opts)
	toolsHandler.SetMiddleware(middleware)
	toolsHandler.SetCache(cache.NewTranscripts(&cfg.Cache, logger))
	toolsHandler.RegisterTools(mcpServer)

	logger.Info("Othello dataset MCP server ready")

	done := make(chan error, 1)
	go func() {
		done <- server.ServeStdio(mcpServer)
	}()

	code := 0
	select {
	case err := <-done:
		if err != nil {
			logger.Error("Server error", "error", err)
			code = 1
		}
	case <-ctx.Done():
		logger.Info("Server stopped by context cancellation")
	}

	s := collector.Snapshot()
	logger.Info("Server summary",
		"conversions", s.Conversions,
		"failed", s.FailedRuns,
		"games", s.Games,
		"rows", s.Rows,
	)
	return code
}
