// Command resume-exportd serves the resume export pipeline over HTTP:
// browser-rendered PDF and banner exports plus DOCX, LaTeX and JSON
// generation from the projection database.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	exporter "github.com/alnah/go-resume-exporter"
	"github.com/alnah/go-resume-exporter/sqlitesource"
)

// Version is set at build time via ldflags.
var Version = "dev"

// shutdownGrace is how long in-flight renders get to finish on shutdown.
const shutdownGrace = 15 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("resume-exportd", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to YAML config file")
	listen := flags.String("listen", "", "bind address (overrides config)")
	showVersion := flags.Bool("version", false, "print version and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Println(Version)
		return nil
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.applyEnv()
	if *listen != "" {
		cfg.Listen = *listen
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	// Error ignored: maxprocs.Set only fails on an invalid GOMAXPROCS env,
	// in which case Go runtime defaults apply and the program continues.
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		logger.Debug(fmt.Sprintf(format, args...))
	}))

	source, err := sqlitesource.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer source.Close()

	exp, err := exporter.New(source,
		exporter.WithLogger(logger),
		exporter.WithFrontendBaseURL(cfg.Frontend.BaseURL),
		exporter.WithAllowedLogoHosts(cfg.Frontend.AllowedLogoHosts...),
		exporter.WithCeiling(cfg.Render.Ceiling),
		exporter.WithQueueDepth(cfg.Render.QueueDepth),
		exporter.WithQueuePolicy(exporter.QueuePolicy(cfg.Render.Policy)),
		exporter.WithLogoWaitTimeout(time.Duration(cfg.Render.LogoWaitSeconds)*time.Second),
		exporter.WithPDFValidation(!cfg.Render.SkipPDFCheck),
		exporter.WithBrowserBin(cfg.Browser.Bin),
		exporter.WithRemoteBrowser(cfg.Browser.RemoteURL),
		exporter.WithNoSandbox(cfg.Browser.NoSandbox),
	)
	if err != nil {
		return err
	}
	defer exp.Close()

	srv := newServer(exp, logger, time.Duration(cfg.Render.TimeoutSeconds)*time.Second)
	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Listen, "version", Version)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down, draining in-flight exports")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
