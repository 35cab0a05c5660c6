// Command recursum summarizes documents of any length by recursive
// chunk-and-reduce. It runs one-shot from the command line or serves the
// same operations over MCP stdio or HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/localrivet/recursum"
	"github.com/localrivet/recursum/internal/api"
	"github.com/localrivet/recursum/internal/config"
	"github.com/localrivet/recursum/internal/errortypes"
	"github.com/localrivet/recursum/internal/reducer"
	"github.com/localrivet/recursum/internal/server"
)

const usage = `usage: recursum <command> [flags]

commands:
  summarize    summarize a document file and print the result as JSON
  serve-mcp    serve the summarization tools over MCP stdio
  serve-http   serve the HTTP API
  init-config  write a default configuration file
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "summarize":
		err = runSummarize(ctx, args)
	case "serve-mcp":
		err = runServeMCP(ctx, args)
	case "serve-http":
		err = runServeHTTP(ctx, args)
	case "init-config":
		err = runInitConfig(args)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		errortypes.LogError(slog.Default(), err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger and service. Logs go
// to stderr because stdout carries results and the MCP stream.
func setup(ctx context.Context, configPath, provider string) (*recursum.Service, *slog.Logger, error) {
	cfg, err := config.LoadConfigWithPath(configPath)
	if err != nil {
		return nil, nil, err
	}
	if provider != "" {
		cfg.Summarizer.Provider = provider
	}

	log, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		return nil, nil, errortypes.ConfigError(err, "invalid logging configuration")
	}
	slog.SetDefault(log)

	svc, err := recursum.NewService(ctx, recursum.ServiceOptions{Config: cfg, Logger: log})
	if err != nil {
		return nil, nil, err
	}
	return svc, log, nil
}

func runSummarize(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("summarize", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultConfigFilename, "configuration file")
	file := fs.String("file", "", "document to summarize (txt, md, csv, html, pdf, docx)")
	provider := fs.String("provider", "", "override the configured provider")
	model := fs.String("model", "", "override the configured model")
	length := fs.String("length", "", "summary length: short, medium or long")
	prompt := fs.String("prompt", "", "custom system prompt")
	chunkSize := fs.Int("chunk-size", 0, "chunk size in characters")
	overlap := fs.Int("overlap", 0, "chunk overlap in characters")
	save := fs.Bool("save", false, "store the result")
	fs.Parse(args)

	if *file == "" {
		return errortypes.ValidationError(nil, "-file is required")
	}

	svc, _, err := setup(ctx, *configPath, *provider)
	if err != nil {
		return err
	}
	defer svc.Close()

	opts, err := svc.DefaultOptions().Apply(reducer.Overrides{
		Model:         *model,
		SummaryLength: *length,
		SystemPrompt:  *prompt,
		ChunkSize:     *chunkSize,
		ChunkOverlap:  *overlap,
	})
	if err != nil {
		return err
	}

	rec, err := svc.SummarizeFile(ctx, *file, opts, *save)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

func runServeMCP(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve-mcp", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultConfigFilename, "configuration file")
	provider := fs.String("provider", "", "override the configured provider")
	fs.Parse(args)

	svc, log, err := setup(ctx, *configPath, *provider)
	if err != nil {
		return err
	}
	defer svc.Close()

	srv := server.NewToolServer(svc, log)
	if err := srv.Initialize(); err != nil {
		return err
	}

	// Run blocks on stdin, so a signal ends the command without waiting for it.
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case err := <-errCh:
		if err != nil {
			return errortypes.APIError(err, "MCP server failed")
		}
	case <-ctx.Done():
		log.Info("received shutdown signal")
	}
	return srv.Stop()
}

func runServeHTTP(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve-http", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultConfigFilename, "configuration file")
	provider := fs.String("provider", "", "override the configured provider")
	addr := fs.String("addr", "", "listen address (defaults to the configured one)")
	fs.Parse(args)

	svc, log, err := setup(ctx, *configPath, *provider)
	if err != nil {
		return err
	}
	defer svc.Close()

	cfg := svc.Config()
	listen := cfg.Server.HTTPAddr
	if *addr != "" {
		listen = *addr
	}

	httpServer := &http.Server{
		Addr:              listen,
		Handler:           api.NewServer(svc, log, api.Config{APIKey: cfg.Server.APIKey}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", listen, "auth", cfg.Server.APIKey != "")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errortypes.NetworkError(err, "HTTP server failed")
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errortypes.NetworkError(err, "HTTP server shutdown failed")
	}
	log.Info("HTTP server stopped")
	return nil
}

func runInitConfig(args []string) error {
	fs := flag.NewFlagSet("init-config", flag.ExitOnError)
	path := fs.String("path", config.DefaultConfigFilename, "where to write the configuration")
	force := fs.Bool("force", false, "overwrite an existing file")
	fs.Parse(args)

	if _, err := os.Stat(*path); err == nil && !*force {
		return errortypes.ValidationError(nil, fmt.Sprintf("%s already exists, use -force to overwrite", *path))
	}
	if err := config.NewConfig().SaveToFile(*path); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "wrote %s\n", *path)
	return nil
}
