package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/steven-d-pennington/kanban-context/internal/embedder"
	"github.com/steven-d-pennington/kanban-context/internal/mcp"
	"github.com/steven-d-pennington/kanban-context/internal/watcher"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	watchProject := flag.String("watch-project", "", "project ID to keep indexed from filesystem events")
	watchRoot := flag.String("watch-root", "", "project root to watch (requires -watch-project)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("kanban-context MCP server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Embedding Provider: %s\n", embedder.DetectProvider())
		os.Exit(0)
	}

	// stdout carries the MCP protocol; everything else goes to stderr.
	_ = godotenv.Load()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	log.Info().Str("version", version).Str("provider", embedder.DetectProvider()).Msg("starting")

	server, err := mcp.NewServer(mcp.Config{
		DBPath:      os.Getenv(mcp.EnvDBPath),
		BoardDBPath: os.Getenv(mcp.EnvBoardDBPath),
		Logger:      log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create server")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if *watchProject != "" {
		if *watchRoot == "" {
			log.Fatal().Msg("-watch-root is required with -watch-project")
		}
		go func() {
			if err := server.WatchProject(ctx, *watchProject, *watchRoot, watcher.DefaultDebounce); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("watch stopped")
			}
		}()
		log.Info().Str("project", *watchProject).Str("root", *watchRoot).Msg("watching for changes")
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().Msg("listening on stdio")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	case err := <-errChan:
		if err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}

	log.Info().Msg("stopped")
}
