package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"gridchat/infrastructure/ws"
	"gridchat/moderation"
	"gridchat/runtime"
	"gridchat/runtime/workers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for HTTP and background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Moderation collaborator
	// Fail open: the broker never depends on the moderator being present.
	var checker ws.ContentChecker
	if config.ModerationMode != ws.ModerationOff {
		replacement, err := characterRune(config.CharReplacement)
		if err != nil {
			return err
		}
		data, err := moderation.LoadDefault()
		if err != nil {
			log.Warn("Moderation disabled, wordlists unavailable", "error", err)
		} else {
			log.Info(fmt.Sprintf("%d censored files loaded [%s]",
				len(data.Languages), strings.Join(data.Languages, ",")))
			log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))

			moderator, err := moderation.NewModerator(data.Words, replacement, log)
			if err != nil {
				log.Warn("Moderation disabled, automaton build failed", "error", err)
			} else {
				checker = &moderator
			}
		}
	}

	// 3. Supervision & broker
	sup := workers.NewSupervisor(log, config.RestartInterval)
	registry := runtime.NewRegistry()
	broker := runtime.NewBroker(log, sup, registry,
		config.BufferSize, config.SinkTimeout, config.SweepInterval)

	sup.Add(workers.NewHeartbeatWorker(log, config.HeartbeatInterval))
	sup.Add(workers.NewChannelCapacityWorker(log, []workers.NamedChannel{
		{Name: "events", Channel: broker.Pipeline()},
	}, config.MetricInterval))

	// 4. Context & signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Start the engine
	if err := broker.Start(ctx); err != nil {
		return fmt.Errorf("broker failed to start: %w", err)
	}

	// 6. HTTP server
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := ws.NewServer(log, broker, checker, ws.Options{
		ConnectionBufferSize: config.ConnectionBufferSize,
		ModerationMode:       config.ModerationMode,
	})
	srv := &http.Server{Addr: address, Handler: server.Handler()}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting websocket server", "address", address, "at", time.Now().UTC())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for stop or error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	broker.Stop()
	log.Info("Program stopped cleanly")

	return nil
}

func characterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
