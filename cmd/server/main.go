package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tictacshift/internal/api"
	"tictacshift/internal/broadcast"
	"tictacshift/internal/chat"
	"tictacshift/internal/config"
	"tictacshift/internal/game"
	"tictacshift/internal/htmx"
	"tictacshift/internal/ws"

	"github.com/gorilla/handlers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "tictacshift",
		Usage: "real-time session server for two-player tic-tac-shift",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "optional dotenv file"},
			&cli.IntFlag{Name: "port", Usage: "listen port (overrides PORT)"},
			&cli.IntFlag{Name: "turn-seconds", Usage: "seconds per turn (overrides TURN_SECONDS)"},
			&cli.StringFlag{Name: "log-level", Usage: "zerolog level (overrides LOG_LEVEL)"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("Server exited")
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("env-file"))
	if err != nil {
		return err
	}
	if cmd.IsSet("port") {
		cfg.Port = cmd.Int("port")
	}
	if cmd.IsSet("turn-seconds") {
		cfg.TurnSeconds = cmd.Int("turn-seconds")
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	closeLog, err := initializeLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize layers
	hub := broadcast.NewHub()
	registry := game.NewRegistry()
	controller := game.NewController(registry, hub, cfg.TurnSeconds)
	chatService := chat.NewService(hub, cfg.ChatHistory)

	controllerDone := make(chan struct{})
	go func() {
		defer close(controllerDone)
		controller.Run(ctx)
	}()

	// Setup routes
	mux := http.NewServeMux()
	api.NewHandler(controller).RegisterRoutes(mux)
	ws.NewHandler(controller, chatService, chat.Handles, hub, cfg.AllowedOrigins).RegisterRoutes(mux)
	htmx.NewHandler(controller).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(api.CORSMiddleware(cfg.AllowedOrigins)(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stop()
		<-controllerDone
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	<-controllerDone
	return nil
}

// initializeLogger writes to stdout and, when LOG_FILE is set, to that file too.
func initializeLogger(cfg config.Config) (func(), error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFile == "" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		return func() {}, nil
	}

	runLogFile, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0664)
	if err != nil {
		return nil, err
	}
	multi := zerolog.MultiLevelWriter(runLogFile, os.Stdout)
	log.Logger = zerolog.New(multi).With().Timestamp().Logger()
	return func() { runLogFile.Close() }, nil
}
