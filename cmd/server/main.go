package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/clone-prom-team-2025/server/internal/config"
	"github.com/clone-prom-team-2025/server/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	setupLogging(cfg)
	displayAppname(cfg.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := wire(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close()

	if err := bootstrapAdmin(ctx, cfg, app); err != nil {
		return err
	}

	srv, err := server.New(cfg, app.services)
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:              cfg.GetPort(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	app.startBackground(ctx, cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- listenAndServe(httpServer)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return shutdown(httpServer, app)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "[main.listenAndServe]")
	}
	return nil
}

func shutdown(server *http.Server, app *application) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "[main.shutdown]")
	}
	// let queued forced-logout pushes go out before the broker connection closes
	app.notifier.Drain(ctx)
	return nil
}

// bootstrapAdmin creates or promotes the configured administrator. A generated password
// is printed once.
func bootstrapAdmin(ctx context.Context, cfg config.Config, app *application) error {
	email := cfg.GetSystemAdminEmail()
	if email == "" {
		return nil
	}
	generated, err := app.services.Accounts.BootstrapAdmin(ctx, email, cfg.GetSystemAdminUser(), cfg.GetSystemAdminPassword())
	if err != nil {
		return errors.Wrap(err, "[main.bootstrapAdmin]")
	}
	if generated != "" {
		log.Warn().Str("email", email).Str("password", generated).Msg("administrator created, save this password: it is not shown again")
	}
	return nil
}

func setupLogging(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
