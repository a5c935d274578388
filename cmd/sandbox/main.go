package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/merchant-console/internal/config"
	"github.com/jrsteele09/merchant-console/internal/fakebackend"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("Error running sandbox")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Sandbox stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	configureLogging(c.GetLogLevel())
	displayAppname(c.GetAppName() + " Sandbox")

	backend := fakebackend.New(
		fakebackend.WithEnv(c.GetEnv()),
		fakebackend.WithSecret(c.GetSandboxSecret()),
		fakebackend.WithLogger(log.Logger),
	)
	server := &http.Server{Addr: c.GetPort(), Handler: backend}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(server)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(server)
}

func configureLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Str("prefix", fakebackend.APIPrefix).Msg("Sandbox listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
