package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/config"
	"github.com/example/room-booking/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "hash-reader-key" {
		return hashReaderKey(args[1:], stdin, stdout, stderr)
	}

	flags := pflag.NewFlagSet("bookingd", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	envFile := flags.String("env-file", "", "load KEY=VALUE pairs from this file before reading the environment")
	roomsFile := flags.String("rooms-file", "", "YAML room catalog to seed (overrides BOOKING_ROOMS_FILE)")
	port := flags.Int("port", 0, "HTTP port (overrides BOOKING_HTTP_PORT)")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	if err := config.LoadEnvFile(*envFile); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if *roomsFile != "" {
		cfg.RoomsFile = *roomsFile
	}
	if *port > 0 {
		cfg.HTTPPort = *port
	}

	logger, err := logging.New(stdout, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	slog.SetDefault(logger)

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("bookingd stopped", "error", err)
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Error("failed to release resources", "error", cerr)
		}
	}()

	inputs, err := loadRooms(cfg.RoomsFile)
	if err != nil {
		return err
	}
	if len(inputs) > 0 {
		if _, err := a.rooms.SeedRooms(ctx, inputs); err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("bookingd listening",
			"addr", server.Addr,
			"database", cfg.DatabaseDriver,
			"lock_backend", cfg.LockBackend,
			"checkin_backend", cfg.CheckInBackend,
			"session_provider", cfg.SessionProvider,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	})
	if a.subscriber != nil {
		group.Go(func() error {
			if err := a.subscriber.Start(groupCtx); err != nil {
				return err
			}
			logger.Info("badge subscriber started", "topic", a.subscriber.Topic())
			return nil
		})
	}
	return group.Wait()
}

// hashReaderKey prints the argon2id hash for BOOKING_READER_KEY_HASH. The key
// is read from the first argument or, when absent, from the first line of stdin.
func hashReaderKey(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var key string
	if len(args) > 0 {
		key = args[0]
	} else {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			fmt.Fprintln(stderr, err)
			return 1
		}
		key = strings.TrimRight(line, "\r\n")
	}

	encoded, err := application.HashReaderKey(key, application.DefaultArgon2idParams)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintln(stdout, encoded)
	return 0
}
