// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/danielhkuo/quickly-tally/auth"
	"github.com/danielhkuo/quickly-tally/backend"
	"github.com/danielhkuo/quickly-tally/cliparse"
	"github.com/danielhkuo/quickly-tally/db"
	"github.com/danielhkuo/quickly-tally/middleware"
	"github.com/danielhkuo/quickly-tally/realtime"
	"github.com/danielhkuo/quickly-tally/router"
	"github.com/danielhkuo/quickly-tally/session"
)

func main() {
	var err error

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	if cfg.PrintAdminKey {
		fmt.Println(auth.GenerateAdminKey(auth.AdminScope, cfg.AdminKeySalt))
		return
	}

	// Connect, verify and create schema
	dbConn, err := backend.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database setup failed", "error", err, "type", cfg.DatabaseType)
		os.Exit(1)
	}
	defer dbConn.Close()
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Change fan-out. Postgres feeds it from LISTEN/NOTIFY; on SQLite the
	// client publishes its own writes.
	hub := realtime.NewHub(realtime.DefaultBuffer)
	defer hub.Close()

	if cfg.DatabaseType == db.Postgres {
		listener, err := realtime.NewPGListener(cfg.DatabaseURL, hub)
		if err != nil {
			slog.Error("change listener failed", "error", err)
			os.Exit(1)
		}
		defer listener.Close()
		go listener.Run(ctx)
	}

	client := backend.New(dbConn, cfg.DatabaseType, hub)

	sessions := session.NewManager(func(identity string) session.Backend {
		return client.As(identity)
	}, session.Options{
		SubmitTimeout: cfg.SubmitTimeout,
		IdleTimeout:   cfg.SessionIdle,
		MaxSessions:   cfg.MaxSessions,
	})
	defer sessions.Close()

	// Create router
	mux := router.NewRouter(client, sessions, cfg)

	// Create server
	server := http.Server{
		Handler: middleware.CORS(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		stop()
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
