// Command fakestore serves the in-memory index API for local runs of
// indexctl.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/indexkit/internal/fakestore"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/middleware"
)

func main() {
	port := flag.Int("port", 8529, "listen port")
	collections := flag.String("collections", "users", "comma-separated document collections to create")
	edges := flag.String("edges", "", "comma-separated edge collections to create")
	username := flag.String("username", "root", "basic auth user (empty disables auth)")
	password := flag.String("password", "", "basic auth password")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger.Setup(*logLevel, "text")

	var opts []fakestore.Option
	if *username != "" {
		opts = append(opts, fakestore.WithCredentials(*username, *password))
	}
	store := fakestore.New(opts...)
	for _, name := range splitList(*collections) {
		store.AddCollection(name)
	}
	for _, name := range splitList(*edges) {
		store.AddEdgeCollection(name)
	}

	var chain http.Handler = store.Handler()
	chain = middleware.Timeout(10 * time.Second)(chain)
	chain = middleware.Logging(logger.WithComponent("fakestore"))(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      chain,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("fake store listening", "addr", server.Addr, "collections", *collections, "edges", *edges)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("fake store stopped", "requests", store.Requests())
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
