package main

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"partnerledger/internal/auth"
	"partnerledger/internal/events"
	"partnerledger/internal/events/kafka"
	"partnerledger/internal/feed"
	"partnerledger/internal/roster"
	"partnerledger/internal/server"
	"partnerledger/internal/service"
	"partnerledger/internal/storage"
	"partnerledger/internal/storage/memory"
	"partnerledger/internal/storage/postgres"
	"partnerledger/internal/storage/sqlite"
	"partnerledger/pkg/logging"
)

const tokenDuration = 24 * time.Hour

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func openStore() (storage.Store, error) {
	switch backend := getEnv("STORAGE_BACKEND", "sqlite"); backend {
	case "sqlite":
		return sqlite.New(getEnv("DB_PATH", "./data/ledger.db"))
	case "postgres":
		return postgres.New(os.Getenv("DATABASE_URL"))
	case "memory":
		return memory.New(), nil
	default:
		slog.Warn("unknown storage backend, falling back to sqlite", "backend", backend)
		return sqlite.New(getEnv("DB_PATH", "./data/ledger.db"))
	}
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	logging.Setup()

	store, err := openStore()
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "backend", getEnv("STORAGE_BACKEND", "sqlite"))

	var publisher events.Publisher = events.NopPublisher{}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		kp := kafka.NewPublisher(strings.Split(brokers, ","))
		defer kp.Close()
		publisher = kp
		slog.Info("Event publishing enabled", "brokers", brokers)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		slog.Error("JWT_SECRET must be set")
		os.Exit(1)
	}

	resolver := roster.NewResolver(store)
	svc := service.NewTransactionService(store, resolver, feed.NewHub(), publisher)
	srv := server.New(svc, resolver, auth.NewPasswordAuthenticator(store), auth.NewJWTManager(secret, tokenDuration))

	handler := corsMiddleware(srv.Routes())

	// h2c lets proxies and SSE consumers speak HTTP/2 without TLS.
	h2cHandler := h2c.NewHandler(handler, &http2.Server{})

	addr := getEnv("ADDR", ":8080")
	slog.Info("Server starting", "address", addr)
	if err := http.ListenAndServe(addr, h2cHandler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
