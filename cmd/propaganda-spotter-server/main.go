package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	spotter "go-propaganda-spotter"
	"go-propaganda-spotter/internal/config"
	"go-propaganda-spotter/internal/transport"
)

const maxUploadBytes = 10 << 20 // 10MB

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to JSON config file (defaults used when empty)")
	flag.Parse()

	// .env is optional; environment overrides the config file either way.
	_ = godotenv.Load()

	cfg := config.Default()
	if cfgPath != "" {
		var err error
		cfg, err = config.LoadFromFile(cfgPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	cfg.ApplyEnv()

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)
	if os.Getenv("LOG_LEVEL") == "debug" {
		logrus.SetLevel(logrus.DebugLevel)
	}

	s, err := spotter.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize spotter: %v", err)
	}

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      transport.NewHandler(s, maxUploadBytes),
		ReadTimeout:  cfg.RequestTimeout() + 30*time.Second,
		WriteTimeout: cfg.RequestTimeout() + 30*time.Second,
	}

	go func() {
		logrus.WithField("address", cfg.Server.Address()).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Fatal("Server forced to shutdown")
	}
	logrus.Info("Server exited")
}
