// Copyright 2026 The QueryDesk Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command server runs the QueryDesk classification and routing service.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/querydesk/querydesk/internal/api"
	"github.com/querydesk/querydesk/internal/classify"
	"github.com/querydesk/querydesk/internal/config"
	"github.com/querydesk/querydesk/internal/history"
	"github.com/querydesk/querydesk/internal/logging"
	"github.com/querydesk/querydesk/internal/route"
)

// Build information. Populated at build-time via -ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("querydesk %s (%s, built %s)\n", Version, Commit, BuildDate)
		return
	}

	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	logging.SetupBaseLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if err := logging.ConfigureLogOutput(cfg.LoggingToFile, cfg.LogDir); err != nil {
		log.Fatalf("Failed to configure log output: %v", err)
	}

	log.Infof("Starting querydesk %s (%s)", Version, Commit)

	rules := classify.DefaultRuleSet()
	if cfg.Classifier.RulesFile != "" {
		rules, err = config.LoadRules(cfg.Classifier.RulesFile)
		if err != nil {
			log.Fatalf("Failed to load rule file: %v", err)
		}
		log.Infof("Loaded rule file %s (version %s)", cfg.Classifier.RulesFile, rules.Version())
	}

	detector, err := classify.NewDetector(cfg.ClassifierConfig(), rules)
	if err != nil {
		log.Fatalf("Failed to build classifier: %v", err)
	}
	router, err := route.NewRouter(cfg.RouterConfig())
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	ctx := context.Background()

	var hist *history.Store
	if cfg.History.Enabled {
		hist, err = history.Open(ctx, cfg.History.Path, cfg.History.RetentionDays)
		if err != nil {
			log.Fatalf("Failed to open decision history: %v", err)
		}
	}

	server := api.NewServer(cfg, detector, router, hist)

	var watcher *config.RuleWatcher
	if cfg.Classifier.RulesFile != "" && cfg.Classifier.WatchRules {
		watcher, err = config.NewRuleWatcher(cfg.Classifier.RulesFile, func(rs *classify.RuleSet) {
			if swapErr := server.SwapRules(rs); swapErr != nil {
				log.WithError(swapErr).Error("failed to swap rule set")
			}
		})
		if err != nil {
			log.Fatalf("Failed to build rule watcher: %v", err)
		}
		if err := watcher.Start(); err != nil {
			log.Fatalf("Failed to start rule watcher: %v", err)
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Engine(),
	}

	go func() {
		log.Infof("Listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	if watcher != nil {
		watcher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP shutdown error: %v", err)
	}
	if hist != nil {
		if err := hist.Close(shutdownCtx); err != nil {
			log.Errorf("History close error: %v", err)
		}
	}
	log.Info("Shutdown complete")
}
