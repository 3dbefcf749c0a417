// Copyright 2026 The QueryDesk Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api exposes the classification and routing engine over HTTP.
package api

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/querydesk/querydesk/internal/classify"
	"github.com/querydesk/querydesk/internal/config"
	"github.com/querydesk/querydesk/internal/history"
	"github.com/querydesk/querydesk/internal/metrics"
	"github.com/querydesk/querydesk/internal/route"
)

// Server wires the detector, router, history store and session metrics
// behind the HTTP surface. The detector is held behind an atomic pointer so
// rule hot-reloads swap it without blocking in-flight requests.
type Server struct {
	cfg      *config.Config
	detector atomic.Pointer[classify.Detector]
	router   *route.Router
	history  *history.Store
	metrics  *metrics.Session
}

// NewServer assembles a server. The history store may be nil when history is
// disabled.
func NewServer(cfg *config.Config, detector *classify.Detector, router *route.Router, hist *history.Store) *Server {
	s := &Server{
		cfg:     cfg,
		router:  router,
		history: hist,
		metrics: metrics.NewSession(),
	}
	s.detector.Store(detector)
	return s
}

// Detector returns the currently active detector.
func (s *Server) Detector() *classify.Detector {
	return s.detector.Load()
}

// SwapRules replaces the active rule set, keeping the configured thresholds.
// Called by the rule-file watcher.
func (s *Server) SwapRules(rules *classify.RuleSet) error {
	detector, err := classify.NewDetector(s.Detector().Config(), rules)
	if err != nil {
		return err
	}
	s.detector.Store(detector)
	return nil
}

// Engine builds the gin engine with all routes registered.
func (s *Server) Engine() *gin.Engine {
	if !s.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", s.handleHealth)

	v1 := engine.Group("/v1")
	{
		v1.POST("/classify", s.handleClassify)
		v1.POST("/classify/batch", s.handleClassifyBatch)

		mgmt := v1.Group("", s.requireManagementKey())
		{
			mgmt.GET("/metrics", s.handleMetrics)
			mgmt.GET("/history/recent", s.handleHistoryRecent)
		}
	}

	return engine
}

// requireManagementKey guards the management endpoints with the configured
// bcrypt key. With no key configured the endpoints are disabled outright.
func (s *Server) requireManagementKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.ManagementKey == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "management endpoints disabled"})
			return
		}
		key := c.GetHeader("X-Management-Key")
		if !s.cfg.CheckManagementKey(key) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid management key"})
			return
		}
		c.Next()
	}
}
