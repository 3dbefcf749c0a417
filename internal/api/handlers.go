// Copyright 2026 The QueryDesk Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/querydesk/querydesk/internal/classify"
	"github.com/querydesk/querydesk/internal/history"
	"github.com/querydesk/querydesk/internal/route"
)

// maxQueryLength caps accepted queries; longer input is rejected rather
// than silently truncated.
const maxQueryLength = 10000

// batchLimit caps the number of queries per batch request.
const batchLimit = 100

// batchParallelism bounds concurrent classification inside one batch.
const batchParallelism = 8

// ClassifyRequest is the body of POST /v1/classify.
type ClassifyRequest struct {
	Query string `json:"query"`
	// RequestID is optional; a UUID is generated when absent.
	RequestID string `json:"request_id,omitempty"`
}

// ClassifyResponse pairs the classification with its routing decision.
type ClassifyResponse struct {
	RequestID      string          `json:"request_id"`
	Classification classify.Result `json:"classification"`
	Routing        route.Decision  `json:"routing"`
}

// BatchRequest is the body of POST /v1/classify/batch.
type BatchRequest struct {
	Queries []string `json:"queries"`
}

// BatchResponse returns one entry per input query, in input order.
type BatchResponse struct {
	RequestID string             `json:"request_id"`
	Results   []ClassifyResponse `json:"results"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"rules":  s.Detector().Rules().Version(),
	})
}

func (s *Server) handleClassify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(req.Query) > maxQueryLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query exceeds maximum length"})
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	resp := s.process(req.RequestID, req.Query)

	if s.history != nil {
		if err := s.history.Record(c.Request.Context(), resp.RequestID, req.Query, resp.Classification, resp.Routing); err != nil {
			log.WithField("request_id", resp.RequestID).WithError(err).Warn("failed to record decision")
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleClassifyBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(req.Queries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "queries must not be empty"})
		return
	}
	if len(req.Queries) > batchLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "batch exceeds " + strconv.Itoa(batchLimit) + " queries"})
		return
	}
	for _, q := range req.Queries {
		if len(q) > maxQueryLength {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query exceeds maximum length"})
			return
		}
	}

	batchID := uuid.NewString()
	results := make([]ClassifyResponse, len(req.Queries))

	var g errgroup.Group
	g.SetLimit(batchParallelism)
	for i, q := range req.Queries {
		i, q := i, q
		g.Go(func() error {
			results[i] = s.process(batchID+"-"+strconv.Itoa(i), q)
			return nil
		})
	}
	// Workers never return errors; Wait only fences completion.
	_ = g.Wait()

	if s.history != nil {
		for i, r := range results {
			if err := s.history.Record(c.Request.Context(), r.RequestID, req.Queries[i], r.Classification, r.Routing); err != nil {
				log.WithField("request_id", r.RequestID).WithError(err).Warn("failed to record decision")
			}
		}
	}

	c.JSON(http.StatusOK, BatchResponse{RequestID: batchID, Results: results})
}

// process runs one query through the detector and router and folds the
// outcome into the session metrics.
func (s *Server) process(requestID, query string) ClassifyResponse {
	result := s.Detector().Detect(query)
	decision := s.router.Route(result)
	s.metrics.Observe(result, decision)
	return ClassifyResponse{RequestID: requestID, Classification: result, Routing: decision}
}

func (s *Server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) handleHistoryRecent(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history disabled"})
		return
	}
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	records, err := s.history.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read history"})
		return
	}
	if records == nil {
		records = []*history.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}
