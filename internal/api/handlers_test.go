// Copyright 2026 The QueryDesk Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/bcrypt"

	"github.com/querydesk/querydesk/internal/classify"
	"github.com/querydesk/querydesk/internal/config"
	"github.com/querydesk/querydesk/internal/route"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Debug = true
	if mutate != nil {
		mutate(cfg)
	}

	detector, err := classify.NewDetector(cfg.ClassifierConfig(), classify.DefaultRuleSet())
	require.NoError(t, err)
	router, err := route.NewRouter(cfg.RouterConfig())
	require.NoError(t, err)

	srv := NewServer(cfg, detector, router, nil)
	return srv, srv.Engine()
}

func doRequest(engine *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestClassifyEndpoint(t *testing.T) {
	_, engine := newTestServer(t, nil)

	w := doRequest(engine, http.MethodPost, "/v1/classify",
		`{"query": "I need a refund for double charge"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.NotEmpty(t, gjson.Get(body, "request_id").String())
	assert.Equal(t, "Billing & Payments", gjson.Get(body, "classification.primary_category").String())
	assert.InDelta(t, 0.6875, gjson.Get(body, "classification.primary_confidence").Float(), 0.001)
	assert.Equal(t, "high", gjson.Get(body, "classification.routing_priority").String())
	assert.Equal(t, "specialist_billing", gjson.Get(body, "routing.destination").String())
	assert.Equal(t, "queue_priority", gjson.Get(body, "routing.action").String())
	assert.Equal(t, "short", gjson.Get(body, "routing.estimated_wait").String())
}

func TestClassifyKeepsClientRequestID(t *testing.T) {
	_, engine := newTestServer(t, nil)

	w := doRequest(engine, http.MethodPost, "/v1/classify",
		`{"query": "help", "request_id": "client-7"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "client-7", gjson.Get(w.Body.String(), "request_id").String())
}

func TestClassifyEmptyQuery(t *testing.T) {
	_, engine := newTestServer(t, nil)

	// An empty query is valid input: it classifies as General Inquiry with
	// zero confidence rather than failing.
	w := doRequest(engine, http.MethodPost, "/v1/classify", `{"query": ""}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Equal(t, "General Inquiry", gjson.Get(body, "classification.primary_category").String())
	assert.Equal(t, 0.0, gjson.Get(body, "classification.primary_confidence").Float())
	assert.Equal(t, "tier_1_support", gjson.Get(body, "routing.destination").String())
}

func TestClassifyBadRequests(t *testing.T) {
	_, engine := newTestServer(t, nil)

	w := doRequest(engine, http.MethodPost, "/v1/classify", `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	long := strings.Repeat("a", maxQueryLength+1)
	w = doRequest(engine, http.MethodPost, "/v1/classify", `{"query": "`+long+`"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClassifyBatch(t *testing.T) {
	_, engine := newTestServer(t, nil)

	w := doRequest(engine, http.MethodPost, "/v1/classify/batch",
		`{"queries": ["I need a refund for double charge", "", "How do I learn more information about your support plans"]}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	results := gjson.Get(body, "results").Array()
	require.Len(t, results, 3)
	// Order matches input order regardless of worker scheduling.
	assert.Equal(t, "Billing & Payments", results[0].Get("classification.primary_category").String())
	assert.Equal(t, "General Inquiry", results[1].Get("classification.primary_category").String())
	assert.Equal(t, "auto_response", results[2].Get("routing.destination").String())

	batchID := gjson.Get(body, "request_id").String()
	require.NotEmpty(t, batchID)
	assert.Equal(t, batchID+"-0", results[0].Get("request_id").String())
	assert.Equal(t, batchID+"-2", results[2].Get("request_id").String())
}

func TestClassifyBatchValidation(t *testing.T) {
	_, engine := newTestServer(t, nil)

	w := doRequest(engine, http.MethodPost, "/v1/classify/batch", `{"queries": []}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	queries := make([]string, 0, batchLimit+1)
	for i := 0; i <= batchLimit; i++ {
		queries = append(queries, `"q"`)
	}
	w = doRequest(engine, http.MethodPost, "/v1/classify/batch",
		`{"queries": [`+strings.Join(queries, ",")+`]}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthz(t *testing.T) {
	_, engine := newTestServer(t, nil)

	w := doRequest(engine, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", gjson.Get(w.Body.String(), "status").String())
	assert.Equal(t, "builtin-1", gjson.Get(w.Body.String(), "rules").String())
}

func TestManagementEndpointsDisabledWithoutKey(t *testing.T) {
	_, engine := newTestServer(t, nil)

	w := doRequest(engine, http.MethodGet, "/v1/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sesame"), bcrypt.MinCost)
	require.NoError(t, err)
	_, engine := newTestServer(t, func(cfg *config.Config) {
		cfg.ManagementKey = string(hash)
	})

	w := doRequest(engine, http.MethodGet, "/v1/metrics", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(engine, http.MethodGet, "/v1/metrics", "", map[string]string{"X-Management-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	doRequest(engine, http.MethodPost, "/v1/classify", `{"query": "I need a refund for double charge"}`, nil)

	w = doRequest(engine, http.MethodGet, "/v1/metrics", "", map[string]string{"X-Management-Key": "sesame"})
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, int64(1), gjson.Get(body, "total_queries").Int())
	assert.Equal(t, int64(1), gjson.Get(body, "by_category.Billing & Payments").Int())
	assert.Equal(t, int64(1), gjson.Get(body, "by_destination.specialist_billing").Int())
}

func TestHistoryEndpointWithoutStore(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sesame"), bcrypt.MinCost)
	require.NoError(t, err)
	_, engine := newTestServer(t, func(cfg *config.Config) {
		cfg.ManagementKey = string(hash)
	})

	w := doRequest(engine, http.MethodGet, "/v1/history/recent", "", map[string]string{"X-Management-Key": "sesame"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSwapRules(t *testing.T) {
	srv, engine := newTestServer(t, nil)

	rules, err := classify.NewRuleSet("swapped-1", map[classify.Category][]classify.IndicatorGroup{
		classify.CategoryGeneral: {{Keywords: []string{"anything"}, Weight: 0.5}},
	}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, srv.SwapRules(rules))

	w := doRequest(engine, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, "swapped-1", gjson.Get(w.Body.String(), "rules").String())

	// The old billing table is gone, so the refund query now lacks signal.
	w = doRequest(engine, http.MethodPost, "/v1/classify", `{"query": "I need a refund for double charge"}`, nil)
	assert.Equal(t, "General Inquiry", gjson.Get(w.Body.String(), "classification.primary_category").String())
}
