package observ

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger("development", "not-a-level")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug to be disabled")
	}
	if !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info to be enabled")
	}
}

func TestRequestLoggerAssignsID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, RequestID(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	id := w.Header().Get(RequestIDHeader)
	if id == "" || w.Body.String() != id {
		t.Errorf("expected the handler to see the response id, got %q vs %q", w.Body.String(), id)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected one log line, got %d", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["request_id"]; got != id {
		t.Errorf("expected request_id %q in log, got %v", id, got)
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get(RequestIDHeader) != "abc" {
		t.Errorf("expected the client's request id to be kept")
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Posted()
	m.Pruned(3)
	m.Pruned(0)
	m.FeedRead("full")
	m.Limited("auth")

	if got := testutil.ToFloat64(m.MessagesPosted); got != 1 {
		t.Errorf("posted = %v", got)
	}
	if got := testutil.ToFloat64(m.MessagesPruned); got != 3 {
		t.Errorf("pruned = %v", got)
	}
	if got := testutil.ToFloat64(m.FeedReads.WithLabelValues("full")); got != 1 {
		t.Errorf("feed reads = %v", got)
	}

	var nilMetrics *Metrics
	nilMetrics.Posted()
	nilMetrics.Pruned(1)
	nilMetrics.FeedRead("recent")
	nilMetrics.Limited("message")
}
