package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	types "github.com/yungbote/employee-directory/internal/domain"
	"github.com/yungbote/employee-directory/internal/http/response"
	"github.com/yungbote/employee-directory/internal/observability"
	"github.com/yungbote/employee-directory/internal/pkg/ctxutil"
	"github.com/yungbote/employee-directory/internal/pkg/logger"
)

func TestAttachTraceContextPropagatesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var seen *ctxutil.TraceData
	r.GET("/x", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "req-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen == nil || seen.RequestID != "req-123" || seen.TraceID == "" {
		t.Fatalf("trace data: %+v", seen)
	}
	if got := rec.Header().Get(headerRequestID); got != "req-123" {
		t.Fatalf("response request id: %q", got)
	}
}

func TestAttachTraceContextRejectsOversizedIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, strings.Repeat("a", maxInboundIDLen+1))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	got := rec.Header().Get(headerRequestID)
	if got == "" || len(got) > maxInboundIDLen {
		t.Fatalf("expected a freshly minted id, got %q", got)
	}
}

func TestMetricsMiddlewareCountsRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.NewMetrics()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/api/list", func(c *gin.Context) { c.JSON(http.StatusOK, 0) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	for i := 0; i < 2; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/list", nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `directory_http_requests_total{method="GET",route="/api/list",status="200"} 2`) {
		t.Fatalf("missing /api/list counter in:\n%s", body)
	}
	if !strings.Contains(body, `route="unmatched"`) {
		t.Fatalf("missing unmatched counter")
	}
}

func TestRequestLoggerRecordsKeyAndErrorCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}

	r := gin.New()
	r.Use(RequestLogger(log))
	r.DELETE("/api/employees/:name", func(c *gin.Context) {
		c.Set(CtxEmployeeKey, c.Param("name"))
		response.RespondDomainError(c, types.NotFoundOrConflict("employee.delete", 0))
	})
	r.GET("/api/list", func(c *gin.Context) { c.JSON(http.StatusOK, 0) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/employees/Ann", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/list", nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("log entries: %d", len(entries))
	}
	failed := entries[0]
	if failed.Level != zapcore.WarnLevel {
		t.Fatalf("failed request level: %s", failed.Level)
	}
	fields := failed.ContextMap()
	if fields["employee_key"] != "Ann" || fields["error_code"] != string(types.CodeNotFoundOrConflict) || fields["route"] != "/api/employees/:name" {
		t.Fatalf("failed request fields: %v", fields)
	}
	ok := entries[1].ContextMap()
	if entries[1].Level != zapcore.InfoLevel {
		t.Fatalf("ok request level: %s", entries[1].Level)
	}
	if _, has := ok["error_code"]; has {
		t.Fatalf("ok request should carry no error: %v", ok)
	}
	if _, has := ok["employee_key"]; has {
		t.Fatalf("ok request should carry no key: %v", ok)
	}
}
