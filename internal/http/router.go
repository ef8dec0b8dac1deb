package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/employee-directory/internal/http/handlers"
	httpMW "github.com/yungbote/employee-directory/internal/http/middleware"
	"github.com/yungbote/employee-directory/internal/observability"
	"github.com/yungbote/employee-directory/internal/pkg/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	// TracingService names the otelgin server spans; empty disables them.
	TracingService string
	CORSOrigins    []string

	EmployeeHandler *httpH.EmployeeHandler
	RealtimeHandler *httpH.RealtimeHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	// Match :name against the escaped path so an encoded "/" stays inside
	// the segment. gin would unescape values with query rules ("+" becomes a
	// space), so handlers path-unescape them instead.
	r.UseRawPath = true
	r.UnescapePathValues = false

	r.Use(gin.Recovery())
	if cfg.TracingService != "" {
		r.Use(otelgin.Middleware(cfg.TracingService))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		if cfg.RealtimeHandler != nil {
			api.GET("/employees/events", cfg.RealtimeHandler.SSEStream)
		}

		if cfg.EmployeeHandler != nil {
			api.GET("/employees", cfg.EmployeeHandler.ListEmployees)
			api.POST("/employees", cfg.EmployeeHandler.AddEmployee)
			api.PUT("/employees/:name", cfg.EmployeeHandler.UpdateEmployee)
			api.DELETE("/employees/:name", cfg.EmployeeHandler.DeleteEmployee)

			api.GET("/list", cfg.EmployeeHandler.GetAggregate)
			api.PATCH("/list", cfg.EmployeeHandler.IncrementAll)
		}
	}

	return r
}
