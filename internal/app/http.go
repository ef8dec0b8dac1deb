package app

import (
	httpserver "github.com/yungbote/employee-directory/internal/http"
	httpH "github.com/yungbote/employee-directory/internal/http/handlers"
	"github.com/yungbote/employee-directory/internal/observability"
	"github.com/yungbote/employee-directory/internal/pkg/logger"
	"github.com/yungbote/employee-directory/internal/realtime"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Employee *httpH.EmployeeHandler
	Realtime *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, svc Services, store Store, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(store.Ping),
		Employee: httpH.NewEmployeeHandler(log, svc.Employees, svc.Aggregate, svc.Bulk),
		Realtime: httpH.NewRealtimeHandler(log, hub),
	}
}

func wireServer(log *logger.Logger, cfg Config, h Handlers, metrics *observability.Metrics) *httpserver.Server {
	tracing := ""
	if cfg.Otel.Enabled {
		tracing = cfg.Otel.ServiceName
	}
	return httpserver.NewServer(cfg.HTTP.Addr, httpserver.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		TracingService:  tracing,
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		EmployeeHandler: h.Employee,
		RealtimeHandler: h.Realtime,
		HealthHandler:   h.Health,
	})
}
