package app

import (
	types "github.com/yungbote/employee-directory/internal/domain"
	"github.com/yungbote/employee-directory/internal/observability"
	"github.com/yungbote/employee-directory/internal/pkg/logger"
	"github.com/yungbote/employee-directory/internal/realtime"
	"github.com/yungbote/employee-directory/internal/realtime/bus"
	"github.com/yungbote/employee-directory/internal/services"
)

type Services struct {
	Employees services.EmployeeService
	Aggregate services.AggregateService
	Bulk      services.BulkService
	Notifier  services.ChangeNotifier
}

// wireEmitter publishes through the bus when one is configured, otherwise
// straight to the local hub.
func wireEmitter(log *logger.Logger, hub *realtime.SSEHub, b bus.Bus) services.SSEEmitter {
	if b != nil {
		return &services.BusEmitter{Bus: b, Log: log.With("component", "BusEmitter")}
	}
	return &services.HubEmitter{Hub: hub}
}

func wireServices(log *logger.Logger, store Store, emit services.SSEEmitter, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")
	notifier := services.NewChangeNotifier(emit, metrics)
	return Services{
		Employees: services.NewEmployeeService(log, store.Employees, notifier, metrics),
		Aggregate: services.NewAggregateService(log, store.Employees, types.DefaultAggregateInitials(), metrics),
		Bulk:      services.NewBulkService(log, store.Employees, types.DefaultTieredIncrement(), notifier, metrics),
		Notifier:  notifier,
	}
}
