package services

import (
	"context"

	"github.com/yungbote/employee-directory/internal/observability"
	"github.com/yungbote/employee-directory/internal/realtime"
)

const (
	OpAdd       = "add"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpIncrement = "increment"
)

// ChangeNotifier tells subscribers the store changed. Delivery is best
// effort; a lost event only delays a client's next refresh.
type ChangeNotifier interface {
	EmployeesChanged(ctx context.Context, op string, name string)
}

type changeNotifier struct {
	emit    SSEEmitter
	metrics *observability.Metrics
}

func NewChangeNotifier(emit SSEEmitter, metrics *observability.Metrics) ChangeNotifier {
	return &changeNotifier{emit: emit, metrics: metrics}
}

func (n *changeNotifier) EmployeesChanged(ctx context.Context, op string, name string) {
	if n == nil || n.emit == nil {
		return
	}
	err := n.emit.Emit(context.WithoutCancel(ctx), realtime.SSEMessage{
		Channel: realtime.ChannelEmployees,
		Event:   realtime.SSEEventEmployeesChanged,
		Data:    realtime.EmployeesChanged{Op: op, Name: name},
	})
	status := "ok"
	if err != nil {
		status = "error"
	}
	n.metrics.ObserveEvent(op, status)
}

type nopNotifier struct{}

func (nopNotifier) EmployeesChanged(context.Context, string, string) {}

// NopNotifier discards change events.
func NopNotifier() ChangeNotifier { return nopNotifier{} }
