package services

import (
	"context"

	"github.com/yungbote/employee-directory/internal/pkg/logger"
	"github.com/yungbote/employee-directory/internal/realtime"
	"github.com/yungbote/employee-directory/internal/realtime/bus"
)

type SSEEmitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage) error
}

// HubEmitter broadcasts to this process's SSE clients.
type HubEmitter struct{ Hub *realtime.SSEHub }

func (e *HubEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) error {
	e.Hub.Broadcast(msg)
	return nil
}

// BusEmitter publishes through the bus; each instance's forwarder delivers
// the message to its own hub.
type BusEmitter struct {
	Bus bus.Bus
	Log *logger.Logger
}

func (e *BusEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) error {
	if err := e.Bus.Publish(ctx, msg); err != nil {
		if e.Log != nil {
			e.Log.Warn("publish change event failed", "event", msg.Event, "error", err)
		}
		return err
	}
	return nil
}
