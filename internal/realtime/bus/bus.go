package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/employee-directory/internal/realtime"
)

// Bus fans SSE messages out across API instances.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}

type localBus struct {
	mu         sync.RWMutex
	forwarders []func(m realtime.SSEMessage)
}

// NewLocalBus delivers published messages to this process's forwarders only.
func NewLocalBus() Bus {
	return &localBus{}
}

func (b *localBus) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.forwarders {
		fn(msg)
	}
	return nil
}

func (b *localBus) StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	b.mu.Lock()
	idx := len(b.forwarders)
	b.forwarders = append(b.forwarders, onMsg)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if idx < len(b.forwarders) {
			b.forwarders[idx] = func(realtime.SSEMessage) {}
		}
	}()
	return nil
}

func (b *localBus) Close() error { return nil }
